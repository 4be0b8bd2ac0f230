package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PriyaanshPandey/KadamClashBackend/internal/db"
)

const cacheTTL = 30 * time.Second

// Entry ranks one player by total held area.
type Entry struct {
	OwnerID        string  `json:"owner_id"`
	Username       string  `json:"username"`
	TerritoryCount int     `json:"territory_count"`
	TotalAreaM2    float64 `json:"total_area_m2"`
}

type Service struct {
	db    db.Querier
	redis *redis.Client
}

func NewService(db db.Querier, redisClient *redis.Client) *Service {
	return &Service{db: db, redis: redisClient}
}

// Top returns the largest landholders. Results are cached briefly in redis;
// cache failures degrade to a direct query.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	key := cacheKey(limit)
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var entries []Entry
			if err := json.Unmarshal(cached, &entries); err == nil {
				return entries, nil
			}
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT t.owner_id, u.username, COUNT(*), SUM(t.area_m2)
		FROM territories t
		JOIN users u ON u.id = t.owner_id
		GROUP BY t.owner_id, u.username
		ORDER BY SUM(t.area_m2) DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.OwnerID, &e.Username, &e.TerritoryCount, &e.TotalAreaM2); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.redis != nil {
		payload, err := json.Marshal(entries)
		if err == nil {
			if err := s.redis.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
				log.Printf("leaderboard cache write error: %v", err)
			}
		}
	}
	return entries, nil
}

func cacheKey(limit int) string {
	return fmt.Sprintf("leaderboard:top:%d", limit)
}
