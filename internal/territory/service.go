package territory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/PriyaanshPandey/KadamClashBackend/internal/conquest"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/db"
)

// ErrTerritoryChanged means a rival territory was captured or re-scored
// between the read and the write. The whole evaluation must be retried from
// the read step.
var ErrTerritoryChanged = errors.New("territory changed since evaluation")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// IntersectingRivals is the spatial pre-filter: territories whose stored
// geometry intersects the run polygon, largest first, with owner names
// joined in for battle reporting. Boundary-only contact is excluded so
// every returned rival shares interior area with the run, matching what
// the relation classifier counts as an intersection.
func (s *Service) IntersectingRivals(ctx context.Context, run orb.Polygon) ([]conquest.Rival, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.owner_id, u.username, ST_AsText(t.geometry::geometry),
		       t.area_m2, t.best_lap_time, t.max_laps, t.avg_speed
		FROM territories t
		JOIN users u ON u.id = t.owner_id
		WHERE ST_Intersects(t.geometry, ST_GeogFromText($1))
		  AND NOT ST_Touches(t.geometry::geometry, ST_GeogFromText($1)::geometry)
		ORDER BY t.area_m2 DESC
	`, wkt.MarshalString(run))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rivals []conquest.Rival
	for rows.Next() {
		var r conquest.Rival
		var geomText string
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.OwnerName, &geomText, &r.AreaM2, &r.BestLapTime, &r.MaxLaps, &r.AvgSpeed); err != nil {
			return nil, err
		}
		poly, err := wkt.UnmarshalPolygon(geomText)
		if err != nil {
			return nil, err
		}
		r.Geometry = poly
		rivals = append(rivals, r)
	}
	return rivals, rows.Err()
}

// ExecutePlan commits a mutation plan and its attempt audit row in one
// transaction. Deletes are keyed on the rival's owner read during
// evaluation; a miss means somebody else already mutated that territory and
// the whole plan rolls back with ErrTerritoryChanged.
func (s *Service) ExecutePlan(ctx context.Context, plan conquest.MutationPlan, conquered []conquest.Rival, attempt conquest.Attempt, userID, outcome string) (Territory, error) {
	if plan.Create == nil {
		return Territory{}, errors.New("plan has nothing to create")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Territory{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, rival := range conquered {
		tag, err := tx.Exec(ctx, `
			DELETE FROM territories WHERE id=$1 AND owner_id=$2
		`, rival.ID, rival.OwnerID)
		if err != nil {
			return Territory{}, err
		}
		if tag.RowsAffected() == 0 {
			return Territory{}, ErrTerritoryChanged
		}
	}

	terr := Territory{
		ID:          uuid.NewString(),
		OwnerID:     plan.Create.OwnerID,
		Geometry:    plan.Create.Geometry,
		AreaM2:      plan.Create.AreaM2,
		BestLapTime: plan.Create.BestLapTime,
		MaxLaps:     plan.Create.MaxLaps,
		AvgSpeed:    plan.Create.AvgSpeed,
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO territories (id, owner_id, geometry, area_m2, best_lap_time, max_laps, avg_speed)
		VALUES ($1,$2, ST_GeogFromText($3), $4,$5,$6,$7)
		RETURNING created_at
	`, terr.ID, terr.OwnerID, wkt.MarshalString(terr.Geometry), terr.AreaM2, terr.BestLapTime, terr.MaxLaps, terr.AvgSpeed)
	if err := row.Scan(&terr.CreatedAt); err != nil {
		return Territory{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO attempts (id, user_id, territory_id, duration_seconds, laps, avg_speed, score, outcome)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, uuid.NewString(), userID, terr.ID, attempt.DurationSeconds, attempt.Laps, attempt.AvgSpeed,
		conquest.Score(attempt.AvgSpeed, attempt.Laps), outcome)
	if err != nil {
		return Territory{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Territory{}, err
	}
	return terr, nil
}

func (s *Service) Get(ctx context.Context, id string) (Territory, error) {
	row := s.db.QueryRow(ctx, `
		SELECT t.id, t.owner_id, u.username, ST_AsText(t.geometry::geometry),
		       t.area_m2, t.best_lap_time, t.max_laps, t.avg_speed, t.created_at
		FROM territories t
		JOIN users u ON u.id = t.owner_id
		WHERE t.id=$1
	`, id)
	return scanTerritory(row)
}

// InViewport lists territories intersecting a lon/lat bounding box, for map
// rendering clients.
func (s *Service) InViewport(ctx context.Context, minLon, minLat, maxLon, maxLat float64) ([]Territory, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.owner_id, u.username, ST_AsText(t.geometry::geometry),
		       t.area_m2, t.best_lap_time, t.max_laps, t.avg_speed, t.created_at
		FROM territories t
		JOIN users u ON u.id = t.owner_id
		WHERE ST_Intersects(t.geometry, ST_MakeEnvelope($1,$2,$3,$4, 4326)::geography)
		ORDER BY t.area_m2 DESC
	`, minLon, minLat, maxLon, maxLat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var territories []Territory
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, err
		}
		territories = append(territories, t)
	}
	return territories, rows.Err()
}

// Attempts returns the audit history for a territory, newest first.
func (s *Service) Attempts(ctx context.Context, territoryID string) ([]AttemptRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, territory_id, duration_seconds, laps, avg_speed, score, outcome, created_at
		FROM attempts
		WHERE territory_id=$1
		ORDER BY created_at DESC
	`, territoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []AttemptRecord
	for rows.Next() {
		var a AttemptRecord
		if err := rows.Scan(&a.ID, &a.UserID, &a.TerritoryID, &a.DurationSeconds, &a.Laps, &a.AvgSpeed, &a.Score, &a.Outcome, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTerritory(row rowScanner) (Territory, error) {
	var t Territory
	var geomText string
	if err := row.Scan(&t.ID, &t.OwnerID, &t.OwnerName, &geomText, &t.AreaM2, &t.BestLapTime, &t.MaxLaps, &t.AvgSpeed, &t.CreatedAt); err != nil {
		return Territory{}, err
	}
	poly, err := wkt.UnmarshalPolygon(geomText)
	if err != nil {
		return Territory{}, err
	}
	t.Geometry = poly
	return t, nil
}
