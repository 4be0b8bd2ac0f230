package territory

import (
	"time"

	"github.com/paulmach/orb"
)

type Territory struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	OwnerName   string      `json:"owner_name,omitempty"`
	Geometry    orb.Polygon `json:"geometry"`
	AreaM2      float64     `json:"area_m2"`
	BestLapTime float64     `json:"best_lap_time"`
	MaxLaps     int         `json:"max_laps"`
	AvgSpeed    float64     `json:"avg_speed"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AttemptRecord is one row of the append-only run audit log. Only
// non-defended runs are recorded.
type AttemptRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	TerritoryID     string    `json:"territory_id"`
	DurationSeconds float64   `json:"duration_seconds"`
	Laps            int       `json:"laps"`
	AvgSpeed        float64   `json:"avg_speed"`
	Score           float64   `json:"score"`
	Outcome         string    `json:"outcome"`
	CreatedAt       time.Time `json:"created_at"`
}
