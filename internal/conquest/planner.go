package conquest

import (
	"github.com/paulmach/orb"

	"github.com/PriyaanshPandey/KadamClashBackend/internal/shared/geom"
)

// TerritoryRecord is the new territory a plan asks the persistence layer to
// create.
type TerritoryRecord struct {
	OwnerID     string
	Geometry    orb.Polygon
	AreaM2      float64
	BestLapTime float64
	MaxLaps     int
	AvgSpeed    float64
}

// MutationPlan is the concrete set of persisted-state changes one evaluation
// produces. The planner performs no I/O; the persistence layer commits the
// plan atomically or not at all.
type MutationPlan struct {
	Create *TerritoryRecord
	Delete []string
	// SkippedUnions lists conquered territories whose geometry could not be
	// merged. Their land is dropped from the new holding; callers must log
	// the loss.
	SkippedUnions []string
}

// Empty reports whether the plan changes nothing (a defended attempt).
func (p MutationPlan) Empty() bool {
	return p.Create == nil && len(p.Delete) == 0
}

// PlanMutation translates an aggregate outcome into a mutation plan.
//
// A capture deletes every conquered territory and replaces them with a
// single holding: the union of the run polygon and the conquered
// geometries. A rival geometry that will not union cleanly is excluded from
// the merge rather than aborting the capture; it is still deleted.
func PlanMutation(run geom.RunPolygon, attempt Attempt, outcome Outcome, ownerID string) MutationPlan {
	if outcome.Tag == Defended {
		return MutationPlan{}
	}

	record := &TerritoryRecord{
		OwnerID:     ownerID,
		Geometry:    run.Polygon,
		AreaM2:      run.AreaM2,
		BestLapTime: attempt.BestLapTime(),
		MaxLaps:     attempt.Laps,
		AvgSpeed:    attempt.AvgSpeed,
	}
	if outcome.Tag == Created {
		return MutationPlan{Create: record}
	}

	merged := run.Polygon
	deletes := make([]string, 0, len(outcome.Conquered))
	var skipped []string
	for _, rival := range outcome.Conquered {
		deletes = append(deletes, rival.ID)
		union, err := geom.Union(merged, rival.Geometry)
		if err != nil {
			skipped = append(skipped, rival.ID)
			continue
		}
		merged = union
	}

	record.Geometry = merged
	record.AreaM2 = geom.AreaM2(merged)
	return MutationPlan{Create: record, Delete: deletes, SkippedUnions: skipped}
}
