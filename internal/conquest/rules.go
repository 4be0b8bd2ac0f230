package conquest

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/PriyaanshPandey/KadamClashBackend/internal/shared/geom"
)

// Attempt is the performance tuple submitted alongside a run path. Validated
// once at the HTTP boundary; the engine assumes it holds.
type Attempt struct {
	DurationSeconds float64
	Laps            int
	AvgSpeed        float64
}

// BestLapTime is the per-lap duration persisted on a captured territory.
func (a Attempt) BestLapTime() float64 {
	return a.DurationSeconds / float64(a.Laps)
}

// Rival is a persisted territory the run polygon intersects, as returned by
// the spatial pre-filter.
type Rival struct {
	ID          string
	OwnerID     string
	OwnerName   string
	Geometry    orb.Polygon
	AreaM2      float64
	BestLapTime float64
	MaxLaps     int
	AvgSpeed    float64
}

// Verdict is the outcome of one run against one rival.
type Verdict int

const (
	Lost Verdict = iota
	Won
	AutoWon
)

// Comparable-size band: outside it a contest is decided by footprint alone.
const (
	sizeBandLow  = 0.8
	sizeBandHigh = 1.2
)

// ErrInconsistentPrefilter flags a rival that does not actually intersect
// the run polygon. The spatial pre-filter guarantees intersection, so this
// is an internal invariant breach, never a loss.
var ErrInconsistentPrefilter = errors.New("pre-filtered rival does not intersect run polygon")

// EvaluateOne decides a single run-versus-rival contest. The reason string
// is human readable and safe to surface to players.
func EvaluateOne(run geom.RunPolygon, attempt Attempt, rival Rival) (Verdict, string, error) {
	rel, err := geom.Relate(run.Polygon, rival.Geometry)
	if err != nil {
		return Lost, "", err
	}

	switch rel {
	case geom.Disjoint:
		return Lost, "", fmt.Errorf("%w: territory %s", ErrInconsistentPrefilter, rival.ID)
	case geom.Inside:
		// a fully engulfed run never wins, whatever its score
		return Lost, "run fully enclosed by rival territory", nil
	}

	ratio := run.AreaM2 / rival.AreaM2
	sizeOK := ratio >= sizeBandLow && ratio <= sizeBandHigh

	if rel == geom.Contains && !sizeOK {
		return AutoWon, "rival dwarfed by the run footprint", nil
	}
	if !sizeOK {
		return Lost, "run footprint outside the contestable size band", nil
	}

	if Score(attempt.AvgSpeed, attempt.Laps) > Score(rival.AvgSpeed, rival.MaxLaps) {
		return Won, "higher battle score", nil
	}
	return Lost, "rival battle score holds", nil
}

// OutcomeTag aggregates a full evaluation: exactly one of the three applies.
type OutcomeTag int

const (
	Created OutcomeTag = iota
	Captured
	Defended
)

func (t OutcomeTag) String() string {
	switch t {
	case Captured:
		return "captured"
	case Defended:
		return "defended"
	}
	return "created"
}

// Outcome is the transient result of one run against the full rival set.
type Outcome struct {
	Tag       OutcomeTag
	Conquered []Rival
	Defender  *Rival
	Reason    string
}

// EvaluateAll runs the challenge against every intersecting rival, in
// pre-filter order. The challenge is all-or-nothing: the first loss defends
// the whole attempt, discarding any earlier wins, so a partially successful
// run never mutates anything.
func EvaluateAll(run geom.RunPolygon, attempt Attempt, rivals []Rival) (Outcome, error) {
	if len(rivals) == 0 {
		return Outcome{Tag: Created}, nil
	}

	conquered := make([]Rival, 0, len(rivals))
	for _, rival := range rivals {
		verdict, reason, err := EvaluateOne(run, attempt, rival)
		if err != nil {
			return Outcome{}, err
		}
		if verdict == Lost {
			defender := rival
			return Outcome{Tag: Defended, Defender: &defender, Reason: reason}, nil
		}
		conquered = append(conquered, rival)
	}
	return Outcome{Tag: Captured, Conquered: conquered}, nil
}
