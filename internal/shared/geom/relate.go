package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Relation classifies how polygon a sits relative to polygon b.
type Relation int

const (
	Disjoint Relation = iota
	Overlap
	Contains // a fully encloses b
	Inside   // a is fully enclosed by b
)

func (r Relation) String() string {
	switch r {
	case Overlap:
		return "overlap"
	case Contains:
		return "contains"
	case Inside:
		return "inside"
	}
	return "disjoint"
}

// relTol absorbs floating point drift when comparing intersection areas
// against the operand areas.
const relTol = 1e-9

var ErrEmptyPolygon = errors.New("empty polygon")

// Relate classifies the spatial relation between two polygons. Equal
// polygons classify Contains. Containment is tested before the exact
// intersection because it is cheaper and mutually exclusive with partial
// overlap.
func Relate(a, b orb.Polygon) (Relation, error) {
	if len(a) == 0 || len(b) == 0 {
		return Disjoint, ErrEmptyPolygon
	}
	if encloses(a, b) {
		return Contains, nil
	}
	if encloses(b, a) {
		return Inside, nil
	}

	inter, err := polygol.Intersection(toGeom(a), toGeom(b))
	if err != nil {
		return Disjoint, fmt.Errorf("polygon intersection: %w", err)
	}
	interArea := geomArea(inter)
	if interArea == 0 {
		// boundary-only contact carries no interior area and classifies
		// Disjoint; spatial pre-filters must exclude touch-only candidates
		return Disjoint, nil
	}

	// Boundary-sharing pairs slip past the vertex test; fall back to
	// comparing the intersection against each operand. Contains is checked
	// first so equal polygons resolve to Contains.
	aArea := math.Abs(ringArea(a[0]))
	bArea := math.Abs(ringArea(b[0]))
	if interArea >= bArea*(1-relTol) {
		return Contains, nil
	}
	if interArea >= aArea*(1-relTol) {
		return Inside, nil
	}
	return Overlap, nil
}

// encloses reports whether every vertex of inner lies within outer and no
// boundary segments properly cross. Bounding boxes reject cheap cases first.
func encloses(outer, inner orb.Polygon) bool {
	ob, ib := outer.Bound(), inner.Bound()
	if ib.Min[0] < ob.Min[0] || ib.Min[1] < ob.Min[1] ||
		ib.Max[0] > ob.Max[0] || ib.Max[1] > ob.Max[1] {
		return false
	}
	for _, p := range inner[0] {
		if !planar.PolygonContains(outer, p) {
			return false
		}
	}
	return !ringsCross(outer[0], inner[0])
}

func ringsCross(a, b orb.Ring) bool {
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if segmentsCross(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

// Union merges two polygons into a single contiguous simple polygon. It
// fails when the operands do not merge cleanly into one part, or when the
// merge encloses land neither operand covered (an interior ring, e.g. a
// horseshoe capped across its opening). Callers treat both as topologically
// incompatible geometry.
func Union(a, b orb.Polygon) (orb.Polygon, error) {
	merged, err := polygol.Union(toGeom(a), toGeom(b))
	if err != nil {
		return nil, fmt.Errorf("polygon union: %w", err)
	}
	if len(merged) != 1 {
		return nil, fmt.Errorf("polygon union produced %d parts, want 1", len(merged))
	}
	poly := fromGeomPolygon(merged[0])
	if len(poly) != 1 {
		return nil, fmt.Errorf("polygon union produced %d interior rings, want none", len(poly)-1)
	}
	return ccw(poly), nil
}

// toGeom converts an orb polygon to polygol's multipolygon shape.
func toGeom(poly orb.Polygon) polygol.Geom {
	rings := make([][][]float64, len(poly))
	for i, ring := range poly {
		pts := make([][]float64, len(ring))
		for j, p := range ring {
			pts[j] = []float64{p[0], p[1]}
		}
		rings[i] = pts
	}
	return polygol.Geom{rings}
}

func fromGeomPolygon(rings [][][]float64) orb.Polygon {
	poly := make(orb.Polygon, len(rings))
	for i, ring := range rings {
		r := make(orb.Ring, len(ring))
		for j, p := range ring {
			r[j] = orb.Point{p[0], p[1]}
		}
		if !r.Closed() && len(r) > 0 {
			r = append(r, r[0])
		}
		poly[i] = r
	}
	return poly
}

// geomArea sums the planar area of a polygol result, holes subtracted.
func geomArea(g polygol.Geom) float64 {
	total := 0.0
	for _, rings := range g {
		for i, ring := range rings {
			a := math.Abs(ringArea(fromRing(ring)))
			if i == 0 {
				total += a
			} else {
				total -= a
			}
		}
	}
	return total
}

func fromRing(ring [][]float64) orb.Ring {
	r := make(orb.Ring, len(ring))
	for i, p := range ring {
		r[i] = orb.Point{p[0], p[1]}
	}
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}
