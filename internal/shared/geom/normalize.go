package geom

import (
	"errors"
	"math"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// MinTerritoryAreaM2 is the smallest loop that can claim land. Anything
// below it is treated as GPS noise.
const MinTerritoryAreaM2 = 200.0

var (
	ErrMalformedPath = errors.New("run path needs at least 4 distinct points")
	ErrTooSmall      = errors.New("run polygon below minimum territory area")
)

// RunPolygon is a normalized, non-self-intersecting polygon derived from a
// raw GPS trace, with its geodesic area in square meters.
type RunPolygon struct {
	Polygon orb.Polygon `json:"polygon"`
	AreaM2  float64     `json:"area_m2"`
}

// Normalize repairs a raw [lon,lat] trace into a simple polygon: it closes
// the ring, resolves self-intersections keeping the dominant loop, and
// rejects loops smaller than MinTerritoryAreaM2.
func Normalize(raw [][]float64) (RunPolygon, error) {
	ring := make(orb.Ring, 0, len(raw)+1)
	for _, c := range raw {
		if len(c) < 2 {
			return RunPolygon{}, ErrMalformedPath
		}
		ring = append(ring, orb.Point{c[0], c[1]})
	}
	if distinctPoints(ring) < 4 {
		return RunPolygon{}, ErrMalformedPath
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}

	poly := orb.Polygon{ring}
	if selfIntersects(ring) {
		repaired, err := dominantLoop(poly)
		if err != nil {
			return RunPolygon{}, ErrMalformedPath
		}
		poly = repaired
	}
	poly = ccw(poly)

	area := AreaM2(poly)
	if area < MinTerritoryAreaM2 {
		return RunPolygon{}, ErrTooSmall
	}
	return RunPolygon{Polygon: poly, AreaM2: area}, nil
}

func distinctPoints(ring orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// dominantLoop re-nodes a self-intersecting ring via a self-union and keeps
// the constituent simple polygon of maximum area. Crossing artifacts are
// assumed to be narrow slivers.
func dominantLoop(poly orb.Polygon) (orb.Polygon, error) {
	parts, err := polygol.Union(toGeom(poly))
	if err != nil || len(parts) == 0 {
		return nil, ErrMalformedPath
	}
	best := -1
	bestArea := 0.0
	for i, part := range parts {
		p := fromGeomPolygon(part)
		if len(p) == 0 {
			continue
		}
		a := math.Abs(ringArea(p[0]))
		if a > bestArea {
			best = i
			bestArea = a
		}
	}
	if best < 0 {
		return nil, ErrMalformedPath
	}
	picked := fromGeomPolygon(parts[best])
	// holes on a repaired loop are crossing slivers, not real geometry
	return orb.Polygon{picked[0]}, nil
}

// selfIntersects reports whether any two non-adjacent ring segments cross.
func selfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1 // closed ring, last point repeats first
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsCross(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// ccw makes the outer ring counter-clockwise so stored orientation is stable.
func ccw(poly orb.Polygon) orb.Polygon {
	if len(poly) == 0 {
		return poly
	}
	if ringArea(poly[0]) < 0 {
		reverse(poly[0])
	}
	return poly
}

// ringArea is the signed shoelace area in coordinate units; positive for
// counter-clockwise rings.
func ringArea(r orb.Ring) float64 {
	sum := 0.0
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

func reverse(r orb.Ring) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

// AreaM2 returns the geodesic area of a polygon in square meters. Using
// spherical area instead of naive planar math keeps results comparable
// across latitudes.
func AreaM2(poly orb.Polygon) float64 {
	return math.Abs(geo.Area(poly))
}
