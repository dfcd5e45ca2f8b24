package geom

import "math"

// PointInPolygon reports whether p lies inside the polygon using the even-odd
// ray casting rule. Points exactly on an edge may land on either side.
func PointInPolygon(p Point, poly []Point) bool {
	if len(poly) < 3 {
		return false
	}

	inside := false
	j := len(poly) - 1
	for i := range poly {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// DistanceToSegment returns the distance from p to the segment ab, measured
// perpendicular to the segment and clamped to its endpoints.
func DistanceToSegment(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Distance(a)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	proj := Point{X: a.X + t*dx, Y: a.Y + t*dy}
	return p.Distance(proj)
}

// DistanceToPolyline returns the smallest distance from p to any segment of
// the open polyline. A single point is measured directly; an empty polyline
// is infinitely far away.
func DistanceToPolyline(p Point, line []Point) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Distance(line[0])
	}

	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		best = math.Min(best, DistanceToSegment(p, line[i-1], line[i]))
	}
	return best
}
