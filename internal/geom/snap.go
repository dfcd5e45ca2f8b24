package geom

import "math"

// SnapToGrid rounds each coordinate to the nearest multiple of gridSize.
// A non-positive grid size disables snapping.
func SnapToGrid(p Point, gridSize float64) Point {
	if gridSize <= 0 {
		return p
	}
	return Point{
		X: math.Round(p.X/gridSize) * gridSize,
		Y: math.Round(p.Y/gridSize) * gridSize,
	}
}

// SnapToAngle rounds angle (degrees) to the nearest multiple of increment.
// A non-positive increment disables snapping.
func SnapToAngle(angle, increment float64) float64 {
	if increment <= 0 {
		return angle
	}
	return math.Round(angle/increment) * increment
}

// ConstrainSegment returns the endpoint of the segment from -> to after its
// direction is snapped to incrementDegrees and, when gridSize is positive,
// its length is snapped to a multiple of gridSize.
func ConstrainSegment(from, to Point, incrementDegrees, gridSize float64) Point {
	d := to.Sub(from)
	length := math.Hypot(d.X, d.Y)
	if length == 0 {
		return from
	}

	angle := math.Atan2(d.Y, d.X) * 180 / math.Pi
	angle = SnapToAngle(angle, incrementDegrees)
	if gridSize > 0 {
		length = math.Round(length/gridSize) * gridSize
	}

	rad := angle * math.Pi / 180
	return Point{
		X: from.X + length*math.Cos(rad),
		Y: from.Y + length*math.Sin(rad),
	}
}
