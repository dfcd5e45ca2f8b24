package engine

import (
	"math"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/geom"
)

// DefaultHitTolerance is how close (in page units) a point must be to a
// border stroke or a control point to hit it.
const DefaultHitTolerance = 10

// HitOptions tunes FindElementAt.
type HitOptions struct {
	Tolerance  float64
	SkipLocked bool
}

// FindElementAt returns the topmost element under p. Layers are tested top to
// bottom and, within a layer, the most recently added element first, which
// is the reverse of the order Render paints them. Invisible layers are never
// hit.
func FindElementAt(page *comic.Page, p geom.Point, opts HitOptions) (comic.Element, bool) {
	if page == nil {
		return nil, false
	}
	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultHitTolerance
	}

	for i := len(page.Layers) - 1; i >= 0; i-- {
		layer := page.Layers[i]
		if !layer.Visible || (opts.SkipLocked && layer.Locked) {
			continue
		}

		elements := page.ElementsInLayer(layer)
		for j := len(elements) - 1; j >= 0; j-- {
			if hitElement(elements[j], p, tol) {
				return elements[j], true
			}
		}
	}
	return nil, false
}

func hitElement(el comic.Element, p geom.Point, tol float64) bool {
	switch e := el.(type) {
	case *comic.Panel:
		return geom.PointInPolygon(p, e.Points)
	case *comic.Border:
		return geom.DistanceToPolyline(p, e.Points) <= math.Max(tol, e.StrokeWidth/2)
	case *comic.TextElement:
		return e.Bounds().Contains(p)
	}
	return false
}

// ResizeCorner is the Handle.Index of a text element's resize corner.
const ResizeCorner = -1

// Handle addresses one control point of an element.
type Handle struct {
	ElementID string
	Index     int
}

// Handles lists the control points drawn for an element.
func Handles(el comic.Element) []geom.Point {
	switch e := el.(type) {
	case *comic.Panel:
		return e.Points
	case *comic.Border:
		return e.Points
	case *comic.TextElement:
		return []geom.Point{{X: e.X + e.Width, Y: e.Y + e.Height}}
	}
	return nil
}

// FindHandleAt returns the control point of one of ids within tolerance of p.
// Later ids win, as do later points of the same element.
func FindHandleAt(page *comic.Page, ids []string, p geom.Point, tolerance float64) (Handle, bool) {
	if tolerance <= 0 {
		tolerance = DefaultHitTolerance
	}

	for i := len(ids) - 1; i >= 0; i-- {
		el, err := page.Element(ids[i])
		if err != nil {
			continue
		}
		if l, err := page.Layer(el.Layer()); err != nil || !l.Visible {
			continue
		}

		points := Handles(el)
		for j := len(points) - 1; j >= 0; j-- {
			if points[j].Distance(p) > tolerance {
				continue
			}
			if _, ok := el.(*comic.TextElement); ok {
				return Handle{ElementID: el.ElementID(), Index: ResizeCorner}, true
			}
			return Handle{ElementID: el.ElementID(), Index: j}, true
		}
	}
	return Handle{}, false
}

// SelectionBounds returns the box around every listed element.
func SelectionBounds(page *comic.Page, ids []string) geom.Rect {
	var corners []geom.Point
	for _, id := range ids {
		el, err := page.Element(id)
		if err != nil {
			continue
		}
		corners = append(corners, comic.ElementBounds(el).Corners()...)
	}
	return geom.Bounds(corners)
}
