package engine

import (
	"math"

	"github.com/inamate/panels/backend-go/internal/geom"
)

// Zoom limits for the view.
const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// View is the pan/zoom transform from page space to the display surface:
// surface = (page + pan) * zoom. Pan is kept in page units.
type View struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// NewView returns the identity view.
func NewView() View {
	return View{Zoom: 1}
}

// Matrix returns the page-to-surface transform.
func (v View) Matrix() geom.Matrix2D {
	return geom.ScaleMatrix(v.Zoom, v.Zoom).Multiply(geom.TranslateMatrix(v.PanX, v.PanY))
}

// ToModel maps a surface point into page space.
func (v View) ToModel(p geom.Point) geom.Point {
	return v.Matrix().Invert().TransformPoint(p)
}

// ToSurface maps a page point onto the display surface.
func (v View) ToSurface(p geom.Point) geom.Point {
	return v.Matrix().TransformPoint(p)
}

// PanBy shifts the view by a surface-space delta.
func (v View) PanBy(dx, dy float64) View {
	v.PanX += dx / v.Zoom
	v.PanY += dy / v.Zoom
	return v
}

// ZoomAt multiplies the zoom by factor, clamped to [MinZoom, MaxZoom], keeping
// the page point under anchor (a surface point) fixed.
func (v View) ZoomAt(factor float64, anchor geom.Point) View {
	model := v.ToModel(anchor)
	v.Zoom = ClampZoom(v.Zoom * factor)
	v.PanX = anchor.X/v.Zoom - model.X
	v.PanY = anchor.Y/v.Zoom - model.Y
	return v
}

// WheelFactor converts a wheel delta into a multiplicative zoom step. Equal
// and opposite deltas produce reciprocal factors.
func WheelFactor(deltaY, sensitivity float64) float64 {
	return math.Exp(-deltaY * sensitivity)
}

func ClampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
