// Package comic holds the comic page data model: pages, ordered layers and
// the three element kinds that live on them.
package comic

import (
	"time"

	"github.com/inamate/panels/backend-go/internal/geom"
)

// Comic is the aggregate persisted as one unit.
type Comic struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Pages    []*Page   `json:"pages"`
}

// Page is one editing surface. Layers are ordered bottom (index 0) to top.
type Page struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Layers       []*Layer       `json:"layers"`
	Panels       []*Panel       `json:"panels"`
	Borders      []*Border      `json:"borders"`
	TextElements []*TextElement `json:"textElements"`

	index map[string]Element // element id -> element
}

// Layer groups elements. ElementIDs mirrors the LayerID fields of the page's
// elements in insertion order.
type Layer struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Visible    bool     `json:"visible"`
	Locked     bool     `json:"locked"`
	ElementIDs []string `json:"elementIds"`
}

// Kind identifies an element variant.
type Kind string

const (
	KindPanel  Kind = "panel"
	KindBorder Kind = "border"
	KindText   Kind = "text"
)

// Element is implemented by *Panel, *Border and *TextElement only.
type Element interface {
	ElementID() string
	Layer() string
	Kind() Kind
	element()
}

// Panel is an image clipped to a polygon. ClipPath and the bounding box are
// derived from Points.
type Panel struct {
	ID        string       `json:"id"`
	ImagePath string       `json:"imagePath"`
	ClipPath  string       `json:"clipPath"`
	Points    []geom.Point `json:"points"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Width     float64      `json:"width"`
	Height    float64      `json:"height"`
	Rotation  float64      `json:"rotation"`
	LayerID   string       `json:"layerId"`
}

// Border is a freeform stroke.
type Border struct {
	ID          string       `json:"id"`
	Points      []geom.Point `json:"points"`
	StrokeWidth float64      `json:"strokeWidth"`
	StrokeColor string       `json:"strokeColor"`
	LayerID     string       `json:"layerId"`
}

// TextElement is a positioned text box.
type TextElement struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	TextAlign  string  `json:"textAlign"`
	Color      string  `json:"color"`
	LayerID    string  `json:"layerId"`
}

func (p *Panel) ElementID() string { return p.ID }
func (p *Panel) Layer() string     { return p.LayerID }
func (p *Panel) Kind() Kind        { return KindPanel }
func (p *Panel) element()          {}

func (b *Border) ElementID() string { return b.ID }
func (b *Border) Layer() string     { return b.LayerID }
func (b *Border) Kind() Kind        { return KindBorder }
func (b *Border) element()          {}

func (t *TextElement) ElementID() string { return t.ID }
func (t *TextElement) Layer() string     { return t.LayerID }
func (t *TextElement) Kind() Kind        { return KindText }
func (t *TextElement) element()          {}

// Bounds returns the panel's cached bounding box.
func (p *Panel) Bounds() geom.Rect {
	return geom.Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// Bounds returns the text box rectangle.
func (t *TextElement) Bounds() geom.Rect {
	return geom.Rect{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height}
}

// ElementBounds returns the bounding box of any element.
func ElementBounds(el Element) geom.Rect {
	switch e := el.(type) {
	case *Panel:
		return e.Bounds()
	case *Border:
		return geom.Bounds(e.Points)
	case *TextElement:
		return e.Bounds()
	}
	return geom.Rect{}
}

// ElementPoints returns a copy of the element's control points. Text
// elements have none.
func ElementPoints(el Element) []geom.Point {
	switch e := el.(type) {
	case *Panel:
		return append([]geom.Point(nil), e.Points...)
	case *Border:
		return append([]geom.Point(nil), e.Points...)
	case *TextElement:
		return nil
	}
	return nil
}
