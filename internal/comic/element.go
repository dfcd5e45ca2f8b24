package comic

import (
	"slices"

	"github.com/inamate/panels/backend-go/internal/geom"
	"github.com/inamate/panels/backend-go/internal/typeid"
)

// Fixed size of a newly placed text box.
const (
	TextWidth  = 200
	TextHeight = 100
)

// TextDefaults supplies the styling for new text elements.
type TextDefaults struct {
	Text       string
	FontSize   float64
	FontFamily string
	TextAlign  string
	Color      string
}

// DefaultText is used when the caller has no preferences of its own.
var DefaultText = TextDefaults{
	Text:       "Enter text",
	FontSize:   16,
	FontFamily: "sans-serif",
	TextAlign:  "center",
	Color:      "#000000",
}

// Element returns the element with the given id.
func (p *Page) Element(id string) (Element, error) {
	p.ensureIndex()
	el, ok := p.index[id]
	if !ok {
		return nil, ErrElementNotFound
	}
	return el, nil
}

// AddPanel creates a panel from a polygon. The image path may be empty.
func (p *Page) AddPanel(layerID string, points []geom.Point, imagePath string) (*Panel, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	l, err := p.Layer(layerID)
	if err != nil {
		return nil, err
	}

	panel := &Panel{
		ID:        typeid.NewPanelID(),
		ImagePath: imagePath,
		Points:    slices.Clone(points),
		LayerID:   layerID,
	}
	normalizePanel(panel)

	p.Panels = append(p.Panels, panel)
	p.attach(l, panel)
	return panel, nil
}

// AddBorder creates a freeform stroke.
func (p *Page) AddBorder(layerID string, points []geom.Point, strokeWidth float64, strokeColor string) (*Border, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	l, err := p.Layer(layerID)
	if err != nil {
		return nil, err
	}

	border := &Border{
		ID:          typeid.NewBorderID(),
		Points:      slices.Clone(points),
		StrokeWidth: strokeWidth,
		StrokeColor: strokeColor,
		LayerID:     layerID,
	}

	p.Borders = append(p.Borders, border)
	p.attach(l, border)
	return border, nil
}

// AddTextElement places a fixed-size text box with its top-left corner at at.
func (p *Page) AddTextElement(layerID string, at geom.Point, defaults TextDefaults) (*TextElement, error) {
	l, err := p.Layer(layerID)
	if err != nil {
		return nil, err
	}

	text := &TextElement{
		ID:         typeid.NewTextID(),
		Text:       defaults.Text,
		X:          at.X,
		Y:          at.Y,
		Width:      TextWidth,
		Height:     TextHeight,
		FontSize:   defaults.FontSize,
		FontFamily: defaults.FontFamily,
		TextAlign:  defaults.TextAlign,
		Color:      defaults.Color,
		LayerID:    layerID,
	}

	p.TextElements = append(p.TextElements, text)
	p.attach(l, text)
	return text, nil
}

// UpdateElementPoints replaces a panel's or border's points. Panels have
// their clip path and bounding box recomputed.
func (p *Page) UpdateElementPoints(id string, points []geom.Point) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	el, err := p.Element(id)
	if err != nil {
		return err
	}

	switch e := el.(type) {
	case *Panel:
		e.Points = slices.Clone(points)
		normalizePanel(e)
	case *Border:
		e.Points = slices.Clone(points)
	case *TextElement:
		return ErrNoPoints
	}
	return nil
}

// TranslateElements moves every listed element by (dx, dy). Unknown ids are
// ignored.
func (p *Page) TranslateElements(ids []string, dx, dy float64) {
	p.ensureIndex()
	for _, id := range ids {
		switch e := p.index[id].(type) {
		case *Panel:
			e.Points = geom.Translate(e.Points, dx, dy)
			normalizePanel(e)
		case *Border:
			e.Points = geom.Translate(e.Points, dx, dy)
		case *TextElement:
			e.X += dx
			e.Y += dy
		}
	}
}

// RemoveElements deletes the listed elements and prunes them from their
// layers. Unknown ids are ignored. Each element collection and each affected
// layer list is compacted at most once, so the cost is O(k + n) for k ids and
// n elements of the kinds removed.
func (p *Page) RemoveElements(ids []string) {
	p.ensureIndex()

	gone := make(map[string]struct{}, len(ids))
	layers := make(map[string]struct{})
	var panels, borders, texts bool
	for _, id := range ids {
		el, ok := p.index[id]
		if !ok {
			continue
		}
		gone[id] = struct{}{}
		layers[el.Layer()] = struct{}{}
		switch el.(type) {
		case *Panel:
			panels = true
		case *Border:
			borders = true
		case *TextElement:
			texts = true
		}
		delete(p.index, id)
	}
	if len(gone) == 0 {
		return
	}

	removed := func(id string) bool {
		_, ok := gone[id]
		return ok
	}
	if panels {
		p.Panels = slices.DeleteFunc(p.Panels, func(x *Panel) bool { return removed(x.ID) })
	}
	if borders {
		p.Borders = slices.DeleteFunc(p.Borders, func(x *Border) bool { return removed(x.ID) })
	}
	if texts {
		p.TextElements = slices.DeleteFunc(p.TextElements, func(x *TextElement) bool { return removed(x.ID) })
	}
	for id := range layers {
		if l, err := p.Layer(id); err == nil {
			l.ElementIDs = slices.DeleteFunc(l.ElementIDs, removed)
		}
	}
}

// SetPanelImage changes the image shown inside a panel.
func (p *Page) SetPanelImage(id, imagePath string) error {
	el, err := p.Element(id)
	if err != nil {
		return err
	}
	panel, ok := el.(*Panel)
	if !ok {
		return ErrElementNotFound
	}
	panel.ImagePath = imagePath
	return nil
}

// ResizeText sets a text box's size, keeping its top-left corner.
func (p *Page) ResizeText(id string, width, height float64) error {
	el, err := p.Element(id)
	if err != nil {
		return err
	}
	text, ok := el.(*TextElement)
	if !ok {
		return ErrElementNotFound
	}
	text.Width = width
	text.Height = height
	return nil
}

// SetText replaces a text element's content.
func (p *Page) SetText(id, content string) error {
	el, err := p.Element(id)
	if err != nil {
		return err
	}
	text, ok := el.(*TextElement)
	if !ok {
		return ErrElementNotFound
	}
	text.Text = content
	return nil
}

// normalizePanel restores the panel's derived fields from its points.
func normalizePanel(panel *Panel) {
	panel.ClipPath = geom.PointsToPath(panel.Points)
	b := geom.Bounds(panel.Points)
	panel.X = b.X
	panel.Y = b.Y
	panel.Width = b.Width
	panel.Height = b.Height
}

func (p *Page) attach(l *Layer, el Element) {
	p.ensureIndex()
	p.index[el.ElementID()] = el
	l.ElementIDs = append(l.ElementIDs, el.ElementID())
}

func (p *Page) ensureIndex() {
	if p.index != nil {
		return
	}
	p.index = make(map[string]Element, len(p.Panels)+len(p.Borders)+len(p.TextElements))
	for _, e := range p.Panels {
		p.index[e.ID] = e
	}
	for _, e := range p.Borders {
		p.index[e.ID] = e
	}
	for _, e := range p.TextElements {
		p.index[e.ID] = e
	}
}
