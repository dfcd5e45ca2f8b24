package editor

import (
	"math"
	"slices"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/engine"
	"github.com/inamate/panels/backend-go/internal/geom"
)

// PointerEvent is a pointer sample in surface-local coordinates.
type PointerEvent struct {
	Point     geom.Point `json:"point"`
	Additive  bool       `json:"additive,omitempty"`  // shift
	Constrain bool       `json:"constrain,omitempty"` // alt / ctrl
}

// WheelEvent is a wheel step at a surface-local point.
type WheelEvent struct {
	Point  geom.Point `json:"point"`
	DeltaY float64    `json:"deltaY"`
}

// Key is a keyboard command.
type Key string

const (
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "Backspace"
	KeyEscape    Key = "Escape"
)

type gestureKind int

const (
	gestureNone gestureKind = iota
	gesturePan
	gestureDraw
	gestureDragBody
	gestureDragHandle
)

// gesture is the transient state between pointer-down and pointer-up.
type gesture struct {
	kind   gestureKind
	last   geom.Point // surface space for pan, page space for drags
	points []geom.Point
	handle engine.Handle
}

func (c *Controller) cancelGesture() {
	if c.gesture.kind == gestureNone {
		return
	}
	c.gesture = gesture{}
	c.changed()
}

// PointerDown starts a gesture for the current mode. Text and image modes
// commit (or request) immediately.
func (c *Controller) PointerDown(ev PointerEvent) error {
	if c.page == nil {
		return comic.ErrPageNotFound
	}
	c.gesture = gesture{}
	at := c.view.ToModel(ev.Point)

	switch c.mode {
	case ModePan:
		c.gesture = gesture{kind: gesturePan, last: ev.Point}

	case ModeDrawPanel, ModeDrawBorder:
		if _, err := c.writableLayer(); err != nil {
			return err
		}
		c.gesture = gesture{kind: gestureDraw, points: []geom.Point{at}}
		c.changed()

	case ModeSelect:
		c.pointerDownSelect(at, ev.Additive)

	case ModeAddImage:
		return c.requestImage(at)

	case ModeText:
		layer, err := c.writableLayer()
		if err != nil {
			return err
		}
		text, err := c.page.AddTextElement(layer, at, c.opts.Text)
		if err != nil {
			return err
		}
		c.selection = []string{text.ID}
		c.changed()
		c.logger.Debug("text added", "id", text.ID, "layer", layer)
	}
	return nil
}

func (c *Controller) pointerDownSelect(at geom.Point, additive bool) {
	if h, ok := engine.FindHandleAt(c.page, c.selection, at, c.opts.HitTolerance); ok && c.selectable(h.ElementID) {
		c.gesture = gesture{kind: gestureDragHandle, last: at, handle: h}
		return
	}

	el, ok := engine.FindElementAt(c.page, at, engine.HitOptions{Tolerance: c.opts.HitTolerance, SkipLocked: true})
	if !ok {
		if !additive {
			c.ClearSelection()
		}
		return
	}

	id := el.ElementID()
	selected := slices.Contains(c.selection, id)
	switch {
	case additive && selected:
		c.selection = slices.DeleteFunc(c.selection, func(s string) bool { return s == id })
		c.changed()
		return
	case additive:
		c.selection = append(c.selection, id)
		c.changed()
	case !selected:
		c.selection = []string{id}
		c.changed()
	}
	c.gesture = gesture{kind: gestureDragBody, last: at}
}

// PointerMove advances the current gesture. Drags are applied to the model
// on every move.
func (c *Controller) PointerMove(ev PointerEvent) {
	switch c.gesture.kind {
	case gesturePan:
		d := ev.Point.Sub(c.gesture.last)
		c.gesture.last = ev.Point
		if d.X == 0 && d.Y == 0 {
			return
		}
		c.view = c.view.PanBy(d.X, d.Y)
		c.changed()

	case gestureDraw:
		if c.appendDrawPoint(ev) {
			c.changed()
		}

	case gestureDragBody:
		at := c.view.ToModel(ev.Point)
		d := at.Sub(c.gesture.last)
		c.gesture.last = at
		if d.X == 0 && d.Y == 0 {
			return
		}
		c.page.TranslateElements(c.movable(), d.X, d.Y)
		c.changed()

	case gestureDragHandle:
		at := c.view.ToModel(ev.Point)
		c.gesture.last = at
		if err := c.moveHandle(c.gesture.handle, at); err != nil {
			c.logger.Warn("handle drag failed", "id", c.gesture.handle.ElementID, "error", err)
			c.gesture = gesture{}
			return
		}
		c.changed()
	}
}

// PointerUp ends the current gesture. A drawing with at least two distinct
// points is committed to the active layer; anything shorter is dropped.
func (c *Controller) PointerUp(ev PointerEvent) error {
	g := c.gesture
	if g.kind != gestureDraw {
		c.gesture = gesture{}
		return nil
	}

	c.appendDrawPoint(ev)
	points := c.gesture.points
	c.gesture = gesture{}
	c.changed()

	if distinctPoints(points) < 2 {
		return nil
	}
	layer, err := c.writableLayer()
	if err != nil {
		return err
	}

	var id string
	if c.mode == ModeDrawPanel {
		panel, err := c.page.AddPanel(layer, points, "")
		if err != nil {
			return err
		}
		id = panel.ID
	} else {
		border, err := c.page.AddBorder(layer, points, c.opts.BorderWidth, c.opts.BorderColor)
		if err != nil {
			return err
		}
		id = border.ID
	}
	c.logger.Debug("shape committed", "id", id, "mode", c.mode, "points", len(points))
	return nil
}

// appendDrawPoint adds the event's page point to the drawing unless it
// repeats the previous one.
func (c *Controller) appendDrawPoint(ev PointerEvent) bool {
	at := c.view.ToModel(ev.Point)
	prev := c.gesture.points[len(c.gesture.points)-1]
	if ev.Constrain {
		at = geom.ConstrainSegment(prev, at, c.opts.AngleIncrement, c.opts.GridSize)
	}
	if at == prev {
		return false
	}
	c.gesture.points = append(c.gesture.points, at)
	return true
}

func distinctPoints(points []geom.Point) int {
	seen := make(map[geom.Point]struct{}, len(points))
	for _, p := range points {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// movable returns the selected ids whose layers still accept edits.
func (c *Controller) movable() []string {
	out := make([]string, 0, len(c.selection))
	for _, id := range c.selection {
		if c.selectable(id) {
			out = append(out, id)
		}
	}
	return out
}

func (c *Controller) moveHandle(h engine.Handle, at geom.Point) error {
	el, err := c.page.Element(h.ElementID)
	if err != nil {
		return err
	}

	if text, ok := el.(*comic.TextElement); ok {
		w := math.Max(1, at.X-text.X)
		hgt := math.Max(1, at.Y-text.Y)
		return c.page.ResizeText(text.ID, w, hgt)
	}

	points := comic.ElementPoints(el)
	if h.Index < 0 || h.Index >= len(points) {
		return comic.ErrNoPoints
	}
	points[h.Index] = at
	return c.page.UpdateElementPoints(h.ElementID, points)
}

// writableLayer returns the active layer id if new elements may go there.
func (c *Controller) writableLayer() (string, error) {
	l, err := c.page.Layer(c.activeLayer)
	if err != nil {
		return "", err
	}
	if l.Locked {
		return "", ErrLayerLocked
	}
	return l.ID, nil
}

// Wheel zooms multiplicatively around the pointer.
func (c *Controller) Wheel(ev WheelEvent) {
	if ev.DeltaY == 0 {
		return
	}
	v := c.view.ZoomAt(engine.WheelFactor(ev.DeltaY, c.opts.WheelSensitivity), ev.Point)
	if v == c.view {
		return
	}
	c.view = v
	c.changed()
}

// Key runs a keyboard command. Unknown keys are ignored.
func (c *Controller) Key(k Key) {
	switch k {
	case KeyDelete, KeyBackspace:
		if len(c.selection) == 0 {
			return
		}
		ids := c.movable()
		c.page.RemoveElements(ids)
		c.selection = nil
		c.changed()
		c.logger.Debug("elements removed", "count", len(ids))
	case KeyEscape:
		c.cancelGesture()
		c.ClearSelection()
	}
}
