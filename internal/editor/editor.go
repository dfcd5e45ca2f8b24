// Package editor turns pointer, wheel and keyboard input into edits of a
// comic page. A Controller is owned by one goroutine: every method except
// the asynchronous half of Save must be called from it.
package editor

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/engine"
)

// ErrLayerLocked is returned when a commit targets a locked layer.
var ErrLayerLocked = errors.New("layer is locked")

// Mode is the active tool. It persists across gestures until changed.
type Mode string

const (
	ModeSelect     Mode = "select"
	ModePan        Mode = "pan"
	ModeDrawPanel  Mode = "draw-panel"
	ModeDrawBorder Mode = "draw-border"
	ModeAddImage   Mode = "add-image"
	ModeText       Mode = "text"
)

// Valid reports whether m names a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSelect, ModePan, ModeDrawPanel, ModeDrawBorder, ModeAddImage, ModeText:
		return true
	}
	return false
}

// Options tune the controller's gestures and wire its collaborators.
type Options struct {
	GridSize         float64 // length snap for constrained segments, 0 disables
	AngleIncrement   float64 // degrees, for constrained segments
	HitTolerance     float64
	ImagePanelSize   float64
	WheelSensitivity float64
	BorderWidth      float64
	BorderColor      string
	Text             comic.TextDefaults

	Logger   *slog.Logger
	Resolver engine.ResourceResolver
	Picker   ImagePicker
	Store    PersistenceClient
	Notifier Notifier
	Now      func() time.Time
}

// DefaultOptions returns the stock gesture settings with no collaborators.
func DefaultOptions() Options {
	return Options{
		AngleIncrement:   15,
		HitTolerance:     engine.DefaultHitTolerance,
		ImagePanelSize:   200,
		WheelSensitivity: 0.001,
		BorderWidth:      3,
		BorderColor:      "#000000",
		Text:             comic.DefaultText,
	}
}

// Controller is the interaction state machine for one comic.
type Controller struct {
	opts   Options
	logger *slog.Logger

	comic       *comic.Comic
	page        *comic.Page
	activeLayer string
	view        engine.View
	mode        Mode
	selection   []string

	gesture gesture
	pending map[string]ImageRequest

	revision uint64
	saves    sync.WaitGroup
}

// New returns a controller editing c, starting on its first page in select
// mode with the topmost layer active.
func New(c *comic.Comic, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HitTolerance <= 0 {
		opts.HitTolerance = engine.DefaultHitTolerance
	}
	if opts.ImagePanelSize <= 0 {
		opts.ImagePanelSize = 200
	}
	if opts.WheelSensitivity <= 0 {
		opts.WheelSensitivity = 0.001
	}

	ctl := &Controller{
		opts:    opts,
		logger:  opts.Logger,
		mode:    ModeSelect,
		view:    engine.NewView(),
		pending: make(map[string]ImageRequest),
	}
	ctl.replaceComic(c)
	return ctl
}

// replaceComic switches to doc. A comic without pages gets a blank one so
// there is always a current page.
func (c *Controller) replaceComic(doc *comic.Comic) {
	if len(doc.Pages) == 0 {
		doc.AddPage("Page 1")
	}
	c.comic = doc
	c.page = doc.Pages[0]
	c.selection = nil
	c.gesture = gesture{}
	clear(c.pending)
	c.activeLayer = topmostLayer(c.page)
	c.changed()
}

func topmostLayer(p *comic.Page) string {
	if p == nil || len(p.Layers) == 0 {
		return ""
	}
	return p.Layers[len(p.Layers)-1].ID
}

// Comic returns the document being edited.
func (c *Controller) Comic() *comic.Comic { return c.comic }

// Page returns the current page.
func (c *Controller) Page() *comic.Page { return c.page }

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) View() engine.View { return c.view }

func (c *Controller) ActiveLayer() string { return c.activeLayer }

// Selection returns a copy of the selected element ids.
func (c *Controller) Selection() []string { return slices.Clone(c.selection) }

// Revision increases on every model, view or selection change.
func (c *Controller) Revision() uint64 { return c.revision }

func (c *Controller) changed() { c.revision++ }

// SetMode switches tools, abandoning any gesture in progress. Drawn points
// are discarded; drag steps already applied stay applied.
func (c *Controller) SetMode(m Mode) {
	if !m.Valid() || m == c.mode {
		return
	}
	c.cancelGesture()
	c.mode = m
	c.changed()
}

// SetPage makes the page with id current.
func (c *Controller) SetPage(id string) error {
	p, err := c.comic.Page(id)
	if err != nil {
		return err
	}
	if p == c.page {
		return nil
	}
	c.cancelGesture()
	c.page = p
	c.selection = nil
	c.activeLayer = topmostLayer(p)
	c.changed()
	return nil
}

// SetActiveLayer picks the layer new elements are committed to.
func (c *Controller) SetActiveLayer(id string) error {
	if _, err := c.page.Layer(id); err != nil {
		return err
	}
	c.activeLayer = id
	return nil
}

// SetView replaces the pan/zoom state, clamping the zoom.
func (c *Controller) SetView(v engine.View) {
	v.Zoom = engine.ClampZoom(v.Zoom)
	c.view = v
	c.changed()
}

// Select replaces the selection. Unknown ids and elements on hidden or
// locked layers are dropped.
func (c *Controller) Select(ids []string) {
	c.selection = c.selection[:0]
	for _, id := range ids {
		if c.selectable(id) && !slices.Contains(c.selection, id) {
			c.selection = append(c.selection, id)
		}
	}
	c.changed()
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() {
	if len(c.selection) == 0 {
		return
	}
	c.selection = nil
	c.changed()
}

func (c *Controller) selectable(id string) bool {
	el, err := c.page.Element(id)
	if err != nil {
		return false
	}
	l, err := c.page.Layer(el.Layer())
	return err == nil && l.Visible && !l.Locked
}

// pruneSelection drops ids that are no longer selectable.
func (c *Controller) pruneSelection() {
	c.selection = slices.DeleteFunc(c.selection, func(id string) bool { return !c.selectable(id) })
}

// Render projects the current page with the controller's overlay.
func (c *Controller) Render() engine.Frame {
	overlay := engine.Overlay{Selection: c.selection}
	if c.gesture.kind == gestureDraw {
		overlay.Preview = c.gesture.points
		overlay.PreviewClosed = c.mode == ModeDrawPanel
	}
	return engine.Render(c.page, c.view, overlay, c.opts.Resolver)
}

// Refresh re-validates controller state against the comic after it was
// edited through another controller: a removed page falls back to the
// first page, a removed active layer to the topmost one, and the selection
// loses anything no longer selectable.
func (c *Controller) Refresh() {
	if len(c.comic.Pages) == 0 {
		return
	}
	if _, err := c.comic.Page(c.page.ID); err != nil {
		c.cancelGesture()
		c.page = c.comic.Pages[0]
		c.selection = nil
		c.activeLayer = topmostLayer(c.page)
		c.changed()
		return
	}
	if _, err := c.page.Layer(c.activeLayer); err != nil {
		c.activeLayer = topmostLayer(c.page)
	}
	if n := len(c.selection); n > 0 {
		c.pruneSelection()
		if len(c.selection) != n {
			c.changed()
		}
	}
}
