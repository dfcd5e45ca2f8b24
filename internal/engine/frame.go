package engine

import "github.com/inamate/panels/backend-go/internal/geom"

// Frame is the display tree for one page: everything the surface needs to
// paint, in painter's order (back to front).
type Frame struct {
	PageID    string        `json:"pageId"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Transform []float64     `json:"transform"` // page -> surface
	Zoom      float64       `json:"zoom"`
	Layers    []LayerFrame  `json:"layers"`
	Overlay   []DrawCommand `json:"overlay,omitempty"`
}

// LayerFrame holds the commands of one visible layer.
type LayerFrame struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Locked   bool          `json:"locked,omitempty"`
	Commands []DrawCommand `json:"commands"`
}

// Overlay is the controller's transient state that Render draws on top of
// the page.
type Overlay struct {
	Selection []string
	Preview   []geom.Point
	// PreviewClosed draws the preview as a polygon (panel) instead of a
	// polyline (border).
	PreviewClosed bool
}

// CommandCount returns the number of commands in the frame.
func (f Frame) CommandCount() int {
	n := len(f.Overlay)
	for _, l := range f.Layers {
		n += len(l.Commands)
	}
	return n
}

// Find returns the first command for objectID with the given op.
func (f Frame) Find(objectID, op string) (DrawCommand, bool) {
	for _, l := range f.Layers {
		for _, c := range l.Commands {
			if c.ObjectID == objectID && c.Op == op {
				return c, true
			}
		}
	}
	return DrawCommand{}, false
}
