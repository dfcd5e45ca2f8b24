package engine

import (
	"encoding/json"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/geom"
)

// Draw command ops.
const (
	OpSave        = "save"
	OpRestore     = "restore"
	OpClip        = "clip"
	OpImage       = "image"
	OpPlaceholder = "placeholder"
	OpPath        = "path"
	OpText        = "text"
	OpOutline     = "outline"
	OpHandle      = "handle"
)

// Decoration colors.
const (
	panelEdgeColor  = "#888888"
	emptyPanelFill  = "#f4f4f4"
	selectionColor  = "#3b82f6"
	previewColor    = "#3b82f6"
	handleSize      = 8
	previewStrokePx = 1
)

// DrawCommand represents a single drawing operation for the surface to execute.
// Coordinates are in page space; Frame.Transform maps them to the surface.
type DrawCommand struct {
	Op          string        `json:"op"`
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // extra [a, b, c, d, e, f] for this command
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" and "clip" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	ImageURL    string        `json:"imageUrl,omitempty"`
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	Width       float64       `json:"width,omitempty"`
	Height      float64       `json:"height,omitempty"`
	Text        string        `json:"text,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	FontFamily  string        `json:"fontFamily,omitempty"`
	TextAlign   string        `json:"textAlign,omitempty"`
	Error       string        `json:"error,omitempty"` // why a placeholder replaced an image
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Z"].
type PathCommand []any

// Render projects a page into a frame. It keeps no state: the same page,
// view and overlay always produce the same frame. A panel whose image cannot
// be resolved is drawn as a placeholder; the rest of the page is unaffected.
func Render(page *comic.Page, view View, overlay Overlay, resolver ResourceResolver) Frame {
	frame := Frame{
		Transform: view.Matrix().ToSlice(),
		Zoom:      view.Zoom,
	}
	if page == nil {
		return frame
	}
	frame.PageID = page.ID
	frame.Width = page.Width
	frame.Height = page.Height
	frame.Layers = make([]LayerFrame, 0, len(page.Layers))

	selected := make(map[string]bool, len(overlay.Selection))
	for _, id := range overlay.Selection {
		selected[id] = true
	}

	for _, layer := range page.Layers {
		if !layer.Visible {
			continue
		}

		lf := LayerFrame{ID: layer.ID, Name: layer.Name, Locked: layer.Locked, Commands: []DrawCommand{}}
		for _, el := range page.ElementsInLayer(layer) {
			compileElement(el, resolver, &lf.Commands)
			if selected[el.ElementID()] {
				compileSelection(el, &lf.Commands)
			}
		}
		frame.Layers = append(frame.Layers, lf)
	}

	if len(overlay.Preview) > 0 {
		frame.Overlay = append(frame.Overlay, DrawCommand{
			Op:          OpPath,
			Path:        pathCommands(overlay.Preview, overlay.PreviewClosed),
			Stroke:      previewColor,
			StrokeWidth: previewStrokePx / view.Zoom,
		})
	}

	return frame
}

// compileElement emits the commands that paint one element.
func compileElement(el comic.Element, resolver ResourceResolver, commands *[]DrawCommand) {
	switch e := el.(type) {
	case *comic.Panel:
		compilePanel(e, resolver, commands)

	case *comic.Border:
		*commands = append(*commands, DrawCommand{
			Op:          OpPath,
			ObjectID:    e.ID,
			Path:        pathCommands(e.Points, false),
			Stroke:      e.StrokeColor,
			StrokeWidth: e.StrokeWidth,
		})

	case *comic.TextElement:
		*commands = append(*commands, DrawCommand{
			Op:         OpText,
			ObjectID:   e.ID,
			X:          e.X,
			Y:          e.Y,
			Width:      e.Width,
			Height:     e.Height,
			Text:       e.Text,
			FontSize:   e.FontSize,
			FontFamily: e.FontFamily,
			TextAlign:  e.TextAlign,
			Fill:       e.Color,
		})
	}
}

func compilePanel(p *comic.Panel, resolver ResourceResolver, commands *[]DrawCommand) {
	outline := pathCommands(p.Points, true)

	if p.ImagePath == "" {
		*commands = append(*commands, DrawCommand{
			Op:          OpPath,
			ObjectID:    p.ID,
			Path:        outline,
			Fill:        emptyPanelFill,
			Stroke:      panelEdgeColor,
			StrokeWidth: 1,
		})
		return
	}

	*commands = append(*commands,
		DrawCommand{Op: OpSave},
		DrawCommand{Op: OpClip, ObjectID: p.ID, Path: outline},
	)

	url, err := resolve(resolver, p.ImagePath)
	if err != nil {
		*commands = append(*commands, DrawCommand{
			Op:       OpPlaceholder,
			ObjectID: p.ID,
			X:        p.X,
			Y:        p.Y,
			Width:    p.Width,
			Height:   p.Height,
			Error:    err.Error(),
		})
	} else {
		cmd := DrawCommand{
			Op:       OpImage,
			ObjectID: p.ID,
			ImageURL: url,
			X:        p.X,
			Y:        p.Y,
			Width:    p.Width,
			Height:   p.Height,
		}
		if p.Rotation != 0 {
			cmd.Transform = geom.RotateAbout(p.Rotation, p.Bounds().Center()).ToSlice()
		}
		*commands = append(*commands, cmd)
	}

	*commands = append(*commands,
		DrawCommand{Op: OpRestore},
		DrawCommand{Op: OpPath, ObjectID: p.ID, Path: outline, Stroke: panelEdgeColor, StrokeWidth: 1},
	)
}

func resolve(resolver ResourceResolver, ref string) (string, error) {
	if resolver == nil {
		return ref, nil
	}
	return resolver.Resolve(ref)
}

// compileSelection emits the outline and control points of a selected element.
func compileSelection(el comic.Element, commands *[]DrawCommand) {
	b := comic.ElementBounds(el)
	*commands = append(*commands, DrawCommand{
		Op:          OpOutline,
		ObjectID:    el.ElementID(),
		X:           b.X,
		Y:           b.Y,
		Width:       b.Width,
		Height:      b.Height,
		Stroke:      selectionColor,
		StrokeWidth: 1,
	})

	for _, pt := range Handles(el) {
		*commands = append(*commands, DrawCommand{
			Op:       OpHandle,
			ObjectID: el.ElementID(),
			X:        pt.X,
			Y:        pt.Y,
			Width:    handleSize,
			Height:   handleSize,
			Fill:     selectionColor,
		})
	}
}

// pathCommands converts points to Canvas2D-style path commands.
func pathCommands(points []geom.Point, closed bool) []PathCommand {
	if len(points) == 0 {
		return nil
	}
	out := make([]PathCommand, 0, len(points)+1)
	for i, p := range points {
		op := "L"
		if i == 0 {
			op = "M"
		}
		out = append(out, PathCommand{op, p.X, p.Y})
	}
	if closed && len(points) >= 3 {
		out = append(out, PathCommand{"Z"})
	}
	return out
}

// FrameToJSON serializes a frame to JSON.
func FrameToJSON(f Frame) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
