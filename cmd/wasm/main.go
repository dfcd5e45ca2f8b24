//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/editor"
	"github.com/inamate/panels/backend-go/internal/engine"
	"github.com/inamate/panels/backend-go/internal/geom"
)

var ctl *editor.Controller

func main() {
	ctl = editor.New(comic.NewSampleComic(), options())

	// Create the editor API object
	panelsEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	panelsEditor.Set("loadDocument", js.FuncOf(loadDocument))
	panelsEditor.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	panelsEditor.Set("pointerDown", js.FuncOf(pointerDown))
	panelsEditor.Set("pointerMove", js.FuncOf(pointerMove))
	panelsEditor.Set("pointerUp", js.FuncOf(pointerUp))
	panelsEditor.Set("wheel", js.FuncOf(wheel))
	panelsEditor.Set("key", js.FuncOf(key))
	panelsEditor.Set("setMode", js.FuncOf(setMode))
	panelsEditor.Set("setPage", js.FuncOf(setPage))
	panelsEditor.Set("setSelection", js.FuncOf(setSelection))
	panelsEditor.Set("setText", js.FuncOf(setText))
	panelsEditor.Set("layer", js.FuncOf(layer))
	panelsEditor.Set("completeImage", js.FuncOf(completeImage))
	panelsEditor.Set("cancelImage", js.FuncOf(cancelImage))

	// --- Queries (frontend ← backend) ---
	panelsEditor.Set("render", js.FuncOf(render))
	panelsEditor.Set("hitTest", js.FuncOf(hitTest))
	panelsEditor.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	panelsEditor.Set("getDocument", js.FuncOf(getDocument))
	panelsEditor.Set("getState", js.FuncOf(getState))

	js.Global().Set("panelsEditor", panelsEditor)

	// Signal that WASM is ready
	js.Global().Set("panelsWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// options wires the image picker to a page-provided callback,
// panelsRequestImage(requestJSON).
func options() editor.Options {
	opts := editor.DefaultOptions()
	opts.Picker = editor.ImagePickerFunc(func(req editor.ImageRequest) {
		cb := js.Global().Get("panelsRequestImage")
		if cb.Type() != js.TypeFunction {
			return
		}
		data, err := json.Marshal(req)
		if err != nil {
			return
		}
		cb.Invoke(string(data))
	})
	return opts
}

func ok() any { return js.ValueOf(map[string]any{"ok": true}) }

func fail(err error) any { return js.ValueOf(map[string]any{"error": err.Error()}) }

func result(err error) any {
	if err != nil {
		return fail(err)
	}
	return ok()
}

func pointerArg(args []js.Value) editor.PointerEvent {
	var ev editor.PointerEvent
	if len(args) >= 2 {
		ev.Point = geom.Pt(args[0].Float(), args[1].Float())
	}
	if len(args) >= 3 {
		ev.Additive = args[2].Truthy()
	}
	if len(args) >= 4 {
		ev.Constrain = args[3].Truthy()
	}
	return ev
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing document JSON"})
	}
	doc, err := comic.Decode([]byte(args[0].String()))
	if err != nil {
		return fail(err)
	}
	ctl = editor.New(doc, options())
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	ctl = editor.New(comic.NewSampleComic(), options())
	return ok()
}

// pointerDown(x, y, shift, alt) etc. take surface-local coordinates.
func pointerDown(this js.Value, args []js.Value) any {
	return result(ctl.PointerDown(pointerArg(args)))
}

func pointerMove(this js.Value, args []js.Value) any {
	ctl.PointerMove(pointerArg(args))
	return nil
}

func pointerUp(this js.Value, args []js.Value) any {
	return result(ctl.PointerUp(pointerArg(args)))
}

func wheel(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return nil
	}
	ctl.Wheel(editor.WheelEvent{
		Point:  geom.Pt(args[0].Float(), args[1].Float()),
		DeltaY: args[2].Float(),
	})
	return nil
}

func key(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	ctl.Key(editor.Key(args[0].String()))
	return nil
}

func setMode(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	m := editor.Mode(args[0].String())
	if !m.Valid() {
		return js.ValueOf(map[string]any{"error": "unknown mode " + string(m)})
	}
	ctl.SetMode(m)
	return ok()
}

func setPage(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	return result(ctl.SetPage(args[0].String()))
}

func setSelection(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		ctl.ClearSelection()
		return nil
	}

	arr := args[0]
	ids := make([]string, arr.Length())
	for i := range ids {
		ids[i] = arr.Index(i).String()
	}
	ctl.Select(ids)
	return nil
}

func setText(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	return result(ctl.SetText(args[0].String(), args[1].String()))
}

// layer(op, layerId, arg) runs one layer-panel command.
func layer(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	op := args[0].String()
	var id string
	if len(args) > 1 {
		id = args[1].String()
	}
	arg := js.Undefined()
	if len(args) > 2 {
		arg = args[2]
	}

	switch op {
	case "add":
		l := ctl.AddLayer(id)
		return js.ValueOf(map[string]any{"ok": true, "id": l.ID})
	case "remove":
		return result(ctl.RemoveLayer(id))
	case "up":
		return result(ctl.ReorderLayer(id, comic.Up))
	case "down":
		return result(ctl.ReorderLayer(id, comic.Down))
	case "visible":
		return result(ctl.SetLayerVisible(id, arg.Truthy()))
	case "locked":
		return result(ctl.SetLayerLocked(id, arg.Truthy()))
	case "rename":
		return result(ctl.RenameLayer(id, arg.String()))
	case "activate":
		return result(ctl.SetActiveLayer(id))
	}
	return js.ValueOf(map[string]any{"error": "unknown layer op " + op})
}

func completeImage(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	id, err := ctl.CompleteImage(args[0].String(), args[1].String())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]any{"ok": true, "id": id})
}

func cancelImage(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	ctl.CancelImage(args[0].String())
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	out, err := engine.FrameToJSON(ctl.Render())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(out)
}

// hitTest(x, y) returns the id of the topmost element under a surface point.
func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	at := ctl.View().ToModel(geom.Pt(args[0].Float(), args[1].Float()))
	el, found := engine.FindElementAt(ctl.Page(), at, engine.HitOptions{Tolerance: engine.DefaultHitTolerance})
	if !found {
		return js.ValueOf("")
	}
	return js.ValueOf(el.ElementID())
}

func getSelectionBounds(this js.Value, args []js.Value) any {
	r := engine.SelectionBounds(ctl.Page(), ctl.Selection())
	if r.IsEmpty() {
		return js.Null()
	}
	return js.ValueOf(map[string]any{"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height})
}

func getDocument(this js.Value, args []js.Value) any {
	data, err := comic.Encode(ctl.Comic())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

func getState(this js.Value, args []js.Value) any {
	v := ctl.View()
	sel := make([]any, 0)
	for _, id := range ctl.Selection() {
		sel = append(sel, id)
	}
	return js.ValueOf(map[string]any{
		"mode":          string(ctl.Mode()),
		"pageId":        ctl.Page().ID,
		"activeLayer":   ctl.ActiveLayer(),
		"selection":     sel,
		"zoom":          v.Zoom,
		"panX":          v.PanX,
		"panY":          v.PanY,
		"pendingImages": ctl.PendingImages(),
	})
}
