package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/geom"
)

func square(x, y, size float64) []geom.Point {
	return []geom.Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

// twoLayerPage returns a page with a bottom and a top layer.
func twoLayerPage(t *testing.T) (*comic.Page, *comic.Layer, *comic.Layer) {
	t.Helper()
	p := comic.NewPage("P", 800, 600)
	p.Layers = nil
	bottom := p.AddLayer("bottom")
	top := p.AddLayer("top")
	return p, bottom, top
}

func TestFindElementAt_ZOrder(t *testing.T) {
	p, bottom, top := twoLayerPage(t)
	lower, err := p.AddPanel(bottom.ID, square(0, 0, 100), "")
	require.NoError(t, err)
	upper, err := p.AddPanel(top.ID, square(50, 50, 100), "")
	require.NoError(t, err)

	el, ok := FindElementAt(p, geom.Pt(75, 75), HitOptions{})
	require.True(t, ok)
	assert.Equal(t, upper.ID, el.ElementID())

	el, ok = FindElementAt(p, geom.Pt(10, 10), HitOptions{})
	require.True(t, ok)
	assert.Equal(t, lower.ID, el.ElementID())

	_, ok = FindElementAt(p, geom.Pt(500, 500), HitOptions{})
	assert.False(t, ok)
}

func TestFindElementAt_LatestInLayerWins(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	_, err := p.AddPanel(bottom.ID, square(0, 0, 100), "")
	require.NoError(t, err)
	second, err := p.AddPanel(bottom.ID, square(0, 0, 100), "")
	require.NoError(t, err)

	el, ok := FindElementAt(p, geom.Pt(50, 50), HitOptions{})
	require.True(t, ok)
	assert.Equal(t, second.ID, el.ElementID())
}

func TestFindElementAt_SkipsInvisibleAndLocked(t *testing.T) {
	p, bottom, top := twoLayerPage(t)
	lower, err := p.AddPanel(bottom.ID, square(0, 0, 100), "")
	require.NoError(t, err)
	_, err = p.AddPanel(top.ID, square(0, 0, 100), "")
	require.NoError(t, err)

	require.NoError(t, p.SetLayerVisible(top.ID, false))
	el, ok := FindElementAt(p, geom.Pt(50, 50), HitOptions{})
	require.True(t, ok)
	assert.Equal(t, lower.ID, el.ElementID())

	require.NoError(t, p.SetLayerLocked(bottom.ID, true))
	_, ok = FindElementAt(p, geom.Pt(50, 50), HitOptions{SkipLocked: true})
	assert.False(t, ok)

	el, ok = FindElementAt(p, geom.Pt(50, 50), HitOptions{})
	require.True(t, ok)
	assert.Equal(t, lower.ID, el.ElementID())
}

func TestFindElementAt_BorderTolerance(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	b, err := p.AddBorder(bottom.ID, []geom.Point{{X: 0, Y: 0}, {X: 200, Y: 0}}, 2, "#000000")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   geom.Point
		want bool
	}{
		{"on line", geom.Pt(100, 0), true},
		{"within tolerance", geom.Pt(100, 9), true},
		{"outside tolerance", geom.Pt(100, 11), false},
		{"past the end", geom.Pt(215, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, ok := FindElementAt(p, tt.at, HitOptions{})
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, b.ID, el.ElementID())
			}
		})
	}
}

func TestFindElementAt_Text(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	text, err := p.AddTextElement(bottom.ID, geom.Pt(10, 10), comic.DefaultText)
	require.NoError(t, err)

	el, ok := FindElementAt(p, geom.Pt(100, 50), HitOptions{})
	require.True(t, ok)
	assert.Equal(t, text.ID, el.ElementID())

	_, ok = FindElementAt(p, geom.Pt(300, 50), HitOptions{})
	assert.False(t, ok)
}

func TestFindHandleAt(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	panel, err := p.AddPanel(bottom.ID, square(0, 0, 100), "")
	require.NoError(t, err)
	text, err := p.AddTextElement(bottom.ID, geom.Pt(300, 300), comic.DefaultText)
	require.NoError(t, err)

	h, ok := FindHandleAt(p, []string{panel.ID, text.ID}, geom.Pt(98, 103), 10)
	require.True(t, ok)
	assert.Equal(t, Handle{ElementID: panel.ID, Index: 2}, h)

	h, ok = FindHandleAt(p, []string{panel.ID, text.ID}, geom.Pt(500, 400), 10)
	require.True(t, ok)
	assert.Equal(t, Handle{ElementID: text.ID, Index: ResizeCorner}, h)

	_, ok = FindHandleAt(p, []string{panel.ID}, geom.Pt(50, 50), 10)
	assert.False(t, ok)
}

func TestSelectionBounds(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	a, err := p.AddPanel(bottom.ID, square(0, 0, 100), "")
	require.NoError(t, err)
	b, err := p.AddPanel(bottom.ID, square(200, 50, 100), "")
	require.NoError(t, err)

	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 300, Height: 150}, SelectionBounds(p, []string{a.ID, b.ID}))
}

func TestView_RoundTrip(t *testing.T) {
	v := View{PanX: 30, PanY: -12, Zoom: 2.5}
	p := geom.Pt(123.4, 56.7)

	got := v.ToModel(v.ToSurface(p))
	assert.InDelta(t, p.X, got.X, 1e-9)
	assert.InDelta(t, p.Y, got.Y, 1e-9)
}

func TestView_ZoomAtKeepsAnchor(t *testing.T) {
	v := NewView().PanBy(40, 20)
	anchor := geom.Pt(300, 200)
	before := v.ToModel(anchor)

	v = v.ZoomAt(1.7, anchor)
	after := v.ToModel(anchor)

	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
	assert.InDelta(t, 1.7, v.Zoom, 1e-9)
}

func TestView_ZoomRoundTrip(t *testing.T) {
	v := NewView()
	anchor := geom.Pt(250, 250)
	const sens = 0.001

	for range 10 {
		v = v.ZoomAt(WheelFactor(-100, sens), anchor)
	}
	for range 10 {
		v = v.ZoomAt(WheelFactor(100, sens), anchor)
	}

	assert.InDelta(t, 1.0, v.Zoom, 1e-9)
	assert.InDelta(t, 0.0, v.PanX, 1e-6)
	assert.InDelta(t, 0.0, v.PanY, 1e-6)
}

func TestView_ZoomClamped(t *testing.T) {
	v := NewView().ZoomAt(1000, geom.Pt(0, 0))
	assert.Equal(t, MaxZoom, v.Zoom)

	v = v.ZoomAt(1e-6, geom.Pt(0, 0))
	assert.Equal(t, MinZoom, v.Zoom)
}

func TestView_PanBy(t *testing.T) {
	v := View{Zoom: 2}.PanBy(100, -50)
	assert.Equal(t, 50.0, v.PanX)
	assert.Equal(t, -25.0, v.PanY)
}

func ops(cmds []DrawCommand) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Op)
	}
	return out
}

func TestRender_PainterOrder(t *testing.T) {
	p, bottom, top := twoLayerPage(t)
	panel, err := p.AddPanel(bottom.ID, square(0, 0, 100), "hero.png")
	require.NoError(t, err)
	_, err = p.AddBorder(bottom.ID, []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, 3, "#111111")
	require.NoError(t, err)
	_, err = p.AddTextElement(top.ID, geom.Pt(5, 5), comic.DefaultText)
	require.NoError(t, err)

	resolver := ResolverFunc(func(ref string) (string, error) { return "/assets/" + ref, nil })
	f := Render(p, NewView(), Overlay{}, resolver)

	require.Len(t, f.Layers, 2)
	assert.Equal(t, bottom.ID, f.Layers[0].ID)
	assert.Equal(t, top.ID, f.Layers[1].ID)
	assert.Equal(t,
		[]string{OpSave, OpClip, OpImage, OpRestore, OpPath, OpPath},
		ops(f.Layers[0].Commands))
	assert.Equal(t, []string{OpText}, ops(f.Layers[1].Commands))

	img, ok := f.Find(panel.ID, OpImage)
	require.True(t, ok)
	assert.Equal(t, "/assets/hero.png", img.ImageURL)
	assert.Empty(t, img.Transform)
	assert.Equal(t, []float64{1, 0, 0, 1, 0, 0}, f.Transform)
}

func TestRender_MissingImageDegradesPerPanel(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	missing, err := p.AddPanel(bottom.ID, square(0, 0, 100), "gone.png")
	require.NoError(t, err)
	present, err := p.AddPanel(bottom.ID, square(200, 0, 100), "here.png")
	require.NoError(t, err)

	resolver := ResolverFunc(func(ref string) (string, error) {
		if ref == "gone.png" {
			return "", &ResourceNotFoundError{Ref: ref}
		}
		return ref, nil
	})
	f := Render(p, NewView(), Overlay{}, resolver)

	ph, ok := f.Find(missing.ID, OpPlaceholder)
	require.True(t, ok)
	assert.Contains(t, ph.Error, "gone.png")
	_, ok = f.Find(missing.ID, OpImage)
	assert.False(t, ok)

	_, ok = f.Find(present.ID, OpImage)
	assert.True(t, ok)
}

func TestRender_InvisibleLayerOmitted(t *testing.T) {
	p, bottom, top := twoLayerPage(t)
	_, err := p.AddPanel(top.ID, square(0, 0, 100), "")
	require.NoError(t, err)
	require.NoError(t, p.SetLayerVisible(top.ID, false))

	f := Render(p, NewView(), Overlay{}, nil)
	require.Len(t, f.Layers, 1)
	assert.Equal(t, bottom.ID, f.Layers[0].ID)
	assert.Zero(t, f.CommandCount())
}

func TestRender_SelectionAndPreview(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	panel, err := p.AddPanel(bottom.ID, square(0, 0, 100), "")
	require.NoError(t, err)

	f := Render(p, View{Zoom: 2}, Overlay{
		Selection:     []string{panel.ID},
		Preview:       []geom.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}},
		PreviewClosed: true,
	}, nil)

	assert.Equal(t, []string{OpPath, OpOutline, OpHandle, OpHandle, OpHandle, OpHandle}, ops(f.Layers[0].Commands))
	require.Len(t, f.Overlay, 1)
	assert.Equal(t, PathCommand{"Z"}, f.Overlay[0].Path[len(f.Overlay[0].Path)-1])
	assert.Equal(t, 0.5, f.Overlay[0].StrokeWidth)
}

func TestRender_RotatedImage(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	panel, err := p.AddPanel(bottom.ID, square(0, 0, 100), "a.png")
	require.NoError(t, err)
	panel.Rotation = 90

	f := Render(p, NewView(), Overlay{}, nil)
	img, ok := f.Find(panel.ID, OpImage)
	require.True(t, ok)
	require.Len(t, img.Transform, 6)

	m := geom.Matrix2D(img.Transform)
	c := m.TransformPoint(geom.Pt(50, 50))
	assert.InDelta(t, 50, c.X, 1e-9)
	assert.InDelta(t, 50, c.Y, 1e-9)
}

func TestRender_Deterministic(t *testing.T) {
	p, bottom, _ := twoLayerPage(t)
	_, err := p.AddPanel(bottom.ID, square(0, 0, 100), "")
	require.NoError(t, err)

	a, err := FrameToJSON(Render(p, NewView(), Overlay{}, nil))
	require.NoError(t, err)
	b, err := FrameToJSON(Render(p, NewView(), Overlay{}, nil))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResourceNotFoundError(t *testing.T) {
	var err error = &ResourceNotFoundError{Ref: "x.png"}
	var target *ResourceNotFoundError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "x.png", target.Ref)
}
