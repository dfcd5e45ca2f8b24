package comic

import "github.com/inamate/panels/backend-go/internal/geom"

// NewSampleComic builds a demo comic: a four panel grid with a gutter
// border and a caption.
func NewSampleComic() *Comic {
	c := NewComic("Sample")
	page := c.Pages[0]

	panels := page.Layers[1]
	borders := page.Layers[2]
	foreground := page.Layers[3]

	grid := [][]geom.Point{
		{{X: 40, Y: 40}, {X: 760, Y: 40}, {X: 760, Y: 420}, {X: 40, Y: 420}},
		{{X: 40, Y: 450}, {X: 390, Y: 450}, {X: 360, Y: 820}, {X: 40, Y: 820}},
		{{X: 420, Y: 450}, {X: 760, Y: 450}, {X: 760, Y: 820}, {X: 390, Y: 820}},
		{{X: 40, Y: 850}, {X: 760, Y: 850}, {X: 760, Y: 1160}, {X: 40, Y: 1160}},
	}
	for _, pts := range grid {
		// The layer exists, so this cannot fail.
		_, _ = page.AddPanel(panels.ID, pts, "")
	}

	_, _ = page.AddBorder(borders.ID, []geom.Point{
		{X: 405, Y: 440}, {X: 375, Y: 830},
	}, 4, "#000000")

	caption := DefaultText
	caption.Text = "Meanwhile..."
	caption.TextAlign = "left"
	_, _ = page.AddTextElement(foreground.ID, geom.Point{X: 50, Y: 50}, caption)

	return c
}
