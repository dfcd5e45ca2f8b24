package export

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/engine"
	"github.com/inamate/panels/backend-go/internal/geom"
	"github.com/inamate/panels/backend-go/internal/library"
)

func samplePage(t *testing.T) *comic.Page {
	t.Helper()
	p := comic.NewPage("One", 400, 300)
	layer := p.Layers[1].ID
	_, err := p.AddPanel(layer, []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}, "hero.png")
	require.NoError(t, err)
	_, err = p.AddPanel(layer, []geom.Point{{X: 200, Y: 0}, {X: 300, Y: 0}, {X: 250, Y: 100}}, "gone.png")
	require.NoError(t, err)
	_, err = p.AddBorder(p.Layers[2].ID, []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, 3, "#000000")
	require.NoError(t, err)
	text, err := p.AddTextElement(p.Layers[3].ID, geom.Pt(10, 200), comic.DefaultText)
	require.NoError(t, err)
	text.Text = "Tom & Jerry <3"
	return p
}

var resolver = engine.ResolverFunc(func(ref string) (string, error) {
	if ref == "gone.png" {
		return "", &engine.ResourceNotFoundError{Ref: ref}
	}
	return "/assets/" + ref, nil
})

func TestCompileSVG_WellFormed(t *testing.T) {
	frame := engine.Render(samplePage(t), engine.NewView(), engine.Overlay{}, resolver)
	svg := CompileSVG(frame)

	dec := xml.NewDecoder(strings.NewReader(string(svg)))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	s := string(svg)
	assert.Contains(t, s, `viewBox="0 0 400 300"`)
	assert.Contains(t, s, `<clipPath id="clip1"><path d="M 0 0 L 100 0 L 100 100 L 0 100 Z"/></clipPath>`)
	assert.Contains(t, s, `href="/assets/hero.png"`)
	assert.Contains(t, s, `class="missing-image"`)
	assert.Contains(t, s, "Tom &amp; Jerry &lt;3")
	assert.Equal(t, strings.Count(s, "<g"), strings.Count(s, "</g>"))
}

type docs map[string]*comic.Comic

func (d docs) Document(_ context.Context, comicID, _ string) (*comic.Comic, error) {
	c, ok := d[comicID]
	if !ok {
		return nil, library.ErrNotFound
	}
	return c, nil
}

func TestHandler_ExportSVG(t *testing.T) {
	c := comic.NewComic("Issue 1")
	c.Pages = []*comic.Page{samplePage(t)}
	h := NewHandler(docs{c.ID: c}, resolver, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := mux.NewRouter()
	r.HandleFunc("/api/comics/{comicId}/pages/{pageId}/export.svg", h.ExportSVG)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/comics/" + c.ID + "/pages/" + c.Pages[0].ID + "/export.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="Issue-1-One.svg"`)

	assert.Equal(t, http.StatusNotFound, get("/api/comics/"+c.ID+"/pages/page_x/export.svg").Code)
	assert.Equal(t, http.StatusNotFound, get("/api/comics/comic_x/pages/page_x/export.svg").Code)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a-b-c", fileName("a b", "c"))
	assert.Equal(t, "page", fileName("", "!!"))
}
