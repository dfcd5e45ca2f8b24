package comic

import (
	"time"

	"github.com/inamate/panels/backend-go/internal/typeid"
)

const (
	DefaultPageWidth  = 800
	DefaultPageHeight = 1200
)

// DefaultLayerNames are the layers every new page starts with, bottom first.
var DefaultLayerNames = []string{"Background", "Panels", "Borders", "Foreground"}

// NewComic creates a comic with a single empty page.
func NewComic(name string) *Comic {
	now := time.Now().UTC()
	return &Comic{
		ID:       typeid.NewComicID(),
		Name:     name,
		Created:  now,
		Modified: now,
		Pages:    []*Page{NewPage("Page 1", DefaultPageWidth, DefaultPageHeight)},
	}
}

// NewPage creates an empty page with the default layer stack.
func NewPage(name string, width, height int) *Page {
	p := &Page{
		ID:           typeid.NewPageID(),
		Name:         name,
		Width:        width,
		Height:       height,
		Layers:       []*Layer{},
		Panels:       []*Panel{},
		Borders:      []*Border{},
		TextElements: []*TextElement{},
		index:        make(map[string]Element),
	}
	for _, n := range DefaultLayerNames {
		p.AddLayer(n)
	}
	return p
}

// Touch records a save at now.
func (c *Comic) Touch(now time.Time) {
	c.Modified = now.UTC()
}

// Page returns the page with the given id.
func (c *Comic) Page(id string) (*Page, error) {
	for _, p := range c.Pages {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPageNotFound
}

// AddPage appends a new empty page sized like the last one.
func (c *Comic) AddPage(name string) *Page {
	w, h := DefaultPageWidth, DefaultPageHeight
	if n := len(c.Pages); n > 0 {
		w, h = c.Pages[n-1].Width, c.Pages[n-1].Height
	}
	p := NewPage(name, w, h)
	c.Pages = append(c.Pages, p)
	return p
}

// RemovePage deletes a page. The last remaining page cannot be removed.
func (c *Comic) RemovePage(id string) error {
	for i, p := range c.Pages {
		if p.ID != id {
			continue
		}
		if len(c.Pages) == 1 {
			return ErrLastPage
		}
		c.Pages = append(c.Pages[:i], c.Pages[i+1:]...)
		return nil
	}
	return ErrPageNotFound
}
