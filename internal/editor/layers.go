package editor

import (
	"github.com/inamate/panels/backend-go/internal/comic"
)

// AddLayer adds a layer on top of the current page and makes it active.
func (c *Controller) AddLayer(name string) *comic.Layer {
	l := c.page.AddLayer(name)
	c.activeLayer = l.ID
	c.changed()
	return l
}

// RemoveLayer deletes an empty layer. If it was active, the new topmost
// layer becomes active.
func (c *Controller) RemoveLayer(id string) error {
	if err := c.page.RemoveLayer(id); err != nil {
		return err
	}
	if c.activeLayer == id {
		c.activeLayer = topmostLayer(c.page)
	}
	c.changed()
	return nil
}

func (c *Controller) ReorderLayer(id string, dir comic.Direction) error {
	if err := c.page.ReorderLayer(id, dir); err != nil {
		return err
	}
	c.changed()
	return nil
}

// SetLayerVisible shows or hides a layer. Hidden elements leave the selection.
func (c *Controller) SetLayerVisible(id string, visible bool) error {
	if err := c.page.SetLayerVisible(id, visible); err != nil {
		return err
	}
	c.pruneSelection()
	c.changed()
	return nil
}

// SetLayerLocked locks or unlocks a layer. Locked elements leave the
// selection.
func (c *Controller) SetLayerLocked(id string, locked bool) error {
	if err := c.page.SetLayerLocked(id, locked); err != nil {
		return err
	}
	c.pruneSelection()
	c.changed()
	return nil
}

func (c *Controller) RenameLayer(id, name string) error {
	if err := c.page.RenameLayer(id, name); err != nil {
		return err
	}
	c.changed()
	return nil
}

// AddPage appends a page and switches to it.
func (c *Controller) AddPage(name string) *comic.Page {
	p := c.comic.AddPage(name)
	_ = c.SetPage(p.ID)
	return p
}

// RemovePage deletes a page. Removing the current page moves to the first.
func (c *Controller) RemovePage(id string) error {
	current := c.page != nil && c.page.ID == id
	if err := c.comic.RemovePage(id); err != nil {
		return err
	}
	if current {
		c.cancelGesture()
		c.page = c.comic.Pages[0]
		c.selection = nil
		c.activeLayer = topmostLayer(c.page)
	}
	c.changed()
	return nil
}

// SetText replaces the content of a text element.
func (c *Controller) SetText(id, content string) error {
	if err := c.page.SetText(id, content); err != nil {
		return err
	}
	c.changed()
	return nil
}
