package editor

import (
	"github.com/google/uuid"

	"github.com/inamate/panels/backend-go/internal/geom"
)

// ImageRequest is an AddImage gesture waiting on the image picker.
type ImageRequest struct {
	Token   string     `json:"token"`
	PageID  string     `json:"pageId"`
	LayerID string     `json:"layerId"`
	At      geom.Point `json:"at"`
}

// ImagePicker asks the user for an image. It must not block; the answer
// comes back through CompleteImage or CancelImage on the controller's
// goroutine.
type ImagePicker interface {
	PickImage(req ImageRequest)
}

// ImagePickerFunc adapts a function to ImagePicker.
type ImagePickerFunc func(req ImageRequest)

func (f ImagePickerFunc) PickImage(req ImageRequest) { f(req) }

func (c *Controller) requestImage(at geom.Point) error {
	layer, err := c.writableLayer()
	if err != nil {
		return err
	}

	req := ImageRequest{
		Token:   uuid.NewString(),
		PageID:  c.page.ID,
		LayerID: layer,
		At:      at,
	}
	c.pending[req.Token] = req
	if c.opts.Picker != nil {
		c.opts.Picker.PickImage(req)
	}
	return nil
}

// PendingImages returns the number of unresolved image requests.
func (c *Controller) PendingImages() int { return len(c.pending) }

// CompleteImage commits a square panel with the chosen image at the point
// the request was made. Unknown or already resolved tokens are ignored.
func (c *Controller) CompleteImage(token, ref string) (string, error) {
	req, ok := c.pending[token]
	if !ok {
		return "", nil
	}
	delete(c.pending, token)

	page, err := c.comic.Page(req.PageID)
	if err != nil {
		return "", err
	}
	l, err := page.Layer(req.LayerID)
	if err != nil {
		return "", err
	}
	if l.Locked {
		return "", ErrLayerLocked
	}

	size := c.opts.ImagePanelSize
	x, y := req.At.X, req.At.Y
	points := []geom.Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
	panel, err := page.AddPanel(l.ID, points, ref)
	if err != nil {
		return "", err
	}
	if page == c.page {
		c.selection = []string{panel.ID}
	}
	c.changed()
	c.logger.Debug("image panel added", "id", panel.ID, "ref", ref)
	return panel.ID, nil
}

// CancelImage drops a pending request. The model is not touched.
func (c *Controller) CancelImage(token string) {
	delete(c.pending, token)
}
