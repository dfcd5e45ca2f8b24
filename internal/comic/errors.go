package comic

import (
	"errors"
	"fmt"
)

var (
	ErrLayerNotFound   = errors.New("layer not found")
	ErrElementNotFound = errors.New("element not found")
	ErrPageNotFound    = errors.New("page not found")
	ErrNoPoints        = errors.New("element requires at least one point")
	ErrDanglingLayer   = errors.New("element references a missing layer")
	ErrDuplicateID     = errors.New("duplicate element id")
	ErrLastPage        = errors.New("cannot remove the only page")
	ErrNoPages         = errors.New("comic has no pages")
	ErrNullEntry       = errors.New("null entry")
)

// LayerNotEmptyError is returned when deleting a layer that still owns elements.
type LayerNotEmptyError struct {
	LayerID string
	Count   int
}

func (e *LayerNotEmptyError) Error() string {
	return fmt.Sprintf("layer %s still holds %d element(s)", e.LayerID, e.Count)
}
