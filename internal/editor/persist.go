package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/engine"
)

// ErrNoStore is returned by Save and Load when no PersistenceClient is set.
var ErrNoStore = errors.New("no store configured")

// PersistenceClient stores comics as opaque blobs keyed by comic id.
type PersistenceClient interface {
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, blob []byte) error
}

// SaveResult reports the outcome of one Save.
type SaveResult struct {
	ComicID  string
	Modified time.Time
	Err      error // *PersistenceError on failure
}

// Notifier receives save outcomes. Notify is called from a background
// goroutine.
type Notifier interface {
	Notify(SaveResult)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(SaveResult)

func (f NotifierFunc) Notify(r SaveResult) { f(r) }

// PersistenceError wraps a failed load or save.
type PersistenceError struct {
	Op      string // "load", "save" or "encode"
	ComicID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s comic %s: %v", e.Op, e.ComicID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Save stamps the comic as modified, snapshots it and writes the snapshot in
// the background. Only an encoding failure is returned; the store's answer
// goes to the Notifier. Edits are never rolled back.
func (c *Controller) Save(ctx context.Context) error {
	store := c.opts.Store
	if store == nil {
		return &PersistenceError{Op: "save", ComicID: c.comic.ID, Err: ErrNoStore}
	}

	c.comic.Touch(c.opts.Now())
	c.changed()

	id := c.comic.ID
	modified := c.comic.Modified
	blob, err := comic.Encode(c.comic)
	if err != nil {
		return &PersistenceError{Op: "encode", ComicID: id, Err: err}
	}

	c.saves.Add(1)
	go func() {
		defer c.saves.Done()

		result := SaveResult{ComicID: id, Modified: modified}
		if err := store.Save(ctx, id, blob); err != nil {
			result.Err = &PersistenceError{Op: "save", ComicID: id, Err: err}
			c.logger.Error("save failed", "comic", id, "error", err)
		} else {
			c.logger.Info("comic saved", "comic", id, "bytes", len(blob))
		}
		if c.opts.Notifier != nil {
			c.opts.Notifier.Notify(result)
		}
	}()
	return nil
}

// WaitSaves blocks until every background save has finished.
func (c *Controller) WaitSaves() {
	c.saves.Wait()
}

// Load replaces the edited comic with the one stored under id. On failure the
// current comic is kept.
func (c *Controller) Load(ctx context.Context, id string) error {
	store := c.opts.Store
	if store == nil {
		return &PersistenceError{Op: "load", ComicID: id, Err: ErrNoStore}
	}

	blob, err := store.Load(ctx, id)
	if err != nil {
		return &PersistenceError{Op: "load", ComicID: id, Err: err}
	}
	doc, err := comic.Decode(blob)
	if err != nil {
		return &PersistenceError{Op: "load", ComicID: id, Err: err}
	}

	c.replaceComic(doc)
	c.view = engine.NewView()
	return nil
}
