// Package library manages the set of comics a user owns.
package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/store"
)

var (
	ErrNotFound  = errors.New("comic not found")
	ErrForbidden = errors.New("forbidden")
	ErrMismatch  = errors.New("document id does not match comic")

	ErrInvalidDocument = errors.New("invalid document")
)

type Service struct {
	comics store.Comics
}

func NewService(comics store.Comics) *Service {
	return &Service{comics: comics}
}

// Create stores a new comic. With sample set it starts from the demo page
// instead of an empty one.
func (s *Service) Create(ctx context.Context, name, ownerID string, sample bool) (store.Meta, error) {
	doc := comic.NewComic(name)
	if sample {
		doc = comic.NewSampleComic()
		doc.Name = name
	}

	blob, err := comic.Encode(doc)
	if err != nil {
		return store.Meta{}, fmt.Errorf("encode comic: %w", err)
	}
	meta := store.Meta{ID: doc.ID, Name: name, OwnerID: ownerID}
	if err := s.comics.Create(ctx, meta, blob); err != nil {
		return store.Meta{}, fmt.Errorf("create comic: %w", err)
	}
	return s.comics.Get(ctx, doc.ID)
}

// Authorize checks that userID owns the comic.
func (s *Service) Authorize(ctx context.Context, comicID, userID string) (store.Meta, error) {
	meta, err := s.comics.Get(ctx, comicID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Meta{}, ErrNotFound
		}
		return store.Meta{}, fmt.Errorf("get comic: %w", err)
	}
	if meta.OwnerID != userID {
		return store.Meta{}, ErrForbidden
	}
	return meta, nil
}

func (s *Service) Get(ctx context.Context, comicID, userID string) (store.Meta, error) {
	return s.Authorize(ctx, comicID, userID)
}

func (s *Service) List(ctx context.Context, userID string) ([]store.Meta, error) {
	metas, err := s.comics.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list comics: %w", err)
	}
	return metas, nil
}

func (s *Service) Delete(ctx context.Context, comicID, userID string) error {
	if _, err := s.Authorize(ctx, comicID, userID); err != nil {
		return err
	}
	if err := s.comics.Delete(ctx, comicID); err != nil {
		return fmt.Errorf("delete comic: %w", err)
	}
	return nil
}

// Document loads and decodes the latest snapshot.
func (s *Service) Document(ctx context.Context, comicID, userID string) (*comic.Comic, error) {
	if _, err := s.Authorize(ctx, comicID, userID); err != nil {
		return nil, err
	}
	blob, err := s.comics.Load(ctx, comicID)
	if err != nil {
		return nil, fmt.Errorf("load comic: %w", err)
	}
	doc, err := comic.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decode comic: %w", err)
	}
	return doc, nil
}

// ReplaceDocument validates blob and stores it as the next snapshot.
func (s *Service) ReplaceDocument(ctx context.Context, comicID, userID string, blob []byte) (*comic.Comic, error) {
	if _, err := s.Authorize(ctx, comicID, userID); err != nil {
		return nil, err
	}
	doc, err := comic.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if doc.ID != comicID {
		return nil, ErrMismatch
	}

	clean, err := comic.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode comic: %w", err)
	}
	if err := s.comics.Save(ctx, comicID, clean); err != nil {
		return nil, fmt.Errorf("save comic: %w", err)
	}
	return doc, nil
}
