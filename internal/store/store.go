// Package store persists comics as versioned snapshots and keeps the user
// accounts that own them.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Meta is the library view of a stored comic.
type Meta struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	OwnerID  string    `json:"ownerId"`
	Version  int       `json:"version"`
	Created  time.Time `json:"createdAt"`
	Modified time.Time `json:"updatedAt"`
}

// User is a stored account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Created      time.Time
}

// Comics stores comic documents. Save appends a snapshot with the next
// version number; Load returns the latest.
type Comics interface {
	Create(ctx context.Context, meta Meta, blob []byte) error
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, blob []byte) error
	Get(ctx context.Context, id string) (Meta, error)
	List(ctx context.Context, ownerID string) ([]Meta, error)
	Delete(ctx context.Context, id string) error
}

// Users stores accounts. CreateUser returns ErrDuplicate for a taken email.
type Users interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}

// Store is a complete backend.
type Store interface {
	Comics
	Users
	Close() error
}
