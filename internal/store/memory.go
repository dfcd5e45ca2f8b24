package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

type memComic struct {
	meta      Meta
	snapshots [][]byte
}

// Memory is an in-process Store. Snapshots are kept in full.
type Memory struct {
	mu     sync.RWMutex
	comics map[string]*memComic
	users  map[string]User // id -> user
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		comics: make(map[string]*memComic),
		users:  make(map[string]User),
		now:    time.Now,
	}
}

func (m *Memory) Create(_ context.Context, meta Meta, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.comics[meta.ID]; ok {
		return ErrDuplicate
	}
	now := m.now()
	meta.Version = 1
	meta.Created = now
	meta.Modified = now
	m.comics[meta.ID] = &memComic{meta: meta, snapshots: [][]byte{slices.Clone(blob)}}
	return nil
}

func (m *Memory) Load(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.comics[id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(c.snapshots[len(c.snapshots)-1]), nil
}

func (m *Memory) Save(_ context.Context, id string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comics[id]
	if !ok {
		return ErrNotFound
	}
	c.snapshots = append(c.snapshots, slices.Clone(blob))
	c.meta.Version = len(c.snapshots)
	c.meta.Modified = m.now()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.comics[id]
	if !ok {
		return Meta{}, ErrNotFound
	}
	return c.meta, nil
}

// List returns the owner's comics, most recently modified first.
func (m *Memory) List(_ context.Context, ownerID string) ([]Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Meta, 0)
	for _, c := range m.comics {
		if c.meta.OwnerID == ownerID {
			out = append(out, c.meta)
		}
	}
	slices.SortFunc(out, func(a, b Meta) int {
		if c := b.Modified.Compare(a.Modified); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.comics[id]; !ok {
		return ErrNotFound
	}
	delete(m.comics, id)
	return nil
}

func (m *Memory) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	if u.Created.IsZero() {
		u.Created = m.now()
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) Close() error { return nil }
