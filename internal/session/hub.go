package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/inamate/panels/backend-go/internal/editor"
)

// ErrClosed is returned by Join after Stop.
var ErrClosed = errors.New("session hub closed")

// Config tunes rooms and clients.
type Config struct {
	Autosave   time.Duration // 0 disables periodic saves
	InputRate  float64       // pointer moves per second per client, 0 disables limiting
	InputBurst int
}

// Hub owns the open rooms, one per comic being edited. A comic is in at most
// one of rooms, opening and closing at a time; a new room for it is only
// loaded once the previous one has finished its final save.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]*Room         // comicID -> room accepting clients
	opening map[string]chan struct{} // comicID -> closed when the load ends
	closing map[string]*Room         // comicID -> room saving on its way out
	closed  bool
	wg      sync.WaitGroup

	store  editor.PersistenceClient
	opts   editor.Options
	cfg    Config
	logger *slog.Logger
}

// NewHub returns a hub loading and saving comics through store. opts is the
// template for every client's controller; its Store, Picker and Notifier are
// replaced per room and client.
func NewHub(store editor.PersistenceClient, opts editor.Options, cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger
	return &Hub{
		rooms:   make(map[string]*Room),
		opening: make(map[string]chan struct{}),
		closing: make(map[string]*Room),
		store:   store,
		opts:    opts,
		cfg:     cfg,
		logger:  logger,
	}
}

// NewClient wraps an accepted connection. conn may be nil for clients driven
// through Submit directly.
func (h *Hub) NewClient(conn *websocket.Conn, userID, displayName, comicID string) *Client {
	c := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, 256),
		logger:      h.logger,
		UserID:      userID,
		DisplayName: displayName,
		ComicID:     comicID,
		ClientID:    uuid.NewString(),
	}
	if h.cfg.InputRate > 0 {
		burst := max(h.cfg.InputBurst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(h.cfg.InputRate), burst)
	}
	return c
}

// Join adds c to the room for its comic, opening the room and loading the
// comic when c is the first client. If the comic's previous room is still
// saving, Join waits for it so the load sees its final snapshot.
func (h *Hub) Join(ctx context.Context, c *Client) error {
	room, err := h.acquire(ctx, c.ComicID)
	if err != nil {
		return err
	}

	c.room = room
	select {
	case room.joins <- c:
		return nil
	case <-room.done:
		return ErrClosed
	}
}

// acquire returns the open room for comicID with a reference taken for the
// caller.
func (h *Hub) acquire(ctx context.Context, comicID string) (*Room, error) {
	for {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return nil, ErrClosed
		}
		if room, ok := h.rooms[comicID]; ok {
			room.refs++
			h.mu.Unlock()
			return room, nil
		}

		var wait <-chan struct{}
		if room, ok := h.closing[comicID]; ok {
			wait = room.done
		} else if ready, ok := h.opening[comicID]; ok {
			wait = ready
		}
		if wait != nil {
			h.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		ready := make(chan struct{})
		h.opening[comicID] = ready
		h.mu.Unlock()

		room, err := h.openRoom(ctx, comicID)

		h.mu.Lock()
		delete(h.opening, comicID)
		close(ready)
		switch {
		case err != nil:
			h.mu.Unlock()
			return nil, err
		case h.closed:
			h.mu.Unlock()
			return nil, ErrClosed
		}
		h.rooms[comicID] = room
		room.refs++
		h.wg.Add(1)
		go h.runRoom(room)
		h.mu.Unlock()
		return room, nil
	}
}

// runRoom runs the room loop and retires the room once its last save is done.
func (h *Hub) runRoom(room *Room) {
	defer h.wg.Done()
	room.run()

	h.mu.Lock()
	if h.closing[room.comicID] == room {
		delete(h.closing, room.comicID)
	}
	h.mu.Unlock()
	close(room.done)
}

func (h *Hub) openRoom(ctx context.Context, comicID string) (*Room, error) {
	room := newRoom(h, comicID)
	if err := room.load(ctx); err != nil {
		return nil, fmt.Errorf("open room %s: %w", comicID, err)
	}
	h.logger.Info("room opened", "comic", comicID)
	return room, nil
}

// Leave removes c from its room. The last client out closes the room, which
// saves any unsaved edits before the comic can be opened again.
func (h *Hub) Leave(c *Client) {
	room := c.room
	if room == nil {
		return
	}

	h.mu.Lock()
	room.refs--
	last := room.refs == 0
	if last && h.rooms[room.comicID] == room {
		delete(h.rooms, room.comicID)
		h.closing[room.comicID] = room
	}
	h.mu.Unlock()

	select {
	case room.leaves <- c:
	case <-room.done:
	}
	if last {
		room.close()
	}
}

// Rooms returns the ids of the comics currently open.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Sorted(maps.Keys(h.rooms))
}

// Stop closes every room, waiting for their final saves.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.closed = true
	rooms := slices.Collect(maps.Values(h.rooms))
	for id, r := range h.rooms {
		h.closing[id] = r
	}
	clear(h.rooms)
	h.mu.Unlock()

	for _, r := range rooms {
		r.close()
	}
	h.wg.Wait()
	h.logger.Info("session hub stopped", "rooms", len(rooms))
}
