package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/editor"
)

type inbound struct {
	client *Client
	msg    *Message
}

// Room is one open comic. Its loop goroutine owns the comic, every client
// controller and the presence table.
type Room struct {
	hub     *Hub
	comicID string
	logger  *slog.Logger

	refs int // guarded by hub.mu

	doc       *comic.Comic
	saver     *editor.Controller
	savedHash uint64
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager

	joins  chan *Client
	leaves chan *Client
	inbox  chan inbound
	saved  chan editor.SaveResult
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newRoom(h *Hub, comicID string) *Room {
	return &Room{
		hub:      h,
		comicID:  comicID,
		logger:   h.logger.With("comic", comicID),
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
		joins:    make(chan *Client),
		leaves:   make(chan *Client),
		inbox:    make(chan inbound, 64),
		saved:    make(chan editor.SaveResult, 8),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *Room) options() editor.Options {
	opts := r.hub.opts
	opts.Store = r.hub.store
	opts.Notifier = editor.NotifierFunc(func(res editor.SaveResult) {
		select {
		case r.saved <- res:
		case <-r.done:
		}
	})
	opts.Picker = nil
	return opts
}

// load reads the comic through a controller that later serves the room's
// own saves.
func (r *Room) load(ctx context.Context) error {
	r.saver = editor.New(comic.NewComic(""), r.options())
	if err := r.saver.Load(ctx, r.comicID); err != nil {
		return err
	}
	r.doc = r.saver.Comic()
	r.savedHash = r.fingerprint()
	return nil
}

func (r *Room) fingerprint() uint64 {
	blob, err := comic.Encode(r.doc)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(blob)
}

func (r *Room) close() {
	r.once.Do(func() { close(r.quit) })
}

func (r *Room) submit(ctx context.Context, c *Client, msg *Message) bool {
	select {
	case r.inbox <- inbound{client: c, msg: msg}:
		return true
	case <-r.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// run owns the room until it is closed. The hub closes done after run
// returns.
func (r *Room) run() {
	var tick <-chan time.Time
	if d := r.hub.cfg.Autosave; d > 0 {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case c := <-r.joins:
			r.addClient(c)
		case c := <-r.leaves:
			r.removeClient(c)
		case in := <-r.inbox:
			r.handle(in.client, in.msg)
			r.refresh()
		case res := <-r.saved:
			r.announceSave(res)
		case <-tick:
			r.saveIfDirty()
		case <-r.quit:
			r.shutdown()
			return
		}
	}
}

func (r *Room) addClient(c *Client) {
	opts := r.options()
	opts.Picker = editor.ImagePickerFunc(func(req editor.ImageRequest) {
		msg, err := newMessage(TypeImageRequest, req)
		if err != nil {
			r.logger.Error("marshal image request", "error", err)
			return
		}
		c.Send(msg)
	})
	c.ctl = editor.New(r.doc, opts)
	r.clients[c.ClientID] = c
	r.presence.Join(c)

	if msg, err := newMessage(TypeWelcome, WelcomePayload{
		ClientID: c.ClientID,
		ComicID:  r.comicID,
		Name:     r.doc.Name,
	}); err == nil {
		c.Send(msg)
	}
	if msg, err := r.presence.StateMessage(); err == nil {
		c.Send(msg)
	}
	if msg, err := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    c.ClientID,
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
	}); err == nil {
		r.broadcast(msg, c.ClientID)
	}
	r.sendFrame(c)

	r.logger.Info("client joined", "client", c.ClientID, "user", c.UserID)
}

func (r *Room) removeClient(c *Client) {
	if _, ok := r.clients[c.ClientID]; !ok {
		return
	}
	delete(r.clients, c.ClientID)
	r.presence.Remove(c.ClientID)
	close(c.send)

	if msg, err := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: c.ClientID}); err == nil {
		r.broadcast(msg, "")
	}
	r.logger.Info("client left", "client", c.ClientID, "user", c.UserID)
}

func (r *Room) shutdown() {
	r.saveIfDirty()

	waited := make(chan struct{})
	go func() {
		defer close(waited)
		r.saver.WaitSaves()
		for _, c := range r.clients {
			c.ctl.WaitSaves()
		}
	}()
	for pending := true; pending; {
		select {
		case res := <-r.saved:
			r.announceSave(res)
		case <-waited:
			pending = false
		}
	}
	for len(r.saved) > 0 {
		r.announceSave(<-r.saved)
	}

	for _, c := range r.clients {
		close(c.send)
	}
	clear(r.clients)
	r.logger.Info("room closed")
}

func (r *Room) broadcast(msg *Message, exclude string) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal broadcast", "error", err)
		return
	}
	for id, c := range r.clients {
		if id != exclude {
			c.sendRaw(data)
		}
	}
}

// saveIfDirty saves when the comic differs from what was last written.
func (r *Room) saveIfDirty() {
	if r.fingerprint() == r.savedHash {
		return
	}
	r.save(r.saver)
}

func (r *Room) save(ctl *editor.Controller) error {
	if err := ctl.Save(context.Background()); err != nil {
		r.logger.Error("save comic", "error", err)
		return err
	}
	r.savedHash = r.fingerprint()
	return nil
}

func (r *Room) announceSave(res editor.SaveResult) {
	if res.Err != nil {
		for _, c := range r.clients {
			c.notify(LevelError, TypeSave, res.Err.Error())
		}
		// force the next autosave to retry
		r.savedHash = 0
		return
	}
	msg, err := newMessage(TypeNotify, NotifyPayload{
		Level:   LevelInfo,
		Kind:    TypeSave,
		Message: fmt.Sprintf("saved at %s", res.Modified.Format(time.RFC3339)),
	})
	if err == nil {
		r.broadcast(msg, "")
	}
}

// refresh reconciles every controller with edits made through the others and
// sends each client its frame if it changed.
func (r *Room) refresh() {
	for _, c := range r.clients {
		c.ctl.Refresh()
		r.sendFrame(c)
	}
}

func (r *Room) sendFrame(c *Client) {
	data, err := json.Marshal(r.framePayload(c.ctl))
	if err != nil {
		r.logger.Error("marshal frame", "error", err, "client", c.ClientID)
		return
	}
	sum := xxhash.Sum64(data)
	if sum == c.lastFrame {
		return
	}
	c.lastFrame = sum
	c.Send(&Message{Type: TypeFrame, ComicID: r.comicID, Payload: data})
}

func (r *Room) framePayload(ctl *editor.Controller) FramePayload {
	page := ctl.Page()
	fp := FramePayload{
		Mode:        ctl.Mode(),
		PageID:      page.ID,
		ActiveLayer: ctl.ActiveLayer(),
		Selection:   ctl.Selection(),
		Pages:       make([]PageInfo, 0, len(r.doc.Pages)),
		Layers:      make([]LayerInfo, 0, len(page.Layers)),
		Frame:       ctl.Render(),
	}
	for _, p := range r.doc.Pages {
		fp.Pages = append(fp.Pages, PageInfo{ID: p.ID, Name: p.Name})
	}
	for _, l := range page.Layers {
		fp.Layers = append(fp.Layers, LayerInfo{
			ID:       l.ID,
			Name:     l.Name,
			Visible:  l.Visible,
			Locked:   l.Locked,
			Elements: len(l.ElementIDs),
		})
	}
	return fp
}

// handle applies one client message. Rejected edits are reported to the
// sender only.
func (r *Room) handle(c *Client, msg *Message) {
	if _, ok := r.clients[c.ClientID]; !ok {
		return
	}
	if err := r.apply(c, msg); err != nil {
		var lne *comic.LayerNotEmptyError
		code := "rejected"
		switch {
		case errors.Is(err, errBadPayload):
			code = "bad_payload"
		case errors.Is(err, errUnknownType):
			code = "unknown_type"
		case errors.Is(err, editor.ErrLayerLocked):
			code = "layer_locked"
		case errors.As(err, &lne):
			code = "layer_not_empty"
		}
		r.logger.Debug("message rejected", "type", msg.Type, "client", c.ClientID, "error", err)
		if out, mErr := newMessage(TypeError, ErrorPayload{Code: code, Message: err.Error()}); mErr == nil {
			out.Seq = msg.Seq
			c.Send(out)
		}
	}
}
