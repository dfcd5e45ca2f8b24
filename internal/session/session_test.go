package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/editor"
	"github.com/inamate/panels/backend-go/internal/engine"
	"github.com/inamate/panels/backend-go/internal/geom"
	"github.com/inamate/panels/backend-go/internal/store"
)

const waitTimeout = 2 * time.Second

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHub(t *testing.T, cfg Config) (*Hub, *store.Memory, string) {
	t.Helper()
	mem := store.NewMemory()
	doc := comic.NewComic("Session")
	blob, err := comic.Encode(doc)
	require.NoError(t, err)
	require.NoError(t, mem.Create(context.Background(), store.Meta{ID: doc.ID, Name: doc.Name, OwnerID: "user_1"}, blob))

	h := NewHub(mem, editor.DefaultOptions(), cfg, quietLogger())
	return h, mem, doc.ID
}

func join(t *testing.T, h *Hub, comicID, user string) *Client {
	t.Helper()
	c := h.NewClient(nil, user, user, comicID)
	require.NoError(t, h.Join(context.Background(), c))
	return c
}

// next reads c's outbox until a message of type typ arrives.
func next(t *testing.T, c *Client, typ string) *Message {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case data, ok := <-c.send:
			require.True(t, ok, "send channel closed waiting for %s", typ)
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == typ {
				return &msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

// drain reads c's outbox up to the error answering an unknown message.
func drain(t *testing.T, c *Client) []*Message {
	t.Helper()
	submit(t, c, "sync.ping", nil)
	var out []*Message
	deadline := time.After(waitTimeout)
	for {
		select {
		case data := <-c.send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == TypeError {
				return out
			}
			out = append(out, &msg)
		case <-deadline:
			t.Fatal("timed out draining")
		}
	}
}

func submit(t *testing.T, c *Client, typ string, payload any) {
	t.Helper()
	msg := &Message{Type: typ}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = data
	}
	require.True(t, c.Submit(context.Background(), msg))
}

func frameOf(t *testing.T, msg *Message) FramePayload {
	t.Helper()
	var fp FramePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &fp))
	return fp
}

func pointer(x, y float64) editor.PointerEvent {
	return editor.PointerEvent{Point: geom.Pt(x, y)}
}

func TestJoin_WelcomePresenceAndFrame(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	c := join(t, h, id, "alice")

	var welcome WelcomePayload
	require.NoError(t, json.Unmarshal(next(t, c, TypeWelcome).Payload, &welcome))
	assert.Equal(t, c.ClientID, welcome.ClientID)
	assert.Equal(t, "Session", welcome.Name)

	var state PresenceStatePayload
	require.NoError(t, json.Unmarshal(next(t, c, TypePresenceState).Payload, &state))
	assert.Contains(t, state.Presences, c.ClientID)

	fp := frameOf(t, next(t, c, TypeFrame))
	assert.Equal(t, editor.ModeSelect, fp.Mode)
	assert.Len(t, fp.Pages, 1)
	assert.Len(t, fp.Layers, 4)
	assert.Equal(t, []string{id}, h.Rooms())
}

func TestJoin_UnknownComic(t *testing.T) {
	h, _, _ := newHub(t, Config{})
	defer h.Stop()

	c := h.NewClient(nil, "alice", "Alice", "comic_missing")
	err := h.Join(context.Background(), c)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, h.Rooms())
}

func TestDraw_BroadcastsToOtherClients(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	a := join(t, h, id, "alice")
	b := join(t, h, id, "bob")
	next(t, a, TypePresenceJoin)
	drain(t, b)

	submit(t, a, TypeModeSet, ModePayload{Mode: editor.ModeDrawBorder})
	submit(t, a, TypePointerDown, pointer(10, 10))
	submit(t, a, TypePointerMove, pointer(100, 10))
	submit(t, a, TypePointerUp, pointer(200, 10))

	var last FramePayload
	for _, msg := range drain(t, b) {
		if msg.Type == TypeFrame {
			last = frameOf(t, msg)
		}
	}
	require.NotEmpty(t, last.Layers)
	top := last.Layers[len(last.Layers)-1]
	assert.Equal(t, 1, top.Elements)
	assert.Equal(t, editor.ModeSelect, last.Mode, "modes are per client")
}

func TestFrame_UnchangedFramesAreSkipped(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	c := join(t, h, id, "alice")
	drain(t, c)

	submit(t, c, TypeCursor, CursorPayload{X: 5, Y: 5})
	submit(t, c, TypeKey, KeyPayload{Key: editor.KeyEscape})
	for _, msg := range drain(t, c) {
		assert.NotEqual(t, TypeFrame, msg.Type)
	}

	submit(t, c, TypeWheel, editor.WheelEvent{Point: geom.Pt(0, 0), DeltaY: -100})
	fp := frameOf(t, next(t, c, TypeFrame))
	assert.Greater(t, fp.Frame.Zoom, 1.0)
}

func TestCursor_PresenceInPageSpace(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	a := join(t, h, id, "alice")
	b := join(t, h, id, "bob")
	drain(t, b)

	submit(t, a, TypeCursor, CursorPayload{X: 30, Y: 40})

	msg := next(t, b, TypePresenceUpdate)
	assert.Equal(t, a.ClientID, msg.ClientID)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	require.NotNil(t, p.Cursor)
	assert.Equal(t, geom.Pt(30, 40), *p.Cursor)
	assert.Equal(t, "alice", p.UserID)
}

func TestErrors_ReportedToSender(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	c := join(t, h, id, "alice")
	drain(t, c)

	tests := []struct {
		name    string
		typ     string
		payload any
		code    string
	}{
		{"unknown type", "teleport", map[string]int{"x": 1}, "unknown_type"},
		{"missing payload", TypeWheel, nil, "bad_payload"},
		{"bad mode", TypeModeSet, ModePayload{Mode: "lasso"}, "bad_payload"},
		{"bad direction", TypeLayerReorder, LayerPayload{LayerID: "x", Direction: "sideways"}, "bad_payload"},
		{"missing layer", TypeLayerRename, LayerPayload{LayerID: "layer_nope", Name: "x"}, "rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submit(t, c, tt.typ, tt.payload)
			var p ErrorPayload
			require.NoError(t, json.Unmarshal(next(t, c, TypeError).Payload, &p))
			assert.Equal(t, tt.code, p.Code)
		})
	}
}

func TestLayers_LockedAndNotEmpty(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	c := join(t, h, id, "alice")
	fp := frameOf(t, next(t, c, TypeFrame))
	top := fp.ActiveLayer

	submit(t, c, TypeLayerLocked, LayerPayload{LayerID: top, Locked: true})
	submit(t, c, TypeModeSet, ModePayload{Mode: editor.ModeText})
	submit(t, c, TypePointerDown, pointer(10, 10))
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(next(t, c, TypeError).Payload, &p))
	assert.Equal(t, "layer_locked", p.Code)

	submit(t, c, TypeLayerLocked, LayerPayload{LayerID: top, Locked: false})
	submit(t, c, TypePointerDown, pointer(10, 10))
	submit(t, c, TypeLayerRemove, LayerPayload{LayerID: top})
	require.NoError(t, json.Unmarshal(next(t, c, TypeError).Payload, &p))
	assert.Equal(t, "layer_not_empty", p.Code)
}

func TestImage_RequestAndComplete(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	c := join(t, h, id, "alice")
	drain(t, c)

	submit(t, c, TypeModeSet, ModePayload{Mode: editor.ModeAddImage})
	submit(t, c, TypePointerDown, pointer(50, 60))

	var req editor.ImageRequest
	require.NoError(t, json.Unmarshal(next(t, c, TypeImageRequest).Payload, &req))
	assert.Equal(t, geom.Pt(50, 60), req.At)

	submit(t, c, TypeImageComplete, ImageCompletePayload{Token: req.Token, Ref: "/assets/cat.png"})
	var fp FramePayload
	for _, msg := range drain(t, c) {
		if msg.Type == TypeFrame {
			fp = frameOf(t, msg)
		}
	}
	require.Len(t, fp.Selection, 1)
	_, ok := fp.Frame.Find(fp.Selection[0], engine.OpImage)
	assert.True(t, ok)
}

func TestPages_RemovedPageFallsBackForOthers(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	a := join(t, h, id, "alice")
	b := join(t, h, id, "bob")
	first := frameOf(t, next(t, b, TypeFrame)).PageID
	drain(t, a)

	submit(t, a, TypePageAdd, PagePayload{Name: "Two"})
	second := frameOf(t, next(t, a, TypeFrame)).PageID
	require.NotEqual(t, first, second)

	submit(t, b, TypePageSet, PagePayload{PageID: second})
	submit(t, a, TypePageRemove, PagePayload{PageID: second})

	var last FramePayload
	for _, msg := range drain(t, b) {
		if msg.Type == TypeFrame {
			last = frameOf(t, msg)
		}
	}
	assert.Equal(t, first, last.PageID)
	assert.Len(t, last.Pages, 1)
}

func TestSave_NotifiesAndPersists(t *testing.T) {
	h, mem, id := newHub(t, Config{})
	defer h.Stop()

	c := join(t, h, id, "alice")
	submit(t, c, TypeSave, nil)

	var n NotifyPayload
	require.NoError(t, json.Unmarshal(next(t, c, TypeNotify).Payload, &n))
	assert.Equal(t, LevelInfo, n.Level)
	assert.Equal(t, TypeSave, n.Kind)

	meta, err := mem.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Version)
}

func TestLeave_LastClientSavesEdits(t *testing.T) {
	h, mem, id := newHub(t, Config{})

	c := join(t, h, id, "alice")
	submit(t, c, TypeLayerAdd, LayerPayload{Name: "Inks"})
	drain(t, c)

	h.Leave(c)
	h.Stop()

	assert.Empty(t, h.Rooms())
	blob, err := mem.Load(context.Background(), id)
	require.NoError(t, err)
	doc, err := comic.Decode(blob)
	require.NoError(t, err)
	require.Len(t, doc.Pages[0].Layers, 5)
	assert.Equal(t, "Inks", doc.Pages[0].Layers[4].Name)
}

func TestLeave_UntouchedComicNotSaved(t *testing.T) {
	h, mem, id := newHub(t, Config{})

	c := join(t, h, id, "alice")
	h.Leave(c)
	h.Stop()

	meta, err := mem.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Version)
}

func TestStop_RejectsNewClients(t *testing.T) {
	h, _, id := newHub(t, Config{})
	h.Stop()

	c := h.NewClient(nil, "alice", "Alice", id)
	assert.ErrorIs(t, h.Join(context.Background(), c), ErrClosed)
}

func TestSubmit_PointerMovesRateLimited(t *testing.T) {
	h, _, id := newHub(t, Config{InputRate: 0.001, InputBurst: 1})
	defer h.Stop()

	c := join(t, h, id, "alice")
	submit(t, c, TypeModeSet, ModePayload{Mode: editor.ModeDrawBorder})
	submit(t, c, TypePointerDown, pointer(0, 0))
	submit(t, c, TypePointerMove, pointer(10, 0))
	submit(t, c, TypePointerMove, pointer(20, 0))
	submit(t, c, TypePointerMove, pointer(30, 0))
	submit(t, c, TypePointerUp, pointer(40, 0))
	drain(t, c)

	h.Leave(c)
	h.Stop()
	assert.Len(t, c.ctl.Page().Borders[0].Points, 3)
}

// slowStore delays every load and save so room openings and final saves
// overlap with other clients joining.
type slowStore struct {
	*store.Memory
	delay time.Duration
	loads atomic.Int32
}

func (s *slowStore) Load(ctx context.Context, id string) ([]byte, error) {
	s.loads.Add(1)
	time.Sleep(s.delay)
	return s.Memory.Load(ctx, id)
}

func (s *slowStore) Save(ctx context.Context, id string, blob []byte) error {
	time.Sleep(s.delay)
	return s.Memory.Save(ctx, id, blob)
}

func newSlowHub(t *testing.T, delay time.Duration) (*Hub, *slowStore, string) {
	t.Helper()
	_, mem, id := newHub(t, Config{})
	slow := &slowStore{Memory: mem, delay: delay}
	return NewHub(slow, editor.DefaultOptions(), Config{}, quietLogger()), slow, id
}

func layerNames(doc *comic.Comic) []string {
	var names []string
	for _, l := range doc.Pages[0].Layers {
		names = append(names, l.Name)
	}
	return names
}

func TestLeave_RejoinWaitsForFinalSave(t *testing.T) {
	h, slow, id := newSlowHub(t, 50*time.Millisecond)

	alice := join(t, h, id, "alice")
	submit(t, alice, TypeLayerAdd, LayerPayload{Name: "Inks"})
	drain(t, alice)
	h.Leave(alice)

	bob := join(t, h, id, "bob")
	fp := frameOf(t, next(t, bob, TypeFrame))
	assert.Len(t, fp.Layers, 5)

	submit(t, bob, TypeLayerAdd, LayerPayload{Name: "Bob"})
	drain(t, bob)
	h.Leave(bob)
	h.Stop()

	blob, err := slow.Memory.Load(context.Background(), id)
	require.NoError(t, err)
	doc, err := comic.Decode(blob)
	require.NoError(t, err)
	names := layerNames(doc)
	assert.Contains(t, names, "Inks")
	assert.Contains(t, names, "Bob")
	assert.Empty(t, h.Rooms())
}

func TestJoin_ConcurrentFirstClientsShareOneRoom(t *testing.T) {
	h, slow, id := newSlowHub(t, 30*time.Millisecond)
	defer h.Stop()

	clients := make([]*Client, 4)
	errs := make([]error, len(clients))
	var wg sync.WaitGroup
	for i := range clients {
		clients[i] = h.NewClient(nil, "user", "User", id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = h.Join(context.Background(), clients[i])
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), slow.loads.Load())
	for _, c := range clients[1:] {
		assert.Same(t, clients[0].room, c.room)
	}
	assert.Equal(t, []string{id}, h.Rooms())
}

func TestJoin_CancelledWhileRoomCloses(t *testing.T) {
	h, _, id := newSlowHub(t, 200*time.Millisecond)
	defer h.Stop()

	alice := join(t, h, id, "alice")
	submit(t, alice, TypeLayerAdd, LayerPayload{Name: "Inks"})
	drain(t, alice)
	h.Leave(alice)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	bob := h.NewClient(nil, "bob", "Bob", id)
	assert.ErrorIs(t, h.Join(ctx, bob), context.DeadlineExceeded)
}

func TestSave_FailureNotifiesEveryClient(t *testing.T) {
	h, _, id := newHub(t, Config{})
	defer h.Stop()

	alice := join(t, h, id, "alice")
	bob := join(t, h, id, "bob")
	drain(t, alice)
	drain(t, bob)

	alice.room.saved <- editor.SaveResult{ComicID: id, Err: errors.New("disk full")}
	for _, c := range []*Client{alice, bob} {
		var n NotifyPayload
		require.NoError(t, json.Unmarshal(next(t, c, TypeNotify).Payload, &n))
		assert.Equal(t, LevelError, n.Level)
		assert.Equal(t, TypeSave, n.Kind)
		assert.Equal(t, "disk full", n.Message)
	}
}
