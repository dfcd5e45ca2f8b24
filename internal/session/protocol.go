// Package session hosts live editing rooms over websockets. Each room owns
// one comic and applies every client's input on a single goroutine.
package session

import (
	"encoding/json"

	"github.com/inamate/panels/backend-go/internal/editor"
	"github.com/inamate/panels/backend-go/internal/engine"
	"github.com/inamate/panels/backend-go/internal/geom"
)

type Message struct {
	Type     string          `json:"type"`
	ComicID  string          `json:"comicId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client -> server input
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"
	TypeWheel       = "wheel"
	TypeKey         = "key"
	TypeModeSet     = "mode.set"
	TypeSelect      = "select"
	TypeTextSet     = "text.set"

	TypeLayerAdd      = "layer.add"
	TypeLayerRemove   = "layer.remove"
	TypeLayerReorder  = "layer.reorder"
	TypeLayerVisible  = "layer.visible"
	TypeLayerLocked   = "layer.locked"
	TypeLayerRename   = "layer.rename"
	TypeLayerActivate = "layer.activate"

	TypePageSet    = "page.set"
	TypePageAdd    = "page.add"
	TypePageRemove = "page.remove"

	TypeImageComplete = "image.complete"
	TypeImageCancel   = "image.cancel"
	TypeSave          = "save"
	TypeCursor        = "cursor"

	// Server -> client
	TypeWelcome      = "welcome"
	TypeFrame        = "frame"
	TypeNotify       = "notify"
	TypeImageRequest = "image.request"
	TypeError        = "error"

	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

type KeyPayload struct {
	Key editor.Key `json:"key"`
}

type ModePayload struct {
	Mode editor.Mode `json:"mode"`
}

type SelectPayload struct {
	IDs []string `json:"ids"`
}

type TextPayload struct {
	ElementID string `json:"elementId"`
	Text      string `json:"text"`
}

// LayerPayload carries every layer.* request; each type reads the fields it
// needs. Direction is "up" or "down".
type LayerPayload struct {
	LayerID   string `json:"layerId,omitempty"`
	Name      string `json:"name,omitempty"`
	Direction string `json:"direction,omitempty"`
	Visible   bool   `json:"visible,omitempty"`
	Locked    bool   `json:"locked,omitempty"`
}

type PagePayload struct {
	PageID string `json:"pageId,omitempty"`
	Name   string `json:"name,omitempty"`
}

type ImageCompletePayload struct {
	Token string `json:"token"`
	Ref   string `json:"ref"`
}

type ImageCancelPayload struct {
	Token string `json:"token"`
}

// CursorPayload is a surface-local pointer position.
type CursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	ComicID  string `json:"comicId"`
	Name     string `json:"name"`
}

type PageInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Visible  bool   `json:"visible"`
	Locked   bool   `json:"locked"`
	Elements int    `json:"elements"`
}

// FramePayload is everything a client needs to redraw its surface and its
// tool panels.
type FramePayload struct {
	Mode        editor.Mode  `json:"mode"`
	PageID      string       `json:"pageId"`
	ActiveLayer string       `json:"activeLayer"`
	Selection   []string     `json:"selection"`
	Pages       []PageInfo   `json:"pages"`
	Layers      []LayerInfo  `json:"layers"`
	Frame       engine.Frame `json:"frame"`
}

// Notify levels
const (
	LevelInfo  = "info"
	LevelError = "error"
)

type NotifyPayload struct {
	Level   string `json:"level"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PresencePayload struct {
	Cursor      *geom.Point `json:"cursor,omitempty"` // page space
	PageID      string      `json:"pageId,omitempty"`
	Selection   []string    `json:"selection,omitempty"`
	UserID      string      `json:"userId,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"` // clientID -> presence
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
