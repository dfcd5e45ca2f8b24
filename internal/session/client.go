package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/inamate/panels/backend-go/internal/editor"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
)

// Client is one websocket connection editing a comic.
type Client struct {
	hub     *Hub
	room    *Room
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	logger  *slog.Logger

	UserID      string
	DisplayName string
	ComicID     string
	ClientID    string

	// owned by the room loop
	ctl       *editor.Controller
	lastFrame uint64
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			c.logger.Debug("read error", "error", err, "client", c.ClientID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid message", "error", err, "client", c.ClientID)
			continue
		}

		if !c.Submit(ctx, &msg) {
			return
		}
	}
}

// Submit stamps msg with the client's identity and queues it on the room.
// Pointer moves beyond the input rate are dropped; a pointer-up still
// carries the final position. It reports false once the room is gone.
func (c *Client) Submit(ctx context.Context, msg *Message) bool {
	if msg.Type == TypePointerMove && c.limiter != nil && !c.limiter.Allow() {
		return true
	}

	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.ComicID = c.ComicID

	return c.room.submit(ctx, c, msg)
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg without blocking. Only the room loop calls it.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal message", "error", err)
		return
	}
	c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn("client send buffer full, dropping message", "client", c.ClientID)
	}
}

func (c *Client) notify(level, kind, text string) {
	msg, err := newMessage(TypeNotify, NotifyPayload{Level: level, Kind: kind, Message: text})
	if err != nil {
		c.logger.Error("marshal notify", "error", err)
		return
	}
	c.Send(msg)
}
