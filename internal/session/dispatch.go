package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inamate/panels/backend-go/internal/comic"
	"github.com/inamate/panels/backend-go/internal/editor"
	"github.com/inamate/panels/backend-go/internal/geom"
)

var (
	errBadPayload  = errors.New("bad payload")
	errUnknownType = errors.New("unknown message type")
)

func decode[T any](msg *Message) (T, error) {
	var v T
	if len(msg.Payload) == 0 {
		return v, fmt.Errorf("%s: %w: empty", msg.Type, errBadPayload)
	}
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("%s: %w: %v", msg.Type, errBadPayload, err)
	}
	return v, nil
}

func parseDirection(s string) (comic.Direction, error) {
	switch s {
	case "up":
		return comic.Up, nil
	case "down":
		return comic.Down, nil
	}
	return 0, fmt.Errorf("direction %q: %w", s, errBadPayload)
}

func (r *Room) apply(c *Client, msg *Message) error {
	ctl := c.ctl

	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		ev, err := decode[editor.PointerEvent](msg)
		if err != nil {
			return err
		}
		switch msg.Type {
		case TypePointerDown:
			return ctl.PointerDown(ev)
		case TypePointerMove:
			ctl.PointerMove(ev)
		default:
			return ctl.PointerUp(ev)
		}

	case TypeWheel:
		ev, err := decode[editor.WheelEvent](msg)
		if err != nil {
			return err
		}
		ctl.Wheel(ev)

	case TypeKey:
		p, err := decode[KeyPayload](msg)
		if err != nil {
			return err
		}
		ctl.Key(p.Key)

	case TypeModeSet:
		p, err := decode[ModePayload](msg)
		if err != nil {
			return err
		}
		if !p.Mode.Valid() {
			return fmt.Errorf("mode %q: %w", p.Mode, errBadPayload)
		}
		ctl.SetMode(p.Mode)

	case TypeSelect:
		p, err := decode[SelectPayload](msg)
		if err != nil {
			return err
		}
		ctl.Select(p.IDs)

	case TypeTextSet:
		p, err := decode[TextPayload](msg)
		if err != nil {
			return err
		}
		return ctl.SetText(p.ElementID, p.Text)

	case TypeLayerAdd, TypeLayerRemove, TypeLayerReorder, TypeLayerVisible,
		TypeLayerLocked, TypeLayerRename, TypeLayerActivate:
		p, err := decode[LayerPayload](msg)
		if err != nil {
			return err
		}
		return applyLayer(ctl, msg.Type, p)

	case TypePageSet:
		p, err := decode[PagePayload](msg)
		if err != nil {
			return err
		}
		return ctl.SetPage(p.PageID)

	case TypePageAdd:
		p, err := decode[PagePayload](msg)
		if err != nil {
			return err
		}
		ctl.AddPage(p.Name)

	case TypePageRemove:
		p, err := decode[PagePayload](msg)
		if err != nil {
			return err
		}
		return ctl.RemovePage(p.PageID)

	case TypeImageComplete:
		p, err := decode[ImageCompletePayload](msg)
		if err != nil {
			return err
		}
		_, err = ctl.CompleteImage(p.Token, p.Ref)
		return err

	case TypeImageCancel:
		p, err := decode[ImageCancelPayload](msg)
		if err != nil {
			return err
		}
		ctl.CancelImage(p.Token)

	case TypeSave:
		return r.save(ctl)

	case TypeCursor:
		p, err := decode[CursorPayload](msg)
		if err != nil {
			return err
		}
		at := ctl.View().ToModel(geom.Pt(p.X, p.Y))
		r.updatePresence(c, &at)

	default:
		return fmt.Errorf("%q: %w", msg.Type, errUnknownType)
	}
	return nil
}

func applyLayer(ctl *editor.Controller, typ string, p LayerPayload) error {
	switch typ {
	case TypeLayerAdd:
		ctl.AddLayer(p.Name)
		return nil
	case TypeLayerRemove:
		return ctl.RemoveLayer(p.LayerID)
	case TypeLayerReorder:
		dir, err := parseDirection(p.Direction)
		if err != nil {
			return err
		}
		return ctl.ReorderLayer(p.LayerID, dir)
	case TypeLayerVisible:
		return ctl.SetLayerVisible(p.LayerID, p.Visible)
	case TypeLayerLocked:
		return ctl.SetLayerLocked(p.LayerID, p.Locked)
	case TypeLayerRename:
		return ctl.RenameLayer(p.LayerID, p.Name)
	default:
		return ctl.SetActiveLayer(p.LayerID)
	}
}

func (r *Room) updatePresence(c *Client, cursor *geom.Point) {
	p := r.presence.Update(c.ClientID, c.ctl.Page().ID, cursor, c.ctl.Selection())
	if p == nil {
		return
	}
	msg, err := newMessage(TypePresenceUpdate, p)
	if err != nil {
		r.logger.Error("marshal presence", "error", err)
		return
	}
	msg.ClientID = c.ClientID
	r.broadcast(msg, c.ClientID)
}
