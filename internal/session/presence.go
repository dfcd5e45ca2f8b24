package session

import (
	"maps"

	"github.com/inamate/panels/backend-go/internal/geom"
)

// PresenceManager tracks where each client in a room is pointing. It is
// owned by the room loop.
type PresenceManager struct {
	presences map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Join(c *Client) {
	pm.presences[c.ClientID] = &PresencePayload{
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
	}
}

// Update records a client's cursor, page and selection and returns the new
// presence, or nil for a client that never joined.
func (pm *PresenceManager) Update(clientID, pageID string, cursor *geom.Point, selection []string) *PresencePayload {
	p, ok := pm.presences[clientID]
	if !ok {
		return nil
	}
	if cursor != nil {
		p.Cursor = cursor
	}
	p.PageID = pageID
	p.Selection = selection
	return p
}

func (pm *PresenceManager) Remove(clientID string) {
	delete(pm.presences, clientID)
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	return maps.Clone(pm.presences)
}

func (pm *PresenceManager) StateMessage() (*Message, error) {
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
}
