package collab

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// PresenceManager tracks each user's cursor and selection in a room.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // userID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

// Update merges p into the user's presence. A nil cursor or selection keeps
// the previous value; an empty, non-nil selection clears it.
func (pm *PresenceManager) Update(userID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	merged := &PresencePayload{
		Cursor:      p.Cursor,
		Selection:   slices.Clone(p.Selection),
		DisplayName: p.DisplayName,
	}
	if prev, ok := pm.presences[userID]; ok {
		if merged.Cursor == nil {
			merged.Cursor = prev.Cursor
		}
		if p.Selection == nil {
			merged.Selection = prev.Selection
		}
	}
	pm.presences[userID] = merged
}

func (pm *PresenceManager) Remove(userID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, userID)
}

// Get returns the user's presence.
func (pm *PresenceManager) Get(userID string) (*PresencePayload, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.presences[userID]
	return p, ok
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return maps.Clone(pm.presences)
}

func (pm *PresenceManager) StateMessage() *Message {
	all := pm.GetAll()
	payload, err := json.Marshal(PresenceStatePayload{Presences: all})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypePresenceState,
		Payload: payload,
	}
}
