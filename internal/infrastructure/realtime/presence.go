package realtime

import (
	"errors"
	"sync"
)

// BatchQueryLimit caps how many user ids a single presence query may carry.
const BatchQueryLimit = 200

// ErrBatchSize is returned for presence queries with 0 or more than
// BatchQueryLimit ids. It is a validation failure, not a protocol one.
var ErrBatchSize = errors.New("presence: batch must contain between 1 and 200 user ids")

// PresenceStatus is one entry of a batch query result.
type PresenceStatus struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// Presence tracks which users currently hold at least one live connection.
// State lives only in memory and is rebuilt from zero on restart. The registry
// is the single place where 0<->1 connection transitions are detected, so
// callers can broadcast online/offline events exactly once regardless of how
// many devices a user has open.
type Presence struct {
	mu    sync.Mutex
	conns map[string]map[string]struct{} // userID -> set of connection IDs
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[string]map[string]struct{})}
}

// AddConnection registers a live connection. It returns true only when this is
// the user's first live connection, i.e. the user just came online.
func (p *Presence) AddConnection(userID, connID string) (wasOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.conns[userID]
	if set == nil {
		set = make(map[string]struct{})
		p.conns[userID] = set
	}
	wasOffline = len(set) == 0
	set[connID] = struct{}{}
	return wasOffline
}

// RemoveConnection deregisters a connection. It returns true only when this
// removal empties the user's connection set, i.e. the user just went offline.
// Removing an unknown connection never reports a transition, which makes
// duplicate disconnect signals safe.
func (p *Presence) RemoveConnection(userID, connID string) (becameOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.conns[userID]
	if set == nil {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.conns, userID)
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one live connection.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[userID]) > 0
}

// BatchQuery answers online state for up to BatchQueryLimit user ids.
// Duplicate ids collapse to a single entry.
func (p *Presence) BatchQuery(userIDs []string) ([]PresenceStatus, error) {
	if len(userIDs) == 0 || len(userIDs) > BatchQueryLimit {
		return nil, ErrBatchSize
	}

	seen := make(map[string]struct{}, len(userIDs))
	out := make([]PresenceStatus, 0, len(userIDs))

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, PresenceStatus{UserID: id, IsOnline: len(p.conns[id]) > 0})
	}
	return out, nil
}
