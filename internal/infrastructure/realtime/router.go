package realtime

import (
	"sync"
)

// Router coordinates websocket sessions and logical rooms. A room exists per
// conversation, plus an implicit personal channel per user reached through
// NotifyUser. Unlike a single-session hub, a user may have any number of
// simultaneous connections; all of them receive personal notifications and
// room traffic independently.
type Router struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection            // sessionID -> connection
	userSessions map[string]map[string]struct{}    // userID -> set of sessionIDs
	rooms        map[string]map[string]*Connection // conversationID -> sessionID -> connection
	sessionRooms map[string]map[string]struct{}    // sessionID -> set of conversationIDs
}

func NewRouter() *Router {
	return &Router{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[string]map[string]struct{}),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection. Existing sessions of the same user are left
// alone; multi-device is expected. The caller starts the write loop.
func (r *Router) Attach(conn *Connection) {
	r.mu.Lock()
	r.sessions[conn.ID] = conn
	userSet := r.userSessions[conn.UserID()]
	if userSet == nil {
		userSet = make(map[string]struct{})
		r.userSessions[conn.UserID()] = userSet
	}
	userSet[conn.ID] = struct{}{}
	r.sessionRooms[conn.ID] = make(map[string]struct{})
	r.mu.Unlock()
}

// Detach removes a connection from all rooms and from its user's session set.
// Detaching an unknown connection is a no-op, so duplicate disconnect signals
// from the transport are harmless.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.ID)
	r.mu.Unlock()
}

// Join adds the connection to the conversation room. The caller is expected to
// have checked access already; the router itself is transport-only.
func (r *Router) Join(conversationID string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn.ID]; !ok {
		return
	}

	room := r.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[conversationID] = room
	}
	room[conn.ID] = conn

	memberships := r.sessionRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		r.sessionRooms[conn.ID] = memberships
	}
	memberships[conversationID] = struct{}{}
}

// Leave removes the connection from the conversation room. Leaving requires no
// access check.
func (r *Router) Leave(conversationID string, conn *Connection) {
	r.mu.Lock()
	r.leaveLocked(conversationID, conn.ID)
	r.mu.Unlock()
}

// InRoom reports whether the connection is currently joined to the room.
func (r *Router) InRoom(conversationID string, conn *Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[conversationID][conn.ID]
	return ok
}

// UserInRoom reports whether any connection of the user is joined to the room.
func (r *Router) UserInRoom(conversationID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conn := range r.rooms[conversationID] {
		if conn.UserID() == userID {
			return true
		}
	}
	return false
}

// Broadcast writes payload to every member of the conversation room.
// excludeUserID, when non-empty, skips all connections of that user.
// Returns the number of connections the payload was handed to.
func (r *Router) Broadcast(conversationID string, payload []byte, excludeUserID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[conversationID]
	if len(room) == 0 {
		return 0
	}

	delivered := 0
	for _, conn := range room {
		if excludeUserID != "" && conn.UserID() == excludeUserID {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// NotifyUser delivers payload on the user's personal channel, i.e. to every
// live connection of that user. Returns true if at least one delivery was
// accepted.
func (r *Router) NotifyUser(userID string, payload []byte) bool {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.userSessions[userID]))
	for sessionID := range r.userSessions[userID] {
		if conn := r.sessions[sessionID]; conn != nil {
			conns = append(conns, conn)
		}
	}
	r.mu.RUnlock()

	ok := false
	for _, conn := range conns {
		if conn.Send(payload) == nil {
			ok = true
		}
	}
	return ok
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	sessions := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		sessions = append(sessions, conn)
	}
	r.sessions = make(map[string]*Connection)
	r.userSessions = make(map[string]map[string]struct{})
	r.rooms = make(map[string]map[string]*Connection)
	r.sessionRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "router shutdown")
	}
}

func (r *Router) detachLocked(sessionID string) {
	conn, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)

	if userSet, ok := r.userSessions[conn.UserID()]; ok {
		delete(userSet, sessionID)
		if len(userSet) == 0 {
			delete(r.userSessions, conn.UserID())
		}
	}

	for roomID := range r.sessionRooms[sessionID] {
		r.leaveLocked(roomID, sessionID)
	}
	delete(r.sessionRooms, sessionID)
}

func (r *Router) leaveLocked(conversationID string, sessionID string) {
	room := r.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, conversationID)
	}
	if memberships, ok := r.sessionRooms[sessionID]; ok {
		delete(memberships, conversationID)
	}
}
