package realtime

import (
	"sort"
	"sync"
)

// registry maps rooms to joined sessions. A session that has disconnected can never be
// added to a room again.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	rooms    map[string]map[string]Session
	joined   map[string]map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]Session),
		rooms:    make(map[string]map[string]Session),
		joined:   make(map[string]map[string]struct{}),
	}
}

func (r *registry) connect(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// disconnect forgets the session and returns the rooms it had joined.
func (r *registry) disconnect(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	var rooms []string
	for roomID := range r.joined[id] {
		rooms = append(rooms, roomID)
		r.removeLocked(roomID, id)
	}
	delete(r.joined, id)
	sort.Strings(rooms)
	return rooms
}

// add reports false when the session is no longer connected.
func (r *registry) add(roomID string, s Session) (added bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, connected := r.sessions[s.ID()]; !connected {
		return false, false
	}
	members, exists := r.rooms[roomID]
	if !exists {
		members = make(map[string]Session)
		r.rooms[roomID] = members
	}
	if _, already := members[s.ID()]; already {
		return false, true
	}
	members[s.ID()] = s
	if r.joined[s.ID()] == nil {
		r.joined[s.ID()] = make(map[string]struct{})
	}
	r.joined[s.ID()][roomID] = struct{}{}
	return true, true
}

func (r *registry) remove(roomID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(roomID, sessionID)
}

func (r *registry) removeLocked(roomID, sessionID string) bool {
	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[sessionID]; !ok {
		return false
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
	if rooms, ok := r.joined[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.joined, sessionID)
		}
	}
	return true
}

func (r *registry) isMember(roomID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][sessionID]
	return ok
}

func (r *registry) members(roomID, exclude string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.rooms[roomID]))
	for id, s := range r.rooms[roomID] {
		if id != exclude {
			out = append(out, s)
		}
	}
	return out
}

func (r *registry) onlineUsers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, s := range r.rooms[roomID] {
		id := string(s.UserID())
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *registry) connected() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
