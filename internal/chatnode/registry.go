package chatnode

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Registry is the guarded table of every chatroom currently hosted on
// this node, grounded on the teacher's shard-registry guarded-map
// pattern (internal/coordinator/shard_registry.go), generalized here to
// chatrooms with a per-connection close step instead of shard stores.
type Registry struct {
	log *zap.Logger

	mu    sync.RWMutex
	rooms map[string]*Chatroom
	conns map[string]map[string]net.Conn // chatroom -> username -> conn
}

// NewRegistry builds an empty chatroom registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		log:   log,
		rooms: make(map[string]*Chatroom),
		conns: make(map[string]map[string]net.Conn),
	}
}

// Create adds a brand-new, empty chatroom to the registry. It fails if a
// chatroom with this name is already hosted here.
func (r *Registry) Create(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[name]; ok {
		return fmt.Errorf("A chatroom with this name already exists")
	}
	r.rooms[name] = NewChatroom(name, r.log)
	r.conns[name] = make(map[string]net.Conn)
	return nil
}

// Get returns the hosted chatroom by name, or false if it isn't hosted
// here.
func (r *Registry) Get(name string) (*Chatroom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	return room, ok
}

// Delete tears name down: writes the close sentinel to every subscriber,
// closes their connections, and removes the room from the registry.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	room, ok := r.rooms[name]
	conns := r.conns[name]
	delete(r.rooms, name)
	delete(r.conns, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("chatroom %q is not hosted here", name)
	}

	for _, username := range room.CloseRoom() {
		if conn, ok := conns[username]; ok {
			conn.Close()
		}
	}
	return nil
}

// TrackConn associates username's live connection with chatroom name so
// Delete can close it later. Called once, immediately after a successful
// Chatroom.Subscribe.
func (r *Registry) TrackConn(chatroom, username string, conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[chatroom] == nil {
		r.conns[chatroom] = make(map[string]net.Conn)
	}
	r.conns[chatroom][username] = conn
}

// UntrackConn removes the tracked connection for username in chatroom,
// called on leaveChatroom or stream EOF so Delete never double-closes it.
func (r *Registry) UntrackConn(chatroom, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns[chatroom], username)
}

// CloseAllConnections closes every live subscriber connection across
// every hosted chatroom, without otherwise touching the rooms
// themselves. A clean process shutdown calls this so subscribers see
// their stream drop immediately instead of discovering the chat node is
// gone only once their next read times out.
func (r *Registry) CloseAllConnections() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, byUser := range r.conns {
		for _, conn := range byUser {
			conn.Close()
		}
	}
}

// Names lists every chatroom name hosted on this node, in no particular
// order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	return names
}

// Count reports the number of chatrooms currently hosted here.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// TotalSubscribers sums live subscriber counts across every hosted
// chatroom — the "user_count" a placement probe asks for.
func (r *Registry) TotalSubscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, room := range r.rooms {
		total += room.SubscriberCount()
	}
	return total
}
