// Package coordinator implements the orchestration layer for chatrelay's
// replicated chatroom service. See doc.go for complete package documentation.
package coordinator

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// Roster tracks the set of nodes currently registered on one remote
// surface, keyed by node ID. The coordinator keeps three independent
// rosters — chat nodes, data-node DataOps endpoints, and data-node
// DataParticipant endpoints — because a data node registers two distinct
// surfaces on two distinct ports and the coordinator must be able to
// address either one without conflating them.
//
// Thread Safety:
// All methods are safe for concurrent use. Reads return copies so callers
// never observe a roster mutating mid-iteration.
type Roster struct {
	mu    sync.RWMutex
	nodes map[string]cluster.NodeInfo
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{nodes: make(map[string]cluster.NodeInfo)}
}

// Put registers or replaces the entry for node.ID.
func (r *Roster) Put(node cluster.NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.ID] = node
}

// Remove drops a node from the roster. It is a no-op if the node is not
// present.
func (r *Roster) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

// Get returns the node registered under id and whether it was found.
func (r *Roster) Get(id string) (cluster.NodeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// All returns a snapshot of every registered node, sorted by ID so callers
// (placement probing, liveness sweeps) see a stable order across calls
// instead of Go's randomized map iteration.
func (r *Roster) All() []cluster.NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]cluster.NodeInfo, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b cluster.NodeInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Len reports the current roster size.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// IDs returns the IDs of every registered node, in no particular order.
func (r *Roster) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		out = append(out, id)
	}
	return out
}
