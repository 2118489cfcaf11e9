package coordinator

import (
	"sync"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// waitEntry tracks one transaction's outstanding doCommit/doAbort
// acknowledgements. remaining counts participants that have not yet
// called haveCommitted for this transaction; done is closed once
// remaining reaches zero, waking anything blocked on it.
type waitEntry struct {
	mu        sync.Mutex
	remaining int
	done      chan struct{}
}

// DecisionTable is the coordinator's record of every transaction's final
// outcome (YES/NO), plus the commit-wait bookkeeping participants poll
// against after voting YES. It is the coordinator-side half of the 2PC
// protocol: GenericCommit (twopc.go) writes into it, the DecisionOps
// surface (chatops.go) reads from it, and data-node decision-poll tasks
// are the callers on the other end of the wire.
//
// Thread Safety: all methods are safe for concurrent use. An index, once
// decided, is immutable — callers never need to re-check after reading a
// non-NA decision.
type DecisionTable struct {
	mu        sync.RWMutex
	decisions map[int]cluster.Ack
	waits     map[int]*waitEntry
	nextIndex int
}

// NewDecisionTable returns an empty table with transaction indices
// starting at 1.
func NewDecisionTable() *DecisionTable {
	return &DecisionTable{
		decisions: make(map[int]cluster.Ack),
		waits:     make(map[int]*waitEntry),
		nextIndex: 1,
	}
}

// NextIndex allocates and returns the next transaction index, monotonic
// for the life of the coordinator process (spec §3: indices are never
// reused and never persisted across a coordinator restart).
func (d *DecisionTable) NextIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.nextIndex
	d.nextIndex++
	return idx
}

// BeginWait registers index as awaiting n participant acknowledgements
// before GenericCommit's caller can consider the transaction fully
// applied. Must be called before any participant can possibly call
// haveCommitted for this index.
func (d *DecisionTable) BeginWait(index, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waits[index] = &waitEntry{remaining: n, done: make(chan struct{})}
}

// Decide records the final decision for index. It is idempotent: deciding
// an already-decided index is a no-op, since the decision table never
// overwrites a recorded outcome.
func (d *DecisionTable) Decide(index int, ack cluster.Ack) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, already := d.decisions[index]; already {
		return
	}
	d.decisions[index] = ack
}

// Decision returns the recorded decision for index, or AckNA if the
// transaction has not yet been decided (or does not exist).
func (d *DecisionTable) Decision(index int) cluster.Ack {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if ack, ok := d.decisions[index]; ok {
		return ack
	}
	return cluster.AckNA
}

// HaveCommitted records that one participant has applied the decision for
// index. Once every participant registered via BeginWait has called this,
// the wait's done channel is closed.
func (d *DecisionTable) HaveCommitted(index int) {
	d.mu.RLock()
	w, ok := d.waits[index]
	d.mu.RUnlock()
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.remaining <= 0 {
		return
	}
	w.remaining--
	if w.remaining == 0 {
		close(w.done)
	}
}

// Wait blocks until every participant for index has called HaveCommitted,
// or done is immediately returned closed if index was never registered.
func (d *DecisionTable) Wait(index int) <-chan struct{} {
	d.mu.RLock()
	w, ok := d.waits[index]
	d.mu.RUnlock()
	if !ok {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return w.done
}

// Forget drops the wait bookkeeping for index once its wait has completed.
// The recorded decision is kept, so a participant's late decision poll still
// gets YES or NO; entries in the decisions map are never removed.
func (d *DecisionTable) Forget(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.waits, index)
}
