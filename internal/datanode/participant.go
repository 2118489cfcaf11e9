package datanode

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
	"github.com/dreamware/chatrelay/internal/metrics"
)

// pollDelay is how long a decision-poll task waits before checking the
// coordinator once for a decision it never received directly. Grounded on
// original_source's CoordinatorDecisionThread, which sleeps exactly this
// long, polls exactly once, and exits on NA rather than looping.
const pollDelay = 1000 * time.Millisecond

// pendingTxn is one transaction this participant has voted YES on and is
// waiting to either apply (doCommit) or discard (doAbort).
type pendingTxn struct {
	txn    cluster.Transaction
	keyMu  *sync.Mutex // held from canCommit=YES until doCommit/doAbort
	polled bool        // true once the decision-poll task has fired
}

// Participant is the DataParticipant surface: canCommit/doCommit/doAbort,
// plus the decision-poll task that recovers a transaction whose
// doCommit/doAbort was lost in flight.
//
// Thread Safety: all exported methods are safe for concurrent use.
// keyLocks gives each distinct key (username or chatroom name) its own
// mutex so two transactions on different keys never block each other,
// while two transactions racing on the same key are strictly serialized
// between vote and decision.
type Participant struct {
	ID             string
	CoordinatorURL string

	log     *zap.Logger
	store   *Store
	metrics *metrics.DataNode

	httpClient *http.Client

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
	pending  map[int]*pendingTxn
}

// NewParticipant builds a participant bound to store, identified to the
// coordinator as id.
func NewParticipant(id, coordinatorURL string, store *Store, log *zap.Logger, m *metrics.DataNode) *Participant {
	return &Participant{
		ID:             id,
		CoordinatorURL: coordinatorURL,
		log:            log,
		store:          store,
		metrics:        m,
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		keyLocks:       make(map[string]*sync.Mutex),
		pending:        make(map[int]*pendingTxn),
	}
}

func (p *Participant) lockFor(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		p.keyLocks[key] = l
	}
	return l
}

// CanCommit validates whether txn is still applicable against durable
// state, votes accordingly, and — on a YES vote — holds the key's lock
// until a decision arrives, so no conflicting transaction on the same key
// can be validated in between.
func (p *Participant) CanCommit(txn cluster.Transaction) cluster.Ack {
	keyMu := p.lockFor(txn.Key)
	keyMu.Lock()

	if !p.validate(txn) {
		keyMu.Unlock()
		return cluster.AckNo
	}

	p.mu.Lock()
	p.pending[txn.Index] = &pendingTxn{txn: txn, keyMu: keyMu}
	p.mu.Unlock()

	p.metrics.InFlightTxn.Inc()
	go p.schedulePoll(txn.Index)

	return cluster.AckYes
}

// validate checks canCommit's one pinned NO condition beyond per-key
// mutual exclusion: a CREATEUSER must target a username that doesn't
// exist yet. CREATECHATROOM on an existing chatroom and DELETECHATROOM on
// a missing one are deliberately NOT checked here (spec §4.2) — they are
// idempotently re-checked in apply/DoCommit instead, so two concurrent
// winners on the same key don't both get voted NO over a race that
// doCommit can absorb safely.
func (p *Participant) validate(txn cluster.Transaction) bool {
	switch txn.Op {
	case cluster.OpCreateUser:
		return !p.store.UserExists(txn.Key)
	case cluster.OpCreateChatroom, cluster.OpDeleteChatroom, cluster.OpLogMessage:
		return true
	default:
		return false
	}
}

// DoCommit applies txn to durable storage and releases the key lock. It
// is idempotent: a transaction not found in pending (already applied by
// the decision-poll task, or a duplicate message) is a harmless no-op.
func (p *Participant) DoCommit(ctx context.Context, txn cluster.Transaction) error {
	p.mu.Lock()
	pt, ok := p.pending[txn.Index]
	if ok {
		delete(p.pending, txn.Index)
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}

	err := p.apply(txn)
	pt.keyMu.Unlock()
	p.metrics.InFlightTxn.Dec()

	if err != nil {
		p.log.Error("failed to apply committed transaction", zap.Int("index", txn.Index), zap.Error(err))
		return err
	}
	p.metrics.OpsApplied.WithLabelValues(string(txn.Op)).Inc()

	p.reportHaveCommitted(ctx, txn.Index)
	return nil
}

// DoAbort discards txn and releases the key lock. Idempotent for the same
// reason as DoCommit.
func (p *Participant) DoAbort(ctx context.Context, txn cluster.Transaction) {
	p.mu.Lock()
	pt, ok := p.pending[txn.Index]
	if ok {
		delete(p.pending, txn.Index)
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	pt.keyMu.Unlock()
	p.metrics.InFlightTxn.Dec()
	p.reportHaveCommitted(ctx, txn.Index)
}

// apply durably commits txn. CREATECHATROOM and DELETECHATROOM re-check
// existence here rather than in validate (see validate's comment), so a
// chatroom that's already present/absent by the time its decision lands
// is a harmless no-op instead of a duplicate record or a spurious error.
func (p *Participant) apply(txn cluster.Transaction) error {
	switch txn.Op {
	case cluster.OpCreateUser:
		return p.store.CreateUser(txn.Key, txn.Value)
	case cluster.OpCreateChatroom:
		if p.store.ChatroomExists(txn.Key) {
			return nil
		}
		return p.store.CreateChatroom(txn.Key, txn.Value)
	case cluster.OpDeleteChatroom:
		if !p.store.ChatroomExists(txn.Key) {
			return nil
		}
		return p.store.DeleteChatroom(txn.Key)
	case cluster.OpLogMessage:
		return p.store.LogMessage(txn.Key, txn.Value)
	default:
		return fmt.Errorf("unknown transaction op %q", txn.Op)
	}
}

// schedulePoll implements the decision-poll task: wait once, ask the
// coordinator once, and either apply the recovered decision or give up.
func (p *Participant) schedulePoll(index int) {
	time.Sleep(pollDelay)

	// pollID only correlates this poll's log lines with each other; it
	// plays no part in the recovery decision itself (spec §9's opaque
	// clock/id probes carry the same restriction).
	pollID := uuid.New().String()
	log := p.log.With(zap.String("poll_id", pollID), zap.Int("index", index))

	p.mu.Lock()
	pt, ok := p.pending[index]
	if ok {
		pt.polled = true
	}
	p.mu.Unlock()
	if !ok {
		return // doCommit/doAbort already arrived
	}

	p.metrics.PollsWoken.Inc()

	var resp cluster.DecisionResponse
	err := cluster.PostJSON(context.Background(), p.CoordinatorURL+"/decision/get",
		cluster.GetDecisionRequest{Index: index}, &resp)
	if err != nil {
		log.Warn("decision-poll task could not reach coordinator", zap.Error(err))
		return
	}

	switch resp.Decision {
	case cluster.AckYes:
		log.Debug("decision-poll task recovered a YES decision")
		if err := p.DoCommit(context.Background(), pt.txn); err != nil {
			log.Error("decision-poll task failed to apply recovered commit", zap.Error(err))
		}
	case cluster.AckNo:
		log.Debug("decision-poll task recovered a NO decision")
		p.DoAbort(context.Background(), pt.txn)
	case cluster.AckNA:
		log.Debug("decision-poll task found no decision yet, giving up")
	}
}

func (p *Participant) reportHaveCommitted(ctx context.Context, index int) {
	err := cluster.PostJSON(ctx, p.CoordinatorURL+"/decision/haveCommitted", cluster.HaveCommittedRequest{
		Transaction:   cluster.Transaction{Index: index},
		ParticipantID: p.ID,
	}, nil)
	if err != nil {
		p.log.Warn("could not report haveCommitted to coordinator", zap.Int("index", index), zap.Error(err))
	}
}

func (p *Participant) handleCanCommit(w http.ResponseWriter, r *http.Request) {
	var req cluster.CanCommitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	vote := p.CanCommit(req.Transaction)
	writeJSON(w, http.StatusOK, cluster.CanCommitResponse{Vote: vote})
}

func (p *Participant) handleDoCommit(w http.ResponseWriter, r *http.Request) {
	var req cluster.DoCommitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := p.DoCommit(r.Context(), req.Transaction); err != nil {
		writeJSON(w, http.StatusOK, cluster.Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, cluster.OK(""))
}

func (p *Participant) handleDoAbort(w http.ResponseWriter, r *http.Request) {
	var req cluster.DoAbortRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p.DoAbort(r.Context(), req.Transaction)
	writeJSON(w, http.StatusOK, cluster.OK(""))
}
