package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// commitTimeout bounds how long GenericCommit waits for every participant
// to vote, and separately how long it waits for every participant to
// acknowledge having applied the decision. Past this, the transaction's
// canCommit/doCommit messages are already in flight or already lost; the
// decision-poll task on each data node (internal/datanode) is what
// recovers a participant that never saw doCommit directly, not a longer
// wait here. Pinned at exactly 1,000 ms by spec §4.3/§5 ("wait on
// wake_handle with a 1,000 ms timeout"; "doCommit waits bounded at ≤1,000
// ms for participant acknowledgments").
const commitTimeout = 1000 * time.Millisecond

// GenericCommit drives one two-phase-commit round across every currently
// registered data-node participant for a single Transaction: it allocates
// an index, collects canCommit votes, decides YES only if every
// participant voted YES, and then broadcasts doCommit or doAbort
// accordingly. It returns true if the transaction committed.
//
// Grounded on the teacher's rebalance/broadcast pattern (shard_registry.go)
// generalized from a round-robin assignment fan-out to a vote-then-decide
// fan-out; the per-call HTTP dispatch pattern is cluster.PostJSON.
func (s *Server) GenericCommit(ctx context.Context, op cluster.TxnOp, key, value string) (bool, error) {
	participants := s.dataParticipants.All()
	if len(participants) == 0 {
		return false, fmt.Errorf("no data node participants registered")
	}

	index := s.decisions.NextIndex()
	txn := cluster.Transaction{Index: index, Op: op, Key: key, Value: value}

	log := s.log.Named("twopc").With(zap.Int("index", index), zap.String("op", string(op)))

	voteCtx, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()

	votes := s.collectVotes(voteCtx, txn, participants)
	allYes := len(votes) == len(participants)
	for _, v := range votes {
		if v != cluster.AckYes {
			allYes = false
			break
		}
	}

	if !allYes {
		log.Info("transaction aborted", zap.Int("votes_received", len(votes)))
		s.decisions.Decide(index, cluster.AckNo)
		s.broadcastAbort(context.Background(), txn, participants)
		s.metrics.TxnAborted.WithLabelValues(string(op)).Inc()
		return false, nil
	}

	s.decisions.Decide(index, cluster.AckYes)
	s.decisions.BeginWait(index, len(participants))
	s.broadcastCommit(context.Background(), txn, participants)

	applyCtx, applyCancel := context.WithTimeout(ctx, commitTimeout)
	defer applyCancel()
	select {
	case <-s.decisions.Wait(index):
		log.Debug("all participants acknowledged commit")
	case <-applyCtx.Done():
		log.Warn("timed out waiting for participant acknowledgements; decision-poll tasks will recover")
	}
	s.decisions.Forget(index)

	log.Info("transaction committed")
	s.metrics.TxnCommitted.Inc()
	return true, nil
}

// collectVotes calls canCommit on every participant in parallel and
// returns the votes that arrived before ctx expires. A participant that
// errors or times out simply contributes no vote, which is enough to
// fail the allYes check in GenericCommit.
func (s *Server) collectVotes(ctx context.Context, txn cluster.Transaction, participants []cluster.NodeInfo) []cluster.Ack {
	var (
		mu    sync.Mutex
		votes []cluster.Ack
		wg    sync.WaitGroup
	)

	for _, p := range participants {
		wg.Add(1)
		go func(p cluster.NodeInfo) {
			defer wg.Done()
			var resp cluster.CanCommitResponse
			err := cluster.PostJSON(ctx, p.URL()+"/participant/canCommit", cluster.CanCommitRequest{
				Transaction:   txn,
				ParticipantID: p.ID,
			}, &resp)
			if err != nil {
				s.log.Named("twopc").Warn("canCommit call failed", zap.String("participant", p.ID), zap.Error(err))
				return
			}
			mu.Lock()
			votes = append(votes, resp.Vote)
			mu.Unlock()
		}(p)
	}

	wg.Wait()
	return votes
}

// broadcastCommit sends doCommit to every participant without waiting for
// the handler to finish applying it; completion is observed later via
// haveCommitted on the DecisionOps surface.
func (s *Server) broadcastCommit(ctx context.Context, txn cluster.Transaction, participants []cluster.NodeInfo) {
	for _, p := range participants {
		go func(p cluster.NodeInfo) {
			err := cluster.PostJSON(ctx, p.URL()+"/participant/doCommit", cluster.DoCommitRequest{
				Transaction:   txn,
				ParticipantID: p.ID,
			}, nil)
			if err != nil {
				s.log.Named("twopc").Warn("doCommit call failed, relying on decision-poll",
					zap.String("participant", p.ID), zap.Error(err))
			}
		}(p)
	}
}

// broadcastAbort sends doAbort to every participant, best-effort.
func (s *Server) broadcastAbort(ctx context.Context, txn cluster.Transaction, participants []cluster.NodeInfo) {
	for _, p := range participants {
		go func(p cluster.NodeInfo) {
			if err := cluster.PostJSON(ctx, p.URL()+"/participant/doAbort", cluster.DoAbortRequest{Transaction: txn}, nil); err != nil {
				s.log.Named("twopc").Warn("doAbort call failed", zap.String("participant", p.ID), zap.Error(err))
			}
		}(p)
	}
}
