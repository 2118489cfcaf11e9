package coordinator

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// logChatMessage durably commits one chat line via 2PC. Chat nodes call
// this for every message published in a room they host; the message is
// only appended to chatlogs/<chatroom>.txt on a data node once every
// participant has voted YES (spec §4.3's "every chat message is logged
// through the same commit protocol as user/chatroom operations").
func (s *Server) logChatMessage(w http.ResponseWriter, r *http.Request) {
	var req cluster.LogChatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	committed, err := s.GenericCommit(r.Context(), cluster.OpLogMessage, req.Chatroom, req.Line)
	if err != nil {
		s.log.Named("chatops").Error("logChatMessage commit failed", zap.Error(err))
		writeJSON(w, http.StatusOK, cluster.Fail("failed to log message"))
		return
	}
	if !committed {
		writeJSON(w, http.StatusOK, cluster.Fail("failed to log message"))
		return
	}
	writeJSON(w, http.StatusOK, cluster.OK("logged"))
}

func (s *Server) handleLogChatMessage(w http.ResponseWriter, r *http.Request) {
	s.logChatMessage(w, r)
}

// handleGetDecision answers a data-node decision-poll task's query for
// the outcome of a transaction it voted YES on but never received
// doCommit/doAbort for.
func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	var req cluster.GetDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, cluster.DecisionResponse{Decision: s.decisions.Decision(req.Index)})
}

// handleHaveCommitted records that one participant finished applying the
// decision for a transaction, letting GenericCommit's caller stop waiting
// once every participant has checked in.
func (s *Server) handleHaveCommitted(w http.ResponseWriter, r *http.Request) {
	var req cluster.HaveCommittedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.decisions.HaveCommitted(req.Transaction.Index)
	writeJSON(w, http.StatusOK, cluster.OK(""))
}
