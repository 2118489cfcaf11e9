package datanode

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
	"github.com/dreamware/chatrelay/internal/metrics"
)

// Server bundles the DataOps and DataParticipant HTTP surfaces a data
// node process serves. Unlike the coordinator and chat node, these two
// surfaces listen on two distinct ports — spec §4's data node exposes
// ops and participant traffic separately so a coordinator can be
// configured to reach one without the other.
type Server struct {
	ID string

	log     *zap.Logger
	store   *Store
	metrics *metrics.DataNode

	dataOps     *DataOps
	participant *Participant
}

// NewServer builds a data node server identified to the coordinator as
// id, with participant traffic reported back to coordinatorURL.
func NewServer(id, coordinatorURL string, store *Store, log *zap.Logger) *Server {
	m := metrics.NewDataNode()
	return &Server{
		ID:          id,
		log:         log,
		store:       store,
		metrics:     m,
		dataOps:     NewDataOps(store),
		participant: NewParticipant(id, coordinatorURL, store, log, m),
	}
}

// OpsMux builds the DataOps surface: the coordinator's read-only
// questions about durable state.
func (s *Server) OpsMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/userExists", s.dataOps.handleUserExists)
	mux.HandleFunc("/data/verifyUser", s.dataOps.handleVerifyUser)
	mux.HandleFunc("/data/chatroomExists", s.dataOps.handleChatroomExists)
	mux.HandleFunc("/data/verifyOwnership", s.dataOps.handleVerifyOwnership)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// ParticipantMux builds the DataParticipant surface: the two-phase-commit
// protocol the coordinator drives.
func (s *Server) ParticipantMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/participant/canCommit", s.participant.handleCanCommit)
	mux.HandleFunc("/participant/doCommit", s.participant.handleDoCommit)
	mux.HandleFunc("/participant/doAbort", s.participant.handleDoAbort)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, cluster.Fail("malformed request body"))
		return false
	}
	return true
}
