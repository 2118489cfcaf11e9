package chatnode

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
	"github.com/dreamware/chatrelay/internal/metrics"
)

// Server bundles a chat node's three surfaces: the raw TCP stream
// listener, the HTTP ChatOps(mgmt) surface, and the HTTP ChatUserOps
// surface. Mgmt and ChatUserOps share one HTTP port; the stream listener
// is a separate TCP port (spec §6's host/tcp_port/rmi_port triple).
type Server struct {
	registry *Registry
	mgmt     *Mgmt
	userOps  *ChatUserOps
	streams  *StreamListener
	metrics  *metrics.ChatNode
	log      *zap.Logger
}

// NewServer builds a chat node server. host/tcpPort/rmiPort identify this
// node to the coordinator; coordinatorURL is where chat-log submissions
// are sent.
func NewServer(host string, tcpPort, rmiPort int, coordinatorURL string, log *zap.Logger) *Server {
	registry := NewRegistry(log)
	userOps := NewChatUserOps(registry, coordinatorURL, log)
	s := &Server{
		registry: registry,
		mgmt:     NewMgmt(registry, host, tcpPort, rmiPort, log),
		userOps:  userOps,
		metrics:  metrics.NewChatNode(),
		log:      log,
	}
	s.streams = NewStreamListener(registry, log, s.onDisconnect)
	return s
}

// onDisconnect runs the same cleanup an explicit leaveChatroom would,
// triggered by the stream hitting EOF rather than a client HTTP call.
func (s *Server) onDisconnect(chatroom, username string) {
	s.log.Debug("stream disconnected, leaving chatroom", zap.String("chatroom", chatroom), zap.String("username", username))
	s.userOps.LeaveChatroom(chatroom, username)
}

// Streams returns the raw TCP stream listener, to be served with its own
// net.Listener by the caller (cmd/chatnode).
func (s *Server) Streams() *StreamListener {
	return s.streams
}

// Shutdown drops every live subscriber connection across every hosted
// chatroom. Called once during process shutdown so clients see their
// stream close right away instead of hanging on a read that would never
// complete.
func (s *Server) Shutdown() {
	s.registry.CloseAllConnections()
}

// HTTPMux builds the combined Mgmt + ChatUserOps HTTP surface.
func (s *Server) HTTPMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mgmt/createChatroom", s.mgmt.handleCreateChatroom)
	mux.HandleFunc("/mgmt/deleteChatroom", s.mgmt.handleDeleteChatroom)
	mux.HandleFunc("/mgmt/chatroomData", s.mgmt.handleChatroomData)
	mux.HandleFunc("/mgmt/chatrooms", s.mgmt.handleChatrooms)

	mux.HandleFunc("/chatuser/chat", s.userOps.handleChat)
	mux.HandleFunc("/chatuser/join", s.userOps.handleJoinChatroom)
	mux.HandleFunc("/chatuser/leave", s.userOps.handleLeaveChatroom)

	mux.Handle("/metrics", s.metrics.Handler())
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
