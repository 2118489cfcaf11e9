package coordinator

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
	"github.com/dreamware/chatrelay/internal/metrics"
)

// Server is the coordinator process: the single point through which
// clients register, log in, and place/locate chatrooms; through which
// data nodes and chat nodes register; and through which every 2PC
// transaction is driven to a decision. There is exactly one Server per
// deployment — the coordinator is explicitly not itself replicated
// (spec's Non-goals: partition-tolerant consensus, durable coordinator
// state across restart).
//
// Thread Safety: Server's own mutex only guards chatroomOwner and the
// single-flight placement/re-establishment path; the rosters and decision
// table each carry their own locking.
type Server struct {
	Addr string

	log     *zap.Logger
	metrics *metrics.Coordinator

	chatNodes        *Roster
	dataOps          *Roster
	dataParticipants *Roster
	decisions        *DecisionTable
	liveness         *LivenessMonitor

	// placementMu serializes createChatroom/reestablishChatroom so two
	// concurrent requests for the same room name can never both believe
	// they won the placement race (spec's single-flight re-establishment
	// requirement).
	placementMu sync.Mutex

	mu            sync.RWMutex
	chatroomOwner map[string]cluster.NodeInfo // chatroom name -> hosting chat node

	httpClient *http.Client
}

// NewServer constructs a coordinator bound to addr (its own advertised
// host:port, returned to nodes on registration).
func NewServer(addr string, log *zap.Logger) *Server {
	chatNodes := NewRoster()
	dataOps := NewRoster()
	dataParticipants := NewRoster()

	s := &Server{
		Addr:             addr,
		log:              log,
		metrics:          metrics.NewCoordinator(),
		chatNodes:        chatNodes,
		dataOps:          dataOps,
		dataParticipants: dataParticipants,
		decisions:        NewDecisionTable(),
		chatroomOwner:    make(map[string]cluster.NodeInfo),
		httpClient:       &http.Client{Timeout: 5 * time.Second},
	}
	s.liveness = NewLivenessMonitor(log.Named("liveness"), chatNodes, dataOps, dataParticipants, 60*time.Second, 3)
	s.liveness.SetOnChatNodeDown(s.handleChatNodeDown)
	return s
}

// StartBackground launches the liveness sweep loop. Call once at process
// startup; Stop via ctx cancellation.
func (s *Server) StartBackground(ctx context.Context) {
	go s.liveness.Start(ctx)
}

// Mux builds the HTTP handler exposing every coordinator surface:
// Registration, UserOps, ChatOps(log), and DecisionOps.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	// Registration
	mux.HandleFunc("/register/datanode", s.handleRegisterDataNode)
	mux.HandleFunc("/register/chatnode", s.handleRegisterChatNode)
	mux.HandleFunc("/time", s.handleServerTime)

	// UserOps
	mux.HandleFunc("/user/register", s.handleRegisterUser)
	mux.HandleFunc("/user/login", s.handleLogin)
	mux.HandleFunc("/chatroom/list", s.handleListChatrooms)
	mux.HandleFunc("/chatroom/create", s.handleCreateChatroom)
	mux.HandleFunc("/chatroom/delete", s.handleDeleteChatroom)
	mux.HandleFunc("/chatroom/get", s.handleGetChatroom)
	mux.HandleFunc("/chatroom/reestablish", s.handleReestablishChatroom)

	// ChatOps(log)
	mux.HandleFunc("/chat/log", s.handleLogChatMessage)

	// DecisionOps
	mux.HandleFunc("/decision/get", s.handleGetDecision)
	mux.HandleFunc("/decision/haveCommitted", s.handleHaveCommitted)

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

func (s *Server) handleRegisterDataNode(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterDataNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := req.Host + ":" + strconv.Itoa(req.OpsPort)
	s.dataOps.Put(cluster.NodeInfo{ID: id, Host: req.Host, Port: req.OpsPort})
	s.dataParticipants.Put(cluster.NodeInfo{ID: id, Host: req.Host, Port: req.PartPort})
	s.metrics.DataNodes.Set(float64(s.dataOps.Len()))
	s.log.Info("data node registered", zap.String("host", req.Host),
		zap.Int("ops_port", req.OpsPort), zap.Int("part_port", req.PartPort),
		zap.Strings("known_rooms", req.KnownRooms))

	for _, room := range req.KnownRooms {
		s.reestablishAsync(room)
	}

	_, portStr, _ := net.SplitHostPort(s.Addr)
	port, _ := strconv.Atoi(portStr)
	writeJSON(w, http.StatusOK, cluster.RegisterResponse{Port: port})
}

func (s *Server) handleRegisterChatNode(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterChatNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := req.Host + ":" + strconv.Itoa(req.OpsPort)
	s.chatNodes.Put(cluster.NodeInfo{ID: id, Host: req.Host, Port: req.OpsPort, TCPPort: req.TCPPort})
	s.metrics.ChatNodes.Set(float64(s.chatNodes.Len()))
	s.log.Info("chat node registered", zap.String("host", req.Host),
		zap.Int("ops_port", req.OpsPort), zap.Int("tcp_port", req.TCPPort))
	_, portStr, _ := net.SplitHostPort(s.Addr)
	port, _ := strconv.Atoi(portStr)
	writeJSON(w, http.StatusOK, cluster.RegisterResponse{Port: port})
}

func (s *Server) handleServerTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cluster.ServerTimeResponse{UnixMillis: time.Now().UnixMilli()})
}

func (s *Server) reestablishAsync(room string) {
	go func() {
		if err := s.reestablishChatroom(context.Background(), room, ""); err != nil {
			s.log.Warn("re-establishment on data-node rejoin failed", zap.String("chatroom", room), zap.Error(err))
		}
	}()
}

func (s *Server) handleChatNodeDown(nodeID string) {
	s.log.Warn("chat node down, re-establishing its chatrooms", zap.String("node_id", nodeID))
	s.mu.RLock()
	var affected []string
	for room, owner := range s.chatroomOwner {
		if owner.ID == nodeID {
			affected = append(affected, room)
		}
	}
	s.mu.RUnlock()

	for _, room := range affected {
		room := room
		go func() {
			if err := s.reestablishChatroom(context.Background(), room, ""); err != nil {
				s.log.Error("failed to re-establish chatroom after node failure",
					zap.String("chatroom", room), zap.Error(err))
			}
		}()
	}
}
