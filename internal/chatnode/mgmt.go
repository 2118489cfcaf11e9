package chatnode

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// Mgmt is the coordinator-facing ChatOps surface: create/delete a hosted
// chatroom, and report this node's load for placement decisions.
type Mgmt struct {
	registry *Registry
	host     string
	tcpPort  int
	rmiPort  int
	log      *zap.Logger
}

// NewMgmt builds the coordinator-facing surface. host/tcpPort/rmiPort are
// echoed back in ChatroomDataResponse so the coordinator can hand them
// straight to a client in a ChatroomResponse.
func NewMgmt(registry *Registry, host string, tcpPort, rmiPort int, log *zap.Logger) *Mgmt {
	return &Mgmt{registry: registry, host: host, tcpPort: tcpPort, rmiPort: rmiPort, log: log}
}

func (m *Mgmt) handleCreateChatroom(w http.ResponseWriter, r *http.Request) {
	var req cluster.CreateChatroomMgmtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := m.registry.Create(req.Name); err != nil {
		writeJSON(w, http.StatusOK, cluster.Fail(err.Error()))
		return
	}
	m.log.Info("chatroom placed", zap.String("chatroom", req.Name))
	writeJSON(w, http.StatusOK, cluster.OK("created"))
}

func (m *Mgmt) handleDeleteChatroom(w http.ResponseWriter, r *http.Request) {
	var req cluster.DeleteChatroomMgmtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := m.registry.Delete(req.Name); err != nil {
		writeJSON(w, http.StatusOK, cluster.Fail(err.Error()))
		return
	}
	m.log.Info("chatroom torn down", zap.String("chatroom", req.Name))
	writeJSON(w, http.StatusOK, cluster.OK("deleted"))
}

func (m *Mgmt) handleChatroomData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cluster.ChatroomDataResponse{
		ChatroomCount: m.registry.Count(),
		UserCount:     m.registry.TotalSubscribers(),
		Host:          m.host,
		RMIPort:       m.rmiPort,
		TCPPort:       m.tcpPort,
	})
}

func (m *Mgmt) handleChatrooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cluster.ChatroomListResponse{Names: m.registry.Names()})
}
