package datanode

import (
	"net/http"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// DataOps answers the coordinator's read-only questions about durable
// state: does a user or chatroom exist, are these credentials valid, does
// this user own this chatroom. Any one reachable data node is
// authoritative for these questions, since 2PC keeps every data node's
// durable record in agreement (spec §4.4).
type DataOps struct {
	store *Store
}

// NewDataOps wraps store for HTTP exposure.
func NewDataOps(store *Store) *DataOps {
	return &DataOps{store: store}
}

func (d *DataOps) handleUserExists(w http.ResponseWriter, r *http.Request) {
	var req cluster.VerifyUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, cluster.BoolResponse{OK: d.store.UserExists(req.Username)})
}

func (d *DataOps) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	var req cluster.VerifyUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, cluster.BoolResponse{OK: d.store.VerifyUser(req.Username, req.Password)})
}

func (d *DataOps) handleChatroomExists(w http.ResponseWriter, r *http.Request) {
	var req cluster.GetChatroomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, cluster.BoolResponse{OK: d.store.ChatroomExists(req.Name)})
}

func (d *DataOps) handleVerifyOwnership(w http.ResponseWriter, r *http.Request) {
	var req cluster.VerifyOwnershipRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, cluster.BoolResponse{OK: d.store.VerifyOwnership(req.Chatroom, req.Username)})
}
