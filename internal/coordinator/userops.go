package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// fieldSeparator is the on-disk delimiter (spec §3/§6) reserved out of
// every validated field: a username, password, or chatroom name carrying
// it would corrupt the colon-joined record line it's written into.
const fieldSeparator = ":"

// containsReservedChar reports whether s carries the on-disk field
// separator and so must be rejected at the surface boundary (spec §3/§7/§8).
func containsReservedChar(s string) bool {
	return strings.Contains(s, fieldSeparator)
}

// registerUser drives a CREATEUSER transaction across every data-node
// participant. It fails fast if a user with this username already exists
// on any reachable data node, then commits via GenericCommit.
func (s *Server) registerUser(ctx context.Context, username, password string) cluster.Response {
	if username == "" || password == "" {
		return cluster.Fail("username and password are required")
	}
	if containsReservedChar(username) || containsReservedChar(password) {
		return cluster.Fail("username and password may not contain ':'")
	}

	exists, err := s.dataOpsBool(ctx, "/data/userExists", cluster.VerifyUserRequest{Username: username})
	if err != nil {
		return cluster.Fail("could not reach any data node")
	}
	if exists {
		return cluster.Fail("username already taken")
	}

	committed, err := s.GenericCommit(ctx, cluster.OpCreateUser, username, password)
	if err != nil {
		s.log.Error("registerUser commit failed", zap.Error(err))
		return cluster.Fail("registration failed")
	}
	if !committed {
		return cluster.Fail("registration failed")
	}
	return cluster.OK("registered")
}

// login verifies a username/password pair against any reachable data
// node. There is no transaction here — a login is a pure read.
func (s *Server) login(ctx context.Context, username, password string) cluster.Response {
	ok, err := s.dataOpsBool(ctx, "/data/verifyUser", cluster.VerifyUserRequest{Username: username, Password: password})
	if err != nil {
		return cluster.Fail("could not reach any data node")
	}
	if !ok {
		return cluster.Fail("invalid username or password")
	}
	return cluster.OK("logged in")
}

// listChatrooms returns every chatroom name currently hosted across all
// registered chat nodes.
func (s *Server) listChatrooms(ctx context.Context) cluster.ChatroomListResponse {
	var names []string
	for _, node := range s.chatNodes.All() {
		var resp cluster.ChatroomListResponse
		if err := cluster.GetJSON(ctx, node.URL()+"/mgmt/chatrooms", &resp); err != nil {
			s.log.Warn("listChatrooms: chat node unreachable", zap.String("node_id", node.ID), zap.Error(err))
			continue
		}
		names = append(names, resp.Names...)
	}
	return cluster.ChatroomListResponse{Names: names}
}

// createChatroom places a brand-new chatroom: it commits a
// CREATECHATROOM transaction to the data nodes, then places the room on
// whichever registered chat node currently has the lightest load
// (innerCreateChatroom), recording the placement in chatroomOwner.
func (s *Server) createChatroom(ctx context.Context, name, owner string) cluster.Response {
	if name == "" || owner == "" {
		return cluster.Fail("chatroom name and owner are required")
	}
	if containsReservedChar(name) {
		return cluster.Fail("chatroom name may not contain ':'")
	}

	s.placementMu.Lock()
	defer s.placementMu.Unlock()

	exists, err := s.dataOpsBool(ctx, "/data/chatroomExists", cluster.GetChatroomRequest{Name: name})
	if err != nil {
		return cluster.Fail("could not reach any data node")
	}
	if exists {
		return cluster.Fail("A chatroom with this name already exists")
	}

	committed, err := s.GenericCommit(ctx, cluster.OpCreateChatroom, name, owner)
	if err != nil || !committed {
		return cluster.Fail("failed to create chatroom")
	}

	placement, err := s.innerCreateChatroom(ctx, name)
	if err != nil {
		return cluster.Fail(err.Error())
	}
	return cluster.OK(fmt.Sprintf("chatroom %q created on %s", name, placement.Host))
}

// innerCreateChatroom picks the least-loaded registered chat node and
// asks it to host name, recording the placement. The load-balancing
// decision minimizes user_count first, breaking ties on chatroom_count,
// and finally on roster iteration order — this is the placement
// invariant spec §5 pins exactly.
func (s *Server) innerCreateChatroom(ctx context.Context, name string) (cluster.NodeInfo, error) {
	candidates := s.chatNodes.All()
	if len(candidates) == 0 {
		return cluster.NodeInfo{}, fmt.Errorf("no chat nodes registered")
	}

	var (
		best     cluster.NodeInfo
		bestData cluster.ChatroomDataResponse
		found    bool
	)

	for _, node := range candidates {
		var data cluster.ChatroomDataResponse
		if err := cluster.GetJSON(ctx, node.URL()+"/mgmt/chatroomData", &data); err != nil {
			s.log.Warn("placement probe failed", zap.String("node_id", node.ID), zap.Error(err))
			continue
		}
		if !found {
			best, bestData, found = node, data, true
			continue
		}
		if data.UserCount < bestData.UserCount {
			best, bestData = node, data
			continue
		}
		if data.UserCount == bestData.UserCount && data.ChatroomCount < bestData.ChatroomCount {
			best, bestData = node, data
		}
	}

	if !found {
		return cluster.NodeInfo{}, fmt.Errorf("no reachable chat nodes")
	}

	if err := cluster.PostJSON(ctx, best.URL()+"/mgmt/createChatroom", cluster.CreateChatroomMgmtRequest{Name: name}, nil); err != nil {
		return cluster.NodeInfo{}, fmt.Errorf("chat node rejected placement: %w", err)
	}

	s.mu.Lock()
	s.chatroomOwner[name] = best
	s.mu.Unlock()

	return best, nil
}

// deleteChatroom gates the delete on chatroom existence, user identity,
// and ownership (in that order, matching spec §4.4), then commits a
// DELETECHATROOM transaction and asks the hosting chat node to tear the
// room down.
func (s *Server) deleteChatroom(ctx context.Context, name, username, password string) cluster.Response {
	if containsReservedChar(name) {
		return cluster.Fail("chatroom name may not contain ':'")
	}

	exists, err := s.dataOpsBool(ctx, "/data/chatroomExists", cluster.GetChatroomRequest{Name: name})
	if err != nil {
		return cluster.Fail("could not reach any data node")
	}
	if !exists {
		return cluster.Fail("chatroom does not exist")
	}

	validUser, err := s.dataOpsBool(ctx, "/data/verifyUser", cluster.VerifyUserRequest{Username: username, Password: password})
	if err != nil {
		return cluster.Fail("could not reach any data node")
	}
	if !validUser {
		return cluster.Fail("invalid username or password")
	}

	owns, err := s.dataOpsBool(ctx, "/data/verifyOwnership", cluster.VerifyOwnershipRequest{Chatroom: name, Username: username})
	if err != nil {
		return cluster.Fail("could not reach any data node")
	}
	if !owns {
		return cluster.Fail("only the chatroom owner can delete it")
	}

	committed, err := s.GenericCommit(ctx, cluster.OpDeleteChatroom, name, "")
	if err != nil || !committed {
		return cluster.Fail("failed to delete chatroom")
	}

	s.mu.Lock()
	owner, hosted := s.chatroomOwner[name]
	delete(s.chatroomOwner, name)
	s.mu.Unlock()

	if hosted {
		if err := cluster.PostJSON(ctx, owner.URL()+"/mgmt/deleteChatroom", cluster.DeleteChatroomMgmtRequest{Name: name}, nil); err != nil {
			s.log.Warn("chat node did not acknowledge deleteChatroom", zap.String("chatroom", name), zap.Error(err))
		}
	}

	return cluster.OK("chatroom deleted")
}

// getChatroom answers a client's request to locate a chatroom it wants to
// join: if the room isn't currently placed on any chat node (first lookup
// after a restart, or following a failure), it is re-established first.
func (s *Server) getChatroom(ctx context.Context, name string) (cluster.ChatroomResponse, cluster.Response) {
	exists, err := s.dataOpsBool(ctx, "/data/chatroomExists", cluster.GetChatroomRequest{Name: name})
	if err != nil {
		return cluster.ChatroomResponse{}, cluster.Fail("could not reach any data node")
	}
	if !exists {
		return cluster.ChatroomResponse{}, cluster.Fail("chatroom does not exist")
	}

	s.mu.RLock()
	owner, hosted := s.chatroomOwner[name]
	s.mu.RUnlock()

	if !hosted {
		if err := s.reestablishChatroom(ctx, name, ""); err != nil {
			return cluster.ChatroomResponse{}, cluster.Fail(err.Error())
		}
		s.mu.RLock()
		owner = s.chatroomOwner[name]
		s.mu.RUnlock()
	}

	return cluster.ChatroomResponse{Name: name, Host: owner.Host, TCPPort: owner.TCPPort, RMIPort: owner.Port}, cluster.OK("")
}

// reestablishChatroom places name onto a (possibly new) chat node when its
// previous host is gone or never registered it. placementMu makes this a
// single-flight operation: a second caller for the same room waits for the
// first, then finds the room recorded on a chat node that still passes
// CheckNow and returns without placing it again. The chat node's reply body
// to the placement call is not inspected; only a transport error fails it.
func (s *Server) reestablishChatroom(ctx context.Context, name, requestedBy string) error {
	s.placementMu.Lock()
	defer s.placementMu.Unlock()

	s.mu.RLock()
	owner, hosted := s.chatroomOwner[name]
	s.mu.RUnlock()

	if hosted {
		if err := s.liveness.CheckNow(owner); err == nil {
			return nil // still alive, nothing to do
		}
	}

	s.metrics.Reestablishes.Inc()
	s.log.Info("re-establishing chatroom", zap.String("chatroom", name), zap.String("requested_by", requestedBy))

	_, err := s.innerCreateChatroom(ctx, name)
	if err != nil {
		return fmt.Errorf("re-establishment failed: %w", err)
	}
	return nil
}

// dataOpsBool sends a read-only boolean query to the registered DataOps
// endpoints one at a time, in roster order, skipping unreachable ones, and
// returns the first answer it gets; any reachable
// data node is authoritative since every data node's durable state is
// kept in sync by 2PC (spec §4.4: "at any one data node").
func (s *Server) dataOpsBool(ctx context.Context, path string, body any) (bool, error) {
	for _, node := range s.dataOps.All() {
		var resp cluster.BoolResponse
		if err := cluster.PostJSON(ctx, node.URL()+path, body, &resp); err != nil {
			s.log.Warn("data node unreachable", zap.String("node_id", node.ID), zap.String("path", path), zap.Error(err))
			continue
		}
		return resp.OK, nil
	}
	return false, fmt.Errorf("no reachable data node")
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp := s.registerUser(r.Context(), req.Username, req.Password)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req cluster.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp := s.login(r.Context(), req.Username, req.Password)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListChatrooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.listChatrooms(r.Context()))
}

func (s *Server) handleCreateChatroom(w http.ResponseWriter, r *http.Request) {
	var req cluster.CreateChatroomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.createChatroom(r.Context(), req.Name, req.Owner))
}

func (s *Server) handleDeleteChatroom(w http.ResponseWriter, r *http.Request) {
	var req cluster.DeleteChatroomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.deleteChatroom(r.Context(), req.Name, req.Username, req.Password))
}

func (s *Server) handleGetChatroom(w http.ResponseWriter, r *http.Request) {
	var req cluster.GetChatroomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, status := s.getChatroom(r.Context(), req.Name)
	if status.Status != cluster.StatusOK {
		writeJSON(w, http.StatusOK, status)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReestablishChatroom(w http.ResponseWriter, r *http.Request) {
	var req cluster.ReestablishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.reestablishChatroom(r.Context(), req.Name, req.Username); err != nil {
		writeJSON(w, http.StatusOK, cluster.Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, cluster.OK("re-established"))
}
