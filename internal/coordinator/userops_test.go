package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// fakeDataOps simulates the coordinator-facing read surface of a data
// node, backed by an in-memory set of users and chatrooms the test
// controls directly.
type fakeDataOps struct {
	mu        sync.Mutex
	users     map[string]string // username -> password
	chatrooms map[string]string // chatroom -> owner
}

func newFakeDataOps() *httptest.Server {
	f := &fakeDataOps{users: map[string]string{}, chatrooms: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/data/userExists", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.VerifyUserRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		_, ok := f.users[req.Username]
		f.mu.Unlock()
		json.NewEncoder(w).Encode(cluster.BoolResponse{OK: ok})
	})
	mux.HandleFunc("/data/verifyUser", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.VerifyUserRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		pw, ok := f.users[req.Username]
		f.mu.Unlock()
		json.NewEncoder(w).Encode(cluster.BoolResponse{OK: ok && pw == req.Password})
	})
	mux.HandleFunc("/data/chatroomExists", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.GetChatroomRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		_, ok := f.chatrooms[req.Name]
		f.mu.Unlock()
		json.NewEncoder(w).Encode(cluster.BoolResponse{OK: ok})
	})
	mux.HandleFunc("/data/verifyOwnership", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.VerifyOwnershipRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		owner, ok := f.chatrooms[req.Chatroom]
		f.mu.Unlock()
		json.NewEncoder(w).Encode(cluster.BoolResponse{OK: ok && owner == req.Username})
	})
	mux.HandleFunc("/participant/canCommit", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.CanCommitRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(cluster.CanCommitResponse{Vote: cluster.AckYes})
	})
	mux.HandleFunc("/participant/doCommit", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.DoCommitRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		switch req.Transaction.Op {
		case cluster.OpCreateUser:
			f.users[req.Transaction.Key] = req.Transaction.Value
		case cluster.OpCreateChatroom:
			f.chatrooms[req.Transaction.Key] = req.Transaction.Value
		case cluster.OpDeleteChatroom:
			delete(f.chatrooms, req.Transaction.Key)
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(cluster.OK(""))
	})
	mux.HandleFunc("/participant/doAbort", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cluster.OK(""))
	})
	return httptest.NewServer(mux)
}

// fakeChatNode simulates a chat node's ChatOps(mgmt) surface with a fixed
// placement-probe answer, for exercising innerCreateChatroom's
// minimum-load selection.
func newFakeChatNode(userCount, chatroomCount int) *httptest.Server {
	var created []string
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/mgmt/chatroomData", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n := len(created)
		mu.Unlock()
		json.NewEncoder(w).Encode(cluster.ChatroomDataResponse{
			UserCount:     userCount,
			ChatroomCount: chatroomCount + n,
		})
	})
	mux.HandleFunc("/mgmt/createChatroom", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.CreateChatroomMgmtRequest
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		created = append(created, req.Name)
		mu.Unlock()
		json.NewEncoder(w).Encode(cluster.OK(""))
	})
	mux.HandleFunc("/mgmt/deleteChatroom", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cluster.OK(""))
	})
	mux.HandleFunc("/mgmt/chatrooms", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		names := append([]string(nil), created...)
		mu.Unlock()
		json.NewEncoder(w).Encode(cluster.ChatroomListResponse{Names: names})
	})
	return httptest.NewServer(mux)
}

func withDataOps(t *testing.T, s *Server) *httptest.Server {
	srv := newFakeDataOps()
	t.Cleanup(srv.Close)
	node := parseTestNode("dn-1", srv.Listener.Addr().String())
	s.dataOps.Put(node)
	s.dataParticipants.Put(node)
	return srv
}

func TestRegisterUserThenLogin(t *testing.T) {
	s := newTestServer(t)
	withDataOps(t, s)

	resp := s.registerUser(context.Background(), "alice", "secret")
	assert.Equal(t, cluster.StatusOK, resp.Status)

	resp = s.registerUser(context.Background(), "alice", "other")
	assert.Equal(t, cluster.StatusFail, resp.Status, "duplicate username must be rejected")

	resp = s.login(context.Background(), "alice", "secret")
	assert.Equal(t, cluster.StatusOK, resp.Status)

	resp = s.login(context.Background(), "alice", "wrong")
	assert.Equal(t, cluster.StatusFail, resp.Status)
}

func TestInnerCreateChatroomPicksLeastLoaded(t *testing.T) {
	s := newTestServer(t)

	heavy := newFakeChatNode(10, 5)
	defer heavy.Close()
	light := newFakeChatNode(2, 5)
	defer light.Close()

	s.chatNodes.Put(parseTestNode("heavy", heavy.Listener.Addr().String()))
	s.chatNodes.Put(parseTestNode("light", light.Listener.Addr().String()))

	placed, err := s.innerCreateChatroom(context.Background(), "general")
	require.NoError(t, err)
	assert.Equal(t, "light", placed.ID)
}

func TestCreateChatroomRejectsDuplicateName(t *testing.T) {
	s := newTestServer(t)
	withDataOps(t, s)
	chat := newFakeChatNode(0, 0)
	defer chat.Close()
	s.chatNodes.Put(parseTestNode("cn-1", chat.Listener.Addr().String()))

	resp := s.createChatroom(context.Background(), "general", "alice")
	assert.Equal(t, cluster.StatusOK, resp.Status)

	resp = s.createChatroom(context.Background(), "general", "bob")
	assert.Equal(t, cluster.StatusFail, resp.Status)
	assert.Contains(t, resp.Message, "already exists")
}

func TestDeleteChatroomGatesOnOwnership(t *testing.T) {
	s := newTestServer(t)
	withDataOps(t, s)
	chat := newFakeChatNode(0, 0)
	defer chat.Close()
	s.chatNodes.Put(parseTestNode("cn-1", chat.Listener.Addr().String()))

	require.Equal(t, cluster.StatusOK, s.registerUser(context.Background(), "alice", "secret").Status)
	require.Equal(t, cluster.StatusOK, s.registerUser(context.Background(), "bob", "secret").Status)
	require.Equal(t, cluster.StatusOK, s.createChatroom(context.Background(), "general", "alice").Status)

	resp := s.deleteChatroom(context.Background(), "general", "bob", "secret")
	assert.Equal(t, cluster.StatusFail, resp.Status, "non-owner must not be able to delete")

	resp = s.deleteChatroom(context.Background(), "general", "alice", "secret")
	assert.Equal(t, cluster.StatusOK, resp.Status)
}

func TestRegisterUserRejectsReservedCharacter(t *testing.T) {
	s := newTestServer(t)
	withDataOps(t, s)

	resp := s.registerUser(context.Background(), "sample_user", "sample_password")
	assert.Equal(t, cluster.StatusOK, resp.Status)

	resp = s.registerUser(context.Background(), "sample:user", "whatever")
	assert.Equal(t, cluster.StatusFail, resp.Status, "username containing ':' must be rejected")

	resp = s.registerUser(context.Background(), "another_user", "sample:password")
	assert.Equal(t, cluster.StatusFail, resp.Status, "password containing ':' must be rejected")
}

func TestCreateChatroomRejectsReservedCharacter(t *testing.T) {
	s := newTestServer(t)
	withDataOps(t, s)

	resp := s.createChatroom(context.Background(), "general:room", "alice")
	assert.Equal(t, cluster.StatusFail, resp.Status, "chatroom name containing ':' must be rejected")
}

func TestDeleteChatroomRejectsReservedCharacter(t *testing.T) {
	s := newTestServer(t)
	withDataOps(t, s)

	resp := s.deleteChatroom(context.Background(), "general:room", "alice", "secret")
	assert.Equal(t, cluster.StatusFail, resp.Status, "chatroom name containing ':' must be rejected")
}
