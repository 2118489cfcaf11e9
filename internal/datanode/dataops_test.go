package datanode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/chatrelay/internal/cluster"
)

func opsTestServer(ops *DataOps) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/userExists", ops.handleUserExists)
	mux.HandleFunc("/data/verifyUser", ops.handleVerifyUser)
	mux.HandleFunc("/data/chatroomExists", ops.handleChatroomExists)
	mux.HandleFunc("/data/verifyOwnership", ops.handleVerifyOwnership)
	return httptest.NewServer(mux)
}

func assertBool(t *testing.T, url string, body any, want bool) {
	t.Helper()
	var resp cluster.BoolResponse
	require.NoError(t, cluster.PostJSON(context.Background(), url, body, &resp))
	require.Equal(t, want, resp.OK)
}

func TestDataOpsHandlers(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.CreateUser("alice", "secret"))
	require.NoError(t, store.CreateChatroom("general", "alice"))
	ops := NewDataOps(store)

	srv := opsTestServer(ops)
	defer srv.Close()

	assertBool(t, srv.URL+"/data/userExists", cluster.VerifyUserRequest{Username: "alice"}, true)
	assertBool(t, srv.URL+"/data/userExists", cluster.VerifyUserRequest{Username: "bob"}, false)
	assertBool(t, srv.URL+"/data/verifyUser", cluster.VerifyUserRequest{Username: "alice", Password: "secret"}, true)
	assertBool(t, srv.URL+"/data/verifyUser", cluster.VerifyUserRequest{Username: "alice", Password: "wrong"}, false)
	assertBool(t, srv.URL+"/data/chatroomExists", cluster.GetChatroomRequest{Name: "general"}, true)
	assertBool(t, srv.URL+"/data/verifyOwnership", cluster.VerifyOwnershipRequest{Chatroom: "general", Username: "alice"}, true)
	assertBool(t, srv.URL+"/data/verifyOwnership", cluster.VerifyOwnershipRequest{Chatroom: "general", Username: "bob"}, false)
}
