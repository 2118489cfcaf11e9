package chatnode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/chatrelay/internal/cluster"
	"github.com/dreamware/chatrelay/internal/logging"
)

func TestMgmtCreateAndDeleteChatroom(t *testing.T) {
	registry := NewRegistry(logging.Noop())
	m := NewMgmt(registry, "localhost", 9000, 9001, logging.Noop())
	srv := httptest.NewServer(mgmtTestMux(m))
	defer srv.Close()

	var resp cluster.Response
	require.NoError(t, cluster.PostJSON(context.Background(), srv.URL+"/mgmt/createChatroom", cluster.CreateChatroomMgmtRequest{Name: "general"}, &resp))
	assert.Equal(t, cluster.StatusOK, resp.Status)

	require.NoError(t, cluster.PostJSON(context.Background(), srv.URL+"/mgmt/createChatroom", cluster.CreateChatroomMgmtRequest{Name: "general"}, &resp))
	assert.Equal(t, cluster.StatusFail, resp.Status)

	require.NoError(t, cluster.PostJSON(context.Background(), srv.URL+"/mgmt/deleteChatroom", cluster.DeleteChatroomMgmtRequest{Name: "general"}, &resp))
	assert.Equal(t, cluster.StatusOK, resp.Status)
}

func TestMgmtChatroomDataReportsLoad(t *testing.T) {
	registry := NewRegistry(logging.Noop())
	require.NoError(t, registry.Create("general"))
	room, _ := registry.Get("general")
	room.Subscribe("alice", discardWriter{})

	m := NewMgmt(registry, "localhost", 9000, 9001, logging.Noop())
	srv := httptest.NewServer(mgmtTestMux(m))
	defer srv.Close()

	var resp cluster.ChatroomDataResponse
	require.NoError(t, cluster.GetJSON(context.Background(), srv.URL+"/mgmt/chatroomData", &resp))
	assert.Equal(t, 1, resp.ChatroomCount)
	assert.Equal(t, 1, resp.UserCount)
	assert.Equal(t, "localhost", resp.Host)
	assert.Equal(t, 9000, resp.TCPPort)
	assert.Equal(t, 9001, resp.RMIPort)
}

func mgmtTestMux(m *Mgmt) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/mgmt/createChatroom", m.handleCreateChatroom)
	mux.HandleFunc("/mgmt/deleteChatroom", m.handleDeleteChatroom)
	mux.HandleFunc("/mgmt/chatroomData", m.handleChatroomData)
	mux.HandleFunc("/mgmt/chatrooms", m.handleChatrooms)
	return mux
}
