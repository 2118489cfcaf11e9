package chatnode

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// retryDelay is how long the chat node waits between logChatMessage
// retries when the coordinator is unreachable (spec §4.5: "retries this
// call in a tight loop until a successful response is received").
const retryDelay = 200 * time.Millisecond

// ChatUserOps is the client-facing surface: chat, joinChatroom,
// leaveChatroom. It also owns the per-chat-node log-message mutex that
// serializes this node's calls into the coordinator's logChatMessage, so
// messages from this node reach every data node in submission order
// (spec §7's single-writer-per-chatroom ordering guarantee).
type ChatUserOps struct {
	registry       *Registry
	coordinatorURL string
	log            *zap.Logger

	logMu sync.Mutex
}

// NewChatUserOps builds the client-facing surface bound to registry,
// reporting message logs to coordinatorURL.
func NewChatUserOps(registry *Registry, coordinatorURL string, log *zap.Logger) *ChatUserOps {
	return &ChatUserOps{registry: registry, coordinatorURL: coordinatorURL, log: log}
}

// Chat publishes "<user> >> <msg>" to chatroom's subscribers and durably
// logs the same line through the coordinator.
func (c *ChatUserOps) Chat(ctx context.Context, chatroom, username, message string) cluster.Response {
	room, ok := c.registry.Get(chatroom)
	if !ok {
		return cluster.Fail("chatroom does not exist on this node")
	}
	line := fmt.Sprintf("%s >> %s", username, message)
	room.Publish(line)
	c.logMessage(ctx, chatroom, line)
	return cluster.OK("")
}

// JoinChatroom publishes the join notice for username. It does not
// subscribe anything: the stream itself was already subscribed by the
// handshake.
func (c *ChatUserOps) JoinChatroom(chatroom, username string) cluster.Response {
	room, ok := c.registry.Get(chatroom)
	if !ok {
		return cluster.Fail("chatroom does not exist on this node")
	}
	room.Publish(fmt.Sprintf("System >> %s has joined the chat", username))
	return cluster.OK("")
}

// LeaveChatroom unsubscribes username and publishes the leave notice.
// Also invoked internally on stream EOF (see streams.go's onDisconnect).
func (c *ChatUserOps) LeaveChatroom(chatroom, username string) cluster.Response {
	room, ok := c.registry.Get(chatroom)
	if !ok {
		return cluster.Fail("chatroom does not exist on this node")
	}
	room.Unsubscribe(username)
	c.registry.UntrackConn(chatroom, username)
	room.Publish(fmt.Sprintf("System >> %s has left the chat", username))
	return cluster.OK("")
}

// logMessage drives the at-least-once retry loop into the coordinator's
// logChatMessage surface. Failures merely loop (spec §4.5); durable-write
// failure never surfaces to the client that sent the chat.
func (c *ChatUserOps) logMessage(ctx context.Context, chatroom, line string) {
	c.logMu.Lock()
	defer c.logMu.Unlock()

	for {
		err := cluster.PostJSON(ctx, c.coordinatorURL+"/chat/log", cluster.LogChatMessageRequest{
			Chatroom: chatroom,
			Line:     line,
		}, nil)
		if err == nil {
			return
		}
		c.log.Warn("logChatMessage retry", zap.String("chatroom", chatroom), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func (c *ChatUserOps) handleChat(w http.ResponseWriter, r *http.Request) {
	var req cluster.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, c.Chat(r.Context(), req.Chatroom, req.Username, req.Message))
}

func (c *ChatUserOps) handleJoinChatroom(w http.ResponseWriter, r *http.Request) {
	var req cluster.JoinChatroomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, c.JoinChatroom(req.Chatroom, req.Username))
}

func (c *ChatUserOps) handleLeaveChatroom(w http.ResponseWriter, r *http.Request) {
	var req cluster.LeaveChatroomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, c.LeaveChatroom(req.Chatroom, req.Username))
}
