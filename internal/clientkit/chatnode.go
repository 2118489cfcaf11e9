package clientkit

import (
	"context"
	"fmt"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// ChatNode is a thin client for one chat node's client-facing
// ChatUserOps surface, addressed by (host, rmiPort) — the pair a
// Coordinator.GetChatroom/ReestablishChatroom call hands back.
type ChatNode struct {
	BaseURL string
}

// NewChatNode builds a ChatNode client from the host/port pair a
// ChatroomResponse carries.
func NewChatNode(host string, rmiPort int) *ChatNode {
	return &ChatNode{BaseURL: fmt.Sprintf("http://%s:%d", host, rmiPort)}
}

// Chat sends a message to chatroom on behalf of username. The chat node
// both publishes it to live subscribers and submits it for durable
// logging before this call returns OK.
func (n *ChatNode) Chat(ctx context.Context, chatroom, username, message string) (cluster.Response, error) {
	var resp cluster.Response
	err := cluster.PostJSON(ctx, n.BaseURL+"/chatuser/chat", cluster.ChatRequest{
		Chatroom: chatroom,
		Username: username,
		Message:  message,
	}, &resp)
	return resp, err
}

// JoinChatroom announces username's presence in chatroom (a "has joined"
// notice) after its stream handshake has already subscribed it.
func (n *ChatNode) JoinChatroom(ctx context.Context, chatroom, username string) (cluster.Response, error) {
	var resp cluster.Response
	err := cluster.PostJSON(ctx, n.BaseURL+"/chatuser/join", cluster.JoinChatroomRequest{
		Chatroom: chatroom,
		Username: username,
	}, &resp)
	return resp, err
}

// LeaveChatroom unsubscribes username from chatroom and announces a
// "has left" notice. A client calls this synchronously before releasing
// its stream on a clean exit (spec §5); on an unclean exit the chat node
// infers the same cleanup from stream EOF instead.
func (n *ChatNode) LeaveChatroom(ctx context.Context, chatroom, username string) (cluster.Response, error) {
	var resp cluster.Response
	err := cluster.PostJSON(ctx, n.BaseURL+"/chatuser/leave", cluster.LeaveChatroomRequest{
		Chatroom: chatroom,
		Username: username,
	}, &resp)
	return resp, err
}
