package clientkit

import (
	"context"
	"fmt"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// Coordinator is a thin client for the coordinator's UserOps surface.
type Coordinator struct {
	BaseURL string
}

// NewCoordinator builds a Coordinator client addressing baseURL (e.g.
// "http://localhost:8080").
func NewCoordinator(baseURL string) *Coordinator {
	return &Coordinator{BaseURL: baseURL}
}

// RegisterUser registers a new username/password pair.
func (c *Coordinator) RegisterUser(ctx context.Context, username, password string) (cluster.Response, error) {
	var resp cluster.Response
	err := cluster.PostJSON(ctx, c.BaseURL+"/user/register", cluster.RegisterUserRequest{
		Username: username,
		Password: password,
	}, &resp)
	return resp, err
}

// Login verifies a username/password pair.
func (c *Coordinator) Login(ctx context.Context, username, password string) (cluster.Response, error) {
	var resp cluster.Response
	err := cluster.PostJSON(ctx, c.BaseURL+"/user/login", cluster.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	return resp, err
}

// ListChatrooms returns every chatroom name currently hosted cluster-wide.
func (c *Coordinator) ListChatrooms(ctx context.Context) (cluster.ChatroomListResponse, error) {
	var resp cluster.ChatroomListResponse
	err := cluster.GetJSON(ctx, c.BaseURL+"/chatroom/list", &resp)
	return resp, err
}

// CreateChatroom creates a new chatroom owned by owner.
func (c *Coordinator) CreateChatroom(ctx context.Context, name, owner string) (cluster.Response, error) {
	var resp cluster.Response
	err := cluster.PostJSON(ctx, c.BaseURL+"/chatroom/create", cluster.CreateChatroomRequest{
		Name:  name,
		Owner: owner,
	}, &resp)
	return resp, err
}

// DeleteChatroom deletes a chatroom name on behalf of username, gated on
// ownership and credentials by the coordinator.
func (c *Coordinator) DeleteChatroom(ctx context.Context, name, username, password string) (cluster.Response, error) {
	var resp cluster.Response
	err := cluster.PostJSON(ctx, c.BaseURL+"/chatroom/delete", cluster.DeleteChatroomRequest{
		Name:     name,
		Username: username,
		Password: password,
	}, &resp)
	return resp, err
}

// chatroomEnvelope decodes either of getChatroom's two possible response
// bodies: a bare cluster.Response on failure, or a bare
// cluster.ChatroomResponse on success. The field sets of the two wire
// types never overlap, so one struct can receive either shape.
type chatroomEnvelope struct {
	Status  cluster.Status `json:"status"`
	Message string         `json:"message"`
	Name    string         `json:"name"`
	Host    string         `json:"host"`
	TCPPort int            `json:"tcp_port"`
	RMIPort int            `json:"rmi_port"`
}

// GetChatroom locates the chat node currently hosting name.
func (c *Coordinator) GetChatroom(ctx context.Context, name string) (cluster.ChatroomResponse, error) {
	var env chatroomEnvelope
	if err := cluster.PostJSON(ctx, c.BaseURL+"/chatroom/get", cluster.GetChatroomRequest{Name: name}, &env); err != nil {
		return cluster.ChatroomResponse{}, err
	}
	if env.Status == cluster.StatusFail {
		return cluster.ChatroomResponse{}, fmt.Errorf("getChatroom %q: %s", name, env.Message)
	}
	return cluster.ChatroomResponse{Name: env.Name, Host: env.Host, TCPPort: env.TCPPort, RMIPort: env.RMIPort}, nil
}

// ReestablishChatroom is called by a client when its message stream
// unexpectedly closes. The coordinator's reestablishChatroom call itself
// only answers OK/FAIL (it records the new placement internally but does
// not hand it back); this wraps that call with the follow-up
// GetChatroom a client actually needs, so callers get the placement in
// one round trip the way spec's client-path narrative describes.
func (c *Coordinator) ReestablishChatroom(ctx context.Context, name, username string) (cluster.ChatroomResponse, error) {
	var resp cluster.Response
	err := cluster.PostJSON(ctx, c.BaseURL+"/chatroom/reestablish", cluster.ReestablishRequest{
		Name:     name,
		Username: username,
	}, &resp)
	if err != nil {
		return cluster.ChatroomResponse{}, err
	}
	if resp.Status == cluster.StatusFail {
		return cluster.ChatroomResponse{}, fmt.Errorf("reestablishChatroom %q: %s", name, resp.Message)
	}
	return c.GetChatroom(ctx, name)
}
