package chatnode

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StreamListener accepts client stream connections and runs the
// handshake protocol pinned by spec §6: a client opens a TCP connection
// and sends one line "<chatroom>:<username>\n"; the chat node replies
// "success\n" or "fail\n" and, on success, keeps the connection open as
// an outbound-only channel for published chatroom lines.
type StreamListener struct {
	registry *Registry
	log      *zap.Logger

	// onDisconnect fires once a subscribed stream hits EOF — the chat
	// node's way of detecting a client process killed without a clean
	// leaveChatroom call (spec §7). It runs the same unsubscribe +
	// leave-notice logic an explicit leaveChatroom would.
	onDisconnect func(chatroom, username string)
}

// NewStreamListener builds a listener bound to registry. onDisconnect is
// invoked after stream EOF, so the caller (Server) can fold in the
// "System >> ... has left the chat" notice without this package
// depending on ChatUserOps directly.
func NewStreamListener(registry *Registry, log *zap.Logger, onDisconnect func(chatroom, username string)) *StreamListener {
	return &StreamListener{registry: registry, log: log, onDisconnect: onDisconnect}
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed.
func (s *StreamListener) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

func (s *StreamListener) handleConn(conn net.Conn) {
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return
	}
	line = strings.TrimRight(line, "\r\n")

	chatroom, username, ok := strings.Cut(line, ":")
	if !ok || chatroom == "" || username == "" {
		fmt.Fprint(conn, "fail\n")
		conn.Close()
		return
	}

	room, ok := s.registry.Get(chatroom)
	if !ok {
		fmt.Fprint(conn, "fail\n")
		conn.Close()
		return
	}

	room.Subscribe(username, conn)
	s.registry.TrackConn(chatroom, username, conn)
	fmt.Fprint(conn, "success\n")

	// sessionID only correlates this connection's log lines with each
	// other; subscriber identity for every protocol purpose stays the
	// (chatroom, username) pair tracked above.
	sessionID := uuid.New().String()
	log := s.log.With(zap.String("session_id", sessionID), zap.String("chatroom", chatroom), zap.String("username", username))
	log.Debug("stream subscribed")

	// The stream is outbound-only from here: chat/join/leave all go over
	// ChatUserOps. This read only detects EOF (the client closing, or
	// its process dying) so the subscriber can be cleaned up.
	buf := make([]byte, 1)
	for {
		if _, err := reader.Read(buf); err != nil {
			break
		}
	}

	room.Unsubscribe(username)
	s.registry.UntrackConn(chatroom, username)
	conn.Close()
	log.Debug("stream disconnected")

	if s.onDisconnect != nil {
		s.onDisconnect(chatroom, username)
	}
}
