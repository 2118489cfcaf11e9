package clientkit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// closeSentinel is the line a chat node writes to every subscriber right
// before it tears a chatroom down. Mirrors chatnode.closeSentinel; the two
// packages don't share an import so the string itself is the contract
// (spec §6 pins it exactly).
const closeSentinel = "\\c"

// ErrRoomClosed is returned by Stream.ReadLine when the chatroom was
// deleted out from under the subscriber.
var ErrRoomClosed = errors.New("clientkit: the chatroom has been deleted; no more messages may be delivered")

// Stream is a live subscription to one chatroom on one chat node: the raw
// byte connection a client opens after a Coordinator.GetChatroom call,
// carrying the handshake and every subsequently published line.
type Stream struct {
	conn net.Conn
	r    *bufio.Reader
}

// OpenStream dials (host, tcpPort), performs the "<chatroom>:<username>\n"
// handshake, and returns a Stream ready for ReadLine once the chat node
// answers "success\n". A "fail\n" answer (unknown chatroom, malformed
// handshake) closes the connection and returns an error.
func OpenStream(ctx context.Context, host string, tcpPort int, chatroom, username string) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, tcpPort))
	if err != nil {
		return nil, err
	}

	if _, err := fmt.Fprintf(conn, "%s:%s\n", chatroom, username); err != nil {
		conn.Close()
		return nil, err
	}

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, err
	}
	switch strings.TrimRight(line, "\n") {
	case "success":
		return &Stream{conn: conn, r: r}, nil
	case "fail":
		conn.Close()
		return nil, fmt.Errorf("chat node rejected %q:%q", chatroom, username)
	default:
		conn.Close()
		return nil, fmt.Errorf("unexpected handshake reply %q", line)
	}
}

// ReadLine blocks for the next published message line (already formatted
// as "<sender> >> <text>"), returns ErrRoomClosed on the room-closed
// sentinel, or the underlying error (io.EOF on a clean chat-node-side
// close) otherwise.
func (s *Stream) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimRight(line, "\n")
	if line == closeSentinel {
		return "", ErrRoomClosed
	}
	return line, nil
}

// Close releases the underlying connection. A client calls LeaveChatroom
// on the chat node first on a clean exit; Close alone is what an
// unclean exit relies on the chat node detecting as EOF.
func (s *Stream) Close() error {
	return s.conn.Close()
}
