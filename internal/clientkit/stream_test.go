package clientkit

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFakeChatNode(t *testing.T, handshakeReply string, published []string) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		if _, err := conn.Write([]byte(handshakeReply + "\n")); err != nil {
			return
		}
		if handshakeReply != "success" {
			return
		}
		for _, line := range published {
			if _, err := conn.Write([]byte(line + "\n")); err != nil {
				return
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestOpenStreamSuccessReadsPublishedLines(t *testing.T) {
	host, port := startFakeChatNode(t, "success", []string{"System >> alice has joined the chat", "alice >> hello", "\\c"})

	s, err := OpenStream(context.Background(), host, port, "room1", "alice")
	require.NoError(t, err)
	defer s.Close()

	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "System >> alice has joined the chat", line)

	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "alice >> hello", line)

	_, err = s.ReadLine()
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestOpenStreamFailHandshakeReturnsError(t *testing.T) {
	host, port := startFakeChatNode(t, "fail", nil)

	_, err := OpenStream(context.Background(), host, port, "ghost", "alice")
	assert.Error(t, err)
}

func TestOpenStreamEOFWithoutSentinelReturnsEOF(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		r := bufio.NewReader(conn)
		r.ReadString('\n')
		conn.Write([]byte("success\n"))
		conn.Close()
	}()

	addr := ln.Addr().(*net.TCPAddr)
	s, err := OpenStream(context.Background(), "127.0.0.1", addr.Port, "room1", "alice")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadLine()
	assert.True(t, errors.Is(err, io.EOF))
}
