// Package integration runs the coordinator, data nodes, and chat nodes
// as in-process servers wired together exactly as cmd/coordinator,
// cmd/datanode, and cmd/chatnode wire them, then drives them through
// clientkit the way a real chat client would. This stands in for the
// exec.Command("./bin/...")-based harness a binary-level integration
// suite would use: everything here is reachable without building
// separate binaries, which keeps the suite runnable in any environment
// that can compile the module.
package integration

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/chatnode"
	"github.com/dreamware/chatrelay/internal/clientkit"
	"github.com/dreamware/chatrelay/internal/coordinator"
	"github.com/dreamware/chatrelay/internal/datanode"
	"github.com/dreamware/chatrelay/internal/logging"
)

// cluster bundles a running coordinator, its data nodes, and its chat
// nodes for the duration of one test.
type cluster struct {
	t *testing.T

	ctx    context.Context
	cancel context.CancelFunc

	coordSrv *httptest.Server
	coord    *clientkit.Coordinator

	dataNodes []*dataNodeHandle
	chatNodes []*chatNodeHandle
}

type dataNodeHandle struct {
	dir      string
	store    *datanode.Store
	opsSrv   *httptest.Server
	partSrv  *httptest.Server
	opsPort  int
	partPort int
}

type chatNodeHandle struct {
	srv      *chatnode.Server
	httpSrv  *httptest.Server
	streamLn net.Listener
	host     string
	httpPort int
	tcpPort  int
}

// newCluster starts a coordinator plus numData data nodes and numChat
// chat nodes, all registered with the coordinator before returning.
func newCluster(t *testing.T, numData, numChat int) *cluster {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logging.Noop()

	coordServer := coordinator.NewServer("test-coordinator", log)
	coordServer.StartBackground(ctx)
	coordSrv := httptest.NewServer(coordServer.Mux())
	t.Cleanup(coordSrv.Close)

	c := &cluster{
		t:        t,
		ctx:      ctx,
		cancel:   cancel,
		coordSrv: coordSrv,
		coord:    clientkit.NewCoordinator(coordSrv.URL),
	}

	for i := 0; i < numData; i++ {
		c.dataNodes = append(c.dataNodes, c.startDataNode(log))
	}
	for i := 0; i < numChat; i++ {
		c.chatNodes = append(c.chatNodes, c.startChatNode(log))
	}

	return c
}

func (c *cluster) startDataNode(log *zap.Logger) *dataNodeHandle {
	t := c.t
	t.Helper()

	dir := t.TempDir()
	store, err := datanode.Open(dir, log)
	if err != nil {
		t.Fatalf("opening data node store: %v", err)
	}

	opsLn := listen(t)
	opsPort := opsLn.Addr().(*net.TCPAddr).Port
	id := "127.0.0.1:" + strconv.Itoa(opsPort)

	srv := datanode.NewServer(id, c.coordSrv.URL, store, log)

	opsSrv := newServerOnListener(t, opsLn, srv.OpsMux())
	partSrv := newServerOnListener(t, listen(t), srv.ParticipantMux())

	h := &dataNodeHandle{
		dir:      dir,
		store:    store,
		opsSrv:   opsSrv,
		partSrv:  partSrv,
		opsPort:  opsPort,
		partPort: partSrv.Listener.Addr().(*net.TCPAddr).Port,
	}

	if err := datanode.Register(c.ctx, c.coordSrv.URL, "127.0.0.1", h.opsPort, h.partPort, store.KnownChatrooms(), log); err != nil {
		t.Fatalf("registering data node: %v", err)
	}

	return h
}

func (c *cluster) startChatNode(log *zap.Logger) *chatNodeHandle {
	t := c.t
	t.Helper()

	streamLn := listen(t)
	tcpPort := streamLn.Addr().(*net.TCPAddr).Port

	httpLn := listen(t)
	httpPort := httpLn.Addr().(*net.TCPAddr).Port

	srv := chatnode.NewServer("127.0.0.1", tcpPort, httpPort, c.coordSrv.URL, log)

	httpSrv := newServerOnListener(t, httpLn, srv.HTTPMux())

	go srv.Streams().Serve(c.ctx, streamLn)

	if err := chatnode.Register(c.ctx, c.coordSrv.URL, "127.0.0.1", httpPort, tcpPort, log); err != nil {
		t.Fatalf("registering chat node: %v", err)
	}

	return &chatNodeHandle{
		srv:      srv,
		httpSrv:  httpSrv,
		streamLn: streamLn,
		host:     "127.0.0.1",
		httpPort: httpPort,
		tcpPort:  tcpPort,
	}
}

// kill tears down one chat node's surfaces, simulating a process crash:
// its stream listener and HTTP server both stop accepting/serving, so
// every subscriber's connection drops and the coordinator's next probe
// of it fails.
func (h *chatNodeHandle) kill() {
	h.srv.Shutdown()
	h.streamLn.Close()
	h.httpSrv.Close()
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

// newServerOnListener starts an httptest.Server bound to a listener this
// harness already opened (so the port is known before registration),
// rather than the random one httptest.NewServer would pick itself.
func newServerOnListener(t *testing.T, ln net.Listener, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(handler)
	srv.Listener.Close()
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}
