package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/chatnode"
	"github.com/dreamware/chatrelay/internal/logging"
)

func main() {
	coordinatorURL := getenv("COORDINATOR_URL", "http://localhost:8080")
	host := getenv("CHATNODE_HOST", "localhost")
	httpAddr := getenv("CHATNODE_HTTP_ADDR", ":9201")
	streamAddr := getenv("CHATNODE_STREAM_ADDR", ":9202")
	debug := getenv("CHATNODE_DEBUG", "") != ""

	log, err := logging.New("chatnode", debug)
	if err != nil {
		panic(err)
	}

	httpPort := mustPort(httpAddr, log)
	streamPort := mustPort(streamAddr, log)

	srv := chatnode.NewServer(host, streamPort, httpPort, coordinatorURL, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := chatnode.Register(ctx, coordinatorURL, host, httpPort, streamPort, log); err != nil {
			log.Fatal("failed to register with coordinator", zap.Error(err))
		}
	}()

	streamLn, err := net.Listen("tcp", streamAddr)
	if err != nil {
		log.Fatal("failed to listen on stream port", zap.String("addr", streamAddr), zap.Error(err))
	}
	go func() {
		log.Info("chat node stream surface listening", zap.String("addr", streamAddr))
		if err := srv.Streams().Serve(ctx, streamLn); err != nil {
			log.Error("stream listener stopped", zap.Error(err))
		}
	}()

	httpSrv := &http.Server{Addr: httpAddr, Handler: srv.HTTPMux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("chat node http surface listening", zap.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancel()
	srv.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Info("chat node stopped")
}

func mustPort(addr string, log *zap.Logger) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		log.Fatal("invalid listen address", zap.String("addr", addr), zap.Error(err))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatal("invalid listen port", zap.String("addr", addr), zap.Error(err))
	}
	return port
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
