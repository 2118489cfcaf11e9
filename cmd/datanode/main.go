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

	"github.com/dreamware/chatrelay/internal/datanode"
	"github.com/dreamware/chatrelay/internal/logging"
)

func main() {
	coordinatorURL := getenv("COORDINATOR_URL", "http://localhost:8080")
	host := getenv("DATANODE_HOST", "localhost")
	opsAddr := getenv("DATANODE_OPS_ADDR", ":9101")
	partAddr := getenv("DATANODE_PART_ADDR", ":9102")
	dataDir := getenv("DATANODE_DATA_DIR", "./data")
	debug := getenv("DATANODE_DEBUG", "") != ""

	log, err := logging.New("datanode", debug)
	if err != nil {
		panic(err)
	}

	store, err := datanode.Open(dataDir, log)
	if err != nil {
		log.Fatal("failed to open durable store", zap.Error(err))
	}

	opsPort := mustPort(opsAddr, log)
	partPort := mustPort(partAddr, log)
	id := host + ":" + strconv.Itoa(opsPort)

	srv := datanode.NewServer(id, coordinatorURL, store, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := datanode.Register(ctx, coordinatorURL, host, opsPort, partPort, store.KnownChatrooms(), log); err != nil {
			log.Fatal("failed to register with coordinator", zap.Error(err))
		}
	}()

	opsSrv := &http.Server{Addr: opsAddr, Handler: srv.OpsMux(), ReadHeaderTimeout: 5 * time.Second}
	partSrv := &http.Server{Addr: partAddr, Handler: srv.ParticipantMux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("data node ops surface listening", zap.String("addr", opsAddr))
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ops listen", zap.Error(err))
		}
	}()
	go func() {
		log.Info("data node participant surface listening", zap.String("addr", partAddr))
		if err := partSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("participant listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = opsSrv.Shutdown(shutdownCtx)
	_ = partSrv.Shutdown(shutdownCtx)
	log.Info("data node stopped")
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
