package datanode

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
)

const (
	registerAttempts = 10
	registerBackoff  = 400 * time.Millisecond
)

// Register announces this data node to the coordinator, retrying on
// failure to ride out coordinator startup delays. host/opsPort/partPort
// are this node's own advertised addresses; knownRooms is every chatroom
// already on durable record, so the coordinator can re-establish them if
// this node rejoins after an outage.
func Register(ctx context.Context, coordinatorURL, host string, opsPort, partPort int, knownRooms []string, log *zap.Logger) error {
	body := cluster.RegisterDataNodeRequest{
		Host:       host,
		OpsPort:    opsPort,
		PartPort:   partPort,
		KnownRooms: knownRooms,
	}

	var lastErr error
	for i := 0; i < registerAttempts; i++ {
		var resp cluster.RegisterResponse
		lastErr = cluster.PostJSON(ctx, coordinatorURL+"/register/datanode", body, &resp)
		if lastErr == nil {
			log.Info("registered with coordinator",
				zap.String("coordinator", coordinatorURL),
				zap.String("host", host), zap.Int("ops_port", opsPort), zap.Int("part_port", partPort))
			return nil
		}
		log.Warn("register retry", zap.Int("attempt", i+1), zap.Error(lastErr))
		time.Sleep(registerBackoff)
	}

	return fmt.Errorf("failed to register with coordinator after %d attempts: %w", registerAttempts, lastErr)
}
