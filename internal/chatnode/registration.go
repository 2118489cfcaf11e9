package chatnode

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

// Register announces this chat node to the coordinator, retrying on
// failure to ride out coordinator startup delays. Grounded on the same
// retry shape datanode.Register and the teacher's cmd/node/main.go
// register() use.
func Register(ctx context.Context, coordinatorURL, host string, opsPort, tcpPort int, log *zap.Logger) error {
	body := cluster.RegisterChatNodeRequest{Host: host, OpsPort: opsPort, TCPPort: tcpPort}

	var lastErr error
	for i := 0; i < registerAttempts; i++ {
		var resp cluster.RegisterResponse
		lastErr = cluster.PostJSON(ctx, coordinatorURL+"/register/chatnode", body, &resp)
		if lastErr == nil {
			log.Info("registered with coordinator",
				zap.String("coordinator", coordinatorURL),
				zap.String("host", host), zap.Int("ops_port", opsPort), zap.Int("tcp_port", tcpPort))
			return nil
		}
		log.Warn("register retry", zap.Int("attempt", i+1), zap.Error(lastErr))
		time.Sleep(registerBackoff)
	}

	return fmt.Errorf("failed to register with coordinator after %d attempts: %w", registerAttempts, lastErr)
}
