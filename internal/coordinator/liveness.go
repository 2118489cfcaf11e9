package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/cluster"
)

// NodeLiveness tracks the liveness of a single registered node.
// Thread-safe only when accessed through LivenessMonitor's mutex.
type NodeLiveness struct {
	NodeID           string
	Healthy          bool
	LastCheck        time.Time
	LastHealthy      time.Time
	ConsecutiveFails int
}

// LivenessMonitor periodically sweeps the coordinator's three rosters
// (chat nodes, data-node DataOps endpoints, data-node DataParticipant
// endpoints) and reports nodes that stop answering. A chat node that goes
// unhealthy is the trigger for re-establishing every chatroom it was
// hosting onto a replacement node (spec §5's re-establishment flow); data
// node failures are logged but otherwise left to the 2PC commit-wait path
// to surface on its own, since durable data has no single owning node to
// fail over.
//
// Thread Safety: all methods are safe for concurrent use.
type LivenessMonitor struct {
	chatNodes        *Roster
	dataOps          *Roster
	dataParticipants *Roster

	checkFunc    func(addr string) error
	onChatNodeDown func(nodeID string)

	log         *zap.Logger
	interval    time.Duration
	maxFailures int
	httpClient  *http.Client

	mu     sync.RWMutex
	health map[string]*NodeLiveness

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLivenessMonitor builds a monitor that sweeps every interval, marking a
// node unhealthy after maxFailures consecutive failed checks.
func NewLivenessMonitor(log *zap.Logger, chatNodes, dataOps, dataParticipants *Roster, interval time.Duration, maxFailures int) *LivenessMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &LivenessMonitor{
		chatNodes:        chatNodes,
		dataOps:          dataOps,
		dataParticipants: dataParticipants,
		log:              log,
		interval:         interval,
		maxFailures:      maxFailures,
		httpClient:       &http.Client{Timeout: 2 * time.Second},
		health:           make(map[string]*NodeLiveness),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// SetOnChatNodeDown registers the callback invoked (in its own goroutine)
// the moment a chat node crosses the failure threshold.
func (m *LivenessMonitor) SetOnChatNodeDown(callback func(nodeID string)) {
	m.onChatNodeDown = callback
}

// SetCheckFunc overrides the default HTTP health probe, for tests.
func (m *LivenessMonitor) SetCheckFunc(checkFunc func(addr string) error) {
	m.checkFunc = checkFunc
}

// Start runs the sweep loop until ctx is canceled. Intended to be run in
// its own goroutine.
func (m *LivenessMonitor) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	if ctx == nil {
		ctx = m.ctx
	}
	if m.checkFunc == nil {
		m.checkFunc = m.defaultCheck
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("liveness monitor started", zap.Duration("interval", m.interval))
	m.sweep()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-ctx.Done():
			m.log.Info("liveness monitor stopping")
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// Stop cancels the sweep loop and waits for it to exit.
func (m *LivenessMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// CheckNow immediately re-checks a single chat node out of band, used by
// the re-establishment path to confirm a node is really gone before
// placing its rooms elsewhere, without waiting for the next tick.
func (m *LivenessMonitor) CheckNow(node cluster.NodeInfo) error {
	err := m.checkFunc(node.Addr())
	m.recordResult(node, err, m.chatNodes)
	return err
}

func (m *LivenessMonitor) sweep() {
	for _, n := range m.chatNodes.All() {
		m.check(n, m.chatNodes)
	}
	for _, n := range m.dataOps.All() {
		m.check(n, m.dataOps)
	}
	for _, n := range m.dataParticipants.All() {
		m.check(n, m.dataParticipants)
	}
}

func (m *LivenessMonitor) check(node cluster.NodeInfo, roster *Roster) {
	err := m.checkFunc(node.Addr())
	m.recordResult(node, err, roster)
}

func (m *LivenessMonitor) recordResult(node cluster.NodeInfo, err error, roster *Roster) {
	m.mu.Lock()
	h, exists := m.health[node.ID]
	if !exists {
		h = &NodeLiveness{NodeID: node.ID, LastHealthy: time.Now()}
		m.health[node.ID] = h
	}
	h.LastCheck = time.Now()

	if err != nil {
		h.ConsecutiveFails++
		m.log.Warn("liveness check failed", zap.String("node_id", node.ID),
			zap.Int("consecutive_fails", h.ConsecutiveFails), zap.Error(err))

		if h.ConsecutiveFails >= m.maxFailures {
			crossed := h.ConsecutiveFails == m.maxFailures
			h.Healthy = false
			m.mu.Unlock()

			if crossed {
				m.log.Warn("node marked unhealthy", zap.String("node_id", node.ID))
				roster.Remove(node.ID)
				if roster == m.chatNodes && m.onChatNodeDown != nil {
					go m.onChatNodeDown(node.ID)
				}
			}
			return
		}
		m.mu.Unlock()
		return
	}

	if !h.Healthy {
		m.log.Info("node recovered", zap.String("node_id", node.ID))
	}
	h.Healthy = true
	h.ConsecutiveFails = 0
	h.LastHealthy = time.Now()
	m.mu.Unlock()
}

// Status returns a copy of the current liveness record for id, if any.
func (m *LivenessMonitor) Status(id string) (NodeLiveness, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.health[id]
	if !ok {
		return NodeLiveness{}, false
	}
	return *h, true
}

func (m *LivenessMonitor) defaultCheck(addr string) error {
	url := fmt.Sprintf("http://%s/healthz", addr)
	resp, err := m.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("liveness probe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("liveness probe returned status %d", resp.StatusCode)
	}
	return nil
}
