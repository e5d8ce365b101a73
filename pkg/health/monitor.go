// Package health implements the periodic storage-node probe described in
// spec §4.8: advisory-only status, read by admin endpoints, never
// consulted by the write pipeline (quorum is the real safety net).
package health

import (
	"context"
	"sync"
	"time"

	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/log"
	"github.com/planetstore/gateway/pkg/transport"
)

type Monitor struct {
	nodes    []config.NodeInfo
	interval time.Duration
	tr       *transport.Transport

	mu     sync.RWMutex
	status map[string]NodeHealth

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewMonitor(nodes []config.NodeInfo, interval time.Duration, tr *transport.Transport) *Monitor {
	m := &Monitor{
		nodes:    nodes,
		interval: interval,
		tr:       tr,
		status:   make(map[string]NodeHealth, len(nodes)),
		stopCh:   make(chan struct{}),
	}
	for _, n := range nodes {
		m.status[n.NodeID] = NodeHealth{NodeID: n.NodeID, Status: StatusUnknown}
	}
	return m
}

// Start launches the periodic probe loop in a background goroutine and
// runs one check immediately, mirroring
// original_source/gateway/health_monitor.py's HealthMonitor.start.
func (m *Monitor) Start() {
	m.checkAll()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkAll()
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) checkAll() {
	var wg sync.WaitGroup
	for _, n := range m.nodes {
		n := n
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.checkOne(n)
		}()
	}
	wg.Wait()
}

func (m *Monitor) checkOne(n config.NodeInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), transport.HealthTimeout)
	defer cancel()

	res, rtt := m.tr.Health(ctx, n)
	h := NodeHealth{NodeID: n.NodeID, LastProbeTime: time.Now()}
	if res.OK {
		h.Status = StatusHealthy
		h.LastRTTMillis = float64(rtt.Microseconds()) / 1000.0
	} else {
		h.Status = StatusUnhealthy
		h.LastError = res.Message
		log.WithNode(n.NodeID).Warn().Str("error", res.Message).Msg("node health check failed")
	}

	m.mu.Lock()
	m.status[n.NodeID] = h
	m.mu.Unlock()
}

// Get returns the health of a single node, if known.
func (m *Monitor) Get(nodeID string) (NodeHealth, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.status[nodeID]
	return h, ok
}

// All returns a snapshot of every node's health.
func (m *Monitor) All() []NodeHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]NodeHealth, 0, len(m.status))
	for _, h := range m.status {
		out = append(out, h)
	}
	return out
}
