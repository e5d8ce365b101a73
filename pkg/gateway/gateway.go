// Package gateway implements the Gateway API (C11 in spec §2, §4.11):
// the HTTP-facing orchestration of every other component, with a
// trivial Idle -> Running -> ShuttingDown lifecycle.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/gc"
	"github.com/planetstore/gateway/pkg/health"
	"github.com/planetstore/gateway/pkg/log"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/multipart"
	"github.com/planetstore/gateway/pkg/pipeline"
	"github.com/planetstore/gateway/pkg/quota"
	"github.com/planetstore/gateway/pkg/ratelimit"
	"github.com/planetstore/gateway/pkg/registry"
	"github.com/planetstore/gateway/pkg/replication"
	"github.com/planetstore/gateway/pkg/transport"
)

// State is the gateway's lifecycle state (spec §4.11).
type State int

const (
	StateIdle State = iota
	StateRunning
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Gateway wires every component together behind one HTTP server.
// Explicit fields only — no package-level singletons (spec §9).
type Gateway struct {
	cfg config.Config

	Store     *meta.Store
	Registry  *registry.Registry
	Transport *transport.Transport
	Quota     *quota.Gate
	Pipeline  *pipeline.Pipeline
	Health    *health.Monitor
	GC        *gc.Loop
	Multipart *multipart.Manager
	Limiter   *ratelimit.Limiter
	Metrics   *Metrics

	server *http.Server

	mu    sync.Mutex
	state State

	evictStop chan struct{}
}

// New constructs every component from cfg but does not start anything.
func New(cfg config.Config) (*Gateway, error) {
	store, err := meta.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("gateway: open metadata store: %w", err)
	}

	reg := registry.New(cfg.Nodes)
	tr := transport.New()
	q := quota.NewGate(store, cfg)
	p := pipeline.New(store, reg, tr, q)
	p.Replicator = replication.New(reg, tr, reg.Regions())

	hm := health.NewMonitor(cfg.Nodes, cfg.HealthInterval, tr)
	gcLoop := gc.New(store, reg, tr, cfg.GCInterval, cfg.RetentionDays, cfg.MaxVersionsPerKey)
	mp := multipart.New(store, p, cfg.ScratchDir)
	limiter := ratelimit.New(cfg.RateLimitRPM)
	metrics := NewMetrics()

	g := &Gateway{
		cfg:       cfg,
		Store:     store,
		Registry:  reg,
		Transport: tr,
		Quota:     q,
		Pipeline:  p,
		Health:    hm,
		GC:        gcLoop,
		Multipart: mp,
		Limiter:   limiter,
		Metrics:   metrics,
		state:     StateIdle,
		evictStop: make(chan struct{}),
	}

	g.server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: g.buildRouter(),
	}
	return g, nil
}

func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gateway) buildRouter() *mux.Router {
	r := mux.NewRouter()
	registerObjectRoutes(r, g)
	registerAdminRoutes(r, g)
	registerMultipartRoutes(r, g)
	registerS3Routes(r, g)
	return r
}

// Start transitions Idle -> Running: starts the health monitor and GC
// loop, then begins accepting requests (spec §4.11).
func (g *Gateway) Start() error {
	g.mu.Lock()
	g.state = StateRunning
	g.mu.Unlock()

	logger := log.WithComponent("gateway")
	g.Health.Start()
	g.GC.Start()
	go g.Limiter.RunEvictionLoop(time.Minute, g.evictStop)

	logger.Info().Str("addr", g.cfg.ListenAddr).Msg("gateway starting")
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown transitions Running -> ShuttingDown: stops background loops,
// drains in-flight requests within the configured grace period, then
// closes the metadata store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.state = StateShuttingDown
	g.mu.Unlock()

	logger := log.WithComponent("gateway")
	logger.Info().Msg("gateway shutting down")

	close(g.evictStop)
	g.GC.Stop()
	g.Health.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, g.cfg.ShutdownGracePeriod)
	defer cancel()
	if err := g.server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during HTTP shutdown")
	}

	return g.Store.Close()
}
