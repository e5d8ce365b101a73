package gateway

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (g *Gateway) metricsHandler() http.Handler {
	return promhttp.HandlerFor(g.Metrics.Registry, promhttp.HandlerOpts{})
}

func (g *Gateway) handleAdminHealth(w http.ResponseWriter, r *http.Request) {
	nodeID := r.URL.Query().Get("node_id")
	if nodeID != "" {
		h, found := g.Health.Get(nodeID)
		if !found {
			writeJSONError(w, apierr.NotFound("node %q not found", nodeID))
			return
		}
		writeJSON(w, http.StatusOK, h)
		return
	}
	writeJSON(w, http.StatusOK, g.Health.All())
}

func (g *Gateway) handleGCStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.GC.Status())
}

func (g *Gateway) handleTriggerGC(w http.ResponseWriter, r *http.Request) {
	g.GC.RunOnce()
	writeJSON(w, http.StatusOK, g.GC.Status())
}

type quotaUsageResponse struct {
	Objects      int   `json:"objects"`
	TotalSize    int64 `json:"total_size_bytes"`
	MaxSizeBytes int64 `json:"max_size_bytes"`
	MaxObjects   int   `json:"max_objects"`
}

func (g *Gateway) handleQuotaUsage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	objects, totalSize, limits, err := g.Quota.Usage(vars["bucket"])
	if err != nil {
		writeJSONError(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, quotaUsageResponse{
		Objects:      objects,
		TotalSize:    totalSize,
		MaxSizeBytes: limits.MaxSizeBytes,
		MaxObjects:   limits.MaxObjects,
	})
}
