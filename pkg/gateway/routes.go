package gateway

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/planetstore/gateway/pkg/s3api"
)

func registerObjectRoutes(r *mux.Router, g *Gateway) {
	api := r.PathPrefix("").Subrouter()
	api.Use(g.rateLimitMiddleware)

	api.HandleFunc("/buckets", g.handleCreateBucket).Methods(http.MethodPost)
	api.HandleFunc("/buckets", g.handleListBuckets).Methods(http.MethodGet)
	api.HandleFunc("/buckets/{bucket}/objects/{key}", g.handlePutObject).Methods(http.MethodPut)
	api.HandleFunc("/buckets/{bucket}/objects/{key}", g.handleGetObject).Methods(http.MethodGet)
	api.HandleFunc("/buckets/{bucket}/objects/{key}", g.handleDeleteObject).Methods(http.MethodDelete)
	api.HandleFunc("/buckets/{bucket}/objects", g.handleListObjects).Methods(http.MethodGet)
}

func registerAdminRoutes(r *mux.Router, g *Gateway) {
	r.Handle("/admin/metrics", g.metricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/admin/health", g.handleAdminHealth).Methods(http.MethodGet)
	r.HandleFunc("/admin/gc/status", g.handleGCStatus).Methods(http.MethodGet)
	r.HandleFunc("/admin/gc", g.handleTriggerGC).Methods(http.MethodPost)
	r.HandleFunc("/admin/quota/{bucket}", g.handleQuotaUsage).Methods(http.MethodGet)
}

func registerMultipartRoutes(r *mux.Router, g *Gateway) {
	r.HandleFunc("/buckets/{bucket}/objects/{key}/multipart", g.handleInitiateMultipart).Methods(http.MethodPost)
	r.HandleFunc("/multipart/{uploadId}/parts/{partNumber}", g.handleUploadPart).Methods(http.MethodPut)
	r.HandleFunc("/multipart/{uploadId}/complete", g.handleCompleteMultipart).Methods(http.MethodPost)
	r.HandleFunc("/multipart/{uploadId}", g.handleAbortMultipart).Methods(http.MethodDelete)
}

func registerS3Routes(r *mux.Router, g *Gateway) {
	r.PathPrefix("/s3").Handler(s3api.Router(g.Store, g.Pipeline))
}
