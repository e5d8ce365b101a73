package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/pipeline"
)

type createBucketRequest struct {
	Name       string `json:"name"`
	Versioning bool   `json:"versioning"`
}

type bucketResponse struct {
	Name              string    `json:"name"`
	VersioningEnabled bool      `json:"versioning_enabled"`
	CreatedAt         time.Time `json:"created_at"`
}

func toBucketResponse(b meta.Bucket) bucketResponse {
	return bucketResponse{Name: b.Name, VersioningEnabled: b.VersioningEnabled, CreatedAt: b.CreatedAt}
}

func (g *Gateway) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	var req createBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, apierr.BadRequest("invalid request body: %v", err))
		return
	}
	if req.Name == "" {
		writeJSONError(w, apierr.BadRequest("bucket name is required"))
		return
	}
	b, err := g.Store.CreateBucket(req.Name, req.Versioning)
	if err != nil {
		writeJSONError(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, toBucketResponse(b))
}

func (g *Gateway) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := g.Store.ListBuckets()
	if err != nil {
		writeJSONError(w, apierr.Internal(err))
		return
	}
	out := make([]bucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, toBucketResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

type putObjectResponse struct {
	VersionID    string `json:"version_id"`
	Deduplicated bool   `json:"deduplicated"`
	ContentHash  string `json:"content_hash"`
}

func (g *Gateway) handlePutObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["bucket"], vars["key"]

	consistency := pipeline.ConsistencyStrong
	if r.URL.Query().Get("consistency") == "eventual" {
		consistency = pipeline.ConsistencyEventual
	}
	region := r.URL.Query().Get("region")

	var blob []byte
	if hasMultipartContentType(r) {
		if err := r.ParseMultipartForm(256 << 20); err != nil {
			writeJSONError(w, apierr.BadRequest("invalid multipart body: %v", err))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, apierr.BadRequest("missing file field: %v", err))
			return
		}
		defer file.Close()
		blob, err = io.ReadAll(file)
		if err != nil {
			writeJSONError(w, apierr.Internal(err))
			return
		}
	} else {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSONError(w, apierr.Internal(err))
			return
		}
		blob = data
	}

	start := time.Now()
	res, err := g.Pipeline.Write(r.Context(), bucket, key, blob, consistency, region)
	g.Metrics.WriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		g.recordWriteOutcome(err)
		writeJSONError(w, err)
		return
	}
	if res.Deduplicated {
		g.Metrics.DedupHitsTotal.Inc()
	}
	g.Metrics.WritesTotal.WithLabelValues("ok").Inc()

	writeJSON(w, http.StatusOK, putObjectResponse{
		VersionID:    res.VersionID,
		Deduplicated: res.Deduplicated,
		ContentHash:  res.ContentHash,
	})
}

func (g *Gateway) recordWriteOutcome(err error) {
	if apiErr, ok := apierr.As(err); ok && apiErr.Kind == apierr.KindQuorumNotMet {
		g.Metrics.QuorumFailures.Inc()
	}
	g.Metrics.WritesTotal.WithLabelValues("error").Inc()
}

func hasMultipartContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return len(ct) >= 19 && ct[:19] == "multipart/form-data"
}

func (g *Gateway) handleGetObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	versionID := r.URL.Query().Get("version_id")

	start := time.Now()
	body, err := g.Pipeline.Read(r.Context(), vars["bucket"], vars["key"], versionID)
	g.Metrics.ReadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		g.Metrics.ReadsTotal.WithLabelValues("error").Inc()
		writeJSONError(w, err)
		return
	}
	g.Metrics.ReadsTotal.WithLabelValues("ok").Inc()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

type deleteObjectResponse struct {
	Status string `json:"status"`
}

func (g *Gateway) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := g.Pipeline.Delete(r.Context(), vars["bucket"], vars["key"]); err != nil {
		g.Metrics.DeletesTotal.WithLabelValues("error").Inc()
		writeJSONError(w, err)
		return
	}
	g.Metrics.DeletesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, deleteObjectResponse{Status: "deleted"})
}

func (g *Gateway) handleListObjects(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := g.Store.RequireBucket(vars["bucket"]); err != nil {
		writeJSONError(w, err)
		return
	}
	versions, err := g.Store.ListObjects(vars["bucket"])
	if err != nil {
		writeJSONError(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]any{"error": err.Error()}
	if apiErr, ok := apierr.As(err); ok {
		status = apiErr.HTTPStatus()
		body["kind"] = apiErr.Kind
		if apiErr.Kind == apierr.KindQuotaExceeded {
			body["dimension"] = apiErr.QuotaDimension
			body["used"] = apiErr.QuotaUsed
			body["limit"] = apiErr.QuotaLimit
			w.Header().Set("X-Quota-Used", strconv.FormatInt(apiErr.QuotaUsed, 10))
			w.Header().Set("X-Quota-Limit", strconv.FormatInt(apiErr.QuotaLimit, 10))
		}
	}
	writeJSON(w, status, body)
}
