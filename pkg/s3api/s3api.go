// Package s3api is a thin S3-style XML mirror of the native gateway API
// (spec §4.15): PutObject/GetObject/DeleteObject/ListBuckets translated
// to the same pkg/pipeline and pkg/meta calls the native JSON API uses.
// It carries no independent shard-key scheme — every write goes through
// pkg/pipeline, which owns the one nonce-bearing constructor.
package s3api

import (
	"encoding/xml"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/pipeline"
)

type listAllMyBucketsResult struct {
	XMLName xml.Name   `xml:"ListAllMyBucketsResult"`
	Buckets []s3Bucket `xml:"Buckets>Bucket"`
}

type s3Bucket struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

type errorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// Router builds the /s3-mounted subrouter.
func Router(store *meta.Store, p *pipeline.Pipeline) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/s3", handleListBuckets(store)).Methods(http.MethodGet)
	r.HandleFunc("/s3/{bucket}/{key:.*}", handlePutObject(p)).Methods(http.MethodPut)
	r.HandleFunc("/s3/{bucket}/{key:.*}", handleGetObject(p)).Methods(http.MethodGet)
	r.HandleFunc("/s3/{bucket}/{key:.*}", handleDeleteObject(p)).Methods(http.MethodDelete)
	return r
}

func handleListBuckets(store *meta.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buckets, err := store.ListBuckets()
		if err != nil {
			writeXMLError(w, apierr.Internal(err))
			return
		}
		out := listAllMyBucketsResult{}
		for _, b := range buckets {
			out.Buckets = append(out.Buckets, s3Bucket{Name: b.Name, CreationDate: b.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z")})
		}
		writeXML(w, http.StatusOK, out)
	}
}

func handlePutObject(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		blob, err := io.ReadAll(r.Body)
		if err != nil {
			writeXMLError(w, apierr.BadRequest("reading body: %v", err))
			return
		}
		consistency := pipeline.ConsistencyStrong
		if r.URL.Query().Get("consistency") == "eventual" {
			consistency = pipeline.ConsistencyEventual
		}
		res, err := p.Write(r.Context(), vars["bucket"], vars["key"], blob, consistency, r.URL.Query().Get("region"))
		if err != nil {
			writeXMLError(w, err)
			return
		}
		w.Header().Set("ETag", `"`+res.ContentHash+`"`)
		w.WriteHeader(http.StatusOK)
	}
}

func handleGetObject(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		body, err := p.Read(r.Context(), vars["bucket"], vars["key"], r.URL.Query().Get("versionId"))
		if err != nil {
			writeXMLError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

func handleDeleteObject(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		if err := p.Delete(r.Context(), vars["bucket"], vars["key"]); err != nil {
			writeXMLError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeXML(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(v)
}

func writeXMLError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "InternalError"
	if apiErr, ok := apierr.As(err); ok {
		status = apiErr.HTTPStatus()
		code = apiErrCode(apiErr.Kind)
	}
	writeXML(w, status, errorResponse{Code: code, Message: err.Error()})
}

func apiErrCode(kind apierr.Kind) string {
	switch kind {
	case apierr.KindNotFound:
		return "NoSuchKey"
	case apierr.KindQuotaExceeded:
		return "QuotaExceeded"
	case apierr.KindQuorumNotMet, apierr.KindDegradedUnreadable:
		return "ServiceUnavailable"
	case apierr.KindBadRequest:
		return "InvalidRequest"
	default:
		return "InternalError"
	}
}
