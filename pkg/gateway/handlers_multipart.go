package gateway

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/pipeline"
)

type initiateMultipartResponse struct {
	UploadID string `json:"upload_id"`
}

func (g *Gateway) handleInitiateMultipart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	uploadID, err := g.Multipart.Initiate(vars["bucket"], vars["key"])
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initiateMultipartResponse{UploadID: uploadID})
}

func (g *Gateway) handleUploadPart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	partNumber, err := strconv.Atoi(vars["partNumber"])
	if err != nil {
		writeJSONError(w, apierr.BadRequest("invalid part number: %v", err))
		return
	}
	if err := g.Multipart.UploadPart(vars["uploadId"], partNumber, r.Body); err != nil {
		writeJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (g *Gateway) handleCompleteMultipart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	consistency := pipeline.ConsistencyStrong
	if r.URL.Query().Get("consistency") == "eventual" {
		consistency = pipeline.ConsistencyEventual
	}
	res, err := g.Multipart.Complete(r.Context(), vars["uploadId"], consistency, r.URL.Query().Get("region"))
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, putObjectResponse{
		VersionID:    res.VersionID,
		Deduplicated: res.Deduplicated,
		ContentHash:  res.ContentHash,
	})
}

func (g *Gateway) handleAbortMultipart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := g.Multipart.Abort(vars["uploadId"]); err != nil {
		writeJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
