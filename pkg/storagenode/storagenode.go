// Package storagenode implements the storage-node HTTP contract from
// spec §6: a dumb per-file store behind PUT/GET/DELETE and a health
// probe. It knows nothing about buckets, erasure coding or dedup — it
// only sanitizes (bucket, shard_key) into a safe path on local disk.
package storagenode

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/planetstore/gateway/pkg/log"
)

// Node serves the storage-node HTTP contract rooted at dataDir.
type Node struct {
	dataDir string
}

func New(dataDir string) *Node {
	return &Node{dataDir: dataDir}
}

// Router builds the mux.Router for this node's HTTP surface.
func (n *Node) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/internal/health", n.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/internal/objects/{bucket}/{shardKey:.*}", n.handlePut).Methods(http.MethodPut)
	r.HandleFunc("/internal/objects/{bucket}/{shardKey:.*}", n.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/internal/objects/{bucket}/{shardKey:.*}", n.handleDelete).Methods(http.MethodDelete)
	return r
}

func (n *Node) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// path sanitizes (bucket, shardKey) into a path confined to dataDir
// (spec §6: "storage nodes must sanitize path traversal"). Each part is
// cleaned against a virtual root, so ".." segments cannot climb out and
// the result lands inside dataDir; the second return value is false only
// if the joined path still falls outside dataDir.
func (n *Node) path(bucket, shardKey string) (string, bool) {
	root := filepath.Clean(n.dataDir)
	rel := filepath.Join(filepath.Clean("/"+bucket), filepath.Clean("/"+shardKey))
	full := filepath.Join(root, rel)
	if full != root && !strings.HasPrefix(full, root+string(os.PathSeparator)) {
		return "", false
	}
	return full, true
}

func (n *Node) handlePut(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	path, ok := n.path(vars["bucket"], vars["shardKey"])
	if !ok {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "bad multipart body", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.WithComponent("storagenode").Error().Err(err).Msg("mkdir failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out, err := os.Create(path)
	if err != nil {
		log.WithComponent("storagenode").Error().Err(err).Msg("create failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		log.WithComponent("storagenode").Error().Err(err).Msg("write failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (n *Node) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	path, ok := n.path(vars["bucket"], vars["shardKey"])
	if !ok {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}

func (n *Node) handleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	path, ok := n.path(vars["bucket"], vars["shardKey"])
	if !ok {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
