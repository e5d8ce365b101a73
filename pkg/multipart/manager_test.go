package multipart

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/pipeline"
	"github.com/planetstore/gateway/pkg/quota"
	"github.com/planetstore/gateway/pkg/registry"
	"github.com/planetstore/gateway/pkg/transport"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	var nodes []config.NodeInfo
	for i := 0; i < 6; i++ {
		nodes = append(nodes, config.NodeInfo{NodeID: srv.URL, BaseURL: srv.URL})
	}

	store, err := meta.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.New(nodes)
	gate := quota.NewGate(store, config.Default())
	tr := transport.New()
	p := pipeline.New(store, reg, tr, gate)

	return New(store, p, t.TempDir())
}

func TestMultipartInitiateUploadComplete(t *testing.T) {
	m := newTestManager(t)

	uploadID, err := m.Initiate("b", "bigfile")
	require.NoError(t, err)

	require.NoError(t, m.UploadPart(uploadID, 2, bytes.NewReader([]byte("world"))))
	require.NoError(t, m.UploadPart(uploadID, 1, bytes.NewReader([]byte("hello "))))

	res, err := m.Complete(context.Background(), uploadID, pipeline.ConsistencyStrong, "")
	require.NoError(t, err)
	require.NotEmpty(t, res.VersionID)

	_, err = m.store.GetMultipartSession(uploadID)
	require.Error(t, err)
}

func TestMultipartCompleteWithNoPartsFails(t *testing.T) {
	m := newTestManager(t)
	uploadID, err := m.Initiate("b", "empty")
	require.NoError(t, err)

	_, err = m.Complete(context.Background(), uploadID, pipeline.ConsistencyStrong, "")
	require.Error(t, err)
}

func TestMultipartAbortCleansUpSession(t *testing.T) {
	m := newTestManager(t)
	uploadID, err := m.Initiate("b", "abandoned")
	require.NoError(t, err)
	require.NoError(t, m.UploadPart(uploadID, 1, bytes.NewReader([]byte("partial"))))

	require.NoError(t, m.Abort(uploadID))

	_, err = m.store.GetMultipartSession(uploadID)
	require.Error(t, err)
}
