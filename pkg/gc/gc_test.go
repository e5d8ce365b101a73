package gc

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/registry"
	"github.com/planetstore/gateway/pkg/transport"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T, retentionDays, maxVersions int) (*Loop, *meta.Store) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	store, err := meta.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.New([]config.NodeInfo{{NodeID: "n0", BaseURL: srv.URL}})
	tr := transport.New()

	return New(store, reg, tr, time.Hour, retentionDays, maxVersions), store
}

func TestRunOnceReclaimsAgedNonLatestVersions(t *testing.T) {
	loop, store := newTestLoop(t, 0, 0)

	_, _, err := store.GetOrCreateContent("h1", 10, nil)
	require.NoError(t, err)
	_, _, err = store.GetOrCreateContent("h2", 20, nil)
	require.NoError(t, err)

	_, err = store.PutObjectVersion("b", "k", 10, "h1")
	require.NoError(t, err)
	_, err = store.PutObjectVersion("b", "k", 20, "h2")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	loop.RunOnce()

	nonLatest, err := store.NonLatestVersions("b", "k")
	require.NoError(t, err)
	require.Empty(t, nonLatest)

	_, found, err := store.GetContent("h1")
	require.NoError(t, err)
	require.False(t, found)

	stats := loop.Status()
	require.Equal(t, 1, stats.VersionsReclaimed)
	require.Equal(t, 1, stats.ContentRowsFreed)
}

func TestRunOnceKeepsWithinRetentionWindow(t *testing.T) {
	loop, store := newTestLoop(t, 7, 0)

	_, err := store.PutObjectVersion("b", "k", 10, "h1")
	require.NoError(t, err)
	_, err = store.PutObjectVersion("b", "k", 20, "h2")
	require.NoError(t, err)

	loop.RunOnce()

	nonLatest, err := store.NonLatestVersions("b", "k")
	require.NoError(t, err)
	require.Len(t, nonLatest, 1)
}

func TestRunOnceEnforcesMaxVersionsCap(t *testing.T) {
	loop, store := newTestLoop(t, 7, 1)

	_, err := store.CreateBucket("b", false)
	require.NoError(t, err)
	_, _, err = store.GetOrCreateContent("h", 0, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = store.IncrContentRefcount("h")
		require.NoError(t, err)
	}

	for i := 0; i < 4; i++ {
		_, err := store.PutObjectVersion("b", "k", int64(i), "h")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	loop.RunOnce()

	nonLatest, err := store.NonLatestVersions("b", "k")
	require.NoError(t, err)
	require.LessOrEqual(t, len(nonLatest), 1)
}
