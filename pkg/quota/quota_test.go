package quota

import (
	"path/filepath"
	"testing"

	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T, cfg config.Config) (*Gate, *meta.Store) {
	t.Helper()
	store, err := meta.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewGate(store, cfg), store
}

func TestCheckWritePassesUnderLimit(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultMaxSizeBytes = 1000
	cfg.DefaultMaxObjects = 10
	gate, _ := newGate(t, cfg)

	require.NoError(t, gate.CheckWrite("b", 500, true))
}

func TestCheckWriteFailsOnSizeLimit(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultMaxSizeBytes = 100
	cfg.DefaultMaxObjects = 10
	gate, store := newGate(t, cfg)

	_, err := store.PutObjectVersion("b", "k1", 90, "h1")
	require.NoError(t, err)

	err = gate.CheckWrite("b", 20, true)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindQuotaExceeded, apiErr.Kind)
	require.Equal(t, apierr.QuotaDimensionBytes, apiErr.QuotaDimension)
}

func TestCheckWriteFailsOnObjectCountLimit(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultMaxSizeBytes = 1_000_000
	cfg.DefaultMaxObjects = 1
	gate, store := newGate(t, cfg)

	_, err := store.PutObjectVersion("b", "k1", 1, "h1")
	require.NoError(t, err)

	err = gate.CheckWrite("b", 1, true)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.QuotaDimensionObjects, apiErr.QuotaDimension)
}

func TestCheckWriteOverwriteDoesNotCountAsNewObject(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultMaxObjects = 1
	cfg.DefaultMaxSizeBytes = 1_000_000
	gate, store := newGate(t, cfg)

	_, err := store.PutObjectVersion("b", "k1", 1, "h1")
	require.NoError(t, err)

	require.NoError(t, gate.CheckWrite("b", 1, false))
}

func TestExplicitQuotaOverridesDefault(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultMaxSizeBytes = 1_000_000
	gate, store := newGate(t, cfg)

	require.NoError(t, store.SetQuota("b", meta.BucketQuota{MaxSizeBytes: 10, MaxObjects: 100}))

	err := gate.CheckWrite("b", 20, true)
	require.Error(t, err)
}
