package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/quota"
	"github.com/planetstore/gateway/pkg/registry"
	"github.com/planetstore/gateway/pkg/transport"
	"github.com/stretchr/testify/require"
)

// fakeNode is an in-memory storage node implementing the §6 HTTP contract.
type fakeNode struct {
	mu   sync.Mutex
	data map[string][]byte
	down bool
}

func newFakeNode() *fakeNode {
	return &fakeNode{data: make(map[string][]byte)}
}

func (n *fakeNode) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		shardKey := r.URL.Path
		switch r.Method {
		case http.MethodPut:
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			buf := make([]byte, 0)
			tmp := make([]byte, 4096)
			for {
				n2, rerr := file.Read(tmp)
				if n2 > 0 {
					buf = append(buf, tmp[:n2]...)
				}
				if rerr != nil {
					break
				}
			}
			n.data[shardKey] = buf
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			body, ok := n.data[shardKey]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write(body)
		case http.MethodDelete:
			delete(n.data, shardKey)
			w.WriteHeader(http.StatusOK)
		}
	}
}

func newTestPipeline(t *testing.T, nodeCount int) (*Pipeline, []*fakeNode, []*httptest.Server) {
	t.Helper()
	var nodes []config.NodeInfo
	var fakes []*fakeNode
	var servers []*httptest.Server
	for i := 0; i < nodeCount; i++ {
		fn := newFakeNode()
		srv := httptest.NewServer(fn.handler())
		nodes = append(nodes, config.NodeInfo{NodeID: srv.URL, BaseURL: srv.URL})
		fakes = append(fakes, fn)
		servers = append(servers, srv)
		t.Cleanup(srv.Close)
	}

	store, err := meta.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	reg := registry.New(nodes)
	gate := quota.NewGate(store, cfg)
	tr := transport.New()

	return New(store, reg, tr, gate), fakes, servers
}

func TestWriteReadRoundTrip(t *testing.T) {
	p, _, _ := newTestPipeline(t, 6)
	blob := []byte("hello erasure coded world, this is test content")

	res, err := p.Write(context.Background(), "b", "k", blob, ConsistencyStrong, "")
	require.NoError(t, err)
	require.False(t, res.Deduplicated)
	require.NotEmpty(t, res.VersionID)

	out, err := p.Read(context.Background(), "b", "k", "")
	require.NoError(t, err)
	require.Equal(t, blob, out)
}

func TestWriteDedupSecondUploadNoShardIO(t *testing.T) {
	p, fakes, _ := newTestPipeline(t, 6)
	blob := []byte("identical content")

	res1, err := p.Write(context.Background(), "b", "k1", blob, ConsistencyStrong, "")
	require.NoError(t, err)
	require.False(t, res1.Deduplicated)

	countsBefore := make([]int, len(fakes))
	for i, f := range fakes {
		f.mu.Lock()
		countsBefore[i] = len(f.data)
		f.mu.Unlock()
	}

	res2, err := p.Write(context.Background(), "b", "k2", blob, ConsistencyStrong, "")
	require.NoError(t, err)
	require.True(t, res2.Deduplicated)
	require.Equal(t, res1.ContentHash, res2.ContentHash)
	require.NotEqual(t, res1.VersionID, res2.VersionID)

	for i, f := range fakes {
		f.mu.Lock()
		require.Equal(t, countsBefore[i], len(f.data))
		f.mu.Unlock()
	}
}

func TestWriteFailsQuorumWhenTooManyNodesDown(t *testing.T) {
	p, fakes, _ := newTestPipeline(t, 6)
	for i := 0; i < 3; i++ {
		fakes[i].mu.Lock()
		fakes[i].down = true
		fakes[i].mu.Unlock()
	}

	_, err := p.Write(context.Background(), "b", "k", []byte("some content"), ConsistencyStrong, "")
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindQuorumNotMet, apiErr.Kind)
}

func TestWriteSucceedsAtExactlyQuorum(t *testing.T) {
	p, fakes, _ := newTestPipeline(t, 6)
	for i := 0; i < 2; i++ {
		fakes[i].mu.Lock()
		fakes[i].down = true
		fakes[i].mu.Unlock()
	}

	res, err := p.Write(context.Background(), "b", "k", []byte("barely enough shards"), ConsistencyStrong, "")
	require.NoError(t, err)
	require.False(t, res.Deduplicated)
}

func TestReadDegradedUnreadableWhenTooManyShardsMissing(t *testing.T) {
	p, fakes, _ := newTestPipeline(t, 6)
	blob := []byte("will lose too many shards")
	_, err := p.Write(context.Background(), "b", "k", blob, ConsistencyEventual, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		fakes[i].mu.Lock()
		fakes[i].down = true
		fakes[i].mu.Unlock()
	}

	_, err = p.Read(context.Background(), "b", "k", "")
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindDegradedUnreadable, apiErr.Kind)
}

func TestDeleteRemovesLatestAndShardsWhenRefcountZero(t *testing.T) {
	p, fakes, _ := newTestPipeline(t, 6)
	blob := []byte("to be deleted")
	_, err := p.Write(context.Background(), "b", "k", blob, ConsistencyStrong, "")
	require.NoError(t, err)

	require.NoError(t, p.Delete(context.Background(), "b", "k"))

	_, err = p.Read(context.Background(), "b", "k", "")
	require.Error(t, err)

	total := 0
	for _, f := range fakes {
		f.mu.Lock()
		total += len(f.data)
		f.mu.Unlock()
	}
	require.Equal(t, 0, total)
}

func TestDeleteKeepsSharesWhileRefcountPositive(t *testing.T) {
	p, fakes, _ := newTestPipeline(t, 6)
	blob := []byte("shared content")
	_, err := p.Write(context.Background(), "b", "k1", blob, ConsistencyStrong, "")
	require.NoError(t, err)
	_, err = p.Write(context.Background(), "b", "k2", blob, ConsistencyStrong, "")
	require.NoError(t, err)

	require.NoError(t, p.Delete(context.Background(), "b", "k1"))

	out, err := p.Read(context.Background(), "b", "k2", "")
	require.NoError(t, err)
	require.Equal(t, blob, out)

	total := 0
	for _, f := range fakes {
		f.mu.Lock()
		total += len(f.data)
		f.mu.Unlock()
	}
	require.Greater(t, total, 0)
}
