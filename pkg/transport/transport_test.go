package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/transport"
	"github.com/stretchr/testify/require"
)

func TestPutGetDeleteRoundTrip(t *testing.T) {
	store := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			buf := make([]byte, 0)
			tmp := make([]byte, 4096)
			for {
				n, err := file.Read(tmp)
				buf = append(buf, tmp[:n]...)
				if err != nil {
					break
				}
			}
			store[r.URL.Path] = buf
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			body, ok := store[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write(body)
		case http.MethodDelete:
			if _, ok := store[r.URL.Path]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(store, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	node := config.NodeInfo{NodeID: "n1", BaseURL: srv.URL}
	tr := transport.New()
	ctx := context.Background()

	res := tr.Put(ctx, node, "b1", "shard-0", []byte("hello"))
	require.True(t, res.OK)

	res = tr.Get(ctx, node, "b1", "shard-0")
	require.True(t, res.OK)
	require.Equal(t, []byte("hello"), res.Body)

	res = tr.Delete(ctx, node, "b1", "shard-0")
	require.True(t, res.OK)

	res = tr.Get(ctx, node, "b1", "shard-0")
	require.False(t, res.OK)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDeleteOfMissingShardIsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	node := config.NodeInfo{NodeID: "n1", BaseURL: srv.URL}
	tr := transport.New()
	res := tr.Delete(context.Background(), node, "b1", "shard-0")
	require.True(t, res.OK)
}

func TestConnectionRefused(t *testing.T) {
	node := config.NodeInfo{NodeID: "n1", BaseURL: "http://127.0.0.1:1"}
	tr := transport.New()
	res := tr.Get(context.Background(), node, "b1", "shard-0")
	require.False(t, res.OK)
}
