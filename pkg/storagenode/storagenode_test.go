package storagenode

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func putMultipart(t *testing.T, handler http.Handler, url string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "shard")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	n := New(t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/internal/health", nil)
	rec := httptest.NewRecorder()
	n.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPutGetDeleteRoundTrip(t *testing.T) {
	n := New(t.TempDir())
	router := n.Router()

	putRec := putMultipart(t, router, "/internal/objects/bucket1/k/nonce/0", []byte("shard-bytes"))
	require.Equal(t, http.StatusOK, putRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/internal/objects/bucket1/k/nonce/0", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
	require.Equal(t, "shard-bytes", getRec.Body.String())

	delReq := httptest.NewRequest(http.MethodDelete, "/internal/objects/bucket1/k/nonce/0", nil)
	delRec := httptest.NewRecorder()
	router.ServeHTTP(delRec, delReq)
	require.Equal(t, http.StatusOK, delRec.Code)

	getReq2 := httptest.NewRequest(http.MethodGet, "/internal/objects/bucket1/k/nonce/0", nil)
	getRec2 := httptest.NewRecorder()
	router.ServeHTTP(getRec2, getReq2)
	require.Equal(t, http.StatusNotFound, getRec2.Code)
}

func TestDeleteMissingShardReturns404(t *testing.T) {
	n := New(t.TempDir())
	router := n.Router()

	req := httptest.NewRequest(http.MethodDelete, "/internal/objects/bucket1/missing/shard/0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMissingShardReturns404(t *testing.T) {
	n := New(t.TempDir())
	router := n.Router()

	req := httptest.NewRequest(http.MethodGet, "/internal/objects/bucket1/missing/shard/0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPathTraversalConfinedToDataDir(t *testing.T) {
	n := New(t.TempDir())
	path, ok := n.path("bucket1", "../../../etc/passwd")
	if ok {
		require.Contains(t, path, n.dataDir)
	}
}
