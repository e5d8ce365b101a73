// Package transport implements one-shard-at-a-time PUT/GET/DELETE calls
// against a storage node, with bounded per-call timeouts (spec §4.3) and
// no retries. Results are returned, never raised as Go errors, so callers
// can aggregate quorum without exception handling.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/planetstore/gateway/pkg/config"
)

const (
	PutTimeout    = 10 * time.Second
	GetTimeout    = 5 * time.Second
	DeleteTimeout = 5 * time.Second
	HealthTimeout = 5 * time.Second
)

// Transport issues shard PUT/GET/DELETE against one storage node.
type Transport struct {
	putClient    *http.Client
	getClient    *http.Client
	deleteClient *http.Client
	healthClient *http.Client
}

func New() *Transport {
	return &Transport{
		putClient:    &http.Client{Timeout: PutTimeout},
		getClient:    &http.Client{Timeout: GetTimeout},
		deleteClient: &http.Client{Timeout: DeleteTimeout},
		healthClient: &http.Client{Timeout: HealthTimeout},
	}
}

func objectURL(node config.NodeInfo, bucket, shardKey string) string {
	return fmt.Sprintf("%s/internal/objects/%s/%s", node.BaseURL, url.PathEscape(bucket), url.PathEscape(shardKey))
}

// Put uploads shard bytes to one node as a multipart form field "file",
// matching the storage-node contract in spec §6.
func (t *Transport) Put(ctx context.Context, node config.NodeInfo, bucket, shardKey string, body []byte) Result {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", shardKey)
	if err != nil {
		return errResult(ErrOther, 0, err.Error())
	}
	if _, err := part.Write(body); err != nil {
		return errResult(ErrOther, 0, err.Error())
	}
	if err := mw.Close(); err != nil {
		return errResult(ErrOther, 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, objectURL(node, bucket, shardKey), &buf)
	if err != nil {
		return errResult(ErrOther, 0, err.Error())
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.putClient.Do(req)
	if err != nil {
		return classifyErr(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errResult(ErrHTTPStatus, resp.StatusCode, fmt.Sprintf("status %d", resp.StatusCode))
	}
	return ok(nil)
}

// Get downloads a shard's raw bytes from one node.
func (t *Transport) Get(ctx context.Context, node config.NodeInfo, bucket, shardKey string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, objectURL(node, bucket, shardKey), nil)
	if err != nil {
		return errResult(ErrOther, 0, err.Error())
	}

	resp, err := t.getClient.Do(req)
	if err != nil {
		return classifyErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return errResult(ErrHTTPStatus, resp.StatusCode, fmt.Sprintf("status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResult(ErrOther, 0, err.Error())
	}
	return ok(body)
}

// Delete removes a shard from one node. 404 is treated as success: the
// end state (shard absent) is what the caller wants.
func (t *Transport) Delete(ctx context.Context, node config.NodeInfo, bucket, shardKey string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, objectURL(node, bucket, shardKey), nil)
	if err != nil {
		return errResult(ErrOther, 0, err.Error())
	}

	resp, err := t.deleteClient.Do(req)
	if err != nil {
		return classifyErr(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return errResult(ErrHTTPStatus, resp.StatusCode, fmt.Sprintf("status %d", resp.StatusCode))
	}
	return ok(nil)
}

// Health probes a node's /internal/health endpoint, returning the result
// and the observed round-trip time.
func (t *Transport) Health(ctx context.Context, node config.NodeInfo) (Result, time.Duration) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, node.BaseURL+"/internal/health", nil)
	if err != nil {
		return errResult(ErrOther, 0, err.Error()), 0
	}
	resp, err := t.healthClient.Do(req)
	rtt := time.Since(start)
	if err != nil {
		return classifyErr(err), rtt
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errResult(ErrHTTPStatus, resp.StatusCode, fmt.Sprintf("status %d", resp.StatusCode)), rtt
	}
	return ok(nil), rtt
}

func classifyErr(err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return errResult(ErrTimeout, 0, err.Error())
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errResult(ErrTimeout, 0, err.Error())
	}
	if isConnRefused(err) {
		return errResult(ErrConnectionRefused, 0, err.Error())
	}
	return errResult(ErrOther, 0, err.Error())
}
