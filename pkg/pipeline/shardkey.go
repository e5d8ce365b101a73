// Package pipeline implements the write, read and delete pipelines (C7/C8
// in spec §2): the request-facing orchestration that ties together erasure
// coding, placement, shard transport, the metadata store and the quota
// gate.
package pipeline

import "fmt"

// ShardKey is the single constructor for per-node object keys, used by
// every pipeline path. It folds in a per-write nonce so concurrent
// writes to the same (bucket, key) — or a write racing a delete of an
// older version — never collide on storage-node bytes (spec §4.4 step 7,
// §9). There must be no other place in this module that builds a shard
// key: a second ad-hoc scheme is how the original nonce-less bug
// (`{key}.{bucket}.shard-{i}`, see original_source/gateway/main.py)
// reappears.
func ShardKey(bucket, key, nonce string, index int) string {
	return fmt.Sprintf("%s/%s/%s/%d", bucket, key, nonce, index)
}
