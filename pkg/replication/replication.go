// Package replication implements the cross-region replicator referenced
// by the write pipeline's step 11 (spec §4.4): a fire-and-forget copy of
// a committed shard layout, explicitly out of scope for delivery
// guarantees. This package gives it a concrete (if minimal) body rather
// than leaving the hook unimplemented.
package replication

import (
	"context"
	"time"

	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/log"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/registry"
	"github.com/planetstore/gateway/pkg/transport"
)

// Replicator re-reads each shard from its home node and re-PUTs it onto
// the first node of every other known region, best-effort.
type Replicator struct {
	registry  *registry.Registry
	transport *transport.Transport
	regions   []string
}

func New(reg *registry.Registry, tr *transport.Transport, regions []string) *Replicator {
	return &Replicator{registry: reg, transport: tr, regions: regions}
}

// Replicate is invoked as `go replicator.Replicate(...)` by the write
// pipeline; it never returns an error to its caller since its delivery
// is explicitly best-effort.
func (r *Replicator) Replicate(bucket, key, sourceRegion string, layout []meta.ShardLocation) {
	logger := log.WithBucketKey(bucket, key)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, region := range r.regions {
		if region == sourceRegion {
			continue
		}
		target, ok := r.targetFor(region)
		if !ok {
			continue
		}
		for _, loc := range layout {
			home, ok := r.registry.Get(loc.NodeID)
			if !ok {
				continue
			}
			shard := r.transport.Get(ctx, home, bucket, loc.ShardKey)
			if !shard.OK {
				logger.Warn().Str("region", region).Int("shard", loc.Index).Msg("replication read failed")
				continue
			}
			res := r.transport.Put(ctx, target, bucket, loc.ShardKey, shard.Body)
			if !res.OK {
				logger.Warn().Str("region", region).Int("shard", loc.Index).Msg("replication write failed")
			}
		}
	}
}

func (r *Replicator) targetFor(region string) (config.NodeInfo, bool) {
	if !r.registry.HasRegion(region) {
		return config.NodeInfo{}, false
	}
	nodes, err := r.registry.Select(1, region)
	if err != nil || len(nodes) == 0 {
		return config.NodeInfo{}, false
	}
	return nodes[0], true
}
