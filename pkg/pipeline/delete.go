package pipeline

import (
	"context"

	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/log"
)

// Delete implements spec §4.6: removes only the current latest version,
// refcount-guards the referenced content, and only deletes shards from
// storage nodes once the ContentRow's refcount has actually reached
// zero. It does not promote a prior version to latest.
func (p *Pipeline) Delete(ctx context.Context, bucket, key string) error {
	lock := p.Store.LockBucket(bucket)
	lock.Lock()
	defer lock.Unlock()

	removed, found, err := p.Store.DeleteLatest(bucket, key)
	if err != nil {
		return apierr.Internal(err)
	}
	if !found {
		return apierr.NotFound("object %s/%s not found", bucket, key)
	}

	layout, deleted, err := p.Store.DecrContentRefcountMaybeDelete(removed.ContentHash)
	if err != nil {
		return apierr.Internal(err)
	}
	if !deleted {
		return nil
	}

	// Refcount hit zero: these deletes are not best-effort, but failures
	// are logged rather than retried (spec §4.6).
	for _, loc := range layout {
		node, ok := p.Registry.Get(loc.NodeID)
		if !ok {
			continue
		}
		res := p.Transport.Delete(ctx, node, bucket, loc.ShardKey)
		if !res.OK {
			log.WithNode(node.NodeID).Error().Int("shard", loc.Index).Str("shard_key", loc.ShardKey).Msg("failed to delete orphaned shard")
		}
	}
	return nil
}
