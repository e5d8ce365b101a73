package pipeline

import (
	"context"
	"sync"

	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/ec"
	"github.com/planetstore/gateway/pkg/log"
	"github.com/planetstore/gateway/pkg/meta"
)

// Read implements spec §4.5: fan out GET to every shard concurrently,
// stop collecting once K distinct indices have arrived, then decode.
func (p *Pipeline) Read(ctx context.Context, bucket, key, versionID string) ([]byte, error) {
	version, err := p.Store.GetObjectVersion(bucket, key, versionID)
	if err != nil {
		return nil, err
	}
	row, found, err := p.Store.GetContent(version.ContentHash)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if !found {
		return nil, apierr.NotFound("content %s for %s/%s not found", version.ContentHash, bucket, key)
	}

	collected := p.getShards(ctx, bucket, row.ShardLayout)
	if len(collected) < ec.K {
		return nil, apierr.DegradedUnreadable(len(collected), ec.K)
	}

	return ec.Decode(collected, int(version.Size))
}

// getShards fans out GETs to every shard in parallel and keeps the first
// K distinct indices that arrive, ignoring later ones (spec §4.5 step 4's
// "stop once K distinct indices are collected"). It returns only after
// every launched call has finished; each shard fetch is bounded by
// transport.GetTimeout.
func (p *Pipeline) getShards(ctx context.Context, bucket string, layout []meta.ShardLocation) map[int][]byte {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		collected = make(map[int][]byte)
	)
	for _, loc := range layout {
		node, ok := p.Registry.Get(loc.NodeID)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(loc meta.ShardLocation, node config.NodeInfo) {
			defer wg.Done()
			res := p.Transport.Get(ctx, node, bucket, loc.ShardKey)
			if !res.OK {
				log.WithNode(node.NodeID).Warn().Int("shard", loc.Index).Msg("shard get failed")
				return
			}
			mu.Lock()
			if len(collected) < ec.K {
				collected[loc.Index] = res.Body
			}
			mu.Unlock()
		}(loc, node)
	}
	wg.Wait()
	return collected
}
