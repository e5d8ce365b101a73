package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/ec"
	"github.com/planetstore/gateway/pkg/log"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/quota"
	"github.com/planetstore/gateway/pkg/registry"
	"github.com/planetstore/gateway/pkg/transport"
)

// Consistency selects the write quorum (spec §4.4 step 8).
type Consistency string

const (
	ConsistencyStrong   Consistency = "strong"
	ConsistencyEventual Consistency = "eventual"
)

// Replicator receives a fire-and-forget copy of a committed shard layout
// when a write specifies a region (spec §4.4 step 11; out of scope for
// the replicator's own delivery guarantees).
type Replicator interface {
	Replicate(bucket, key, region string, layout []meta.ShardLocation)
}

// Pipeline wires the write/read/delete operations together.
type Pipeline struct {
	Store      *meta.Store
	Registry   *registry.Registry
	Transport  *transport.Transport
	Quota      *quota.Gate
	Replicator Replicator
}

func New(store *meta.Store, reg *registry.Registry, tr *transport.Transport, q *quota.Gate) *Pipeline {
	return &Pipeline{Store: store, Registry: reg, Transport: tr, Quota: q}
}

// WriteResult is returned by Write (spec §4.4, §6).
type WriteResult struct {
	VersionID    string
	Deduplicated bool
	ContentHash  string
}

// Write implements spec §4.4 steps 1-11.
func (p *Pipeline) Write(ctx context.Context, bucket, key string, blob []byte, consistency Consistency, region string) (WriteResult, error) {
	if _, err := p.Store.EnsureBucket(bucket); err != nil {
		return WriteResult{}, apierr.Internal(err)
	}

	sum := sha256.Sum256(blob)
	contentHash := hex.EncodeToString(sum[:])
	size := int64(len(blob))

	lock := p.Store.LockBucket(bucket)
	lock.Lock()
	defer lock.Unlock()

	_, existingErr := p.Store.GetObjectVersion(bucket, key, "")
	isNewKey := existingErr != nil

	if err := p.Quota.CheckWrite(bucket, size, isNewKey); err != nil {
		return WriteResult{}, err
	}

	if existing, found, err := p.Store.GetContent(contentHash); err != nil {
		return WriteResult{}, apierr.Internal(err)
	} else if found {
		if _, err := p.Store.IncrContentRefcount(contentHash); err != nil {
			return WriteResult{}, apierr.Internal(err)
		}
		versionID, err := p.Store.PutObjectVersion(bucket, key, size, contentHash)
		if err != nil {
			return WriteResult{}, apierr.Internal(err)
		}
		if region != "" && p.Replicator != nil {
			go p.Replicator.Replicate(bucket, key, region, existing.ShardLayout)
		}
		return WriteResult{VersionID: versionID, Deduplicated: true, ContentHash: contentHash}, nil
	}

	shards, err := ec.Encode(blob)
	if err != nil {
		return WriteResult{}, apierr.Internal(err)
	}

	nodes, err := p.Registry.Select(ec.M, region)
	if err != nil {
		return WriteResult{}, apierr.Capacity(err)
	}

	nonce := uuid.NewString()
	quorum := ec.K
	if consistency != ConsistencyStrong {
		quorum = ec.M
	}

	layout := p.putShards(ctx, bucket, key, nonce, nodes, shards)
	if len(layout) < quorum {
		p.bestEffortDeleteShards(bucket, layout)
		log.WithBucketKey(bucket, key).Warn().
			Int("succeeded", len(layout)).Int("quorum", quorum).Msg("write quorum not met")
		return WriteResult{}, apierr.QuorumNotMet(len(layout), quorum)
	}

	row, created, err := p.Store.GetOrCreateContent(contentHash, size, layout)
	if err != nil {
		return WriteResult{}, apierr.Internal(err)
	}
	if !created {
		// Lost the race to a concurrent writer that committed the same
		// content_hash first; our own shards are now orphaned.
		p.bestEffortDeleteShards(bucket, layout)
		if _, err := p.Store.IncrContentRefcount(contentHash); err != nil {
			return WriteResult{}, apierr.Internal(err)
		}
		layout = row.ShardLayout
	}

	versionID, err := p.Store.PutObjectVersion(bucket, key, size, contentHash)
	if err != nil {
		return WriteResult{}, apierr.Internal(err)
	}

	if region != "" && p.Replicator != nil {
		go p.Replicator.Replicate(bucket, key, region, layout)
	}

	return WriteResult{VersionID: versionID, Deduplicated: false, ContentHash: contentHash}, nil
}

// putShards fans out a PUT per shard in parallel and returns the
// metadata for every shard that actually persisted (spec §4.4 step 8-9:
// "the set of successful shards' metadata ... is what is recorded").
func (p *Pipeline) putShards(ctx context.Context, bucket, key, nonce string, nodes []config.NodeInfo, shards [][]byte) []meta.ShardLocation {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out []meta.ShardLocation
	)
	for i, node := range nodes {
		wg.Add(1)
		go func(i int, node config.NodeInfo) {
			defer wg.Done()
			shardKey := ShardKey(bucket, key, nonce, i)
			res := p.Transport.Put(ctx, node, bucket, shardKey, shards[i])
			if !res.OK {
				log.WithNode(node.NodeID).Warn().Int("shard", i).Str("kind", "put_failed").Msg("shard put failed")
				return
			}
			mu.Lock()
			out = append(out, meta.ShardLocation{Index: i, NodeID: node.NodeID, ShardKey: shardKey})
			mu.Unlock()
		}(i, node)
	}
	wg.Wait()
	return out
}

func (p *Pipeline) bestEffortDeleteShards(bucket string, layout []meta.ShardLocation) {
	for _, loc := range layout {
		node, ok := p.Registry.Get(loc.NodeID)
		if !ok {
			continue
		}
		go p.Transport.Delete(context.Background(), node, bucket, loc.ShardKey)
	}
}
