// Package quota implements the quota gate (C9 in spec §2): a check (with
// no reservation) that runs before any write pipeline step that grows a
// bucket's stored size or object count (spec §4.9).
package quota

import (
	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/config"
	"github.com/planetstore/gateway/pkg/meta"
)

// Gate checks proposed writes against a bucket's quota, falling back to
// config-wide defaults when no explicit BucketQuota row exists.
type Gate struct {
	store    *meta.Store
	defaults meta.BucketQuota
}

func NewGate(store *meta.Store, cfg config.Config) *Gate {
	return &Gate{
		store: store,
		defaults: meta.BucketQuota{
			MaxSizeBytes: cfg.DefaultMaxSizeBytes,
			MaxObjects:   cfg.DefaultMaxObjects,
		},
	}
}

// limitsFor returns the effective quota for bucket, explicit override or
// gate-wide default.
func (g *Gate) limitsFor(bucket string) (meta.BucketQuota, error) {
	q, found, err := g.store.GetQuota(bucket)
	if err != nil {
		return meta.BucketQuota{}, err
	}
	if found {
		return q, nil
	}
	return g.defaults, nil
}

// CheckWrite verifies that writing addedBytes (and, if isNewKey, one
// more object) keeps the bucket within quota. It does not reserve — the
// caller must hold the bucket's advisory lock (meta.Store.LockBucket)
// across check and write so no concurrent writer can slip past the same
// check (spec §4.7, §4.9).
func (g *Gate) CheckWrite(bucket string, addedBytes int64, isNewKey bool) error {
	limits, err := g.limitsFor(bucket)
	if err != nil {
		return err
	}

	objects, totalSize, err := g.store.BucketUsage(bucket)
	if err != nil {
		return err
	}

	projectedSize := totalSize + addedBytes
	if limits.MaxSizeBytes > 0 && projectedSize > limits.MaxSizeBytes {
		return apierr.QuotaExceeded(apierr.QuotaDimensionBytes, projectedSize, limits.MaxSizeBytes)
	}

	projectedObjects := objects
	if isNewKey {
		projectedObjects++
	}
	if limits.MaxObjects > 0 && projectedObjects > limits.MaxObjects {
		return apierr.QuotaExceeded(apierr.QuotaDimensionObjects, int64(projectedObjects), int64(limits.MaxObjects))
	}

	return nil
}

// Usage reports the bucket's current usage and effective limits, for
// the admin usage endpoint (spec §6).
func (g *Gate) Usage(bucket string) (objects int, totalSize int64, limits meta.BucketQuota, err error) {
	limits, err = g.limitsFor(bucket)
	if err != nil {
		return 0, 0, meta.BucketQuota{}, err
	}
	objects, totalSize, err = g.store.BucketUsage(bucket)
	return objects, totalSize, limits, err
}
