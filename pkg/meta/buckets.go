package meta

import (
	"encoding/json"
	"time"

	"github.com/planetstore/gateway/pkg/apierr"
	bolt "go.etcd.io/bbolt"
)

// CreateBucket creates a bucket if it does not already exist (idempotent
// create — callers that need "auto-create on write" rely on this).
func (s *Store) CreateBucket(name string, versioning bool) (Bucket, error) {
	var b Bucket
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketBuckets)
		if existing := bkt.Get([]byte(name)); existing != nil {
			return json.Unmarshal(existing, &b)
		}
		b = Bucket{Name: name, VersioningEnabled: versioning, CreatedAt: time.Now().UTC()}
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(name), data)
	})
	return b, err
}

// GetBucket returns (Bucket{}, false, nil) when absent rather than an error.
func (s *Store) GetBucket(name string) (Bucket, bool, error) {
	var b Bucket
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBuckets).Get([]byte(name))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &b)
	})
	return b, found, err
}

// EnsureBucket auto-creates the bucket if missing (spec §4.4 step 1).
func (s *Store) EnsureBucket(name string) (Bucket, error) {
	b, found, err := s.GetBucket(name)
	if err != nil {
		return Bucket{}, err
	}
	if found {
		return b, nil
	}
	return s.CreateBucket(name, false)
}

func (s *Store) ListBuckets() ([]Bucket, error) {
	var out []Bucket
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBuckets).ForEach(func(_, v []byte) error {
			var b Bucket
			if err := json.Unmarshal(v, &b); err != nil {
				return err
			}
			out = append(out, b)
			return nil
		})
	})
	return out, err
}

// RequireBucket is a small helper used by operations that must 404 when
// the bucket is unknown (apierr.NotFound per spec §7).
func (s *Store) RequireBucket(name string) error {
	_, found, err := s.GetBucket(name)
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("bucket %q does not exist", name)
	}
	return nil
}
