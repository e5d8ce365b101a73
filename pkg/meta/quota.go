package meta

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"
)

// GetQuota returns the bucket's quota row, or (zero, false) if never set
// explicitly — callers fall back to config defaults in that case (spec
// §4.9).
func (s *Store) GetQuota(bucket string) (BucketQuota, bool, error) {
	var q BucketQuota
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketQuotas).Get([]byte(bucket))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &q)
	})
	return q, found, err
}

// SetQuota stores an explicit per-bucket override.
func (s *Store) SetQuota(bucket string, q BucketQuota) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(q)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketQuotas).Put([]byte(bucket), data)
	})
}
