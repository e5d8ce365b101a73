package meta

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// GetContent returns the ContentRow for a hash, if one exists.
func (s *Store) GetContent(contentHash string) (ContentRow, bool, error) {
	var row ContentRow
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketContent).Get([]byte(contentHash))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &row)
	})
	return row, found, err
}

// GetOrCreateContent implements spec §4.7's get_or_create_content: a
// single bbolt writable transaction reads-then-writes, so two concurrent
// identical uploads never race to create two ContentRows for the same
// hash — the second call observes the first's write.
//
// created reports whether this call created the row (dedup miss) versus
// found an existing one (dedup hit, refcount NOT incremented here — the
// caller decides whether to bump refcount, since create and hit follow
// different write-pipeline branches per spec §4.4).
func (s *Store) GetOrCreateContent(contentHash string, size int64, layout []ShardLocation) (row ContentRow, created bool, err error) {
	err = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketContent)
		if data := bkt.Get([]byte(contentHash)); data != nil {
			return json.Unmarshal(data, &row)
		}
		row = ContentRow{ContentHash: contentHash, Size: size, ShardLayout: layout, Refcount: 1}
		created = true
		data, merr := json.Marshal(row)
		if merr != nil {
			return merr
		}
		return bkt.Put([]byte(contentHash), data)
	})
	return row, created, err
}

// IncrContentRefcount bumps refcount by one and returns the updated row.
func (s *Store) IncrContentRefcount(contentHash string) (ContentRow, error) {
	var row ContentRow
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketContent)
		data := bkt.Get([]byte(contentHash))
		if data == nil {
			return fmt.Errorf("meta: content %s not found", contentHash)
		}
		if err := json.Unmarshal(data, &row); err != nil {
			return err
		}
		row.Refcount++
		out, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(contentHash), out)
	})
	return row, err
}

// DecrContentRefcountMaybeDelete decrements refcount; when it reaches
// zero the ContentRow is removed and its (now orphaned) shard layout is
// returned so the caller can delete the shards from their nodes (spec
// §4.6, §4.10 — refcount-guarded deletion only).
func (s *Store) DecrContentRefcountMaybeDelete(contentHash string) (layout []ShardLocation, deleted bool, err error) {
	err = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketContent)
		data := bkt.Get([]byte(contentHash))
		if data == nil {
			return fmt.Errorf("meta: content %s not found", contentHash)
		}
		var row ContentRow
		if err := json.Unmarshal(data, &row); err != nil {
			return err
		}
		row.Refcount--
		if row.Refcount <= 0 {
			layout = row.ShardLayout
			deleted = true
			return bkt.Delete([]byte(contentHash))
		}
		out, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(contentHash), out)
	})
	return layout, deleted, err
}
