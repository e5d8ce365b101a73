package meta

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketBuckets   = []byte("buckets")
	bucketObjects   = []byte("objects")    // key: bucket\x00key\x00versionID -> ObjectVersion json
	bucketLatest    = []byte("latest")     // key: bucket\x00key -> versionID
	bucketContent   = []byte("content")    // key: contentHash -> ContentRow json
	bucketQuotas    = []byte("quotas")     // key: bucket -> BucketQuota json
	bucketMultipart = []byte("multipart")  // key: uploadID -> MultipartSession json
)

const keySep = "\x00"

// Store is the bbolt-backed metadata store (C5/C6 in spec §2).
type Store struct {
	db *bolt.DB

	bucketLocksMu sync.Mutex
	bucketLocks   map[string]*sync.Mutex
}

// Open creates the data directory if needed and opens (or creates) the
// bbolt file at path, idempotently initializing every logical table —
// mirroring the "idempotent schema setup" startup step of spec §4.11.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		// bolt.Open does not create parent directories.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("meta: create data dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("meta: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketBuckets, bucketObjects, bucketLatest, bucketContent, bucketQuotas, bucketMultipart} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:          db,
		bucketLocks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LockBucket returns the advisory per-bucket lock used to serialize
// quota-check-then-write across the write pipeline's steps 3-10 (spec
// §4.7's "acquire a per-bucket advisory lock" approach). Call Unlock on
// the returned mutex when the critical section ends.
func (s *Store) LockBucket(bucket string) *sync.Mutex {
	s.bucketLocksMu.Lock()
	defer s.bucketLocksMu.Unlock()
	m, ok := s.bucketLocks[bucket]
	if !ok {
		m = &sync.Mutex{}
		s.bucketLocks[bucket] = m
	}
	return m
}

func objectKey(bucket, key, versionID string) []byte {
	return []byte(bucket + keySep + key + keySep + versionID)
}

func latestKey(bucket, key string) []byte {
	return []byte(bucket + keySep + key)
}

func objectPrefix(bucket, key string) []byte {
	return []byte(bucket + keySep + key + keySep)
}

func bucketPrefix(bucket string) []byte {
	return []byte(bucket + keySep)
}
