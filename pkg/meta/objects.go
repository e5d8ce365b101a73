package meta

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/planetstore/gateway/pkg/apierr"
	bolt "go.etcd.io/bbolt"
)

// PutObjectVersion inserts a new ObjectVersion and, in the same
// transaction, flips the prior latest (if any) to is_latest=false — the
// atomic flip+insert spec §3/§4.7 requires. Returns the new version id.
func (s *Store) PutObjectVersion(bucket, key string, size int64, contentHash string) (string, error) {
	versionID := uuid.NewString()
	now := time.Now().UTC()

	err := s.db.Update(func(tx *bolt.Tx) error {
		objBkt := tx.Bucket(bucketObjects)
		latestBkt := tx.Bucket(bucketLatest)

		lk := latestKey(bucket, key)
		if prevID := latestBkt.Get(lk); prevID != nil {
			prevKey := objectKey(bucket, key, string(prevID))
			data := objBkt.Get(prevKey)
			if data != nil {
				var prev ObjectVersion
				if err := json.Unmarshal(data, &prev); err != nil {
					return err
				}
				prev.IsLatest = false
				out, err := json.Marshal(prev)
				if err != nil {
					return err
				}
				if err := objBkt.Put(prevKey, out); err != nil {
					return err
				}
			}
		}

		v := ObjectVersion{
			Bucket:      bucket,
			Key:         key,
			VersionID:   versionID,
			Size:        size,
			ContentHash: contentHash,
			IsLatest:    true,
			CreatedAt:   now,
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if err := objBkt.Put(objectKey(bucket, key, versionID), data); err != nil {
			return err
		}
		return latestBkt.Put(lk, []byte(versionID))
	})
	if err != nil {
		return "", err
	}
	return versionID, nil
}

// GetObjectVersion resolves the version-id if given, else the current
// latest. Returns apierr.NotFound when no matching row exists.
func (s *Store) GetObjectVersion(bucket, key, versionID string) (ObjectVersion, error) {
	var v ObjectVersion
	err := s.db.View(func(tx *bolt.Tx) error {
		objBkt := tx.Bucket(bucketObjects)

		id := versionID
		if id == "" {
			latestID := tx.Bucket(bucketLatest).Get(latestKey(bucket, key))
			if latestID == nil {
				return nil
			}
			id = string(latestID)
		}

		data := objBkt.Get(objectKey(bucket, key, id))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &v)
	})
	if err != nil {
		return ObjectVersion{}, err
	}
	if v.VersionID == "" {
		return ObjectVersion{}, apierr.NotFound("object %s/%s not found", bucket, key)
	}
	return v, nil
}

// ListObjects returns the latest version of every key in a bucket.
func (s *Store) ListObjects(bucket string) ([]ObjectVersion, error) {
	var out []ObjectVersion
	err := s.db.View(func(tx *bolt.Tx) error {
		objBkt := tx.Bucket(bucketObjects)
		c := tx.Bucket(bucketLatest).Cursor()
		prefix := bucketPrefix(bucket)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			data := objBkt.Get(objectKey(bucket, string(k[len(prefix):]), string(v)))
			if data == nil {
				continue
			}
			var ov ObjectVersion
			if err := json.Unmarshal(data, &ov); err != nil {
				return err
			}
			out = append(out, ov)
		}
		return nil
	})
	return out, err
}

// DeleteLatest removes the latest ObjectVersion row for (bucket, key),
// returning it so the caller can refcount-guard the referenced content
// (spec §4.6). It does not promote a prior version to latest.
func (s *Store) DeleteLatest(bucket, key string) (ObjectVersion, bool, error) {
	var removed ObjectVersion
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		latestBkt := tx.Bucket(bucketLatest)
		lk := latestKey(bucket, key)
		id := latestBkt.Get(lk)
		if id == nil {
			return nil
		}
		objBkt := tx.Bucket(bucketObjects)
		ok := objectKey(bucket, key, string(id))
		data := objBkt.Get(ok)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &removed); err != nil {
			return err
		}
		found = true
		if err := objBkt.Delete(ok); err != nil {
			return err
		}
		return latestBkt.Delete(lk)
	})
	return removed, found, err
}

// BucketUsage sums the size and count of all latest versions in a
// bucket, for the quota gate (spec §4.9).
func (s *Store) BucketUsage(bucket string) (objects int, totalSize int64, err error) {
	versions, err := s.ListObjects(bucket)
	if err != nil {
		return 0, 0, err
	}
	for _, v := range versions {
		objects++
		totalSize += v.Size
	}
	return objects, totalSize, nil
}

// NonLatestOlderThan returns every non-latest ObjectVersion row older
// than cutoff, grouped implicitly by iteration order, for the GC loop
// (spec §4.10).
func (s *Store) NonLatestOlderThan(cutoff time.Time) ([]ObjectVersion, error) {
	var out []ObjectVersion
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketObjects).ForEach(func(_, v []byte) error {
			var ov ObjectVersion
			if err := json.Unmarshal(v, &ov); err != nil {
				return err
			}
			if !ov.IsLatest && ov.CreatedAt.Before(cutoff) {
				out = append(out, ov)
			}
			return nil
		})
	})
	return out, err
}

// NonLatestVersions returns every non-latest ObjectVersion for (bucket,
// key), newest first, used by the GC loop's MAX_VERSIONS enforcement.
func (s *Store) NonLatestVersions(bucket, key string) ([]ObjectVersion, error) {
	var out []ObjectVersion
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketObjects).Cursor()
		prefix := objectPrefix(bucket, key)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var ov ObjectVersion
			if err := json.Unmarshal(v, &ov); err != nil {
				return err
			}
			if !ov.IsLatest {
				out = append(out, ov)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortVersionsNewestFirst(out)
	return out, nil
}

// DeleteObjectVersionRow removes one specific version row outright
// (used by GC after it has refcount-guarded the referenced content).
func (s *Store) DeleteObjectVersionRow(bucket, key, versionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketObjects).Delete(objectKey(bucket, key, versionID))
	})
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func sortVersionsNewestFirst(versions []ObjectVersion) {
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && versions[j].CreatedAt.After(versions[j-1].CreatedAt); j-- {
			versions[j], versions[j-1] = versions[j-1], versions[j]
		}
	}
}
