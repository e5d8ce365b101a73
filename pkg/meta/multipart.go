package meta

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/planetstore/gateway/pkg/apierr"
	bolt "go.etcd.io/bbolt"
)

// CreateMultipartSession starts a new multipart upload and returns its
// upload id (spec §4.12).
func (s *Store) CreateMultipartSession(bucket, key string) (string, error) {
	uploadID := uuid.NewString()
	sess := MultipartSession{UploadID: uploadID, Bucket: bucket, Key: key, CreatedAt: time.Now().UTC()}
	err := s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMultipart).Put([]byte(uploadID), data)
	})
	if err != nil {
		return "", err
	}
	return uploadID, nil
}

// GetMultipartSession returns apierr.NotFound if the upload id is
// unknown or was already completed/aborted.
func (s *Store) GetMultipartSession(uploadID string) (MultipartSession, error) {
	var sess MultipartSession
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMultipart).Get([]byte(uploadID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &sess)
	})
	if err != nil {
		return MultipartSession{}, err
	}
	if sess.UploadID == "" {
		return MultipartSession{}, apierr.NotFound("upload %q not found", uploadID)
	}
	return sess, nil
}

// AddPart records (or replaces, on retry) one uploaded part.
func (s *Store) AddPart(uploadID string, part PartDescriptor) (MultipartSession, error) {
	var sess MultipartSession
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketMultipart)
		data := bkt.Get([]byte(uploadID))
		if data == nil {
			return apierr.NotFound("upload %q not found", uploadID)
		}
		if err := json.Unmarshal(data, &sess); err != nil {
			return err
		}

		replaced := false
		for i, p := range sess.Parts {
			if p.PartNumber == part.PartNumber {
				sess.Parts[i] = part
				replaced = true
				break
			}
		}
		if !replaced {
			sess.Parts = append(sess.Parts, part)
		}
		sort.Slice(sess.Parts, func(i, j int) bool { return sess.Parts[i].PartNumber < sess.Parts[j].PartNumber })

		out, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(uploadID), out)
	})
	return sess, err
}

// DeleteMultipartSession removes the session row, on complete or abort.
func (s *Store) DeleteMultipartSession(uploadID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMultipart).Delete([]byte(uploadID))
	})
}
