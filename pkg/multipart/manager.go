// Package multipart orchestrates chunked uploads too large to buffer in
// one request: parts land on local scratch disk and are assembled into
// a single blob handed to the write pipeline on completion (spec §4.12
// supplement, not present in the distilled operations list but implied
// by MultipartSession in §3).
package multipart

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/planetstore/gateway/pkg/apierr"
	"github.com/planetstore/gateway/pkg/meta"
	"github.com/planetstore/gateway/pkg/pipeline"
)

// Manager tracks in-progress multipart sessions and their on-disk parts.
type Manager struct {
	store      *meta.Store
	pipeline   *pipeline.Pipeline
	scratchDir string
}

func New(store *meta.Store, p *pipeline.Pipeline, scratchDir string) *Manager {
	return &Manager{store: store, pipeline: p, scratchDir: scratchDir}
}

// Initiate starts a new multipart session for (bucket, key).
func (m *Manager) Initiate(bucket, key string) (string, error) {
	if _, err := m.store.EnsureBucket(bucket); err != nil {
		return "", apierr.Internal(err)
	}
	return m.store.CreateMultipartSession(bucket, key)
}

// UploadPart writes one part's bytes to scratch disk and records it in
// the session.
func (m *Manager) UploadPart(uploadID string, partNumber int, r io.Reader) error {
	sess, err := m.store.GetMultipartSession(uploadID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(m.scratchDir, uploadID), 0o755); err != nil {
		return apierr.Internal(err)
	}
	path := filepath.Join(m.scratchDir, uploadID, fmt.Sprintf("part-%d-%s", partNumber, uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return apierr.Internal(err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return apierr.Internal(err)
	}

	_, err = m.store.AddPart(sess.UploadID, meta.PartDescriptor{PartNumber: partNumber, Size: written, ScratchPath: path})
	return err
}

// Complete assembles every uploaded part in order and hands the
// concatenated blob to the write pipeline, then tears down the scratch
// files and the session row.
func (m *Manager) Complete(ctx context.Context, uploadID string, consistency pipeline.Consistency, region string) (pipeline.WriteResult, error) {
	sess, err := m.store.GetMultipartSession(uploadID)
	if err != nil {
		return pipeline.WriteResult{}, err
	}
	if len(sess.Parts) == 0 {
		return pipeline.WriteResult{}, apierr.BadRequest("multipart upload %q has no parts", uploadID)
	}

	parts := append([]meta.PartDescriptor(nil), sess.Parts...)
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })

	var blob []byte
	for _, part := range parts {
		data, err := os.ReadFile(part.ScratchPath)
		if err != nil {
			return pipeline.WriteResult{}, apierr.Internal(err)
		}
		blob = append(blob, data...)
	}

	res, err := m.pipeline.Write(ctx, sess.Bucket, sess.Key, blob, consistency, region)
	m.cleanup(uploadID, parts)
	if err != nil {
		return pipeline.WriteResult{}, err
	}
	return res, nil
}

// Abort discards an in-progress session and its scratch files.
func (m *Manager) Abort(uploadID string) error {
	sess, err := m.store.GetMultipartSession(uploadID)
	if err != nil {
		return err
	}
	m.cleanup(uploadID, sess.Parts)
	return nil
}

func (m *Manager) cleanup(uploadID string, parts []meta.PartDescriptor) {
	for _, p := range parts {
		os.Remove(p.ScratchPath)
	}
	os.Remove(filepath.Join(m.scratchDir, uploadID))
	m.store.DeleteMultipartSession(uploadID)
}
