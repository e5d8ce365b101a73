// Package meta is the durable metadata store (spec §3, §4.7). It is the
// single source of truth: storage nodes only hold raw shard bytes.
//
// Persistence is a single bbolt.DB file with one bbolt bucket per
// logical table. bbolt allows exactly one writable transaction at a
// time for the whole database, which is what gives put_object_version
// and get_or_create_content the serialization spec §4.7 requires without
// any extra locking inside the store itself.
package meta

import "time"

// Bucket is a namespace for keys (spec §3 "Bucket").
type Bucket struct {
	Name              string    `json:"name"`
	VersioningEnabled bool      `json:"versioning_enabled"`
	CreatedAt         time.Time `json:"created_at"`
}

// ShardLocation is one entry of a content's shard layout (spec §3).
type ShardLocation struct {
	Index    int    `json:"index"`
	NodeID   string `json:"node_id"`
	ShardKey string `json:"shard_key"`
}

// ContentRow binds a content hash to its shard layout and refcount
// (spec §3 "ContentRow").
type ContentRow struct {
	ContentHash string          `json:"content_hash"`
	Size        int64           `json:"size"`
	ShardLayout []ShardLocation `json:"shard_layout"`
	Refcount    int             `json:"refcount"`
}

// ObjectVersion is one writable snapshot of (bucket, key) (spec §3).
type ObjectVersion struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	VersionID   string    `json:"version_id"`
	Size        int64     `json:"size"`
	ContentHash string    `json:"content_hash"`
	IsLatest    bool      `json:"is_latest"`
	CreatedAt   time.Time `json:"created_at"`
}

// BucketQuota is the per-bucket size/count limit (spec §3).
type BucketQuota struct {
	MaxSizeBytes int64 `json:"max_size_bytes"`
	MaxObjects   int   `json:"max_objects"`
}

// PartDescriptor is one uploaded part of a multipart session.
type PartDescriptor struct {
	PartNumber int    `json:"part_number"`
	Size       int64  `json:"size"`
	ScratchPath string `json:"scratch_path"`
}

// MultipartSession tracks an in-progress multipart upload (spec §3).
type MultipartSession struct {
	UploadID  string           `json:"upload_id"`
	Bucket    string           `json:"bucket"`
	Key       string           `json:"key"`
	Parts     []PartDescriptor `json:"parts"`
	CreatedAt time.Time        `json:"created_at"`
}
