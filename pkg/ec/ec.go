// Package ec implements the fixed K=4, M=6 erasure codec (spec §4.1).
//
// encode splits a blob into 4 equal-sized data shards (zero-padded to a
// multiple of K) and derives 2 parity shards so that any 4 of the 6
// shards reconstruct the original, zero-padded data. decode requires at
// least K shards, tagged with their original 0..M-1 indices, plus the
// exact pre-padding size to truncate the reconstruction.
package ec

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

const (
	K = 4 // data shards
	M = 6 // total shards (K data + M-K parity)
)

// Encode splits blob into exactly M shards, each ceil(len(blob)/K) bytes.
func Encode(blob []byte) ([][]byte, error) {
	enc, err := reedsolomon.New(K, M-K)
	if err != nil {
		return nil, fmt.Errorf("ec: construct encoder: %w", err)
	}

	shardSize := shardSize(len(blob))
	shards := make([][]byte, M)
	for i := 0; i < K; i++ {
		shards[i] = make([]byte, shardSize)
	}
	for i := K; i < M; i++ {
		shards[i] = make([]byte, shardSize)
	}
	// scatter the (possibly zero-length) blob across the K data shards
	for i := 0; i < len(blob); i++ {
		shards[i/shardSize][i%shardSize] = blob[i]
	}
	if shardSize == 0 {
		// reedsolomon rejects zero-length shards; an empty blob needs no parity
		return shards, nil
	}

	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("ec: encode: %w", err)
	}
	return shards, nil
}

// shardSize returns ceil(size/K), with a floor of 0 so an empty blob
// still yields M shards of length 0 (spec §4.1 edge case).
func shardSize(size int) int {
	if size == 0 {
		return 0
	}
	return (size + K - 1) / K
}

// Decode reconstructs the original blob from a sparse set of shards keyed
// by their 0..M-1 index. At least K distinct, in-range, non-duplicate
// indices must be present. originalSize truncates the padding that Encode
// silently introduced.
func Decode(shards map[int][]byte, originalSize int) ([]byte, error) {
	distinct := 0
	size := -1
	sparse := make([][]byte, M)
	for idx, shard := range shards {
		if idx < 0 || idx >= M {
			return nil, fmt.Errorf("ec: shard index %d out of range [0,%d)", idx, M)
		}
		if sparse[idx] != nil {
			continue // duplicate index, already counted
		}
		if size == -1 {
			size = len(shard)
		} else if len(shard) != size {
			return nil, fmt.Errorf("ec: inconsistent shard length at index %d", idx)
		}
		sparse[idx] = shard
		distinct++
	}
	if distinct < K {
		return nil, fmt.Errorf("ec: need at least %d shards, got %d", K, distinct)
	}
	if originalSize == 0 {
		return []byte{}, nil
	}

	enc, err := reedsolomon.New(K, M-K)
	if err != nil {
		return nil, fmt.Errorf("ec: construct encoder: %w", err)
	}
	if err := enc.Reconstruct(sparse); err != nil {
		return nil, fmt.Errorf("ec: reconstruct: %w", err)
	}

	out := make([]byte, 0, size*K)
	for i := 0; i < K; i++ {
		out = append(out, sparse[i]...)
	}
	if originalSize > len(out) {
		return nil, fmt.Errorf("ec: originalSize %d exceeds reconstructed length %d", originalSize, len(out))
	}
	return out[:originalSize], nil
}
