package ec_test

import (
	"bytes"
	"testing"

	"github.com/planetstore/gateway/pkg/ec"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("a"),
		[]byte("hello"),
		bytes.Repeat([]byte{0}, 10*1024*1024),
		bytes.Repeat([]byte("xyz"), 1000),
	}

	for _, blob := range cases {
		shards, err := ec.Encode(blob)
		require.NoError(t, err)
		require.Len(t, shards, ec.M)

		sparse := map[int][]byte{
			0: shards[0],
			2: shards[2],
			4: shards[4],
			5: shards[5],
		}
		got, err := ec.Decode(sparse, len(blob))
		require.NoError(t, err)
		require.True(t, bytes.Equal(got, blob))
	}
}

func TestEncodeEmptyProducesMZeroLengthShards(t *testing.T) {
	shards, err := ec.Encode(nil)
	require.NoError(t, err)
	require.Len(t, shards, ec.M)
	for _, s := range shards {
		require.Len(t, s, 0)
	}
}

func TestDecodeFailsWithFewerThanK(t *testing.T) {
	shards, err := ec.Encode([]byte("hello world"))
	require.NoError(t, err)

	sparse := map[int][]byte{0: shards[0], 1: shards[1], 2: shards[2]}
	_, err = ec.Decode(sparse, 11)
	require.Error(t, err)
}

func TestDecodeFailsOnOutOfRangeIndex(t *testing.T) {
	shards, err := ec.Encode([]byte("hello world"))
	require.NoError(t, err)

	sparse := map[int][]byte{0: shards[0], 1: shards[1], 2: shards[2], 99: shards[3]}
	_, err = ec.Decode(sparse, 11)
	require.Error(t, err)
}

func TestDecodeAnyKOfMSucceeds(t *testing.T) {
	blob := []byte("the quick brown fox jumps over the lazy dog")
	shards, err := ec.Encode(blob)
	require.NoError(t, err)

	combos := [][]int{
		{0, 1, 2, 3},
		{2, 3, 4, 5},
		{0, 2, 4, 5},
		{1, 3, 4, 5},
	}
	for _, combo := range combos {
		sparse := map[int][]byte{}
		for _, idx := range combo {
			sparse[idx] = shards[idx]
		}
		got, err := ec.Decode(sparse, len(blob))
		require.NoError(t, err)
		require.Equal(t, blob, got)
	}
}
