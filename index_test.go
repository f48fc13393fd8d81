// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rebuildContainer replaces the index of a container with records while
// keeping its header and blocks. Index and footer checksums are valid.
func rebuildContainer(t *testing.T, container []byte, records []Record) []byte {
	t.Helper()
	indexOffset, err := locateIndex(container)
	require.NoError(t, err)

	s := newByteSink(len(container) + 64)
	s.PutBytes(container[:indexOffset])
	n := writeIndex(s, records)
	writeFooter(s, n)
	return s.Bytes()
}

func TestReadIndexRecordSizes(t *testing.T) {
	container, err := Compress(context.Background(), []byte("hello world"), nil)
	require.NoError(t, err)
	idx, err := ReadIndex(container)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	rec := idx.Records[0]
	blocksLen := uint64(idx.CompressedSize())

	tests := []struct {
		name    string
		records []Record
	}{
		{
			name: "sizes wrap around to the block length",
			records: []Record{
				{CompressedSize: 1 << 62, UncompressedSize: 1},
				{CompressedSize: 1 << 62, UncompressedSize: 1},
				{CompressedSize: 1 << 62, UncompressedSize: 1},
				{CompressedSize: 1<<62 + blocksLen, UncompressedSize: 1},
			},
		},
		{
			name:    "block larger than container",
			records: []Record{{CompressedSize: uint64(len(container)) + 100, UncompressedSize: rec.UncompressedSize}},
		},
		{
			name:    "padded size wraps to zero",
			records: []Record{{CompressedSize: math.MaxUint64, UncompressedSize: rec.UncompressedSize}},
		},
		{
			name:    "uncompressed size overflows",
			records: []Record{{CompressedSize: rec.CompressedSize, UncompressedSize: math.MaxInt64 + 1}},
		},
		{
			name: "uncompressed sum overflows",
			records: []Record{
				{CompressedSize: 4, UncompressedSize: math.MaxInt64},
				{CompressedSize: blocksLen - 4, UncompressedSize: 1},
			},
		},
		{
			name:    "blocks shorter than stream",
			records: []Record{{CompressedSize: blocksLen - 4, UncompressedSize: rec.UncompressedSize}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := rebuildContainer(t, container, tt.records)

			_, err := ReadIndex(data)
			assert.ErrorIs(t, err, ErrCorruptContainer)

			_, err = Decompress(context.Background(), data, nil)
			assert.ErrorIs(t, err, ErrCorruptContainer)

			_, err = NewReader(data, nil)
			assert.ErrorIs(t, err, ErrCorruptContainer)
		})
	}
}

func TestReadIndexRebuiltContainer(t *testing.T) {
	data := []byte("hello world")
	container, err := Compress(context.Background(), data, nil)
	require.NoError(t, err)
	idx, err := ReadIndex(container)
	require.NoError(t, err)

	// rewriting the same records yields a container that still decodes
	out, err := Decompress(context.Background(), rebuildContainer(t, container, idx.Records), nil)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestNewIndex(t *testing.T) {
	records := []Record{
		{CompressedSize: 101, UncompressedSize: ChunkSize},
		{CompressedSize: 9, UncompressedSize: 1},
	}
	idx, err := newIndex(records, 104+12)
	require.NoError(t, err)

	b, err := idx.Block(1)
	require.NoError(t, err)
	assert.Equal(t, int64(headerLen+104), b.Offset)
	assert.Equal(t, int64(12), b.PaddedSize)
	assert.Equal(t, int64(ChunkSize), b.UncompressedOffset)
	assert.Equal(t, int64(ChunkSize+1), idx.UncompressedSize())

	for _, blocksLen := range []int64{0, 104, 104 + 16} {
		_, err := newIndex(records, blocksLen)
		assert.Error(t, err, "blocksLen %d", blocksLen)
		assert.False(t, errors.Is(err, ErrCorruptContainer), "ReadIndex adds the sentinel")
	}
}
