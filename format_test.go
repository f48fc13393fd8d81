// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFooter(t *testing.T) {
	for _, indexSize := range []int{8, 12, 1024} {
		s := newByteSink(footerLen)
		writeFooter(s, indexSize)
		require.Equal(t, footerLen, s.Len())

		p := s.Bytes()
		assert.Equal(t, footerMagic, p[10:])
		assert.Equal(t, streamFlags, p[8:10])

		f, err := parseFooter(p)
		require.NoError(t, err)
		assert.Equal(t, int64(indexSize), f.indexSize)
	}
}

func TestFooterStoredBackwardSize(t *testing.T) {
	s := newByteSink(footerLen)
	writeFooter(s, 8)
	// the backward size is stored as index size / 4 - 1
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, s.Bytes()[4:8])
}

func TestParseFooterErrors(t *testing.T) {
	valid := func() []byte {
		s := newByteSink(footerLen)
		writeFooter(s, 8)
		return s.Bytes()
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{name: "short", mutate: func(p []byte) []byte { return p[1:] }},
		{name: "magic", mutate: func(p []byte) []byte { p[11] = 'X'; return p }},
		{name: "checksum", mutate: func(p []byte) []byte { p[0] ^= 0x01; return p }},
		{name: "backward size", mutate: func(p []byte) []byte { p[4] ^= 0x01; return p }},
		{name: "flags", mutate: func(p []byte) []byte { p[9] = 0x04; return p }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFooter(tt.mutate(valid())); err == nil {
				t.Errorf("parseFooter() expected error")
			}
		})
	}
}

func TestWriteIndex(t *testing.T) {
	// empty index: indicator, count, padding and CRC32
	s := newByteSink(8)
	n := writeIndex(s, nil)
	require.Equal(t, 8, n)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, s.Bytes()[:4])

	records := []Record{
		{CompressedSize: 100, UncompressedSize: ChunkSize},
		{CompressedSize: 300, UncompressedSize: ChunkSize},
		{CompressedSize: 9, UncompressedSize: 1},
	}
	s = newByteSink(64)
	n = writeIndex(s, records)
	assert.Zero(t, n%4)
	assert.Equal(t, n, s.Len())

	got, err := parseIndex(s.Bytes())
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestParseIndexErrors(t *testing.T) {
	valid := func() []byte {
		s := newByteSink(32)
		writeIndex(s, []Record{{CompressedSize: 100, UncompressedSize: 200}})
		return s.Bytes()
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{name: "indicator", mutate: func(p []byte) []byte { p[0] = 0x01; return p }},
		{name: "checksum", mutate: func(p []byte) []byte { p[len(p)-1] ^= 0x80; return p }},
		{name: "record", mutate: func(p []byte) []byte { p[2] ^= 0x01; return p }},
		{name: "padding", mutate: func(p []byte) []byte { p[len(p)-5] = 0x01; return p }},
		{name: "truncated", mutate: func(p []byte) []byte { return p[:len(p)-1] }},
		{name: "trailing bytes", mutate: func(p []byte) []byte { return append(p, 0, 0, 0, 0) }},
		{name: "record count", mutate: func(p []byte) []byte { p[1] = 0x7F; return p }},
		{name: "empty", mutate: func(p []byte) []byte { return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseIndex(tt.mutate(valid())); err == nil {
				t.Errorf("parseIndex() expected error")
			}
		})
	}
}

func TestParseIndexZeroBlockSize(t *testing.T) {
	s := newByteSink(16)
	writeIndex(s, []Record{{CompressedSize: 0, UncompressedSize: 1}})
	_, err := parseIndex(s.Bytes())
	assert.Error(t, err)
}

func TestPaddedSize(t *testing.T) {
	for in, want := range map[uint64]uint64{0: 0, 1: 4, 3: 4, 4: 4, 5: 8, 1021: 1024} {
		assert.Equal(t, want, paddedSize(in), "paddedSize(%d)", in)
	}
}

func TestEncodeChunk(t *testing.T) {
	data := []byte("Hello, World!")
	c, err := encodeChunk(data, defaultLevel)
	require.NoError(t, err)
	require.Len(t, c.records, 1)
	assert.Equal(t, uint64(len(data)), c.records[0].UncompressedSize)
	assert.Equal(t, paddedSize(c.records[0].CompressedSize), uint64(len(c.block)))
	assert.NotEqual(t, byte(indexIndicator), c.block[0])
}

func TestAssembleEmpty(t *testing.T) {
	out := assemble(nil, 0)
	require.Len(t, out, minContainerLen)
	assert.Equal(t, streamHeader, out[:headerLen])
	assert.Equal(t, footerMagic, out[len(out)-2:])

	restored, err := decompressStream(out, -1)
	require.NoError(t, err)
	assert.Empty(t, restored)
}
