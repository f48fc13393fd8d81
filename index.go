// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"fmt"
	"math"
	"sort"
)

// Record is an index entry describing one block of a container.
type Record struct {
	// CompressedSize is the unpadded size of the block: block header,
	// compressed data and check, without the block padding.
	CompressedSize uint64 `json:"compressed_size"`

	// UncompressedSize is the number of bytes the block decodes to.
	UncompressedSize uint64 `json:"uncompressed_size"`
}

// BlockInfo locates a block inside a container and inside the
// uncompressed payload.
type BlockInfo struct {
	Record

	// Offset is the position of the block in the container.
	Offset int64 `json:"offset"`

	// PaddedSize is the size of the block including the block padding.
	PaddedSize int64 `json:"padded_size"`

	// UncompressedOffset is the position of the block data in the
	// uncompressed payload.
	UncompressedOffset int64 `json:"uncompressed_offset"`
}

// Index is the parsed index of a container.
type Index struct {
	// Records holds one record per block in stream order.
	Records []Record

	blocks []BlockInfo
}

// newIndex computes the block layout of records for a stream whose first
// block starts at offset headerLen. The blocks must fill exactly blocksLen
// bytes and the payload must fit into an int64.
func newIndex(records []Record, blocksLen int64) (*Index, error) {
	idx := &Index{Records: records, blocks: make([]BlockInfo, len(records))}
	var used, uoff int64
	for i, rec := range records {
		// checked before rounding so paddedSize cannot wrap
		if rec.CompressedSize > uint64(blocksLen-used) {
			return nil, fmt.Errorf("index record %d: block size %d exceeds the %d remaining bytes", i, rec.CompressedSize, blocksLen-used)
		}
		padded := int64(paddedSize(rec.CompressedSize))
		if padded > blocksLen-used {
			return nil, fmt.Errorf("index record %d: padded block size %d exceeds the %d remaining bytes", i, padded, blocksLen-used)
		}
		if rec.UncompressedSize > uint64(math.MaxInt64-uoff) {
			return nil, fmt.Errorf("index record %d: uncompressed size %d overflows the payload size", i, rec.UncompressedSize)
		}
		idx.blocks[i] = BlockInfo{
			Record:             rec,
			Offset:             headerLen + used,
			PaddedSize:         padded,
			UncompressedOffset: uoff,
		}
		used += padded
		uoff += int64(rec.UncompressedSize)
	}
	if used != blocksLen {
		return nil, fmt.Errorf("index describes %d bytes of blocks, stream has %d", used, blocksLen)
	}
	return idx, nil
}

// Len returns the number of blocks.
func (idx *Index) Len() int {
	return len(idx.Records)
}

// UncompressedSize returns the size of the uncompressed payload.
func (idx *Index) UncompressedSize() int64 {
	var n int64
	for _, rec := range idx.Records {
		n += int64(rec.UncompressedSize)
	}
	return n
}

// CompressedSize returns the size of all blocks including block padding.
func (idx *Index) CompressedSize() int64 {
	var n int64
	for _, rec := range idx.Records {
		n += int64(paddedSize(rec.CompressedSize))
	}
	return n
}

// Block returns the location of block i.
func (idx *Index) Block(i int) (BlockInfo, error) {
	if i < 0 || i >= len(idx.blocks) {
		return BlockInfo{}, fmt.Errorf("block %d of %d: %w", i, len(idx.blocks), ErrChunkOutOfRange)
	}
	return idx.blocks[i], nil
}

// blockAt returns the number of the block holding the uncompressed offset
// off, or Len() if off is beyond the payload.
func (idx *Index) blockAt(off int64) int {
	return sort.Search(len(idx.blocks), func(i int) bool {
		b := idx.blocks[i]
		return b.UncompressedOffset+int64(b.UncompressedSize) > off
	})
}

// writeIndex appends the index for records to s and returns its size in
// bytes, which is always a multiple of four.
func writeIndex(s *byteSink, records []Record) int {
	start := s.Len()
	s.PutUint8(indexIndicator)
	s.PutUvarint(uint64(len(records)))
	for _, rec := range records {
		s.PutUvarint(rec.CompressedSize)
		s.PutUvarint(rec.UncompressedSize)
	}
	s.PadTo(start, 4)
	s.PutUint32(checksum32(s.Bytes()[start:]))
	return s.Len() - start
}

// parseIndex decodes a complete index (indicator through CRC32) from data.
// Trailing bytes after the CRC32 are an error.
func parseIndex(data []byte) ([]Record, error) {
	c := newByteCursor(data)

	indicator, err := c.Uint8()
	if err != nil {
		return nil, fmt.Errorf("index indicator: %w", err)
	}
	if indicator != indexIndicator {
		return nil, fmt.Errorf("index indicator is 0x%02x", indicator)
	}

	count, err := c.Uvarint()
	if err != nil {
		return nil, fmt.Errorf("index record count: %w", err)
	}
	// every record takes at least two bytes
	if count > uint64(c.Remaining()/2) {
		return nil, fmt.Errorf("index record count %d: %w", count, errShortBuffer)
	}

	records := make([]Record, 0, count)
	for i := uint64(0); i < count; i++ {
		var rec Record
		if rec.CompressedSize, err = c.Uvarint(); err != nil {
			return nil, fmt.Errorf("index record %d: %w", i, err)
		}
		if rec.UncompressedSize, err = c.Uvarint(); err != nil {
			return nil, fmt.Errorf("index record %d: %w", i, err)
		}
		if rec.CompressedSize == 0 {
			return nil, fmt.Errorf("index record %d: zero block size", i)
		}
		records = append(records, rec)
	}

	for c.Pos()%4 != 0 {
		b, err := c.Uint8()
		if err != nil {
			return nil, fmt.Errorf("index padding: %w", err)
		}
		if b != 0 {
			return nil, fmt.Errorf("non-zero byte in index padding")
		}
	}

	covered := c.Pos()
	crc, err := c.Uint32()
	if err != nil {
		return nil, fmt.Errorf("index checksum: %w", err)
	}
	if crc != checksum32(data[:covered]) {
		return nil, fmt.Errorf("index checksum mismatch")
	}
	if c.Remaining() != 0 {
		return nil, fmt.Errorf("%d unexpected bytes after index", c.Remaining())
	}

	return records, nil
}

// locateIndex returns the offset of the index in a single stream xz file
// using the backward size of the footer.
func locateIndex(data []byte) (int, error) {
	f, err := parseFooter(data)
	if err != nil {
		return 0, err
	}
	off := int64(len(data)) - footerLen - f.indexSize
	if off < headerLen {
		return 0, fmt.Errorf("backward size %d exceeds stream", f.indexSize)
	}
	return int(off), nil
}

// ReadIndex parses and validates the stream header, footer and index of a
// container and returns the block layout. The block data itself is not
// decoded.
func ReadIndex(data []byte) (*Index, error) {
	if len(data) < minContainerLen {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrCorruptContainer, len(data))
	}
	if !hasStreamHeader(data) {
		return nil, fmt.Errorf("%w: invalid stream header", ErrCorruptContainer)
	}

	indexOffset, err := locateIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptContainer, err)
	}
	records, err := parseIndex(data[indexOffset : len(data)-footerLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptContainer, err)
	}

	idx, err := newIndex(records, int64(indexOffset-headerLen))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptContainer, err)
	}
	for _, b := range idx.blocks {
		// the block header size byte can never be the index indicator
		if data[b.Offset] == indexIndicator {
			return nil, fmt.Errorf("%w: block at offset %d starts with index indicator", ErrCorruptContainer, b.Offset)
		}
	}
	return idx, nil
}
