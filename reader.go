// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"context"
	"fmt"
	"io"
)

// Reader provides random access to the payload of a container. Only the
// blocks that hold the requested bytes are decoded.
//
// A Reader does not cache decoded chunks and is safe for concurrent use.
type Reader struct {
	cfg   *Config
	data  []byte
	index *Index
}

// NewReader validates the index of the container data and returns a Reader
// for it. If cfg is nil the default configuration is used.
func NewReader(data []byte, cfg *Config) (*Reader, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	idx, err := ReadIndex(data)
	if err != nil {
		return nil, err
	}
	cfg.Logger().Debug("container opened", "chunks", idx.Len(), "size", idx.UncompressedSize())
	return &Reader{cfg: cfg, data: data, index: idx}, nil
}

// Index returns the parsed index of the container.
func (r *Reader) Index() *Index {
	return r.index
}

// Size returns the size of the uncompressed payload.
func (r *Reader) Size() int64 {
	return r.index.UncompressedSize()
}

// Chunk decodes chunk i of the container.
func (r *Reader) Chunk(ctx context.Context, i int) ([]byte, error) {

	// prepare telemetry capturing
	m := &TelemetryData{Operation: OperationChunk}
	defer r.cfg.TelemetryHook()(ctx, m)
	defer captureDuration(m, now())

	// check if context is canceled
	if err := ctx.Err(); err != nil {
		return nil, handleError(r.cfg, m, "context error", err)
	}

	b, err := r.index.Block(i)
	if err != nil {
		return nil, handleError(r.cfg, m, "cannot locate chunk", err)
	}
	m.InputSize = b.PaddedSize

	out, err := r.decodeBlock(b)
	if err != nil {
		return nil, handleError(r.cfg, m, fmt.Sprintf("cannot decode chunk %d", i), err)
	}
	m.Chunks = 1
	m.OutputSize = int64(len(out))
	m.Checksum = checksum64(out)
	return out, nil
}

// decodeBlock wraps a single block into a standalone stream with a one
// record index and decodes it.
func (r *Reader) decodeBlock(b BlockInfo) ([]byte, error) {
	s := newByteSink(headerLen + int(b.PaddedSize) + 2*footerLen)
	s.PutBytes(streamHeader)
	s.PutBytes(r.data[b.Offset : b.Offset+b.PaddedSize])
	indexSize := writeIndex(s, []Record{b.Record})
	writeFooter(s, indexSize)

	out, err := decompressStream(s.Bytes(), -1)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != b.UncompressedSize {
		return nil, fmt.Errorf("%w: block decoded to %d bytes, index says %d", ErrCorruptContainer, len(out), b.UncompressedSize)
	}
	return out, nil
}

// ReadAt implements [io.ReaderAt] over the uncompressed payload.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}

	var n int
	for n < len(p) {
		i := r.index.blockAt(off)
		if i >= r.index.Len() {
			return n, io.EOF
		}
		b := r.index.blocks[i]
		chunk, err := r.decodeBlock(b)
		if err != nil {
			return n, err
		}
		k := copy(p[n:], chunk[off-b.UncompressedOffset:])
		n += k
		off += int64(k)
	}
	return n, nil
}
