// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// encodedChunk is the contribution of one chunk to the container: its raw
// block bytes and the index records of its own single-block stream.
type encodedChunk struct {
	block   []byte
	records []Record
}

// Compress splits data into chunks of [ChunkSize] bytes, compresses every
// chunk independently and assembles the blocks into a single xz stream with
// one index record per chunk. Any xz decoder can read the result; readers
// that understand the index can decode single chunks, see [NewReader].
//
// Empty input produces a valid container without blocks. If cfg is nil the
// default configuration is used.
func Compress(ctx context.Context, data []byte, cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	// prepare telemetry capturing
	m := &TelemetryData{Operation: OperationCompress, InputSize: int64(len(data))}
	defer cfg.TelemetryHook()(ctx, m)
	defer captureDuration(m, now())

	cfg.Logger().Info("compress", "size", len(data), "level", cfg.Level(), "concurrency", cfg.Concurrency())
	return compress(ctx, data, cfg, m)
}

// compress implements Compress without firing the telemetry hook, so that
// other operations can report a single telemetry record.
func compress(ctx context.Context, data []byte, cfg *Config, m *TelemetryData) ([]byte, error) {

	// check input size
	if err := cfg.CheckInputSize(int64(len(data))); err != nil {
		return nil, handleError(cfg, m, "cannot compress input", err)
	}
	InitChecksumTables()
	m.Checksum = checksum64(data)

	// encode chunks
	chunks, err := encodeChunks(ctx, data, cfg)
	if err != nil {
		return nil, handleError(cfg, m, "cannot encode chunks", err)
	}

	// splice blocks
	out := assemble(chunks, len(data))
	m.Chunks = int64(len(chunks))
	m.OutputSize = int64(len(out))

	// self verification
	if cfg.Verify() {
		restored, err := decompressStream(out, -1)
		if err != nil {
			return nil, handleError(cfg, m, "cannot verify container", fmt.Errorf("%w: %s", ErrVerificationFailed, err))
		}
		if !bytes.Equal(restored, data) {
			return nil, handleError(cfg, m, "cannot verify container", ErrVerificationFailed)
		}
		cfg.Logger().Debug("container verified", "size", len(out))
	}

	return out, nil
}

// chunkBounds returns the [start, end) offsets of every chunk of a payload
// with size bytes.
func chunkBounds(size int) [][2]int {
	bounds := make([][2]int, 0, (size+ChunkSize-1)/ChunkSize)
	for off := 0; off < size; off += ChunkSize {
		end := off + ChunkSize
		if end > size {
			end = size
		}
		bounds = append(bounds, [2]int{off, end})
	}
	return bounds
}

// encodeChunks compresses all chunks of data in order. With a concurrency
// above one the chunks are compressed on a bounded group of goroutines, the
// result is the same.
func encodeChunks(ctx context.Context, data []byte, cfg *Config) ([]encodedChunk, error) {
	bounds := chunkBounds(len(data))
	chunks := make([]encodedChunk, len(bounds))

	if cfg.Concurrency() == 1 || len(bounds) < 2 {
		for i, b := range bounds {
			// check if context is canceled
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c, err := encodeChunk(data[b[0]:b[1]], cfg.Level())
			if err != nil {
				return nil, fmt.Errorf("chunk %d: %w", i, err)
			}
			cfg.Logger().Debug("chunk encoded", "chunk", i, "size", b[1]-b[0], "compressed", len(c.block))
			chunks[i] = c
		}
		return chunks, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency())
	for i, b := range bounds {
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := encodeChunk(data[b[0]:b[1]], cfg.Level())
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			cfg.Logger().Debug("chunk encoded", "chunk", i, "size", b[1]-b[0], "compressed", len(c.block))
			chunks[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// encodeChunk compresses one chunk into a standalone stream and strips the
// stream down to its block bytes and index records.
func encodeChunk(chunk []byte, level int) (encodedChunk, error) {
	scratch, err := compressChunk(chunk, level)
	if err != nil {
		return encodedChunk{}, err
	}

	// the codec output must look like any other single stream xz file
	if len(scratch) < minContainerLen || !hasStreamHeader(scratch) || !hasFooterMagic(scratch) {
		return encodedChunk{}, fmt.Errorf("%w: stream header or footer mismatch", ErrSelfIndex)
	}

	// locate the self index with the backward size of the footer
	backward := binary.LittleEndian.Uint32(scratch[len(scratch)-footerLen+4:])
	indexOffset := len(scratch) - 16 - int(backward)*4
	if indexOffset < headerLen {
		return encodedChunk{}, fmt.Errorf("%w: backward size %d exceeds stream", ErrSelfIndex, backward)
	}

	records, err := parseIndex(scratch[indexOffset : len(scratch)-footerLen])
	if err != nil {
		return encodedChunk{}, fmt.Errorf("%w: %s", ErrSelfIndex, err)
	}

	return encodedChunk{
		block:   scratch[headerLen:indexOffset],
		records: records,
	}, nil
}

// assemble writes the container: the shared stream header, all block bytes
// in chunk order, the combined index and the footer.
func assemble(chunks []encodedChunk, sizeHint int) []byte {
	s := newByteSink(sizeHint/2 + minContainerLen)
	s.PutBytes(streamHeader)

	var records []Record
	for _, c := range chunks {
		records = append(records, c.records...)
		s.PutBytes(c.block)
	}

	indexSize := writeIndex(s, records)
	writeFooter(s, indexSize)
	return s.Bytes()
}

// Decompress restores the payload of a container produced by [Compress]. Any
// other single stream xz file is accepted as well.
//
// A container with a damaged block, index or footer is rejected with an
// error wrapping [ErrCorruptContainer]; no partial payload is returned.
func Decompress(ctx context.Context, data []byte, cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	// prepare telemetry capturing
	m := &TelemetryData{Operation: OperationDecompress, InputSize: int64(len(data))}
	defer cfg.TelemetryHook()(ctx, m)
	defer captureDuration(m, now())

	cfg.Logger().Info("decompress", "size", len(data))

	// check input size
	if err := cfg.CheckInputSize(int64(len(data))); err != nil {
		return nil, handleError(cfg, m, "cannot decompress input", err)
	}

	// check if context is canceled
	if err := ctx.Err(); err != nil {
		return nil, handleError(cfg, m, "context error", err)
	}

	// streams with the container flags get their index and footer checked
	// before any block is decoded
	if hasStreamHeader(data) {
		idx, err := ReadIndex(data)
		if err != nil {
			return nil, handleError(cfg, m, "invalid container index", err)
		}
		m.Chunks = int64(idx.Len())

		// the index announces the payload size
		if err := cfg.CheckInputSize(idx.UncompressedSize()); err != nil {
			return nil, handleError(cfg, m, "payload too large", err)
		}
	}

	out, err := decompressStream(data, cfg.MaxInputSize())
	if err != nil {
		return nil, handleError(cfg, m, "cannot decompress container", err)
	}
	m.OutputSize = int64(len(out))
	m.Checksum = checksum64(out)
	return out, nil
}
