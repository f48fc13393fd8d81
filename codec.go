// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// checkCRC32 is the xz check type id for CRC32, it matches the stream flags
// of the container.
const checkCRC32 byte = 0x01

// copyBufferSize is the size of the buffer that moves data from the chunk
// source into the codec.
const copyBufferSize = 32 << 10

// levelDictCap maps a compression level to the LZMA2 dictionary capacity,
// following the presets of the xz utility.
var levelDictCap = [...]int{
	256 << 10, // 0
	1 << 20,   // 1
	2 << 20,   // 2
	4 << 20,   // 3
	4 << 20,   // 4
	8 << 20,   // 5
	8 << 20,   // 6
	16 << 20,  // 7
	32 << 20,  // 8
	64 << 20,  // 9
}

// progressFunc reports the number of bytes handed to the codec. Returning
// false aborts the operation.
type progressFunc func(done, total int64) bool

// noProgress is the progress callback used for chunks, it never cancels.
func noProgress(done, total int64) bool {
	return true
}

// chunkStream adapts one in-memory payload to the pull/push interface of
// the codec: Read hands out the input, Write collects the output and
// Progress is consulted after every piece.
type chunkStream struct {
	in       []byte
	pos      int
	out      []byte
	progress progressFunc
}

// Read copies min(len(p), remaining) bytes of the input and returns io.EOF
// once the input is exhausted.
func (s *chunkStream) Read(p []byte) (int, error) {
	if s.pos >= len(s.in) {
		return 0, io.EOF
	}
	n := copy(p, s.in[s.pos:])
	s.pos += n
	return n, nil
}

// Write appends p to the output and always accepts all of it.
func (s *chunkStream) Write(p []byte) (int, error) {
	s.out = append(s.out, p...)
	return len(p), nil
}

// Progress reports how much of the input has been consumed.
func (s *chunkStream) Progress() bool {
	return s.progress(int64(s.pos), int64(len(s.in)))
}

// dictCap returns the dictionary capacity for level, reduced to the size
// of the input so that small chunks do not allocate large dictionaries.
func dictCap(level int, sizeHint int) int {
	if level < 0 {
		level = 0
	}
	if level >= len(levelDictCap) {
		level = len(levelDictCap) - 1
	}
	c := levelDictCap[level]
	if sizeHint < c {
		c = sizeHint
	}
	if c < lzma.MinDictCap {
		c = lzma.MinDictCap
	}
	return c
}

// writerConfig returns the codec configuration for a payload of size bytes.
// Payloads up to ChunkSize always end up in a single block.
func writerConfig(level int, size int) xz.WriterConfig {
	blockSize := int64(ChunkSize)
	if int64(size) > blockSize {
		blockSize = int64(size)
	}
	return xz.WriterConfig{
		DictCap:   dictCap(level, size),
		BlockSize: blockSize,
		CheckSum:  checkCRC32,
	}
}

// compressChunk compresses data into a complete, standalone single-block xz
// stream: stream header, one block, index and footer.
func compressChunk(data []byte, level int) ([]byte, error) {
	s := &chunkStream{
		in:       data,
		out:      make([]byte, 0, len(data)/2+minContainerLen+64),
		progress: noProgress,
	}

	w, err := writerConfig(level, len(data)).NewWriter(s)
	if err != nil {
		return nil, errors.Wrapf(ErrCodec, "cannot create writer: %v", err)
	}

	if _, err := io.CopyBuffer(w, s, make([]byte, copyBufferSize)); err != nil {
		return nil, errors.Wrapf(ErrCodec, "cannot write chunk: %v", err)
	}
	if !s.Progress() {
		return nil, errors.Wrap(ErrCodec, "compression aborted")
	}

	if err := w.Close(); err != nil {
		return nil, errors.Wrapf(ErrCodec, "cannot finish stream: %v", err)
	}
	return s.out, nil
}

// initialOutputCap estimates the decompressed size of n compressed bytes
// and rounds it up to a multiple of the page size.
func initialOutputCap(n int) int {
	page := os.Getpagesize()
	c := n * 4
	if c < page/4 {
		c = page / 4
	}
	return (c + page - 1) / page * page
}

// decompressStream decodes a complete xz stream, single- or multi-block.
// Every input byte must be consumed and the stream must end cleanly. A
// stream that decodes to more than maxSize bytes is rejected with
// ErrMaxInputSizeExceeded; -1 disables the check.
func decompressStream(data []byte, maxSize int64) ([]byte, error) {
	src := bytes.NewReader(data)
	r, err := xz.ReaderConfig{SingleStream: true}.NewReader(src)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptContainer, "cannot open stream: %v", err)
	}

	out := make([]byte, 0, initialOutputCap(len(data)))
	for {
		if len(out) == cap(out) {
			grown := make([]byte, len(out), 2*cap(out))
			copy(grown, out)
			out = grown
		}
		n, err := r.Read(out[len(out):cap(out)])
		out = out[:len(out)+n]
		if maxSize >= 0 && int64(len(out)) > maxSize {
			return nil, errors.Wrapf(ErrMaxInputSizeExceeded, "stream decodes to more than %d bytes", maxSize)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptContainer, "cannot decode stream: %v", err)
		}
	}

	if src.Len() != 0 {
		return nil, errors.Wrapf(ErrCorruptContainer, "%d bytes left after stream end", src.Len())
	}
	return out, nil
}
