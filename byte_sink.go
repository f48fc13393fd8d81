// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import "encoding/binary"

// byteSink is a growable output buffer for the container writer. Fixed width
// integers are written little-endian, variable length integers as ULEB128,
// which is the multibyte integer encoding of the xz file format.
type byteSink struct {
	buf []byte
}

// newByteSink returns a sink with sizeHint bytes of preallocated capacity.
func newByteSink(sizeHint int) *byteSink {
	return &byteSink{buf: make([]byte, 0, sizeHint)}
}

// PutUint8 appends a single byte.
func (s *byteSink) PutUint8(v uint8) {
	s.buf = append(s.buf, v)
}

// PutUint32 appends v as 4 byte little-endian integer.
func (s *byteSink) PutUint32(v uint32) {
	s.buf = binary.LittleEndian.AppendUint32(s.buf, v)
}

// PutBytes appends p.
func (s *byteSink) PutBytes(p []byte) {
	s.buf = append(s.buf, p...)
}

// PutUvarint appends v as ULEB128.
func (s *byteSink) PutUvarint(v uint64) {
	s.buf = binary.AppendUvarint(s.buf, v)
}

// PadTo appends zero bytes until the length of the data written since
// start is a multiple of align.
func (s *byteSink) PadTo(start int, align int) {
	for (len(s.buf)-start)%align != 0 {
		s.buf = append(s.buf, 0)
	}
}

// PatchUint32 overwrites the 4 byte little-endian integer at off, which
// must have been written before.
func (s *byteSink) PatchUint32(off int, v uint32) {
	binary.LittleEndian.PutUint32(s.buf[off:off+4], v)
}

// Len returns the number of bytes written so far.
func (s *byteSink) Len() int {
	return len(s.buf)
}

// Bytes returns the written data. The slice aliases the sink.
func (s *byteSink) Bytes() []byte {
	return s.buf
}
