// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// maxUvarintLen is the maximum length of a multibyte integer in an xz file.
const maxUvarintLen = 9

var (
	errShortBuffer    = errors.New("unexpected end of data")
	errUvarintInvalid = errors.New("invalid multibyte integer")
)

// byteCursor reads from a byte slice with explicit bounds checks. It never
// panics on truncated input.
type byteCursor struct {
	data []byte
	pos  int
}

// newByteCursor returns a cursor positioned at the start of data.
func newByteCursor(data []byte) *byteCursor {
	return &byteCursor{data: data}
}

// Uint8 reads one byte.
func (c *byteCursor) Uint8() (uint8, error) {
	if c.Remaining() < 1 {
		return 0, errShortBuffer
	}
	v := c.data[c.pos]
	c.pos++
	return v, nil
}

// Uint32 reads a 4 byte little-endian integer.
func (c *byteCursor) Uint32() (uint32, error) {
	if c.Remaining() < 4 {
		return 0, errShortBuffer
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// Uvarint reads a ULEB128 integer of at most maxUvarintLen bytes. Non-minimal
// encodings (a trailing zero byte) are rejected like xz does.
func (c *byteCursor) Uvarint() (uint64, error) {
	rest := c.data[c.pos:]
	if len(rest) > maxUvarintLen {
		rest = rest[:maxUvarintLen]
	}
	v, n := binary.Uvarint(rest)
	switch {
	case n == 0 && len(rest) == maxUvarintLen:
		return 0, errUvarintInvalid
	case n == 0:
		return 0, errShortBuffer
	case n < 0:
		return 0, errUvarintInvalid
	case n > 1 && rest[n-1] == 0:
		return 0, errUvarintInvalid
	}
	c.pos += n
	return v, nil
}

// Bytes returns the next n bytes without copying.
func (c *byteCursor) Bytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fmt.Errorf("cannot read %d bytes: %w", n, errShortBuffer)
	}
	p := c.data[c.pos : c.pos+n]
	c.pos += n
	return p, nil
}

// Pos returns the current offset.
func (c *byteCursor) Pos() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *byteCursor) Remaining() int {
	return len(c.data) - c.pos
}
