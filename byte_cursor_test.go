// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteCursor(t *testing.T) {
	c := newByteCursor([]byte{0x07, 0x01, 0x02, 0x03, 0x04, 0xAC, 0x02, 0xEE, 0xFF})

	b, err := c.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x07), b)

	v, err := c.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v)

	u, err := c.Uvarint()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), u)
	assert.Equal(t, 7, c.Pos())

	p, err := c.Bytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEE, 0xFF}, p)
	assert.Equal(t, 0, c.Remaining())

	_, err = c.Uint8()
	assert.True(t, errors.Is(err, errShortBuffer))
	_, err = c.Uint32()
	assert.True(t, errors.Is(err, errShortBuffer))
	_, err = c.Bytes(1)
	assert.True(t, errors.Is(err, errShortBuffer))
}

func TestByteCursorUvarint(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    uint64
		wantErr error
	}{
		{name: "zero", data: []byte{0x00}, want: 0},
		{name: "single byte", data: []byte{0x7F}, want: 127},
		{name: "two bytes", data: []byte{0x80, 0x01}, want: 128},
		{name: "truncated", data: []byte{0x80}, wantErr: errShortBuffer},
		{name: "empty", data: nil, wantErr: errShortBuffer},
		{name: "non minimal", data: []byte{0x81, 0x00}, wantErr: errUvarintInvalid},
		{name: "too long", data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, wantErr: errUvarintInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newByteCursor(tt.data).Uvarint()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
