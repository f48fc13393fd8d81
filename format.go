// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ChunkSize is the number of uncompressed bytes stored in every block of a
// container, except for the last one which may be shorter.
const ChunkSize = 16 << 10

// magicBytesXz is the magic bytes for xz files.
// reference https://tukaani.org/xz/xz-file-format-1.0.4.txt
var magicBytesXz = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}

// streamHeader is the complete stream header of every container: magic,
// stream flags (check type CRC32) and the CRC32 of the flags.
var streamHeader = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00, 0x00, 0x01, 0x69, 0x22, 0xDE, 0x36}

// streamFlags are the stream flags repeated in the footer.
var streamFlags = []byte{0x00, 0x01}

// footerMagic terminates the stream footer.
var footerMagic = []byte{0x59, 0x5A}

const (
	// headerLen is the length of the stream header
	headerLen = 12

	// footerLen is the length of the stream footer
	footerLen = 12

	// indexIndicator is the first byte of an index, it can never start a block
	indexIndicator = 0x00

	// minContainerLen is header, an empty index (8 bytes) and footer
	minContainerLen = headerLen + 8 + footerLen
)

// footer is the decoded stream footer.
type footer struct {
	// indexSize is the size of the index in bytes
	indexSize int64
}

// writeFooter appends the stream footer for an index of indexSize bytes.
// The CRC32 is written as placeholder and patched once the covered fields
// are in place.
func writeFooter(s *byteSink, indexSize int) {
	start := s.Len()
	s.PutUint32(0)
	s.PutUint32(uint32(indexSize/4 - 1))
	s.PutBytes(streamFlags)
	s.PutBytes(footerMagic)
	s.PatchUint32(start, checksum32(s.Bytes()[start+4:start+10]))
}

// parseFooter decodes and validates the last footerLen bytes of data.
func parseFooter(data []byte) (footer, error) {
	if len(data) < footerLen {
		return footer{}, fmt.Errorf("footer: %w", errShortBuffer)
	}
	p := data[len(data)-footerLen:]

	if !bytes.Equal(p[10:], footerMagic) {
		return footer{}, fmt.Errorf("footer magic invalid")
	}
	if binary.LittleEndian.Uint32(p) != checksum32(p[4:10]) {
		return footer{}, fmt.Errorf("footer checksum mismatch")
	}
	if !bytes.Equal(p[8:10], streamFlags) {
		return footer{}, fmt.Errorf("unsupported stream flags %x", p[8:10])
	}

	backward := int64(binary.LittleEndian.Uint32(p[4:8]))
	return footer{indexSize: (backward + 1) * 4}, nil
}

// hasStreamHeader checks if data starts with the container stream header.
func hasStreamHeader(data []byte) bool {
	return bytes.HasPrefix(data, streamHeader)
}

// hasFooterMagic checks if data ends with the stream footer magic.
func hasFooterMagic(data []byte) bool {
	return bytes.HasSuffix(data, footerMagic)
}

// paddedSize rounds a block size up to the 4 byte alignment of the format.
func paddedSize(unpadded uint64) uint64 {
	return (unpadded + 3) &^ 3
}
