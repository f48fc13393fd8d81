// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
	"sort"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/snappy"
	"github.com/ulikunitz/xz"
)

// init calculates the maximum header length
func init() {
	for _, src := range availableSources {
		for _, mb := range src.MagicBytes {
			if len(mb) > maxHeaderLength {
				maxHeaderLength = len(mb)
			}
		}
	}
}

// file extensions of the formats that need no extra detection logic
const (
	fileExtensionBrotli = "br"
	fileExtensionGZip   = "gz"
	fileExtensionSnappy = "sz"
	fileExtensionXz     = "xz"
	fileExtensionZlib   = "zz"
)

// decompressionFunc returns a reader with the decompressed content of src.
type decompressionFunc func(io.Reader) (io.Reader, error)

// headerCheck is a function that checks if the given header matches the expected magic bytes.
type headerCheck func([]byte) bool

// availableSource describes a transcoding source format. Formats without a
// HeaderCheck are detected by their MagicBytes at offset zero, formats
// without either are never detected and must be requested explicitly.
type availableSource struct {
	Decompressor decompressionFunc
	HeaderCheck  headerCheck
	MagicBytes   [][]byte
}

// matches checks if header starts a stream of the source format.
func (s availableSource) matches(header []byte) bool {
	if s.HeaderCheck != nil {
		return s.HeaderCheck(header)
	}
	return matchesMagicBytes(header, 0, s.MagicBytes)
}

// availableSources is collection of decompression functions with
// the required magic bytes, keyed by file extension
var availableSources = map[string]availableSource{
	// brotli has no unique magic bytes, see [WithSourceFormat]
	fileExtensionBrotli: {
		Decompressor: func(src io.Reader) (io.Reader, error) {
			return brotli.NewReader(src), nil
		},
	},
	fileExtensionBzip2: {
		Decompressor: decompressBzip2Stream,
		HeaderCheck:  isBzip2,
		MagicBytes:   magicBytesBzip2,
	},
	// https://www.rfc-editor.org/rfc/rfc1952
	fileExtensionGZip: {
		Decompressor: func(src io.Reader) (io.Reader, error) {
			return gzip.NewReader(src)
		},
		MagicBytes: [][]byte{{0x1f, 0x8b}},
	},
	fileExtensionLZ4: {
		Decompressor: decompressLZ4Stream,
		HeaderCheck:  isLZ4,
		MagicBytes:   magicBytesLZ4,
	},
	// framing format stream identifier
	fileExtensionSnappy: {
		Decompressor: func(src io.Reader) (io.Reader, error) {
			return snappy.NewReader(src), nil
		},
		MagicBytes: [][]byte{append([]byte{0xff, 0x06, 0x00, 0x00}, []byte("sNaPpY")...)},
	},
	// concatenated streams, e.g. from parallel xz tools, are decoded as well
	fileExtensionXz: {
		Decompressor: func(src io.Reader) (io.Reader, error) {
			return xz.NewReader(src)
		},
		MagicBytes: [][]byte{magicBytesXz},
	},
	// https://www.rfc-editor.org/rfc/rfc1950, CMF 0x78 with every valid FLG
	fileExtensionZlib: {
		Decompressor: func(src io.Reader) (io.Reader, error) {
			return zlib.NewReader(src)
		},
		MagicBytes: [][]byte{
			{0x78, 0x01},
			{0x78, 0x5e},
			{0x78, 0x9c},
			{0x78, 0xda},
			{0x78, 0x20},
			{0x78, 0x7d},
			{0x78, 0xbb},
			{0x78, 0xf9},
		},
	},
	fileExtensionZstd: {
		Decompressor: decompressZstdStream,
		HeaderCheck:  isZstd,
		MagicBytes:   magicBytesZstd,
	},
}

// maxHeaderLength is the maximum header length of all sources
var maxHeaderLength int

// SourceFormats returns the file extensions of all supported transcoding
// source formats in sorted order.
func SourceFormats() []string {
	formats := make([]string, 0, len(availableSources))
	for ext := range availableSources {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}

// detectSourceFormat returns the file extension of the format whose magic
// bytes match header, or an empty string for uncompressed input.
func detectSourceFormat(header []byte) string {
	for _, ext := range SourceFormats() {
		if availableSources[ext].matches(header) {
			return ext
		}
	}
	return ""
}

// matchesMagicBytes checks if the bytes in data are equal to any of the magic bytes at the given offset.
func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	// check all possible magic bytes until match is found
	for _, mb := range magicBytes {
		// check if header is long enough
		if offset+len(mb) > len(data) {
			continue
		}

		// check for byte match
		if bytes.Equal(mb, data[offset:offset+len(mb)]) {
			return true
		}
	}

	// no match found
	return false
}
