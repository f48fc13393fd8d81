// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import "errors"

var (
	// ErrCodec is returned if the underlying LZMA2/XZ codec fails. This only happens
	// on a broken codec configuration, never because of the shape of the input.
	ErrCodec = errors.New("xz codec failure")

	// ErrSelfIndex is returned if the single-block stream of a chunk does not have
	// the expected header, footer or index layout.
	ErrSelfIndex = errors.New("unexpected chunk stream layout")

	// ErrCorruptContainer is returned if a container cannot be decoded or its
	// index or footer is damaged.
	ErrCorruptContainer = errors.New("corrupt xz container")

	// ErrMaxInputSizeExceeded indicates that the maximum input size was exceeded.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")

	// ErrVerificationFailed is returned if the self verification after compression
	// does not reproduce the input.
	ErrVerificationFailed = errors.New("round-trip verification failed")

	// ErrChunkOutOfRange is returned if a chunk index is outside of the container.
	ErrChunkOutOfRange = errors.New("chunk out of range")

	// ErrUnsupportedFormat is returned if a requested source format is unknown.
	ErrUnsupportedFormat = errors.New("unsupported source format")
)
