// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"context"
	"fmt"
	"io"
)

// Transcode reads src, decompresses it if it is stored in one of the
// [SourceFormats] and compresses the payload into a container like [Compress].
// The source format is detected from the magic bytes unless it is forced with
// [WithSourceFormat]; input without known magic bytes is taken as is.
//
// The configured maximum input size applies to the raw input and to the
// decompressed payload. If cfg is nil the default configuration is used.
func Transcode(ctx context.Context, src io.Reader, cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	// prepare telemetry capturing
	m := &TelemetryData{Operation: OperationTranscode}
	defer cfg.TelemetryHook()(ctx, m)
	defer captureDuration(m, now())

	// limit input size
	limitedReader := newLimitErrorReader(src, cfg.MaxInputSize())
	defer captureInputSize(m, limitedReader)

	// peek header
	headerReader, err := newHeaderReader(limitedReader, maxHeaderLength)
	if err != nil {
		return nil, handleError(cfg, m, "cannot read input header", err)
	}

	// determine source format
	format := cfg.SourceFormat()
	if format == "" {
		format = detectSourceFormat(headerReader.PeekHeader())
	}
	m.SourceFormat = format
	cfg.Logger().Info("transcode", "format", format)

	// check if context is canceled
	if err := ctx.Err(); err != nil {
		return nil, handleError(cfg, m, "context error", err)
	}

	// start decompression
	var payloadStream io.Reader = headerReader
	if format != "" {
		source, ok := availableSources[format]
		if !ok {
			return nil, handleError(cfg, m, "cannot transcode input", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format))
		}
		decompressedStream, err := source.Decompressor(headerReader)
		if err != nil {
			return nil, handleError(cfg, m, "cannot start decompression", err)
		}
		payloadStream = decompressedStream
	}

	// read payload, the decompressed size is limited as well
	payload, err := io.ReadAll(newLimitErrorReader(payloadStream, cfg.MaxInputSize()))
	if closer, ok := payloadStream.(io.Closer); ok {
		closer.Close()
	}
	if err != nil {
		return nil, handleError(cfg, m, "cannot read payload", err)
	}

	// trailing input is not part of the payload, but counts as input
	if _, err := io.Copy(io.Discard, headerReader); err != nil {
		return nil, handleError(cfg, m, "cannot read input", err)
	}
	cfg.Logger().Debug("payload read", "format", format, "size", len(payload))

	return compress(ctx, payload, cfg, m)
}

// captureInputSize captures the number of bytes read from the raw input
func captureInputSize(m *TelemetryData, ler *limitErrorReader) {
	m.InputSize = int64(ler.ReadBytes())
}
