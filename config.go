// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"context"
	"io"
	"log/slog"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config provides a configuration struct and options to adjust the configuration.
//
// The configuration struct holds all configuration options for compression,
// decompression and transcoding. The configuration options can be adjusted
// using the option pattern style.
type Config struct {
	// concurrency is the number of goroutines that compress chunks
	concurrency int

	// level is the compression effort from 0 (fast) to 9 (small)
	level int

	// logger stream for compression
	logger logger

	// maxInputSize is the maximum size of the input, or of the decompressed
	// payload when transcoding. Set value to -1 to disable the check.
	maxInputSize int64

	// sourceFormat forces the format of the transcoding input
	sourceFormat string

	// telemetryHook is a function to consume telemetry data after an operation finished
	// Important: do not adjust this value after compression started
	telemetryHook TelemetryHook

	// verify decompresses every container right after compression and compares
	// the result with the input
	verify bool
}

// CheckInputSize checks if size exceeds the configured maximum. If the maximum is exceeded,
// a [ErrMaxInputSizeExceeded] error is returned.
func (c *Config) CheckInputSize(size int64) error {

	// check if disabled
	if c.MaxInputSize() == -1 {
		return nil
	}

	// check value
	if size > c.MaxInputSize() {
		return ErrMaxInputSizeExceeded
	}
	return nil
}

// Concurrency returns the number of goroutines used to compress chunks.
func (c *Config) Concurrency() int {
	if c.concurrency < 1 {
		return 1
	}
	return c.concurrency
}

// Level returns the compression level.
func (c *Config) Level() int {
	return c.level
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	if c.logger == nil {
		return defaultLogger
	}
	return c.logger
}

// MaxInputSize returns the maximum size of the input.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// SourceFormat returns the forced transcoding source format, or an empty
// string if the format is detected from the input.
func (c *Config) SourceFormat() string {
	return c.sourceFormat
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return defaultTelemetryHook
	}
	return c.telemetryHook
}

// Verify returns true if every compressed container is decompressed and
// compared with the input before it is returned.
func (c *Config) Verify() bool {
	return c.verify
}

const (
	defaultConcurrency  = 1             // compress on the calling goroutine
	defaultLevel        = 6             // same default as the xz utility
	defaultMaxInputSize = 1 << (10 * 3) // 1 Gb
	defaultSourceFormat = ""            // detect by magic bytes
	defaultVerify       = false         // no round-trip check
	maxLevel            = 9             // strongest preset
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, d *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {

	// setup default values
	config := &Config{
		concurrency:   defaultConcurrency,
		level:         defaultLevel,
		logger:        defaultLogger,
		maxInputSize:  defaultMaxInputSize,
		sourceFormat:  defaultSourceFormat,
		telemetryHook: defaultTelemetryHook,
		verify:        defaultVerify,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithConcurrency options pattern function to compress chunks on n goroutines.
// The output does not depend on n. Values below 1 are treated as 1.
func WithConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.concurrency = n
	}
}

// WithLevel options pattern function to set the compression level. The level is
// clamped to the range 0 to 9.
func WithLevel(level int) ConfigOption {
	return func(c *Config) {
		switch {
		case level < 0:
			c.level = 0
		case level > maxLevel:
			c.level = maxLevel
		default:
			c.level = level
		}
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxInputSize options pattern function to set MaxInputSize for the input. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithSourceFormat options pattern function to force the format of the
// transcoding input, e.g. "br" for brotli which cannot be detected.
func WithSourceFormat(format string) ConfigOption {
	return func(c *Config) {
		if len(format) > 0 {
			c.sourceFormat = format
		}
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook], which is called after
// every operation.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// WithVerify options pattern function to enable the round-trip self check
// after compression.
func WithVerify(verify bool) ConfigOption {
	return func(c *Config) {
		c.verify = verify
	}
}
