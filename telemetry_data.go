// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Operation names reported in [TelemetryData].
const (
	OperationCompress   = "compress"
	OperationDecompress = "decompress"
	OperationTranscode  = "transcode"
	OperationChunk      = "chunk"
)

// TelemetryData holds all telemetry data of one operation.
type TelemetryData struct {
	// Chunks is the number of chunks that have been encoded or decoded
	Chunks int64 `json:"chunks"`

	// Checksum is the CRC64 (ECMA) of the uncompressed payload
	Checksum uint64 `json:"checksum"`

	// Duration is the time the operation took
	Duration time.Duration `json:"duration"`

	// Errors is the number of errors during the operation
	Errors int64 `json:"errors"`

	// InputSize is the size of the input
	InputSize int64 `json:"input_size"`

	// LastError is the last error during the operation
	LastError error `json:"last_error"`

	// Operation is the kind of operation, e.g. [OperationCompress]
	Operation string `json:"operation"`

	// OutputSize is the size of the output
	OutputSize int64 `json:"output_size"`

	// SourceFormat is the detected input format when transcoding
	SourceFormat string `json:"source_format"`
}

// String returns a string representation of [TelemetryData].
func (m TelemetryData) String() string {
	b, _ := json.Marshal(m)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (m TelemetryData) MarshalJSON() ([]byte, error) {
	var lastError string
	if m.LastError != nil {
		lastError = m.LastError.Error()
	}

	type Alias TelemetryData
	return json.Marshal(&struct {
		LastError string `json:"last_error"`
		*Alias
	}{
		LastError: lastError,
		Alias:     (*Alias)(&m),
	})
}

// TelemetryHook is a function type that performs operations on [TelemetryData]
// after an operation has finished which can be used to submit the [TelemetryData]
// to a telemetry service, for example.
type TelemetryHook func(context.Context, *TelemetryData)

// Equals returns true if the given [TelemetryData] is equal to the receiver.
// The duration and the error value are not compared.
func (td *TelemetryData) Equals(other *TelemetryData) bool {
	if td == nil && other == nil {
		return true
	}
	if td == nil || other == nil {
		return false
	}
	return td.Chunks == other.Chunks &&
		td.Checksum == other.Checksum &&
		td.Errors == other.Errors &&
		td.InputSize == other.InputSize &&
		td.Operation == other.Operation &&
		td.OutputSize == other.OutputSize &&
		td.SourceFormat == other.SourceFormat
}

// now is a function point that returns the current time.
// It can be overwritten in tests.
var now = time.Now

// captureDuration records the time elapsed since start.
func captureDuration(m *TelemetryData, start time.Time) {
	m.Duration = now().Sub(start)
}

// handleError increases the error counter, records err with msg as context
// in the telemetry data and returns it.
func handleError(cfg *Config, m *TelemetryData, msg string, err error) error {
	m.Errors++
	m.LastError = fmt.Errorf("%s: %w", msg, err)
	cfg.Logger().Error(msg, "operation", m.Operation, "error", err)
	return m.LastError
}
