// Package xzchunk compresses a payload into a chunked xz container and restores it.
//
// The payload is split into chunks of [ChunkSize] bytes. Every chunk is compressed
// independently with LZMA2 and the resulting blocks are spliced into a single xz
// stream with one index record per chunk, so that standard xz tools can decompress
// the container while [NewReader] can decode single chunks without touching the rest.
//
// Configuration is done using the [Config], which is a configuration struct that can be used to
// set the compression level, the concurrency, the logger, the telemetry hook, and the maximum
// input size. Telemetry data is captured for every operation and handed to the [TelemetryHook].
//
// Compressed input in other formats (gzip, zstd, bzip2, ...) can be recompressed into a
// container with [Transcode].
package xzchunk
