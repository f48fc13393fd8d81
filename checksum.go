// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"hash/crc32"
	"hash/crc64"
	"sync"
)

// checksumTables holds lookup tables that are generated on first use.
type checksumTables struct {
	once  sync.Once
	crc32 *crc32.Table
	crc64 *crc64.Table
}

// load generates the tables with build unless that happened before.
func (t *checksumTables) load(build func() (*crc32.Table, *crc64.Table)) {
	t.once.Do(func() {
		t.crc32, t.crc64 = build()
	})
}

// makeChecksumTables generates the CRC32 (IEEE) and CRC64 (ECMA) tables.
func makeChecksumTables() (*crc32.Table, *crc64.Table) {
	return crc32.MakeTable(crc32.IEEE), crc64.MakeTable(crc64.ECMA)
}

var tables checksumTables

// InitChecksumTables generates the CRC32 (IEEE) and CRC64 (ECMA) lookup tables
// used for the container index, the footer and the telemetry checksum.
//
// The tables are generated exactly once per process. It is safe to call
// InitChecksumTables concurrently and repeatedly; every caller returns only
// after the tables are ready. Compress, Decompress and ReadIndex call it
// implicitly.
func InitChecksumTables() {
	tables.load(makeChecksumTables)
}

// checksum32 returns the CRC32 of p as used by the xz file format.
func checksum32(p []byte) uint32 {
	InitChecksumTables()
	return crc32.Checksum(p, tables.crc32)
}

// checksum64 returns the CRC64 of p as used by the xz file format.
func checksum64(p []byte) uint64 {
	InitChecksumTables()
	return crc64.Checksum(p, tables.crc64)
}
