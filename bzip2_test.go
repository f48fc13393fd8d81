// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package xzchunk

import (
	"testing"
)

func TestIsBzip2(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   bool
	}{
		{
			name:   "Test bzip2 header",
			header: []byte("BZh9"),
			want:   true,
		},
		{
			name:   "Test lowest block size",
			header: []byte("BZh1"),
			want:   true,
		},
		{
			name:   "Test invalid block size",
			header: []byte("BZh0"),
			want:   false,
		},
		{
			name:   "Test non-bzip2 header",
			header: []byte("Not a bzip2 header"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBzip2(tt.header); got != tt.want {
				t.Errorf("isBzip2() = %v, want %v", got, tt.want)
			}
		})
	}
}
