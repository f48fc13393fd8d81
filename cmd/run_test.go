// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	xzchunk "github.com/hashicorp/go-xzchunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEnvironment returns an environment that reads stdin and writes to
// the returned buffer
func newTestEnvironment(stdin []byte) (*environment, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	return &environment{
		globals: &Globals{MaxInputSize: 1 << 30, MaxTime: 300},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdin:   bytes.NewReader(stdin),
		stdout:  stdout,
	}, stdout
}

// testPayload returns three chunks of pseudo random data
func testPayload() []byte {
	data := make([]byte, 2*xzchunk.ChunkSize+500)
	rand.New(rand.NewSource(1)).Read(data)
	return data
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cli *CLI)
	}{
		{
			name: "compress defaults",
			args: []string{"compress", "in.bin"},
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, "in.bin", cli.Compress.Input)
				assert.Equal(t, "-", cli.Compress.Output)
				assert.Equal(t, 6, cli.Compress.Level)
				assert.Equal(t, 1, cli.Compress.Jobs)
				assert.True(t, cli.Compress.Verify)
				assert.Equal(t, int64(1073741824), cli.MaxInputSize)
			},
		},
		{
			name: "compress options",
			args: []string{"compress", "-l", "9", "-j", "4", "--no-verify", "in.bin", "out.xz"},
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, "out.xz", cli.Compress.Output)
				assert.Equal(t, 9, cli.Compress.Level)
				assert.Equal(t, 4, cli.Compress.Jobs)
				assert.False(t, cli.Compress.Verify)
			},
		},
		{
			name: "transcode with format",
			args: []string{"transcode", "-f", "br", "in.br"},
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, "br", cli.Transcode.Format)
				assert.Equal(t, "in.br", cli.Transcode.Input)
			},
		},
		{
			name: "cat chunk",
			args: []string{"--max-input-size=-1", "cat", "in.xz", "2"},
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, 2, cli.Cat.Chunk)
				assert.Equal(t, int64(-1), cli.MaxInputSize)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cli CLI
			parser, err := kong.New(&cli, kong.Vars{"version": "test"})
			require.NoError(t, err)
			_, err = parser.Parse(tt.args)
			require.NoError(t, err)
			tt.check(t, &cli)
		})
	}
}

func TestCompressDecompressCmd(t *testing.T) {
	data := testPayload()

	// compress from stdin to stdout
	e, stdout := newTestEnvironment(data)
	require.NoError(t, (&CompressCmd{Input: "-", Output: "-", Level: 6, Jobs: 2, Verify: true}).Run(e))
	container := append([]byte{}, stdout.Bytes()...)

	idx, err := xzchunk.ReadIndex(container)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	// decompress from file to file
	dir := t.TempDir()
	in := filepath.Join(dir, "data.xz")
	out := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(in, container, 0640))

	e, _ = newTestEnvironment(nil)
	require.NoError(t, (&DecompressCmd{Input: in, Output: out}).Run(e))
	restored, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, restored))
}

func TestTranscodeCmd(t *testing.T) {
	data := testPayload()

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	e, stdout := newTestEnvironment(gz.Bytes())
	require.NoError(t, (&TranscodeCmd{Input: "-", Output: "-", Level: 6, Jobs: 1}).Run(e))

	e, restored := newTestEnvironment(stdout.Bytes())
	require.NoError(t, (&DecompressCmd{Input: "-", Output: "-"}).Run(e))
	assert.True(t, bytes.Equal(data, restored.Bytes()))
}

func TestInspectAndCatCmd(t *testing.T) {
	data := testPayload()
	e, stdout := newTestEnvironment(data)
	require.NoError(t, (&CompressCmd{Input: "-", Output: "-", Level: 6, Jobs: 1}).Run(e))
	container := append([]byte{}, stdout.Bytes()...)

	e, report := newTestEnvironment(container)
	require.NoError(t, (&InspectCmd{Input: "-"}).Run(e))
	lines := strings.Split(strings.TrimSpace(report.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[4], "blocks=3 "), lines[4])
	assert.Contains(t, lines[4], "uncompressed=33268")

	e, chunk := newTestEnvironment(container)
	require.NoError(t, (&CatCmd{Input: "-", Chunk: 2, Output: "-"}).Run(e))
	assert.True(t, bytes.Equal(data[2*xzchunk.ChunkSize:], chunk.Bytes()))

	e, _ = newTestEnvironment(container)
	err := (&CatCmd{Input: "-", Chunk: 3, Output: "-"}).Run(e)
	assert.ErrorIs(t, err, xzchunk.ErrChunkOutOfRange)
}

func TestReadAllLimit(t *testing.T) {
	e, _ := newTestEnvironment(make([]byte, 11))
	e.globals.MaxInputSize = 10
	_, err := e.readAll("-")
	assert.ErrorIs(t, err, xzchunk.ErrMaxInputSizeExceeded)

	e, _ = newTestEnvironment(make([]byte, 10))
	e.globals.MaxInputSize = 10
	data, err := e.readAll("-")
	require.NoError(t, err)
	assert.Len(t, data, 10)

	e, _ = newTestEnvironment(nil)
	_, err = e.readAll(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
