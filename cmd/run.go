// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	xzchunk "github.com/hashicorp/go-xzchunk"
	"github.com/pkg/errors"
)

// Globals are the cli parameters shared by all commands
type Globals struct {
	MaxInputSize int64            `optional:"" default:"1073741824" help:"Maximum input size that allowed is (in bytes). (disable check: -1)"`
	MaxTime      int64            `optional:"" default:"300" help:"Maximum time that an operation should take (in seconds). (disable check: -1)"`
	Metrics      bool             `short:"M" optional:"" default:"false" help:"Print metrics to log after the operation."`
	Verbose      bool             `short:"v" optional:"" help:"Verbose logging."`
	Version      kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// environment is bound to the commands, it carries the parsed global flags
// and the process streams
type environment struct {
	globals *Globals
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
}

// CLI are the cli parameters for the xzchunk binary
type CLI struct {
	Globals

	Compress   CompressCmd   `cmd:"" help:"Compress a file into a chunked xz container."`
	Decompress DecompressCmd `cmd:"" help:"Decompress an xz container."`
	Transcode  TranscodeCmd  `cmd:"" help:"Recompress a gzip, zlib, bzip2, zstd, lz4, snappy, brotli or xz file into a chunked xz container."`
	Inspect    InspectCmd    `cmd:"" help:"Print the block layout of a container."`
	Cat        CatCmd        `cmd:"" help:"Decompress a single chunk of a container."`
	Bench      BenchCmd      `cmd:"" help:"Measure the compression of files with different concurrency settings."`
}

// CompressCmd compresses a file
type CompressCmd struct {
	Input  string `arg:"" name:"input" help:"Path to input. (\"-\" for STDIN)"`
	Output string `arg:"" name:"output" default:"-" help:"Path to output. (\"-\" for STDOUT)"`
	Level  int    `short:"l" default:"6" help:"Compression level (0-9)."`
	Jobs   int    `short:"j" default:"1" help:"Number of chunks compressed in parallel."`
	Verify bool   `optional:"" default:"true" negatable:"" help:"Decompress the container after compression and compare."`
}

// DecompressCmd decompresses a container
type DecompressCmd struct {
	Input  string `arg:"" name:"input" help:"Path to container. (\"-\" for STDIN)"`
	Output string `arg:"" name:"output" default:"-" help:"Path to output. (\"-\" for STDOUT)"`
}

// TranscodeCmd converts a compressed file into a container
type TranscodeCmd struct {
	Input  string `arg:"" name:"input" help:"Path to input. (\"-\" for STDIN)"`
	Output string `arg:"" name:"output" default:"-" help:"Path to output. (\"-\" for STDOUT)"`
	Format string `short:"f" optional:"" help:"Force the input format, e.g. br. (default: detect)"`
	Level  int    `short:"l" default:"6" help:"Compression level (0-9)."`
	Jobs   int    `short:"j" default:"1" help:"Number of chunks compressed in parallel."`
}

// InspectCmd prints the block layout of a container
type InspectCmd struct {
	Input string `arg:"" name:"input" help:"Path to container. (\"-\" for STDIN)"`
}

// CatCmd decompresses one chunk
type CatCmd struct {
	Input  string `arg:"" name:"input" help:"Path to container. (\"-\" for STDIN)"`
	Chunk  int    `arg:"" name:"chunk" help:"Number of the chunk, starting at 0."`
	Output string `arg:"" name:"output" default:"-" help:"Path to output. (\"-\" for STDOUT)"`
}

// Run the entrypoint into go-xzchunk as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("xzchunk"),
		kong.Description("A chunked xz compression utility"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	env := &environment{
		globals: &cli.Globals,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		})),
		stdin:  bufio.NewReader(os.Stdin),
		stdout: os.Stdout,
	}

	if err := kctx.Run(env); err != nil {
		env.logger.Error("operation failed", "command", kctx.Command(), "error", err)
		os.Exit(-1)
	}
}

// config returns the library configuration for the global flags
func (e *environment) config(opts ...xzchunk.ConfigOption) *xzchunk.Config {

	// setup metrics hook
	metricsToLog := func(ctx context.Context, td *xzchunk.TelemetryData) {
		if e.globals.Metrics {
			e.logger.Info("operation finished", "metrics", td)
		}
	}

	return xzchunk.NewConfig(append([]xzchunk.ConfigOption{
		xzchunk.WithLogger(e.logger),
		xzchunk.WithMaxInputSize(e.globals.MaxInputSize),
		xzchunk.WithTelemetryHook(metricsToLog),
	}, opts...)...)
}

// newContext returns a context that is canceled after the maximum operation time
func (e *environment) newContext() (context.Context, context.CancelFunc) {
	if e.globals.MaxTime > 0 {
		return context.WithTimeout(context.Background(), time.Second*time.Duration(e.globals.MaxTime))
	}
	return context.WithCancel(context.Background())
}

// open returns a reader for path, "-" is STDIN
func (e *environment) open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(e.stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input failed")
	}
	return f, nil
}

// readAll reads the complete input at path, respecting the maximum input size
func (e *environment) readAll(path string) ([]byte, error) {
	r, err := e.open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	limit := e.globals.MaxInputSize
	if limit >= 0 {
		limit++
	}
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return nil, errors.Wrap(err, "reading input failed")
	}
	if e.globals.MaxInputSize >= 0 && int64(len(data)) > e.globals.MaxInputSize {
		return nil, xzchunk.ErrMaxInputSizeExceeded
	}
	return data, nil
}

// write stores data at path, "-" is STDOUT
func (e *environment) write(path string, data []byte) error {
	if path == "-" {
		_, err := e.stdout.Write(data)
		return errors.Wrap(err, "writing output failed")
	}
	return errors.Wrap(os.WriteFile(path, data, 0640), "writing output failed")
}

// Run compresses the input
func (c *CompressCmd) Run(e *environment) error {
	ctx, cancel := e.newContext()
	defer cancel()

	data, err := e.readAll(c.Input)
	if err != nil {
		return err
	}
	out, err := xzchunk.Compress(ctx, data, e.config(
		xzchunk.WithLevel(c.Level),
		xzchunk.WithConcurrency(c.Jobs),
		xzchunk.WithVerify(c.Verify),
	))
	if err != nil {
		return err
	}
	return e.write(c.Output, out)
}

// Run decompresses the input
func (c *DecompressCmd) Run(e *environment) error {
	ctx, cancel := e.newContext()
	defer cancel()

	data, err := e.readAll(c.Input)
	if err != nil {
		return err
	}
	out, err := xzchunk.Decompress(ctx, data, e.config())
	if err != nil {
		return err
	}
	return e.write(c.Output, out)
}

// Run transcodes the input
func (c *TranscodeCmd) Run(e *environment) error {
	ctx, cancel := e.newContext()
	defer cancel()

	r, err := e.open(c.Input)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := xzchunk.Transcode(ctx, r, e.config(
		xzchunk.WithLevel(c.Level),
		xzchunk.WithConcurrency(c.Jobs),
		xzchunk.WithSourceFormat(c.Format),
	))
	if err != nil {
		return err
	}
	return e.write(c.Output, out)
}

// Run prints the index of the input
func (c *InspectCmd) Run(e *environment) error {
	data, err := e.readAll(c.Input)
	if err != nil {
		return err
	}
	idx, err := xzchunk.ReadIndex(data)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(e.stdout)
	fmt.Fprintf(w, "%6s %12s %12s %12s %12s\n", "block", "offset", "compressed", "uncompressed", "position")
	for i := 0; i < idx.Len(); i++ {
		b, err := idx.Block(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%6d %12d %12d %12d %12d\n", i, b.Offset, b.CompressedSize, b.UncompressedSize, b.UncompressedOffset)
	}
	fmt.Fprintf(w, "blocks=%d compressed=%d uncompressed=%d container=%d\n",
		idx.Len(), idx.CompressedSize(), idx.UncompressedSize(), len(data))
	return errors.Wrap(w.Flush(), "writing output failed")
}

// Run writes a single chunk of the input
func (c *CatCmd) Run(e *environment) error {
	ctx, cancel := e.newContext()
	defer cancel()

	data, err := e.readAll(c.Input)
	if err != nil {
		return err
	}
	r, err := xzchunk.NewReader(data, e.config())
	if err != nil {
		return err
	}
	chunk, err := r.Chunk(ctx, c.Chunk)
	if err != nil {
		return errors.Wrapf(err, "chunk %d", c.Chunk)
	}
	return e.write(c.Output, chunk)
}
