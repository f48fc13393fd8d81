// Copyright IBM Corp. 2023, 2025
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"runtime/pprof"
	"sort"
	"time"

	xzchunk "github.com/hashicorp/go-xzchunk"
	"github.com/pkg/errors"
)

// BenchCmd measures the compression of files with different concurrency settings
type BenchCmd struct {
	Inputs     []string `arg:"" name:"inputs" help:"Files to compress."`
	Iterations int      `short:"i" default:"1" help:"Number of iterations per file and setting."`
	Jobs       []int    `short:"j" default:"1" help:"Concurrency settings to compare, e.g. 1,4."`
	Level      int      `short:"l" default:"6" help:"Compression level (0-9)."`
	Profile    bool     `short:"p" optional:"" help:"Write a heap profile after the run."`
	ProfileOut string   `short:"o" default:"mem.pprof" help:"Output file for the heap profile."`
}

// Run compresses every input with every concurrency setting and prints the
// timing statistics
func (c *BenchCmd) Run(e *environment) error {
	ctx, cancel := e.newContext()
	defer cancel()

	// read inputs once
	inputs := make(map[string][]byte, len(c.Inputs))
	for _, filename := range c.Inputs {
		data, err := e.readAll(filename)
		if err != nil {
			return errors.Wrapf(err, "reading %s", filename)
		}
		inputs[filename] = data
	}

	// map with slice of int to capture execution duration
	durations := make(map[string][]int64)
	ratios := make(map[string]float64)

	for i := 0; i < c.Iterations; i++ {
		for _, filename := range c.Inputs {
			data := inputs[filename]
			var reference []byte
			for _, jobs := range c.Jobs {
				out, duration, err := profileCompression(ctx, data, e.config(
					xzchunk.WithLevel(c.Level),
					xzchunk.WithConcurrency(jobs),
				))
				if err != nil {
					return errors.Wrapf(err, "compressing %s with %d jobs", filename, jobs)
				}

				// every concurrency setting must produce the same container
				if reference == nil {
					reference = out
				} else if !bytes.Equal(reference, out) {
					return fmt.Errorf("%s: output with %d jobs differs", filename, jobs)
				}

				key := fmt.Sprintf("%s-j%d", filename, jobs)
				durations[key] = append(durations[key], duration.Microseconds())
				if len(data) > 0 {
					ratios[key] = float64(len(out)) / float64(len(data))
				}
				e.logger.Debug("compression finished", "filename", filename, "jobs", jobs, "duration", duration)
			}
		}
	}

	// print average, min and max duration
	w := bufio.NewWriter(e.stdout)
	for _, key := range sortedKeys(durations) {
		d := durations[key]
		fmt.Fprintf(w, "%s iterations=%d avg=%dus min=%dus max=%dus std=%dus ratio=%.3f\n",
			key, len(d), avg(d), minOf(d), maxOf(d), int64(std(d)), ratios[key])
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "writing output failed")
	}

	// store memory profile
	if c.Profile {
		e.logger.Info(fmt.Sprintf("analyze with: go tool pprof -http=:8080 %s", c.ProfileOut))
		f, err := os.Create(c.ProfileOut)
		if err != nil {
			return errors.Wrap(err, "creating memory profile")
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errors.Wrap(err, "writing memory profile")
		}
	}
	return nil
}

// profileCompression compresses data and measures the time it took
func profileCompression(ctx context.Context, data []byte, cfg *xzchunk.Config) ([]byte, time.Duration, error) {
	start := time.Now()
	out, err := xzchunk.Compress(ctx, data, cfg)
	return out, time.Since(start), err
}

// sortedKeys returns the keys of the given map in sorted order
func sortedKeys(m map[string][]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// minOf returns the minimum value of the given slice
func minOf(slice []int64) int64 {
	min := int64(math.MaxInt64)
	for _, value := range slice {
		if value < min {
			min = value
		}
	}
	return min
}

// maxOf returns the maximum value of the given slice
func maxOf(slice []int64) int64 {
	max := int64(math.MinInt64)
	for _, value := range slice {
		if value > max {
			max = value
		}
	}
	return max
}

// avg returns the average of the given slice
func avg(slice []int64) int64 {
	if len(slice) == 0 {
		return 0
	}
	var sum int64
	for _, value := range slice {
		sum += value
	}
	return sum / int64(len(slice))
}

// std returns the standard deviation of the given slice
func std(slice []int64) float64 {
	if len(slice) == 0 {
		return 0
	}
	avg := avg(slice)
	var sum float64
	for _, value := range slice {
		sum += math.Pow(float64(value)-float64(avg), 2)
	}
	return math.Sqrt(sum / float64(len(slice)))
}
