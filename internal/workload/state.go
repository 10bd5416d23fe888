// Package workload implements the per-worker benchmark engine: state,
// the do-another-file contract, the 20-operation dispatch table, and
// the worker-side state machine (waiting-at-gate -> running ->
// stonewalled -> finished/aborted). Each Engine runs on one goroutine
// (the host driver runs one per worker in the same process) and is
// synchronous: every I/O call blocks.
package workload

import (
	"time"

	"github.com/smallfile-go/smallfile/internal/barrier"
	"github.com/smallfile-go/smallfile/internal/buffer"
	"github.com/smallfile-go/smallfile/internal/capability"
	"github.com/smallfile-go/smallfile/internal/histogram"
	"github.com/smallfile-go/smallfile/internal/params"
	"github.com/smallfile-go/smallfile/internal/pathgen"
	"github.com/smallfile-go/smallfile/internal/snapshot"
)

// Status is the worker's terminal result code. OK
// means no error; any other value carries an errno-like string.
type Status string

const (
	StatusOK Status = "OK"
)

// State is the mutable counters a worker's invocation tracks across the
// run. FileDirs is precomputed once before
// any file op begins, per the data-model invariant.
type State struct {
	FileNum      int
	RecordsDone  int64
	FilenumFinal int
	RqFinal      int64

	StartTime time.Time
	EndTime   time.Time

	Status  Status
	Aborted bool

	FileDirs []string

	Samples []snapshot.LatencySample
}

// TestEnded reports whether end_test has already run iff end_time > start_time").
func (s *State) TestEnded() bool {
	return s.EndTime.After(s.StartTime)
}

// Engine drives one worker's share of the benchmark. Every external
// dependency — clock, RNG, file layout, sentinel paths — arrives through
// the constructor rather than a package global, explicit
// dependency-injection design note.
type Engine struct {
	Params *params.Params
	Gen    *pathgen.Generator
	Paths  barrier.Paths
	TmpDir string
	Caps   *capability.Capabilities

	largeBuf []byte
	hist     *histogram.Histogram

	State State
}

// New constructs an Engine for one worker. gen must already carry this
// worker's HostID/WorkerID.
func New(p *params.Params, gen *pathgen.Generator, paths barrier.Paths, tmpDir string, caps *capability.Capabilities) *Engine {
	mode := buffer.Compressible
	if p.Incompressible {
		mode = buffer.Incompressible
	}
	seed := buffer.SeedFor(gen.WorkerID, gen.HostID)

	e := &Engine{
		Params:   p,
		Gen:      gen,
		Paths:    paths,
		TmpDir:   tmpDir,
		Caps:     caps,
		largeBuf: buffer.New(mode, seed),
	}
	if p.MeasureRespTimes {
		e.hist = histogram.New(histogram.Options{
			BucketBits:       p.BucketBits,
			BucketGroups:     p.BucketGroups,
			SmallestInterval: time.Duration(p.SmallestIntervalU * float64(time.Microsecond)),
		})
	}
	e.State.Status = StatusOK
	return e
}

// Histogram exposes the per-worker latency histogram, nil unless
// MeasureRespTimes is set.
func (e *Engine) Histogram() *histogram.Histogram { return e.hist }

// PrecomputeFileDirs fills State.FileDirs for every file index this
// worker will touch, satisfying the invariant that the directory tree is
// fully known before any file op begins.
func (e *Engine) PrecomputeFileDirs() {
	e.State.FileDirs = make([]string, e.Params.Iterations)
	for i := 0; i < e.Params.Iterations; i++ {
		e.State.FileDirs[i] = e.Gen.DirPath(i)
	}
}

// effectiveRecordSizeKB picks the record size used for a read/write
// call: the explicit record size if set, else the total file size,
// else a single kilobyte, clamped to the shared buffer's capacity so
// buffer.Slice never gets asked for more than it holds.
func (e *Engine) effectiveRecordSizeKB() int {
	rszkb := e.Params.RecordSizeKB
	if rszkb <= 0 {
		rszkb = e.Params.TotalSizeKB
	}
	if rszkb <= 0 {
		rszkb = 1
	}
	if maxKB := buffer.LargeBufferSize / 1024; rszkb > maxKB {
		rszkb = maxKB
	}
	return rszkb
}

// fileSizeKB draws a per-file size under the configured size
// distribution: the fixed total size, or an exponential draw capped
// at eight times the mean.
func (e *Engine) fileSizeKB() int {
	if e.Params.SizeDistribution == params.DistributionFixed || e.Params.TotalSizeKB <= 0 {
		return e.Params.TotalSizeKB
	}
	mean := 1.0 / float64(e.Params.TotalSizeKB)
	v := int(e.Caps.RNG.ExpFloat64() / mean)
	cap8x := 8 * e.Params.TotalSizeKB
	if v < 1 {
		v = 1
	}
	if v > cap8x {
		v = cap8x
	}
	return v
}

// result builds the terminal WorkerResult snapshot.
func (e *Engine) result() snapshot.WorkerResult {
	return snapshot.WorkerResult{
		WorkerID:     e.Gen.WorkerID,
		HostID:       e.Gen.HostID,
		FilesDone:    int64(e.State.FilenumFinal),
		RecordsDone:  e.State.RqFinal,
		StartTime:    e.State.StartTime,
		EndTime:      e.State.EndTime,
		ElapsedTime:  e.State.EndTime.Sub(e.State.StartTime),
		Status:       string(e.State.Status),
		Aborted:      e.State.Aborted,
		RecordSizeKB: e.effectiveRecordSizeKB(),
		Samples:      e.State.Samples,
	}
}
