// Package coordinator implements the master lifecycle and the
// per-host multi-worker driver. Workers run as goroutines within the
// host driver's process rather than as separate forked OS processes:
// the coordination protocol is entirely file-mediated, the shared
// network directory is the only synchronization medium, so it is
// indifferent to whether a "worker" is a goroutine or a process, and
// goroutines are the idiomatic Go mapping for a per-worker unit of
// concurrency that only needed separate OS processes to route around
// a single-process GIL. True multi-host parallelism still uses a real
// separate process per host, launched by internal/launcher (SSH or
// daemon drop-file); see DESIGN.md for the full rationale.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smallfile-go/smallfile/internal/barrier"
	"github.com/smallfile-go/smallfile/internal/capability"
	"github.com/smallfile-go/smallfile/internal/params"
	"github.com/smallfile-go/smallfile/internal/pathgen"
	"github.com/smallfile-go/smallfile/internal/rtlog"
	"github.com/smallfile-go/smallfile/internal/snapshot"
	"github.com/smallfile-go/smallfile/internal/syncfile"
	"github.com/smallfile-go/smallfile/internal/workload"
)

// HostDriver runs every worker thread assigned to one host.
type HostDriver struct {
	Params     *params.Params
	HostID     string
	NetworkDir string
	TmpDir     string
	IsSlave    bool
}

func workerID(i int) string { return fmt.Sprintf("%02d", i) }

// Run creates subtrees and builds one engine per worker, opens the gate
// (or, as a remote slave, touches its host_ready file and waits for the
// gate), then runs the engines on worker goroutines; each engine touches
// its own thread_ready file and waits at the gate, including the
// post-gate jitter, before it starts. Run does not poll the workers'
// thread_ready files before opening the gate. It collects terminal
// states and, if acting as a remote slave, serializes the result
// snapshot back to the coordinator.
func (h *HostDriver) Run(ctx context.Context, startupTimeout, hostStartupTimeout time.Duration) (snapshot.HostResult, error) {
	paths := barrier.Paths{NetworkDir: h.NetworkDir}

	if !h.Params.IsSharedDir {
		for i := 0; i < h.Params.ThreadCount; i++ {
			gen := h.generatorFor(i)
			for _, d := range gen.AllDirs(h.Params.Iterations) {
				for _, top := range gen.TopDirs {
					if err := syncfile.EnsureDir(top + "/file_srcdir/" + d); err != nil {
						return snapshot.HostResult{}, err
					}
				}
			}
		}
	}

	engines := make([]*workload.Engine, h.Params.ThreadCount)
	for i := range engines {
		gen := h.generatorFor(i)
		caps := capability.Default(int64(i) + 1)
		engines[i] = workload.New(h.Params, gen, paths, h.TmpDir, caps)
	}

	if h.IsSlave {
		if err := syncfile.Touch(paths.HostReady(h.HostID)); err != nil {
			return snapshot.HostResult{}, err
		}
		if err := barrier.WaitGate(ctx, paths, hostStartupTimeout+10*time.Second); err != nil {
			return snapshot.HostResult{}, err
		}
	} else {
		if err := barrier.OpenGate(paths); err != nil {
			return snapshot.HostResult{}, err
		}
	}

	results := make([]snapshot.WorkerResult, len(engines))
	g, gctx := errgroup.WithContext(ctx)
	for i, eng := range engines {
		i, eng := i, eng
		g.Go(func() error {
			res, err := eng.Run(gctx, startupTimeout)
			results[i] = res
			if err != nil && err != workload.ErrAborted {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot.HostResult{}, err
	}

	if h.Params.MeasureRespTimes {
		for _, res := range results {
			if len(res.Samples) == 0 {
				continue
			}
			if _, err := rtlog.Write(h.NetworkDir, res.WorkerID, h.HostID, string(h.Params.Operation), res.StartTime, res.Samples); err != nil {
				return snapshot.HostResult{}, fmt.Errorf("coordinator: writing response-time log for worker %s: %w", res.WorkerID, err)
			}
		}
	}

	hostResult := snapshot.HostResult{HostID: h.HostID, Workers: results}
	if h.IsSlave {
		if err := snapshot.WriteHostResult(h.NetworkDir, &hostResult); err != nil {
			return snapshot.HostResult{}, err
		}
	}
	return hostResult, nil
}

// generatorFor builds the path generator for local worker index i,
// applying --permute-host-dirs by
// rotating which top_dir this host starts its round-robin from.
func (h *HostDriver) generatorFor(i int) *pathgen.Generator {
	tops := h.Params.TopDirs
	if h.Params.PermuteHostDirs && len(tops) > 1 {
		shift := hostShift(h.HostID, len(tops))
		tops = append(append([]string{}, tops[shift:]...), tops[:shift]...)
	}

	layout := pathgen.Sequential
	if h.Params.HashToDir {
		layout = pathgen.Hashed
	}
	return &pathgen.Generator{
		Layout:      layout,
		FilesPerDir: h.Params.FilesPerDir,
		DirsPerDir:  h.Params.DirsPerDir,
		Iterations:  h.Params.Iterations,
		TopDirs:     tops,
		Prefix:      h.Params.Prefix,
		Suffix:      h.Params.Suffix,
		HostID:      h.HostID,
		WorkerID:    workerID(i),
	}
}

func hostShift(hostID string, n int) int {
	sum := 0
	for _, c := range hostID {
		sum += int(c)
	}
	return sum % n
}
