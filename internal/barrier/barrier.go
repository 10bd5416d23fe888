// Package barrier implements the file-based coordination primitives:
// the starting-gate, the stonewall cutoff, the abort channel, and the
// host/thread readiness sentinels. There are no locks anywhere in this
// package: every primitive is a single atomically-created file, and
// "did it happen" is answered purely by stat-ing a path, the same way
// internal/stale trusts /proc over any cached flag. A fsnotify watch
// is layered on top purely to shorten the average wait; the documented
// poll ceiling is the correctness boundary and is never bypassed.
package barrier

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/smallfile-go/smallfile/internal/syncfile"
)

const (
	startingGateName = "starting_gate.tmp"
	stonewallName    = "stonewall.tmp"
	abortName        = "abort.tmp"

	pollMin = 300 * time.Millisecond
	pollMax = 500 * time.Millisecond
)

// ErrTimeout is returned when a wait deadline elapses before the awaited
// sentinel appeared.
var ErrTimeout = errors.New("barrier: timed out waiting for sentinel")

// ErrAborted is returned by WaitFor/WaitGate when the abort sentinel
// appears before the awaited condition is satisfied.
var ErrAborted = errors.New("barrier: abort sentinel observed")

// Paths resolves the well-known sentinel paths under a network directory.
type Paths struct {
	NetworkDir string
}

func (p Paths) Gate() string      { return filepath.Join(p.NetworkDir, startingGateName) }
func (p Paths) Stonewall() string { return filepath.Join(p.NetworkDir, stonewallName) }
func (p Paths) Abort() string     { return filepath.Join(p.NetworkDir, abortName) }
func (p Paths) HostReady(host string) string {
	return filepath.Join(p.NetworkDir, "host_ready."+host+".tmp")
}
func (p Paths) ThreadReady(tmpDir, workerID string) string {
	return filepath.Join(tmpDir, "thread_ready."+workerID+".tmp")
}

// OpenGate atomically creates the starting-gate sentinel, releasing every
// worker waiting on WaitGate. Idempotent: ErrAlreadyExists from a
// concurrent opener is swallowed since the gate only needs to exist once.
func OpenGate(paths Paths) error {
	err := syncfile.Touch(paths.Gate())
	if errors.Is(err, syncfile.ErrAlreadyExists) {
		return nil
	}
	return err
}

// OpenStonewall atomically creates the stonewall sentinel. EEXIST and a
// network-filesystem EINVAL anomaly on create-over-existing are both
// tolerated: either means the cutoff is already in effect, which is all
// the caller needs.
func OpenStonewall(paths Paths) error {
	err := syncfile.Touch(paths.Stonewall())
	if errors.Is(err, syncfile.ErrAlreadyExists) {
		return nil
	}
	if errors.Is(err, syscall.EINVAL) {
		return nil
	}
	return err
}

// OpenAbort atomically creates the abort sentinel, signaling every worker
// to stop at its next do-another-file check.
func OpenAbort(paths Paths) error {
	err := syncfile.Touch(paths.Abort())
	if errors.Is(err, syncfile.ErrAlreadyExists) {
		return nil
	}
	return err
}

func Stonewalled(paths Paths) bool { return syncfile.Exists(paths.Stonewall()) }
func Aborted(paths Paths) bool     { return syncfile.Exists(paths.Abort()) }
func GateOpen(paths Paths) bool    { return syncfile.Exists(paths.Gate()) }

// waiter polls for a path's existence, using fsnotify to wake up early
// when available and falling back to the documented 0.3-0.5s poll
// interval, which also bounds worst-case latency when fsnotify is
// unavailable (e.g. on NFS).
type waiter struct {
	watcher *fsnotify.Watcher
}

func newWaiter(watchDir string) *waiter {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return &waiter{}
	}
	if err := w.Add(watchDir); err != nil {
		_ = w.Close()
		return &waiter{}
	}
	return &waiter{watcher: w}
}

func (w *waiter) close() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *waiter) sleep(ctx context.Context) {
	interval := pollMin + time.Duration(rand.Int63n(int64(pollMax-pollMin)))
	if w.watcher == nil {
		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
		return
	}
	select {
	case <-ctx.Done():
	case <-w.watcher.Events:
	case <-w.watcher.Errors:
	case <-time.After(interval):
	}
}

// WaitFor blocks until path exists, the abort sentinel appears (if abort
// is non-empty), ctx is canceled, or deadline elapses, whichever is
// first. A zero deadline means "wait forever" (bounded only by ctx).
func WaitFor(ctx context.Context, path string, abort string, deadline time.Duration) error {
	var cancel context.CancelFunc
	if deadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	w := newWaiter(filepath.Dir(path))
	defer w.close()

	for {
		if syncfile.Exists(path) {
			return nil
		}
		if abort != "" && syncfile.Exists(abort) {
			return ErrAborted
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		default:
		}
		w.sleep(ctx)
	}
}

// WaitGate blocks until the starting gate opens or the abort sentinel
// appears. On success it sleeps a post-gate jitter of 2 + uniform(0,1)
// seconds before returning, giving other hosts time to observe the
// same gate file.
func WaitGate(ctx context.Context, paths Paths, deadline time.Duration) error {
	if err := WaitFor(ctx, paths.Gate(), paths.Abort(), deadline); err != nil {
		return err
	}
	jitter := 2*time.Second + time.Duration(rand.Int63n(int64(time.Second)))
	select {
	case <-ctx.Done():
	case <-time.After(jitter):
	}
	return nil
}
