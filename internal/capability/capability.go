// Package capability defines the small capability object the workload
// engine receives by dependency injection instead of reaching for
// global state or package-level variables. It bundles platform
// probing (xattr support), the clock, and the RNG source a worker
// needs, so tests can substitute fakes without touching any
// package-level variable.
package capability

import (
	"math/rand"
	"time"

	"github.com/smallfile-go/smallfile/internal/xattrs"
)

// Clock abstracts wall-clock reads so tests can inject a fake one.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Sleeper abstracts blocking sleeps so tests can skip the
// pause_between_files_us delay and the barrier poll/jitter waits.
type Sleeper interface {
	Sleep(d time.Duration)
}

type systemSleeper struct{}

func (systemSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Capabilities is the object injected into the workload engine. Only the
// engine receives it; the barrier and coordinator packages call time and
// math/rand directly.
type Capabilities struct {
	Clock      Clock
	Sleeper    Sleeper
	RNG        *rand.Rand
	XattrReady bool
}

// Default builds the production Capabilities: real clock, real sleeper,
// a seeded RNG, and xattr support probed from the current build's
// platform.
func Default(seed int64) *Capabilities {
	return &Capabilities{
		Clock:      systemClock{},
		Sleeper:    systemSleeper{},
		RNG:        rand.New(rand.NewSource(seed)),
		XattrReady: xattrs.Supported,
	}
}

// JitterBetween returns a random duration uniformly distributed in
// [lo, lo+span). The barrier package draws its own post-gate jitter and
// poll interval from math/rand and does not call it.
func (c *Capabilities) JitterBetween(lo, span time.Duration) time.Duration {
	if span <= 0 {
		return lo
	}
	return lo + time.Duration(c.RNG.Int63n(int64(span)))
}
