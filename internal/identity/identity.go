// Package identity describes the current process for logging and for
// the coordinator.pid liveness record (internal/coordinator writes one
// per run so a later invocation against the same network directory can
// tell a crashed run from one still in progress, via internal/stale).
package identity

import (
	"fmt"
	"hash/fnv"
	"os"
	"sync"

	"github.com/smallfile-go/smallfile/internal/stale"
)

// EnvRunTag overrides the auto-generated run tag, e.g. for CI log
// correlation across processes that don't share a parent.
const EnvRunTag = "SMALLFILE_RUN_TAG"

// Process identifies the running binary for logging and liveness checks.
type Process struct {
	Host    string
	PID     int
	StartNS int64
	RunTag  string
}

// Current returns the identity of the current process.
func Current() Process {
	startNS, _ := stale.GetProcessStartTime(os.Getpid())
	return Process{
		Host:    getHost(),
		PID:     os.Getpid(),
		StartNS: startNS,
		RunTag:  getRunTag(),
	}
}

// Record converts the process identity into the minimal liveness record
// internal/stale.Check compares against.
func (p Process) Record() stale.ProcessRecord {
	return stale.ProcessRecord{Host: p.Host, PID: p.PID, PIDStartNS: p.StartNS}
}

func getHost() string {
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}

var (
	autoRunTag     string
	autoRunTagOnce sync.Once
)

func getRunTag() string {
	if tag := os.Getenv(EnvRunTag); tag != "" {
		return tag
	}
	autoRunTagOnce.Do(func() {
		autoRunTag = generateRunTag()
	})
	return autoRunTag
}

// generateRunTag produces a short, deterministic tag from the current
// process's PID and start time, so repeated log lines from the same
// process instance (but not a PID-recycled successor) correlate.
func generateRunTag() string {
	pid := os.Getpid()
	startNS, err := stale.GetProcessStartTime(pid)
	input := fmt.Sprintf("%d-%d", pid, startNS)
	if err != nil {
		input = fmt.Sprintf("%d", pid)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(input))
	return fmt.Sprintf("run-%04x", h.Sum32()&0xFFFF)
}
