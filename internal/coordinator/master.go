package coordinator

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/smallfile-go/smallfile/internal/aggregate"
	"github.com/smallfile-go/smallfile/internal/audit"
	"github.com/smallfile-go/smallfile/internal/barrier"
	"github.com/smallfile-go/smallfile/internal/identity"
	"github.com/smallfile-go/smallfile/internal/launcher"
	"github.com/smallfile-go/smallfile/internal/logging"
	"github.com/smallfile-go/smallfile/internal/netcheck"
	"github.com/smallfile-go/smallfile/internal/params"
	"github.com/smallfile-go/smallfile/internal/snapshot"
	"github.com/smallfile-go/smallfile/internal/stale"
	"github.com/smallfile-go/smallfile/internal/syncfile"
)

const coordinatorPIDFile = "coordinator.pid"

// Master drives the full run lifecycle: one process, local or the
// entry point for a multi-host run. A run correlation id tags every
// log line so a multi-host run's output can be grepped back together.
type Master struct {
	Params *params.Params
	Log    *logging.Logger

	RunID string
}

// NewMaster constructs a Master with a fresh run id.
func NewMaster(p *params.Params, log *logging.Logger) *Master {
	return &Master{Params: p, Log: log, RunID: uuid.NewString()}
}

// Timeouts bounds how long the coordinator waits for workers to reach
// the starting gate, scaled up for multi-host runs.
type Timeouts struct {
	StartupTimeout     time.Duration
	HostStartupTimeout time.Duration
}

// ComputeTimeouts derives startup timeouts from the expected directory
// creation rate: more directories to create before the gate opens
// means more time to allow before declaring a worker unresponsive.
func ComputeTimeouts(p *params.Params, hostCount int) Timeouts {
	if hostCount == 0 {
		hostCount = 1
	}
	totalDirs := float64(p.Iterations) * float64(p.ThreadCount) * float64(hostCount) / float64(p.FilesPerDir)
	minDirsPerSec := p.MinDirectoriesPerSec
	if minDirsPerSec <= 0 {
		minDirsPerSec = 50
	}

	startup := 2.0 +
		math.Max(1, float64(p.FilesPerDir)/300000) +
		float64(p.ThreadCount)/30 +
		(2*totalDirs)/minDirsPerSec

	hostStartup := startup
	if hostCount > 1 {
		hostStartup += float64(hostCount) / 2
	}

	return Timeouts{
		StartupTimeout:     time.Duration(startup * float64(time.Second)),
		HostStartupTimeout: time.Duration(hostStartup * float64(time.Second)),
	}
}

// Run drives pre-flight checks, claims the network directory, writes
// the parameter snapshot, opens the starting gate, waits for every
// worker to finish, and returns the cluster-wide totals plus any
// completion-gate warning.
func (m *Master) Run(ctx context.Context) (aggregate.Totals, string, error) {
	if err := m.Params.Validate(); err != nil {
		return aggregate.Totals{}, "", fmt.Errorf("coordinator: %w", err)
	}

	networkDir := m.Params.ResolvedNetworkDir()
	auditor := audit.NewWriter(networkDir)
	for _, r := range netcheck.RunAll(networkDir) {
		if r.Status == netcheck.StatusFail {
			return aggregate.Totals{}, "", fmt.Errorf("coordinator: pre-flight check %q failed: %s", r.Name, r.Message)
		}
		if r.Status == netcheck.StatusWarn {
			m.Log.Warnf("pre-flight check %s: %s", r.Name, r.Message)
			auditor.Emit(audit.Event{Event: audit.EventPreflight, RunID: m.RunID, Extra: map[string]any{"check": r.Name, "message": r.Message}})
		}
	}

	if err := syncfile.EnsureDir(networkDir); err != nil {
		return aggregate.Totals{}, "", err
	}

	self := identity.Current()
	if err := m.claimNetworkDir(networkDir, self); err != nil {
		return aggregate.Totals{}, "", err
	}
	defer func() { _ = syncfile.EnsureRemoved(filepath.Join(networkDir, coordinatorPIDFile)) }()

	m.clearControlFiles(networkDir)

	auditor.Emit(audit.Event{Event: audit.EventRunStart, RunID: m.RunID, Host: self.Host, PID: self.PID})

	if err := snapshot.WriteParams(networkDir, m.Params); err != nil {
		return aggregate.Totals{}, "", fmt.Errorf("coordinator: writing param snapshot: %w", err)
	}

	timeouts := ComputeTimeouts(m.Params, len(m.Params.HostSet))
	m.Log.Infof("run %s: startup_timeout=%s host_startup_timeout=%s", m.RunID, timeouts.StartupTimeout, timeouts.HostStartupTimeout)

	paths := barrier.Paths{NetworkDir: networkDir}

	if len(m.Params.HostSet) == 0 {
		driver := &HostDriver{
			Params:     m.Params,
			HostID:     "localhost",
			NetworkDir: networkDir,
			TmpDir:     networkDir,
			IsSlave:    false,
		}
		result, err := driver.Run(ctx, timeouts.StartupTimeout, timeouts.HostStartupTimeout)
		if err != nil {
			return aggregate.Totals{}, "", err
		}
		return m.finish(auditor, []snapshot.HostResult{result})
	}

	remoteCmd := fmt.Sprintf("smallfile host --network-dir=%s --as-host={host}", networkDir)
	strat := m.buildStrategy(networkDir)

	launchDone := make(chan struct{})
	var launchErr error
	go func() {
		launchErr = launcher.LaunchAll(ctx, strat, m.Params.HostSet, remoteCmd)
		close(launchDone)
	}()

	if err := m.waitAllHostsReady(ctx, paths, timeouts.HostStartupTimeout, launchDone, &launchErr); err != nil {
		_ = barrier.OpenAbort(paths)
		return aggregate.Totals{}, "", err
	}

	if err := barrier.OpenGate(paths); err != nil {
		return aggregate.Totals{}, "", err
	}
	auditor.Emit(audit.Event{Event: audit.EventGateOpen, RunID: m.RunID})

	<-launchDone
	if launchErr != nil {
		return aggregate.Totals{}, "", fmt.Errorf("coordinator: launcher: %w", launchErr)
	}

	time.Sleep(1200 * time.Millisecond) // grace period for network-filesystem coherency
	hostResults := make([]snapshot.HostResult, 0, len(m.Params.HostSet))
	for _, host := range m.Params.HostSet {
		r, err := snapshot.ReadHostResult(networkDir, host)
		if err != nil {
			return aggregate.Totals{}, "", fmt.Errorf("coordinator: reading result for host %s: %w", host, err)
		}
		hostResults = append(hostResults, *r)
	}
	return m.finish(auditor, hostResults)
}

// claimNetworkDir refuses to start a run against a network directory a
// live coordinator process is still using, and otherwise records self
// as the new claimant. A missing or unreadable pid file is treated as
// unclaimed.
func (m *Master) claimNetworkDir(networkDir string, self identity.Process) error {
	pidPath := filepath.Join(networkDir, coordinatorPIDFile)

	var rec stale.ProcessRecord
	if err := syncfile.ReadJSON(pidPath, &rec); err == nil {
		if res := stale.Check(rec); !res.Stale {
			return fmt.Errorf("coordinator: network dir %s is already claimed by a live coordinator (host=%s pid=%d)", networkDir, rec.Host, rec.PID)
		}
	}

	return syncfile.WriteJSON(pidPath, self.Record())
}

func (m *Master) buildStrategy(networkDir string) launcher.Strategy {
	if m.Params.LaunchByDaemon {
		return &launcher.Daemon{NetworkDir: networkDir, ResultWait: 10 * time.Minute}
	}
	return launcher.NewSSH(networkDir, 10*time.Minute)
}

// waitAllHostsReady polls for every host's ready sentinel, also watching
// launchDone so a launcher failure aborts immediately instead of being
// discovered only once the full startup timeout elapses. launchDone is
// closed exactly once by the launcher goroutine, with launchErr set
// before the close; reading launchErr after observing the close is safe
// under Go's happens-before rules for channel close.
func (m *Master) waitAllHostsReady(ctx context.Context, paths barrier.Paths, timeout time.Duration, launchDone <-chan struct{}, launchErr *error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pending := make(map[string]bool, len(m.Params.HostSet))
	for _, h := range m.Params.HostSet {
		pending[h] = true
	}
	for len(pending) > 0 {
		for h := range pending {
			if syncfile.Exists(paths.HostReady(h)) {
				delete(pending, h)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("coordinator: timed out waiting for hosts to report ready: %v", keys(pending))
		case <-launchDone:
			if *launchErr != nil {
				return fmt.Errorf("coordinator: launcher: %w", *launchErr)
			}
			launchDone = nil // already observed; don't keep firing on the closed channel
		case <-time.After(300 * time.Millisecond):
		}
	}
	return nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// clearControlFiles idempotently removes every control sentinel before
// a run starts, so a prior run's leftover gate/stonewall/abort/ready
// files never leak into this one.
func (m *Master) clearControlFiles(networkDir string) {
	paths := barrier.Paths{NetworkDir: networkDir}
	_ = syncfile.EnsureRemoved(paths.Gate())
	_ = syncfile.EnsureRemoved(paths.Stonewall())
	_ = syncfile.EnsureRemoved(paths.Abort())
	for _, h := range m.Params.HostSet {
		_ = syncfile.EnsureRemoved(paths.HostReady(h))
	}
}

func (m *Master) finish(auditor *audit.Writer, hostResults []snapshot.HostResult) (aggregate.Totals, string, error) {
	hostTotals := make([]aggregate.Totals, len(hostResults))
	for i, hr := range hostResults {
		hostTotals[i] = aggregate.Host(hr.Workers)
		auditor.Emit(audit.Event{Event: audit.EventHostResult, RunID: m.RunID, Host: hr.HostID})
	}
	cluster := aggregate.Cluster(hostTotals)

	totalWorkers := 0
	for _, hr := range hostResults {
		totalWorkers += len(hr.Workers)
	}
	_, ok, warning := aggregate.CompletionWarning(cluster.Files, m.Params.Iterations, totalWorkers)
	if !ok {
		m.Log.Warnf("%s", warning)
	}
	auditor.Emit(audit.Event{Event: audit.EventRunComplete, RunID: m.RunID})
	return cluster, warning, nil
}
