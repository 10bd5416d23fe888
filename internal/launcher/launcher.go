// Package launcher implements the two interchangeable strategies for
// starting a remote worker host: SSH and the daemon
// drop-file protocol. Both satisfy the same Strategy interface so the
// coordinator can fan out across hosts with golang.org/x/sync/errgroup,
// one goroutine per host, and treat the two transports identically.
package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smallfile-go/smallfile/internal/barrier"
	"github.com/smallfile-go/smallfile/internal/syncfile"
)

// Strategy launches a remote worker process on host and blocks until it
// reports back (its result pickle appears) or ctx is canceled.
type Strategy interface {
	Launch(ctx context.Context, host string, remoteCmd string) error
}

// SSH runs remoteCmd over `ssh -x` and waits for the result file to
// appear in networkDir.
type SSH struct {
	NetworkDir string
	ResultWait time.Duration
	runner     func(ctx context.Context, name string, args ...string) error
}

// NewSSH builds an SSH launcher using the real os/exec runner.
func NewSSH(networkDir string, resultWait time.Duration) *SSH {
	return &SSH{
		NetworkDir: networkDir,
		ResultWait: resultWait,
		runner: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			return cmd.Run()
		},
	}
}

func (s *SSH) Launch(ctx context.Context, host, remoteCmd string) error {
	args := []string{"-x", "-o", "StrictHostKeyChecking=no", host, remoteCmd}
	if err := s.runner(ctx, "ssh", args...); err != nil {
		return fmt.Errorf("launcher: ssh %s: %w", host, err)
	}
	return s.awaitResult(ctx, host)
}

func (s *SSH) awaitResult(ctx context.Context, host string) error {
	resultPath := s.NetworkDir + "/" + host + "_result.pickle"
	paths := barrier.Paths{NetworkDir: s.NetworkDir}
	return barrier.WaitFor(ctx, resultPath, paths.Abort(), s.ResultWait)
}

// Daemon implements the drop-file launch strategy: the command is written atomically to
// {network_dir}/{host}.smf_launch; a long-running daemon on the remote
// host polls for it, consumes it, and unlinks it. This strategy avoids
// SSH entirely, at the cost of requiring that daemon to already be
// running — useful in environments where interactive SSH is unavailable.
type Daemon struct {
	NetworkDir     string
	SubstituteTop  string // optional --substitute-top value; Launch replaces {top} in the command with it before writing the drop-file
	ResultWait     time.Duration
	ConsumeTimeout time.Duration
}

func (d *Daemon) launchFilePath(host string) string {
	return d.NetworkDir + "/" + host + ".smf_launch"
}

func (d *Daemon) Launch(ctx context.Context, host, remoteCmd string) error {
	cmd := remoteCmd
	if d.SubstituteTop != "" {
		cmd = strings.ReplaceAll(cmd, "{top}", d.SubstituteTop)
	}
	dropPath := d.launchFilePath(host)
	if err := syncfile.WriteBytes(dropPath, []byte(cmd+"\n")); err != nil {
		return fmt.Errorf("launcher: writing drop-file for %s: %w", host, err)
	}

	paths := barrier.Paths{NetworkDir: d.NetworkDir}
	if err := barrier.WaitFor(ctx, d.resultPath(host), paths.Abort(), d.ResultWait); err != nil {
		return fmt.Errorf("launcher: awaiting result from %s: %w", host, err)
	}
	return nil
}

func (d *Daemon) resultPath(host string) string {
	return d.NetworkDir + "/" + host + "_result.pickle"
}

// LaunchAll fans out Launch across every host concurrently using
// errgroup, one goroutine per host, joining all of them before
// returning. The first non-nil error cancels the group context for
// the remaining launches.
func LaunchAll(ctx context.Context, strat Strategy, hosts []string, remoteCmd string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range hosts {
		host := h
		g.Go(func() error {
			return strat.Launch(gctx, host, remoteCmd)
		})
	}
	return g.Wait()
}
