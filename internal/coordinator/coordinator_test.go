package coordinator

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallfile-go/smallfile/internal/barrier"
	"github.com/smallfile-go/smallfile/internal/logging"
	"github.com/smallfile-go/smallfile/internal/params"
	"github.com/smallfile-go/smallfile/internal/syncfile"
)

func TestComputeTimeoutsSingleHost(t *testing.T) {
	p := params.Defaults()
	p.ThreadCount = 4
	p.Iterations = 1000
	p.FilesPerDir = 100
	p.MinDirectoriesPerSec = 50

	to := ComputeTimeouts(&p, 0)
	assert.Greater(t, to.StartupTimeout, time.Duration(0))
	assert.Equal(t, to.StartupTimeout, to.HostStartupTimeout, "single host adds no extra margin")
}

func TestComputeTimeoutsMultiHostAddsMargin(t *testing.T) {
	p := params.Defaults()
	p.ThreadCount = 4
	single := ComputeTimeouts(&p, 1)
	multi := ComputeTimeouts(&p, 4)
	assert.Greater(t, multi.HostStartupTimeout, single.HostStartupTimeout)
}

func TestLocalRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	p := params.Defaults()
	p.Operation = params.OpCreate
	p.Iterations = 10
	p.FilesPerDir = 5
	p.DirsPerDir = 2
	p.ThreadCount = 2
	p.TotalSizeKB = 4
	p.Stonewall = false
	p.TopDirs = []string{dir}

	log := logging.New(logging.Options{Writer: io.Discard})
	m := NewMaster(&p, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	totals, warning, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), totals.Files)
	assert.Empty(t, warning)
}

func TestLocalRunRejectsInvalidParams(t *testing.T) {
	p := params.Defaults()
	p.Iterations = -1
	log := logging.New(logging.Options{Writer: io.Discard})
	m := NewMaster(&p, log)

	_, _, err := m.Run(context.Background())
	assert.Error(t, err)
}

func TestWaitAllHostsReadyAbortsOnLaunchFailure(t *testing.T) {
	dir := t.TempDir()
	p := params.Defaults()
	p.HostSet = []string{"host1", "host2"}
	log := logging.New(logging.Options{Writer: io.Discard})
	m := NewMaster(&p, log)

	paths := barrier.Paths{NetworkDir: dir}
	launchDone := make(chan struct{})
	launchErr := errors.New("ssh: connection refused")
	close(launchDone)

	start := time.Now()
	err := m.waitAllHostsReady(context.Background(), paths, 30*time.Second, launchDone, &launchErr)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
	assert.Less(t, elapsed, 5*time.Second, "a launcher failure must abort immediately, not wait out the full startup timeout")
}

func TestWaitAllHostsReadySucceedsWhenHostsBecomeReady(t *testing.T) {
	dir := t.TempDir()
	p := params.Defaults()
	p.HostSet = []string{"host1"}
	log := logging.New(logging.Options{Writer: io.Discard})
	m := NewMaster(&p, log)

	paths := barrier.Paths{NetworkDir: dir}
	launchDone := make(chan struct{})
	var launchErr error

	require.NoError(t, syncfile.Touch(paths.HostReady("host1")))

	err := m.waitAllHostsReady(context.Background(), paths, 5*time.Second, launchDone, &launchErr)
	require.NoError(t, err)
}

func TestHostShiftDeterministic(t *testing.T) {
	a := hostShift("hostA", 3)
	b := hostShift("hostA", 3)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0)
	assert.Less(t, a, 3)
}
