package launcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallfile-go/smallfile/internal/syncfile"
)

func TestSSHAwaitsResultFile(t *testing.T) {
	dir := t.TempDir()
	s := NewSSH(dir, time.Second)
	s.runner = func(ctx context.Context, name string, args ...string) error { return nil }

	go func() {
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, syncfile.Touch(filepath.Join(dir, "hostA_result.pickle")))
	}()

	err := s.Launch(context.Background(), "hostA", "echo hi")
	assert.NoError(t, err)
}

func TestSSHPropagatesRunnerError(t *testing.T) {
	dir := t.TempDir()
	s := NewSSH(dir, 50*time.Millisecond)
	s.runner = func(ctx context.Context, name string, args ...string) error {
		return assertErr
	}
	err := s.Launch(context.Background(), "hostA", "echo hi")
	assert.Error(t, err)
}

var assertErr = os.ErrInvalid

func TestDaemonWritesDropFileAndWaitsForResult(t *testing.T) {
	dir := t.TempDir()
	d := &Daemon{NetworkDir: dir, ResultWait: time.Second}

	go func() {
		time.Sleep(10 * time.Millisecond)
		data, err := os.ReadFile(filepath.Join(dir, "hostB.smf_launch"))
		require.NoError(t, err)
		require.Contains(t, string(data), "run-it")
		require.NoError(t, syncfile.Touch(filepath.Join(dir, "hostB_result.pickle")))
	}()

	err := d.Launch(context.Background(), "hostB", "run-it")
	assert.NoError(t, err)
}

func TestDaemonSubstitutesTop(t *testing.T) {
	dir := t.TempDir()
	d := &Daemon{NetworkDir: dir, ResultWait: 50 * time.Millisecond, SubstituteTop: "/mnt/real"}

	go func() {
		require.NoError(t, syncfile.Touch(filepath.Join(dir, "hostC_result.pickle")))
	}()

	require.NoError(t, d.Launch(context.Background(), "hostC", "cmd --top={top}/data"))
	data, err := os.ReadFile(filepath.Join(dir, "hostC.smf_launch"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "/mnt/real/data")
}

func TestLaunchAllFansOutAcrossHosts(t *testing.T) {
	dir := t.TempDir()
	s := NewSSH(dir, time.Second)
	s.runner = func(ctx context.Context, name string, args ...string) error { return nil }

	hosts := []string{"h1", "h2", "h3"}
	go func() {
		time.Sleep(10 * time.Millisecond)
		for _, h := range hosts {
			require.NoError(t, syncfile.Touch(filepath.Join(dir, h+"_result.pickle")))
		}
	}()

	err := LaunchAll(context.Background(), s, hosts, "echo hi")
	assert.NoError(t, err)
}
