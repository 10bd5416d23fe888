package netcheck

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWritableOnTempDir(t *testing.T) {
	dir := t.TempDir()
	r := CheckWritable(dir)
	assert.Equal(t, StatusOK, r.Status)
}

func TestCheckWritableCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "net")
	r := CheckWritable(dir)
	assert.Equal(t, StatusOK, r.Status)
}

func TestCheckClockSane(t *testing.T) {
	r := CheckClock()
	assert.Equal(t, StatusOK, r.Status)
}

func TestCheckNetworkFSLocalDirIsOK(t *testing.T) {
	dir := t.TempDir()
	r := CheckNetworkFS(dir)
	assert.Equal(t, StatusOK, r.Status)
}

func TestOverallWorstWins(t *testing.T) {
	ok := CheckResult{Status: StatusOK}
	warn := CheckResult{Status: StatusWarn}
	fail := CheckResult{Status: StatusFail}

	assert.Equal(t, StatusOK, Overall([]CheckResult{ok}))
	assert.Equal(t, StatusWarn, Overall([]CheckResult{ok, warn}))
	assert.Equal(t, StatusFail, Overall([]CheckResult{ok, warn, fail}))
}

func TestRunAllReturnsThreeChecks(t *testing.T) {
	dir := t.TempDir()
	results := RunAll(dir)
	require.Len(t, results, 3)
	names := []string{results[0].Name, results[1].Name, results[2].Name}
	assert.Equal(t, []string{"writable", "network_fs", "clock"}, names)
}
