package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallfile-go/smallfile/internal/params"
)

func TestWriteReadParamsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := params.Defaults()
	p.Iterations = 777

	require.NoError(t, WriteParams(dir, &p))
	got, err := ReadParams(dir)
	require.NoError(t, err)
	assert.Equal(t, 777, got.Iterations)
	assert.Equal(t, p.Operation, got.Operation)
}

func TestWriteReadHostResultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := &HostResult{
		HostID: "hostA",
		Workers: []WorkerResult{
			{WorkerID: "00", HostID: "hostA", FilesDone: 10, Status: "OK", ElapsedTime: 2 * time.Second},
			{WorkerID: "01", HostID: "hostA", FilesDone: 8, Status: "OK", ElapsedTime: 3 * time.Second},
		},
	}
	require.NoError(t, WriteHostResult(dir, r))

	got, err := ReadHostResult(dir, "hostA")
	require.NoError(t, err)
	require.Len(t, got.Workers, 2)
	assert.Equal(t, int64(10), got.Workers[0].FilesDone)
	assert.Equal(t, 3*time.Second, got.Workers[1].ElapsedTime)
}

func TestReadParamsMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadParams(dir)
	assert.Error(t, err)
}
