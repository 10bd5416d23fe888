package syncfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchCreatesThenRejectsSecond(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "ready")

	require.NoError(t, Touch(p))
	assert.True(t, Exists(p))

	err := Touch(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestExistsFalseForMissing(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(filepath.Join(dir, "nope")))
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "state.json")

	type payload struct {
		Files int64 `json:"files"`
	}
	require.NoError(t, WriteJSON(p, payload{Files: 42}))

	var got payload
	require.NoError(t, ReadJSON(p, &got))
	assert.Equal(t, int64(42), got.Files)
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "state.json")
	require.NoError(t, WriteJSON(p, map[string]int{"a": 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestEnsureRemovedIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "gone")
	assert.NoError(t, EnsureRemoved(p))

	require.NoError(t, Touch(p))
	assert.NoError(t, EnsureRemoved(p))
	assert.False(t, Exists(p))
}

func TestEnsureDirCreatesNested(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, EnsureDir(nested))
	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, EnsureDir(nested))
}

func TestReadJSONEmptyFileErrors(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	var v map[string]int
	err := ReadJSON(p, &v)
	require.Error(t, err)
}
