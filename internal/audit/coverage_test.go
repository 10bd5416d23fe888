package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterEmitReadOnlyDir(t *testing.T) {
	dir := t.TempDir()
	readonlyDir := filepath.Join(dir, "readonly")
	require.NoError(t, os.MkdirAll(readonlyDir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(readonlyDir, 0o700) })

	w := NewWriter(readonlyDir)
	assert.NotPanics(t, func() {
		w.Emit(Event{Event: EventRunStart, RunID: "run-1"})
	})

	_, err := os.Stat(filepath.Join(readonlyDir, "audit.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriterEmitMarshalError(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	assert.NotPanics(t, func() {
		w.Emit(Event{
			Event: EventRunStart,
			RunID: "run-1",
			Extra: map[string]any{"bad": make(chan int)},
		})
	})

	_, err := os.Stat(filepath.Join(dir, "audit.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriterEmitWriteError(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.log")
	require.NoError(t, os.MkdirAll(auditPath, 0o700))

	w := NewWriter(dir)
	assert.NotPanics(t, func() {
		w.Emit(Event{Event: EventRunStart, RunID: "run-1"})
	})
}
