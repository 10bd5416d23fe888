package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONSerialization(t *testing.T) {
	ts := time.Date(2026, 1, 27, 15, 30, 0, 0, time.UTC)
	event := Event{
		Timestamp: ts,
		Event:     EventRunStart,
		RunID:     "run-abc",
		Host:      "host1",
		PID:       12345,
		Extra:     map[string]any{"key": "value"},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	jsonStr := string(data)
	assert.Contains(t, jsonStr, "2026-01-27T15:30:00Z")
	for _, field := range []string{`"ts":`, `"event":`, `"run_id":`, `"host":`, `"pid":`, `"extra":`} {
		assert.Contains(t, jsonStr, field)
	}

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.Event, decoded.Event)
	assert.Equal(t, event.RunID, decoded.RunID)
}

func TestEventOmitsEmptyFields(t *testing.T) {
	event := Event{Timestamp: time.Now(), Event: EventRunComplete, RunID: "run-abc"}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	jsonStr := string(data)
	assert.NotContains(t, jsonStr, "\"host\"")
	assert.NotContains(t, jsonStr, "\"pid\"")
	assert.NotContains(t, jsonStr, "\"extra\"")
}

func TestWriterCreatesFileOnFirstEmit(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.Emit(Event{Event: EventRunStart, RunID: "run-1"})

	_, err := os.Stat(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
}

func TestWriterAppendsMultipleEvents(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	events := []Event{
		{Event: EventRunStart, RunID: "run-1", Host: "h1"},
		{Event: EventGateOpen, RunID: "run-1", Host: "h1"},
		{Event: EventRunComplete, RunID: "run-1", Host: "h1"},
	}
	for _, e := range events {
		w.Emit(e)
	}

	f, err := os.Open(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineCount := 0
	for scanner.Scan() {
		var decoded Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
		assert.Equal(t, events[lineCount].Event, decoded.Event)
		lineCount++
	}
	assert.Equal(t, len(events), lineCount)
}

func TestWriterSetsTimestampIfMissing(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	before := time.Now()
	w.Emit(Event{Event: EventRunStart, RunID: "run-1"})
	after := time.Now()

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.Timestamp.Before(before))
	assert.False(t, decoded.Timestamp.After(after))
}

func TestWriterHandlesMissingDirectoryWithoutPanic(t *testing.T) {
	w := NewWriter("/nonexistent/path/that/does/not/exist")
	assert.NotPanics(t, func() {
		w.Emit(Event{Event: EventRunStart, RunID: "run-1"})
	})
}

func TestEventConstantsAreDistinct(t *testing.T) {
	constants := []string{
		EventRunStart, EventHostReady, EventGateOpen, EventStonewall,
		EventAbort, EventHostResult, EventRunComplete, EventPreflight,
	}
	seen := map[string]bool{}
	for _, c := range constants {
		assert.NotEmpty(t, c)
		assert.False(t, seen[c], "duplicate event constant %q", c)
		seen[c] = true
	}
}
