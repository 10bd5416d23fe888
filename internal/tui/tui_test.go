package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderProducesSortedRows(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.Render([]WorkerProgress{
		{WorkerID: "02", Files: 5, Records: 5, Status: "running"},
		{WorkerID: "00", Files: 9, Records: 9, Status: "running"},
	})

	out := buf.String()
	idx00 := strings.Index(out, "00")
	idx02 := strings.Index(out, "02")
	assert.GreaterOrEqual(t, idx00, 0)
	assert.GreaterOrEqual(t, idx02, 0)
	assert.Less(t, idx00, idx02)
}

func TestSecondRenderEmitsCursorReposition(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.Render([]WorkerProgress{{WorkerID: "00", Files: 1, Records: 1, Status: "running"}})
	before := buf.Len()
	d.Render([]WorkerProgress{{WorkerID: "00", Files: 2, Records: 2, Status: "running"}})
	after := buf.String()[before:]
	assert.True(t, strings.HasPrefix(after, "\x1b["))
}

func TestFinalResetsLineCounter(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf)
	d.Final([]WorkerProgress{{WorkerID: "00", Files: 1, Records: 1, Status: "OK"}})
	assert.Equal(t, 0, d.lastLines)
}
