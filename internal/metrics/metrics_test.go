package metrics

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetWorkerProgressExposedViaRegistry(t *testing.T) {
	e := New()
	e.SetWorkerProgress("00", 42, 84)
	e.SetCurrentIOPS(12.5)

	out := gatherDirectly(t, e)
	assert.Contains(t, out, `smallfile_worker_files_done{worker_id="00"} 42`)
	assert.Contains(t, out, `smallfile_worker_records_done{worker_id="00"} 84`)
	assert.Contains(t, out, "smallfile_current_iops 12.5")
}

func gatherDirectly(t *testing.T, e *Exporter) string {
	t.Helper()
	mfs, err := e.registry.Gather()
	require.NoError(t, err)
	var sb strings.Builder
	for _, mf := range mfs {
		for _, m := range mf.Metric {
			sb.WriteString(mf.GetName())
			for _, lp := range m.Label {
				sb.WriteString(`{` + lp.GetName() + `="` + lp.GetValue() + `"}`)
			}
			sb.WriteString(" ")
			if m.Gauge != nil {
				sb.WriteString(strconv.FormatFloat(m.Gauge.GetValue(), 'g', -1, 64))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func TestServeShutsDownOnContextCancel(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
