// Package tui renders a live, plain-text progress dashboard for a
// local run: a tabwriter table refreshed in place, not a full
// bubbletea/lipgloss TUI, since a benchmark run has no interactive
// input to justify one.
package tui

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// WorkerProgress is one row of the dashboard: a worker's live counters.
type WorkerProgress struct {
	WorkerID string
	Files    int64
	Records  int64
	Status   string
}

// Dashboard redraws a fixed-height table of worker progress in place
// using ANSI cursor-up to reposition the cursor before each redraw.
type Dashboard struct {
	w         io.Writer
	lastLines int
}

// New builds a Dashboard writing to w.
func New(w io.Writer) *Dashboard {
	return &Dashboard{w: w}
}

// Render redraws the table of worker rows, overwriting the previous
// frame when the writer supports it (a terminal); on a plain file or
// pipe the cursor-up escapes are inert and frames simply stack, which
// is still readable.
func (d *Dashboard) Render(rows []WorkerProgress) {
	if d.lastLines > 0 {
		fmt.Fprintf(d.w, "\x1b[%dA", d.lastLines)
	}

	sorted := append([]WorkerProgress(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].WorkerID < sorted[j].WorkerID })

	tw := tabwriter.NewWriter(d.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tFILES\tRECORDS\tSTATUS")
	for _, r := range sorted {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", r.WorkerID, r.Files, r.Records, r.Status)
	}
	tw.Flush()

	d.lastLines = len(sorted) + 1
}

// Final prints the dashboard's closing frame without a trailing cursor
// reposition, for use once a run has ended.
func (d *Dashboard) Final(rows []WorkerProgress) {
	d.Render(rows)
	d.lastLines = 0
}
