// Package report renders the cluster totals produced by
// internal/aggregate into two forms: a human-readable summary on
// stdout and an optional machine-readable JSON document for CI
// harnesses. Byte and rate formatting uses github.com/dustin/go-humanize.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/smallfile-go/smallfile/internal/aggregate"
	"github.com/smallfile-go/smallfile/internal/params"
)

// Summary is the JSON document written to --output-json.
type Summary struct {
	Operation       params.Operation `json:"operation"`
	Threads         int              `json:"threads"`
	FilesRequested  int64            `json:"files_requested"`
	FilesDone       int64            `json:"files_done"`
	RecordsDone     int64            `json:"records_done"`
	ElapsedSeconds  float64          `json:"elapsed_sec"`
	FilesPerSec     float64          `json:"files_per_sec"`
	IOPS            float64          `json:"iops"`
	MiBps           float64          `json:"mib_per_sec"`
	Status          string           `json:"status"`
	CompletionNote  string           `json:"completion_note,omitempty"`
}

// BuildSummary assembles the JSON document from a cluster's totals.
func BuildSummary(p *params.Params, totalWorkers int, t aggregate.Totals, completionNote string) Summary {
	return Summary{
		Operation:      p.Operation,
		Threads:        totalWorkers,
		FilesRequested: int64(p.Iterations) * int64(totalWorkers),
		FilesDone:      t.Files,
		RecordsDone:    t.Records,
		ElapsedSeconds: t.Elapsed.Seconds(),
		FilesPerSec:    t.FilesPerSec,
		IOPS:           t.IOPS,
		MiBps:          t.MiBps,
		Status:         t.Status,
		CompletionNote: completionNote,
	}
}

// WriteJSON marshals the summary as indented, pretty-printed JSON.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteHuman renders the tabwriter-aligned summary a human reads at the
// terminal at the end of a run.
func WriteHuman(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "operation:\t%s\n", s.Operation)
	fmt.Fprintf(tw, "threads:\t%d\n", s.Threads)
	fmt.Fprintf(tw, "files requested:\t%s\n", humanize.Comma(s.FilesRequested))
	fmt.Fprintf(tw, "files done:\t%s\n", humanize.Comma(s.FilesDone))
	fmt.Fprintf(tw, "records done:\t%s\n", humanize.Comma(s.RecordsDone))
	fmt.Fprintf(tw, "elapsed time:\t%s\n", time.Duration(s.ElapsedSeconds*float64(time.Second)).Round(time.Millisecond))
	fmt.Fprintf(tw, "files/sec:\t%.3f\n", s.FilesPerSec)
	fmt.Fprintf(tw, "IOPS:\t%.3f\n", s.IOPS)
	fmt.Fprintf(tw, "throughput:\t%s/sec\n", humanize.IBytes(uint64(s.MiBps*1024*1024)))
	fmt.Fprintf(tw, "status:\t%s\n", s.Status)
	if s.CompletionNote != "" {
		fmt.Fprintf(tw, "note:\t%s\n", s.CompletionNote)
	}
	return tw.Flush()
}
