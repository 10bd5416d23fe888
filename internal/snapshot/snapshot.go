// Package snapshot implements the wire format between coordinator and
// workers: a serialized parameter object written once and read by
// every worker, and a serialized per-host worker-state list written
// once by each host and read once by the coordinator. Both are JSON
// documents written with the same atomic write-temp-then-rename
// discipline internal/syncfile provides, so a reader that successfully
// opens the final path always sees a complete document.
package snapshot

import (
	"path/filepath"
	"time"

	"github.com/smallfile-go/smallfile/internal/params"
	"github.com/smallfile-go/smallfile/internal/syncfile"
)

// ParamFileName is the well-known name of the parameter snapshot within
// the network directory.
const ParamFileName = "param.pickle"

// ResultFileName returns the well-known name of a host's result snapshot.
func ResultFileName(host string) string { return host + "_result.pickle" }

// WriteParams atomically writes the coordinator's parameter snapshot.
// Exactly one producer, the coordinator, ever calls this per run.
func WriteParams(networkDir string, p *params.Params) error {
	return syncfile.WriteJSON(filepath.Join(networkDir, ParamFileName), p)
}

// ReadParams loads the parameter snapshot; called exactly once by every
// worker process at startup.
func ReadParams(networkDir string) (*params.Params, error) {
	var p params.Params
	if err := syncfile.ReadJSON(filepath.Join(networkDir, ParamFileName), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LatencySample is one (op, start, duration) triple captured by the
// workload engine when MeasureRespTimes is set.
type LatencySample struct {
	Op               string        `json:"op"`
	SinceWorkerStart time.Duration `json:"since_worker_start"`
	Duration         time.Duration `json:"duration"`
}

// WorkerResult is the terminal, serialized state of one worker thread.
type WorkerResult struct {
	WorkerID string `json:"worker_id"`
	HostID   string `json:"host_id"`

	FilesDone   int64 `json:"files_done"`
	RecordsDone int64 `json:"records_done"`

	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	ElapsedTime time.Duration `json:"elapsed_time"`

	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Aborted    bool   `json:"aborted"`

	RecordSizeKB int `json:"record_size_kb"`

	Samples []LatencySample `json:"samples,omitempty"`
}

// HostResult is the per-host snapshot a host driver (or remote daemon
// slave) writes back to the coordinator: every worker it ran terminated.
type HostResult struct {
	HostID  string         `json:"host_id"`
	Workers []WorkerResult `json:"workers"`
}

// WriteHostResult atomically writes host's terminal worker list.
func WriteHostResult(networkDir string, r *HostResult) error {
	return syncfile.WriteJSON(filepath.Join(networkDir, ResultFileName(r.HostID)), r)
}

// ReadHostResult reads back one host's result snapshot. Consumed
// exactly once by the coordinator.
func ReadHostResult(networkDir string, host string) (*HostResult, error) {
	var r HostResult
	if err := syncfile.ReadJSON(filepath.Join(networkDir, ResultFileName(host)), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
