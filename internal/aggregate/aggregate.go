// Package aggregate implements the result reduction rules: per-worker
// metrics roll up into per-host totals, and per-host totals roll up
// into a cluster total, using a deliberately asymmetric set of
// arithmetic rules (elapsed is a max, everything else is a sum) chosen
// so the aggregate reflects throughput achieved while every worker was
// still active under stonewall, not a naive total-divided-by-elapsed
// figure.
package aggregate

import (
	"time"

	"github.com/smallfile-go/smallfile/internal/snapshot"
)

// StatusOK is the canonical OK status string a worker reports when it
// completed without an I/O or verification error.
const StatusOK = "OK"

// pctFilesMin is the completion-gate threshold: if fewer than this
// percentage of the expected total files were completed by the time
// aggregation happens, the stonewall measurement window was too
// uneven to trust, and a warning is produced (never a hard failure).
const pctFilesMin = 90.0

// Totals is the shared shape of both a per-host and a cluster-wide
// reduction: the same fields, same arithmetic, just a different
// population of inputs.
type Totals struct {
	Elapsed      time.Duration
	Files        int64
	Records      int64
	FilesPerSec  float64
	IOPS         float64
	MiBps        float64
	Status       string
	StatusCode   int
}

// rates holds one worker's derived throughput figures; MiB/s is derived
// from that worker's own RecordSizeKB.
type rates struct {
	filesPerSec float64
	iops        float64
	mibps       float64
}

func workerRates(w snapshot.WorkerResult) rates {
	if w.ElapsedTime <= 0 {
		return rates{}
	}
	elapsedSec := w.ElapsedTime.Seconds()
	filesPerSec := float64(w.FilesDone) / elapsedSec
	iops := float64(w.RecordsDone) / elapsedSec
	mibps := iops * float64(w.RecordSizeKB) / 1024
	return rates{filesPerSec: filesPerSec, iops: iops, mibps: mibps}
}

// Host reduces one host's workers into its Totals.
func Host(workers []snapshot.WorkerResult) Totals {
	var t Totals
	t.Status = StatusOK
	firstBad := false

	for _, w := range workers {
		if w.ElapsedTime > t.Elapsed {
			t.Elapsed = w.ElapsedTime
		}
		t.Files += w.FilesDone
		t.Records += w.RecordsDone

		r := workerRates(w)
		t.FilesPerSec += r.filesPerSec
		t.IOPS += r.iops
		t.MiBps += r.mibps

		if w.Status != StatusOK && !firstBad {
			t.Status = w.Status
			t.StatusCode = w.StatusCode
			firstBad = true
		}
	}
	return t
}

// Cluster reduces per-host Totals into the cluster-wide Totals, applying
// the identical arithmetic as Host with hosts replacing workers.
func Cluster(hosts []Totals) Totals {
	var t Totals
	t.Status = StatusOK
	firstBad := false

	for _, h := range hosts {
		if h.Elapsed > t.Elapsed {
			t.Elapsed = h.Elapsed
		}
		t.Files += h.Files
		t.Records += h.Records
		t.FilesPerSec += h.FilesPerSec
		t.IOPS += h.IOPS
		t.MiBps += h.MiBps

		if h.Status != StatusOK && !firstBad {
			t.Status = h.Status
			t.StatusCode = h.StatusCode
			firstBad = true
		}
	}
	return t
}

// CompletionWarning reports the completion-gate warning text when
// fewer than pctFilesMin percent of the expected total files
// completed, and the completion percentage itself. ok is false exactly
// when the warning should be surfaced; it never causes a non-zero exit
// by itself — low completion is always a warning, never a hard failure
// on its own.
func CompletionWarning(filesCluster int64, iterations, totalWorkers int) (pct float64, ok bool, message string) {
	expected := int64(iterations) * int64(totalWorkers)
	if expected <= 0 {
		return 0, true, ""
	}
	pct = float64(filesCluster) / float64(expected) * 100
	if pct < pctFilesMin {
		return pct, false, "not enough files completed before first thread finished"
	}
	return pct, true, ""
}
