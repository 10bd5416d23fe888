package workload

import (
	"context"
	"errors"
	"time"

	"github.com/smallfile-go/smallfile/internal/barrier"
	"github.com/smallfile-go/smallfile/internal/snapshot"
)

// ErrAborted is returned by Run when the abort sentinel was observed
// mid-run.
var ErrAborted = errors.New("workload: aborted")

// Run executes the full worker lifecycle:
// touch thread_ready, wait at the gate, loop the configured operation
// under the do-another-file contract, then return the terminal result.
func (e *Engine) Run(ctx context.Context, startupTimeout time.Duration) (snapshot.WorkerResult, error) {
	e.PrecomputeFileDirs()

	if err := e.ensureDirs(); err != nil {
		return snapshot.WorkerResult{}, err
	}

	readyPath := e.Paths.ThreadReady(e.TmpDir, e.Gen.WorkerID)
	if err := touchReady(readyPath); err != nil {
		return snapshot.WorkerResult{}, err
	}

	if err := barrier.WaitGate(ctx, e.Paths, startupTimeout); err != nil {
		if errors.Is(err, barrier.ErrAborted) {
			e.State.Aborted = true
			e.State.Status = "ABORTED"
			e.State.StartTime = e.Caps.Clock.Now()
			e.State.EndTime = e.State.StartTime
			return e.result(), ErrAborted
		}
		return snapshot.WorkerResult{}, err
	}

	e.State.StartTime = e.Caps.Clock.Now()

	for {
		cont, err := e.doAnotherFile()
		if err != nil {
			if errors.Is(err, ErrAborted) {
				e.State.Aborted = true
				e.State.Status = "ABORTED"
				break
			}
			e.State.Status = Status(err.Error())
			break
		}
		if !cont {
			break
		}

		opStart := e.Caps.Clock.Now()
		if err := e.dispatch(e.State.FileNum - 1); err != nil {
			e.State.Status = Status(err.Error())
			break
		}
		if e.Params.MeasureRespTimes {
			d := e.Caps.Clock.Now().Sub(opStart)
			e.recordSample(d, opStart)
		}
		e.State.RecordsDone++

		if e.Params.PauseBetweenFilesU > 0 {
			e.Caps.Sleeper.Sleep(time.Duration(e.Params.PauseBetweenFilesU) * time.Microsecond)
		}
	}

	if !e.State.TestEnded() {
		e.endTest()
	}
	return e.result(), nil
}

func touchReady(path string) error {
	return ensureCreated(path)
}

func (e *Engine) recordSample(d time.Duration, opStart time.Time) {
	if e.hist != nil {
		e.hist.Add(d)
	}
	e.State.Samples = append(e.State.Samples, snapshot.LatencySample{
		Op:               string(e.Params.Operation),
		SinceWorkerStart: opStart.Sub(e.State.StartTime),
		Duration:         d,
	})
}

// doAnotherFile implements the do-another-file contract exactly:
// the stonewall check happens only every filesBetweenChecks iterations to
// bound poll overhead, finish_all_requests changes whether a stonewalled
// worker keeps issuing ops, and the abort check is unconditional.
func (e *Engine) doAnotherFile() (bool, error) {
	filesBetween := e.Params.FilesBetweenChecks()

	if e.Params.Stonewall && e.State.FileNum%filesBetween == 0 && !e.State.TestEnded() {
		if barrier.Stonewalled(e.Paths) {
			e.endTest()
		}
	}

	if !e.Params.FinishAllRequests && e.State.TestEnded() {
		return false, nil
	}

	if e.State.FileNum >= e.Params.Iterations {
		if !e.State.TestEnded() {
			e.endTest()
		}
		return false, nil
	}

	if barrier.Aborted(e.Paths) {
		return false, ErrAborted
	}

	e.State.FileNum++
	return true, nil
}

// endTest captures the terminal counters and, if this worker is first to
// exhaust its iterations, atomically opens the stonewall sentinel for
// everyone else.
func (e *Engine) endTest() {
	e.State.RqFinal = e.State.RecordsDone
	e.State.FilenumFinal = e.State.FileNum
	e.State.EndTime = e.Caps.Clock.Now()

	if e.State.FileNum >= e.Params.Iterations && !barrier.Stonewalled(e.Paths) {
		_ = barrier.OpenStonewall(e.Paths)
	}
}
