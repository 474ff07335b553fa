// ============================================================================
// Flight Worker - Job Execution Unit
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Function: Execution unit bound to one goroutine for its whole lifetime
//
// How it works:
//   Each Worker runs the following loop:
//   1. Claim the next job from the shared queue (blocking while Idle)
//   2. Run the job inside a recover boundary (Running)
//   3. Return to Idle and repeat
//   4. Exit (Terminated) once the queue is closed and drained
//
// State machine:
//   Idle --claim--> Running --done/panic--> Idle --queue closed & empty--> Terminated
//
// A job is never interrupted. Shutdown waits for the running job to return.
//
// ============================================================================

package worker

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/ChuLiYu/flight-server/pkg/types"
)

// Worker represents a work execution unit
type Worker struct {
	id       int
	queue    *queue
	running  *atomic.Int64 // pool-wide gauge of Running workers
	state    atomic.Value  // types.WorkerState
	logger   *slog.Logger
	observer Observer
}

func newWorker(id int, q *queue, running *atomic.Int64, logger *slog.Logger, obs Observer) *Worker {
	w := &Worker{
		id:       id,
		queue:    q,
		running:  running,
		logger:   logger.With("worker", id),
		observer: obs,
	}
	w.state.Store(types.WorkerIdle)
	return w
}

// ID returns the worker's index within its pool
func (w *Worker) ID() int {
	return w.id
}

// State returns the current lifecycle state
func (w *Worker) State() types.WorkerState {
	return w.state.Load().(types.WorkerState)
}

// run is the main loop of Worker. Only the owning pool calls it, once.
func (w *Worker) run() {
	defer w.state.Store(types.WorkerTerminated)

	for {
		job, ok := w.queue.pop()
		if !ok {
			w.logger.Debug("worker exiting")
			return
		}
		w.execute(job)
	}
}

// execute runs one job. A panic is recovered, logged and counted; the worker
// stays alive either way.
func (w *Worker) execute(job Job) {
	w.state.Store(types.WorkerRunning)
	w.running.Add(1)
	w.observer.JobStarted()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.observer.JobPanicked()
			w.logger.Error("job panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
		w.observer.JobFinished(time.Since(start))
		w.running.Add(-1)
		w.state.Store(types.WorkerIdle)
	}()

	job()
}
