package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/openswoop/syllabank/pkg/catalog"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

var ErrAlreadyRunning = errors.New("a crawl is already running")

// Status is a snapshot of a Job.
type Status struct {
	State   State
	Started time.Time
	// Result and Err are set once the job has completed.
	Result *catalog.BatchResult
	Err    error
}

type RunFunc func(ctx context.Context) (catalog.BatchResult, error)

// Job owns the lifecycle of crawls started from one place: at most one run
// at a time, with the last result kept for status queries.
type Job struct {
	mu     sync.Mutex
	status Status
	done   chan struct{}
}

func NewJob() *Job {
	return &Job{status: Status{State: StateIdle}}
}

// Start launches run in the background. It fails with ErrAlreadyRunning
// while a previous run is still going.
func (j *Job) Start(ctx context.Context, run RunFunc) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.State == StateRunning {
		return ErrAlreadyRunning
	}
	j.status = Status{State: StateRunning, Started: time.Now()}
	done := make(chan struct{})
	j.done = done

	go func() {
		defer close(done)
		result, err := run(ctx)
		j.mu.Lock()
		defer j.mu.Unlock()
		j.status.State = StateCompleted
		j.status.Result = &result
		j.status.Err = err
	}()
	return nil
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Wait blocks until the current run completes and returns its status. It
// returns immediately when nothing has been started.
func (j *Job) Wait(ctx context.Context) (Status, error) {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()
	if done == nil {
		return j.Status(), nil
	}
	select {
	case <-ctx.Done():
		return j.Status(), ctx.Err()
	case <-done:
		return j.Status(), nil
	}
}
