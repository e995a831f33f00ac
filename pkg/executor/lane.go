package executor

import (
	"context"
	"sync"
	"sync/atomic"
)

const (
	laneMode       = "mode"
	laneRecording  = "recording"
	laneCapture    = "capture"
	lanePerception = "perception"
	laneDisplay    = "display"
	laneTargets    = "targets"
)

var laneNames = []string{laneMode, laneRecording, laneCapture, lanePerception, laneDisplay, laneTargets}

const (
	jobQueued int32 = iota
	jobRunning
	jobAbandoned
)

type runFunc func(ctx context.Context) (outcome, error)

type job struct {
	ctx   context.Context
	run   runFunc
	state atomic.Int32
	out   outcome
	err   error
	done  chan struct{}
}

func newJob(ctx context.Context, run runFunc) *job {
	return &job{ctx: ctx, run: run, done: make(chan struct{})}
}

// abandon succeeds only while the job is still waiting in its lane.
func (j *job) abandon() bool {
	return j.state.CompareAndSwap(jobQueued, jobAbandoned)
}

// lane runs the jobs of one resource strictly in arrival order.
type lane struct {
	name string
	jobs chan *job

	mu     sync.Mutex
	cancel context.CancelCauseFunc
}

func newLane(name string, depth int) *lane {
	return &lane{name: name, jobs: make(chan *job, depth)}
}

func (l *lane) work() {
	for j := range l.jobs {
		l.runJob(j)
	}
}

func (l *lane) runJob(j *job) {
	if !j.state.CompareAndSwap(jobQueued, jobRunning) {
		return
	}

	ctx, cancel := context.WithCancelCause(j.ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	j.out, j.err = j.run(ctx)

	l.mu.Lock()
	l.cancel = nil
	l.mu.Unlock()
	cancel(nil)
	close(j.done)
}

// preempt cancels the job currently running in the lane, if any.
func (l *lane) preempt(cause error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return false
	}
	l.cancel(cause)
	return true
}
