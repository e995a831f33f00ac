// Package executor turns Commands into validated, idempotent state changes
// and collaborator calls. Commands on the same resource run in arrival
// order; commands on different resources run concurrently.
package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/pkg/broadcast"
	"helmet-orchestrator-be/pkg/gateway"
	"helmet-orchestrator-be/pkg/mode"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const module = "CommandExecutor"

var errPreempted = errors.New("pre-empted by emergency activation")

// followUpWait bounds how long a background follow-up waits for room in a
// busy lane before it is dropped.
const followUpWait = 30 * time.Second

// StateMachine is the single writer of the Session.
type StateMachine interface {
	Current() entity.Session
	Transition(ctx context.Context, mutate mode.Mutation) (entity.Session, error)
	Emergency(ctx context.Context, mutate mode.Mutation) (entity.Session, error)
}

// StatusBoard is the slice of the broadcaster the executor reads and feeds.
type StatusBoard interface {
	Snapshot() entity.StatusSnapshot
	Publish(patches ...broadcast.Patch)
}

// Recorder receives every terminal result exactly once per execution.
type Recorder interface {
	Record(ctx context.Context, cmd entity.Command, result entity.CommandResult)
}

type Options struct {
	CommandTimeout time.Duration
	RetryBudget    int
	RetryBaseDelay time.Duration
	ResultTTL      time.Duration
	LaneDepth      int
}

func (o Options) withDefaults() Options {
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 2 * time.Second
	}
	if o.RetryBudget < 0 {
		o.RetryBudget = 0
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 100 * time.Millisecond
	}
	if o.ResultTTL <= 0 {
		o.ResultTTL = time.Hour
	}
	if o.LaneDepth <= 0 {
		o.LaneDepth = 32
	}
	return o
}

type Deps struct {
	Machine  StateMachine
	Gateway  gateway.Gateway
	Health   *gateway.Health
	Status   StatusBoard
	Recorder Recorder
	Logger   logger.ILogger
}

type Executor struct {
	machine  StateMachine
	gw       gateway.Gateway
	health   *gateway.Health
	status   StatusBoard
	recorder Recorder
	logger   logger.ILogger
	opts     Options
	tracer   trace.Tracer

	results  *cache.Cache
	flight   singleflight.Group
	flightMu sync.Mutex
	flights  map[string]*flight

	mu        sync.RWMutex
	closed    bool
	closing   chan struct{}
	closeOnce sync.Once
	lanes     map[string]*lane
	workers   sync.WaitGroup

	targetSeq atomic.Int64
	now       func() time.Time
}

func New(deps Deps, opts Options) *Executor {
	opts = opts.withDefaults()
	health := deps.Health
	if health == nil {
		health = gateway.NewHealth(nil)
	}

	e := &Executor{
		machine:  deps.Machine,
		gw:       deps.Gateway,
		health:   health,
		status:   deps.Status,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		opts:     opts,
		tracer:   otel.Tracer("helmet-orchestrator-be/executor"),
		results:  cache.New(opts.ResultTTL, 2*opts.ResultTTL),
		flights:  make(map[string]*flight),
		closing:  make(chan struct{}),
		lanes:    make(map[string]*lane, len(laneNames)),
		now:      time.Now,
	}
	for _, name := range laneNames {
		l := newLane(name, opts.LaneDepth)
		e.lanes[name] = l
		e.workers.Add(1)
		go func() {
			defer e.workers.Done()
			l.work()
		}()
	}
	return e
}

// Execute runs cmd at most once per ID. Replays of a finished command return
// the cached result; duplicates of an in-flight command share its result.
// The shared run is cancelled only once every caller waiting on it has gone.
// Cancelled results are not cached, so the same ID may be retried.
func (e *Executor) Execute(ctx context.Context, cmd entity.Command) entity.CommandResult {
	if cmd.ID == "" {
		return e.finish(ctx, cmd, outcome{}, apperr.ValidationFailed("command id is required"))
	}
	for {
		if res, ok := e.lookup(cmd.ID); ok {
			return res
		}
		res := e.share(ctx, cmd)
		// A run abandoned by everyone else is retried for a caller still waiting.
		if res.Code == apperr.CodeCancelled && ctx.Err() == nil {
			continue
		}
		return res
	}
}

// flight is the context one shared run executes under, cancelled when its
// last waiter leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	waiters int
}

func (e *Executor) share(ctx context.Context, cmd entity.Command) entity.CommandResult {
	f := e.join(ctx, cmd.ID)
	ch := e.flight.DoChan(cmd.ID, func() (interface{}, error) {
		if res, ok := e.lookup(cmd.ID); ok {
			return res, nil
		}
		return e.execute(f.ctx, cmd), nil
	})

	select {
	case r := <-ch:
		e.leave(cmd.ID, f, nil)
		return r.Val.(entity.CommandResult)
	case <-ctx.Done():
		if e.leave(cmd.ID, f, context.Cause(ctx)) {
			r := <-ch
			return r.Val.(entity.CommandResult)
		}
		return entity.CommandResult{
			CommandID:   cmd.ID,
			Status:      entity.StatusFailed,
			Code:        apperr.CodeCancelled,
			Message:     "command cancelled",
			Session:     e.machine.Current(),
			CompletedAt: e.now(),
		}
	}
}

func (e *Executor) join(ctx context.Context, id string) *flight {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()
	f, ok := e.flights[id]
	if !ok {
		fctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		e.flights[id] = f
	}
	f.waiters++
	return f
}

// leave reports whether the caller was the last one waiting on f.
func (e *Executor) leave(id string, f *flight, cause error) bool {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return false
	}
	if e.flights[id] == f {
		delete(e.flights, id)
	}
	f.cancel(cause)
	return true
}

// Close stops accepting commands and waits for queued work to drain.
func (e *Executor) Close() {
	e.closeOnce.Do(func() { close(e.closing) })

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, l := range e.lanes {
		close(l.jobs)
	}
	e.mu.Unlock()
	e.workers.Wait()
}

func (e *Executor) lookup(id string) (entity.CommandResult, bool) {
	v, ok := e.results.Get(id)
	if !ok {
		return entity.CommandResult{}, false
	}
	return v.(entity.CommandResult), true
}

func (e *Executor) execute(ctx context.Context, cmd entity.Command) entity.CommandResult {
	ctx, span := e.tracer.Start(ctx, "command."+string(cmd.Kind), trace.WithAttributes(
		attribute.String("command.id", cmd.ID),
		attribute.String("command.kind", string(cmd.Kind)),
		attribute.String("command.source", string(cmd.Source)),
	))
	defer span.End()

	out, err := e.dispatch(ctx, cmd)
	res := e.finish(ctx, cmd, out, err)

	span.SetAttributes(attribute.String("command.status", string(res.Status)))
	if !res.Accepted() {
		span.SetAttributes(attribute.String("command.code", string(res.Code)))
		span.SetStatus(codes.Error, res.Message)
	}
	return res
}

// finish builds the terminal result, caches it, and hands it to the recorder.
func (e *Executor) finish(ctx context.Context, cmd entity.Command, out outcome, err error) entity.CommandResult {
	res := entity.CommandResult{
		CommandID:   cmd.ID,
		Status:      entity.StatusAccepted,
		Message:     out.message,
		Session:     out.session,
		Data:        out.data,
		CompletedAt: e.now(),
	}
	if err != nil || !out.committed {
		res.Session = e.machine.Current()
	}

	details := map[string]interface{}{
		"command_id": cmd.ID,
		"kind":       cmd.Kind,
		"source":     cmd.Source,
	}
	if err != nil {
		code := apperr.GetCode(err)
		res.Status = statusFor(code)
		res.Code = code
		res.Message = apperr.Message(err)
		res.Data = nil
		details["code"] = code
		details["error"] = err.Error()
		e.logger.Warn(module, "Command "+string(res.Status), details)
	} else {
		if res.Message == "" {
			res.Message = "ok"
		}
		details["mode"] = res.Session.CurrentMode
		details["version"] = res.Session.Version
		e.logger.Info(module, "Command accepted", details)
	}

	if cmd.ID != "" && res.Code != apperr.CodeCancelled {
		e.results.SetDefault(cmd.ID, res)
	}
	if e.recorder != nil {
		e.recorder.Record(context.WithoutCancel(ctx), cmd, res)
	}
	return res
}

func statusFor(code apperr.Code) entity.CommandStatus {
	switch code {
	case apperr.CodeValidationFailed, apperr.CodeInvalidArgument, apperr.CodeStateConflict,
		apperr.CodePermissionDenied, apperr.CodeUnrecognized:
		return entity.StatusRejected
	default:
		return entity.StatusFailed
	}
}

// inLane runs fn on the named lane and waits for it. A job cancelled while
// still queued is dropped; a running job is waited for, since it may already
// have committed.
func (e *Executor) inLane(ctx context.Context, name string, fn runFunc) (outcome, error) {
	j := newJob(ctx, fn)
	if err := e.enqueue(ctx, name, j); err != nil {
		return outcome{}, err
	}

	select {
	case <-j.done:
		return j.out, j.err
	case <-ctx.Done():
		if j.abandon() {
			return outcome{}, cancelled(ctx)
		}
		<-j.done
		return j.out, j.err
	}
}

// background queues fn on the named lane without waiting for room or for
// the job itself.
func (e *Executor) background(ctx context.Context, name string, fn func(ctx context.Context)) {
	j := newJob(context.WithoutCancel(ctx), func(ctx context.Context) (outcome, error) {
		fn(ctx)
		return outcome{}, nil
	})
	go func() {
		wait, cancel := context.WithTimeout(context.Background(), followUpWait)
		defer cancel()
		if err := e.enqueue(wait, name, j); err != nil {
			e.logger.Warn(module, "Background job dropped", map[string]interface{}{
				"lane":  name,
				"error": err.Error(),
			})
		}
	}()
}

// enqueue waits for room in the lane until wait ends or the executor starts
// closing.
func (e *Executor) enqueue(wait context.Context, name string, j *job) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return errClosed()
	}
	select {
	case e.lanes[name].jobs <- j:
		return nil
	case <-wait.Done():
		return cancelled(wait)
	case <-e.closing:
		return errClosed()
	}
}

func errClosed() error {
	return apperr.New(apperr.CodeInternal, "executor is closed")
}

func cancelled(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, errPreempted) {
		return apperr.Wrap(cause, apperr.CodeStateConflict, errPreempted.Error())
	}
	return apperr.Wrap(cause, apperr.CodeCancelled, "command cancelled")
}
