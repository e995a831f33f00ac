package mode

import (
	"context"
	"errors"
	"sync"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/logger"
)

const module = "ModeMachine"

// ErrStopped is returned once the actor loop has exited.
var ErrStopped = errors.New("mode machine stopped")

// Persister is the durability hook. Save failures are logged, never
// propagated to the caller of Transition.
type Persister interface {
	Save(ctx context.Context, session entity.Session) error
}

// Observer is notified after every commit, in commit order, from the actor
// goroutine. Implementations must not block.
type Observer interface {
	Committed(prev, next entity.Session)
}

type ObserverFunc func(prev, next entity.Session)

func (f ObserverFunc) Committed(prev, next entity.Session) { f(prev, next) }

type request struct {
	ctx       context.Context
	mutate    Mutation
	emergency bool
	reply     chan response
}

type response struct {
	session entity.Session
	err     error
}

// Machine owns the authoritative Session. All writes go through one actor
// goroutine; emergency requests jump the queue.
type Machine struct {
	mu      sync.RWMutex
	current entity.Session

	normal    chan request
	emergency chan request
	stopped   chan struct{}
	stopOnce  sync.Once

	store     Persister
	observers []Observer
	logger    logger.ILogger
	now       func() time.Time
}

func NewMachine(initial entity.Session, store Persister, log logger.ILogger, observers ...Observer) *Machine {
	return &Machine{
		current:   initial,
		normal:    make(chan request, 64),
		emergency: make(chan request, 8),
		stopped:   make(chan struct{}),
		store:     store,
		observers: observers,
		logger:    log,
		now:       time.Now,
	}
}

// Current returns a consistent copy of the session.
func (m *Machine) Current() entity.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Run services requests until ctx ends.
func (m *Machine) Run(ctx context.Context) error {
	defer m.stopOnce.Do(func() { close(m.stopped) })

	m.logger.Info(module, "Mode machine started", map[string]interface{}{
		"mode":    m.Current().CurrentMode,
		"version": m.Current().Version,
	})

	for {
		select {
		case r := <-m.emergency:
			m.handle(r)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			m.logger.Info(module, "Mode machine stopped", nil)
			return nil
		case r := <-m.emergency:
			m.handle(r)
		case r := <-m.normal:
			m.handle(r)
		}
	}
}

// Transition applies mutate in arrival order. If ctx ends before the request
// is serviced the mutation is skipped; once committed it stands.
func (m *Machine) Transition(ctx context.Context, mutate Mutation) (entity.Session, error) {
	return m.submit(ctx, m.normal, request{ctx: ctx, mutate: mutate})
}

// Emergency applies mutate ahead of every queued normal request. Cancelling
// ctx has no effect; only a stopped machine ends the wait.
func (m *Machine) Emergency(ctx context.Context, mutate Mutation) (entity.Session, error) {
	ctx = context.WithoutCancel(ctx)
	return m.submit(ctx, m.emergency, request{ctx: ctx, mutate: mutate, emergency: true})
}

func (m *Machine) submit(ctx context.Context, queue chan request, r request) (entity.Session, error) {
	r.reply = make(chan response, 1)

	select {
	case queue <- r:
	case <-ctx.Done():
		return m.Current(), apperr.Wrap(ctx.Err(), apperr.CodeCancelled, "transition cancelled before it was queued")
	case <-m.stopped:
		return m.Current(), ErrStopped
	}

	select {
	case resp := <-r.reply:
		return resp.session, resp.err
	case <-m.stopped:
		return m.Current(), ErrStopped
	}
}

func (m *Machine) handle(r request) {
	if err := r.ctx.Err(); err != nil {
		r.reply <- response{session: m.Current(), err: apperr.Wrap(err, apperr.CodeCancelled, "transition cancelled")}
		return
	}

	prev := m.Current()
	next, err := r.mutate(prev)
	if err != nil {
		r.reply <- response{session: prev, err: err}
		return
	}
	if next == prev {
		r.reply <- response{session: prev}
		return
	}

	now := m.now()
	next.Version = prev.Version + 1
	next.UpdatedAt = now
	if next.CurrentMode != prev.CurrentMode {
		next.EnteredAt = now
	}
	if err := next.Validate(); err != nil {
		r.reply <- response{session: prev, err: apperr.Wrap(err, apperr.CodeInternal, "transition would break session invariants")}
		return
	}

	m.mu.Lock()
	m.current = next
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(context.WithoutCancel(r.ctx), next); err != nil {
			m.logger.Warn(module, "Session committed without durable write", map[string]interface{}{
				"version": next.Version,
				"error":   err.Error(),
			})
		}
	}

	if next.CurrentMode != prev.CurrentMode {
		m.logger.Info(module, "Mode changed", map[string]interface{}{
			"from":      prev.CurrentMode,
			"to":        next.CurrentMode,
			"version":   next.Version,
			"emergency": r.emergency,
		})
	}

	for _, o := range m.observers {
		o.Committed(prev, next)
	}

	r.reply <- response{session: next}
}
