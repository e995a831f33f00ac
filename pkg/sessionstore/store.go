package sessionstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/internal/repository/contract"

	"github.com/cenkalti/backoff/v5"
)

const module = "SessionStore"

type Options struct {
	WriteTimeout time.Duration
	RetryInitial time.Duration
	RetryMax     time.Duration
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 500 * time.Millisecond
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = 200 * time.Millisecond
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 10 * time.Second
	}
	return o
}

// Store is write-behind persistence for the device session. The in-memory
// session held by the mode machine stays authoritative; a failed write is
// parked here and retried in the background by Run.
type Store struct {
	repo   contract.SessionRepository
	logger logger.ILogger
	opts   Options

	writeMu     sync.Mutex
	lastWritten uint64
	hasWritten  bool

	mu      sync.Mutex
	pending *entity.Session
	wake    chan struct{}
	now     func() time.Time
}

func New(repo contract.SessionRepository, log logger.ILogger, opts Options) *Store {
	return &Store{
		repo:   repo,
		logger: log,
		opts:   opts.withDefaults(),
		wake:   make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Load returns the last saved session. found is false when nothing was
// saved; the default Normal session is returned in that case and on error.
func (s *Store) Load(ctx context.Context) (session entity.Session, found bool, err error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, contract.ErrSessionNotFound) {
			return entity.NewSession(s.now()), false, nil
		}
		return entity.NewSession(s.now()), false, apperr.Wrap(err, apperr.CodePersistenceError, "load session")
	}

	restored := stored.Normalize()
	if err := restored.Validate(); err != nil {
		return entity.NewSession(s.now()), false, apperr.Wrap(err, apperr.CodePersistenceError, "stored session is invalid")
	}

	s.writeMu.Lock()
	s.lastWritten = restored.Version
	s.hasWritten = true
	s.writeMu.Unlock()

	return restored, true, nil
}

// Save makes one bounded write attempt. On failure the session is queued
// for background retry and a PERSISTENCE_ERROR is returned for logging; the
// caller must not roll back its in-memory commit.
func (s *Store) Save(ctx context.Context, session entity.Session) error {
	wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()

	err := s.write(wctx, session)
	if err == nil {
		return nil
	}

	s.park(session)
	s.logger.Warn(module, "Session write failed, retrying in background", map[string]interface{}{
		"version": session.Version,
		"error":   err.Error(),
	})
	return apperr.Wrap(err, apperr.CodePersistenceError, "session save deferred")
}

// Pending reports whether a session is waiting to be written.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Run drives the background retry loop until ctx ends, then makes one last
// attempt to flush whatever is still pending.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return nil
		case <-s.wake:
		}

		for s.Pending() && ctx.Err() == nil {
			s.retry(ctx)
		}
	}
}

func (s *Store) retry(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryInitial
	b.MaxInterval = s.opts.RetryMax

	_, err := backoff.Retry(ctx, func() (uint64, error) {
		p := s.peek()
		if p == nil {
			return 0, nil
		}
		wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
		defer cancel()
		if err := s.write(wctx, *p); err != nil {
			return 0, err
		}
		return p.Version, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(time.Minute),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug(module, "Session retry scheduled", map[string]interface{}{
				"error": err.Error(),
				"next":  next.String(),
			})
		}),
	)
	if err != nil && ctx.Err() == nil {
		s.logger.Error(module, "Session still not persisted", map[string]interface{}{"error": err.Error()})
		return
	}
	if err == nil {
		s.logger.Info(module, "Deferred session persisted", nil)
	}
}

func (s *Store) flush() {
	p := s.peek()
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()
	if err := s.write(ctx, *p); err != nil {
		s.logger.Error(module, "Session lost on shutdown", map[string]interface{}{
			"version": p.Version,
			"error":   err.Error(),
		})
	}
}

// write persists session unless a newer version already landed.
func (s *Store) write(ctx context.Context, session entity.Session) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.hasWritten && session.Version < s.lastWritten {
		s.clearUpTo(session.Version)
		return nil
	}
	if err := s.repo.Save(ctx, &session); err != nil {
		return err
	}
	s.lastWritten = session.Version
	s.hasWritten = true
	s.clearUpTo(session.Version)
	return nil
}

func (s *Store) park(session entity.Session) {
	s.mu.Lock()
	if s.pending == nil || s.pending.Version <= session.Version {
		s.pending = &session
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) peek() *entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

func (s *Store) clearUpTo(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && s.pending.Version <= version {
		s.pending = nil
	}
}
