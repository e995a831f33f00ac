package sessionstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/internal/repository/contract"
	"helmet-orchestrator-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRepository fails the first failures writes, then delegates.
type flakyRepository struct {
	mu       sync.Mutex
	inner    *memory.SessionRepository
	failures int
	getErr   error
	saves    []uint64
}

func (r *flakyRepository) Get(ctx context.Context) (*entity.Session, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.inner.Get(ctx)
}

func (r *flakyRepository) Save(ctx context.Context, s *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("redis: connection refused")
	}
	r.saves = append(r.saves, s.Version)
	return r.inner.Save(ctx, s)
}

func (r *flakyRepository) savedVersions() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.saves...)
}

func testOptions() Options {
	return Options{WriteTimeout: 100 * time.Millisecond, RetryInitial: 5 * time.Millisecond, RetryMax: 20 * time.Millisecond}
}

func session(version uint64, mode entity.Mode) entity.Session {
	s := entity.NewSession(time.Now())
	s.CurrentMode = mode
	s.Version = version
	return s
}

func TestLoadWithoutSavedSessionReturnsNormal(t *testing.T) {
	store := New(memory.NewSessionRepository("k"), logger.NewNopLogger(), testOptions())

	s, found, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, entity.ModeNormal, s.CurrentMode)
	assert.NoError(t, s.Validate())
}

func TestLoadReturnsLastSavedAfterRestart(t *testing.T) {
	repo := memory.NewSessionRepository("k")
	first := New(repo, logger.NewNopLogger(), testOptions())
	require.NoError(t, first.Save(context.Background(), session(1, entity.ModeNightVision)))
	require.NoError(t, first.Save(context.Background(), session(2, entity.ModeNavigation)))

	// simulated crash: a new store over the same backend
	restarted := New(repo, logger.NewNopLogger(), testOptions())
	s, found, err := restarted.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entity.ModeNavigation, s.CurrentMode)
	assert.Equal(t, uint64(2), s.Version)
}

func TestLoadBackendErrorFallsBackToDefault(t *testing.T) {
	repo := &flakyRepository{inner: memory.NewSessionRepository("k"), getErr: errors.New("dial tcp: refused")}
	store := New(repo, logger.NewNopLogger(), testOptions())

	s, found, err := store.Load(context.Background())
	assert.True(t, apperr.Is(err, apperr.CodePersistenceError))
	assert.False(t, found)
	assert.Equal(t, entity.ModeNormal, s.CurrentMode)
}

func TestFailedSaveIsRetriedInBackground(t *testing.T) {
	repo := &flakyRepository{inner: memory.NewSessionRepository("k"), failures: 3}
	store := New(repo, logger.NewNopLogger(), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = store.Run(ctx)
		close(done)
	}()

	err := store.Save(context.Background(), session(1, entity.ModeEmergency))
	assert.True(t, apperr.Is(err, apperr.CodePersistenceError))
	assert.True(t, store.Pending())

	require.Eventually(t, func() bool { return !store.Pending() }, 2*time.Second, 5*time.Millisecond)

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.ModeEmergency, got.CurrentMode)

	cancel()
	<-done
}

func TestNewerVersionWinsOverParkedOne(t *testing.T) {
	repo := &flakyRepository{inner: memory.NewSessionRepository("k"), failures: 1}
	store := New(repo, logger.NewNopLogger(), testOptions())

	require.Error(t, store.Save(context.Background(), session(1, entity.ModeNightVision)))
	require.NoError(t, store.Save(context.Background(), session(2, entity.ModeNavigation)))
	assert.False(t, store.Pending(), "newer successful write supersedes the parked session")

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = store.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Version)
	assert.Equal(t, []uint64{2}, repo.savedVersions())
}

func TestRunFlushesPendingOnShutdown(t *testing.T) {
	repo := &flakyRepository{inner: memory.NewSessionRepository("k"), failures: 1}
	store := New(repo, logger.NewNopLogger(), testOptions())

	require.Error(t, store.Save(context.Background(), session(5, entity.ModeNavigation)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, store.Run(ctx))

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Version)
	assert.False(t, store.Pending())
}

var _ contract.SessionRepository = (*flakyRepository)(nil)
