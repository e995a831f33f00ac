package memory

import (
	"context"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps the session in process memory. It is the fallback
// when Redis is unreachable and the backend used by tests.
type SessionRepository struct {
	cache *cache.Cache
	key   string
}

func NewSessionRepository(key string) *SessionRepository {
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
		key:   key,
	}
}

func (r *SessionRepository) Get(ctx context.Context) (*entity.Session, error) {
	if x, found := r.cache.Get(r.key); found {
		s := x.(entity.Session)
		return &s, nil
	}
	return nil, contract.ErrSessionNotFound
}

func (r *SessionRepository) Save(ctx context.Context, session *entity.Session) error {
	r.cache.Set(r.key, *session, cache.NoExpiration)
	return nil
}
