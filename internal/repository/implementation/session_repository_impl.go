package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

type SessionRepositoryImpl struct {
	rdb *redis.Client
	key string
}

func NewSessionRepository(rdb *redis.Client, key string) contract.SessionRepository {
	return &SessionRepositoryImpl{
		rdb: rdb,
		key: key,
	}
}

func (r *SessionRepositoryImpl) Get(ctx context.Context) (*entity.Session, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, contract.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, session *entity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
