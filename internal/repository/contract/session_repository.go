package contract

import (
	"context"
	"errors"

	"helmet-orchestrator-be/internal/entity"
)

// ErrSessionNotFound is returned by Get when nothing has been saved yet.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists the single device session record.
type SessionRepository interface {
	Get(ctx context.Context) (*entity.Session, error)
	Save(ctx context.Context, session *entity.Session) error
}
