package contract

import (
	"context"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/repository/specification"
)

type CommandLogRepository interface {
	Create(ctx context.Context, log *entity.CommandLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CommandLog, error)
}

type TelemetryLogRepository interface {
	Create(ctx context.Context, log *entity.TelemetryLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TelemetryLog, error)
}
