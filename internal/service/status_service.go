package service

import (
	"context"
	"time"

	"helmet-orchestrator-be/internal/dto"
	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/repository/contract"
	"helmet-orchestrator-be/internal/repository/specification"
	"helmet-orchestrator-be/pkg/broadcast"
	"helmet-orchestrator-be/pkg/gateway"
)

type SessionReader interface {
	Current() entity.Session
}

type PendingReporter interface {
	Pending() bool
}

type IStatusService interface {
	Snapshot() entity.StatusSnapshot
	Subscribe(ctx context.Context) *broadcast.Subscription
	Health() *dto.HealthResponse
	TelemetryHistory(ctx context.Context, req *dto.TelemetryHistoryRequest) ([]*dto.TelemetryLogResponse, error)
}

type statusService struct {
	board     *broadcast.Broadcaster
	session   SessionReader
	health    *gateway.Health
	store     PendingReporter
	telemetry contract.TelemetryLogRepository
}

// NewStatusService accepts a nil store or telemetry log when those are not configured.
func NewStatusService(
	board *broadcast.Broadcaster,
	session SessionReader,
	health *gateway.Health,
	store PendingReporter,
	telemetry contract.TelemetryLogRepository,
) IStatusService {
	return &statusService{
		board:     board,
		session:   session,
		health:    health,
		store:     store,
		telemetry: telemetry,
	}
}

func (s *statusService) Snapshot() entity.StatusSnapshot {
	return s.board.Snapshot()
}

func (s *statusService) Subscribe(ctx context.Context) *broadcast.Subscription {
	return s.board.Subscribe(ctx)
}

func (s *statusService) Health() *dto.HealthResponse {
	degraded := s.health.Degraded()
	status := "ok"
	if len(degraded) > 0 {
		status = "degraded"
	}
	pending := false
	if s.store != nil {
		pending = s.store.Pending()
	}
	return &dto.HealthResponse{
		Status:      status,
		Mode:        string(s.session.Current().CurrentMode),
		Degraded:    degraded,
		Subscribers: s.board.SubscriberCount(),
		PendingSave: pending,
	}
}

func (s *statusService) TelemetryHistory(ctx context.Context, req *dto.TelemetryHistoryRequest) ([]*dto.TelemetryLogResponse, error) {
	if s.telemetry == nil {
		return nil, apperr.New(apperr.CodeDownstreamUnavailable, "telemetry log is not configured")
	}

	limit := req.Limit
	if limit == 0 {
		limit = 100
	}
	specs := []specification.Specification{
		specification.OrderBy{Field: "recorded_at", Desc: true},
		specification.Pagination{Limit: limit},
	}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return nil, apperr.ValidationFailed("since must be RFC 3339")
		}
		specs = append(specs, specification.RecordedSince{Since: since})
	}

	logs, err := s.telemetry.FindAll(ctx, specs...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodePersistenceError, "failed to read telemetry log")
	}

	out := make([]*dto.TelemetryLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, &dto.TelemetryLogResponse{
			CPUPercent:     l.CPUPercent,
			MemPercent:     l.MemPercent,
			TemperatureC:   l.TemperatureC,
			BatteryPercent: l.BatteryPercent,
			RecordedAt:     l.RecordedAt,
		})
	}
	return out, nil
}
