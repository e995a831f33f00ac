package service

import (
	"context"
	"testing"
	"time"

	"helmet-orchestrator-be/internal/dto"
	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/repository/specification"
	"helmet-orchestrator-be/pkg/broadcast"
	"helmet-orchestrator-be/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSession struct{ s entity.Session }

func (s staticSession) Current() entity.Session { return s.s }

type pendingFlag bool

func (p pendingFlag) Pending() bool { return bool(p) }

type capturedTelemetry struct {
	rows  []*entity.TelemetryLog
	specs []specification.Specification
}

func (c *capturedTelemetry) Create(context.Context, *entity.TelemetryLog) error { return nil }

func (c *capturedTelemetry) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.TelemetryLog, error) {
	c.specs = specs
	return c.rows, nil
}

func TestHealthReportsDegradedAndPending(t *testing.T) {
	board := broadcast.New(broadcast.DefaultQueueDepth, "dev")
	health := gateway.NewHealth(nil)
	svc := NewStatusService(board, staticSession{entity.NewSession(time.Now())}, health, pendingFlag(true), nil)

	res := svc.Health()
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "normal", res.Mode)
	assert.True(t, res.PendingSave)

	health.MarkDegraded(gateway.ServicePerception)
	res = svc.Health()
	assert.Equal(t, "degraded", res.Status)
	assert.Equal(t, []string{gateway.ServicePerception}, res.Degraded)
}

func TestTelemetryHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	logs := &capturedTelemetry{rows: []*entity.TelemetryLog{{CPUPercent: 12, TemperatureC: 48, RecordedAt: at}}}
	svc := NewStatusService(broadcast.New(0, "dev"), staticSession{entity.NewSession(at)}, gateway.NewHealth(nil), nil, logs)

	res, err := svc.TelemetryHistory(context.Background(), &dto.TelemetryHistoryRequest{Since: "2026-03-01T09:00:00Z"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 48.0, res[0].TemperatureC)

	require.Len(t, logs.specs, 3)
	assert.Equal(t, specification.Pagination{Limit: 100}, logs.specs[1])
	assert.Equal(t, specification.RecordedSince{Since: at.Add(-time.Hour)}, logs.specs[2])

	_, err = svc.TelemetryHistory(context.Background(), &dto.TelemetryHistoryRequest{Since: "noon"})
	assert.Equal(t, apperr.CodeValidationFailed, apperr.GetCode(err))
}
