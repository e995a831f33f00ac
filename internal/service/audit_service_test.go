package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/internal/repository/specification"
	"helmet-orchestrator-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCommandLogs struct {
	mu   sync.Mutex
	logs []*entity.CommandLog
}

func (m *memoryCommandLogs) Create(_ context.Context, l *entity.CommandLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, l)
	return nil
}

func (m *memoryCommandLogs) FindAll(context.Context, ...specification.Specification) ([]*entity.CommandLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.CommandLog(nil), m.logs...), nil
}

func (m *memoryCommandLogs) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

type memoryEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *memoryEvents) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memoryEvents) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType())
	}
	return out
}

func newAudit(t *testing.T) (IAuditService, *memoryCommandLogs, *memoryEvents) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	logs := &memoryCommandLogs{}
	evts := &memoryEvents{}
	svc := NewAuditService(pubSub, logs, evts, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, svc.Consume(ctx))
	return svc, logs, evts
}

func TestRecordWritesCommandLogAndForwardsEvent(t *testing.T) {
	svc, logs, evts := newAudit(t)

	cmd := entity.Command{
		ID:         "c1",
		Kind:       entity.CommandSetMode,
		Parameters: map[string]string{"mode": "navigation"},
		Source:     entity.SourceVoice,
	}
	res := entity.CommandResult{
		CommandID:   "c1",
		Status:      entity.StatusRejected,
		Code:        "STATE_CONFLICT",
		Message:     "emergency mode can only be exited by an operator",
		Session:     entity.Session{CurrentMode: entity.ModeEmergency},
		CompletedAt: time.Now(),
	}
	svc.Record(context.Background(), cmd, res)

	require.Eventually(t, func() bool { return logs.len() == 1 }, time.Second, 5*time.Millisecond)
	stored, _ := logs.FindAll(context.Background())
	assert.Equal(t, "c1", stored[0].CommandID)
	assert.Equal(t, "rejected", stored[0].Status)
	assert.Equal(t, "STATE_CONFLICT", stored[0].Code)
	assert.Equal(t, "emergency", stored[0].Mode)
	assert.Equal(t, map[string]string{"mode": "navigation"}, stored[0].Parameters)

	require.Eventually(t, func() bool { return len(evts.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{events.TypeCommandExecuted}, evts.types())
}

func TestOnlyModeChangesAreForwarded(t *testing.T) {
	svc, _, evts := newAudit(t)

	prev := entity.NewSession(time.Now())
	recording := prev
	recording.RecordingActive = true
	recording.ActiveRecordingID = "rec-1"
	svc.Committed(prev, recording)

	night := recording
	night.CurrentMode = entity.ModeNightVision
	svc.Committed(recording, night)

	require.Eventually(t, func() bool { return len(evts.types()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{events.TypeModeChanged}, evts.types())
}
