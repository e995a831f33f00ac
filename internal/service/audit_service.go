package service

import (
	"context"
	"encoding/json"
	"time"

	"helmet-orchestrator-be/internal/dto"
	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/internal/repository/contract"
	"helmet-orchestrator-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	TopicCommandExecuted = "command.executed"
	TopicModeChanged     = "mode.changed"

	auditModule = "AuditService"
)

// EventPublisher forwards domain events off the device.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IAuditService records executed commands and mode changes on the in-process
// bus, and drains the bus into the command log and the event stream.
type IAuditService interface {
	Record(ctx context.Context, cmd entity.Command, result entity.CommandResult)
	Committed(prev, next entity.Session)
	Consume(ctx context.Context) error
}

type auditService struct {
	pubSub    *gochannel.GoChannel
	logs      contract.CommandLogRepository
	publisher EventPublisher
	logger    logger.ILogger
}

// NewAuditService accepts nil logs or publisher when that sink is disabled.
func NewAuditService(
	pubSub *gochannel.GoChannel,
	logs contract.CommandLogRepository,
	publisher EventPublisher,
	log logger.ILogger,
) IAuditService {
	return &auditService{
		pubSub:    pubSub,
		logs:      logs,
		publisher: publisher,
		logger:    log,
	}
}

func (s *auditService) Record(_ context.Context, cmd entity.Command, result entity.CommandResult) {
	s.publish(TopicCommandExecuted, dto.CommandExecutedMessage{Command: cmd, Result: result})
}

func (s *auditService) Committed(prev, next entity.Session) {
	if prev.CurrentMode == next.CurrentMode {
		return
	}
	s.publish(TopicModeChanged, dto.ModeChangedMessage{Previous: prev, Next: next})
}

func (s *auditService) publish(topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(auditModule, "Failed to marshal audit message", map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		})
		return
	}
	if err := s.pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		s.logger.Warn(auditModule, "Failed to publish audit message", map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		})
	}
}

func (s *auditService) Consume(ctx context.Context) error {
	commands, err := s.pubSub.Subscribe(ctx, TopicCommandExecuted)
	if err != nil {
		return err
	}
	modes, err := s.pubSub.Subscribe(ctx, TopicModeChanged)
	if err != nil {
		return err
	}

	go func() {
		for msg := range commands {
			s.processCommand(ctx, msg)
		}
	}()
	go func() {
		for msg := range modes {
			s.processModeChange(ctx, msg)
		}
	}()

	return nil
}

// Audit sinks are best effort: every message is acked so a broken database
// cannot stall the bus.
func (s *auditService) processCommand(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.CommandExecutedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error(auditModule, "Failed to unmarshal command message", map[string]interface{}{"error": err.Error()})
		return
	}
	cmd, res := payload.Command, payload.Result

	if s.logs != nil {
		entry := &entity.CommandLog{
			Id:         uuid.New(),
			CommandID:  cmd.ID,
			Kind:       string(cmd.Kind),
			Source:     string(cmd.Source),
			Status:     string(res.Status),
			Code:       string(res.Code),
			Message:    res.Message,
			Parameters: cmd.Parameters,
			Mode:       string(res.Session.CurrentMode),
			CreatedAt:  res.CompletedAt,
		}
		if err := s.logs.Create(ctx, entry); err != nil {
			s.logger.Warn(auditModule, "Failed to write command log", map[string]interface{}{
				"command_id": cmd.ID,
				"error":      err.Error(),
			})
		}
	}

	s.forward(ctx, events.CommandExecuted(cmd, res))
}

func (s *auditService) processModeChange(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.ModeChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error(auditModule, "Failed to unmarshal mode message", map[string]interface{}{"error": err.Error()})
		return
	}
	s.forward(ctx, events.ModeChanged(payload.Previous, payload.Next))
}

func (s *auditService) forward(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn(auditModule, "Failed to forward event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
