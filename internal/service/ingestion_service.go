package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"helmet-orchestrator-be/internal/config"
	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/pkg/broadcast"
	"helmet-orchestrator-be/pkg/gateway"
	pktNats "helmet-orchestrator-be/pkg/nats"
)

const ingestionModule = "IngestionService"

type MessageSubscriber interface {
	SubscribeCore(ctx context.Context, subject string, handler pktNats.MessageHandler) error
	SubscribeDurable(ctx context.Context, subject, durable string, handler pktNats.MessageHandler) error
}

type StatusPublisher interface {
	Publish(patches ...broadcast.Patch)
}

type detectionsMessage struct {
	FrameID    string             `json:"frame_id"`
	Detections []entity.Detection `json:"detections"`
	Timestamp  time.Time          `json:"timestamp"`
}

type captionMessage struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type frameMessage struct {
	FrameID   string    `json:"frame_id"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

type intentMessage struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"`
	Parameters map[string]string `json:"parameters"`
	Timestamp  time.Time         `json:"timestamp"`
}

// IIngestionService feeds collaborator streams into the status view and
// voice intents into the command path.
type IIngestionService interface {
	Start(ctx context.Context) error
	Run(ctx context.Context) error
}

type ingestionService struct {
	subscriber MessageSubscriber
	status     StatusPublisher
	health     *gateway.Health
	commands   ICommandService
	subjects   config.SubjectConfig
	staleAfter time.Duration
	logger     logger.ILogger

	mu             sync.Mutex
	lastPerception time.Time
	lastFrameAt    time.Time
	fps            float64
	now            func() time.Time
}

func NewIngestionService(
	subscriber MessageSubscriber,
	status StatusPublisher,
	health *gateway.Health,
	commands ICommandService,
	subjects config.SubjectConfig,
	staleAfter time.Duration,
	log logger.ILogger,
) IIngestionService {
	return &ingestionService{
		subscriber: subscriber,
		status:     status,
		health:     health,
		commands:   commands,
		subjects:   subjects,
		staleAfter: staleAfter,
		logger:     log,
		now:        time.Now,
	}
}

// Start registers every subscription.
func (s *ingestionService) Start(ctx context.Context) error {
	s.mu.Lock()
	s.lastPerception = s.now()
	s.mu.Unlock()

	if err := s.subscriber.SubscribeCore(ctx, s.subjects.Detections, s.handleDetections); err != nil {
		return err
	}
	if err := s.subscriber.SubscribeCore(ctx, s.subjects.Captions, s.handleCaption); err != nil {
		return err
	}
	if err := s.subscriber.SubscribeCore(ctx, s.subjects.Frames, s.handleFrame); err != nil {
		return err
	}
	return s.subscriber.SubscribeDurable(ctx, s.subjects.VoiceIntents, s.subjects.IntentDurable, s.handleIntent)
}

// Run marks perception degraded while it stays silent past the staleness window.
func (s *ingestionService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.staleAfter / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.checkPerception()
		}
	}
}

func (s *ingestionService) checkPerception() {
	s.mu.Lock()
	silent := s.now().Sub(s.lastPerception)
	s.mu.Unlock()

	if silent > s.staleAfter && !s.health.IsDegraded(gateway.ServicePerception) {
		s.logger.Warn(ingestionModule, "Perception stream is stale", map[string]interface{}{
			"silent_for": silent.String(),
		})
		s.health.MarkDegraded(gateway.ServicePerception)
	}
}

func (s *ingestionService) perceptionSeen() {
	s.mu.Lock()
	s.lastPerception = s.now()
	s.mu.Unlock()
	s.health.MarkHealthy(gateway.ServicePerception)
}

func (s *ingestionService) handleDetections(_ context.Context, msg pktNats.Message) error {
	var payload detectionsMessage
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	at := payload.Timestamp
	if at.IsZero() {
		at = msg.Received
	}
	s.perceptionSeen()
	s.status.Publish(broadcast.WithDetections(entity.Summarize(payload.FrameID, payload.Detections, at)))
	return nil
}

func (s *ingestionService) handleCaption(_ context.Context, msg pktNats.Message) error {
	var payload captionMessage
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	s.perceptionSeen()
	s.status.Publish(broadcast.WithCaption(payload.Text))
	return nil
}

// handleFrame derives FPS from arrival spacing, smoothed so one late frame
// does not swing the figure.
func (s *ingestionService) handleFrame(_ context.Context, msg pktNats.Message) error {
	var payload frameMessage
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	at := payload.Timestamp
	if at.IsZero() {
		at = msg.Received
	}

	s.mu.Lock()
	if !s.lastFrameAt.IsZero() {
		if dt := at.Sub(s.lastFrameAt).Seconds(); dt > 0 {
			instant := 1 / dt
			if s.fps == 0 {
				s.fps = instant
			} else {
				s.fps = 0.8*s.fps + 0.2*instant
			}
		}
	}
	s.lastFrameAt = at
	fps := s.fps
	s.mu.Unlock()

	s.status.Publish(broadcast.WithFrames(entity.FrameStats{
		FrameID:   payload.FrameID,
		FPS:       fps,
		Width:     payload.Width,
		Height:    payload.Height,
		UpdatedAt: at,
	}))
	return nil
}

func (s *ingestionService) handleIntent(ctx context.Context, msg pktNats.Message) error {
	var payload intentMessage
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	received := payload.Timestamp
	if received.IsZero() {
		received = msg.Received
	}

	id := payload.ID
	if id == "" && msg.Sequence != 0 {
		id = "seq-" + strconv.FormatUint(msg.Sequence, 10)
	}

	res, err := s.commands.HandleVoiceIntent(ctx, entity.Intent{
		ID:         id,
		Name:       payload.Name,
		Confidence: payload.Confidence,
		RawText:    payload.Text,
		Parameters: payload.Parameters,
		ReceivedAt: received,
	})
	if err != nil {
		// Unrecognized intents were already answered with a prompt to repeat.
		return nil
	}
	s.logger.Info(ingestionModule, "Voice command handled", map[string]interface{}{
		"intent":     res.Intent,
		"command_id": res.Command.ID,
		"status":     res.Result.Status,
	})
	return nil
}
