package service

import (
	"context"
	"errors"
	"time"

	"helmet-orchestrator-be/internal/dto"
	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/internal/repository/contract"
	"helmet-orchestrator-be/internal/repository/specification"
	"helmet-orchestrator-be/pkg/gateway"
	"helmet-orchestrator-be/pkg/intent"

	"github.com/google/uuid"
)

const (
	commandModule = "CommandService"

	pleaseRepeat = "Sorry, I didn't understand. Please repeat."
)

type CommandExecutor interface {
	Execute(ctx context.Context, cmd entity.Command) entity.CommandResult
}

type IntentRouter interface {
	Resolve(in entity.Intent, source entity.CommandSource) (intent.Decision, error)
}

type ICommandService interface {
	Execute(ctx context.Context, req *dto.ExecuteCommandRequest, source entity.CommandSource) (*dto.ExecuteCommandResponse, error)
	RouteIntent(ctx context.Context, req *dto.RouteIntentRequest, source entity.CommandSource) (*dto.RouteIntentResponse, error)
	HandleVoiceIntent(ctx context.Context, in entity.Intent) (*dto.RouteIntentResponse, error)
	ListLogs(ctx context.Context, req *dto.CommandLogListRequest) ([]*dto.CommandLogResponse, error)
}

type commandService struct {
	executor CommandExecutor
	router   IntentRouter
	voice    gateway.Voice
	logs     contract.CommandLogRepository
	logger   logger.ILogger
}

// NewCommandService accepts a nil voice client or log repository when those
// collaborators are not configured.
func NewCommandService(
	executor CommandExecutor,
	router IntentRouter,
	voice gateway.Voice,
	logs contract.CommandLogRepository,
	log logger.ILogger,
) ICommandService {
	return &commandService{
		executor: executor,
		router:   router,
		voice:    voice,
		logs:     logs,
		logger:   log,
	}
}

func (s *commandService) Execute(ctx context.Context, req *dto.ExecuteCommandRequest, source entity.CommandSource) (*dto.ExecuteCommandResponse, error) {
	id := req.Id
	if id == "" {
		id = uuid.NewString()
	}

	res := s.executor.Execute(ctx, entity.Command{
		ID:         id,
		Kind:       entity.CommandKind(req.Kind),
		Parameters: req.Parameters,
		IssuedAt:   time.Now(),
		Source:     source,
	})
	return dto.NewExecuteCommandResponse(res), nil
}

func (s *commandService) RouteIntent(ctx context.Context, req *dto.RouteIntentRequest, source entity.CommandSource) (*dto.RouteIntentResponse, error) {
	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	return s.route(ctx, entity.Intent{
		ID:         req.Id,
		Name:       req.Name,
		Confidence: confidence,
		RawText:    req.Text,
		Parameters: req.Parameters,
		ReceivedAt: time.Now(),
	}, source, false)
}

// HandleVoiceIntent routes an intent heard by the voice collaborator and
// speaks the outcome back to the wearer.
func (s *commandService) HandleVoiceIntent(ctx context.Context, in entity.Intent) (*dto.RouteIntentResponse, error) {
	return s.route(ctx, in, entity.SourceVoice, true)
}

func (s *commandService) route(ctx context.Context, in entity.Intent, source entity.CommandSource, speak bool) (*dto.RouteIntentResponse, error) {
	decision, err := s.router.Resolve(in, source)
	if err != nil {
		s.logger.Info(commandModule, "Intent not recognized", map[string]interface{}{
			"intent":     in.Name,
			"text":       in.RawText,
			"confidence": in.Confidence,
		})
		if speak {
			s.say(ctx, pleaseRepeat)
		}
		return nil, err
	}

	res := s.executor.Execute(ctx, decision.Command)
	if speak {
		s.say(ctx, confirmation(decision, res))
	}

	return &dto.RouteIntentResponse{
		Intent:  decision.Rule,
		Command: decision.Command,
		Result:  dto.NewExecuteCommandResponse(res),
	}, nil
}

func confirmation(d intent.Decision, res entity.CommandResult) string {
	switch {
	case !res.Accepted():
		return "Command failed: " + res.Message
	case d.Confirmation != "":
		return d.Confirmation
	default:
		return res.Message
	}
}

func (s *commandService) say(ctx context.Context, text string) {
	if s.voice == nil || text == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.voice.Speak(ctx, text); err != nil {
		s.logger.Warn(commandModule, "Failed to speak confirmation", map[string]interface{}{"error": err.Error()})
	}
}

func (s *commandService) ListLogs(ctx context.Context, req *dto.CommandLogListRequest) ([]*dto.CommandLogResponse, error) {
	if s.logs == nil {
		return nil, apperr.New(apperr.CodeDownstreamUnavailable, "command log is not configured")
	}

	limit := req.Limit
	if limit == 0 {
		limit = 50
	}
	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	}
	if req.Status != "" {
		specs = append(specs, specification.Filter("status", req.Status))
	}
	if req.Kind != "" {
		specs = append(specs, specification.Filter("kind", req.Kind))
	}
	if req.CommandId != "" {
		specs = append(specs, specification.ByCommandID{CommandID: req.CommandId})
	}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return nil, apperr.ValidationFailed("since must be RFC 3339")
		}
		specs = append(specs, specification.CreatedSince{Since: since})
	}

	logs, err := s.logs.FindAll(ctx, specs...)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodePersistenceError, "failed to read command log")
	}

	out := make([]*dto.CommandLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, &dto.CommandLogResponse{
			CommandId:  l.CommandID,
			Kind:       l.Kind,
			Source:     l.Source,
			Status:     l.Status,
			Code:       l.Code,
			Message:    l.Message,
			Parameters: l.Parameters,
			Mode:       l.Mode,
			CreatedAt:  l.CreatedAt,
		})
	}
	return out, nil
}

// IsUnrecognized reports whether err came from the intent router.
func IsUnrecognized(err error) bool {
	return errors.Is(err, intent.ErrUnrecognized)
}
