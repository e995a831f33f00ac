package events

import (
	"time"

	"helmet-orchestrator-be/internal/entity"
)

const (
	TypeModeChanged     = "mode.changed"
	TypeCommandExecuted = "command.executed"
)

// Event defines the contract for all domain events.
type Event interface {
	// EventType returns the subject suffix, e.g. "mode.changed".
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func ModeChanged(prev, next entity.Session) Event {
	return BaseEvent{
		Type: TypeModeChanged,
		Data: map[string]interface{}{
			"from":             prev.CurrentMode,
			"to":               next.CurrentMode,
			"version":          next.Version,
			"recording_active": next.RecordingActive,
			"entered_at":       next.EnteredAt,
		},
		OccurredAt: next.UpdatedAt,
	}
}

func CommandExecuted(cmd entity.Command, res entity.CommandResult) Event {
	data := map[string]interface{}{
		"command_id": cmd.ID,
		"kind":       cmd.Kind,
		"source":     cmd.Source,
		"parameters": cmd.Parameters,
		"status":     res.Status,
		"message":    res.Message,
		"mode":       res.Session.CurrentMode,
		"version":    res.Session.Version,
	}
	if res.Code != "" {
		data["code"] = res.Code
	}
	return BaseEvent{
		Type:       TypeCommandExecuted,
		Data:       data,
		OccurredAt: res.CompletedAt,
	}
}
