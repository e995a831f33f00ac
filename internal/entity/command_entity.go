package entity

import (
	"time"

	"helmet-orchestrator-be/internal/pkg/apperr"
)

// CommandKind is the closed set of actions the executor understands.
type CommandKind string

const (
	CommandSetMode           CommandKind = "set_mode"
	CommandStartRecording    CommandKind = "start_recording"
	CommandStopRecording     CommandKind = "stop_recording"
	CommandSnapshot          CommandKind = "snapshot"
	CommandSetROI            CommandKind = "set_roi"
	CommandEmergencyActivate CommandKind = "emergency_activate"
	CommandExitEmergency     CommandKind = "exit_emergency"
	CommandQueryStatus       CommandKind = "query_status"
	CommandAdjustBrightness  CommandKind = "adjust_brightness"
	CommandAdjustZoom        CommandKind = "adjust_zoom"
	CommandMarkTarget        CommandKind = "mark_target"
	CommandDescribeScene     CommandKind = "describe_scene"
	CommandUICommand         CommandKind = "ui_command"
)

var commandKinds = map[CommandKind]struct{}{
	CommandSetMode:           {},
	CommandStartRecording:    {},
	CommandStopRecording:     {},
	CommandSnapshot:          {},
	CommandSetROI:            {},
	CommandEmergencyActivate: {},
	CommandExitEmergency:     {},
	CommandQueryStatus:       {},
	CommandAdjustBrightness:  {},
	CommandAdjustZoom:        {},
	CommandMarkTarget:        {},
	CommandDescribeScene:     {},
	CommandUICommand:         {},
}

func (k CommandKind) IsValid() bool {
	_, ok := commandKinds[k]
	return ok
}

// CommandSource identifies who issued a command.
type CommandSource string

const (
	SourceOperator CommandSource = "operator"
	SourceVoice    CommandSource = "voice"
	SourceUI       CommandSource = "ui"
)

// Command is a structured, idempotent request. ID is the idempotency key.
type Command struct {
	ID         string            `json:"id"`
	Kind       CommandKind       `json:"kind"`
	Parameters map[string]string `json:"parameters,omitempty"`
	IssuedAt   time.Time         `json:"issued_at"`
	Source     CommandSource     `json:"source"`
}

// Param returns a parameter or the fallback when it is absent or blank.
func (c Command) Param(key, fallback string) string {
	if v, ok := c.Parameters[key]; ok && v != "" {
		return v
	}
	return fallback
}

type CommandStatus string

const (
	StatusAccepted CommandStatus = "accepted"
	StatusRejected CommandStatus = "rejected"
	StatusFailed   CommandStatus = "failed"
)

// CommandResult is the terminal outcome of executing a Command.
type CommandResult struct {
	CommandID   string                 `json:"command_id"`
	Status      CommandStatus          `json:"status"`
	Code        apperr.Code            `json:"code,omitempty"`
	Message     string                 `json:"message"`
	Session     Session                `json:"session"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

func (r CommandResult) Accepted() bool {
	return r.Status == StatusAccepted
}
