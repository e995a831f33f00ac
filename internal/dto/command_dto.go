package dto

import (
	"time"

	"helmet-orchestrator-be/internal/entity"
)

type ExecuteCommandRequest struct {
	Id         string            `json:"id" validate:"omitempty,max=128"`
	Kind       string            `json:"kind" validate:"required"`
	Parameters map[string]string `json:"parameters"`
}

type ExecuteCommandResponse struct {
	CommandId   string                 `json:"command_id"`
	Status      string                 `json:"status"`
	Code        string                 `json:"code,omitempty"`
	Message     string                 `json:"message"`
	Session     entity.Session         `json:"session"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

func NewExecuteCommandResponse(res entity.CommandResult) *ExecuteCommandResponse {
	return &ExecuteCommandResponse{
		CommandId:   res.CommandID,
		Status:      string(res.Status),
		Code:        string(res.Code),
		Message:     res.Message,
		Session:     res.Session,
		Data:        res.Data,
		CompletedAt: res.CompletedAt,
	}
}

type RouteIntentRequest struct {
	Id         string            `json:"id" validate:"omitempty,max=128"`
	Name       string            `json:"name" validate:"required_without=Text"`
	Text       string            `json:"text" validate:"required_without=Name,max=512"`
	Confidence *float64          `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	Parameters map[string]string `json:"parameters"`
}

type RouteIntentResponse struct {
	Intent  string                  `json:"intent"`
	Command entity.Command          `json:"command"`
	Result  *ExecuteCommandResponse `json:"result"`
}

type CommandLogListRequest struct {
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Status    string `query:"status" validate:"omitempty,oneof=accepted rejected failed"`
	Kind      string `query:"kind"`
	CommandId string `query:"command_id" validate:"omitempty,max=128"`
	Since     string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type CommandLogResponse struct {
	CommandId  string            `json:"command_id"`
	Kind       string            `json:"kind"`
	Source     string            `json:"source"`
	Status     string            `json:"status"`
	Code       string            `json:"code,omitempty"`
	Message    string            `json:"message"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Mode       string            `json:"mode"`
	CreatedAt  time.Time         `json:"created_at"`
}

type TelemetryHistoryRequest struct {
	Limit int    `query:"limit" validate:"omitempty,min=1,max=1000"`
	Since string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type TelemetryLogResponse struct {
	CPUPercent     float64   `json:"cpu_percent"`
	MemPercent     float64   `json:"mem_percent"`
	TemperatureC   float64   `json:"temperature_c"`
	BatteryPercent float64   `json:"battery_percent"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type HealthResponse struct {
	Status      string   `json:"status"`
	Mode        string   `json:"mode"`
	Degraded    []string `json:"degraded"`
	Subscribers int      `json:"subscribers"`
	PendingSave bool     `json:"pending_save"`
}
