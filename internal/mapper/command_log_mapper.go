package mapper

import (
	"fmt"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/model"

	"gorm.io/datatypes"
)

type CommandLogMapper struct{}

func NewCommandLogMapper() *CommandLogMapper {
	return &CommandLogMapper{}
}

func (m *CommandLogMapper) ToEntity(l *model.CommandLog) *entity.CommandLog {
	if l == nil {
		return nil
	}

	var code string
	if l.Code != nil {
		code = *l.Code
	}

	var params map[string]string
	if len(l.Parameters) > 0 {
		params = make(map[string]string, len(l.Parameters))
		for k, v := range l.Parameters {
			params[k] = fmt.Sprint(v)
		}
	}

	return &entity.CommandLog{
		Id:         l.Id,
		CommandID:  l.CommandID,
		Kind:       l.Kind,
		Source:     l.Source,
		Status:     l.Status,
		Code:       code,
		Message:    l.Message,
		Parameters: params,
		Mode:       l.Mode,
		CreatedAt:  l.CreatedAt,
	}
}

func (m *CommandLogMapper) ToModel(l *entity.CommandLog) *model.CommandLog {
	if l == nil {
		return nil
	}

	var code *string
	if l.Code != "" {
		c := l.Code
		code = &c
	}

	var params datatypes.JSONMap
	if len(l.Parameters) > 0 {
		params = make(datatypes.JSONMap, len(l.Parameters))
		for k, v := range l.Parameters {
			params[k] = v
		}
	}

	return &model.CommandLog{
		Id:         l.Id,
		CommandID:  l.CommandID,
		Kind:       l.Kind,
		Source:     l.Source,
		Status:     l.Status,
		Code:       code,
		Message:    l.Message,
		Parameters: params,
		Mode:       l.Mode,
		CreatedAt:  l.CreatedAt,
	}
}

func (m *CommandLogMapper) ToEntities(models []*model.CommandLog) []*entity.CommandLog {
	out := make([]*entity.CommandLog, 0, len(models))
	for _, l := range models {
		out = append(out, m.ToEntity(l))
	}
	return out
}

type TelemetryLogMapper struct{}

func NewTelemetryLogMapper() *TelemetryLogMapper {
	return &TelemetryLogMapper{}
}

func (m *TelemetryLogMapper) ToEntity(l *model.TelemetryLog) *entity.TelemetryLog {
	if l == nil {
		return nil
	}
	return &entity.TelemetryLog{
		Id:             l.Id,
		CPUPercent:     l.CPUPercent,
		MemPercent:     l.MemPercent,
		TemperatureC:   l.TemperatureC,
		BatteryPercent: l.BatteryPercent,
		RecordedAt:     l.RecordedAt,
	}
}

func (m *TelemetryLogMapper) ToModel(l *entity.TelemetryLog) *model.TelemetryLog {
	if l == nil {
		return nil
	}
	return &model.TelemetryLog{
		Id:             l.Id,
		CPUPercent:     l.CPUPercent,
		MemPercent:     l.MemPercent,
		TemperatureC:   l.TemperatureC,
		BatteryPercent: l.BatteryPercent,
		RecordedAt:     l.RecordedAt,
	}
}

func (m *TelemetryLogMapper) ToEntities(models []*model.TelemetryLog) []*entity.TelemetryLog {
	out := make([]*entity.TelemetryLog, 0, len(models))
	for _, l := range models {
		out = append(out, m.ToEntity(l))
	}
	return out
}
