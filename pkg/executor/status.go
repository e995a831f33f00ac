package executor

import (
	"errors"
	"strings"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/pkg/gateway"
)

const (
	cpuWarnPercent    = 80
	memoryWarnPercent = 80
	tempWarnCelsius   = 70
)

func (e *Executor) queryStatus() outcome {
	snap := e.status.Snapshot()
	snap.Session = e.machine.Current()
	snap.StatusMessage = entity.StatusMessage(snap.Session)

	warnings := systemWarnings(snap)
	message := snap.StatusMessage
	if len(warnings) > 0 {
		message += "; warnings: " + strings.Join(warnings, ", ")
	}
	return outcome{
		session:   snap.Session,
		committed: true,
		message:   message,
		data: map[string]interface{}{
			"status_message": snap.StatusMessage,
			"warnings":       warnings,
			"snapshot":       snap,
		},
	}
}

func systemWarnings(snap entity.StatusSnapshot) []string {
	t := snap.Telemetry
	warnings := []string{}
	if t.CPUPercent > cpuWarnPercent && !t.IsStale(entity.MetricCPU) {
		warnings = append(warnings, "High CPU usage")
	}
	if t.MemPercent > memoryWarnPercent && !t.IsStale(entity.MetricMemory) {
		warnings = append(warnings, "High memory usage")
	}
	if t.TemperatureC > tempWarnCelsius && !t.IsStale(entity.MetricTemperature) {
		warnings = append(warnings, "High temperature")
	}
	if t.ThermalAlarm {
		warnings = append(warnings, "Temperature rising rapidly")
	}
	for _, svc := range snap.Degraded {
		warnings = append(warnings, svc+" unavailable")
	}
	return warnings
}

// describeScene answers from the latest perception results in the status
// view. A stale perception stream is reported rather than described.
func (e *Executor) describeScene() (outcome, error) {
	if e.health.IsDegraded(gateway.ServicePerception) {
		return outcome{}, apperr.DownstreamUnavailable(gateway.ServicePerception,
			errors.New("no recent perception results"))
	}
	snap := e.status.Snapshot()
	description := entity.DescribeScene(snap.Detections, snap.CaptionText)
	return outcome{
		message: description,
		data: map[string]interface{}{
			"description": description,
			"detections":  snap.Detections.ByLabel,
			"caption":     snap.CaptionText,
		},
	}, nil
}
