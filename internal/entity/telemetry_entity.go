package entity

import "time"

const (
	MetricCPU         = "cpu"
	MetricMemory      = "memory"
	MetricTemperature = "temperature"
	MetricBattery     = "battery"
)

// TelemetrySample is the latest device health reading.
type TelemetrySample struct {
	CPUPercent          float64   `json:"cpu_percent"`
	MemPercent          float64   `json:"mem_percent"`
	TemperatureC        float64   `json:"temperature_c"`
	BatteryPercent      float64   `json:"battery_percent"`
	Timestamp           time.Time `json:"timestamp"`
	Stale               []string  `json:"stale,omitempty"`
	ThermalTrendCPerMin float64   `json:"thermal_trend_c_per_min"`
	ThermalAlarm        bool      `json:"thermal_alarm"`
}

func (t TelemetrySample) IsStale(metric string) bool {
	for _, m := range t.Stale {
		if m == metric {
			return true
		}
	}
	return false
}

// TelemetryLog is a persisted telemetry reading.
type TelemetryLog struct {
	Id             int64
	CPUPercent     float64
	MemPercent     float64
	TemperatureC   float64
	BatteryPercent float64
	RecordedAt     time.Time
}
