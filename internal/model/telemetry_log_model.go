package model

import "time"

type TelemetryLog struct {
	Id             int64     `gorm:"primaryKey;autoIncrement"`
	CPUPercent     float64   `gorm:"column:cpu_percent"`
	MemPercent     float64   `gorm:"column:mem_percent"`
	TemperatureC   float64   `gorm:"column:temperature_c"`
	BatteryPercent float64   `gorm:"column:battery_percent"`
	RecordedAt     time.Time `gorm:"not null;index"`
}

func (TelemetryLog) TableName() string {
	return "telemetry_logs"
}
