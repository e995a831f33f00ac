package specification

import (
	"time"

	"gorm.io/gorm"
)

// ByCommandID filters audit rows of one command.
type ByCommandID struct {
	CommandID string
}

func (s ByCommandID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("command_id = ?", s.CommandID)
}

// CreatedSince filters rows created at or after Since.
type CreatedSince struct {
	Since time.Time
}

func (s CreatedSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at >= ?", s.Since)
}

// RecordedSince is CreatedSince for telemetry rows.
type RecordedSince struct {
	Since time.Time
}

func (s RecordedSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("recorded_at >= ?", s.Since)
}
