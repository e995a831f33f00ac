package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CommandLog struct {
	Id         uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CommandID  string            `gorm:"type:varchar(128);not null;index"`
	Kind       string            `gorm:"type:varchar(40);not null;index"`
	Source     string            `gorm:"type:varchar(20);not null"`
	Status     string            `gorm:"type:varchar(20);not null;index"`
	Code       *string           `gorm:"type:varchar(40)"`
	Message    string            `gorm:"type:text"`
	Parameters datatypes.JSONMap `gorm:"type:jsonb"`
	Mode       string            `gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time         `gorm:"default:now();not null;index"`
}

func (CommandLog) TableName() string {
	return "command_logs"
}
