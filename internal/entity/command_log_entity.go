package entity

import (
	"time"

	"github.com/google/uuid"
)

// CommandLog is the audit record of one executed command.
type CommandLog struct {
	Id         uuid.UUID
	CommandID  string
	Kind       string
	Source     string
	Status     string
	Code       string
	Message    string
	Parameters map[string]string
	Mode       string
	CreatedAt  time.Time
}
