package dto

import "helmet-orchestrator-be/internal/entity"

// CommandExecutedMessage travels on the in-process audit bus.
type CommandExecutedMessage struct {
	Command entity.Command       `json:"command"`
	Result  entity.CommandResult `json:"result"`
}

type ModeChangedMessage struct {
	Previous entity.Session `json:"previous"`
	Next     entity.Session `json:"next"`
}
