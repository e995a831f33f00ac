package intent

import (
	"errors"
	"fmt"
	"os"

	"helmet-orchestrator-be/internal/entity"

	"gopkg.in/yaml.v3"
)

// Rule maps an intent name or utterance patterns to a command template.
type Rule struct {
	Name         string             `yaml:"name"`
	Patterns     []string           `yaml:"patterns"`
	Command      entity.CommandKind `yaml:"command"`
	Parameters   map[string]string  `yaml:"parameters,omitempty"`
	Confirmation string             `yaml:"confirmation,omitempty"`
}

type table struct {
	Intents []Rule `yaml:"intents"`
}

// LoadRules reads an intent table. A missing file yields DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultRules(), nil
		}
		return nil, fmt.Errorf("read intent table: %w", err)
	}

	var t table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse intent table %s: %w", path, err)
	}
	if len(t.Intents) == 0 {
		return nil, fmt.Errorf("intent table %s has no intents", path)
	}
	return t.Intents, nil
}

// DefaultRules is the built-in voice vocabulary.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:         "toggle_night_mode",
			Patterns:     []string{`toggle night.*mode`, `night.*vision`, `low.*light.*mode`, `dark.*mode`},
			Command:      entity.CommandSetMode,
			Parameters:   map[string]string{"mode": string(entity.ModeNightVision)},
			Confirmation: "Night vision active",
		},
		{
			Name:         "show_navigation",
			Patterns:     []string{`show.*nav`, `navigation.*mode`, `compass.*mode`},
			Command:      entity.CommandSetMode,
			Parameters:   map[string]string{"mode": string(entity.ModeNavigation)},
			Confirmation: "Navigation mode active",
		},
		{
			Name:         "normal_mode",
			Patterns:     []string{`normal.*mode`, `default.*mode`, `regular.*mode`},
			Command:      entity.CommandSetMode,
			Parameters:   map[string]string{"mode": string(entity.ModeNormal)},
			Confirmation: "Normal mode",
		},
		{
			Name:         "start_recording",
			Patterns:     []string{`start.*record`, `begin.*record`, `record.*video`},
			Command:      entity.CommandStartRecording,
			Confirmation: "Recording started",
		},
		{
			Name:         "stop_recording",
			Patterns:     []string{`stop.*record`, `end.*record`, `finish.*record`},
			Command:      entity.CommandStopRecording,
			Confirmation: "Recording stopped",
		},
		{
			Name:         "take_screenshot",
			Patterns:     []string{`take.*screenshot`, `capture.*screen`, `snap.*photo`},
			Command:      entity.CommandSnapshot,
			Confirmation: "Snapshot saved",
		},
		{
			Name:         "mark_target",
			Patterns:     []string{`mark.*target(?: at (?P<x>[01](?:\.\d+)?) (?P<y>[01](?:\.\d+)?))?`},
			Command:      entity.CommandMarkTarget,
			Confirmation: "Target marked",
		},
		{
			Name:         "emergency",
			Patterns:     []string{`emergency`, `mayday`, `help me`},
			Command:      entity.CommandEmergencyActivate,
			Confirmation: "Emergency mode activated",
		},
		{
			Name:     "system_status",
			Patterns: []string{`system.*status`, `status.*report`, `how.*system`},
			Command:  entity.CommandQueryStatus,
		},
		{
			Name:         "brightness_up",
			Patterns:     []string{`brighter`, `increase.*brightness`, `brightness.*up`},
			Command:      entity.CommandAdjustBrightness,
			Parameters:   map[string]string{"direction": "up"},
			Confirmation: "Brightness increased",
		},
		{
			Name:         "brightness_down",
			Patterns:     []string{`dimmer`, `decrease.*brightness`, `brightness.*down`},
			Command:      entity.CommandAdjustBrightness,
			Parameters:   map[string]string{"direction": "down"},
			Confirmation: "Brightness decreased",
		},
		{
			Name:     "zoom",
			Patterns: []string{`zoom (?P<direction>in|out)`},
			Command:  entity.CommandAdjustZoom,
		},
		{
			Name:     "describe_scene",
			Patterns: []string{`what.*(?:see|front of me)`, `describe.*(?:scene|view|surroundings)`, `what'?s around`},
			Command:  entity.CommandDescribeScene,
		},
		{
			Name:         "show_hud",
			Patterns:     []string{`show.*hud`, `hud.*on`},
			Command:      entity.CommandUICommand,
			Parameters:   map[string]string{"command": entity.OverlayShowHUD},
			Confirmation: "HUD shown",
		},
		{
			Name:         "show_detections",
			Patterns:     []string{`show.*detections?`, `show.*(?:boxes|objects)`},
			Command:      entity.CommandUICommand,
			Parameters:   map[string]string{"command": entity.OverlayShowDetections},
			Confirmation: "Detections shown",
		},
		{
			Name:         "show_crosshair",
			Patterns:     []string{`show.*crosshair`, `crosshair.*on`},
			Command:      entity.CommandUICommand,
			Parameters:   map[string]string{"command": entity.OverlayShowCrosshair},
			Confirmation: "Crosshair shown",
		},
		{
			Name:         "hide_overlays",
			Patterns:     []string{`hide.*(?:overlays?|hud|everything)`, `clear.*(?:screen|display)`},
			Command:      entity.CommandUICommand,
			Parameters:   map[string]string{"command": entity.OverlayHideAll},
			Confirmation: "Overlays hidden",
		},
	}
}
