package entity

import (
	"fmt"
	"time"
)

const (
	DefaultBrightness = 100
	MinBrightness     = 10
	MaxBrightness     = 100
	DefaultZoom       = 1.0
	MinZoom           = 0.5
	MaxZoom           = 5.0
)

// Session is the durable record of current mode and recording state.
type Session struct {
	CurrentMode       Mode      `json:"current_mode"`
	EnteredAt         time.Time `json:"entered_at"`
	RecordingActive   bool      `json:"recording_active"`
	ActiveRecordingID string    `json:"active_recording_id,omitempty"`
	Brightness        int       `json:"brightness"`
	ZoomLevel         float64   `json:"zoom_level"`
	Overlays          Overlays  `json:"overlays"`
	Version           uint64    `json:"version"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Overlay commands the visor UI understands.
const (
	OverlayShowHUD        = "show_hud"
	OverlayShowDetections = "show_detections"
	OverlayShowCrosshair  = "show_crosshair"
	OverlayHideAll        = "hide_overlays"
)

// Overlays are the persisted visor UI flags. The zero value is the default
// layout: HUD and detection boxes shown, no crosshair.
type Overlays struct {
	HUDHidden        bool `json:"hud_hidden"`
	DetectionsHidden bool `json:"detections_hidden"`
	Crosshair        bool `json:"crosshair"`
}

func IsOverlayCommand(command string) bool {
	switch command {
	case OverlayShowHUD, OverlayShowDetections, OverlayShowCrosshair, OverlayHideAll:
		return true
	}
	return false
}

// NewSession returns the boot default: Normal mode, nothing recording.
func NewSession(now time.Time) Session {
	return Session{
		CurrentMode: ModeNormal,
		EnteredAt:   now,
		Brightness:  DefaultBrightness,
		ZoomLevel:   DefaultZoom,
		UpdatedAt:   now,
	}
}

// Validate checks the session invariants.
func (s Session) Validate() error {
	if !s.CurrentMode.IsValid() {
		return fmt.Errorf("invalid mode %q", s.CurrentMode)
	}
	if s.RecordingActive != (s.ActiveRecordingID != "") {
		return fmt.Errorf("recording flag %t does not match recording id %q", s.RecordingActive, s.ActiveRecordingID)
	}
	if s.Brightness < MinBrightness || s.Brightness > MaxBrightness {
		return fmt.Errorf("brightness %d out of range", s.Brightness)
	}
	if s.ZoomLevel < MinZoom || s.ZoomLevel > MaxZoom {
		return fmt.Errorf("zoom %.2f out of range", s.ZoomLevel)
	}
	return nil
}

// Normalize fills zero display fields of sessions persisted before they existed.
func (s Session) Normalize() Session {
	if s.Brightness == 0 {
		s.Brightness = DefaultBrightness
	}
	if s.ZoomLevel == 0 {
		s.ZoomLevel = DefaultZoom
	}
	if !s.CurrentMode.IsValid() {
		s.CurrentMode = ModeNormal
	}
	return s
}
