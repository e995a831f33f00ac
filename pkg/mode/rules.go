package mode

import (
	"math"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
)

// Mutation computes the next session from the current one. Returning an
// error rejects the transition and leaves the session untouched.
type Mutation func(current entity.Session) (entity.Session, error)

// SetMode moves between non-emergency modes.
func SetMode(target entity.Mode) Mutation {
	return func(s entity.Session) (entity.Session, error) {
		if !target.IsValid() {
			return s, apperr.InvalidArgument("unknown mode %q", target)
		}
		if target == entity.ModeEmergency {
			return s, apperr.InvalidArgument("emergency is entered with emergency_activate")
		}
		if s.CurrentMode == entity.ModeEmergency {
			return s, apperr.StateConflict("emergency mode can only be exited by an operator")
		}
		s.CurrentMode = target
		return s, nil
	}
}

// ActivateEmergency is accepted from every mode.
func ActivateEmergency() Mutation {
	return func(s entity.Session) (entity.Session, error) {
		s.CurrentMode = entity.ModeEmergency
		return s, nil
	}
}

// ExitEmergency leaves emergency mode. Only operators may issue it.
func ExitEmergency(target entity.Mode, source entity.CommandSource) Mutation {
	return func(s entity.Session) (entity.Session, error) {
		if s.CurrentMode != entity.ModeEmergency {
			return s, apperr.StateConflict("not in emergency mode")
		}
		if source != entity.SourceOperator {
			return s, apperr.PermissionDenied("exit_emergency requires an operator")
		}
		if !target.IsValid() || target == entity.ModeEmergency {
			return s, apperr.InvalidArgument("invalid exit mode %q", target)
		}
		s.CurrentMode = target
		return s, nil
	}
}

func StartRecording(recordingID string) Mutation {
	return func(s entity.Session) (entity.Session, error) {
		if s.RecordingActive {
			return s, apperr.StateConflict("recording %s already active", s.ActiveRecordingID)
		}
		if recordingID == "" {
			return s, apperr.ValidationFailed("recording id is required")
		}
		s.RecordingActive = true
		s.ActiveRecordingID = recordingID
		return s, nil
	}
}

// StopRecording clears the active recording. A non-empty recordingID must
// match the active one.
func StopRecording(recordingID string) Mutation {
	return func(s entity.Session) (entity.Session, error) {
		if !s.RecordingActive {
			return s, apperr.StateConflict("no recording in progress")
		}
		if recordingID != "" && recordingID != s.ActiveRecordingID {
			return s, apperr.StateConflict("recording %s is no longer active", recordingID)
		}
		s.RecordingActive = false
		s.ActiveRecordingID = ""
		return s, nil
	}
}

// AdjustBrightness steps brightness by 10 within [10, 100].
func AdjustBrightness(direction string) Mutation {
	return func(s entity.Session) (entity.Session, error) {
		switch direction {
		case "up":
			s.Brightness = min(entity.MaxBrightness, s.Brightness+10)
		case "down":
			s.Brightness = max(entity.MinBrightness, s.Brightness-10)
		default:
			return s, apperr.ValidationFailed("brightness direction must be up or down")
		}
		return s, nil
	}
}

// AdjustZoom scales zoom by 1.2 within [0.5, 5.0].
func AdjustZoom(direction string) Mutation {
	return func(s entity.Session) (entity.Session, error) {
		switch direction {
		case "in":
			s.ZoomLevel = math.Min(entity.MaxZoom, s.ZoomLevel*1.2)
		case "out":
			s.ZoomLevel = math.Max(entity.MinZoom, s.ZoomLevel/1.2)
		default:
			return s, apperr.ValidationFailed("zoom direction must be in or out")
		}
		s.ZoomLevel = math.Round(s.ZoomLevel*1000) / 1000
		return s, nil
	}
}

// ApplyOverlay updates the visor UI flags for one overlay command.
func ApplyOverlay(command string) Mutation {
	return func(s entity.Session) (entity.Session, error) {
		switch command {
		case entity.OverlayShowHUD:
			s.Overlays.HUDHidden = false
		case entity.OverlayShowDetections:
			s.Overlays.DetectionsHidden = false
		case entity.OverlayShowCrosshair:
			s.Overlays.Crosshair = true
		case entity.OverlayHideAll:
			s.Overlays = entity.Overlays{HUDHidden: true, DetectionsHidden: true}
		default:
			return s, apperr.ValidationFailed("unknown ui command %q", command)
		}
		return s, nil
	}
}
