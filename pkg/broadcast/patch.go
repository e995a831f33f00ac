package broadcast

import (
	"sort"

	"helmet-orchestrator-be/internal/entity"
)

// MaxTargets bounds the marked-target list carried in every snapshot.
const MaxTargets = 16

// Patch is a partial update merged into the current snapshot.
type Patch func(*entity.StatusSnapshot)

func WithSession(s entity.Session) Patch {
	return func(snap *entity.StatusSnapshot) {
		snap.Session = s
		snap.StatusMessage = entity.StatusMessage(s)
	}
}

func WithTelemetry(t entity.TelemetrySample) Patch {
	return func(snap *entity.StatusSnapshot) {
		snap.Telemetry = t
	}
}

func WithDetections(d entity.DetectionSummary) Patch {
	return func(snap *entity.StatusSnapshot) {
		snap.Detections = d
	}
}

func WithFrames(f entity.FrameStats) Patch {
	return func(snap *entity.StatusSnapshot) {
		snap.Frames = f
	}
}

func WithCaption(text string) Patch {
	return func(snap *entity.StatusSnapshot) {
		snap.CaptionText = text
	}
}

func WithProfile(name string) Patch {
	return func(snap *entity.StatusSnapshot) {
		snap.Profile = name
	}
}

// WithDegraded adds or removes a collaborator from the degraded set.
func WithDegraded(service string, degraded bool) Patch {
	return func(snap *entity.StatusSnapshot) {
		out := make([]string, 0, len(snap.Degraded)+1)
		for _, s := range snap.Degraded {
			if s != service {
				out = append(out, s)
			}
		}
		if degraded {
			out = append(out, service)
		}
		sort.Strings(out)
		if len(out) == 0 {
			out = nil
		}
		snap.Degraded = out
	}
}

// WithTarget appends a marked target, keeping the newest MaxTargets.
func WithTarget(t entity.Target) Patch {
	return func(snap *entity.StatusSnapshot) {
		targets := append(snap.Targets, t)
		if len(targets) > MaxTargets {
			targets = targets[len(targets)-MaxTargets:]
		}
		snap.Targets = targets
	}
}
