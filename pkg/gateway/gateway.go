// Package gateway holds the narrow client contracts for the external video,
// perception and voice collaborators. Implementations must be safe for
// concurrent use by several in-flight commands.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"helmet-orchestrator-be/internal/entity"
)

const (
	ServiceVideo      = "video"
	ServicePerception = "perception"
	ServiceVoice      = "voice"
)

// ErrRefused marks a reply in which the collaborator declined the request.
var ErrRefused = errors.New("request refused")

type Video interface {
	StartRecording(ctx context.Context) (recordingID string, err error)
	StopRecording(ctx context.Context, recordingID string) error
	Snapshot(ctx context.Context) (path string, err error)
	ApplyMode(ctx context.Context, mode entity.Mode) error
}

type Perception interface {
	SetROI(ctx context.Context, roi ROI) error
}

type Voice interface {
	Speak(ctx context.Context, text string) error
}

// Gateway bundles the collaborator clients owned by the executor.
type Gateway struct {
	Video      Video
	Perception Perception
	Voice      Voice
}

// ROI is a region of interest in normalized frame coordinates.
type ROI struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r ROI) Validate() error {
	if r.X < 0 || r.Y < 0 || r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("roi must have non-negative origin and positive size")
	}
	if r.X+r.Width > 1 || r.Y+r.Height > 1 {
		return fmt.Errorf("roi exceeds the normalized frame")
	}
	return nil
}
