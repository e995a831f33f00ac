package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Detection is a single perception result for one frame.
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}

// DetectionSummary is the counts-by-label view of the latest detection list.
type DetectionSummary struct {
	FrameID   string         `json:"frame_id"`
	Total     int            `json:"total"`
	ByLabel   map[string]int `json:"by_label,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FrameStats is derived from video frame metadata.
type FrameStats struct {
	FrameID   string    `json:"frame_id"`
	FPS       float64   `json:"fps"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Target is a point marked by the wearer in normalized frame coordinates.
type Target struct {
	ID       int       `json:"id"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	MarkedAt time.Time `json:"marked_at"`
}

// StatusSnapshot is the merged, broadcast view of the device.
type StatusSnapshot struct {
	Session       Session          `json:"session"`
	Telemetry     TelemetrySample  `json:"telemetry"`
	Detections    DetectionSummary `json:"detections"`
	Frames        FrameStats       `json:"frames"`
	CaptionText   string           `json:"caption_text"`
	Profile       string           `json:"profile"`
	Degraded      []string         `json:"degraded,omitempty"`
	Targets       []Target         `json:"targets,omitempty"`
	StatusMessage string           `json:"status_message"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Clone returns a deep copy that shares no mutable state with s.
func (s StatusSnapshot) Clone() StatusSnapshot {
	out := s
	if s.Telemetry.Stale != nil {
		out.Telemetry.Stale = append([]string(nil), s.Telemetry.Stale...)
	}
	if s.Detections.ByLabel != nil {
		out.Detections.ByLabel = make(map[string]int, len(s.Detections.ByLabel))
		for k, v := range s.Detections.ByLabel {
			out.Detections.ByLabel[k] = v
		}
	}
	if s.Degraded != nil {
		out.Degraded = append([]string(nil), s.Degraded...)
	}
	if s.Targets != nil {
		out.Targets = append([]Target(nil), s.Targets...)
	}
	return out
}

// Summarize reduces a detection list to per-label counts.
func Summarize(frameID string, detections []Detection, at time.Time) DetectionSummary {
	byLabel := make(map[string]int, len(detections))
	for _, d := range detections {
		byLabel[d.Label]++
	}
	return DetectionSummary{
		FrameID:   frameID,
		Total:     len(detections),
		ByLabel:   byLabel,
		UpdatedAt: at,
	}
}

// StatusMessage renders the one-line HUD status for a session.
func StatusMessage(s Session) string {
	switch {
	case s.CurrentMode == ModeEmergency:
		return "EMERGENCY MODE ACTIVE"
	case s.RecordingActive:
		return "Recording in progress"
	case s.CurrentMode == ModeNightVision:
		return "Night vision active"
	case s.CurrentMode == ModeNavigation:
		return "Navigation mode active"
	default:
		return "System operational"
	}
}

// DescribeScene renders the detection counts and the latest caption as one
// spoken sentence, most frequent labels first.
func DescribeScene(d DetectionSummary, caption string) string {
	labels := make([]string, 0, len(d.ByLabel))
	for label, n := range d.ByLabel {
		if n > 0 {
			labels = append(labels, label)
		}
	}
	sort.Slice(labels, func(i, j int) bool {
		if d.ByLabel[labels[i]] != d.ByLabel[labels[j]] {
			return d.ByLabel[labels[i]] > d.ByLabel[labels[j]]
		}
		return labels[i] < labels[j]
	})

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%d %s", d.ByLabel[label], plural(label, d.ByLabel[label])))
	}

	var sentence string
	switch len(parts) {
	case 0:
		sentence = "I don't see any objects right now."
	case 1:
		sentence = "I can see " + parts[0] + "."
	default:
		sentence = "I can see " + strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1] + "."
	}

	if caption = strings.TrimSpace(caption); caption != "" {
		sentence += " " + caption
	}
	return sentence
}

func plural(label string, n int) string {
	switch {
	case n == 1:
		return label
	case label == "person":
		return "people"
	case strings.HasSuffix(label, "s"), strings.HasSuffix(label, "x"), strings.HasSuffix(label, "ch"):
		return label + "es"
	}
	return label + "s"
}
