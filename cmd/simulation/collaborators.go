package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/pkg/gateway"

	"github.com/google/uuid"
)

// collaborators fakes the video, perception and voice services closely
// enough to drive the orchestrator end to end.
type collaborators struct {
	mu        sync.Mutex
	recording string
	mode      entity.Mode
	roi       *gateway.ROI
	spoken    []string
	refuse    map[string]bool
}

func newCollaborators() *collaborators {
	return &collaborators{mode: entity.ModeNormal, refuse: map[string]bool{}}
}

func refused(format string, args ...interface{}) gateway.Reply {
	return gateway.Reply{OK: false, Error: fmt.Sprintf(format, args...)}
}

// handle answers one request/reply call.
func (c *collaborators) handle(subject string, data []byte) gateway.Reply {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refuse[subject] {
		return refused("%s disabled", subject)
	}

	switch subject {
	case gateway.SubjectStartRecording:
		if c.recording != "" {
			return refused("already recording %s", c.recording)
		}
		c.recording = "rec-" + uuid.NewString()[:8]
		return gateway.Reply{OK: true, RecordingID: c.recording}

	case gateway.SubjectStopRecording:
		var req struct {
			RecordingID string `json:"recording_id"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return refused("bad request: %v", err)
		}
		if req.RecordingID != c.recording {
			return refused("unknown recording %q", req.RecordingID)
		}
		c.recording = ""
		return gateway.Reply{OK: true}

	case gateway.SubjectSnapshot:
		return gateway.Reply{OK: true, Path: fmt.Sprintf("snapshots/%s.jpg", time.Now().Format("20060102-150405.000"))}

	case gateway.SubjectApplyMode:
		var req struct {
			Mode entity.Mode `json:"mode"`
		}
		if err := json.Unmarshal(data, &req); err != nil || !req.Mode.IsValid() {
			return refused("bad mode")
		}
		c.mode = req.Mode
		return gateway.Reply{OK: true}

	case gateway.SubjectSetROI:
		var roi gateway.ROI
		if err := json.Unmarshal(data, &roi); err != nil {
			return refused("bad roi: %v", err)
		}
		c.roi = &roi
		return gateway.Reply{OK: true}

	case gateway.SubjectSpeak:
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return refused("bad request: %v", err)
		}
		c.spoken = append(c.spoken, req.Text)
		return gateway.Reply{OK: true}
	}
	return refused("unknown subject %s", subject)
}

var labels = []string{"person", "car", "bicycle", "dog", "door"}

func randomDetections(rng *rand.Rand, frameID string) map[string]interface{} {
	n := rng.Intn(4)
	detections := make([]entity.Detection, 0, n)
	for i := 0; i < n; i++ {
		x, y := rng.Float64()*0.8, rng.Float64()*0.8
		detections = append(detections, entity.Detection{
			Label:      labels[rng.Intn(len(labels))],
			Confidence: 0.5 + rng.Float64()/2,
			Box:        [4]float64{x, y, x + 0.1, y + 0.2},
		})
	}
	return map[string]interface{}{
		"frame_id":   frameID,
		"detections": detections,
		"timestamp":  time.Now(),
	}
}
