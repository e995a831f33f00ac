package main

import (
	"encoding/json"
	"math/rand"
	"testing"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingLifecycle(t *testing.T) {
	c := newCollaborators()

	start := c.handle(gateway.SubjectStartRecording, []byte(`{}`))
	require.True(t, start.OK)
	require.NotEmpty(t, start.RecordingID)

	again := c.handle(gateway.SubjectStartRecording, []byte(`{}`))
	assert.False(t, again.OK)

	wrong := c.handle(gateway.SubjectStopRecording, []byte(`{"recording_id":"nope"}`))
	assert.False(t, wrong.OK)

	body, _ := json.Marshal(map[string]string{"recording_id": start.RecordingID})
	assert.True(t, c.handle(gateway.SubjectStopRecording, body).OK)
}

func TestModeAndRefusal(t *testing.T) {
	c := newCollaborators()

	assert.True(t, c.handle(gateway.SubjectApplyMode, []byte(`{"mode":"night_vision"}`)).OK)
	assert.False(t, c.handle(gateway.SubjectApplyMode, []byte(`{"mode":"disco"}`)).OK)

	c.refuse[gateway.SubjectSnapshot] = true
	assert.False(t, c.handle(gateway.SubjectSnapshot, nil).OK)
	assert.False(t, c.handle("video.rpc.unknown", nil).OK)
}

func TestSpeakRecorded(t *testing.T) {
	c := newCollaborators()
	require.True(t, c.handle(gateway.SubjectSpeak, []byte(`{"text":"Recording started"}`)).OK)
	assert.Equal(t, []string{"Recording started"}, c.spoken)
}

func TestRandomDetectionsBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		d := randomDetections(rng, "f")
		assert.LessOrEqual(t, len(d["detections"].([]entity.Detection)), 3)
	}
}
