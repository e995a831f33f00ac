package intent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter(DefaultRules(), 0.5)
	require.NoError(t, err)
	return r
}

func TestRouteUtterances(t *testing.T) {
	r := defaultRouter(t)

	cases := []struct {
		text   string
		kind   entity.CommandKind
		params map[string]string
	}{
		{"toggle night mode", entity.CommandSetMode, map[string]string{"mode": "night_vision"}},
		{"Show navigation please", entity.CommandSetMode, map[string]string{"mode": "navigation"}},
		{"back to normal mode", entity.CommandSetMode, map[string]string{"mode": "normal"}},
		{"start recording", entity.CommandStartRecording, map[string]string{}},
		{"stop recording now", entity.CommandStopRecording, map[string]string{}},
		{"take a screenshot", entity.CommandSnapshot, map[string]string{}},
		{"mark target", entity.CommandMarkTarget, map[string]string{}},
		{"mark that target at 0.25 0.75", entity.CommandMarkTarget, map[string]string{"x": "0.25", "y": "0.75"}},
		{"MAYDAY", entity.CommandEmergencyActivate, map[string]string{}},
		{"give me a status report", entity.CommandQueryStatus, map[string]string{}},
		{"a bit dimmer", entity.CommandAdjustBrightness, map[string]string{"direction": "down"}},
		{"Zoom In", entity.CommandAdjustZoom, map[string]string{"direction": "in"}},
		{"what do you see", entity.CommandDescribeScene, map[string]string{}},
		{"describe the scene", entity.CommandDescribeScene, map[string]string{}},
		{"show the hud", entity.CommandUICommand, map[string]string{"command": entity.OverlayShowHUD}},
		{"show detections", entity.CommandUICommand, map[string]string{"command": entity.OverlayShowDetections}},
		{"crosshair on", entity.CommandUICommand, map[string]string{"command": entity.OverlayShowCrosshair}},
		{"hide all overlays", entity.CommandUICommand, map[string]string{"command": entity.OverlayHideAll}},
		{"clear the screen", entity.CommandUICommand, map[string]string{"command": entity.OverlayHideAll}},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			cmd, err := r.Route(entity.Intent{RawText: tc.text, Confidence: 0.9}, entity.SourceVoice)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, cmd.Kind)
			assert.Equal(t, tc.params, cmd.Parameters)
			assert.Equal(t, entity.SourceVoice, cmd.Source)
		})
	}
}

func TestExactNameBeatsPatterns(t *testing.T) {
	r := defaultRouter(t)

	// The text alone would route to night vision.
	d, err := r.Resolve(entity.Intent{Name: "STOP_RECORDING", RawText: "night vision", Confidence: 1}, entity.SourceVoice)
	require.NoError(t, err)
	assert.Equal(t, entity.CommandStopRecording, d.Command.Kind)
	assert.Equal(t, "stop_recording", d.Rule)
	assert.Equal(t, "Recording stopped", d.Confirmation)
}

func TestLongestMatchWins(t *testing.T) {
	r, err := NewRouter([]Rule{
		{Name: "short", Patterns: []string{"record"}, Command: entity.CommandStartRecording},
		{Name: "long", Patterns: []string{"stop.*record"}, Command: entity.CommandStopRecording},
		{Name: "tie", Patterns: []string{"record"}, Command: entity.CommandSnapshot},
	}, 0)
	require.NoError(t, err)

	d, err := r.Resolve(entity.Intent{RawText: "please stop the record", Confidence: 1}, entity.SourceVoice)
	require.NoError(t, err)
	assert.Equal(t, "long", d.Rule)

	d, err = r.Resolve(entity.Intent{RawText: "record", Confidence: 1}, entity.SourceVoice)
	require.NoError(t, err)
	assert.Equal(t, "short", d.Rule, "ties go to the earlier rule")
}

func TestIntentParametersOverrideTemplate(t *testing.T) {
	r := defaultRouter(t)

	cmd, err := r.Route(entity.Intent{
		RawText:    "night vision",
		Confidence: 1,
		Parameters: map[string]string{"mode": "navigation"},
	}, entity.SourceVoice)
	require.NoError(t, err)
	assert.Equal(t, "navigation", cmd.Parameters["mode"])
}

func TestRouteCarriesCallerSource(t *testing.T) {
	r := defaultRouter(t)

	cmd, err := r.Route(entity.Intent{RawText: "start recording", Confidence: 1}, entity.SourceOperator)
	require.NoError(t, err)
	assert.Equal(t, entity.SourceOperator, cmd.Source)

	d, err := r.Resolve(entity.Intent{RawText: "take a screenshot", Confidence: 1}, entity.SourceUI)
	require.NoError(t, err)
	assert.Equal(t, entity.SourceUI, d.Command.Source)
}

func TestCommandIDFollowsIntentID(t *testing.T) {
	r := defaultRouter(t)

	cmd, err := r.Route(entity.Intent{ID: "42", RawText: "start recording", Confidence: 1}, entity.SourceVoice)
	require.NoError(t, err)
	assert.Equal(t, "intent-42", cmd.ID)

	a, err := r.Route(entity.Intent{RawText: "start recording", Confidence: 1}, entity.SourceVoice)
	require.NoError(t, err)
	b, err := r.Route(entity.Intent{RawText: "start recording", Confidence: 1}, entity.SourceVoice)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUnrecognized(t *testing.T) {
	r := defaultRouter(t)

	_, err := r.Route(entity.Intent{RawText: "make me a sandwich", Confidence: 0.9}, entity.SourceVoice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnrecognized))
	assert.Equal(t, apperr.CodeUnrecognized, apperr.GetCode(err))

	_, err = r.Route(entity.Intent{RawText: "start recording", Confidence: 0.1}, entity.SourceVoice)
	assert.True(t, errors.Is(err, ErrUnrecognized))

	_, err = r.Route(entity.Intent{RawText: "   ", Confidence: 1}, entity.SourceVoice)
	assert.True(t, errors.Is(err, ErrUnrecognized))
}

func TestNewRouterRejectsBadRules(t *testing.T) {
	_, err := NewRouter([]Rule{{Name: "x", Patterns: []string{"("}, Command: entity.CommandSnapshot}}, 0)
	assert.Error(t, err)

	_, err = NewRouter([]Rule{{Name: "x", Patterns: []string{"x"}, Command: "teleport"}}, 0)
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)

	rules, err = LoadRules(filepath.Join("..", "..", "configs", "intents.yaml"))
	require.NoError(t, err)
	r, err := NewRouter(rules, 0.5)
	require.NoError(t, err)
	cmd, err := r.Route(entity.Intent{RawText: "zoom out", Confidence: 1}, entity.SourceVoice)
	require.NoError(t, err)
	assert.Equal(t, entity.CommandAdjustZoom, cmd.Kind)
	assert.Equal(t, "out", cmd.Parameters["direction"])
	assert.Len(t, rules, len(DefaultRules()))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("intents: ["), 0o644))
	_, err = LoadRules(bad)
	assert.Error(t, err)
}
