package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"helmet-orchestrator-be/internal/entity"

	"github.com/nats-io/nats.go"
)

const (
	SubjectStartRecording = "video.rpc.recording.start"
	SubjectStopRecording  = "video.rpc.recording.stop"
	SubjectSnapshot       = "video.rpc.snapshot"
	SubjectApplyMode      = "video.rpc.mode"
	SubjectSetROI         = "perception.rpc.roi"
	SubjectSpeak          = "voice.rpc.speak"
)

// Reply is the JSON envelope every collaborator answers with.
type Reply struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	RecordingID string `json:"recording_id,omitempty"`
	Path        string `json:"path,omitempty"`
}

// NatsClient talks to the collaborators with NATS request/reply. One client
// serves all three contracts over a shared connection; each call is
// independent, so concurrent use is safe.
type NatsClient struct {
	nc     *nats.Conn
	prefix string
}

func NewNatsClient(nc *nats.Conn, prefix string) *NatsClient {
	return &NatsClient{nc: nc, prefix: prefix}
}

// NewNatsGateway wires the NATS client behind every collaborator contract.
func NewNatsGateway(nc *nats.Conn, prefix string) Gateway {
	c := NewNatsClient(nc, prefix)
	return Gateway{Video: c, Perception: c, Voice: c}
}

func (c *NatsClient) StartRecording(ctx context.Context) (string, error) {
	reply, err := c.request(ctx, SubjectStartRecording, map[string]interface{}{})
	if err != nil {
		return "", err
	}
	if reply.RecordingID == "" {
		return "", fmt.Errorf("%w: empty recording id", ErrRefused)
	}
	return reply.RecordingID, nil
}

func (c *NatsClient) StopRecording(ctx context.Context, recordingID string) error {
	_, err := c.request(ctx, SubjectStopRecording, map[string]interface{}{"recording_id": recordingID})
	return err
}

func (c *NatsClient) Snapshot(ctx context.Context) (string, error) {
	reply, err := c.request(ctx, SubjectSnapshot, map[string]interface{}{})
	if err != nil {
		return "", err
	}
	return reply.Path, nil
}

func (c *NatsClient) ApplyMode(ctx context.Context, mode entity.Mode) error {
	_, err := c.request(ctx, SubjectApplyMode, map[string]interface{}{"mode": mode})
	return err
}

func (c *NatsClient) SetROI(ctx context.Context, roi ROI) error {
	_, err := c.request(ctx, SubjectSetROI, roi)
	return err
}

func (c *NatsClient) Speak(ctx context.Context, text string) error {
	_, err := c.request(ctx, SubjectSpeak, map[string]interface{}{"text": text})
	return err
}

func (c *NatsClient) request(ctx context.Context, subject string, payload interface{}) (*Reply, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", ErrRefused, subject, err)
	}

	msg, err := c.nc.RequestWithContext(ctx, c.prefix+subject, data)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", subject, err)
	}

	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("decode reply from %s: %w", subject, err)
	}
	if !reply.OK {
		return nil, fmt.Errorf("%w by %s: %s", ErrRefused, subject, reply.Error)
	}
	return &reply, nil
}
