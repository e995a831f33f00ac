// Package gatewaytest provides an in-memory collaborator for tests.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/pkg/gateway"
)

const (
	OpStartRecording = "start_recording"
	OpStopRecording  = "stop_recording"
	OpSnapshot       = "snapshot"
	OpApplyMode      = "apply_mode"
	OpSetROI         = "set_roi"
	OpSpeak          = "speak"
)

// ErrTimeout is what a failing fake call returns.
var ErrTimeout = errors.New("nats: timeout")

// Fake implements every collaborator contract and records each call.
type Fake struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int
	refuse   map[string]bool
	blocks   map[string]chan struct{}
	held     map[string]bool
	started  map[string]chan struct{}
	nextID   int
	spoken   []string
	modes    []entity.Mode
	rois     []gateway.ROI
}

func NewFake() *Fake {
	return &Fake{
		calls:    make(map[string]int),
		failures: make(map[string]int),
		refuse:   make(map[string]bool),
		blocks:   make(map[string]chan struct{}),
		held:     make(map[string]bool),
		started:  make(map[string]chan struct{}),
	}
}

func (f *Fake) Gateway() gateway.Gateway {
	return gateway.Gateway{Video: f, Perception: f, Voice: f}
}

func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// FailNext makes the next n calls of op fail with ErrTimeout.
func (f *Fake) FailNext(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = n
}

// Refuse makes every call of op return a refusal.
func (f *Fake) Refuse(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refuse[op] = true
}

// Block holds calls of op until release is called or their context ends.
// started receives one value per call that reached the collaborator.
func (f *Fake) Block(op string) (release func(), started <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	signal := make(chan struct{}, 64)
	f.blocks[op] = gate
	f.started[op] = signal
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }, signal
}

// Hold is Block for a collaborator that finishes the operation even after
// the caller has given up: held calls ignore their context.
func (f *Fake) Hold(op string) (release func(), started <-chan struct{}) {
	release, started = f.Block(op)
	f.mu.Lock()
	f.held[op] = true
	f.mu.Unlock()
	return release, started
}

func (f *Fake) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *Fake) Modes() []entity.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Mode(nil), f.modes...)
}

func (f *Fake) ROIs() []gateway.ROI {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.ROI(nil), f.rois...)
}

func (f *Fake) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.blocks[op]
	held := f.held[op]
	signal := f.started[op]
	f.mu.Unlock()

	if signal != nil {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
	if gate != nil && held {
		<-gate
	} else if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse[op] {
		return fmt.Errorf("%w: %s", gateway.ErrRefused, op)
	}
	if f.failures[op] > 0 {
		f.failures[op]--
		return ErrTimeout
	}
	return nil
}

func (f *Fake) StartRecording(ctx context.Context) (string, error) {
	if err := f.enter(ctx, OpStartRecording); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("rec-%d", f.nextID), nil
}

func (f *Fake) StopRecording(ctx context.Context, recordingID string) error {
	return f.enter(ctx, OpStopRecording)
}

func (f *Fake) Snapshot(ctx context.Context) (string, error) {
	if err := f.enter(ctx, OpSnapshot); err != nil {
		return "", err
	}
	return "recordings/snapshot.jpg", nil
}

func (f *Fake) ApplyMode(ctx context.Context, mode entity.Mode) error {
	if err := f.enter(ctx, OpApplyMode); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
	return nil
}

func (f *Fake) SetROI(ctx context.Context, roi gateway.ROI) error {
	if err := f.enter(ctx, OpSetROI); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rois = append(f.rois, roi)
	return nil
}

func (f *Fake) Speak(ctx context.Context, text string) error {
	if err := f.enter(ctx, OpSpeak); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}
