package executor

import (
	"context"
	"strconv"
	"strings"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/pkg/broadcast"
	"helmet-orchestrator-be/pkg/gateway"
	"helmet-orchestrator-be/pkg/mode"
)

type outcome struct {
	session   entity.Session
	committed bool
	message   string
	data      map[string]interface{}
}

func committed(s entity.Session, message string) outcome {
	return outcome{session: s, committed: true, message: message}
}

func (e *Executor) dispatch(ctx context.Context, cmd entity.Command) (outcome, error) {
	if !cmd.Kind.IsValid() {
		return outcome{}, apperr.ValidationFailed("unknown command kind %q", cmd.Kind)
	}

	switch cmd.Kind {
	case entity.CommandEmergencyActivate:
		return e.emergencyActivate(ctx)
	case entity.CommandQueryStatus:
		return e.queryStatus(), nil
	case entity.CommandDescribeScene:
		return e.describeScene()
	}

	name, run, err := e.plan(cmd)
	if err != nil {
		return outcome{}, err
	}
	return e.inLane(ctx, name, run)
}

// plan validates parameters and binds the handler to its lane.
func (e *Executor) plan(cmd entity.Command) (string, runFunc, error) {
	switch cmd.Kind {
	case entity.CommandSetMode:
		raw := cmd.Param("mode", "")
		if raw == "" {
			return "", nil, apperr.ValidationFailed("set_mode requires a mode parameter")
		}
		target, ok := entity.ParseMode(raw)
		if !ok {
			return "", nil, apperr.InvalidArgument("unknown mode %q", raw)
		}
		return laneMode, func(ctx context.Context) (outcome, error) {
			return e.setMode(ctx, target)
		}, nil

	case entity.CommandExitEmergency:
		raw := cmd.Param("mode", string(entity.ModeNormal))
		target, ok := entity.ParseMode(raw)
		if !ok {
			return "", nil, apperr.InvalidArgument("unknown mode %q", raw)
		}
		return laneMode, func(ctx context.Context) (outcome, error) {
			return e.exitEmergency(ctx, target, cmd.Source)
		}, nil

	case entity.CommandStartRecording:
		return laneRecording, e.startRecording, nil

	case entity.CommandStopRecording:
		return laneRecording, e.stopRecording, nil

	case entity.CommandSnapshot:
		return laneCapture, e.snapshot, nil

	case entity.CommandSetROI:
		roi, err := parseROI(cmd)
		if err != nil {
			return "", nil, err
		}
		return lanePerception, func(ctx context.Context) (outcome, error) {
			return e.setROI(ctx, roi)
		}, nil

	case entity.CommandAdjustBrightness:
		dir := strings.ToLower(cmd.Param("direction", ""))
		if dir != "up" && dir != "down" {
			return "", nil, apperr.ValidationFailed("brightness direction must be up or down")
		}
		return laneDisplay, func(ctx context.Context) (outcome, error) {
			s, err := e.commit(ctx, mode.AdjustBrightness(dir))
			return committed(s, "brightness "+strconv.Itoa(s.Brightness)), err
		}, nil

	case entity.CommandAdjustZoom:
		dir := strings.ToLower(cmd.Param("direction", ""))
		if dir != "in" && dir != "out" {
			return "", nil, apperr.ValidationFailed("zoom direction must be in or out")
		}
		return laneDisplay, func(ctx context.Context) (outcome, error) {
			s, err := e.commit(ctx, mode.AdjustZoom(dir))
			return committed(s, "zoom "+strconv.FormatFloat(s.ZoomLevel, 'f', 1, 64)+"x"), err
		}, nil

	case entity.CommandUICommand:
		overlay := strings.ToLower(cmd.Param("command", ""))
		if !entity.IsOverlayCommand(overlay) {
			return "", nil, apperr.ValidationFailed("unknown ui command %q", overlay)
		}
		return laneDisplay, func(ctx context.Context) (outcome, error) {
			s, err := e.commit(ctx, mode.ApplyOverlay(overlay))
			return committed(s, "ui command executed: "+overlay), err
		}, nil

	case entity.CommandMarkTarget:
		x, err := unitParam(cmd, "x")
		if err != nil {
			return "", nil, err
		}
		y, err := unitParam(cmd, "y")
		if err != nil {
			return "", nil, err
		}
		return laneTargets, func(ctx context.Context) (outcome, error) {
			return e.markTarget(x, y), nil
		}, nil
	}

	return "", nil, apperr.ValidationFailed("unsupported command kind %q", cmd.Kind)
}

func (e *Executor) setMode(ctx context.Context, target entity.Mode) (outcome, error) {
	cur := e.machine.Current()
	if _, err := mode.SetMode(target)(cur); err != nil {
		return outcome{}, err
	}
	if cur.CurrentMode == target {
		return committed(cur, "already in "+target.String()+" mode"), nil
	}

	if err := e.call(ctx, gateway.ServiceVideo, func(ctx context.Context) error {
		return e.gw.Video.ApplyMode(ctx, target)
	}); err != nil {
		return outcome{}, err
	}

	s, err := e.settle(ctx, mode.SetMode(target))
	return committed(s, target.String()+" mode activated"), err
}

func (e *Executor) exitEmergency(ctx context.Context, target entity.Mode, source entity.CommandSource) (outcome, error) {
	if _, err := mode.ExitEmergency(target, source)(e.machine.Current()); err != nil {
		return outcome{}, err
	}

	if err := e.call(ctx, gateway.ServiceVideo, func(ctx context.Context) error {
		return e.gw.Video.ApplyMode(ctx, target)
	}); err != nil {
		return outcome{}, err
	}

	s, err := e.settle(ctx, mode.ExitEmergency(target, source))
	return committed(s, "emergency mode cleared"), err
}

// emergencyActivate commits first and never waits on a collaborator. The
// display switch and automatic recording follow on their lanes.
func (e *Executor) emergencyActivate(ctx context.Context) (outcome, error) {
	e.lanes[laneMode].preempt(errPreempted)

	s, err := e.machine.Emergency(ctx, mode.ActivateEmergency())
	if err != nil {
		return outcome{}, err
	}

	e.background(ctx, laneMode, func(ctx context.Context) {
		if err := e.call(ctx, gateway.ServiceVideo, func(ctx context.Context) error {
			return e.gw.Video.ApplyMode(ctx, entity.ModeEmergency)
		}); err != nil {
			e.logger.Warn(module, "Emergency display switch failed", map[string]interface{}{"error": err.Error()})
		}
	})
	e.background(ctx, laneRecording, func(ctx context.Context) {
		if e.machine.Current().RecordingActive {
			return
		}
		out, err := e.startRecording(ctx)
		if err != nil {
			e.logger.Warn(module, "Emergency auto-record failed", map[string]interface{}{"error": err.Error()})
			return
		}
		e.logger.Info(module, "Emergency auto-record started", map[string]interface{}{
			"recording_id": out.session.ActiveRecordingID,
		})
	})

	return committed(s, "emergency mode activated"), nil
}

func (e *Executor) startRecording(ctx context.Context) (outcome, error) {
	if cur := e.machine.Current(); cur.RecordingActive {
		return outcome{}, apperr.StateConflict("recording %s already active", cur.ActiveRecordingID)
	}

	var id string
	if err := e.call(ctx, gateway.ServiceVideo, func(ctx context.Context) error {
		var err error
		id, err = e.gw.Video.StartRecording(ctx)
		return err
	}); err != nil {
		return outcome{}, err
	}

	s, err := e.settle(ctx, mode.StartRecording(id))
	if err != nil {
		e.discardRecording(ctx, id)
		return outcome{}, err
	}
	out := committed(s, "recording started")
	out.data = map[string]interface{}{"recording_id": id}
	return out, nil
}

// discardRecording stops a recording the collaborator started but the
// session never took ownership of.
func (e *Executor) discardRecording(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.CommandTimeout)
	defer cancel()
	if err := e.gw.Video.StopRecording(ctx, id); err != nil {
		e.logger.Warn(module, "Orphaned recording left running", map[string]interface{}{
			"recording_id": id,
			"error":        err.Error(),
		})
	}
}

func (e *Executor) stopRecording(ctx context.Context) (outcome, error) {
	cur := e.machine.Current()
	if !cur.RecordingActive {
		return outcome{}, apperr.StateConflict("no recording in progress")
	}
	id := cur.ActiveRecordingID

	if err := e.call(ctx, gateway.ServiceVideo, func(ctx context.Context) error {
		return e.gw.Video.StopRecording(ctx, id)
	}); err != nil {
		return outcome{}, err
	}

	s, err := e.settle(ctx, mode.StopRecording(id))
	out := committed(s, "recording stopped")
	out.data = map[string]interface{}{"recording_id": id}
	return out, err
}

func (e *Executor) snapshot(ctx context.Context) (outcome, error) {
	var path string
	if err := e.call(ctx, gateway.ServiceVideo, func(ctx context.Context) error {
		var err error
		path, err = e.gw.Video.Snapshot(ctx)
		return err
	}); err != nil {
		return outcome{}, err
	}
	return outcome{message: "snapshot saved", data: map[string]interface{}{"path": path}}, nil
}

func (e *Executor) setROI(ctx context.Context, roi gateway.ROI) (outcome, error) {
	if err := e.call(ctx, gateway.ServicePerception, func(ctx context.Context) error {
		return e.gw.Perception.SetROI(ctx, roi)
	}); err != nil {
		return outcome{}, err
	}
	return outcome{message: "region of interest updated", data: map[string]interface{}{"roi": roi}}, nil
}

func (e *Executor) markTarget(x, y float64) outcome {
	t := entity.Target{
		ID:       int(e.targetSeq.Add(1)),
		X:        x,
		Y:        y,
		MarkedAt: e.now(),
	}
	if e.status != nil {
		e.status.Publish(broadcast.WithTarget(t))
	}
	return outcome{
		message: "target " + strconv.Itoa(t.ID) + " marked",
		data:    map[string]interface{}{"target": t},
	}
}

// settle commits the session change for a side effect the collaborator has
// already performed. The issuer can no longer cancel it.
func (e *Executor) settle(ctx context.Context, mutate mode.Mutation) (entity.Session, error) {
	return e.machine.Transition(context.WithoutCancel(ctx), mutate)
}

func (e *Executor) commit(ctx context.Context, mutate mode.Mutation) (entity.Session, error) {
	s, err := e.machine.Transition(ctx, mutate)
	if err != nil && ctx.Err() != nil && apperr.Is(err, apperr.CodeCancelled) {
		return s, cancelled(ctx)
	}
	return s, err
}

func parseROI(cmd entity.Command) (gateway.ROI, error) {
	var roi gateway.ROI
	fields := []struct {
		key string
		dst *float64
	}{
		{"x", &roi.X},
		{"y", &roi.Y},
		{"width", &roi.Width},
		{"height", &roi.Height},
	}
	for _, f := range fields {
		raw := cmd.Param(f.key, "")
		if raw == "" {
			return roi, apperr.ValidationFailed("set_roi requires %s", f.key)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return roi, apperr.ValidationFailed("set_roi %s must be a number", f.key)
		}
		*f.dst = v
	}
	if err := roi.Validate(); err != nil {
		return roi, apperr.Wrap(err, apperr.CodeValidationFailed, err.Error())
	}
	return roi, nil
}

// unitParam reads a normalized coordinate, defaulting to the frame centre.
func unitParam(cmd entity.Command, key string) (float64, error) {
	v, err := strconv.ParseFloat(cmd.Param(key, "0.5"), 64)
	if err != nil || v < 0 || v > 1 {
		return 0, apperr.ValidationFailed("%s must be a number between 0 and 1", key)
	}
	return v, nil
}
