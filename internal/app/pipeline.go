package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

// StatusCameraUnavailable is shown when the camera cannot be opened.
const StatusCameraUnavailable = "Camera unavailable"

// runCamera is the frame loop:
//  1. sample at the idle rate until the motion detector sees movement
//  2. switch to the active rate and run the landmarker on every frame
//  3. feed the first face and the first hand to their sessions
//  4. after the idle timeout without motion, drop back to the idle rate
//
// Going idle, a failed read and a landmarker error all interrupt the face
// and hand sessions, since their gestures cannot span a gap in samples.
func (a *App) runCamera(ctx context.Context) {
	if err := a.camera.Open(); err != nil {
		a.logger.Error("opening camera", "error", err)
		a.hub.SetStatus(StatusCameraUnavailable)
		return
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn("closing camera", "error", err)
		}
	}()

	rate := capture.NewRateController(capture.RateConfig{
		IdleFPS:     a.cfg.Camera.IdleFPS,
		ActiveFPS:   a.cfg.Camera.ActiveFPS,
		IdleTimeout: time.Duration(a.cfg.Camera.IdleTimeoutMS) * time.Millisecond,
	})
	a.camera.SetFPS(rate.FPS())

	ticker := time.NewTicker(rate.Interval())
	defer ticker.Stop()

	a.logger.Info("camera loop started", "idle_fps", a.cfg.Camera.IdleFPS, "active_fps", a.cfg.Camera.ActiveFPS)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.DetectionEnabled() {
				continue
			}
			if a.processFrame(rate) {
				a.camera.SetFPS(rate.FPS())
				ticker.Reset(rate.Interval())
			}
		}
	}
}

// processFrame reads and analyzes one frame. It reports whether the frame
// rate changed.
func (a *App) processFrame(rate *capture.RateController) bool {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.logger.Debug("reading frame", "error", err)
		a.interruptCamera(err)
		return false
	}
	defer frame.Close()

	moved := true
	if a.cfg.Camera.MotionThreshold > 0 {
		moved, _ = a.motion.Detect(frame)
	}

	_, changed := rate.Observe(moved, a.clock())
	if changed {
		if rate.Active() {
			a.logger.Debug("camera active")
		} else {
			a.logger.Debug("camera idle")
			a.interruptCamera(errors.New("no motion"))
		}
	}
	if !rate.Active() {
		return changed
	}

	result, err := a.detector.Detect(frame)
	if err != nil {
		a.logger.Warn("landmark detection failed", "error", err)
		a.interruptCamera(err)
		return changed
	}

	nowMs := a.clock().UnixMilli()

	if face := result.FirstFace(); face != nil {
		a.feedCamera(gesture.FaceFromLandmarks(face), nowMs)
	}
	a.feedCamera(gesture.HandFromLandmarks(result.Hands), nowMs)

	return changed
}

func (a *App) feedCamera(s gesture.Sample, nowMs int64) {
	if _, _, err := a.FeedAt(s, nowMs); err != nil && !errors.Is(err, ErrSessionStopped) {
		a.logger.Debug("camera sample", "source", s.Source(), "error", err)
	}
}

func (a *App) interruptCamera(cause error) {
	a.Interrupt(action.SourceFace, cause)
	a.Interrupt(action.SourceHand, cause)
}

// runVoice feeds every recognized phrase to the voice session.
func (a *App) runVoice(ctx context.Context) {
	err := a.phrases.Run(ctx, func(phrase string) {
		if _, _, err := a.Feed(gesture.VoiceSample{Phrase: phrase}); err != nil {
			a.logger.Debug("voice command", "phrase", phrase, "error", err)
		}
	})
	if err != nil {
		a.logger.Error("voice loop stopped", "error", err)
	}
}
