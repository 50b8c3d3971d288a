// Package app runs the capture loop shared by the gesture and blink
// controllers.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/eyecontrol/internal/actuator"
	"github.com/ayusman/eyecontrol/internal/capture"
	"github.com/ayusman/eyecontrol/internal/delivery"
	"github.com/ayusman/eyecontrol/internal/detector"
	"github.com/ayusman/eyecontrol/internal/display"
)

// frameRetryDelay paces reads after a failed frame.
const frameRetryDelay = 10 * time.Millisecond

// Sender delivers payloads to the microcontroller. *delivery.Client
// implements it.
type Sender interface {
	SendGesture(ctx context.Context, label string) delivery.Result
	Relay(ctx context.Context) delivery.Result
	Toggle(ctx context.Context) delivery.Result
}

// Gate reports whether deliveries may be attempted. *network.Monitor
// implements it.
type Gate interface {
	Connected() bool
}

// Monitor is the background connection task. *network.Monitor implements it.
type Monitor interface {
	Gate
	Start(ctx context.Context)
	Stop()
}

// Pauser reports whether deliveries are suspended. *status.Tracker
// implements it.
type Pauser interface {
	Paused() bool
}

// Hardware is the set of resources a session owns and releases.
type Hardware struct {
	Camera   capture.Camera
	Detector detector.Detector
	Sink     display.Sink
	// Servos may be nil.
	Servos actuator.Servos
}

// gateFor prefers an explicit gate and falls back to the monitor.
func gateFor(g Gate, m Monitor) Gate {
	if g != nil {
		return g
	}
	if m != nil {
		return m
	}
	return nil
}

// pipeline is the per-frame behaviour of one controller.
type pipeline interface {
	start() error
	process(ctx context.Context, frame *gocv.Mat, faces []detector.FaceLandmarks, now time.Time)
	close() error
}

// Session owns the hardware of one controller and drives its capture loop.
type Session struct {
	hw       Hardware
	pipeline pipeline
	monitor  Monitor
	log      *logrus.Entry
	now      func() time.Time

	closeOnce sync.Once
	closeErr  error
}

func newSession(hw Hardware, p pipeline, monitor Monitor, log *logrus.Entry) *Session {
	if hw.Servos == nil {
		hw.Servos = actuator.Noop{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{hw: hw, pipeline: p, monitor: monitor, log: log, now: time.Now}
}

// Run starts the monitor, opens the camera and processes frames until ctx
// ends, the sink asks to quit, or the camera stops producing frames. The
// session is closed on every exit path, including a panic in the loop.
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if s.monitor != nil {
		s.monitor.Start(ctx)
	}
	if err := s.hw.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	if err := s.pipeline.start(); err != nil {
		return err
	}
	s.log.Info("capture loop started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("capture loop stopped")
			return nil
		default:
		}

		frame, err := s.hw.Camera.ReadFrame()
		if err != nil {
			if capture.Terminal(err) {
				s.log.WithError(err).Info("camera closed, stopping")
				return nil
			}
			s.log.WithError(err).Debug("skipping frame")
			time.Sleep(frameRetryDelay)
			continue
		}

		quit := s.step(ctx, frame)
		frame.Close()
		if quit {
			s.log.Info("quit requested")
			return nil
		}
	}
}

// step runs detection and the pipeline on one frame and shows it.
func (s *Session) step(ctx context.Context, frame *gocv.Mat) bool {
	faces, err := s.hw.Detector.Detect(frame)
	if err != nil {
		s.log.WithError(err).Warn("landmark detection failed")
		faces = nil
	}
	s.pipeline.process(ctx, frame, faces, s.now())
	return s.hw.Sink.Show(frame)
}

// Close waits for the monitor to exit and then releases the hardware. It is
// safe to call more than once; only the first call has an effect.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.monitor != nil {
			s.monitor.Stop()
		}

		var errs []error
		if err := s.pipeline.close(); err != nil {
			errs = append(errs, fmt.Errorf("close pipeline: %w", err))
		}
		if err := s.hw.Servos.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close servos: %w", err))
		}
		if err := s.hw.Camera.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
		if err := s.hw.Detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
		if err := s.hw.Sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close display: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			s.log.WithError(s.closeErr).Warn("release hardware")
		} else {
			s.log.Info("hardware released")
		}
	})
	return s.closeErr
}
