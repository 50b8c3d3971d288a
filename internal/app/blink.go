package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/eyecontrol/internal/actuator"
	"github.com/ayusman/eyecontrol/internal/blink"
	"github.com/ayusman/eyecontrol/internal/detector"
	"github.com/ayusman/eyecontrol/internal/display"
)

// BlinkConfig configures the blink toggle controller.
type BlinkConfig struct {
	Hardware Hardware
	Blink    blink.Config
	Sender   Sender
	// Monitor, Gate and Pauser may be nil. Gate defaults to Monitor; with
	// neither set every toggle is attempted.
	Monitor Monitor
	Gate    Gate
	Pauser  Pauser
	Log     *logrus.Entry
}

// blinkPipeline watches the first face for a blink sequence.
type blinkPipeline struct {
	blinks *blink.Detector
	sender Sender
	gate   Gate
	pauser Pauser
	servos actuator.Servos
	fps    display.FPSMeter
	log    *logrus.Entry
}

// NewBlinkSession builds the controller that homes the servos and toggles the
// relay on a blink sequence.
func NewBlinkSession(config BlinkConfig) *Session {
	p := &blinkPipeline{
		blinks: blink.New(config.Blink),
		sender: config.Sender,
		gate:   gateFor(config.Gate, config.Monitor),
		pauser: config.Pauser,
	}
	s := newSession(config.Hardware, p, config.Monitor, config.Log)
	p.servos = s.hw.Servos
	p.log = s.log
	return s
}

func (p *blinkPipeline) start() error {
	if err := p.servos.Home(); err != nil {
		p.log.WithError(err).Warn("servo home failed")
	}
	return nil
}

func (p *blinkPipeline) process(ctx context.Context, frame *gocv.Mat, faces []detector.FaceLandmarks, now time.Time) {
	if len(faces) > 0 {
		left, right, err := faces[0].EyeOpenness(frame.Cols(), frame.Rows())
		if err != nil {
			p.log.WithError(err).Debug("skipping face")
		} else if p.blinks.Observe(left, right, now) {
			p.log.Info("blink sequence detected")
			if p.deliverable() {
				p.sender.Toggle(ctx)
			}
		}
	}

	display.DrawFPS(frame, p.fps.Tick(now))
}

func (p *blinkPipeline) deliverable() bool {
	if p.pauser != nil && p.pauser.Paused() {
		return false
	}
	return p.gate == nil || p.gate.Connected()
}

func (p *blinkPipeline) close() error { return nil }
