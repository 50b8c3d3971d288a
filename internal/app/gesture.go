package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/eyecontrol/internal/delivery"
	"github.com/ayusman/eyecontrol/internal/detector"
	"github.com/ayusman/eyecontrol/internal/display"
	"github.com/ayusman/eyecontrol/internal/gesture"
)

// GestureConfig configures the gesture streaming controller.
type GestureConfig struct {
	Hardware   Hardware
	Classifier gesture.Classifier
	Sender     Sender
	// Monitor, Gate and Pauser may be nil. Gate defaults to Monitor; with
	// neither set every delivery is attempted.
	Monitor       Monitor
	Gate          Gate
	Pauser        Pauser
	RelayDebounce time.Duration
	Log           *logrus.Entry
}

// gesturePipeline classifies every face and streams the label.
type gesturePipeline struct {
	classifier gesture.Classifier
	sender     Sender
	gate       Gate
	pauser     Pauser
	relay      *delivery.Debouncer
	log        *logrus.Entry
}

// NewGestureSession builds the controller that streams one gesture per face
// and pulses the relay on one-eye closures.
func NewGestureSession(config GestureConfig) *Session {
	p := &gesturePipeline{
		classifier: config.Classifier,
		sender:     config.Sender,
		gate:       gateFor(config.Gate, config.Monitor),
		pauser:     config.Pauser,
		relay:      delivery.NewDebouncer(config.RelayDebounce),
		log:        config.Log,
	}
	s := newSession(config.Hardware, p, config.Monitor, config.Log)
	p.log = s.log
	return s
}

func (p *gesturePipeline) start() error { return nil }

func (p *gesturePipeline) process(ctx context.Context, frame *gocv.Mat, faces []detector.FaceLandmarks, now time.Time) {
	for i := range faces {
		features, err := faces[i].IrisFeatures()
		if err != nil {
			p.log.WithError(err).Debug("skipping face")
			continue
		}
		label, err := p.classifier.Classify(features)
		if err != nil {
			p.log.WithError(err).Warn("classification failed")
			continue
		}
		p.log.WithField("gesture", label).Debug("classified")

		if !p.deliverable() {
			continue
		}
		p.sender.SendGesture(ctx, label.String())
		if label.IsOneEyeClosure() && p.relay.AllowAt(now) {
			p.sender.Relay(ctx)
		}
	}

	display.DrawStatus(frame, p.connected())
}

// connected reads the gate. A nil gate means no monitor runs.
func (p *gesturePipeline) connected() bool {
	return p.gate == nil || p.gate.Connected()
}

// deliverable reports whether the link is up and deliveries are not paused.
func (p *gesturePipeline) deliverable() bool {
	if p.pauser != nil && p.pauser.Paused() {
		return false
	}
	return p.connected()
}

func (p *gesturePipeline) close() error {
	return p.classifier.Close()
}
