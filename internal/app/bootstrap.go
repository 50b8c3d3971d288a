package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/eyecontrol/internal/actuator"
	"github.com/ayusman/eyecontrol/internal/capture"
	"github.com/ayusman/eyecontrol/internal/config"
	"github.com/ayusman/eyecontrol/internal/delivery"
	"github.com/ayusman/eyecontrol/internal/detector"
	"github.com/ayusman/eyecontrol/internal/display"
	"github.com/ayusman/eyecontrol/internal/logging"
	"github.com/ayusman/eyecontrol/internal/network"
	"github.com/ayusman/eyecontrol/internal/server"
	"github.com/ayusman/eyecontrol/internal/status"
	"github.com/ayusman/eyecontrol/internal/store"
	"github.com/ayusman/eyecontrol/internal/tray"
)

// Services are the collaborators around a capture loop: the connection
// monitor, delivery recorders and the optional status surfaces.
type Services struct {
	Monitor *network.Monitor
	Tracker *status.Tracker
	Frames  *display.FrameBuffer
	Hub     *server.Hub
	Store   *store.Store

	name   string
	config *config.Config
	log    *logrus.Entry
}

// NewServices builds the monitor for peerIP and opens the journal when one is
// configured. Close releases the journal.
func NewServices(name string, cfg *config.Config, peerIP string) (*Services, error) {
	s := &Services{
		name:   name,
		config: cfg,
		log:    logging.Component(name),
		Frames: display.NewFrameBuffer(),
	}

	runner := network.NewExecRunner(0)
	ap := network.AccessPoint{Iface: cfg.WifiIface, SSID: cfg.PeerSSID, Password: cfg.PeerPassword}
	var assoc network.Associator
	switch cfg.AssocBackend {
	case config.BackendDBus:
		assoc = network.NewDBusAssociator(ap, logging.Component("associate"))
	default:
		assoc = network.NewNmcliAssociator(ap, runner, logging.Component("associate"))
	}

	s.Monitor = network.NewMonitor(network.MonitorConfig{
		Prober:           network.NewPingProber(peerIP, cfg.ProbeTimeout, runner),
		Associator:       assoc,
		Interval:         cfg.CheckInterval,
		AssociateOnStart: cfg.AssociateOnStart,
		Log:              logging.Component("monitor"),
	})
	s.Tracker = status.NewTracker(s.Monitor.Connected)

	if cfg.StatusAddr != "" {
		s.Hub = server.NewHub(logging.Component("ws"))
	}
	if cfg.JournalPath != "" {
		st, err := store.New(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		s.Store = st
	}

	return s, nil
}

// Recorders returns every delivery observer that is enabled.
func (s *Services) Recorders() []delivery.Recorder {
	recs := []delivery.Recorder{s.Tracker}
	if s.Store != nil {
		recs = append(recs, store.NewJournal(s.Store, logging.Component("journal")))
	}
	if s.Hub != nil {
		recs = append(recs, s.Hub)
	}
	return recs
}

// Client returns a microcontroller client for baseURL. Each of up to
// maxAttempts attempts is bounded by attemptTimeout.
func (s *Services) Client(baseURL string, maxAttempts int, attemptTimeout time.Duration) *delivery.Client {
	d := delivery.New(delivery.Config{
		MaxAttempts:    maxAttempts,
		AttemptTimeout: attemptTimeout,
		Recorders:      s.Recorders(),
		Log:            logging.Component("delivery"),
	})
	return delivery.NewClient(baseURL, d)
}

// OpenHardware creates the camera, landmark detector and display sink. The
// camera is opened by Session.Run.
func (s *Services) OpenHardware() (Hardware, error) {
	cfg := s.config

	det, err := detector.NewFaceMeshDetector(detector.DefaultConfig(), logging.Component("detector"))
	if err != nil {
		return Hardware{}, fmt.Errorf("landmark detector: %w", err)
	}

	var sink display.Sink
	if cfg.Headless {
		sink = display.NewHeadlessSink(s.Frames)
	} else {
		sink = display.NewWindowSink(s.name, s.Frames)
	}

	return Hardware{
		Camera: capture.NewCamera(capture.Options{
			DeviceID: cfg.CameraID,
			Width:    cfg.CameraWidth,
			Height:   cfg.CameraHeight,
		}),
		Detector: det,
		Sink:     sink,
	}, nil
}

// OpenServos opens the PCA9685 board when a bus is configured.
func (s *Services) OpenServos() (actuator.Servos, error) {
	if s.config.ServoBus == "" {
		s.log.Info("no servo bus configured, servos disabled")
		return actuator.Noop{}, nil
	}
	return actuator.OpenPCA9685(s.config.ServoBus)
}

// Run drives session together with the status server and tray until the
// session ends or ctx is cancelled. With the tray enabled it must be called
// from the main goroutine.
func (s *Services) Run(ctx context.Context, session *Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The session ending stops every other service.
		defer cancel()
		return session.Run(gctx)
	})
	if s.config.StatusAddr != "" {
		srv := server.New(server.Config{
			Tracker: s.Tracker,
			Store:   s.Store,
			Hub:     s.Hub,
			Frames:  s.Frames,
			Log:     logging.Component("server"),
		})
		g.Go(func() error {
			return srv.Run(gctx, s.config.StatusAddr)
		})
	}

	if s.config.Tray {
		t := tray.New(s.name, s.Tracker)
		t.OnQuit(cancel)
		t.Run(gctx)
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the journal.
func (s *Services) Close() error {
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}
