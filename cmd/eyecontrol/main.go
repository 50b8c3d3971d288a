// Command eyecontrol streams eye gestures from a webcam to a WiFi
// microcontroller.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/eyecontrol/internal/app"
	"github.com/ayusman/eyecontrol/internal/config"
	"github.com/ayusman/eyecontrol/internal/gesture"
	"github.com/ayusman/eyecontrol/internal/logging"
)

const name = "eyecontrol"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.L().Fatalf("Failed to load configuration: %v", err)
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogDir, Name: name})
	log.WithField("peer", cfg.PeerURL()).Info("eyecontrol - eye gesture streaming")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.NewServices(name, cfg, cfg.PeerIP)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	classifier, err := gesture.NewDNNClassifier(cfg.ModelPath)
	if err != nil {
		log.Fatalf("Failed to load gesture model: %v", err)
	}

	hw, err := services.OpenHardware()
	if err != nil {
		classifier.Close()
		log.Fatalf("Failed to initialize hardware: %v", err)
	}

	session := app.NewGestureSession(app.GestureConfig{
		Hardware:      hw,
		Classifier:    classifier,
		Sender:        services.Client(cfg.PeerURL(), cfg.MaxRetries, cfg.RequestTimeout),
		Monitor:       services.Monitor,
		Pauser:        services.Tracker,
		RelayDebounce: cfg.RelayDebounce,
		Log:           logging.Component("session"),
	})

	if err := services.Run(ctx, session); err != nil {
		log.Errorf("eyecontrol stopped: %v", err)
		services.Close()
		os.Exit(1)
	}
	log.Info("eyecontrol stopped")
}
