// Command blinktoggle holds the servos at their home pose and toggles a relay
// when it sees a quick triple blink.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/eyecontrol/internal/app"
	"github.com/ayusman/eyecontrol/internal/blink"
	"github.com/ayusman/eyecontrol/internal/config"
	"github.com/ayusman/eyecontrol/internal/logging"
)

const name = "blinktoggle"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.L().Fatalf("Failed to load configuration: %v", err)
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogDir, Name: name})
	log.WithField("peer", cfg.ToggleURL()).Info("blinktoggle - blink sequence relay toggle")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.NewServices(name, cfg, cfg.ToggleIP())
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	hw, err := services.OpenHardware()
	if err != nil {
		log.Fatalf("Failed to initialize hardware: %v", err)
	}
	if hw.Servos, err = services.OpenServos(); err != nil {
		log.Fatalf("Failed to initialize servos: %v", err)
	}

	session := app.NewBlinkSession(app.BlinkConfig{
		Hardware: hw,
		Blink: blink.Config{
			ClosedRatio: cfg.BlinkRatio,
			Count:       cfg.BlinkCount,
			Window:      cfg.BlinkWindow,
		},
		Sender:  services.Client(cfg.ToggleURL(), cfg.MaxRetries, cfg.ToggleTimeout),
		Monitor: services.Monitor,
		Pauser:  services.Tracker,
		Log:     logging.Component("session"),
	})

	if err := services.Run(ctx, session); err != nil {
		log.Errorf("blinktoggle stopped: %v", err)
		services.Close()
		os.Exit(1)
	}
	log.Info("blinktoggle stopped")
}
