// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Association backends.
const (
	BackendNmcli = "nmcli"
	BackendDBus  = "dbus"
)

// Config holds every tunable used by the two programs.
type Config struct {
	// Microcontroller link
	PeerIP           string `validate:"required,ip"`
	PeerSSID         string `validate:"required"`
	PeerPassword     string
	WifiIface        string        `validate:"required"`
	AssocBackend     string        `validate:"oneof=nmcli dbus"`
	AssociateOnStart bool
	CheckInterval    time.Duration `validate:"min=1s"`
	ProbeTimeout     time.Duration `validate:"min=100ms"`

	// Delivery
	MaxRetries     int           `validate:"min=1,max=20"`
	RequestTimeout time.Duration `validate:"min=100ms"`
	ToggleTimeout  time.Duration `validate:"min=100ms"`
	RelayDebounce  time.Duration `validate:"min=0"`

	// Toggle endpoint host for blinktoggle; defaults to PeerIP.
	TogglePeerIP string `validate:"omitempty,ip"`

	// Capture and inference
	CameraID     int `validate:"min=0"`
	CameraWidth  int `validate:"min=1"`
	CameraHeight int `validate:"min=1"`
	ModelPath    string
	Headless     bool

	// Blink detection
	BlinkWindow time.Duration `validate:"min=1ms"`
	BlinkCount  int           `validate:"min=1"`
	BlinkRatio  float64       `validate:"gt=0,lt=1"`

	// Servos; empty bus disables the PCA9685 driver.
	ServoBus string

	// Optional surfaces
	StatusAddr  string
	JournalPath string
	Tray        bool

	// Logging
	LogDir   string
	LogLevel string `validate:"oneof=trace debug info warn warning error"`
}

// Load reads .env (if present) and then the EYE_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a validated Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		PeerIP:           getEnv("EYE_PEER_IP", "192.168.4.1"),
		PeerSSID:         getEnv("EYE_PEER_SSID", "EyeControl_AP"),
		PeerPassword:     getEnv("EYE_PEER_PASSWORD", ""),
		WifiIface:        getEnv("EYE_WIFI_IFACE", "wlan0"),
		AssocBackend:     getEnv("EYE_ASSOC_BACKEND", BackendNmcli),
		AssociateOnStart: getEnvAsBool("EYE_ASSOCIATE_ON_START", true),
		CheckInterval:    getEnvAsDuration("EYE_CHECK_INTERVAL", 15*time.Second),
		ProbeTimeout:     getEnvAsDuration("EYE_PROBE_TIMEOUT", time.Second),

		MaxRetries:     getEnvAsInt("EYE_MAX_RETRIES", 5),
		RequestTimeout: getEnvAsDuration("EYE_REQUEST_TIMEOUT", 3*time.Second),
		ToggleTimeout:  getEnvAsDuration("EYE_TOGGLE_TIMEOUT", 2*time.Second),
		RelayDebounce:  getEnvAsDuration("EYE_RELAY_DEBOUNCE", time.Second),
		TogglePeerIP:   getEnv("EYE_TOGGLE_PEER_IP", ""),

		CameraID:     getEnvAsInt("EYE_CAMERA_ID", 0),
		CameraWidth:  getEnvAsInt("EYE_CAMERA_WIDTH", 640),
		CameraHeight: getEnvAsInt("EYE_CAMERA_HEIGHT", 480),
		ModelPath:    getEnv("EYE_MODEL_PATH", "iris_gesture_model.tflite"),
		Headless:     getEnvAsBool("EYE_HEADLESS", false),

		BlinkWindow: getEnvAsDuration("EYE_BLINK_WINDOW", 1500*time.Millisecond),
		BlinkCount:  getEnvAsInt("EYE_BLINK_COUNT", 3),
		BlinkRatio:  getEnvAsFloat("EYE_BLINK_RATIO", 0.15),

		ServoBus: getEnv("EYE_SERVO_BUS", ""),

		StatusAddr:  getEnv("EYE_STATUS_ADDR", ""),
		JournalPath: getEnv("EYE_JOURNAL_PATH", defaultJournalPath()),
		Tray:        getEnvAsBool("EYE_TRAY", false),

		LogDir:   getEnv("EYE_LOG_DIR", ""),
		LogLevel: getEnv("EYE_LOG_LEVEL", "info"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// PeerURL returns the base URL of the gesture microcontroller.
func (c *Config) PeerURL() string {
	return "http://" + c.PeerIP
}

// ToggleIP returns the address of the relay toggle microcontroller.
func (c *Config) ToggleIP() string {
	if c.TogglePeerIP != "" {
		return c.TogglePeerIP
	}
	return c.PeerIP
}

// ToggleURL returns the base URL of the relay toggle microcontroller.
func (c *Config) ToggleURL() string {
	return "http://" + c.ToggleIP()
}

// defaultJournalPath places the journal next to other per-user data.
// Returns empty string, disabling the journal, when no home directory exists.
func defaultJournalPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".eyecontrol", "journal.db")
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("1.5s") or bare seconds ("15").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
