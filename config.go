package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	DISPLAY_WIDTH  = 320
	DISPLAY_HEIGHT = 240

	TOP_BAR_HEIGHT = 20
	FOOTER_HEIGHT  = 40

	// Display HAT Mini wiring (BCM numbering via periph gpioreg).
	DC_PIN = "GPIO9"
	BL_PIN = "GPIO13"
	CS_PIN = "GPIO1"

	BUTTON_A_PIN = "GPIO5"
	BUTTON_B_PIN = "GPIO6"
	BUTTON_X_PIN = "GPIO16"
	BUTTON_Y_PIN = "GPIO24"
)

// Config is the on-disk configuration, loaded from config.json. Zero or
// missing fields fall back to the defaults below.
type Config struct {
	PhotoDir       string  `json:"photo_dir"`
	SettingsFile   string  `json:"settings_file"`
	PollMillis     int     `json:"poll_millis"`
	DoubleMillis   int     `json:"double_press_millis"`
	RenderMillis   int     `json:"render_millis"`
	IdleSeconds    int     `json:"idle_seconds"`
	BacklightFull  float64 `json:"backlight_full"`
	BacklightDim   float64 `json:"backlight_dim"`
	HTTPAddr       string  `json:"http_addr"`
	EvdevName      string  `json:"evdev_name"`
	PowerOffCmd    string  `json:"power_off_cmd"`
	SPIPort        string  `json:"spi_port"`
	CaptureCommand string  `json:"capture_command"`
}

func defaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		PhotoDir:       filepath.Join(home, "Pictures", "Camera"),
		SettingsFile:   filepath.Join(home, "camera_settings.json"),
		PollMillis:     40,
		DoubleMillis:   350,
		RenderMillis:   100,
		IdleSeconds:    70,
		BacklightFull:  1.0,
		BacklightDim:   0.25,
		HTTPAddr:       ":8081",
		PowerOffCmd:    "sudo shutdown now",
		SPIPort:        "SPI0.0",
		CaptureCommand: "rpicam-still",
	}
}

// loadConfig reads and unmarshals the config file, filling unset fields
// with defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.PollMillis <= 0 {
		cfg.PollMillis = 40
	}
	if cfg.DoubleMillis <= 0 {
		cfg.DoubleMillis = 350
	}
	if cfg.RenderMillis <= 0 {
		cfg.RenderMillis = 100
	}
	if cfg.IdleSeconds <= 0 {
		cfg.IdleSeconds = 70
	}
	return cfg, nil
}

func (c Config) pollPeriod() time.Duration   { return time.Duration(c.PollMillis) * time.Millisecond }
func (c Config) doubleWindow() time.Duration { return time.Duration(c.DoubleMillis) * time.Millisecond }
func (c Config) renderPeriod() time.Duration { return time.Duration(c.RenderMillis) * time.Millisecond }
func (c Config) idleTimeout() time.Duration  { return time.Duration(c.IdleSeconds) * time.Second }
