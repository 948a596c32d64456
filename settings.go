package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

const (
	minISO  = 50
	maxISO  = 800
	isoStep = 50
)

// shutterSpeeds is the ordered preset list cycled by the settings screen,
// in microseconds.
var shutterSpeeds = []int{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000, 1000000}

var exportFormats = []string{"jpeg", "png", "raw"}

var meteringModes = []string{"average", "center", "spot"}

// CaptureSettings is everything the camera collaborator needs to expose a
// frame the way the user asked for it. Persisted to disk after every edit.
type CaptureSettings struct {
	ISO            int     `json:"iso"`
	ShutterMicros  int     `json:"shutter_micros"`
	Autofocus      bool    `json:"autofocus"`
	ManualControl  bool    `json:"manual_control"`
	ExportFormat   string  `json:"export_format"`
	MeteringMode   string  `json:"metering_mode"`
	BrightnessGain float64 `json:"brightness_gain"`
}

func defaultSettings() CaptureSettings {
	return CaptureSettings{
		ISO:            100,
		ShutterMicros:  10000,
		Autofocus:      true,
		ManualControl:  false,
		ExportFormat:   "jpeg",
		MeteringMode:   "average",
		BrightnessGain: 1.0,
	}
}

// Profile is a named settings preset applied atomically.
type Profile struct {
	Name     string
	Settings CaptureSettings
}

var profiles = []Profile{
	{"Daylight", CaptureSettings{ISO: 100, ShutterMicros: 10000, Autofocus: true, ManualControl: true, ExportFormat: "jpeg", MeteringMode: "average", BrightnessGain: 1.0}},
	{"Low Light", CaptureSettings{ISO: 400, ShutterMicros: 250000, Autofocus: false, ManualControl: true, ExportFormat: "jpeg", MeteringMode: "center", BrightnessGain: 1.3}},
	{"Indoors", CaptureSettings{ISO: 200, ShutterMicros: 50000, Autofocus: true, ManualControl: true, ExportFormat: "jpeg", MeteringMode: "average", BrightnessGain: 1.1}},
}

// settingsItems is the ordered list the settings cursor walks.
var settingsItems = []string{
	"ISO",
	"Shutter",
	"Focus",
	"Control",
	"Format",
	"Metering",
	"Brightness",
	"Profile",
}

// advanceSetting advances the item at cursor to its next value, wrapping.
// Returns the profile index that was applied, or -1 for a manual edit.
// Manual edits must invalidate the active profile; applying a profile
// overwrites every field at once.
func advanceSetting(s *CaptureSettings, cursor int, profileCursor int) (appliedProfile int) {
	appliedProfile = -1
	switch settingsItems[cursor] {
	case "ISO":
		s.ISO += isoStep
		if s.ISO >= maxISO { // max bound is exclusive, stepping onto it wraps
			s.ISO = minISO
		}
	case "Shutter":
		idx := -1
		for i, v := range shutterSpeeds {
			if v == s.ShutterMicros {
				idx = i
				break
			}
		}
		if idx < 0 {
			s.ShutterMicros = shutterSpeeds[0]
		} else {
			s.ShutterMicros = shutterSpeeds[(idx+1)%len(shutterSpeeds)]
		}
	case "Focus":
		s.Autofocus = !s.Autofocus
	case "Control":
		s.ManualControl = !s.ManualControl
	case "Format":
		s.ExportFormat = nextInList(exportFormats, s.ExportFormat)
	case "Metering":
		s.MeteringMode = nextInList(meteringModes, s.MeteringMode)
	case "Brightness":
		s.BrightnessGain += 0.1
		if s.BrightnessGain > 1.55 {
			s.BrightnessGain = 0.5
		}
	case "Profile":
		appliedProfile = (profileCursor + 1) % len(profiles)
		*s = profiles[appliedProfile].Settings
	}
	return appliedProfile
}

func nextInList(list []string, cur string) string {
	for i, v := range list {
		if v == cur {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}

// settingValue renders the current value of one settings item for the
// footer panel.
func settingValue(s CaptureSettings, cursor int, profileName string) string {
	switch settingsItems[cursor] {
	case "ISO":
		if !s.ManualControl {
			return "AUTO"
		}
		return fmt.Sprintf("%d", s.ISO)
	case "Shutter":
		if !s.ManualControl {
			return "AUTO"
		}
		return fmt.Sprintf("%dms", s.ShutterMicros/1000)
	case "Focus":
		if s.Autofocus {
			return "AF"
		}
		return "MF"
	case "Control":
		if s.ManualControl {
			return "MANUAL"
		}
		return "AUTO"
	case "Format":
		return s.ExportFormat
	case "Metering":
		return s.MeteringMode
	case "Brightness":
		return fmt.Sprintf("%.1f", s.BrightnessGain)
	case "Profile":
		if profileName == "" {
			return "-"
		}
		return profileName
	}
	return "-"
}

// saveSettings writes the settings JSON. Failures are logged, not fatal:
// losing persistence never takes the camera down.
func saveSettings(path string, s CaptureSettings) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Printf("settings: marshal: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("settings: save: %v", err)
	}
}

// loadSettings reads persisted settings, returning defaults when the file
// is missing or unreadable.
func loadSettings(path string) CaptureSettings {
	s := defaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("settings: load: %v", err)
		return defaultSettings()
	}
	return s
}
