package main

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"log"
	"os/exec"
	"strconv"
	"sync"
)

// Camera is the sensor collaborator. The production implementation shells
// out to rpicam-still; tests substitute an in-memory fake.
type Camera interface {
	ApplyControls(s CaptureSettings) error
	CaptureStill(path, format string) error
	CaptureFrame() (*image.RGBA, error)
	Close() error
}

// rpicamCamera drives the sensor through the rpicam-apps CLI. Controls are
// remembered and translated to flags on each capture; live frames are
// low-res JPEG captures decoded in memory.
type rpicamCamera struct {
	mu       sync.Mutex
	bin      string
	settings CaptureSettings
}

func newRpicamCamera(bin string) *rpicamCamera {
	return &rpicamCamera{bin: bin, settings: defaultSettings()}
}

func (c *rpicamCamera) ApplyControls(s CaptureSettings) error {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return nil
}

// controlArgs maps the current settings to rpicam-still flags.
func (c *rpicamCamera) controlArgs() []string {
	c.mu.Lock()
	s := c.settings
	c.mu.Unlock()

	args := []string{"--nopreview", "--immediate", "--metering", s.MeteringMode}
	if s.Autofocus {
		args = append(args, "--autofocus-mode", "continuous")
	} else {
		args = append(args, "--autofocus-mode", "manual")
	}
	if s.ManualControl {
		args = append(args,
			"--gain", strconv.FormatFloat(float64(s.ISO)/100.0, 'f', 2, 64),
			"--shutter", strconv.Itoa(s.ShutterMicros))
	}
	return args
}

func (c *rpicamCamera) CaptureStill(path, format string) error {
	args := c.controlArgs()
	switch format {
	case "raw":
		args = append(args, "--raw", "--encoding", "jpg")
	case "png":
		args = append(args, "--encoding", "png")
	default:
		args = append(args, "--encoding", "jpg")
	}
	args = append(args, "-o", path)

	cmd := exec.Command(c.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("capture still: %v: %s", err, stderr.String())
	}
	log.Printf("camera: captured %s", path)
	return nil
}

// CaptureFrame grabs one low resolution frame for the live preview.
func (c *rpicamCamera) CaptureFrame() (*image.RGBA, error) {
	args := c.controlArgs()
	args = append(args,
		"--width", strconv.Itoa(DISPLAY_WIDTH*2),
		"--height", strconv.Itoa(DISPLAY_HEIGHT*2),
		"--encoding", "jpg",
		"--timeout", "1",
		"-o", "-")

	cmd := exec.Command(c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("capture frame: %v: %s", err, stderr.String())
	}
	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("capture frame: decode: %w", err)
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}

func (c *rpicamCamera) Close() error { return nil }

// fakeCamera renders a synthetic frame and records captures. Used by tests
// and by `-fake-hardware` bring-up off the device.
type fakeCamera struct {
	mu        sync.Mutex
	applied   CaptureSettings
	captured  []string
	failNext  error
	frameTint uint8
}

func newFakeCamera() *fakeCamera { return &fakeCamera{} }

func (f *fakeCamera) ApplyControls(s CaptureSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = s
	return nil
}

func (f *fakeCamera) CaptureStill(path, format string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.captured = append(f.captured, path)
	return nil
}

func (f *fakeCamera) CaptureFrame() (*image.RGBA, error) {
	f.mu.Lock()
	f.frameTint += 3
	tint := f.frameTint
	f.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, DISPLAY_WIDTH, DISPLAY_HEIGHT))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = tint
		img.Pix[i+1] = 40
		img.Pix[i+2] = 80
		img.Pix[i+3] = 255
	}
	return img, nil
}

func (f *fakeCamera) Close() error { return nil }
