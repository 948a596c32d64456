package main

import (
	"fmt"
	"image"
	"sync"

	gc9307 "github.com/photonicat/periph.io-gc9307"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Display is the panel collaborator: a framebuffer sink, a backlight, and
// the four raw button lines that live on the same HAT.
type Display interface {
	PushFrame(frame *image.RGBA) error
	SetBacklight(level float64)
	ReadButton(b ButtonID) bool
	Close() error
}

// hatDisplay drives the SPI TFT through the gc9307 driver and samples the
// HAT buttons through periph GPIO. Buttons are pulled up and read low
// while pressed.
type hatDisplay struct {
	dev     gc9307.Device
	spiPort spi.PortCloser
	buttons [numButtons]gpio.PinIO
	blPin   gpio.PinIO

	mu        sync.Mutex
	lastLevel float64
}

func openHatDisplay(cfg Config) (*hatDisplay, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: host init: %w", err)
	}

	spiPort, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("display: open %s: %w", cfg.SPIPort, err)
	}
	conn, err := spiPort.Connect(100000*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		spiPort.Close()
		return nil, fmt.Errorf("display: spi connect: %w", err)
	}

	d := &hatDisplay{spiPort: spiPort, lastLevel: -1}
	d.dev = gc9307.New(conn,
		gpioreg.ByName("GPIO0"), // reset not wired on the HAT
		gpioreg.ByName(DC_PIN),
		gpioreg.ByName(CS_PIN),
		gpioreg.ByName(BL_PIN))
	d.dev.Configure(gc9307.Config{
		Width:        DISPLAY_WIDTH,
		Height:       DISPLAY_HEIGHT,
		Rotation:     gc9307.ROTATION_180,
		RowOffset:    0,
		ColumnOffset: 0,
		FrameRate:    gc9307.FRAMERATE_60,
		VSyncLines:   gc9307.MAX_VSYNC_SCANLINES,
		UseCS:        false,
	})
	d.dev.EnableBacklight(true)

	pins := [numButtons]string{BUTTON_A_PIN, BUTTON_B_PIN, BUTTON_X_PIN, BUTTON_Y_PIN}
	for i, name := range pins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			spiPort.Close()
			return nil, fmt.Errorf("display: no pin %s", name)
		}
		if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			spiPort.Close()
			return nil, fmt.Errorf("display: %s as input: %w", name, err)
		}
		d.buttons[i] = pin
	}
	d.blPin = gpioreg.ByName(BL_PIN)
	return d, nil
}

func (d *hatDisplay) PushFrame(frame *image.RGBA) error {
	return d.dev.FillRectangleWithImage(0, 0, DISPLAY_WIDTH, DISPLAY_HEIGHT, frame)
}

// SetBacklight drives the backlight pin with a PWM duty matching level.
// Pins without PWM degrade to on/off at a 50% threshold.
func (d *hatDisplay) SetBacklight(level float64) {
	switch {
	case level < 0:
		level = 0
	case level > 1:
		level = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if level == d.lastLevel {
		return
	}
	d.lastLevel = level

	duty := gpio.Duty(float64(gpio.DutyMax) * level)
	if err := d.blPin.PWM(duty, 200*physic.Hertz); err != nil {
		if level >= 0.5 {
			d.blPin.Out(gpio.High)
		} else {
			d.blPin.Out(gpio.Low)
		}
	}
}

func (d *hatDisplay) ReadButton(b ButtonID) bool {
	return d.buttons[b].Read() == gpio.Low
}

func (d *hatDisplay) Close() error {
	d.SetBacklight(0)
	d.dev.EnableBacklight(false)
	return d.spiPort.Close()
}

// fakeDisplay keeps the last pushed frame in memory. Used in tests and for
// bring-up without the HAT; the HTTP mirror still shows its frames.
type fakeDisplay struct {
	mu        sync.Mutex
	frame     *image.RGBA
	backlight float64
	pressed   [numButtons]bool
	pushes    int
}

func newFakeDisplay() *fakeDisplay { return &fakeDisplay{backlight: 1.0} }

func (d *fakeDisplay) PushFrame(frame *image.RGBA) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = frame
	d.pushes++
	return nil
}

func (d *fakeDisplay) SetBacklight(level float64) {
	d.mu.Lock()
	d.backlight = level
	d.mu.Unlock()
}

func (d *fakeDisplay) ReadButton(b ButtonID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pressed[b]
}

func (d *fakeDisplay) press(b ButtonID, down bool) {
	d.mu.Lock()
	d.pressed[b] = down
	d.mu.Unlock()
}

func (d *fakeDisplay) Close() error { return nil }
