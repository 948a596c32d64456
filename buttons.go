package main

import (
	"log"
	"sync"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// ButtonID identifies one of the four physical input lines.
type ButtonID int

const (
	ButtonA ButtonID = iota
	ButtonB
	ButtonX
	ButtonY
	numButtons
)

func (b ButtonID) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonX:
		return "X"
	case ButtonY:
		return "Y"
	}
	return "?"
}

// ButtonEvent is one classified gesture: a single or double press.
type ButtonEvent struct {
	Button ButtonID
	Double bool
	At     time.Time
}

// buttonState is the per-line classifier state. Owned by the classifier,
// never visible outside it.
type buttonState struct {
	down        bool
	pressStart  time.Time
	lastRelease time.Time // non-zero while a first release is pending classification
}

// Classifier turns raw per-tick button levels into Single/Double events.
//
// A release within doubleWindow of a pending earlier release emits a double
// press. A lone release emits a single press only once the window has fully
// elapsed with no second release, so a single press is reported with a
// worst-case latency of one doubleWindow. Lines that stay down (stuck or
// held) emit nothing.
type Classifier struct {
	doubleWindow time.Duration
	state        [numButtons]buttonState
	emit         func(ButtonEvent)
}

func NewClassifier(doubleWindow time.Duration, emit func(ButtonEvent)) *Classifier {
	return &Classifier{doubleWindow: doubleWindow, emit: emit}
}

// Poll runs one classification tick. raw holds the current level of each
// line (true = pressed). The amount of work is bounded per tick and does not
// depend on what the emit callback's consumer is doing.
func (c *Classifier) Poll(now time.Time, raw [numButtons]bool) {
	for b := ButtonID(0); b < numButtons; b++ {
		st := &c.state[b]

		// A pending first release whose window has expired is a single
		// press. Checked before edges so a release arriving on this very
		// tick starts a fresh window instead of pairing with a stale one.
		if !st.lastRelease.IsZero() && now.Sub(st.lastRelease) >= c.doubleWindow {
			c.emit(ButtonEvent{Button: b, Double: false, At: now})
			st.lastRelease = time.Time{}
		}

		pressed := raw[b]
		switch {
		case pressed && !st.down:
			st.down = true
			st.pressStart = now
		case !pressed && st.down:
			st.down = false
			if !st.lastRelease.IsZero() && now.Sub(st.lastRelease) < c.doubleWindow {
				c.emit(ButtonEvent{Button: b, Double: true, At: now})
				st.lastRelease = time.Time{} // consumed, a third tap starts over
			} else {
				st.lastRelease = now
			}
		}
	}
}

// ButtonReader supplies the raw level of one line. Implemented by the
// display HAT (GPIO) and by the evdev keypad shim below.
type ButtonReader interface {
	ReadButton(b ButtonID) bool
}

// Poller samples the button lines at a fixed period and feeds the
// classifier. Classified events are delivered over the events channel; the
// channel is buffered so a slow consumer cannot stall a poll tick.
type Poller struct {
	reader ButtonReader
	clf    *Classifier
	period time.Duration
	events chan ButtonEvent
}

func NewPoller(reader ButtonReader, window, period time.Duration) *Poller {
	p := &Poller{
		reader: reader,
		period: period,
		events: make(chan ButtonEvent, 16),
	}
	p.clf = NewClassifier(window, func(ev ButtonEvent) {
		select {
		case p.events <- ev:
		default:
			log.Printf("buttons: dropping %s event, consumer stalled", ev.Button)
		}
	})
	return p
}

// Events is the classified event stream consumed by the UI controller.
func (p *Poller) Events() <-chan ButtonEvent { return p.events }

// Run polls until stop is closed. It never blocks on the consumer.
func (p *Poller) Run(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			var raw [numButtons]bool
			for b := ButtonID(0); b < numButtons; b++ {
				raw[b] = p.reader.ReadButton(b)
			}
			p.clf.Poll(now, raw)
		}
	}
}

// keypadState mirrors evdev key events into levels the poller can sample,
// so a USB keypad can stand in for the HAT buttons on the bench.
type keypadState struct {
	mu   sync.Mutex
	down [numButtons]bool
}

func (k *keypadState) set(b ButtonID, down bool) {
	k.mu.Lock()
	k.down[b] = down
	k.mu.Unlock()
}

func (k *keypadState) ReadButton(b ButtonID) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.down[b]
}

var keypadKeymap = map[evdev.EvCode]ButtonID{
	evdev.KEY_A: ButtonA,
	evdev.KEY_B: ButtonB,
	evdev.KEY_X: ButtonX,
	evdev.KEY_Y: ButtonY,
}

// monitorKeypad finds the named evdev device and mirrors its key events
// into the keypad state. Returns without error if the device is absent.
func monitorKeypad(name string, kp *keypadState, stop <-chan struct{}) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		log.Printf("keypad: ListDevicePaths: %v", err)
		return
	}
	var devPath string
	for _, ip := range paths {
		if ip.Name == name {
			devPath = ip.Path
			break
		}
	}
	if devPath == "" {
		log.Printf("keypad: no input device named %q, GPIO only", name)
		return
	}

	dev, err := evdev.Open(devPath)
	if err != nil {
		log.Printf("keypad: open %s: %v", devPath, err)
		return
	}
	defer dev.Ungrab()
	if err := dev.Grab(); err != nil {
		log.Printf("keypad: grab failed: %v", err)
	}
	devName, _ := dev.Name()
	log.Printf("keypad: using %s (%s)", devPath, devName)

	for {
		select {
		case <-stop:
			return
		default:
		}
		ev, err := dev.ReadOne()
		if err != nil {
			log.Printf("keypad: read: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		if b, ok := keypadKeymap[ev.Code]; ok && ev.Value != 2 {
			kp.set(b, ev.Value == 1)
		}
	}
}

// comboReader ORs two raw sources so the evdev keypad and the HAT buttons
// feed one classifier.
type comboReader struct {
	a, b ButtonReader
}

func (c comboReader) ReadButton(btn ButtonID) bool {
	return c.a.ReadButton(btn) || c.b.ReadButton(btn)
}
