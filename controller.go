package main

import (
	"log"
	"sync"
	"time"
)

// Mode is the active UI screen. Exactly one is active at any instant.
type Mode int

const (
	ModeLive Mode = iota
	ModeSettings
	ModeGallery
	ModeDeleteConfirm
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "photo"
	case ModeSettings:
		return "settings"
	case ModeGallery:
		return "gallery"
	case ModeDeleteConfirm:
		return "delete?"
	}
	return "?"
}

const noticeDuration = 800 * time.Millisecond

// UIState is the single shared record between the controller and the
// render loop. The controller owns it; the renderer only ever sees value
// snapshots taken under the lock.
type UIState struct {
	Mode            Mode
	Settings        CaptureSettings
	SettingsCursor  int
	Gallery         []string
	GalleryIndex    int
	PreviewEnabled  bool
	LastInteraction time.Time
	ActiveProfile   string

	// Transient notice icon shown in the top bar until NoticeUntil.
	Notice      string
	NoticeUntil time.Time
}

// Controller applies classified button events to the UI state, one at a
// time, issuing at most one camera or filesystem command per event. Any
// collaborator failure leaves mode and indices untouched and surfaces only
// as a transient notice.
type Controller struct {
	mu sync.RWMutex
	st UIState

	cam          Camera
	photoDir     string
	settingsFile string

	profileCursor int
	now           func() time.Time
	requestStop   func()
}

func NewController(cam Camera, cfg Config, requestStop func()) *Controller {
	c := &Controller{
		cam:           cam,
		photoDir:      cfg.PhotoDir,
		settingsFile:  cfg.SettingsFile,
		profileCursor: -1,
		now:           time.Now,
		requestStop:   requestStop,
	}
	c.st = UIState{
		Mode:            ModeLive,
		Settings:        loadSettings(cfg.SettingsFile),
		PreviewEnabled:  true,
		LastInteraction: c.now(),
	}
	if err := cam.ApplyControls(c.st.Settings); err != nil {
		log.Printf("controller: initial ApplyControls: %v", err)
	}
	return c
}

// Snapshot returns a consistent copy of the UI state for one render tick.
// Multi-field transitions never appear half applied here.
func (c *Controller) Snapshot() UIState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.st
	st.Gallery = append([]string(nil), c.st.Gallery...)
	return st
}

// Run drains the event channel until stop is closed. Events from one
// button arrive in classification order; each is applied atomically.
func (c *Controller) Run(events <-chan ButtonEvent, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-stop:
			return
		case ev := <-events:
			c.HandleEvent(ev)
		}
	}
}

// HandleEvent applies one classified gesture according to the current mode.
func (c *Controller) HandleEvent(ev ButtonEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.LastInteraction = c.now()

	switch c.st.Mode {
	case ModeLive:
		c.handleLive(ev)
	case ModeSettings:
		c.handleSettings(ev)
	case ModeGallery:
		c.handleGallery(ev)
	case ModeDeleteConfirm:
		c.handleDeleteConfirm(ev)
	}
}

func (c *Controller) handleLive(ev ButtonEvent) {
	switch {
	case ev.Button == ButtonA && !ev.Double:
		c.capturePhoto()
	case ev.Button == ButtonA && ev.Double:
		c.st.PreviewEnabled = !c.st.PreviewEnabled
		if c.st.PreviewEnabled {
			c.notify(">")
		} else {
			c.notify("||")
		}
	case ev.Button == ButtonB && !ev.Double:
		c.enterGallery()
	case ev.Button == ButtonB && ev.Double:
		c.st.Mode = ModeSettings
	case ev.Button == ButtonX && ev.Double:
		c.st.Settings.Autofocus = !c.st.Settings.Autofocus
		c.st.ActiveProfile = ""
		c.applyAndPersist()
		if c.st.Settings.Autofocus {
			c.notify("AF")
		} else {
			c.notify("MF")
		}
	case ev.Button == ButtonY && ev.Double:
		log.Println("controller: shutdown requested")
		c.requestStop()
	}
}

func (c *Controller) handleSettings(ev ButtonEvent) {
	n := len(settingsItems)
	switch {
	case ev.Button == ButtonA && !ev.Double:
		applied := advanceSetting(&c.st.Settings, c.st.SettingsCursor, c.profileCursor)
		if applied >= 0 {
			c.profileCursor = applied
			c.st.ActiveProfile = profiles[applied].Name
		} else {
			// Manual edit invalidates the profile indicator.
			c.st.ActiveProfile = ""
		}
		c.applyAndPersist()
	case ev.Button == ButtonX && !ev.Double:
		c.st.SettingsCursor = (c.st.SettingsCursor - 1 + n) % n
	case ev.Button == ButtonY && !ev.Double:
		c.st.SettingsCursor = (c.st.SettingsCursor + 1) % n
	case ev.Button == ButtonB && ev.Double:
		c.st.Mode = ModeLive
	}
}

func (c *Controller) handleGallery(ev ButtonEvent) {
	switch {
	case ev.Button == ButtonA && !ev.Double:
		c.st.Mode = ModeLive
		c.st.Gallery = nil
		c.st.GalleryIndex = 0
	case ev.Button == ButtonX && !ev.Double:
		if c.st.GalleryIndex > 0 {
			c.st.GalleryIndex--
		}
	case ev.Button == ButtonY && !ev.Double:
		if c.st.GalleryIndex < len(c.st.Gallery)-1 {
			c.st.GalleryIndex++
		}
	case ev.Button == ButtonX && ev.Double:
		c.st.Mode = ModeDeleteConfirm
	}
}

func (c *Controller) handleDeleteConfirm(ev ButtonEvent) {
	switch {
	case ev.Button == ButtonA && !ev.Double:
		c.deleteCurrent()
	case ev.Button == ButtonB && !ev.Double:
		c.st.Mode = ModeGallery
	}
}

// capturePhoto is the one side effect of A/single in Live mode.
func (c *Controller) capturePhoto() {
	path := photoPath(c.photoDir, c.st.Settings.ExportFormat)
	if err := c.cam.CaptureStill(path, c.st.Settings.ExportFormat); err != nil {
		log.Printf("controller: capture: %v", err)
		c.notify("X")
		return
	}
	c.notify("OK")
}

// enterGallery loads the photo listing and jumps to the newest photo. With
// no photos the mode is left at Live.
func (c *Controller) enterGallery() {
	photos, err := listPhotos(c.photoDir)
	if err != nil {
		log.Printf("controller: %v", err)
		c.notify("X")
		return
	}
	if len(photos) == 0 {
		c.notify("EMPTY")
		return
	}
	c.st.Gallery = photos
	c.st.GalleryIndex = len(photos) - 1
	c.st.Mode = ModeGallery
}

// deleteCurrent removes the selected photo and reindexes. Deleting the
// last remaining photo falls back to Live, never to a gallery holding an
// invalid index. A failed delete leaves mode and index untouched.
func (c *Controller) deleteCurrent() {
	if c.st.GalleryIndex < 0 || c.st.GalleryIndex >= len(c.st.Gallery) {
		c.st.Mode = ModeLive
		return
	}
	path := c.st.Gallery[c.st.GalleryIndex]
	if err := deletePhoto(path); err != nil {
		log.Printf("controller: %v", err)
		c.notify("X")
		return
	}
	dropCachedPhoto(path)
	c.st.Gallery = append(c.st.Gallery[:c.st.GalleryIndex], c.st.Gallery[c.st.GalleryIndex+1:]...)
	if c.st.GalleryIndex > 0 {
		c.st.GalleryIndex--
	}
	c.notify("DEL")
	if len(c.st.Gallery) == 0 {
		c.st.Mode = ModeLive
		c.st.GalleryIndex = 0
		return
	}
	c.st.Mode = ModeGallery
}

// applyAndPersist pushes the current settings to the camera and saves
// them. Neither failure mutates UI state beyond the notice.
func (c *Controller) applyAndPersist() {
	if err := c.cam.ApplyControls(c.st.Settings); err != nil {
		log.Printf("controller: ApplyControls: %v", err)
		c.notify("X")
	}
	saveSettings(c.settingsFile, c.st.Settings)
}

func (c *Controller) notify(icon string) {
	c.st.Notice = icon
	c.st.NoticeUntil = c.now().Add(noticeDuration)
}
