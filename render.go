package main

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"
)

var (
	frameMutex sync.RWMutex
	currFrame  *image.RGBA // last composed frame, shared with the HTTP mirror
)

func setCurrentFrame(frame *image.RGBA) {
	frameMutex.Lock()
	currFrame = frame
	frameMutex.Unlock()
}

func currentFrame() *image.RGBA {
	frameMutex.RLock()
	defer frameMutex.RUnlock()
	return currFrame
}

// Renderer periodically composes the UI frame from a controller snapshot
// and pushes it to the panel. It only ever reads snapshots; it never
// mutates UI state.
type Renderer struct {
	ctrl *Controller
	cam  Camera
	disp Display
	cfg  Config

	lastLive *image.RGBA // reused when a live capture fails
}

func NewRenderer(ctrl *Controller, cam Camera, disp Display, cfg Config) *Renderer {
	return &Renderer{ctrl: ctrl, cam: cam, disp: disp, cfg: cfg}
}

// Run renders until stop is closed.
func (r *Renderer) Run(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(r.cfg.renderPeriod())
	defer ticker.Stop()

	frames := 0
	lastReport := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			st := r.ctrl.Snapshot()
			r.dimBacklight(st, now)

			frame := r.composeTick(st, now)
			setCurrentFrame(frame)
			if err := r.disp.PushFrame(frame); err != nil {
				log.Printf("render: push frame: %v", err)
			}

			frames++
			if frames%300 == 0 {
				elapsed := now.Sub(lastReport)
				log.Printf("render: %.1f fps", 300/elapsed.Seconds())
				lastReport = now
			}
		}
	}
}

// dimBacklight applies the idle policy: full brightness while the user is
// interacting, dim after the idle timeout.
func (r *Renderer) dimBacklight(st UIState, now time.Time) {
	if now.Sub(st.LastInteraction) > r.cfg.idleTimeout() {
		r.disp.SetBacklight(r.cfg.BacklightDim)
	} else {
		r.disp.SetBacklight(r.cfg.BacklightFull)
	}
}

// composeTick gathers the background image for the current mode and hands
// off to the pure composer.
func (r *Renderer) composeTick(st UIState, now time.Time) *image.RGBA {
	var bg *image.RGBA
	switch st.Mode {
	case ModeLive, ModeSettings:
		if st.PreviewEnabled {
			live, err := r.cam.CaptureFrame()
			if err != nil {
				log.Printf("render: live frame: %v", err)
				live = r.lastLive
			} else {
				r.lastLive = live
			}
			if live != nil {
				bg = fitToDisplay(live)
				applyGain(bg, st.Settings.BrightnessGain)
			}
		}
	case ModeGallery, ModeDeleteConfirm:
		if st.GalleryIndex >= 0 && st.GalleryIndex < len(st.Gallery) {
			photo, err := loadPhoto(st.Gallery[st.GalleryIndex])
			if err != nil {
				log.Printf("render: gallery photo: %v", err)
			} else {
				bg = fitToDisplay(photo)
			}
		}
	}
	return composeFrame(st, bg, now)
}

// composeFrame paints one full display frame: background, top status bar,
// mode-specific overlays and the transient notice. Pure, so tests can
// drive it with synthetic state.
func composeFrame(st UIState, bg *image.RGBA, now time.Time) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, DISPLAY_WIDTH, DISPLAY_HEIGHT))
	if bg != nil {
		blendImageAt(frame, bg, 0, 0)
	} else {
		drawRect(frame, 0, 0, DISPLAY_WIDTH, DISPLAY_HEIGHT, colBlack)
	}

	barFace := getFontFace("bar")

	// Top status bar.
	drawRect(frame, 0, 0, DISPLAY_WIDTH, TOP_BAR_HEIGHT, colBlack)
	title := "Mode: " + st.Mode.String()
	if st.Mode == ModeGallery || st.Mode == ModeDeleteConfirm {
		title = fmt.Sprintf("%d/%d", st.GalleryIndex+1, len(st.Gallery))
	}
	drawText(frame, title, 5, 2, barFace, colWhite, false)
	if icon, err := renderIcon(modeIcons[st.Mode], 16); err == nil {
		blendImageAt(frame, icon, DISPLAY_WIDTH-44, 2)
	}
	if st.Mode == ModeLive || st.Mode == ModeSettings {
		af, afColor := "MF", colYellow
		if st.Settings.Autofocus {
			af, afColor = "AF", colGreen
		}
		drawText(frame, af, DISPLAY_WIDTH-70, 2, barFace, afColor, false)
	}

	switch st.Mode {
	case ModeLive:
		if !st.PreviewEnabled {
			drawText(frame, "preview paused", DISPLAY_WIDTH/2, DISPLAY_HEIGHT/2-8, getFontFace("panel"), colGrey, true)
		}
	case ModeSettings:
		drawSettingsPanel(frame, st)
	case ModeDeleteConfirm:
		drawDeleteDialog(frame)
	}

	// Transient notice, top right.
	if st.Notice != "" && now.Before(st.NoticeUntil) {
		drawRect(frame, DISPLAY_WIDTH-26, 0, 26, TOP_BAR_HEIGHT, colWhite)
		drawText(frame, st.Notice, DISPLAY_WIDTH-13, 2, barFace, colBlack, true)
	}
	return frame
}

// drawSettingsPanel paints the bottom panel with the selected item and
// its value, plus the cursor position.
func drawSettingsPanel(frame *image.RGBA, st UIState) {
	y := DISPLAY_HEIGHT - FOOTER_HEIGHT
	drawPanel(frame, 2, float64(y), DISPLAY_WIDTH-4, FOOTER_HEIGHT-2, 6, colBlack)

	item := settingsItems[st.SettingsCursor]
	val := settingValue(st.Settings, st.SettingsCursor, st.ActiveProfile)
	face := getFontFace("panel")
	drawText(frame, fmt.Sprintf("%s: %s", item, val), 10, y+10, face, colYellow, false)
	pos := fmt.Sprintf("%d/%d", st.SettingsCursor+1, len(settingsItems))
	drawText(frame, pos, DISPLAY_WIDTH-50, y+10, face, colGrey, false)
}

// drawDeleteDialog paints the centered confirmation box.
func drawDeleteDialog(frame *image.RGBA) {
	w, h := 220.0, 80.0
	x := (DISPLAY_WIDTH - w) / 2
	y := (DISPLAY_HEIGHT - h) / 2
	drawPanel(frame, x, y, w, h, 8, colBlack)
	face := getFontFace("panel")
	drawText(frame, "Delete photo?", DISPLAY_WIDTH/2, int(y)+14, face, colRed, true)
	drawText(frame, "A: delete   B: keep", DISPLAY_WIDTH/2, int(y)+44, face, colWhite, true)
}
