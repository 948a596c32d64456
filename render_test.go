package main

import (
	"image"
	"sync"
	"testing"
	"time"
)

func testState(mode Mode) UIState {
	return UIState{
		Mode:            mode,
		Settings:        defaultSettings(),
		PreviewEnabled:  true,
		LastInteraction: time.Now(),
	}
}

func TestComposeFrameDimensions(t *testing.T) {
	for _, mode := range []Mode{ModeLive, ModeSettings, ModeGallery, ModeDeleteConfirm} {
		frame := composeFrame(testState(mode), nil, time.Now())
		if frame.Bounds().Dx() != DISPLAY_WIDTH || frame.Bounds().Dy() != DISPLAY_HEIGHT {
			t.Errorf("%v frame is %v, want %dx%d", mode, frame.Bounds(), DISPLAY_WIDTH, DISPLAY_HEIGHT)
		}
	}
}

func TestComposeFrameTopBar(t *testing.T) {
	frame := composeFrame(testState(ModeLive), nil, time.Now())
	// The bar background is black; sample a corner pixel away from text.
	c := frame.RGBAAt(DISPLAY_WIDTH/2, 1)
	if c != colBlack {
		t.Errorf("top bar pixel = %v, want black", c)
	}
}

func TestComposeFrameNoticeVisibility(t *testing.T) {
	now := time.Now()
	st := testState(ModeLive)
	st.Notice = "OK"
	st.NoticeUntil = now.Add(500 * time.Millisecond)

	frame := composeFrame(st, nil, now)
	if frame.RGBAAt(DISPLAY_WIDTH-5, 1) != colWhite {
		t.Error("active notice not drawn in the top-right box")
	}

	frame = composeFrame(st, nil, now.Add(time.Second))
	if frame.RGBAAt(DISPLAY_WIDTH-5, 1) == colWhite {
		t.Error("expired notice still drawn")
	}
}

func TestComposeFrameSettingsPanel(t *testing.T) {
	st := testState(ModeSettings)
	frame := composeFrame(st, nil, time.Now())
	// The rounded footer panel is black fill over the background.
	c := frame.RGBAAt(DISPLAY_WIDTH/2, DISPLAY_HEIGHT-FOOTER_HEIGHT/2)
	if c != colBlack {
		t.Errorf("settings panel pixel = %v, want black", c)
	}
}

func TestComposeFrameUsesBackground(t *testing.T) {
	bg := image.NewRGBA(image.Rect(0, 0, DISPLAY_WIDTH, DISPLAY_HEIGHT))
	for i := 0; i < len(bg.Pix); i += 4 {
		bg.Pix[i] = 200
		bg.Pix[i+3] = 255
	}
	frame := composeFrame(testState(ModeLive), bg, time.Now())
	c := frame.RGBAAt(DISPLAY_WIDTH/2, DISPLAY_HEIGHT/2+40)
	if c.R != 200 {
		t.Errorf("background pixel = %v, want red channel 200", c)
	}
}

func TestFitToDisplayAspect(t *testing.T) {
	// A tall source must letterbox left/right, filling the full height.
	src := image.NewRGBA(image.Rect(0, 0, 100, 200))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
		src.Pix[i-1] = 255 // blue
	}
	dst := fitToDisplay(src)
	if dst.Bounds().Dx() != DISPLAY_WIDTH || dst.Bounds().Dy() != DISPLAY_HEIGHT {
		t.Fatalf("fit produced %v", dst.Bounds())
	}
	if c := dst.RGBAAt(2, DISPLAY_HEIGHT/2); c.B != 0 {
		t.Errorf("letterbox margin not black: %v", c)
	}
	if c := dst.RGBAAt(DISPLAY_WIDTH/2, DISPLAY_HEIGHT/2); c.B == 0 {
		t.Errorf("scaled content missing at center: %v", c)
	}
}

func TestApplyGain(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = 100, 100, 200, 255

	applyGain(img, 1.5)
	if img.Pix[0] != 150 {
		t.Errorf("gain 1.5 on 100 = %d, want 150", img.Pix[0])
	}
	if img.Pix[2] != 255 {
		t.Errorf("gain 1.5 on 200 = %d, want clamp to 255", img.Pix[2])
	}
	if img.Pix[3] != 255 {
		t.Errorf("gain touched alpha: %d", img.Pix[3])
	}
}

func TestRenderIconGlyphs(t *testing.T) {
	for _, name := range []string{"camera", "gear", "photos", "trash"} {
		img, err := renderIcon(name, 16)
		if err != nil {
			t.Fatalf("renderIcon(%q): %v", name, err)
		}
		opaque := 0
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] > 0 {
				opaque++
			}
		}
		if opaque == 0 {
			t.Errorf("icon %q rasterized to a fully transparent image", name)
		}
	}
}

func TestBlendImageAtClips(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src := image.NewRGBA(image.Rect(0, 0, 6, 6))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
		src.Pix[i+3] = 255
	}
	// Partially off both edges; must not panic and must paint the overlap.
	blendImageAt(dst, src, -3, 7)
	if dst.RGBAAt(1, 8).R != 255 {
		t.Error("overlap region not painted")
	}
	if dst.RGBAAt(5, 5).R != 0 {
		t.Error("pixel outside the overlap painted")
	}
}

func TestRendererPushesFrames(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.PhotoDir = dir
	cfg.SettingsFile = dir + "/settings.json"
	cfg.RenderMillis = 5
	cfg.IdleSeconds = 1

	cam := newFakeCamera()
	disp := newFakeDisplay()
	ctrl := NewController(cam, cfg, func() {})
	r := NewRenderer(ctrl, cam, disp, cfg)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go r.Run(stop, &wg)

	deadline := time.After(2 * time.Second)
	for {
		disp.mu.Lock()
		pushes := disp.pushes
		disp.mu.Unlock()
		if pushes >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("renderer pushed no frames within 2s")
		case <-time.After(10 * time.Millisecond):
		}
	}
	close(stop)
	wg.Wait()

	if currentFrame() == nil {
		t.Error("renderer did not publish a frame for the HTTP mirror")
	}
	disp.mu.Lock()
	bl := disp.backlight
	disp.mu.Unlock()
	if bl != cfg.BacklightFull {
		t.Errorf("backlight = %v, want full while active", bl)
	}
}
