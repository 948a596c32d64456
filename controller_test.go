package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func ev(b ButtonID, double bool) ButtonEvent {
	return ButtonEvent{Button: b, Double: double, At: time.Now()}
}

func newTestController(t *testing.T) (*Controller, *fakeCamera, string, *bool) {
	t.Helper()
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.PhotoDir = dir
	cfg.SettingsFile = filepath.Join(dir, "settings.json")

	cam := newFakeCamera()
	stopped := false
	ctrl := NewController(cam, cfg, func() { stopped = true })
	return ctrl, cam, dir, &stopped
}

func addPhotos(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestInitialState(t *testing.T) {
	ctrl, cam, _, _ := newTestController(t)
	st := ctrl.Snapshot()
	if st.Mode != ModeLive {
		t.Errorf("initial mode = %v, want Live", st.Mode)
	}
	if !st.PreviewEnabled {
		t.Error("preview should start enabled")
	}
	if cam.applied != st.Settings {
		t.Error("initial settings were not applied to the camera")
	}
}

func TestCapturePhoto(t *testing.T) {
	ctrl, cam, _, _ := newTestController(t)
	ctrl.HandleEvent(ev(ButtonA, false))

	if len(cam.captured) != 1 {
		t.Fatalf("captured %d stills, want 1", len(cam.captured))
	}
	st := ctrl.Snapshot()
	if st.Mode != ModeLive {
		t.Errorf("mode after capture = %v, want Live", st.Mode)
	}
	if st.Notice != "OK" {
		t.Errorf("notice = %q, want OK", st.Notice)
	}
	if filepath.Ext(cam.captured[0]) != ".jpg" {
		t.Errorf("capture path %q, want .jpg extension", cam.captured[0])
	}
}

func TestCaptureFailureKeepsState(t *testing.T) {
	ctrl, cam, _, _ := newTestController(t)
	cam.failNext = errors.New("sensor busy")
	ctrl.HandleEvent(ev(ButtonA, false))

	st := ctrl.Snapshot()
	if st.Mode != ModeLive {
		t.Errorf("mode after failed capture = %v, want Live", st.Mode)
	}
	if st.Notice != "X" {
		t.Errorf("notice = %q, want X", st.Notice)
	}
	if len(cam.captured) != 0 {
		t.Errorf("captured %d stills, want 0", len(cam.captured))
	}
}

func TestTogglePreview(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	ctrl.HandleEvent(ev(ButtonA, true))
	if ctrl.Snapshot().PreviewEnabled {
		t.Error("preview still enabled after toggle")
	}
	ctrl.HandleEvent(ev(ButtonA, true))
	if !ctrl.Snapshot().PreviewEnabled {
		t.Error("preview not re-enabled after second toggle")
	}
}

func TestEmptyGalleryStaysLive(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	ctrl.HandleEvent(ev(ButtonB, false))

	st := ctrl.Snapshot()
	if st.Mode != ModeLive {
		t.Errorf("mode = %v, want Live when no photos exist", st.Mode)
	}
	if st.Notice != "EMPTY" {
		t.Errorf("notice = %q, want EMPTY", st.Notice)
	}
}

func TestEnterGalleryJumpsToNewest(t *testing.T) {
	ctrl, _, dir, _ := newTestController(t)
	addPhotos(t, dir, "IMG_001.jpg", "IMG_002.jpg", "IMG_003.jpg")
	ctrl.HandleEvent(ev(ButtonB, false))

	st := ctrl.Snapshot()
	if st.Mode != ModeGallery {
		t.Fatalf("mode = %v, want Gallery", st.Mode)
	}
	if st.GalleryIndex != 2 {
		t.Errorf("gallery index = %d, want 2 (newest)", st.GalleryIndex)
	}
	if len(st.Gallery) != 3 {
		t.Errorf("gallery count = %d, want 3", len(st.Gallery))
	}
}

func TestGalleryNavigationClamps(t *testing.T) {
	ctrl, _, dir, _ := newTestController(t)
	addPhotos(t, dir, "IMG_001.jpg", "IMG_002.jpg")
	ctrl.HandleEvent(ev(ButtonB, false)) // index 1

	// Y at the newest photo must stay put.
	ctrl.HandleEvent(ev(ButtonY, false))
	if got := ctrl.Snapshot().GalleryIndex; got != 1 {
		t.Errorf("index after Y at end = %d, want 1", got)
	}

	ctrl.HandleEvent(ev(ButtonX, false))
	if got := ctrl.Snapshot().GalleryIndex; got != 0 {
		t.Errorf("index after X = %d, want 0", got)
	}

	// X at the oldest photo must stay put.
	for i := 0; i < 5; i++ {
		ctrl.HandleEvent(ev(ButtonX, false))
	}
	if got := ctrl.Snapshot().GalleryIndex; got != 0 {
		t.Errorf("index after repeated X = %d, want 0", got)
	}
}

func TestGalleryExit(t *testing.T) {
	ctrl, _, dir, _ := newTestController(t)
	addPhotos(t, dir, "IMG_001.jpg")
	ctrl.HandleEvent(ev(ButtonB, false))
	ctrl.HandleEvent(ev(ButtonA, false))
	if got := ctrl.Snapshot().Mode; got != ModeLive {
		t.Errorf("mode after A in gallery = %v, want Live", got)
	}
}

func TestDeleteConfirmFlow(t *testing.T) {
	ctrl, _, dir, _ := newTestController(t)
	addPhotos(t, dir, "IMG_001.jpg", "IMG_002.jpg")
	ctrl.HandleEvent(ev(ButtonB, false))
	ctrl.HandleEvent(ev(ButtonX, true))
	if got := ctrl.Snapshot().Mode; got != ModeDeleteConfirm {
		t.Fatalf("mode after X double = %v, want DeleteConfirm", got)
	}

	// B cancels without deleting.
	ctrl.HandleEvent(ev(ButtonB, false))
	st := ctrl.Snapshot()
	if st.Mode != ModeGallery {
		t.Errorf("mode after cancel = %v, want Gallery", st.Mode)
	}
	if len(st.Gallery) != 2 {
		t.Errorf("gallery count after cancel = %d, want 2", len(st.Gallery))
	}

	// A deletes and reindexes downward.
	ctrl.HandleEvent(ev(ButtonX, true))
	ctrl.HandleEvent(ev(ButtonA, false))
	st = ctrl.Snapshot()
	if st.Mode != ModeGallery {
		t.Errorf("mode after delete = %v, want Gallery", st.Mode)
	}
	if len(st.Gallery) != 1 || st.GalleryIndex != 0 {
		t.Errorf("after delete: count=%d index=%d, want 1 and 0", len(st.Gallery), st.GalleryIndex)
	}
	if _, err := os.Stat(filepath.Join(dir, "IMG_002.jpg")); !os.IsNotExist(err) {
		t.Error("IMG_002.jpg still exists after delete")
	}
}

func TestDeleteLastPhotoFallsBackToLive(t *testing.T) {
	ctrl, _, dir, _ := newTestController(t)
	addPhotos(t, dir, "IMG_001.jpg")
	ctrl.HandleEvent(ev(ButtonB, false))
	ctrl.HandleEvent(ev(ButtonX, true))
	ctrl.HandleEvent(ev(ButtonA, false))

	st := ctrl.Snapshot()
	if st.Mode != ModeLive {
		t.Errorf("mode after deleting only photo = %v, want Live", st.Mode)
	}
	if len(st.Gallery) != 0 {
		t.Errorf("gallery count = %d, want 0", len(st.Gallery))
	}
}

func TestDeleteFailureKeepsState(t *testing.T) {
	ctrl, _, dir, _ := newTestController(t)
	addPhotos(t, dir, "IMG_001.jpg")
	ctrl.HandleEvent(ev(ButtonB, false))
	ctrl.HandleEvent(ev(ButtonX, true))

	// Pull the file out from under the controller so the delete fails.
	if err := os.Remove(filepath.Join(dir, "IMG_001.jpg")); err != nil {
		t.Fatal(err)
	}
	ctrl.HandleEvent(ev(ButtonA, false))

	st := ctrl.Snapshot()
	if st.Mode != ModeDeleteConfirm {
		t.Errorf("mode after failed delete = %v, want DeleteConfirm (unchanged)", st.Mode)
	}
	if st.GalleryIndex != 0 || len(st.Gallery) != 1 {
		t.Errorf("indices changed after failed delete: count=%d index=%d", len(st.Gallery), st.GalleryIndex)
	}
	if st.Notice != "X" {
		t.Errorf("notice = %q, want X", st.Notice)
	}
}

func TestSettingsModeRoundTrip(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	ctrl.HandleEvent(ev(ButtonB, true))
	if got := ctrl.Snapshot().Mode; got != ModeSettings {
		t.Fatalf("mode after B double = %v, want Settings", got)
	}
	ctrl.HandleEvent(ev(ButtonB, true))
	if got := ctrl.Snapshot().Mode; got != ModeLive {
		t.Errorf("mode after second B double = %v, want Live", got)
	}
}

func TestSettingsCursorWraps(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	ctrl.HandleEvent(ev(ButtonB, true))

	n := len(settingsItems)
	ctrl.HandleEvent(ev(ButtonX, false))
	if got := ctrl.Snapshot().SettingsCursor; got != n-1 {
		t.Errorf("cursor after X from 0 = %d, want %d", got, n-1)
	}
	ctrl.HandleEvent(ev(ButtonY, false))
	if got := ctrl.Snapshot().SettingsCursor; got != 0 {
		t.Errorf("cursor after Y wrap = %d, want 0", got)
	}
	for i := 0; i < n; i++ {
		ctrl.HandleEvent(ev(ButtonY, false))
		if got := ctrl.Snapshot().SettingsCursor; got < 0 || got >= n {
			t.Fatalf("cursor out of range: %d", got)
		}
	}
}

func TestISOWrapScenario(t *testing.T) {
	ctrl, cam, _, _ := newTestController(t)
	ctrl.mu.Lock()
	ctrl.st.Settings.ISO = 750
	ctrl.st.SettingsCursor = 0 // ISO
	ctrl.st.Mode = ModeSettings
	ctrl.mu.Unlock()

	ctrl.HandleEvent(ev(ButtonA, false))
	st := ctrl.Snapshot()
	if st.Settings.ISO != minISO {
		t.Errorf("ISO after advancing from 750 = %d, want %d (wrap)", st.Settings.ISO, minISO)
	}
	if cam.applied.ISO != minISO {
		t.Error("new ISO was not applied to the camera")
	}
}

func TestProfileApplyAndInvalidate(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	ctrl.mu.Lock()
	ctrl.st.Mode = ModeSettings
	for i, item := range settingsItems {
		if item == "Profile" {
			ctrl.st.SettingsCursor = i
		}
	}
	ctrl.mu.Unlock()

	ctrl.HandleEvent(ev(ButtonA, false))
	st := ctrl.Snapshot()
	if st.ActiveProfile != profiles[0].Name {
		t.Fatalf("active profile = %q, want %q", st.ActiveProfile, profiles[0].Name)
	}
	if st.Settings != profiles[0].Settings {
		t.Error("profile settings were not applied atomically")
	}

	// A manual edit elsewhere clears the profile indicator.
	ctrl.mu.Lock()
	ctrl.st.SettingsCursor = 0 // ISO
	ctrl.mu.Unlock()
	ctrl.HandleEvent(ev(ButtonA, false))
	if got := ctrl.Snapshot().ActiveProfile; got != "" {
		t.Errorf("active profile after manual edit = %q, want cleared", got)
	}
}

func TestLiveAFToggle(t *testing.T) {
	ctrl, cam, _, _ := newTestController(t)
	before := ctrl.Snapshot().Settings.Autofocus
	ctrl.HandleEvent(ev(ButtonX, true))
	st := ctrl.Snapshot()
	if st.Settings.Autofocus == before {
		t.Error("X double in Live did not toggle autofocus")
	}
	if cam.applied.Autofocus == before {
		t.Error("autofocus toggle was not reapplied to the camera")
	}
	if st.Mode != ModeLive {
		t.Errorf("mode = %v, want Live", st.Mode)
	}
}

func TestShutdownRequest(t *testing.T) {
	ctrl, _, _, stopped := newTestController(t)
	ctrl.HandleEvent(ev(ButtonY, true))
	if !*stopped {
		t.Error("Y double in Live did not request shutdown")
	}
}

func TestEveryEventTouchesLastInteraction(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	before := ctrl.Snapshot().LastInteraction
	time.Sleep(2 * time.Millisecond)
	ctrl.HandleEvent(ev(ButtonX, false)) // no-op in Live mode
	if got := ctrl.Snapshot().LastInteraction; !got.After(before) {
		t.Error("LastInteraction not refreshed by an event")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ctrl, _, dir, _ := newTestController(t)
	addPhotos(t, dir, "IMG_001.jpg", "IMG_002.jpg")
	ctrl.HandleEvent(ev(ButtonB, false))

	st := ctrl.Snapshot()
	st.Gallery[0] = "tampered"
	st.Mode = ModeDeleteConfirm

	fresh := ctrl.Snapshot()
	if fresh.Gallery[0] == "tampered" {
		t.Error("snapshot shares gallery backing array with the controller")
	}
	if fresh.Mode != ModeGallery {
		t.Error("snapshot mutation leaked into controller state")
	}
}
