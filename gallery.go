package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// photoExts are the extensions the gallery browses. Stills are named
// IMG_<timestamp>.<ext>, so an ascending name sort is capture order.
var photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".dng": true}

// listPhotos returns the photo paths in dir, ascending by filename.
func listPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	var photos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if photoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			photos = append(photos, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(photos)
	return photos, nil
}

// deletePhoto removes one stored photo.
func deletePhoto(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// photoPath builds the destination for a new capture.
func photoPath(dir, format string) string {
	ext := ".jpg"
	switch format {
	case "png":
		ext = ".png"
	case "raw":
		ext = ".dng"
	}
	return filepath.Join(dir, time.Now().Format("IMG_20060102_150405")+ext)
}

// ensurePhotoDir creates the photo directory if needed.
func ensurePhotoDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
