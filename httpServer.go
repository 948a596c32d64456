package main

import (
	"bytes"
	"image/png"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// httpServer exposes a debug mirror of the device: the last composed
// frame as PNG and the UI state as JSON. Handy over SSH when the unit is
// assembled and the panel is the only other output.
func httpServer(ctrl *Controller, addr string) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/frame", func(c *fiber.Ctx) error {
		frame := currentFrame()
		if frame == nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("No frame available")
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, frame); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Failed to encode frame")
		}
		c.Set("Content-Type", "image/png")
		c.Set("Content-Length", strconv.Itoa(buf.Len()))
		return c.Send(buf.Bytes())
	})

	app.Get("/state", func(c *fiber.Ctx) error {
		st := ctrl.Snapshot()
		return c.JSON(fiber.Map{
			"mode":            st.Mode.String(),
			"preview_enabled": st.PreviewEnabled,
			"settings":        st.Settings,
			"settings_cursor": st.SettingsCursor,
			"settings_item":   settingsItems[st.SettingsCursor],
			"gallery_count":   len(st.Gallery),
			"gallery_index":   st.GalleryIndex,
			"active_profile":  st.ActiveProfile,
		})
	})

	log.Println("http: mirror listening on", addr)
	if err := app.Listen(addr); err != nil {
		log.Printf("http: %v", err)
	}
}
