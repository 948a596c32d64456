package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	svg "github.com/ajstarks/svgo"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	xdraw "golang.org/x/image/draw"
)

var (
	colWhite  = color.RGBA{255, 255, 255, 255}
	colBlack  = color.RGBA{0, 0, 0, 255}
	colYellow = color.RGBA{255, 229, 0, 255}
	colRed    = color.RGBA{226, 72, 38, 255}
	colGreen  = color.RGBA{70, 235, 145, 255}
	colGrey   = color.RGBA{98, 116, 130, 130}
)

//---------------- Fonts ----------------

type FontConfig struct {
	FontPath string
	FontSize float64
}

var fonts = map[string]FontConfig{
	"bar":   {FontPath: "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf", FontSize: 14},
	"panel": {FontPath: "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf", FontSize: 16},
	"big":   {FontPath: "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf", FontSize: 22},
}

var (
	faceCache   = map[string]font.Face{}
	faceCacheMu sync.Mutex
)

// getFontFace loads a face from the mapping, caching it. When the TTF is
// unavailable (headless tests, minimal images) it falls back to the
// builtin bitmap face instead of failing.
func getFontFace(name string) font.Face {
	faceCacheMu.Lock()
	defer faceCacheMu.Unlock()
	if f, ok := faceCache[name]; ok {
		return f
	}

	fc, ok := fonts[name]
	if !ok {
		return basicfont.Face7x13
	}
	fontBytes, err := os.ReadFile(fc.FontPath)
	if err != nil {
		faceCache[name] = basicfont.Face7x13
		return basicfont.Face7x13
	}
	ttf, err := opentype.Parse(fontBytes)
	if err != nil {
		faceCache[name] = basicfont.Face7x13
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(ttf, &opentype.FaceOptions{
		Size:    fc.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		faceCache[name] = basicfont.Face7x13
		return basicfont.Face7x13
	}
	faceCache[name] = face
	return face
}

//---------------- Primitives ----------------

// drawText draws a string at (x,y), y being the top of the line. Returns
// the x coordinate where the text ends.
func drawText(img *image.RGBA, text string, posX, posY int, face font.Face, clr color.Color, center bool) int {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
	}
	metrics := face.Metrics()
	x := posX
	if center {
		x = posX - d.MeasureString(text).Round()/2
	}
	d.Dot = fixed.P(x, posY+metrics.Ascent.Round())
	d.DrawString(text)
	return x + d.MeasureString(text).Round()
}

func drawRect(img *image.RGBA, x0, y0, w, h int, clr color.RGBA) {
	draw.Draw(img, image.Rect(x0, y0, x0+w, y0+h), &image.Uniform{clr}, image.Point{}, draw.Src)
}

// drawPanel paints a rounded, slightly translucent dialog box.
func drawPanel(img *image.RGBA, x, y, w, h, r float64, fill color.RGBA) {
	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillColor(fill)
	gc.MoveTo(x+r, y)
	gc.LineTo(x+w-r, y)
	gc.QuadCurveTo(x+w, y, x+w, y+r)
	gc.LineTo(x+w, y+h-r)
	gc.QuadCurveTo(x+w, y+h, x+w-r, y+h)
	gc.LineTo(x+r, y+h)
	gc.QuadCurveTo(x, y+h, x, y+h-r)
	gc.LineTo(x, y+r)
	gc.QuadCurveTo(x, y, x+r, y)
	gc.Close()
	gc.Fill()
}

// blendImageAt composites src over dst at (x0,y0), honoring alpha and
// clipping to dst.
func blendImageAt(dst *image.RGBA, src *image.RGBA, x0, y0 int) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		dy := y0 + y
		if dy < 0 || dy >= dst.Bounds().Dy() {
			continue
		}
		for x := 0; x < b.Dx(); x++ {
			dx := x0 + x
			if dx < 0 || dx >= dst.Bounds().Dx() {
				continue
			}
			s := src.RGBAAt(b.Min.X+x, b.Min.Y+y)
			switch s.A {
			case 0:
			case 255:
				dst.SetRGBA(dx, dy, s)
			default:
				d := dst.RGBAAt(dx, dy)
				a := uint16(s.A)
				inv := uint16(255 - s.A)
				dst.SetRGBA(dx, dy, color.RGBA{
					R: uint8((uint16(s.R)*a + uint16(d.R)*inv) / 255),
					G: uint8((uint16(s.G)*a + uint16(d.G)*inv) / 255),
					B: uint8((uint16(s.B)*a + uint16(d.B)*inv) / 255),
					A: uint8(uint16(s.A) + (uint16(d.A)*inv)/255),
				})
			}
		}
	}
}

//---------------- Photos ----------------

var (
	photoCache   = map[string]*image.RGBA{}
	photoCacheMu sync.Mutex
)

// loadPhoto decodes a stored photo, caching decoded frames. The cache is
// bounded; gallery browsing touches a handful of photos at a time.
func loadPhoto(path string) (*image.RGBA, error) {
	photoCacheMu.Lock()
	if img, ok := photoCache[path]; ok {
		photoCacheMu.Unlock()
		return img, nil
	}
	photoCacheMu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(f)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	default:
		err = fmt.Errorf("unsupported photo format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	photoCacheMu.Lock()
	if len(photoCache) >= 8 {
		for k := range photoCache {
			delete(photoCache, k)
			break
		}
	}
	photoCache[path] = rgba
	photoCacheMu.Unlock()
	return rgba, nil
}

func dropCachedPhoto(path string) {
	photoCacheMu.Lock()
	delete(photoCache, path)
	photoCacheMu.Unlock()
}

// fitToDisplay scales src into a full-size display frame, preserving
// aspect ratio on a black background.
func fitToDisplay(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, DISPLAY_WIDTH, DISPLAY_HEIGHT))
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	scale := float64(DISPLAY_WIDTH) / float64(sw)
	if s := float64(DISPLAY_HEIGHT) / float64(sh); s < scale {
		scale = s
	}
	w := int(float64(sw) * scale)
	h := int(float64(sh) * scale)
	x0 := (DISPLAY_WIDTH - w) / 2
	y0 := (DISPLAY_HEIGHT - h) / 2
	xdraw.ApproxBiLinear.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// applyGain multiplies the RGB channels by the preview brightness gain.
func applyGain(img *image.RGBA, gain float64) {
	if gain == 1.0 {
		return
	}
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(img.Pix[i+c]) * gain
			if v > 255 {
				v = 255
			}
			img.Pix[i+c] = uint8(v)
		}
	}
}

//---------------- Generated glyphs ----------------

// iconSVG emits the SVG markup for one of the builtin UI glyphs. Keeping
// the glyphs generated means the binary ships without icon assets.
func iconSVG(name string, size int) []byte {
	var buf bytes.Buffer
	c := svg.New(&buf)
	c.Start(size, size)
	s := float64(size)
	switch name {
	case "camera":
		c.Roundrect(int(s*0.1), int(s*0.3), int(s*0.8), int(s*0.55), 2, 2, "fill:white")
		c.Rect(int(s*0.35), int(s*0.18), int(s*0.3), int(s*0.15), "fill:white")
		c.Circle(size/2, int(s*0.57), int(s*0.18), "fill:black")
	case "gear":
		c.Circle(size/2, size/2, int(s*0.38), "fill:white")
		c.Rect(int(s*0.44), 0, int(s*0.12), int(s*0.2), "fill:white")
		c.Rect(int(s*0.44), int(s*0.8), int(s*0.12), int(s*0.2), "fill:white")
		c.Rect(0, int(s*0.44), int(s*0.2), int(s*0.12), "fill:white")
		c.Rect(int(s*0.8), int(s*0.44), int(s*0.2), int(s*0.12), "fill:white")
		c.Circle(size/2, size/2, int(s*0.16), "fill:black")
	case "photos":
		c.Rect(int(s*0.15), int(s*0.15), int(s*0.6), int(s*0.6), "fill:none;stroke:white;stroke-width:2")
		c.Rect(int(s*0.3), int(s*0.3), int(s*0.6), int(s*0.6), "fill:white")
	case "trash":
		c.Rect(int(s*0.25), int(s*0.3), int(s*0.5), int(s*0.6), "fill:white")
		c.Rect(int(s*0.18), int(s*0.18), int(s*0.64), int(s*0.1), "fill:white")
		c.Rect(int(s*0.42), int(s*0.08), int(s*0.16), int(s*0.1), "fill:white")
	}
	c.End()
	return buf.Bytes()
}

var modeIcons = map[Mode]string{
	ModeLive:          "camera",
	ModeSettings:      "gear",
	ModeGallery:       "photos",
	ModeDeleteConfirm: "trash",
}

var (
	iconCache   = map[string]*image.RGBA{}
	iconCacheMu sync.Mutex
)

// renderIcon rasterizes a generated glyph at the given size, cached.
func renderIcon(name string, size int) (*image.RGBA, error) {
	key := fmt.Sprintf("%s_%d", name, size)
	iconCacheMu.Lock()
	if img, ok := iconCache[key]; ok {
		iconCacheMu.Unlock()
		return img, nil
	}
	iconCacheMu.Unlock()

	icon, err := oksvg.ReadIconStream(bytes.NewReader(iconSVG(name, size)))
	if err != nil {
		return nil, fmt.Errorf("icon %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	iconCacheMu.Lock()
	iconCache[key] = img
	iconCacheMu.Unlock()
	return img, nil
}
