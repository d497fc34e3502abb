// Package icons renders the tray's status dots as PNG images.
package icons

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/tnunamak/usagemon/internal/usage"
)

// Size is the edge length of generated icons in pixels.
const Size = 64

var (
	mu    sync.Mutex
	cache = map[color.RGBA][]byte{}
)

// Dot returns a PNG of a filled circle in c, with a one-pixel antialiased
// edge on a transparent background.
func Dot(c color.RGBA) []byte {
	mu.Lock()
	defer mu.Unlock()
	if b, ok := cache[c]; ok {
		return b
	}
	b := render(c, Size)
	cache[c] = b
	return b
}

func render(c color.RGBA, size int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	center := float64(size) / 2
	radius := center - 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)+0.5-center, float64(y)+0.5-center)
			cov := radius + 0.5 - d
			if cov <= 0 {
				continue
			}
			if cov > 1 {
				cov = 1
			}
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(float64(c.A) * cov)})
		}
	}
	var buf bytes.Buffer
	// Encoding an in-memory NRGBA image cannot fail.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// ForSnapshot picks the dot for a snapshot: the level color of the more
// concerning window, or gray when disconnected.
func ForSnapshot(s usage.Snapshot, th usage.Thresholds, darkMode bool) []byte {
	if !s.Connected {
		if darkMode {
			return Dot(usage.Gray)
		}
		return Dot(usage.DarkGray)
	}
	w, long := s.Dominant()
	return Dot(th.Level(w.Utilization).Color(long))
}
