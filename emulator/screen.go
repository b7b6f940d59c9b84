package emulator

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
)

const VIDEO_HEIGHT = 32
const VIDEO_WIDTH = 64

// Pixels are stored as full 32-bit words so the buffer can be handed to a framebuffer as is.
const PIXEL_ON uint32 = 0xFFFFFFFF
const PIXEL_OFF uint32 = 0x00000000

// Screen holds the 64x32 monochrome display. Only CLS and DRW write to it.
type Screen struct {
	window [VIDEO_HEIGHT][VIDEO_WIDTH]uint32
}

// Reset turns every pixel off.
func (s *Screen) Reset() {
	for k := range s.window {
		for i := range s.window[k] {
			s.window[k][i] = PIXEL_OFF
		}
	}
}

// Pixel reports whether the pixel at (x, y) is lit. Coordinates outside the screen are never lit.
func (s *Screen) Pixel(x, y int) bool {
	if x < 0 || x >= VIDEO_WIDTH || y < 0 || y >= VIDEO_HEIGHT {
		return false
	}
	return s.window[y][x] == PIXEL_ON
}

// Pixels returns a copy of the raw buffer, row major.
func (s *Screen) Pixels() [VIDEO_HEIGHT][VIDEO_WIDTH]uint32 {
	return s.window
}

// toggle XORs a lit sprite pixel onto (x, y) and reports whether it was already lit.
func (s *Screen) toggle(x, y int) bool {
	collision := s.window[y][x] == PIXEL_ON
	s.window[y][x] ^= PIXEL_ON
	return collision
}

// Image converts the buffer to RGBA using fg for lit pixels and bg for unlit ones.
// The byte layout of Pix matches SDL's RGBA32 texture format.
func (s *Screen) Image(fg, bg color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, VIDEO_WIDTH, VIDEO_HEIGHT))
	for y := range s.window {
		for x, v := range s.window[y] {
			c := bg
			if v == PIXEL_ON {
				c = fg
			}
			i := img.PixOffset(x, y)
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
	}
	return img
}

// WriteBMP encodes the current frame as a BMP image.
func (s *Screen) WriteBMP(w io.Writer, fg, bg color.RGBA) error {
	return bmp.Encode(w, s.Image(fg, bg))
}

// SaveBMP writes the current frame into dir as a timestamped BMP file and returns its path.
func (s *Screen) SaveBMP(dir string, fg, bg color.RGBA) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("chip8-%s.bmp", time.Now().Format("20060102-150405.000")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := s.WriteBMP(f, fg, bg); err != nil {
		f.Close()
		return "", fmt.Errorf("cannot encode %s: %w", path, err)
	}
	return path, f.Close()
}

// String renders the screen as text, one line per row, '#' for lit pixels.
func (s *Screen) String() string {
	var sb strings.Builder
	sb.Grow((VIDEO_WIDTH + 1) * VIDEO_HEIGHT)
	for k := range s.window {
		for i := range s.window[k] {
			if s.window[k][i] == PIXEL_ON {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
