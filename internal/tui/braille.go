package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// canvas is a braille micro-pixel grid (2x4 per cell) with a glyph layer on
// top for markers and group anchors.
type canvas struct {
	w, h   int       // in cells
	m      [][]uint8 // per-cell 8-bit mask
	glyphs map[[2]int]string
}

func newCanvas(w, h int) *canvas {
	m := make([][]uint8, h)
	for i := range m {
		m[i] = make([]uint8, w)
	}
	return &canvas{w: w, h: h, m: m, glyphs: map[[2]int]string{}}
}

var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// setPixel sets a micro-pixel at micro coords.
func (c *canvas) setPixel(mx, my int) {
	if mx < 0 || my < 0 {
		return
	}
	cx, cy := mx/2, my/4
	if cy >= c.h || cx >= c.w {
		return
	}
	c.m[cy][cx] |= brailleBits[mx%2][my%4]
}

// line draws with Bresenham, clipped to a margin around the grid so far
// off-screen segments do not spin.
func (c *canvas) line(x0, y0, x1, y1 int) {
	limit := 4 * (c.w + c.h) * 4
	if (abs(x0) > limit || abs(y0) > limit) && (abs(x1) > limit || abs(y1) > limit) {
		return
	}
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		c.setPixel(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// stamp puts a styled glyph in the cell holding micro-pixel (mx, my). Later
// stamps win.
func (c *canvas) stamp(mx, my int, glyph string, style lipgloss.Style) {
	if mx < 0 || my < 0 {
		return
	}
	cx, cy := mx/2, my/4
	if cx >= c.w || cy >= c.h {
		return
	}
	c.glyphs[[2]int{cx, cy}] = style.Render(glyph)
}

func (c *canvas) String() string {
	var sb strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < c.w; x++ {
			if g, ok := c.glyphs[[2]int{x, y}]; ok {
				sb.WriteString(g)
				continue
			}
			if mask := c.m[y][x]; mask != 0 {
				sb.WriteRune(rune(0x2800 + int(mask)))
			} else {
				sb.WriteByte(' ')
			}
		}
	}
	return sb.String()
}
