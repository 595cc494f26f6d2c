package tui

import (
	"math"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"geomap/internal/cluster"
	"geomap/internal/geom"
)

func micro(p geom.Pixel) (int, int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Y))
}

func (m Model) project(pt orb.Point) (int, int) {
	return micro(m.ws.Viewport.Project(geom.LatLng{Lat: pt.Lat(), Lng: pt.Lon()}))
}

// renderMap draws the surface: shapes first, then connectors, markers and
// anchors on top.
func (m Model) renderMap(w, h int) string {
	c := newCanvas(w, h)
	layers := m.ws.Surface.Layers()

	if m.showShapes {
		for _, l := range layers {
			sh, ok := l.(*geom.Shape)
			if !ok {
				continue
			}
			if poly, ok := sh.Geometry.(orb.Polygon); ok && len(poly) > 0 {
				m.fillRing(c, poly[0], h)
			}
			if mp, ok := sh.Geometry.(orb.MultiPolygon); ok {
				for _, poly := range mp {
					if len(poly) > 0 {
						m.fillRing(c, poly[0], h)
					}
				}
			}
			for _, path := range geom.Paths(sh.Geometry) {
				for i := 0; i+1 < len(path); i++ {
					x0, y0 := m.project(path[i])
					x1, y1 := m.project(path[i+1])
					c.line(x0, y0, x1, y1)
				}
			}
		}
	}

	for _, l := range layers {
		if cn, ok := l.(*cluster.Connector); ok {
			x0, y0 := micro(m.ws.Viewport.Project(cn.From))
			x1, y1 := micro(m.ws.Viewport.Project(cn.To))
			c.line(x0, y0, x1, y1)
		}
	}

	if m.showMarkers {
		sel := m.ws.Selection.Selected()
		for _, l := range layers {
			switch v := l.(type) {
			case *geom.Marker:
				x, y := micro(m.ws.Viewport.Project(v.Pos))
				glyph, style := "●", markerStyle(v.Style.Color)
				if v.ID == sel {
					glyph, style = "◉", selectedStyle
				}
				c.stamp(x, y, glyph, style)
			case *cluster.Anchor:
				x, y := micro(m.ws.Viewport.Project(v.At))
				label := "+"
				if v.Count < 10 {
					label = strconv.Itoa(v.Count)
				}
				c.stamp(x, y, label, anchorStyle)
			}
		}
	}

	if m.hovering {
		if _, ok := c.glyphs[[2]int{m.hoverCellX, m.hoverCellY}]; !ok {
			c.stamp(m.hoverCellX*2, m.hoverCellY*4, "◯", hoverStyle)
		}
	}
	return c.String()
}

// fillRing fills the outer ring with the even-odd rule per micro scanline.
// Holes are not cut out.
func (m Model) fillRing(c *canvas, ring orb.Ring, h int) {
	pts := make([][2]int, 0, len(ring))
	for _, p := range ring {
		x, y := m.project(p)
		pts = append(pts, [2]int{x, y})
	}
	if len(pts) < 3 {
		return
	}
	for y := 0; y < h*4; y++ {
		var xs []int
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			if a[1] == b[1] {
				continue
			}
			if (y >= a[1] && y < b[1]) || (y >= b[1] && y < a[1]) {
				t := float64(y-a[1]) / float64(b[1]-a[1])
				xs = append(xs, int(float64(a[0])+t*float64(b[0]-a[0])))
			}
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			// every other micro-pixel keeps the fill lighter than edges
			for x := max(0, xs[i]); x <= min(xs[i+1], c.w*2); x++ {
				if (x+y)%2 == 0 {
					c.setPixel(x, y)
				}
			}
		}
	}
}

func markerStyle(color string) lipgloss.Style {
	if color == "" {
		color = geom.DefaultColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}
