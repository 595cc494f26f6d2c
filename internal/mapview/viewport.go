// Package mapview holds the drawable layer set and the planar camera used to
// project it into braille micro-pixels (2x4 per terminal cell).
package mapview

import (
	"math"

	"geomap/internal/geom"
)

const (
	tileSize = 256.0
	MinZoom  = 0.0
	MaxZoom  = 22.0
)

// Viewport is a planar (equirectangular) camera over a Width x Height cell
// area. It implements cluster.Projector.
type Viewport struct {
	Center geom.LatLng
	Zoom   float64
	Width  int
	Height int
}

func NewViewport(w, h int) *Viewport {
	return &Viewport{Zoom: 2, Width: w, Height: h}
}

func (v *Viewport) SetSize(w, h int) {
	v.Width, v.Height = w, h
}

// scale is micro-pixels per degree.
func (v *Viewport) scale() float64 { return tileSize * math.Pow(2, v.Zoom) / 360 }

func (v *Viewport) micro() (float64, float64) {
	return float64(v.Width * 2), float64(v.Height * 4)
}

func (v *Viewport) Project(ll geom.LatLng) geom.Pixel {
	s := v.scale()
	w, h := v.micro()
	return geom.Pixel{
		X: (ll.Lng-v.Center.Lng)*s + w/2,
		Y: (v.Center.Lat-ll.Lat)*s + h/2,
	}
}

func (v *Viewport) Unproject(px geom.Pixel) geom.LatLng {
	s := v.scale()
	w, h := v.micro()
	return geom.LatLng{
		Lat: v.Center.Lat - (px.Y-h/2)/s,
		Lng: v.Center.Lng + (px.X-w/2)/s,
	}
}

// CellPixel returns the micro-pixel at the middle of cell (cx, cy).
func CellPixel(cx, cy int) geom.Pixel {
	return geom.Pixel{X: float64(cx*2) + 1, Y: float64(cy*4) + 2}
}

// Pan moves the camera by whole cells.
func (v *Viewport) Pan(dx, dy int) {
	s := v.scale()
	v.Center.Lng += float64(dx*2) / s
	v.Center.Lat -= float64(dy*4) / s
}

func (v *Viewport) ZoomBy(delta float64) {
	v.Zoom = math.Max(MinZoom, math.Min(MaxZoom, v.Zoom+delta))
}

// Fit centers the box and picks the largest zoom that keeps it on screen.
func (v *Viewport) Fit(b geom.BBox) {
	if !b.Valid {
		return
	}
	v.Center = b.Center()
	w, h := v.micro()
	dx, dy := b.MaxX-b.MinX, b.MaxY-b.MinY
	if dx <= 0 && dy <= 0 || w <= 0 || h <= 0 {
		v.Zoom = 12
		return
	}
	ppd := math.Inf(1)
	if dx > 0 {
		ppd = w / dx
	}
	if dy > 0 {
		ppd = math.Min(ppd, h/dy)
	}
	z := math.Log2(ppd*0.9*360/tileSize)
	v.Zoom = math.Max(MinZoom, math.Min(MaxZoom, z))
}

func (v *Viewport) View() geom.Camera {
	return geom.Camera{Center: v.Center, Zoom: v.Zoom}
}

func (v *Viewport) SetView(c geom.Camera) {
	v.Center = c.Center
	v.Zoom = math.Max(MinZoom, math.Min(MaxZoom, c.Zoom))
}
