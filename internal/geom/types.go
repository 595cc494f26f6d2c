package geom

import "github.com/paulmach/orb"

const (
	DefaultColor  = "#4a90e2"
	DefaultSymbol = "default"
)

type LatLng struct {
	Lat float64
	Lng float64
}

// Point returns the orb point (lon, lat) for ll.
func (ll LatLng) Point() orb.Point { return orb.Point{ll.Lng, ll.Lat} }

// Pixel is a position in micro-pixel screen space.
type Pixel struct {
	X float64
	Y float64
}

type Style struct {
	Color  string
	Symbol string
}

// Camera is the map view state: center and zoom level.
type Camera struct {
	Center LatLng
	Zoom   float64
}

type BBox struct {
	MinX  float64
	MinY  float64
	MaxX  float64
	MaxY  float64
	Valid bool
}

// Extend grows the box to include lon/lat.
func (b *BBox) Extend(lon, lat float64) {
	if !b.Valid {
		*b = BBox{MinX: lon, MinY: lat, MaxX: lon, MaxY: lat, Valid: true}
		return
	}
	if lon < b.MinX {
		b.MinX = lon
	}
	if lat < b.MinY {
		b.MinY = lat
	}
	if lon > b.MaxX {
		b.MaxX = lon
	}
	if lat > b.MaxY {
		b.MaxY = lat
	}
}

func (b *BBox) ExtendGeometry(g orb.Geometry) {
	if g == nil {
		return
	}
	bound := g.Bound()
	b.Extend(bound.Min.X(), bound.Min.Y())
	b.Extend(bound.Max.X(), bound.Max.Y())
}

func (b BBox) Center() LatLng {
	return LatLng{Lat: (b.MinY + b.MaxY) / 2, Lng: (b.MinX + b.MaxX) / 2}
}

// Data is the result of an import: markers, shapes and their extent.
type Data struct {
	Markers []*Marker
	Shapes  []*Shape
	BBox    BBox
}

func (d *Data) addMarker(m *Marker) {
	d.Markers = append(d.Markers, m)
	d.BBox.Extend(m.Origin.Lng, m.Origin.Lat)
}

func (d *Data) addShape(s *Shape) {
	d.Shapes = append(d.Shapes, s)
	d.BBox.ExtendGeometry(s.Geometry)
}

func (d Data) Empty() bool { return len(d.Markers) == 0 && len(d.Shapes) == 0 }
