package mapview

import (
	"math"
	"slices"

	"geomap/internal/cluster"
	"geomap/internal/geom"
)

// Surface is the ordered set of layers on the map. Later layers draw on top.
type Surface struct {
	layers []cluster.Layer
	has    map[cluster.Layer]struct{}
}

func NewSurface() *Surface {
	return &Surface{has: make(map[cluster.Layer]struct{})}
}

func (s *Surface) AddLayer(l cluster.Layer) {
	if _, ok := s.has[l]; ok {
		return
	}
	s.has[l] = struct{}{}
	s.layers = append(s.layers, l)
}

func (s *Surface) RemoveLayer(l cluster.Layer) {
	if _, ok := s.has[l]; !ok {
		return
	}
	delete(s.has, l)
	s.layers = slices.DeleteFunc(s.layers, func(x cluster.Layer) bool { return x == l })
}

func (s *Surface) HasLayer(l cluster.Layer) bool {
	_, ok := s.has[l]
	return ok
}

// Layers returns a copy in draw order.
func (s *Surface) Layers() []cluster.Layer { return slices.Clone(s.layers) }

func (s *Surface) Len() int { return len(s.layers) }

func (s *Surface) Clear() {
	s.layers = nil
	clear(s.has)
}

// Find returns the layer with the given id.
func (s *Surface) Find(id string) (cluster.Layer, bool) {
	for _, l := range s.layers {
		if l.LayerID() == id {
			return l, true
		}
	}
	return nil, false
}

func (s *Surface) Markers() []*geom.Marker {
	var out []*geom.Marker
	for _, l := range s.layers {
		if m, ok := l.(*geom.Marker); ok {
			out = append(out, m)
		}
	}
	return out
}

func (s *Surface) Shapes() []*geom.Shape {
	var out []*geom.Shape
	for _, l := range s.layers {
		if sh, ok := l.(*geom.Shape); ok {
			out = append(out, sh)
		}
	}
	return out
}

// HitTest finds the layer under px within tol micro-pixels. Anchors win over
// markers, markers over shapes; within a kind the topmost layer wins.
// Connectors are not clickable.
func (s *Surface) HitTest(px geom.Pixel, proj cluster.Projector, tol float64) (cluster.Layer, bool) {
	near := func(ll geom.LatLng) bool {
		p := proj.Project(ll)
		return math.Hypot(p.X-px.X, p.Y-px.Y) <= tol
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		if a, ok := s.layers[i].(*cluster.Anchor); ok && near(a.At) {
			return a, true
		}
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		if m, ok := s.layers[i].(*geom.Marker); ok && near(m.Pos) {
			return m, true
		}
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		sh, ok := s.layers[i].(*geom.Shape)
		if !ok {
			continue
		}
		for _, path := range geom.Paths(sh.Geometry) {
			for j := range path {
				a := proj.Project(geom.LatLng{Lat: path[j].Lat(), Lng: path[j].Lon()})
				b := a
				if j+1 < len(path) {
					b = proj.Project(geom.LatLng{Lat: path[j+1].Lat(), Lng: path[j+1].Lon()})
				}
				if segmentDist(px, a, b) <= tol {
					return sh, true
				}
			}
		}
	}
	return nil, false
}

func segmentDist(p, a, b geom.Pixel) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
