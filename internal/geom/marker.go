package geom

import (
	"encoding/json"
	"maps"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Marker is a point feature. Origin is the canonical position; Pos is where
// it is currently drawn, which differs from Origin only while its spatial
// group is expanded.
type Marker struct {
	ID          string
	Origin      LatLng
	Pos         LatLng
	OffsetIndex int
	Style       Style
	Props       map[string]any
	Events      json.RawMessage
}

// NewMarker returns a marker with a fresh id at ll.
func NewMarker(ll LatLng, props map[string]any) *Marker {
	if props == nil {
		props = map[string]any{}
	}
	return &Marker{
		ID:     uuid.NewString(),
		Origin: ll,
		Pos:    ll,
		Style:  Style{Color: DefaultColor, Symbol: DefaultSymbol},
		Props:  props,
	}
}

func (m *Marker) LayerID() string { return m.ID }

// Name returns the "name" property, or "".
func (m *Marker) Name() string { return StringProp(m.Props, "name") }

func (m *Marker) Clone() *Marker {
	c := *m
	c.Props = maps.Clone(m.Props)
	if m.Events != nil {
		c.Events = append(json.RawMessage(nil), m.Events...)
	}
	return &c
}

// Shape is a non-point feature. Shapes are drawn and captured but never
// spatially grouped.
type Shape struct {
	ID       string
	Geometry orb.Geometry
	Props    map[string]any
}

func NewShape(g orb.Geometry, props map[string]any) *Shape {
	if props == nil {
		props = map[string]any{}
	}
	return &Shape{ID: uuid.NewString(), Geometry: g, Props: props}
}

func (s *Shape) LayerID() string { return s.ID }

// StringProp returns props[key] when it is a string.
func StringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
