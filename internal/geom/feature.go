package geom

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Reserved property keys written next to user properties in GeoJSON.
const (
	KeyOriginalLat = "_originalLat"
	KeyOriginalLng = "_originalLng"
	KeyOffsetIndex = "_offsetIndex"
	KeyColor       = "marker-color"
	KeySymbol      = "marker-symbol"
	KeyEvents      = "events"
)

var ErrNotPoint = errors.New("feature geometry is not a point")

func isReserved(k string) bool {
	switch k {
	case KeyOriginalLat, KeyOriginalLng, KeyOffsetIndex, KeyColor, KeySymbol, KeyEvents:
		return true
	}
	return false
}

// MarkerToFeature encodes m at its canonical position.
func MarkerToFeature(m *Marker) *geojson.Feature {
	f := geojson.NewFeature(m.Origin.Point())
	f.ID = m.ID
	for k, v := range m.Props {
		f.Properties[k] = v
	}
	f.Properties[KeyOriginalLat] = m.Origin.Lat
	f.Properties[KeyOriginalLng] = m.Origin.Lng
	f.Properties[KeyOffsetIndex] = m.OffsetIndex
	f.Properties[KeyColor] = m.Style.Color
	f.Properties[KeySymbol] = m.Style.Symbol
	if len(m.Events) > 0 {
		f.Properties[KeyEvents] = m.Events
	}
	return f
}

// MarkerFromFeature decodes a point feature. The marker keeps the feature id
// when there is one.
func MarkerFromFeature(f *geojson.Feature) (*Marker, error) {
	if f == nil {
		return nil, errors.New("nil feature")
	}
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return nil, ErrNotPoint
	}
	origin := LatLng{Lat: pt.Lat(), Lng: pt.Lon()}
	props := f.Properties
	if lat, ok := numberProp(props, KeyOriginalLat); ok {
		origin.Lat = lat
	}
	if lng, ok := numberProp(props, KeyOriginalLng); ok {
		origin.Lng = lng
	}
	if !finite(origin.Lat) || !finite(origin.Lng) {
		return nil, fmt.Errorf("invalid coordinate %v,%v", origin.Lat, origin.Lng)
	}
	m := &Marker{
		ID:     FeatureID(f),
		Origin: origin,
		Pos:    origin,
		Style:  Style{Color: DefaultColor, Symbol: DefaultSymbol},
		Props:  map[string]any{},
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if idx, ok := numberProp(props, KeyOffsetIndex); ok {
		m.OffsetIndex = int(idx)
	}
	if c := StringProp(props, KeyColor); c != "" {
		m.Style.Color = c
	}
	if s := StringProp(props, KeySymbol); s != "" {
		m.Style.Symbol = s
	}
	if ev, ok := props[KeyEvents]; ok && ev != nil {
		raw, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		m.Events = raw
	}
	for k, v := range props {
		if !isReserved(k) {
			m.Props[k] = v
		}
	}
	return m, nil
}

func ShapeToFeature(s *Shape) *geojson.Feature {
	f := geojson.NewFeature(s.Geometry)
	f.ID = s.ID
	for k, v := range s.Props {
		f.Properties[k] = v
	}
	return f
}

func ShapeFromFeature(f *geojson.Feature) (*Shape, error) {
	if f == nil || f.Geometry == nil {
		return nil, errors.New("feature has no geometry")
	}
	s := &Shape{ID: FeatureID(f), Geometry: f.Geometry, Props: map[string]any{}}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	for k, v := range f.Properties {
		s.Props[k] = v
	}
	return s, nil
}

// FeatureID returns the feature id as a string, or "".
func FeatureID(f *geojson.Feature) string {
	switch v := f.ID.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func numberProp(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
