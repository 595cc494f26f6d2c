package geom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// ParseWKTData parses one WKT geometry. POINT and MULTIPOINT become markers,
// LINESTRING, POLYGON and their multi forms become shapes.
func ParseWKTData(s string) (Data, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Data{}, errors.New("empty wkt")
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return Data{}, fmt.Errorf("wkt: %w", err)
	}
	var d Data
	var walk func(g orb.Geometry)
	walk = func(g orb.Geometry) {
		switch v := g.(type) {
		case orb.Point:
			d.addMarker(NewMarker(LatLng{Lat: v.Lat(), Lng: v.Lon()}, nil))
		case orb.MultiPoint:
			for _, p := range v {
				walk(p)
			}
		case orb.Collection:
			for _, sub := range v {
				walk(sub)
			}
		default:
			d.addShape(NewShape(v, nil))
		}
	}
	walk(g)
	if d.Empty() {
		return Data{}, errors.New("wkt: no coordinates parsed")
	}
	return d, nil
}
