package geom

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadGeo reads a GeoJSON file.
func LoadGeo(path string) (Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}
	return ParseGeoJSON(b)
}

// ParseGeoJSON accepts a FeatureCollection, a Feature or a bare geometry.
// Points and multipoints become markers, everything else becomes shapes.
func ParseGeoJSON(b []byte) (Data, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return Data{}, err
	}
	var d Data
	switch head.Type {
	case "":
		return Data{}, errors.New("invalid geojson: missing type")
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(b)
		if err != nil {
			return Data{}, err
		}
		for _, f := range fc.Features {
			d.addFeature(f)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(b)
		if err != nil {
			return Data{}, err
		}
		d.addFeature(f)
	default:
		g, err := geojson.UnmarshalGeometry(b)
		if err != nil {
			return Data{}, err
		}
		d.addFeature(geojson.NewFeature(g.Geometry()))
	}
	if d.Empty() {
		return Data{}, errors.New("no geometries found")
	}
	return d, nil
}

func (d *Data) addFeature(f *geojson.Feature) {
	if f == nil || f.Geometry == nil {
		return
	}
	switch g := f.Geometry.(type) {
	case orb.Point:
		if m, err := MarkerFromFeature(f); err == nil {
			d.addMarker(m)
		}
	case orb.MultiPoint:
		for _, p := range g {
			pf := geojson.NewFeature(p)
			for k, v := range f.Properties {
				pf.Properties[k] = v
			}
			if m, err := MarkerFromFeature(pf); err == nil {
				d.addMarker(m)
			}
		}
	case orb.Collection:
		for _, sub := range g {
			sf := geojson.NewFeature(sub)
			sf.Properties = f.Properties.Clone()
			d.addFeature(sf)
		}
	default:
		if s, err := ShapeFromFeature(f); err == nil {
			d.addShape(s)
		}
	}
}

// FeatureCollection encodes markers and shapes, markers first.
func FeatureCollection(markers []*Marker, shapes []*Shape) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		fc.Append(MarkerToFeature(m))
	}
	for _, s := range shapes {
		fc.Append(ShapeToFeature(s))
	}
	return fc
}
