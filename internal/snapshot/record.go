package snapshot

import (
	"encoding/json"
	"time"

	"geomap/internal/geom"
	"geomap/internal/namedgroup"
)

const (
	MainLayerID   = "main_layer"
	MainLayerName = "Main layer"
)

// Record is an immutable capture of the editable state. Only Name changes
// after capture.
type Record struct {
	ID          string                      `json:"snapshotId"`
	CreatedAt   time.Time                   `json:"timestamp"`
	Name        string                      `json:"name"`
	Layers      []Layer                     `json:"layers"`
	NamedGroups map[string]namedgroup.Group `json:"namedGroups"`
	View        ViewState                   `json:"viewState"`
}

type Layer struct {
	ID       string     `json:"layerId"`
	Name     string     `json:"layerName"`
	Visible  bool       `json:"visible"`
	Features FeatureSet `json:"features"`
}

// ViewState stores the camera; Center is [lat, lng].
type ViewState struct {
	Center [2]float64 `json:"center"`
	Zoom   float64    `json:"zoom"`
}

func viewStateOf(c geom.Camera) ViewState {
	return ViewState{Center: [2]float64{c.Center.Lat, c.Center.Lng}, Zoom: c.Zoom}
}

func (v ViewState) Camera() geom.Camera {
	return geom.Camera{Center: geom.LatLng{Lat: v.Center[0], Lng: v.Center[1]}, Zoom: v.Zoom}
}

// FeatureSet is a FeatureCollection whose features are kept as raw JSON so
// that one malformed feature cannot spoil the whole record.
type FeatureSet []json.RawMessage

type featureCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

func (fs FeatureSet) MarshalJSON() ([]byte, error) {
	features := []json.RawMessage(fs)
	if features == nil {
		features = []json.RawMessage{}
	}
	return json.Marshal(featureCollection{Type: "FeatureCollection", Features: features})
}

func (fs *FeatureSet) UnmarshalJSON(b []byte) error {
	var fc featureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return err
	}
	*fs = fc.Features
	return nil
}

// FeatureCount sums features over all layers.
func (r *Record) FeatureCount() int {
	n := 0
	for _, l := range r.Layers {
		n += len(l.Features)
	}
	return n
}
