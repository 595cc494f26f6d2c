package cluster

import "geomap/internal/geom"

// Layer is anything the map surface can draw.
type Layer interface {
	LayerID() string
}

// Surface is the drawing target for markers, anchors and connectors.
type Surface interface {
	AddLayer(l Layer)
	RemoveLayer(l Layer)
	HasLayer(l Layer) bool
	Layers() []Layer
}

// Projector converts between geographic and screen coordinates at the
// current view.
type Projector interface {
	Project(ll geom.LatLng) geom.Pixel
	Unproject(px geom.Pixel) geom.LatLng
}

// Anchor stands in for a collapsed group with two or more members.
type Anchor struct {
	id      string
	At      geom.LatLng
	Count   int
	onClick func()
}

func (a *Anchor) LayerID() string { return a.id }

// Click runs the handler bound when the anchor was created.
func (a *Anchor) Click() {
	if a.onClick != nil {
		a.onClick()
	}
}

// Connector is the line from an expanded group's center to one member.
type Connector struct {
	id       string
	MarkerID string
	From     geom.LatLng
	To       geom.LatLng
}

func (c *Connector) LayerID() string { return c.id }
