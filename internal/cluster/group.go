package cluster

import (
	"slices"

	"geomap/internal/geom"
)

type State int

const (
	Single State = iota
	MultiCollapsed
	MultiExpanded
)

func (s State) String() string {
	switch s {
	case MultiCollapsed:
		return "collapsed"
	case MultiExpanded:
		return "expanded"
	}
	return "single"
}

// env is shared by every group of one orchestrator.
type env struct {
	surface Surface
	proj    Projector
	layout  LayoutConfig
	toggle  func(*Group)
}

// Group owns the markers of one coordinate bucket.
type Group struct {
	env        *env
	key        Key
	center     geom.LatLng
	members    []*geom.Marker
	expanded   bool
	anchor     *Anchor
	connectors []*Connector
	// home holds each member's position from before its first expansion.
	home map[string]geom.LatLng
}

func newGroup(e *env, key Key, center geom.LatLng) *Group {
	return &Group{env: e, key: key, center: center, home: make(map[string]geom.LatLng)}
}

func (g *Group) Key() Key                { return g.key }
func (g *Group) Center() geom.LatLng     { return g.center }
func (g *Group) Len() int                { return len(g.members) }
func (g *Group) Expanded() bool          { return g.expanded }
func (g *Group) Members() []*geom.Marker { return slices.Clone(g.members) }

// Anchor is nil unless the group is collapsed with two or more members.
func (g *Group) Anchor() *Anchor { return g.anchor }

func (g *Group) Connectors() []*Connector { return slices.Clone(g.connectors) }

func (g *Group) State() State {
	switch {
	case len(g.members) < 2:
		return Single
	case g.expanded:
		return MultiExpanded
	}
	return MultiCollapsed
}

// Home returns the recorded pre-expansion position of a member.
func (g *Group) Home(id string) (geom.LatLng, bool) {
	ll, ok := g.home[id]
	return ll, ok
}

func (g *Group) indexOf(id string) int {
	return slices.IndexFunc(g.members, func(m *geom.Marker) bool { return m.ID == id })
}

func (g *Group) addMember(m *geom.Marker) bool {
	if g.indexOf(m.ID) >= 0 {
		return false
	}
	m.OffsetIndex = len(g.members)
	g.members = append(g.members, m)
	g.sync()
	return true
}

func (g *Group) removeMember(id string) *geom.Marker {
	i := g.indexOf(id)
	if i < 0 {
		return nil
	}
	m := g.members[i]
	g.members = slices.Delete(g.members, i, i+1)
	delete(g.home, id)
	for j, rest := range g.members {
		rest.OffsetIndex = j
	}
	g.env.surface.RemoveLayer(m)
	m.Pos = m.Origin
	g.sync()
	return m
}

// sync brings the surface in line with the member count and state.
func (g *Group) sync() {
	s := g.env.surface
	switch n := len(g.members); {
	case n == 0:
		g.expanded = false
		g.dropAnchor()
		g.clearConnectors()
	case n == 1:
		g.expanded = false
		g.dropAnchor()
		g.clearConnectors()
		clear(g.home)
		m := g.members[0]
		m.Pos = m.Origin
		if !s.HasLayer(m) {
			s.AddLayer(m)
		}
	case !g.expanded:
		g.clearConnectors()
		for _, m := range g.members {
			if s.HasLayer(m) {
				s.RemoveLayer(m)
			}
		}
		if g.anchor == nil {
			g.anchor = g.newAnchor()
		}
		g.anchor.Count = n
		if !s.HasLayer(g.anchor) {
			s.AddLayer(g.anchor)
		}
	default:
		g.spread()
	}
}

// newAnchor binds the click handler once; later syncs only update Count.
func (g *Group) newAnchor() *Anchor {
	toggle := g.env.toggle
	return &Anchor{
		id:      "anchor:" + string(g.key),
		At:      g.center,
		onClick: func() { toggle(g) },
	}
}

func (g *Group) dropAnchor() {
	if g.anchor == nil {
		return
	}
	if g.env.surface.HasLayer(g.anchor) {
		g.env.surface.RemoveLayer(g.anchor)
	}
	g.anchor = nil
}

func (g *Group) clearConnectors() {
	for _, c := range g.connectors {
		g.env.surface.RemoveLayer(c)
	}
	g.connectors = nil
}

func (g *Group) expand() bool {
	if g.expanded || len(g.members) < 2 {
		return false
	}
	g.expanded = true
	g.spread()
	return true
}

// spread lays the members out around the projected center and draws a
// connector to each.
func (g *Group) spread() {
	s := g.env.surface
	if g.anchor != nil && s.HasLayer(g.anchor) {
		s.RemoveLayer(g.anchor)
	}
	g.clearConnectors()
	slots := CalculateLayout(len(g.members), g.env.layout)
	c := g.env.proj.Project(g.center)
	for i, m := range g.members {
		if _, ok := g.home[m.ID]; !ok {
			g.home[m.ID] = m.Pos
		}
		off := slots[i].Offset()
		m.Pos = g.env.proj.Unproject(geom.Pixel{X: c.X + off.X, Y: c.Y + off.Y})
		if !s.HasLayer(m) {
			s.AddLayer(m)
		}
		leg := &Connector{id: "leg:" + m.ID, MarkerID: m.ID, From: g.center, To: m.Pos}
		g.connectors = append(g.connectors, leg)
		s.AddLayer(leg)
	}
}

func (g *Group) collapse() bool {
	if !g.expanded {
		return false
	}
	g.expanded = false
	g.restoreHome()
	g.sync()
	return true
}

func (g *Group) restoreHome() {
	for _, m := range g.members {
		if h, ok := g.home[m.ID]; ok {
			m.Pos = h
		}
	}
}

// teardown removes the group's own visuals. Members stay where the caller
// left them, back at their home positions if they were spread.
func (g *Group) teardown() {
	if g.expanded {
		g.restoreHome()
		g.expanded = false
	}
	g.dropAnchor()
	g.clearConnectors()
}

// release makes every member a standalone marker at its canonical position.
func (g *Group) release() {
	g.teardown()
	for _, m := range g.members {
		m.Pos = m.Origin
		if !g.env.surface.HasLayer(m) {
			g.env.surface.AddLayer(m)
		}
	}
}
