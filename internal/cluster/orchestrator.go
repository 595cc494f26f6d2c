package cluster

import (
	"log/slog"

	"geomap/internal/geom"
)

type Config struct {
	Epsilon float64
	Layout  LayoutConfig
}

func DefaultConfig() Config {
	return Config{Epsilon: DefaultEpsilon, Layout: DefaultLayout()}
}

// Stats summarises the grouping state.
type Stats struct {
	Groups         int
	Markers        int
	GroupedMarkers int
}

// Orchestrator owns the index and keeps the surface in sync with it. At most
// one group is expanded at a time.
type Orchestrator struct {
	env     env
	eps     float64
	index   *Index
	owner   map[string]*Group
	enabled bool
	log     *slog.Logger
}

func New(surface Surface, proj Projector, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.Layout == (LayoutConfig{}) {
		cfg.Layout = DefaultLayout()
	}
	o := &Orchestrator{
		eps:     cfg.Epsilon,
		index:   NewIndex(),
		owner:   make(map[string]*Group),
		enabled: true,
		log:     logger,
	}
	o.env = env{surface: surface, proj: proj, layout: cfg.Layout, toggle: o.ToggleGroup}
	return o
}

// AddMarker places m in the group of its canonical position. Adding a marker
// that is already tracked does nothing. It reports false when grouping is
// disabled and the caller has to draw m itself.
func (o *Orchestrator) AddMarker(m *geom.Marker) bool {
	if !o.enabled {
		return false
	}
	if _, ok := o.owner[m.ID]; ok {
		return true
	}
	key := keyOf(m.Origin, o.eps)
	g, created := o.index.LookupOrCreate(key, func() *Group { return newGroup(&o.env, key, m.Origin) })
	g.addMember(m)
	o.owner[m.ID] = g
	if created {
		o.log.Debug("group_created", "key", key)
	}
	return true
}

// RemoveMarker detaches the marker, takes it off the surface and drops its
// group when that was the last member.
func (o *Orchestrator) RemoveMarker(id string) bool {
	g, ok := o.owner[id]
	if !ok {
		return false
	}
	g.removeMember(id)
	delete(o.owner, id)
	if g.Len() == 0 {
		o.index.Remove(g.key)
		o.log.Debug("group_removed", "key", g.key)
	}
	return true
}

func (o *Orchestrator) tracked(g *Group) bool {
	cur, ok := o.index.Get(g.key)
	return ok && cur == g
}

// ToggleGroup collapses g when it is expanded, otherwise collapses every
// other group and expands g.
func (o *Orchestrator) ToggleGroup(g *Group) {
	if g == nil || !o.tracked(g) {
		return
	}
	if g.expanded {
		g.collapse()
		return
	}
	o.CollapseAll()
	g.expand()
}

// ExpandGroup reports false when g was not expanded by this call: it is
// already expanded, untracked or has fewer than two members. Those are
// invalid transitions and are ignored rather than returned as errors.
func (o *Orchestrator) ExpandGroup(g *Group) bool {
	if g == nil || !o.tracked(g) || g.expanded {
		return false
	}
	o.CollapseAll()
	return g.expand()
}

func (o *Orchestrator) CollapseAll() {
	for _, g := range o.index.groups {
		if g.expanded {
			g.collapse()
		}
	}
}

// ExpandGroupForMarker makes the marker individually visible, expanding its
// group when needed. It reports false for unknown markers.
func (o *Orchestrator) ExpandGroupForMarker(id string) bool {
	g, ok := o.owner[id]
	if !ok {
		return false
	}
	if g.Len() > 1 && !g.expanded {
		o.ExpandGroup(g)
	}
	return true
}

func (o *Orchestrator) GroupFor(id string) (*Group, bool) {
	g, ok := o.owner[id]
	return g, ok
}

func (o *Orchestrator) Marker(id string) (*geom.Marker, bool) {
	g, ok := o.owner[id]
	if !ok {
		return nil, false
	}
	return g.members[g.indexOf(id)], true
}

// Members returns every tracked marker, group by group in key order.
func (o *Orchestrator) Members() []*geom.Marker {
	var out []*geom.Marker
	for _, g := range o.index.Groups() {
		out = append(out, g.members...)
	}
	return out
}

func (o *Orchestrator) Groups() []*Group { return o.index.Groups() }

// Expanded returns the expanded group, if any.
func (o *Orchestrator) Expanded() *Group {
	for _, g := range o.index.groups {
		if g.expanded {
			return g
		}
	}
	return nil
}

func (o *Orchestrator) Enabled() bool { return o.enabled }

// Disable collapses everything and leaves each marker standalone on the
// surface. Markers are forgotten so that Enable can pick them up again
// without double registration.
func (o *Orchestrator) Disable() {
	if !o.enabled {
		return
	}
	o.CollapseAll()
	for _, g := range o.index.groups {
		g.release()
	}
	o.index.reset()
	clear(o.owner)
	o.enabled = false
	o.log.Info("grouping_disabled")
}

// Enable regroups every marker currently on the surface.
func (o *Orchestrator) Enable() {
	if o.enabled {
		return
	}
	o.enabled = true
	for _, l := range o.env.surface.Layers() {
		if m, ok := l.(*geom.Marker); ok {
			o.AddMarker(m)
		}
	}
	o.log.Info("grouping_enabled", "groups", o.index.Len())
}

// Clear tears down every group and empties the index.
func (o *Orchestrator) Clear() {
	for _, g := range o.index.groups {
		g.teardown()
	}
	o.index.reset()
	clear(o.owner)
}

// Refresh re-syncs every group's visuals.
func (o *Orchestrator) Refresh() {
	for _, g := range o.index.groups {
		g.sync()
	}
}

// Relayout recomputes the expanded group's offsets for the current
// projection. Recorded home positions are kept.
func (o *Orchestrator) Relayout() {
	if g := o.Expanded(); g != nil {
		g.spread()
	}
}

func (o *Orchestrator) Stats() Stats {
	var st Stats
	for _, g := range o.index.groups {
		st.Groups++
		st.Markers += g.Len()
		if g.Len() > 1 {
			st.GroupedMarkers += g.Len()
		}
	}
	return st
}
