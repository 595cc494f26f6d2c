package views

import (
	"slices"
	"sort"

	"geomap/internal/geom"
)

const Uncategorized = "uncategorized"

// Counts are the group totals the dashboard reads from the engine and the
// named-group registry.
type Counts interface {
	CoordinateGroups() (groups, markers int)
	NamedGroupCount() int
}

// TypeStat counts markers sharing a type and style.
type TypeStat struct {
	Type   string
	Color  string
	Symbol string
	Count  int
}

type Summary struct {
	Markers          int
	Types            []TypeStat
	CoordinateGroups int
	GroupedMarkers   int
	NamedGroups      int
}

type Dashboard struct {
	src     Source
	counts  Counts
	summary Summary
}

func NewDashboard(src Source, counts Counts) *Dashboard {
	return &Dashboard{src: src, counts: counts}
}

func (d *Dashboard) Summary() Summary {
	s := d.summary
	s.Types = slices.Clone(s.Types)
	return s
}

func (d *Dashboard) Reset() { d.summary = Summary{} }

func (d *Dashboard) Refresh() {
	markers := d.src.LiveMarkers()
	byKey := map[[3]string]*TypeStat{}
	for _, m := range markers {
		k := [3]string{markerType(m), m.Style.Color, m.Style.Symbol}
		st, ok := byKey[k]
		if !ok {
			st = &TypeStat{Type: k[0], Color: k[1], Symbol: k[2]}
			byKey[k] = st
		}
		st.Count++
	}
	types := make([]TypeStat, 0, len(byKey))
	for _, st := range byKey {
		types = append(types, *st)
	}
	sort.Slice(types, func(i, j int) bool {
		a, b := types[i], types[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Color != b.Color {
			return a.Color < b.Color
		}
		return a.Symbol < b.Symbol
	})
	s := Summary{Markers: len(markers), Types: types}
	if d.counts != nil {
		s.CoordinateGroups, s.GroupedMarkers = d.counts.CoordinateGroups()
		s.NamedGroups = d.counts.NamedGroupCount()
	}
	d.summary = s
}

func markerType(m *geom.Marker) string {
	for _, k := range []string{"type", "category"} {
		if v := geom.StringProp(m.Props, k); v != "" {
			return v
		}
	}
	return Uncategorized
}
