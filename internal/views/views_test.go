package views

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomap/internal/geom"
)

type fakeSource struct {
	markers  []*geom.Marker
	revealed []string
	groups   int
	grouped  int
	named    int
}

func (f *fakeSource) LiveMarkers() []*geom.Marker { return f.markers }

func (f *fakeSource) Exists(id string) bool {
	for _, m := range f.markers {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (f *fakeSource) Reveal(id string) bool {
	if !f.Exists(id) {
		return false
	}
	f.revealed = append(f.revealed, id)
	return true
}

func (f *fakeSource) CoordinateGroups() (int, int) { return f.groups, f.grouped }
func (f *fakeSource) NamedGroupCount() int         { return f.named }

func marker(id string, lat, lng float64, props map[string]any) *geom.Marker {
	m := geom.NewMarker(geom.LatLng{Lat: lat, Lng: lng}, props)
	m.ID = id
	return m
}

func TestSelection(t *testing.T) {
	src := &fakeSource{markers: []*geom.Marker{marker("a", 0, 0, nil), marker("b", 1, 1, nil)}}
	sel := NewSelection(src, nil)

	var got []Change
	cancel := sel.OnChange(func(c Change) { got = append(got, c) })

	sel.Select("a")
	sel.Select("a")
	assert.True(t, sel.SelectByID("b"))
	assert.False(t, sel.SelectByID("missing"))
	sel.Deselect()
	sel.Deselect()

	want := []Change{
		{Current: "a"},
		{Current: "b", Previous: "a"},
		{Previous: "b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"b"}, src.revealed)

	cancel()
	sel.Select("a")
	assert.Len(t, got, 3)
	assert.True(t, sel.IsSelected("a"))
}

func TestSelectionRefreshDropsStale(t *testing.T) {
	src := &fakeSource{markers: []*geom.Marker{marker("a", 0, 0, nil)}}
	sel := NewSelection(src, nil)
	sel.Select("a")
	sel.Refresh()
	assert.Equal(t, "a", sel.Selected())

	src.markers = nil
	sel.Refresh()
	assert.Empty(t, sel.Selected())
}

func TestTableColumnsAndRows(t *testing.T) {
	src := &fakeSource{markers: []*geom.Marker{
		marker("a", 30, 120, map[string]any{"name": "Cafe", "type": "food", "seats": 12.0}),
		marker("b", 31, 121, map[string]any{"name": "Park", "address": "1 Elm", "open": true}),
	}}
	tbl := NewTable(src, nil)
	tbl.Refresh()

	assert.Equal(t, []string{"name", "type", "address", "lat", "lng", "seats", "open"}, tbl.Columns())
	rows := tbl.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Cafe", "food", "", "30.000000", "120.000000", "12", ""}, rows[0].Values)
	assert.Equal(t, []string{"Park", "", "1 Elm", "31.000000", "121.000000", "", "true"}, rows[1].Values)

	tbl.ClearData()
	assert.Zero(t, tbl.Len())
	assert.Equal(t, BaseColumns, tbl.Columns())
}

func TestTableSearchAndFilter(t *testing.T) {
	src := &fakeSource{markers: []*geom.Marker{
		marker("a", 30, 120, map[string]any{"name": "North Cafe", "type": "food", "seats": 12.0}),
		marker("b", 31, 121, map[string]any{"name": "Park", "address": "Cafe Street"}),
		marker("c", -5, 10, map[string]any{"name": "Depot", "type": "storage", "seats": 40.0}),
	}}
	tbl := NewTable(src, nil)
	tbl.Refresh()

	ids := func() []string {
		var out []string
		for _, r := range tbl.Rows() {
			out = append(out, r.ID)
		}
		return out
	}

	tbl.Search("cafe")
	assert.Equal(t, []string{"a", "b"}, ids())
	tbl.Search("")

	require.NoError(t, tbl.SetFilter(`seats != nil && seats > 20`))
	assert.Equal(t, []string{"c"}, ids())

	require.NoError(t, tbl.SetFilter(`lat > 0`))
	assert.Equal(t, []string{"a", "b"}, ids())

	require.NoError(t, tbl.SetFilter(`seats == 12 || seats == 40`))
	tbl.Search("north")
	assert.Equal(t, []string{"a"}, ids())

	assert.Error(t, tbl.SetFilter(`seats >`))
	assert.Equal(t, `seats == 12 || seats == 40`, tbl.Filter())

	require.NoError(t, tbl.SetFilter(""))
	tbl.Search("")
	assert.Len(t, ids(), 3)
}

func TestDashboard(t *testing.T) {
	a := marker("a", 0, 0, map[string]any{"type": "food"})
	b := marker("b", 0, 0, map[string]any{"category": "food"})
	c := marker("c", 0, 0, nil)
	d := marker("d", 0, 0, map[string]any{"type": "food"})
	d.Style.Color = "#000000"
	src := &fakeSource{markers: []*geom.Marker{a, b, c, d}, groups: 1, grouped: 4, named: 2}

	dash := NewDashboard(src, src)
	dash.Refresh()
	got := dash.Summary()

	want := Summary{
		Markers: 4,
		Types: []TypeStat{
			{Type: "food", Color: geom.DefaultColor, Symbol: geom.DefaultSymbol, Count: 2},
			{Type: "food", Color: "#000000", Symbol: geom.DefaultSymbol, Count: 1},
			{Type: Uncategorized, Color: geom.DefaultColor, Symbol: geom.DefaultSymbol, Count: 1},
		},
		CoordinateGroups: 1,
		GroupedMarkers:   4,
		NamedGroups:      2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	dash.Reset()
	assert.Zero(t, dash.Summary().Markers)
}
