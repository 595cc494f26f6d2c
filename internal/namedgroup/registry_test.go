package namedgroup

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomap/internal/errs"
	"geomap/internal/geom"
)

func fixedRegistry() *Registry {
	r := NewRegistry(nil)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestCreateAndMembership(t *testing.T) {
	r := fixedRegistry()
	g, err := r.Create("depots", "", []string{"a", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, g.MemberIDs)
	assert.Equal(t, DefaultColor, g.Color)

	h, err := r.Create("north", "#00ff00", []string{"b"})
	require.NoError(t, err)

	groups := r.GroupsFor("b")
	require.Len(t, groups, 2)
	assert.Equal(t, g.ID, groups[0].ID)
	assert.Equal(t, h.ID, groups[1].ID)

	require.NoError(t, r.AddMember(h.ID, "c"))
	require.NoError(t, r.RemoveMember(g.ID, "a"))
	r.Forget("b")
	got, _ := r.Get(g.ID)
	assert.Empty(t, got.MemberIDs)
	got, _ = r.Get(h.ID)
	assert.Equal(t, []string{"c"}, got.MemberIDs)

	require.NoError(t, r.Rename(h.ID, "north-east"))
	assert.Equal(t, "north-east", r.List()[1].Name)

	_, err = r.Create("", "", []string{"x"})
	assert.Error(t, err)
	_, err = r.Create("empty", "", nil)
	assert.Error(t, err)
}

func TestNotFound(t *testing.T) {
	r := fixedRegistry()
	assert.ErrorIs(t, r.Delete("nope"), errs.ErrNotFound)
	assert.ErrorIs(t, r.Rename("nope", "x"), errs.ErrNotFound)
	assert.ErrorIs(t, r.AddMember("nope", "x"), errs.ErrNotFound)
	_, err := r.Export("nope", nil)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSnapshotIsDetached(t *testing.T) {
	r := fixedRegistry()
	g, _ := r.Create("g", "", []string{"a"})
	snap := r.Snapshot()
	require.NoError(t, r.AddMember(g.ID, "b"))
	assert.Equal(t, []string{"a"}, snap[g.ID].MemberIDs)
}

func TestBindRemapsAndDrops(t *testing.T) {
	r := fixedRegistry()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	groups := map[string]Group{
		"g2": {ID: "g2", Name: "second", MemberIDs: []string{"old3"}, Created: t0.Add(time.Hour)},
		"g1": {ID: "g1", Name: "first", MemberIDs: []string{"old1", "old2", "gone"}, Color: "#123456", Created: t0},
	}
	remap := map[string]string{"old1": "new1", "old2": "new2", "old3": "new3"}
	resolve := func(id string) (string, bool) {
		n, ok := remap[id]
		return n, ok
	}

	assert.Equal(t, 1, r.Bind(groups, resolve))
	assert.Equal(t, 1, r.Bind(groups, resolve))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Name)
	assert.Equal(t, []string{"new1", "new2"}, list[0].MemberIDs)
	assert.Equal(t, DefaultColor, list[1].Color)
	assert.Equal(t, []string{"old3"}, groups["g2"].MemberIDs, "input untouched")
}

func TestExportAndBounds(t *testing.T) {
	r := fixedRegistry()
	a := geom.NewMarker(geom.LatLng{Lat: 1, Lng: 2}, map[string]any{"name": "a"})
	b := geom.NewMarker(geom.LatLng{Lat: 3, Lng: 5}, nil)
	live := map[string]*geom.Marker{a.ID: a, b.ID: b}
	lookup := func(id string) (*geom.Marker, bool) {
		m, ok := live[id]
		return m, ok
	}
	g, _ := r.Create("pair", "", []string{a.ID, b.ID, "deleted"})

	box, err := r.Bounds(g.ID, lookup)
	require.NoError(t, err)
	assert.Equal(t, geom.BBox{MinX: 2, MinY: 1, MaxX: 5, MaxY: 3, Valid: true}, box)

	fc, err := r.Export(g.ID, lookup)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
	b2, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(b2), `"groupName":"pair"`)
	assert.Contains(t, string(b2), `"exportedAt":"2026-03-01T12:00:00Z"`)

	assert.Equal(t, []Summary{{ID: g.ID, Name: "pair", Members: 3, Color: DefaultColor}}, r.Stats())
}
