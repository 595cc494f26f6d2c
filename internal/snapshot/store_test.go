package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomap/internal/cluster"
	"geomap/internal/errs"
	"geomap/internal/geom"
	"geomap/internal/mapview"
	"geomap/internal/namedgroup"
)

type recordingView struct{ calls []string }

func (v *recordingView) Reset()   { v.calls = append(v.calls, "reset") }
func (v *recordingView) Refresh() { v.calls = append(v.calls, "refresh") }

type failingRepo struct {
	*MemoryRepository
	putErr    error
	deleteErr error
}

func (f *failingRepo) Put(ctx context.Context, rec *Record) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryRepository.Put(ctx, rec)
}

func (f *failingRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryRepository.Delete(ctx, id)
}

type testEnv struct {
	surface *mapview.Surface
	vp      *mapview.Viewport
	orch    *cluster.Orchestrator
	named   *namedgroup.Registry
	view    *recordingView
	store   *Store
}

func newEnv(repo Repository) *testEnv {
	e := &testEnv{
		surface: mapview.NewSurface(),
		vp:      mapview.NewViewport(80, 24),
		named:   namedgroup.NewRegistry(nil),
		view:    &recordingView{},
	}
	e.orch = cluster.New(e.surface, e.vp, cluster.DefaultConfig(), nil)
	e.store = NewStore(repo, Deps{
		Surface:  e.surface,
		Grouping: e.orch,
		Camera:   e.vp,
		Named:    e.named,
		Views:    []View{e.view},
	}, nil)
	tick := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	e.store.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return e
}

func (e *testEnv) add(lat, lng float64, name string) *geom.Marker {
	m := geom.NewMarker(geom.LatLng{Lat: lat, Lng: lng}, map[string]any{"name": name})
	if !e.orch.AddMarker(m) {
		e.surface.AddLayer(m)
	}
	return m
}

// live lists every marker once, grouped or not.
func (e *testEnv) live() []*geom.Marker {
	seen := map[string]bool{}
	var out []*geom.Marker
	for _, m := range append(e.orch.Members(), e.surface.Markers()...) {
		if !seen[m.ID] {
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	return out
}

type markerSummary struct {
	Name   string
	Origin geom.LatLng
	Color  string
	Props  map[string]any
}

func (e *testEnv) summary() []markerSummary {
	var out []markerSummary
	for _, m := range e.live() {
		out = append(out, markerSummary{Name: m.Name(), Origin: m.Origin, Color: m.Style.Color, Props: m.Props})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *testEnv) groupMembersByName() map[string][]string {
	byID := map[string]string{}
	for _, m := range e.live() {
		byID[m.ID] = m.Name()
	}
	out := map[string][]string{}
	for _, g := range e.named.List() {
		var names []string
		for _, id := range g.MemberIDs {
			names = append(names, byID[id])
		}
		sort.Strings(names)
		out[g.Name] = names
	}
	return out
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv(NewMemoryRepository())
	a := e.add(30, 120, "a")
	b := e.add(30, 120+1e-7, "b")
	c := e.add(31, 121, "c")
	c.Style.Color = "#00ff00"
	c.Props["type"] = "shop"
	e.surface.AddLayer(geom.NewShape(orb.LineString{{120, 30}, {121, 31}}, map[string]any{"kind": "road"}))
	_, err := e.named.Create("pair", "", []string{a.ID, c.ID})
	require.NoError(t, err)

	g, _ := e.orch.GroupFor(a.ID)
	require.True(t, e.orch.ExpandGroup(g))
	require.NotEqual(t, a.Origin, a.Pos)
	e.vp.SetView(geom.Camera{Center: geom.LatLng{Lat: 30.5, Lng: 120.5}, Zoom: 9})

	wantMarkers := e.summary()
	wantGroups := e.groupMembersByName()

	rec, err := e.store.Capture(ctx, "before")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, e.store.Current())
	assert.Equal(t, 4, rec.FeatureCount())

	// scramble the live state
	e.orch.RemoveMarker(b.ID)
	e.add(0, 0, "stray")
	e.vp.SetView(geom.Camera{Zoom: 1})
	e.view.calls = nil

	rep, err := e.store.Restore(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, Report{Markers: 3, Shapes: 1}, rep)

	if diff := cmp.Diff(wantMarkers, e.summary()); diff != "" {
		t.Fatalf("markers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantGroups, e.groupMembersByName()); diff != "" {
		t.Fatalf("named groups mismatch (-want +got):\n%s", diff)
	}
	for _, m := range e.live() {
		assert.NotContains(t, []string{a.ID, b.ID, c.ID}, m.ID, "identities are regenerated")
		assert.Equal(t, m.Origin, m.Pos, "restored markers sit at canonical positions")
	}
	assert.Equal(t, cluster.Stats{Groups: 2, Markers: 3, GroupedMarkers: 2}, e.orch.Stats())
	assert.Nil(t, e.orch.Expanded())
	assert.Len(t, e.surface.Shapes(), 1)
	assert.Equal(t, geom.Camera{Center: geom.LatLng{Lat: 30.5, Lng: 120.5}, Zoom: 9}, e.vp.View())
	assert.Equal(t, []string{"reset", "refresh"}, e.view.calls)
}

func TestScenarioBeforeAfter(t *testing.T) {
	ctx := context.Background()
	e := newEnv(NewMemoryRepository())
	for i := 0; i < 4; i++ {
		e.add(float64(i), float64(i), "m")
	}
	e.add(0, 0, "dup")
	before, err := e.store.Capture(ctx, "before")
	require.NoError(t, err)
	e.add(9, 9, "new")
	after, err := e.store.Capture(ctx, "after")
	require.NoError(t, err)

	_, err = e.store.Restore(ctx, before.ID)
	require.NoError(t, err)
	assert.Len(t, e.live(), 5)
	_, err = e.store.Restore(ctx, after.ID)
	require.NoError(t, err)
	assert.Len(t, e.live(), 6)
	_, err = e.store.Restore(ctx, before.ID)
	require.NoError(t, err)
	assert.Len(t, e.live(), 5)
	assert.Equal(t, 4, e.orch.Stats().Groups)
}

func TestRestoreUnknownChangesNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(NewMemoryRepository())
	m := e.add(1, 2, "keep")
	_, err := e.named.Create("g", "", []string{m.ID})
	require.NoError(t, err)

	_, err = e.store.Restore(ctx, "snap_missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.True(t, e.surface.HasLayer(m))
	assert.Equal(t, 1, e.named.Len())
	assert.Empty(t, e.view.calls)
	assert.Empty(t, e.store.Current())
}

func TestRestoreFetchesRecordWrittenAfterLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	writer := newEnv(repo)
	writer.add(4, 5, "late")
	rec, err := writer.store.Capture(ctx, "late")
	require.NoError(t, err)

	e := newEnv(repo)
	e.add(1, 1, "live")
	rep, err := e.store.Restore(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Markers)
	assert.Equal(t, rec.ID, e.store.Current())
	got, ok := e.store.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "late", got.Name)
}

func TestCaptureKeepsRecordWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemoryRepository: NewMemoryRepository(), putErr: errors.New("disk full")}
	e := newEnv(repo)
	e.add(1, 1, "x")

	rec, err := e.store.Capture(ctx, "fragile")
	require.Error(t, err)
	assert.True(t, errs.IsStorage(err))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, rec.ID, e.store.Current())
	got, ok := e.store.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "fragile", got.Name)

	persisted, _ := repo.MemoryRepository.List(ctx)
	assert.Empty(t, persisted)

	// the in-memory record still restores
	_, err = e.store.Restore(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, e.live(), 1)
}

func TestRestoreSkipsMalformedFeatures(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	good := geom.MarkerToFeature(geom.NewMarker(geom.LatLng{Lat: 5, Lng: 6}, map[string]any{"name": "ok"}))
	goodRaw, err := json.Marshal(good)
	require.NoError(t, err)
	rec := &Record{
		ID:        "snap_manual",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Name:      "manual",
		Layers: []Layer{{ID: MainLayerID, Visible: true, Features: FeatureSet{
			json.RawMessage(`{"type":"Feature","geometry":{"type":"Point","coordinates":"bad"},"properties":{}}`),
			goodRaw,
			json.RawMessage(`{"type":"Feature","geometry":null,"properties":{}}`),
		}}},
		NamedGroups: map[string]namedgroup.Group{
			"g": {ID: "g", Name: "g", MemberIDs: []string{geom.FeatureID(good), "ghost"}},
		},
		View: ViewState{Center: [2]float64{5, 6}, Zoom: 4},
	}
	require.NoError(t, repo.Put(ctx, rec))
	require.NoError(t, repo.SetCurrent(ctx, rec.ID))

	e := newEnv(repo)
	require.NoError(t, e.store.Load(ctx))
	assert.Equal(t, rec.ID, e.store.Current())

	rep, err := e.store.Restore(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, Report{Markers: 1, Skipped: 2, Dropped: 1}, rep)
	require.Len(t, e.live(), 1)
	assert.Equal(t, "ok", e.live()[0].Name())
	g, ok := e.named.Get("g")
	require.True(t, ok)
	assert.Equal(t, []string{e.live()[0].ID}, g.MemberIDs)
	assert.Equal(t, geom.LatLng{Lat: 5, Lng: 6}, e.vp.View().Center)
}

func TestRestoreWhileGroupingDisabled(t *testing.T) {
	ctx := context.Background()
	e := newEnv(NewMemoryRepository())
	e.add(1, 1, "a")
	e.add(1, 1, "b")
	rec, err := e.store.Capture(ctx, "pair")
	require.NoError(t, err)

	e.orch.Disable()
	_, err = e.store.Restore(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, e.surface.Markers(), 2)
	assert.Equal(t, cluster.Stats{}, e.orch.Stats())
}

func TestDeleteAndRename(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemoryRepository: NewMemoryRepository()}
	e := newEnv(repo)
	e.add(1, 1, "a")
	first, err := e.store.Capture(ctx, "first")
	require.NoError(t, err)
	second, err := e.store.Capture(ctx, "second")
	require.NoError(t, err)

	list := e.store.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	require.NoError(t, e.store.Rename(ctx, first.ID, "renamed"))
	got, _ := e.store.Get(first.ID)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)

	repo.putErr = errors.New("locked")
	err = e.store.Rename(ctx, first.ID, "lost")
	assert.True(t, errs.IsStorage(err))
	got, _ = e.store.Get(first.ID)
	assert.Equal(t, "renamed", got.Name)
	repo.putErr = nil

	assert.ErrorIs(t, e.store.Rename(ctx, "nope", "x"), errs.ErrNotFound)
	assert.ErrorIs(t, e.store.Delete(ctx, "nope"), errs.ErrNotFound)

	repo.deleteErr = errors.New("locked")
	assert.True(t, errs.IsStorage(e.store.Delete(ctx, second.ID)))
	_, ok := e.store.Get(second.ID)
	assert.True(t, ok)
	repo.deleteErr = nil

	require.NoError(t, e.store.Delete(ctx, second.ID))
	assert.Empty(t, e.store.Current())
	cur, _ := repo.Current(ctx)
	assert.Empty(t, cur)
	require.NoError(t, e.store.Delete(ctx, first.ID))
	assert.Empty(t, e.store.List())
}

func TestBrowseMode(t *testing.T) {
	ctx := context.Background()
	e := newEnv(NewMemoryRepository())
	e.add(1, 1, "a")
	one, err := e.store.Capture(ctx, "one")
	require.NoError(t, err)
	e.add(2, 2, "b")
	two, err := e.store.Capture(ctx, "two")
	require.NoError(t, err)
	e.add(3, 3, "unsaved")

	_, err = e.store.EnterBrowse(ctx, one.ID)
	require.NoError(t, err)
	assert.True(t, e.store.Browsing())
	assert.Len(t, e.live(), 1)

	_, err = e.store.Browse(ctx, two.ID)
	require.NoError(t, err)
	assert.Len(t, e.live(), 2)

	_, err = e.store.Capture(ctx, "blocked")
	assert.ErrorIs(t, err, errs.ErrReadOnly)

	require.NoError(t, e.store.ExitBrowse(ctx, false))
	assert.False(t, e.store.Browsing())
	assert.Len(t, e.live(), 3)
	assert.Equal(t, two.ID, e.store.Current())
	assert.Len(t, e.store.List(), 2, "the hold is never persisted")

	_, err = e.store.EnterBrowse(ctx, one.ID)
	require.NoError(t, err)
	require.NoError(t, e.store.ExitBrowse(ctx, true))
	assert.Len(t, e.live(), 1)
	assert.Equal(t, one.ID, e.store.Current())

	require.NoError(t, e.store.ExitBrowse(ctx, false), "exit outside browse mode is a no-op")
	_, err = e.store.EnterBrowse(ctx, "snap_missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.False(t, e.store.Browsing())
}

func TestDiscardBrowseAfterDeletingPreviousCurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	e := newEnv(repo)
	e.add(1, 1, "a")
	prev, err := e.store.Capture(ctx, "prev")
	require.NoError(t, err)
	e.add(2, 2, "b")
	other, err := e.store.Capture(ctx, "other")
	require.NoError(t, err)
	_, err = e.store.Restore(ctx, prev.ID)
	require.NoError(t, err)

	_, err = e.store.EnterBrowse(ctx, other.ID)
	require.NoError(t, err)
	require.NoError(t, e.store.Delete(ctx, prev.ID))
	require.NoError(t, e.store.ExitBrowse(ctx, false))

	assert.Empty(t, e.store.Current())
	cur, err := repo.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur)
	assert.Len(t, e.live(), 1, "the held state comes back")
}

func TestEnterBrowseDefaultsToCurrent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(NewMemoryRepository())
	_, err := e.store.EnterBrowse(ctx, "")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	e.add(1, 1, "a")
	rec, err := e.store.Capture(ctx, "only")
	require.NoError(t, err)
	e.add(2, 2, "b")
	_, err = e.store.EnterBrowse(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, e.store.Current())
	assert.Len(t, e.live(), 1)
}

func TestRecordJSONShape(t *testing.T) {
	rec := Record{
		ID:        "snap_1",
		CreatedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		Name:      "n",
		Layers:    []Layer{{ID: MainLayerID, Name: MainLayerName, Visible: true}},
		View:      ViewState{Center: [2]float64{30, 120}, Zoom: 5},
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"snapshotId":"snap_1","timestamp":"2026-02-03T04:05:06Z","name":"n",
		"layers":[{"layerId":"main_layer","layerName":"Main layer","visible":true,
		           "features":{"type":"FeatureCollection","features":[]}}],
		"namedGroups":null,
		"viewState":{"center":[30,120],"zoom":5}}`, string(b))

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	if diff := cmp.Diff(rec.View, back.View); diff != "" {
		t.Fatalf("view mismatch:\n%s", diff)
	}
	assert.Empty(t, back.Layers[0].Features)
}
