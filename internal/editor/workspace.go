// Package editor wires one editing session together: the layer surface, the
// camera, the grouping engine, named groups, the dependent views and the
// snapshot store. The Workspace is the only entry point the UI talks to.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"geomap/internal/cluster"
	"geomap/internal/errs"
	"geomap/internal/geom"
	"geomap/internal/mapview"
	"geomap/internal/namedgroup"
	"geomap/internal/snapshot"
	"geomap/internal/views"
)

// HitTolerance is the click radius in micro-pixels.
const HitTolerance = 3.0

type Workspace struct {
	Surface   *mapview.Surface
	Viewport  *mapview.Viewport
	Grouping  *cluster.Orchestrator
	Named     *namedgroup.Registry
	Selection *views.Selection
	Table     *views.Table
	Dashboard *views.Dashboard
	Store     *snapshot.Store

	log *slog.Logger
}

// New builds a workspace of w x h terminal cells. Components are created in
// dependency order so that nothing is used before it exists.
func New(repo snapshot.Repository, cfg cluster.Config, w, h int, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ws := &Workspace{log: logger}
	ws.Surface = mapview.NewSurface()
	ws.Viewport = mapview.NewViewport(w, h)
	ws.Grouping = cluster.New(ws.Surface, ws.Viewport, cfg, logger.With("component", "grouping"))
	ws.Named = namedgroup.NewRegistry(logger.With("component", "named_groups"))
	ws.Selection = views.NewSelection(ws, logger.With("component", "selection"))
	ws.Table = views.NewTable(ws, logger.With("component", "table"))
	ws.Dashboard = views.NewDashboard(ws, ws)
	ws.Store = snapshot.NewStore(repo, snapshot.Deps{
		Surface:  ws.Surface,
		Grouping: ws.Grouping,
		Camera:   ws.Viewport,
		Named:    ws.Named,
		Views:    []snapshot.View{ws.Selection, ws.Table, ws.Dashboard},
	}, logger.With("component", "snapshots"))
	return ws
}

// LiveMarkers lists grouped markers first, then standalone ones, each once.
func (ws *Workspace) LiveMarkers() []*geom.Marker {
	out := ws.Grouping.Members()
	seen := make(map[string]bool, len(out))
	for _, m := range out {
		seen[m.ID] = true
	}
	for _, m := range ws.Surface.Markers() {
		if !seen[m.ID] {
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	return out
}

func (ws *Workspace) Marker(id string) (*geom.Marker, bool) {
	if m, ok := ws.Grouping.Marker(id); ok {
		return m, true
	}
	if l, ok := ws.Surface.Find(id); ok {
		if m, ok := l.(*geom.Marker); ok {
			return m, true
		}
	}
	return nil, false
}

func (ws *Workspace) Exists(id string) bool {
	if _, ok := ws.Marker(id); ok {
		return true
	}
	_, ok := ws.Surface.Find(id)
	return ok
}

// Reveal expands the group holding id so the marker is drawn on its own.
func (ws *Workspace) Reveal(id string) bool {
	if ws.Grouping.ExpandGroupForMarker(id) {
		return true
	}
	return ws.Exists(id)
}

// CoordinateGroups counts groups of two or more markers and their members.
func (ws *Workspace) CoordinateGroups() (int, int) {
	var groups, markers int
	for _, g := range ws.Grouping.Groups() {
		if g.Len() > 1 {
			groups++
			markers += g.Len()
		}
	}
	return groups, markers
}

func (ws *Workspace) NamedGroupCount() int { return ws.Named.Len() }

// Refresh rebuilds every dependent view.
func (ws *Workspace) Refresh() {
	ws.Selection.Refresh()
	ws.Table.Refresh()
	ws.Dashboard.Refresh()
}

// writable rejects edits while a snapshot is being previewed.
func (ws *Workspace) writable(op string) error {
	if ws.Store.Browsing() {
		return fmt.Errorf("%s: %w", op, errs.ErrReadOnly)
	}
	return nil
}

func (ws *Workspace) place(m *geom.Marker) {
	if !ws.Grouping.AddMarker(m) {
		ws.Surface.AddLayer(m)
	}
}

// AddMarker adds m, giving it a fresh id if its id is taken.
func (ws *Workspace) AddMarker(m *geom.Marker) error {
	if err := ws.writable("add marker"); err != nil {
		return err
	}
	if m.ID == "" || ws.Exists(m.ID) {
		m.ID = uuid.NewString()
	}
	ws.place(m)
	ws.log.Debug("marker_added", "id", m.ID, "lat", m.Origin.Lat, "lng", m.Origin.Lng)
	ws.Refresh()
	return nil
}

func (ws *Workspace) NewMarker(ll geom.LatLng, props map[string]any) (*geom.Marker, error) {
	m := geom.NewMarker(ll, props)
	if err := ws.AddMarker(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMarker removes the marker from the map and from every named group.
func (ws *Workspace) DeleteMarker(id string) error {
	if err := ws.writable("delete marker"); err != nil {
		return err
	}
	m, ok := ws.Marker(id)
	if !ok {
		return fmt.Errorf("delete marker %q: %w", id, errs.ErrNotFound)
	}
	if !ws.Grouping.RemoveMarker(id) {
		ws.Surface.RemoveLayer(m)
	}
	ws.Named.Forget(id)
	ws.log.Debug("marker_deleted", "id", id)
	ws.Refresh()
	return nil
}

// UpdateProperties merges props into the marker; a nil value deletes the
// key. The style keys set the marker style instead of a property.
func (ws *Workspace) UpdateProperties(id string, props map[string]any) error {
	if err := ws.writable("update properties"); err != nil {
		return err
	}
	m, ok := ws.Marker(id)
	if !ok {
		return fmt.Errorf("update properties %q: %w", id, errs.ErrNotFound)
	}
	for k, v := range props {
		switch {
		case k == geom.KeyColor:
			if s, ok := v.(string); ok && s != "" {
				m.Style.Color = s
			}
		case k == geom.KeySymbol:
			if s, ok := v.(string); ok && s != "" {
				m.Style.Symbol = s
			}
		case v == nil:
			delete(m.Props, k)
		default:
			m.Props[k] = v
		}
	}
	ws.Refresh()
	return nil
}

func (ws *Workspace) AddShape(sh *geom.Shape) error {
	if err := ws.writable("add shape"); err != nil {
		return err
	}
	if sh.ID == "" || ws.Exists(sh.ID) {
		sh.ID = uuid.NewString()
	}
	ws.Surface.AddLayer(sh)
	ws.Refresh()
	return nil
}

// Import adds parsed data and fits the camera to it. Ids already in use are
// replaced.
func (ws *Workspace) Import(d geom.Data) error {
	if err := ws.writable("import"); err != nil {
		return err
	}
	for _, m := range d.Markers {
		if m.ID == "" || ws.Exists(m.ID) {
			m.ID = uuid.NewString()
		}
		ws.place(m)
	}
	for _, sh := range d.Shapes {
		if sh.ID == "" || ws.Exists(sh.ID) {
			sh.ID = uuid.NewString()
		}
		ws.Surface.AddLayer(sh)
	}
	ws.Viewport.Fit(d.BBox)
	ws.Grouping.Relayout()
	ws.log.Info("data_imported", "markers", len(d.Markers), "shapes", len(d.Shapes))
	ws.Refresh()
	return nil
}

// ClearAll removes every marker, shape and named group.
func (ws *Workspace) ClearAll() error {
	if err := ws.writable("clear"); err != nil {
		return err
	}
	ws.Grouping.Clear()
	ws.Surface.Clear()
	ws.Named.Clear()
	ws.Selection.Reset()
	ws.Refresh()
	return nil
}

// Click handles a press at px. Anchors toggle their group, markers and
// shapes become selected, the background collapses everything.
func (ws *Workspace) Click(px geom.Pixel) (cluster.Layer, bool) {
	l, ok := ws.Surface.HitTest(px, ws.Viewport, HitTolerance)
	if !ok {
		ws.Cancel()
		return nil, false
	}
	switch v := l.(type) {
	case *cluster.Anchor:
		v.Click()
		ws.Selection.Deselect()
	case *geom.Marker:
		ws.Selection.Select(v.ID)
	case *geom.Shape:
		ws.Selection.Select(v.ID)
	}
	return l, true
}

// Cancel collapses the expanded group and drops the selection.
func (ws *Workspace) Cancel() {
	ws.Grouping.CollapseAll()
	ws.Selection.Deselect()
}

// Locate selects the marker and centers the camera on it.
func (ws *Workspace) Locate(id string) bool {
	m, ok := ws.Marker(id)
	if !ok || !ws.Selection.SelectByID(id) {
		return false
	}
	ws.Viewport.Center = m.Origin
	ws.Grouping.Relayout()
	return true
}

func (ws *Workspace) Pan(dx, dy int) {
	ws.Viewport.Pan(dx, dy)
	ws.Grouping.Relayout()
}

// Zoom changes the zoom level; spread groups are laid out again because
// their offsets are in screen space.
func (ws *Workspace) Zoom(delta float64) {
	ws.Viewport.ZoomBy(delta)
	ws.Grouping.Relayout()
}

func (ws *Workspace) Resize(w, h int) {
	ws.Viewport.SetSize(w, h)
	ws.Grouping.Relayout()
}

// FitAll fits the camera to every marker and shape.
func (ws *Workspace) FitAll() {
	var b geom.BBox
	for _, m := range ws.LiveMarkers() {
		b.Extend(m.Origin.Lng, m.Origin.Lat)
	}
	for _, sh := range ws.Surface.Shapes() {
		b.ExtendGeometry(sh.Geometry)
	}
	ws.Viewport.Fit(b)
	ws.Grouping.Relayout()
}

func (ws *Workspace) SetGrouping(on bool) {
	if on {
		ws.Grouping.Enable()
	} else {
		ws.Grouping.Disable()
	}
	ws.Refresh()
}

func (ws *Workspace) Search(query string) []views.Row {
	ws.Table.Search(query)
	return ws.Table.Rows()
}

// ExportGeoJSON encodes every marker at its canonical position and every
// shape.
func (ws *Workspace) ExportGeoJSON() ([]byte, error) {
	fc := geom.FeatureCollection(ws.LiveMarkers(), ws.Surface.Shapes())
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export geojson: %w", err)
	}
	return b, nil
}

func (ws *Workspace) lookup(id string) (*geom.Marker, bool) { return ws.Marker(id) }

func (ws *Workspace) CreateGroup(name, color string, memberIDs []string) (namedgroup.Group, error) {
	if err := ws.writable("create group"); err != nil {
		return namedgroup.Group{}, err
	}
	for _, id := range memberIDs {
		if _, ok := ws.Marker(id); !ok {
			return namedgroup.Group{}, fmt.Errorf("create group %q: marker %q: %w", name, id, errs.ErrNotFound)
		}
	}
	g, err := ws.Named.Create(name, color, memberIDs)
	if err != nil {
		return namedgroup.Group{}, err
	}
	ws.Dashboard.Refresh()
	return g, nil
}

func (ws *Workspace) DeleteGroup(id string) error {
	if err := ws.writable("delete group"); err != nil {
		return err
	}
	if err := ws.Named.Delete(id); err != nil {
		return err
	}
	ws.Dashboard.Refresh()
	return nil
}

func (ws *Workspace) RenameGroup(id, name string) error {
	if err := ws.writable("rename group"); err != nil {
		return err
	}
	return ws.Named.Rename(id, name)
}

func (ws *Workspace) AddToGroup(groupID, markerID string) error {
	if err := ws.writable("add to group"); err != nil {
		return err
	}
	if _, ok := ws.Marker(markerID); !ok {
		return fmt.Errorf("add to group %q: marker %q: %w", groupID, markerID, errs.ErrNotFound)
	}
	return ws.Named.AddMember(groupID, markerID)
}

func (ws *Workspace) RemoveFromGroup(groupID, markerID string) error {
	if err := ws.writable("remove from group"); err != nil {
		return err
	}
	return ws.Named.RemoveMember(groupID, markerID)
}

// FocusGroup fits the camera to the group's members.
func (ws *Workspace) FocusGroup(id string) error {
	b, err := ws.Named.Bounds(id, ws.lookup)
	if err != nil {
		return err
	}
	ws.Viewport.Fit(b)
	ws.Grouping.Relayout()
	return nil
}

func (ws *Workspace) ExportGroup(id string) ([]byte, error) {
	fc, err := ws.Named.Export(id, ws.lookup)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export group %q: %w", id, err)
	}
	return b, nil
}

// GroupsFor lists the named groups holding markerID.
func (ws *Workspace) GroupsFor(markerID string) []namedgroup.Group {
	return ws.Named.GroupsFor(markerID)
}

func (ws *Workspace) Capture(ctx context.Context, label string) (snapshot.Record, error) {
	return ws.Store.Capture(ctx, label)
}

func (ws *Workspace) Restore(ctx context.Context, id string) (snapshot.Report, error) {
	if err := ws.writable("restore snapshot"); err != nil {
		return snapshot.Report{}, err
	}
	return ws.Store.Restore(ctx, id)
}

func (ws *Workspace) DeleteSnapshot(ctx context.Context, id string) error {
	return ws.Store.Delete(ctx, id)
}

func (ws *Workspace) RenameSnapshot(ctx context.Context, id, label string) error {
	return ws.Store.Rename(ctx, id, label)
}

func (ws *Workspace) Browse(ctx context.Context, id string) (snapshot.Report, error) {
	return ws.Store.Browse(ctx, id)
}

func (ws *Workspace) ExitBrowse(ctx context.Context, commit bool) error {
	return ws.Store.ExitBrowse(ctx, commit)
}

// Props returns a copy of the marker's properties.
func (ws *Workspace) Props(id string) (map[string]any, bool) {
	m, ok := ws.Marker(id)
	if !ok {
		return nil, false
	}
	return maps.Clone(m.Props), true
}
