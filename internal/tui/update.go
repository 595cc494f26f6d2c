package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"geomap/internal/cluster"
	"geomap/internal/errs"
	"geomap/internal/geom"
	"geomap/internal/mapview"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case tea.KeyMsg:
		if m.sidebar != sidebarHidden && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.pasteMode {
			return m.updatePaste(msg)
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		if quit := m.handleKey(msg); quit {
			return m, tea.Quit
		}
		if m.showAttrs {
			var cmd tea.Cmd
			m.tbl, cmd = m.tbl.Update(msg)
			return m, cmd
		}
	case tea.MouseMsg:
		m.handleMouse(msg)
	}
	if m.sidebar != sidebarHidden {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updatePaste(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pasteMode = false
		m.ta.Blur()
		return m, nil
	case "enter":
		w := strings.TrimSpace(m.ta.Value())
		if w == "" {
			m.status = "paste: empty"
			return m, nil
		}
		d, err := geom.ParseWKTData(w)
		if err != nil {
			m.status = "wkt error: " + err.Error()
			return m, nil
		}
		if err := m.ws.Import(d); err != nil {
			m.report(err)
			return m, nil
		}
		m.selPath = ""
		m.status = fmt.Sprintf("added WKT: %s, %s", plural(len(d.Markers), "marker"), plural(len(d.Shapes), "shape"))
		m.pasteMode = false
		m.ta.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m *Model) openPrompt(kind promptKind, value string) {
	m.prompt = kind
	m.ti.Prompt = kind.label()
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.promptAt = nil
	m.ti.Blur()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePrompt()
		m.status = "cancelled"
		return m, nil
	case "enter":
		kind, value, at := m.prompt, strings.TrimSpace(m.ti.Value()), m.promptAt
		m.closePrompt()
		m.submitPrompt(kind, value, at)
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *Model) submitPrompt(kind promptKind, value string, at *hoverPoint) {
	switch kind {
	case promptMarkerName:
		props := map[string]any{}
		if value != "" {
			props["name"] = value
		}
		ll := m.ws.Viewport.Center
		if at != nil {
			ll = geom.LatLng{Lat: at.lat, Lng: at.lng}
		}
		mk, err := m.ws.NewMarker(ll, props)
		if err != nil {
			m.report(err)
			return
		}
		m.ws.Selection.Select(mk.ID)
		m.status = fmt.Sprintf("marker added at %.5f, %.5f", ll.Lat, ll.Lng)
	case promptSnapshotLabel:
		rec, err := m.ws.Capture(m.ctx, value)
		if err != nil && !errs.IsStorage(err) {
			m.report(err)
			return
		}
		m.status = fmt.Sprintf("snapshot %q saved (%s)", rec.Name, plural(rec.FeatureCount(), "feature"))
		if err != nil {
			m.status += "; not persisted: " + err.Error()
		}
	case promptSnapshotRename:
		if it, ok := m.l.SelectedItem().(snapshotItem); ok {
			if err := m.ws.RenameSnapshot(m.ctx, it.id, value); err != nil {
				m.report(err)
				return
			}
			m.status = "snapshot renamed"
		}
	case promptSearch:
		m.ws.Search(value)
		m.status = fmt.Sprintf("search %q: %s", value, plural(len(m.ws.Table.Rows()), "match"))
		m.showAttrs = true
		m.refreshAttrs()
	case promptFilter:
		if err := m.ws.Table.SetFilter(value); err != nil {
			m.report(err)
			return
		}
		m.status = fmt.Sprintf("filter %q: %s", value, plural(len(m.ws.Table.Rows()), "row"))
		m.showAttrs = true
		m.refreshAttrs()
	case promptGroupName:
		sel := m.ws.Selection.Selected()
		g, err := m.ws.CreateGroup(value, "", []string{sel})
		if err != nil {
			m.report(err)
			return
		}
		m.status = fmt.Sprintf("group %q created", g.Name)
	}
	if m.sidebar != sidebarHidden {
		m.refreshSidebar()
	}
}

// report puts err on the status line.
func (m *Model) report(err error) {
	switch {
	case errors.Is(err, errs.ErrReadOnly):
		m.status = "browsing snapshots: press c to keep this state or esc to go back"
	default:
		m.status = "error: " + err.Error()
	}
	m.log.Warn("ui_action_failed", "err", err)
}

// handleKey runs a global key binding and reports whether to quit.
func (m *Model) handleKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "ctrl+c", "q":
		return true
	case "esc":
		switch {
		case m.ws.Store.Browsing():
			if err := m.ws.ExitBrowse(m.ctx, false); err != nil {
				m.report(err)
			} else {
				m.status = "left browse mode, changes discarded"
			}
		case m.inspectPopup != "":
			m.inspectPopup = ""
		case m.showAttrs:
			m.showAttrs = false
		default:
			m.ws.Cancel()
			m.status = "view mode"
		}
	case "tab":
		m.sidebar = m.sidebar.next()
		m.resize()
		m.refreshSidebar()
	case "enter":
		m.activate()
	case "1":
		m.showMarkers = !m.showMarkers
		m.status = fmt.Sprintf("markers: %v", m.showMarkers)
	case "2":
		m.showShapes = !m.showShapes
		m.status = fmt.Sprintf("shapes: %v", m.showShapes)
	case "+", "=":
		m.ws.Zoom(0.5)
		m.status = fmt.Sprintf("zoom: %.1f", m.ws.Viewport.Zoom)
	case "-", "_":
		m.ws.Zoom(-0.5)
		m.status = fmt.Sprintf("zoom: %.1f", m.ws.Viewport.Zoom)
	case "F":
		m.ws.FitAll()
		m.status = "fit to data"
	case "up", "down", "left", "right":
		if m.showAttrs || m.sidebar != sidebarHidden {
			return false
		}
		d := panSteps[msg.String()]
		m.ws.Pan(d[0], d[1])
	case "p":
		m.pasteMode = true
		m.ta.SetValue("")
		m.ta.Focus()
		m.status = "paste mode"
	case "h":
		m.helpVisible = !m.helpVisible
	case "a":
		m.showAttrs = !m.showAttrs
		if m.showAttrs {
			m.refreshAttrs()
		}
	case "/":
		m.openPrompt(promptSearch, "")
	case "f":
		m.openPrompt(promptFilter, m.ws.Table.Filter())
	case "m":
		if m.ws.Store.Browsing() {
			m.report(errs.ErrReadOnly)
			break
		}
		if m.hoverHasGeo {
			m.promptAt = &hoverPoint{lat: m.hoverLat, lng: m.hoverLon}
		}
		m.openPrompt(promptMarkerName, "")
	case "x":
		sel := m.ws.Selection.Selected()
		if sel == "" {
			m.status = "nothing selected"
			break
		}
		if err := m.ws.DeleteMarker(sel); err != nil {
			m.report(err)
			break
		}
		m.status = "marker deleted"
	case "g":
		on := !m.ws.Grouping.Enabled()
		m.ws.SetGrouping(on)
		m.status = fmt.Sprintf("grouping: %v", on)
	case "n":
		if m.ws.Selection.Selected() == "" {
			m.status = "select a marker first"
			break
		}
		m.openPrompt(promptGroupName, "")
	case "s":
		if m.ws.Store.Browsing() {
			m.report(errs.ErrReadOnly)
			break
		}
		m.openPrompt(promptSnapshotLabel, "")
	case "R":
		if it, ok := m.l.SelectedItem().(snapshotItem); ok && m.sidebar == sidebarSnapshots {
			m.openPrompt(promptSnapshotRename, it.name)
		}
	case "d":
		m.deleteSelectedItem()
	case "b":
		id := ""
		if it, ok := m.l.SelectedItem().(snapshotItem); ok && m.sidebar == sidebarSnapshots {
			id = it.id
		}
		m.browse(id)
	case "c":
		if !m.ws.Store.Browsing() {
			break
		}
		if err := m.ws.ExitBrowse(m.ctx, true); err != nil {
			m.report(err)
			break
		}
		m.status = "kept snapshot state"
	case "i":
		m.inspect()
	case "e":
		m.export()
	}
	if m.sidebar != sidebarHidden && m.sidebar != sidebarFiles {
		idx := m.l.Index()
		m.refreshSidebar()
		m.l.Select(idx)
	}
	if m.showAttrs && msg.String() != "a" {
		m.refreshAttrs()
	}
	return false
}

// panSteps are in cells; a cell is twice as tall as it is wide.
var panSteps = map[string][2]int{
	"up":    {0, -1},
	"down":  {0, 1},
	"left":  {-2, 0},
	"right": {2, 0},
}

// activate runs enter: open the sidebar item, or locate the table row.
func (m *Model) activate() {
	if m.showAttrs {
		if id, ok := m.selectedRowID(); ok && m.ws.Locate(id) {
			m.showAttrs = false
			m.status = "located marker"
		}
		return
	}
	switch it := m.l.SelectedItem().(type) {
	case fileItem:
		if m.sidebar == sidebarFiles {
			m.loadPath(it.path)
		}
	case snapshotItem:
		if m.sidebar != sidebarSnapshots {
			return
		}
		if m.ws.Store.Browsing() {
			m.browse(it.id)
			return
		}
		rep, err := m.ws.Restore(m.ctx, it.id)
		if err != nil && !errs.IsStorage(err) {
			m.report(err)
			return
		}
		m.status = fmt.Sprintf("restored %q: %s, %s", it.name, plural(rep.Markers, "marker"), plural(rep.Shapes, "shape"))
		if rep.Skipped > 0 || rep.Dropped > 0 {
			m.status += fmt.Sprintf(" (skipped %d, dropped %d)", rep.Skipped, rep.Dropped)
		}
	case groupItem:
		if m.sidebar != sidebarGroups {
			return
		}
		if err := m.ws.FocusGroup(it.id); err != nil {
			m.report(err)
			return
		}
		m.status = fmt.Sprintf("group %q", it.name)
	}
}

func (m *Model) browse(id string) {
	rep, err := m.ws.Browse(m.ctx, id)
	if err != nil && !errs.IsStorage(err) {
		if errors.Is(err, errs.ErrNotFound) {
			m.status = "no snapshots to browse"
			return
		}
		m.report(err)
		return
	}
	rec, _ := m.ws.Store.Get(m.ws.Store.Current())
	m.status = fmt.Sprintf("browsing %q: %s (c keep, esc back)", rec.Name, plural(rep.Markers, "marker"))
}

func (m *Model) deleteSelectedItem() {
	switch it := m.l.SelectedItem().(type) {
	case snapshotItem:
		if m.sidebar != sidebarSnapshots {
			return
		}
		if err := m.ws.DeleteSnapshot(m.ctx, it.id); err != nil {
			m.report(err)
			return
		}
		m.status = fmt.Sprintf("snapshot %q deleted", it.name)
	case groupItem:
		if m.sidebar != sidebarGroups {
			return
		}
		if err := m.ws.DeleteGroup(it.id); err != nil {
			m.report(err)
			return
		}
		m.status = fmt.Sprintf("group %q deleted", it.name)
	}
}

// inspect shows the selected marker's properties and named groups.
func (m *Model) inspect() {
	id := m.ws.Selection.Selected()
	mk, ok := m.ws.Marker(id)
	if !ok {
		m.inspectPopup = "nothing selected"
		m.status = m.inspectPopup
		return
	}
	lines := []string{
		fmt.Sprintf("id: %s", truncate(mk.ID, 36)),
		fmt.Sprintf("at: %.6f, %.6f", mk.Origin.Lat, mk.Origin.Lng),
		fmt.Sprintf("style: %s %s", mk.Style.Color, mk.Style.Symbol),
	}
	if g, ok := m.ws.Grouping.GroupFor(id); ok && g.Len() > 1 {
		lines = append(lines, fmt.Sprintf("stacked with %d others (%s)", g.Len()-1, g.State()))
	}
	props, _ := m.ws.Props(id)
	for _, k := range sortedKeys(props) {
		lines = append(lines, fmt.Sprintf("%s: %v", k, props[k]))
	}
	for _, g := range m.ws.GroupsFor(id) {
		lines = append(lines, "group: "+g.Name)
	}
	m.inspectPopup = strings.Join(lines, "\n")
	m.status = "inspect popup"
}

func (m *Model) export() {
	b, err := m.ws.ExportGeoJSON()
	if err != nil {
		m.report(err)
		return
	}
	p := filepath.Join(m.cwd, "geomap-export-"+time.Now().Format("20060102-150405")+".geojson")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		m.report(err)
		return
	}
	m.status = "exported " + filepath.Base(p)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	ox, oy, w, h := m.layout()
	cx, cy := msg.X-ox, msg.Y-oy
	if cx < 0 || cy < 0 || cx >= w || cy >= h {
		m.hovering = false
		m.hoverHasGeo = false
		return
	}
	m.hovering = true
	m.hoverCellX, m.hoverCellY = cx, cy
	px := mapview.CellPixel(cx, cy)
	ll := m.ws.Viewport.Unproject(px)
	m.hoverHasGeo = true
	m.hoverLat, m.hoverLon = ll.Lat, ll.Lng

	if msg.Action != tea.MouseActionPress {
		return
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.ws.Zoom(0.5)
	case tea.MouseButtonWheelDown:
		m.ws.Zoom(-0.5)
	case tea.MouseButtonLeft:
		l, ok := m.ws.Click(px)
		if !ok {
			m.status = "view mode"
			return
		}
		switch v := l.(type) {
		case *cluster.Anchor:
			m.status = fmt.Sprintf("group of %d", v.Count)
		case *geom.Marker:
			name := v.Name()
			if name == "" {
				name = truncate(v.ID, 8)
			}
			m.status = "selected " + name
		case *geom.Shape:
			m.status = "selected shape"
		}
	}
}
