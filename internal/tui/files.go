package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	list "github.com/charmbracelet/bubbles/list"

	"geomap/internal/geom"
)

type fileItem struct {
	title, desc string
	path        string
}

func (f fileItem) Title() string       { return f.title }
func (f fileItem) Description() string { return f.desc }
func (f fileItem) FilterValue() string { return f.title }

type snapshotItem struct {
	id, name, desc string
	current        bool
}

func (s snapshotItem) Title() string {
	if s.current {
		return "● " + s.name
	}
	return "  " + s.name
}
func (s snapshotItem) Description() string { return s.desc }
func (s snapshotItem) FilterValue() string { return s.name }

type groupItem struct {
	id, name, desc string
}

func (g groupItem) Title() string       { return g.name }
func (g groupItem) Description() string { return g.desc }
func (g groupItem) FilterValue() string { return g.name }

// refreshSidebar fills the list for the current sidebar mode.
func (m *Model) refreshSidebar() {
	m.l.Title = m.sidebar.title()
	switch m.sidebar {
	case sidebarFiles:
		m.refreshDir()
	case sidebarSnapshots:
		m.refreshSnapshots()
	case sidebarGroups:
		m.refreshGroups()
	}
}

func (m *Model) refreshDir() {
	entries, err := os.ReadDir(m.cwd)
	if err != nil {
		m.status = "read dir error: " + err.Error()
		return
	}
	var items []list.Item
	for _, e := range entries {
		if e.IsDir() || !geom.Supported(e.Name()) {
			continue
		}
		items = append(items, fileItem{
			title: e.Name(),
			desc:  strings.ToLower(filepath.Ext(e.Name())),
			path:  filepath.Join(m.cwd, e.Name()),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].(fileItem).Title() < items[j].(fileItem).Title() })
	m.l.SetItems(items)
	if len(items) == 0 {
		m.status = "no supported files in current directory"
	}
}

func (m *Model) refreshSnapshots() {
	cur := m.ws.Store.Current()
	var items []list.Item
	for _, r := range m.ws.Store.List() {
		items = append(items, snapshotItem{
			id:      r.ID,
			name:    r.Name,
			desc:    fmt.Sprintf("%s  %s", r.CreatedAt.Local().Format("01-02 15:04"), plural(r.FeatureCount(), "feature")),
			current: r.ID == cur,
		})
	}
	m.l.SetItems(items)
}

func (m *Model) refreshGroups() {
	var items []list.Item
	for _, s := range m.ws.Named.Stats() {
		items = append(items, groupItem{id: s.ID, name: s.Name, desc: plural(s.Members, "member") + "  " + s.Color})
	}
	m.l.SetItems(items)
}

// loadPath imports a supported file into the workspace.
func (m *Model) loadPath(p string) {
	d, err := geom.LoadFile(p)
	if err != nil {
		m.status = "load error: " + err.Error()
		return
	}
	if err := m.ws.Import(d); err != nil {
		m.status = "import error: " + err.Error()
		return
	}
	m.selPath = p
	m.status = fmt.Sprintf("loaded: %s  %s, %s", filepath.Base(p), plural(len(d.Markers), "marker"), plural(len(d.Shapes), "shape"))
	if m.showAttrs {
		m.refreshAttrs()
	}
}
