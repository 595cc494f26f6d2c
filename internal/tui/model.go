package tui

import (
	"context"
	"log/slog"
	"os"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"geomap/internal/editor"
)

const sidebarWidth = 32

type sidebarMode int

const (
	sidebarHidden sidebarMode = iota
	sidebarFiles
	sidebarSnapshots
	sidebarGroups
)

func (s sidebarMode) next() sidebarMode { return (s + 1) % 4 }

func (s sidebarMode) title() string {
	switch s {
	case sidebarFiles:
		return "Files"
	case sidebarSnapshots:
		return "Snapshots"
	case sidebarGroups:
		return "Groups"
	}
	return ""
}

type promptKind int

const (
	promptNone promptKind = iota
	promptMarkerName
	promptSnapshotLabel
	promptSnapshotRename
	promptSearch
	promptFilter
	promptGroupName
)

func (p promptKind) label() string {
	switch p {
	case promptMarkerName:
		return "marker name: "
	case promptSnapshotLabel:
		return "snapshot name: "
	case promptSnapshotRename:
		return "rename snapshot: "
	case promptSearch:
		return "search: "
	case promptFilter:
		return "filter: "
	case promptGroupName:
		return "group name: "
	}
	return ""
}

type Model struct {
	ws  *editor.Workspace
	ctx context.Context
	log *slog.Logger

	width  int
	height int

	sidebar     sidebarMode
	helpVisible bool
	status      string

	// layer visibility
	showMarkers bool
	showShapes  bool

	// file explorer
	cwd     string
	l       list.Model
	selPath string

	// paste mode
	pasteMode bool
	ta        textarea.Model

	// one-line prompt
	prompt   promptKind
	ti       textinput.Model
	promptAt *hoverPoint

	// inspect popup
	inspectPopup string

	// hover state
	hovering    bool
	hoverCellX  int
	hoverCellY  int
	hoverHasGeo bool
	hoverLon    float64
	hoverLat    float64

	// attributes table
	showAttrs bool
	tbl       table.Model
}

type hoverPoint struct{ lat, lng float64 }

func New(ctx context.Context, ws *editor.Workspace, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := Model{
		ws:          ws,
		ctx:         ctx,
		log:         logger,
		helpVisible: true,
		status:      "geomap ready",
		showMarkers: true,
		showShapes:  true,
	}
	m.cwd, _ = os.Getwd()
	d := list.NewDefaultDelegate()
	d.ShowDescription = true
	m.l = list.New(nil, d, 0, 0)
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(false)
	m.ta = textarea.New()
	m.ta.Placeholder = "Paste WKT here (POINT, MULTIPOINT, LINESTRING, POLYGON). Press Enter to add; Esc to cancel."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)
	m.ti = textinput.New()
	m.ti.CharLimit = 256
	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	return m
}

// NewWithPath imports a file at launch.
func NewWithPath(ctx context.Context, ws *editor.Workspace, logger *slog.Logger, path string) Model {
	m := New(ctx, ws, logger)
	m.loadPath(path)
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// layout returns the map area origin and size in cells.
func (m Model) layout() (x, y, w, h int) {
	headerHeight, footerHeight := 1, 2
	h = max(4, m.height-headerHeight-footerHeight)
	sw := 0
	if m.sidebar != sidebarHidden {
		sw = sidebarWidth + 1
	}
	w = max(10, max(10, m.width)-sw-1)
	return sw, headerHeight, w, h
}

// resize keeps the camera's screen size in step with the layout.
func (m *Model) resize() {
	_, _, w, h := m.layout()
	m.ws.Resize(w, h)
	if m.sidebar != sidebarHidden {
		m.l.SetSize(sidebarWidth, h-2)
	}
}
