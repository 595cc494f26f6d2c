package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	_, _, mapWidth, mapHeight := m.layout()
	contentWidth := max(10, m.width)

	// Header
	title := " geomap ─ terminal marker editor "
	header := titleStyle.Render(title)
	if m.ws.Store.Browsing() {
		header += " " + browseStyle.Render(" BROWSING ")
	}
	header = lipgloss.NewStyle().Width(contentWidth).Render(header)

	// Sidebar
	var sidebar string
	if m.sidebar != sidebarHidden {
		sidebar = lipgloss.NewStyle().Width(sidebarWidth).Render(m.l.View())
	}

	var mapView string
	switch {
	case m.showAttrs:
		colW := 0
		for _, c := range m.tbl.Columns() {
			colW += c.Width + 3
		}
		if colW == 0 {
			colW = min(60, contentWidth-6)
		}
		maxW := min(mapWidth, max(32, colW))
		tbl := m.tbl
		tbl.SetWidth(maxW - 4)
		tbl.SetHeight(min(mapHeight-2, 20))
		attrsBox := boxStyle.Width(maxW).Render(tbl.View())
		mapView = lipgloss.Place(mapWidth, mapHeight, lipgloss.Center, lipgloss.Center, attrsBox)
	case m.pasteMode:
		ta := m.ta
		ta.SetWidth(mapWidth)
		ta.SetHeight(min(mapHeight, 12))
		mapView = lipgloss.NewStyle().Width(mapWidth).Height(mapHeight).Render(ta.View())
	default:
		mapView = lipgloss.NewStyle().Width(mapWidth).Height(mapHeight).Render(m.renderMap(mapWidth, mapHeight))
	}

	// inspect popup, center-left overlay
	popup := ""
	if m.inspectPopup != "" && !m.showAttrs {
		maxPopupW := max(20, min(48, contentWidth/2))
		box := boxStyle.MaxWidth(maxPopupW).Render(m.inspectPopup)
		popup = lipgloss.Place(contentWidth, lipgloss.Height(box), lipgloss.Left, lipgloss.Center, box)
	}

	body := mapView
	if m.sidebar != sidebarHidden {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", mapView)
	}

	// Footer: prompt or status, then help
	var left string
	if m.prompt != promptNone {
		left = m.ti.View()
	} else {
		left = lipgloss.JoinHorizontal(lipgloss.Bottom, dimStyle.Render(" "+m.status+" "), m.renderSummary())
	}
	coords := ""
	if m.hoverHasGeo {
		coords = dimStyle.Render(fmt.Sprintf("  lat=%.5f lng=%.5f  ", m.hoverLat, m.hoverLon))
	}
	spacerW := max(0, contentWidth-lipgloss.Width(left)-lipgloss.Width(coords))
	right := lipgloss.Place(spacerW+lipgloss.Width(coords), 1, lipgloss.Right, lipgloss.Center, coords)
	statusLine := lipgloss.NewStyle().Width(contentWidth).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, left, right))
	footer := lipgloss.JoinVertical(lipgloss.Left, statusLine, m.renderHelp())

	ui := lipgloss.JoinVertical(lipgloss.Left, header, popup, body, footer)
	return appStyle.Width(contentWidth).Height(m.height).Render(ui)
}

// renderSummary is the dashboard line: totals and group counts.
func (m Model) renderSummary() string {
	s := m.ws.Dashboard.Summary()
	parts := []string{
		plural(s.Markers, "marker"),
		fmt.Sprintf("%d stacked in %d", s.GroupedMarkers, s.CoordinateGroups),
		plural(s.NamedGroups, "group"),
	}
	if len(s.Types) > 0 {
		top := s.Types[0]
		parts = append(parts, fmt.Sprintf("top: %s×%d", top.Type, top.Count))
	}
	if !m.ws.Grouping.Enabled() {
		parts = append(parts, "grouping off")
	}
	return dimStyle.Render("│ " + strings.Join(parts, " · "))
}

func (m Model) renderHelp() string {
	if !m.helpVisible {
		return ""
	}
	keys := []string{
		"↑↓←→ pan",
		"+/- zoom",
		"Tab sidebar",
		"m marker",
		"x delete",
		"g grouping",
		"s snapshot",
		"b browse",
		"a attrs",
		"/ search",
		"f filter",
		"n group",
		"p paste",
		"i inspect",
		"e export",
		"q quit",
	}
	return dimStyle.Render("  " + strings.Join(keys, "  "))
}
