package tui

import (
	"strconv"

	table "github.com/charmbracelet/bubbles/table"
)

const maxColW = 24

// refreshAttrs rebuilds the table from the workspace's attribute view,
// honoring the active search and filter.
func (m *Model) refreshAttrs() {
	cols := m.ws.Table.Columns()
	rows := m.ws.Table.Rows()
	if len(rows) == 0 {
		// an empty table would render a header only
		m.showAttrs = false
		m.status = "no markers match"
		return
	}
	tcols := make([]table.Column, 0, len(cols)+1)
	tcols = append(tcols, table.Column{Title: "#", Width: 4})
	for _, c := range cols {
		tcols = append(tcols, table.Column{Title: c, Width: min(len(c)+2, maxColW)})
	}
	for _, r := range rows {
		for i, v := range r.Values {
			if w := len([]rune(v)) + 2; w > tcols[i+1].Width {
				tcols[i+1].Width = min(w, maxColW)
			}
		}
	}
	trows := make([]table.Row, 0, len(rows))
	for i, r := range rows {
		cells := make([]string, 0, len(tcols))
		cells = append(cells, strconv.Itoa(i+1))
		for j, v := range r.Values {
			cells = append(cells, truncate(v, tcols[j+1].Width))
		}
		trows = append(trows, table.Row(cells))
	}
	// clear rows first so SetColumns never sees mismatched widths
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(trows)
}

// selectedRowID maps the table cursor back to a marker id.
func (m Model) selectedRowID() (string, bool) {
	rows := m.ws.Table.Rows()
	i := m.tbl.Cursor()
	if i < 0 || i >= len(rows) {
		return "", false
	}
	return rows[i].ID, true
}
