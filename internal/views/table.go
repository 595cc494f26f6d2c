package views

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"geomap/internal/geom"
)

// Source lists the live markers, each once.
type Source interface {
	LiveMarkers() []*geom.Marker
}

// BaseColumns always lead the table.
var BaseColumns = []string{"name", "type", "address", "lat", "lng"}

type Row struct {
	ID     string
	Values []string
	props  map[string]any
	lat    float64
	lng    float64
}

type Table struct {
	src     Source
	columns []string
	rows    []Row
	filter  *vm.Program
	query   string
	expr    string
	log     *slog.Logger
}

func NewTable(src Source, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Table{src: src, columns: BaseColumns, log: logger}
}

// Refresh rebuilds the rows. Extra property keys are appended to the base
// columns in first-seen order.
func (t *Table) Refresh() {
	markers := t.src.LiveMarkers()
	cols := append([]string(nil), BaseColumns...)
	seen := map[string]bool{}
	for _, c := range cols {
		seen[c] = true
	}
	for _, m := range markers {
		for _, k := range sortedKeys(m.Props) {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	rows := make([]Row, 0, len(markers))
	for _, m := range markers {
		vals := make([]string, len(cols))
		for i, c := range cols {
			switch c {
			case "lat":
				vals[i] = fmt.Sprintf("%.6f", m.Origin.Lat)
			case "lng":
				vals[i] = fmt.Sprintf("%.6f", m.Origin.Lng)
			default:
				vals[i] = cell(m.Props[c])
			}
		}
		rows = append(rows, Row{ID: m.ID, Values: vals, props: m.Props, lat: m.Origin.Lat, lng: m.Origin.Lng})
	}
	t.columns = cols
	t.rows = rows
}

func (t *Table) ClearData() {
	t.columns = BaseColumns
	t.rows = nil
}

func (t *Table) Reset() { t.ClearData() }

func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Rows returns the rows passing the search query and the filter.
func (t *Table) Rows() []Row {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if !t.matchQuery(r) || !t.matchFilter(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Len is the unfiltered row count.
func (t *Table) Len() int { return len(t.rows) }

// Search keeps rows whose name, type or address contains query,
// case-insensitively. An empty query matches everything.
func (t *Table) Search(query string) {
	t.query = strings.ToLower(strings.TrimSpace(query))
}

// SetFilter compiles a boolean expression evaluated per row against its
// properties plus id, lat and lng. An empty expression removes the filter.
func (t *Table) SetFilter(expression string) error {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		t.filter, t.expr = nil, ""
		return nil
	}
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return fmt.Errorf("compile filter %q: %w", expression, err)
	}
	t.filter, t.expr = program, expression
	return nil
}

func (t *Table) Filter() string { return t.expr }

func (t *Table) matchQuery(r Row) bool {
	if t.query == "" {
		return true
	}
	for _, k := range []string{"name", "type", "address"} {
		if strings.Contains(strings.ToLower(geom.StringProp(r.props, k)), t.query) {
			return true
		}
	}
	return false
}

func (t *Table) matchFilter(r Row) bool {
	if t.filter == nil {
		return true
	}
	env := make(map[string]any, len(r.props)+3)
	for k, v := range r.props {
		env[k] = v
	}
	env["id"] = r.ID
	env["lat"] = r.lat
	env["lng"] = r.lng
	out, err := expr.Run(t.filter, env)
	if err != nil {
		t.log.Debug("table_filter_eval_failed", "id", r.ID, "expr", t.expr, "err", err)
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		bs, _ := json.Marshal(t)
		return string(bs)
	}
}

// sortedKeys orders one marker's keys; maps carry no insertion order.
func sortedKeys(props map[string]any) []string {
	return slices.Sorted(maps.Keys(props))
}
