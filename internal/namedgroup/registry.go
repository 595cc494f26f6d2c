// Package namedgroup keeps user-curated marker sets. They are independent of
// spatial grouping: a marker may sit in several named groups.
package namedgroup

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"geomap/internal/errs"
	"geomap/internal/geom"
)

const DefaultColor = "#ff6b6b"

type Group struct {
	ID        string    `json:"groupId"`
	Name      string    `json:"groupName"`
	MemberIDs []string  `json:"memberIds"`
	Color     string    `json:"color"`
	Created   time.Time `json:"created"`
}

func (g Group) Has(markerID string) bool { return slices.Contains(g.MemberIDs, markerID) }

func (g Group) clone() Group {
	g.MemberIDs = slices.Clone(g.MemberIDs)
	return g
}

// Lookup resolves a live marker by id.
type Lookup func(id string) (*geom.Marker, bool)

type Registry struct {
	groups map[string]*Group
	order  []string
	now    func() time.Time
	log    *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{groups: make(map[string]*Group), now: time.Now, log: logger}
}

// Create adds a group. Duplicate member ids are dropped.
func (r *Registry) Create(name, color string, memberIDs []string) (Group, error) {
	if name == "" {
		return Group{}, fmt.Errorf("create group: empty name")
	}
	if len(memberIDs) == 0 {
		return Group{}, fmt.Errorf("create group %q: no members", name)
	}
	if color == "" {
		color = DefaultColor
	}
	g := &Group{ID: "grp_" + uuid.NewString(), Name: name, Color: color, Created: r.now().UTC()}
	for _, id := range memberIDs {
		if !slices.Contains(g.MemberIDs, id) {
			g.MemberIDs = append(g.MemberIDs, id)
		}
	}
	r.put(g)
	r.log.Info("named_group_created", "id", g.ID, "name", name, "members", len(g.MemberIDs))
	return g.clone(), nil
}

func (r *Registry) put(g *Group) {
	if _, ok := r.groups[g.ID]; !ok {
		r.order = append(r.order, g.ID)
	}
	r.groups[g.ID] = g
}

func (r *Registry) Delete(id string) error {
	if _, ok := r.groups[id]; !ok {
		return fmt.Errorf("delete group %q: %w", id, errs.ErrNotFound)
	}
	delete(r.groups, id)
	r.order = slices.DeleteFunc(r.order, func(x string) bool { return x == id })
	return nil
}

func (r *Registry) Rename(id, name string) error {
	g, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("rename group %q: %w", id, errs.ErrNotFound)
	}
	g.Name = name
	return nil
}

func (r *Registry) AddMember(id, markerID string) error {
	g, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("add member to %q: %w", id, errs.ErrNotFound)
	}
	if !g.Has(markerID) {
		g.MemberIDs = append(g.MemberIDs, markerID)
	}
	return nil
}

func (r *Registry) RemoveMember(id, markerID string) error {
	g, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("remove member from %q: %w", id, errs.ErrNotFound)
	}
	g.MemberIDs = slices.DeleteFunc(g.MemberIDs, func(x string) bool { return x == markerID })
	return nil
}

// Forget drops a deleted marker from every group.
func (r *Registry) Forget(markerID string) {
	for _, g := range r.groups {
		g.MemberIDs = slices.DeleteFunc(g.MemberIDs, func(x string) bool { return x == markerID })
	}
}

func (r *Registry) Get(id string) (Group, bool) {
	g, ok := r.groups[id]
	if !ok {
		return Group{}, false
	}
	return g.clone(), true
}

// List returns groups in creation order.
func (r *Registry) List() []Group {
	out := make([]Group, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.groups[id].clone())
	}
	return out
}

func (r *Registry) GroupsFor(markerID string) []Group {
	var out []Group
	for _, id := range r.order {
		if g := r.groups[id]; g.Has(markerID) {
			out = append(out, g.clone())
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.groups) }

func (r *Registry) Clear() {
	clear(r.groups)
	r.order = nil
}

// Snapshot copies every group keyed by id.
func (r *Registry) Snapshot() map[string]Group {
	out := make(map[string]Group, len(r.groups))
	for id, g := range r.groups {
		out[id] = g.clone()
	}
	return out
}

// Bind installs groups from a snapshot. Each member id is passed through
// resolve, which maps it to a live marker id; members that do not resolve
// are dropped. Binding the same groups twice gives the same result. It
// returns the number of dropped members.
func (r *Registry) Bind(groups map[string]Group, resolve func(id string) (string, bool)) int {
	list := make([]Group, 0, len(groups))
	for id, g := range groups {
		if g.ID == "" {
			g.ID = id
		}
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Created.Equal(list[j].Created) {
			return list[i].Created.Before(list[j].Created)
		}
		return list[i].ID < list[j].ID
	})
	dropped := 0
	for _, g := range list {
		bound := g.clone()
		bound.MemberIDs = bound.MemberIDs[:0]
		for _, old := range g.MemberIDs {
			id, ok := resolve(old)
			if !ok {
				dropped++
				r.log.Warn("named_group_member_unresolved", "group", g.ID, "member", old)
				continue
			}
			if !slices.Contains(bound.MemberIDs, id) {
				bound.MemberIDs = append(bound.MemberIDs, id)
			}
		}
		if bound.Color == "" {
			bound.Color = DefaultColor
		}
		r.put(&bound)
	}
	return dropped
}

// Bounds is the extent of a group's live members at their canonical
// positions, used to focus the map on the group.
func (r *Registry) Bounds(id string, lookup Lookup) (geom.BBox, error) {
	g, ok := r.groups[id]
	if !ok {
		return geom.BBox{}, fmt.Errorf("group bounds %q: %w", id, errs.ErrNotFound)
	}
	var b geom.BBox
	for _, mid := range g.MemberIDs {
		if m, ok := lookup(mid); ok {
			b.Extend(m.Origin.Lng, m.Origin.Lat)
		}
	}
	return b, nil
}

// Export encodes the group's live members as a FeatureCollection carrying
// the group identity in its top-level properties.
func (r *Registry) Export(id string, lookup Lookup) (*geojson.FeatureCollection, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("export group %q: %w", id, errs.ErrNotFound)
	}
	fc := geojson.NewFeatureCollection()
	for _, mid := range g.MemberIDs {
		if m, ok := lookup(mid); ok {
			fc.Append(geom.MarkerToFeature(m))
		}
	}
	fc.ExtraMembers = geojson.Properties{
		"properties": map[string]any{
			"groupId":    g.ID,
			"groupName":  g.Name,
			"exportedAt": r.now().UTC().Format(time.RFC3339),
		},
	}
	return fc, nil
}

type Summary struct {
	ID      string
	Name    string
	Members int
	Color   string
}

func (r *Registry) Stats() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		g := r.groups[id]
		out = append(out, Summary{ID: g.ID, Name: g.Name, Members: len(g.MemberIDs), Color: g.Color})
	}
	return out
}
