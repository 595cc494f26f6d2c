// Package snapshot captures the editable state into labeled records and
// rebuilds the live state from them.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geomap/internal/cluster"
	"geomap/internal/errs"
	"geomap/internal/geom"
	"geomap/internal/namedgroup"
)

const holdName = "_edit_backup_"

type Surface interface {
	cluster.Surface
	Clear()
}

// Grouping is the spatial grouping engine.
type Grouping interface {
	AddMarker(m *geom.Marker) bool
	Members() []*geom.Marker
	Clear()
}

type Camera interface {
	View() geom.Camera
	SetView(c geom.Camera)
}

type NamedGroups interface {
	Snapshot() map[string]namedgroup.Group
	Clear()
	Bind(groups map[string]namedgroup.Group, resolve func(id string) (string, bool)) int
}

// View is a dependent view: Reset drops cached state, Refresh rebuilds it.
type View interface {
	Reset()
	Refresh()
}

// Deps are the live components a Store reads and rebuilds.
type Deps struct {
	Surface  Surface
	Grouping Grouping
	Camera   Camera
	Named    NamedGroups
	Views    []View
}

// Report summarises one restore.
type Report struct {
	Markers int
	Shapes  int
	// Skipped counts malformed features.
	Skipped int
	// Dropped counts named-group members that did not resolve.
	Dropped int
}

type browseState struct {
	hold        *Record
	prevCurrent string
}

type Store struct {
	deps    Deps
	repo    Repository
	records map[string]*Record
	current string
	browse  *browseState
	now     func() time.Time
	log     *slog.Logger
}

func NewStore(repo Repository, deps Deps, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		deps:    deps,
		repo:    repo,
		records: make(map[string]*Record),
		now:     time.Now,
		log:     logger,
	}
}

// Load replaces the in-memory records with the persisted ones.
func (s *Store) Load(ctx context.Context) error {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", errs.Storage("list", err))
	}
	cur, err := s.repo.Current(ctx)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", errs.Storage("current", err))
	}
	s.records = make(map[string]*Record, len(recs))
	for _, r := range recs {
		s.records[r.ID] = r
	}
	s.current = ""
	if _, ok := s.records[cur]; ok {
		s.current = cur
	}
	s.log.Info("snapshots_loaded", "count", len(s.records), "current", s.current)
	return nil
}

// Capture records the live state under label and marks it current. When
// persisting fails the record is still kept and returned together with a
// *errs.StorageError.
func (s *Store) Capture(ctx context.Context, label string) (Record, error) {
	if s.browse != nil {
		return Record{}, fmt.Errorf("capture snapshot: %w", errs.ErrReadOnly)
	}
	if label == "" {
		label = s.now().Format("2006-01-02 15:04:05")
	}
	rec := s.build(label)
	s.records[rec.ID] = rec
	s.current = rec.ID
	s.log.Info("snapshot_captured", "id", rec.ID, "name", label, "features", rec.FeatureCount())
	if err := s.repo.Put(ctx, rec); err != nil {
		s.log.Error("snapshot_persist_failed", "id", rec.ID, "err", err)
		return *rec, fmt.Errorf("capture snapshot %q: %w", label, errs.Storage("put", err))
	}
	if err := s.repo.SetCurrent(ctx, rec.ID); err != nil {
		return *rec, fmt.Errorf("capture snapshot %q: %w", label, errs.Storage("set current", err))
	}
	return *rec, nil
}

// build walks grouped markers first, so members keep their group order,
// then everything else on the surface. Markers are written at their
// canonical positions.
func (s *Store) build(label string) *Record {
	seen := make(map[string]bool)
	var features FeatureSet
	add := func(id string, f *geojson.Feature) {
		if seen[id] {
			return
		}
		seen[id] = true
		b, err := json.Marshal(f)
		if err != nil {
			s.log.Warn("snapshot_encode_feature_failed", "id", id, "err", err)
			return
		}
		features = append(features, b)
	}
	for _, m := range s.deps.Grouping.Members() {
		add(m.ID, geom.MarkerToFeature(m))
	}
	for _, l := range s.deps.Surface.Layers() {
		switch v := l.(type) {
		case *geom.Marker:
			add(v.ID, geom.MarkerToFeature(v))
		case *geom.Shape:
			add(v.ID, geom.ShapeToFeature(v))
		}
	}
	return &Record{
		ID:        "snap_" + uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Name:      label,
		Layers: []Layer{{
			ID:       MainLayerID,
			Name:     MainLayerName,
			Visible:  true,
			Features: features,
		}},
		NamedGroups: s.deps.Named.Snapshot(),
		View:        viewStateOf(s.deps.Camera.View()),
	}
}

// Restore replaces the live state with record id. An unknown id changes
// nothing.
func (s *Store) Restore(ctx context.Context, id string) (Report, error) {
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return Report{}, fmt.Errorf("restore snapshot %q: %w", id, err)
	}
	rep := s.apply(rec)
	s.current = id
	err = s.repo.SetCurrent(ctx, id)
	s.refresh()
	s.log.Info("snapshot_restored", "id", id, "markers", rep.Markers, "shapes", rep.Shapes,
		"skipped", rep.Skipped, "dropped", rep.Dropped)
	if err != nil {
		return rep, fmt.Errorf("restore snapshot %q: %w", id, errs.Storage("set current", err))
	}
	return rep, nil
}

func (s *Store) reset() {
	s.deps.Grouping.Clear()
	s.deps.Surface.Clear()
	s.deps.Named.Clear()
	for _, v := range s.deps.Views {
		v.Reset()
	}
}

func (s *Store) refresh() {
	for _, v := range s.deps.Views {
		v.Refresh()
	}
}

// apply resets the live state and replays rec. Markers get fresh ids and go
// through the grouping engine so groups are derived from coordinates alone.
// Named groups are bound afterwards through the old-to-new id table.
func (s *Store) apply(rec *Record) Report {
	var rep Report
	s.reset()
	remap := make(map[string]string)
	for _, layer := range rec.Layers {
		for i, raw := range layer.Features {
			if err := s.replay(raw, remap, &rep); err != nil {
				rep.Skipped++
				s.log.Warn("snapshot_restore_skip_feature", "snapshot", rec.ID, "layer", layer.ID, "index", i, "err", err)
			}
		}
	}
	s.deps.Camera.SetView(rec.View.Camera())

	live := make(map[string]bool)
	for _, m := range s.deps.Grouping.Members() {
		live[m.ID] = true
	}
	for _, l := range s.deps.Surface.Layers() {
		if m, ok := l.(*geom.Marker); ok {
			live[m.ID] = true
		}
	}
	rep.Dropped = s.deps.Named.Bind(rec.NamedGroups, func(old string) (string, bool) {
		id, ok := remap[old]
		return id, ok && live[id]
	})
	return rep
}

func (s *Store) replay(raw json.RawMessage, remap map[string]string, rep *Report) error {
	f, err := geojson.UnmarshalFeature(raw)
	if err != nil {
		return err
	}
	if f.Geometry == nil {
		return errors.New("feature has no geometry")
	}
	old := geom.FeatureID(f)
	if _, ok := f.Geometry.(orb.Point); ok {
		m, err := geom.MarkerFromFeature(f)
		if err != nil {
			return err
		}
		m.ID = uuid.NewString()
		if old != "" {
			remap[old] = m.ID
		}
		if !s.deps.Grouping.AddMarker(m) {
			s.deps.Surface.AddLayer(m)
		}
		rep.Markers++
		return nil
	}
	sh, err := geom.ShapeFromFeature(f)
	if err != nil {
		return err
	}
	sh.ID = uuid.NewString()
	s.deps.Surface.AddLayer(sh)
	rep.Shapes++
	return nil
}

// lookup finds id in memory, then in the repository for records written
// after Load.
func (s *Store) lookup(ctx context.Context, id string) (*Record, error) {
	if rec, ok := s.records[id]; ok {
		return rec, nil
	}
	if id == "" {
		return nil, errs.ErrNotFound
	}
	rec, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errs.Storage("get", err)
	}
	if !ok {
		return nil, errs.ErrNotFound
	}
	s.records[id] = rec
	s.log.Info("snapshot_fetched", "id", id)
	return rec, nil
}

// Delete removes record id. Deleting the current record unsets current.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("delete snapshot %q: %w", id, errs.ErrNotFound)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete snapshot %q: %w", id, errs.Storage("delete", err))
	}
	delete(s.records, id)
	if s.browse != nil && s.browse.prevCurrent == id {
		s.browse.prevCurrent = ""
	}
	if s.current == id {
		s.current = ""
		if err := s.repo.SetCurrent(ctx, ""); err != nil {
			return fmt.Errorf("delete snapshot %q: %w", id, errs.Storage("set current", err))
		}
	}
	s.log.Info("snapshot_deleted", "id", id)
	return nil
}

func (s *Store) Rename(ctx context.Context, id, label string) error {
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("rename snapshot %q: %w", id, errs.ErrNotFound)
	}
	if label == "" {
		return fmt.Errorf("rename snapshot %q: empty name", id)
	}
	cp := *rec
	cp.Name = label
	if err := s.repo.Put(ctx, &cp); err != nil {
		return fmt.Errorf("rename snapshot %q: %w", id, errs.Storage("put", err))
	}
	s.records[id] = &cp
	return nil
}

func (s *Store) Get(id string) (Record, bool) {
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns records newest first.
func (s *Store) List() []Record {
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Current returns the current record id, or "".
func (s *Store) Current() string { return s.current }

func (s *Store) Browsing() bool { return s.browse != nil }

// EnterBrowse holds the live state in memory and previews record id. An
// empty id previews the current record, or the newest one.
func (s *Store) EnterBrowse(ctx context.Context, id string) (Report, error) {
	if s.browse != nil {
		return s.Restore(ctx, id)
	}
	if id == "" {
		id = s.current
		if _, ok := s.records[id]; !ok {
			if list := s.List(); len(list) > 0 {
				id = list[0].ID
			}
		}
	}
	if _, err := s.lookup(ctx, id); err != nil {
		return Report{}, fmt.Errorf("browse snapshot %q: %w", id, err)
	}
	s.browse = &browseState{hold: s.build(holdName), prevCurrent: s.current}
	s.log.Info("browse_entered", "id", id)
	return s.Restore(ctx, id)
}

// Browse previews another record without taking a new hold.
func (s *Store) Browse(ctx context.Context, id string) (Report, error) {
	if s.browse == nil {
		return s.EnterBrowse(ctx, id)
	}
	return s.Restore(ctx, id)
}

// ExitBrowse leaves browse mode. With commit the previewed state stays;
// otherwise the held state comes back and current reverts.
func (s *Store) ExitBrowse(ctx context.Context, commit bool) error {
	b := s.browse
	if b == nil {
		return nil
	}
	s.browse = nil
	if commit {
		s.log.Info("browse_committed", "id", s.current)
		return nil
	}
	s.apply(b.hold)
	s.current = b.prevCurrent
	err := s.repo.SetCurrent(ctx, s.current)
	s.refresh()
	s.log.Info("browse_discarded")
	if err != nil {
		return fmt.Errorf("exit browse: %w", errs.Storage("set current", err))
	}
	return nil
}
