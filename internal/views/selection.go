// Package views holds the state derived from the live markers: the current
// selection, the attributes table and the dashboard summary. Each view can
// drop its cache (Reset) and rebuild it (Refresh).
package views

import (
	"log/slog"
	"sort"
)

// Locator finds markers for the selection. Reveal makes a marker visible
// (expanding its group if needed) and reports whether it exists.
type Locator interface {
	Reveal(id string) bool
	Exists(id string) bool
}

type Change struct {
	Current  string
	Previous string
}

type Selection struct {
	loc       Locator
	current   string
	listeners map[int]func(Change)
	nextID    int
	log       *slog.Logger
}

func NewSelection(loc Locator, logger *slog.Logger) *Selection {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selection{loc: loc, listeners: map[int]func(Change){}, log: logger}
}

func (s *Selection) Selected() string { return s.current }

func (s *Selection) IsSelected(id string) bool { return id != "" && s.current == id }

// Select makes id current. Selecting the current id again does nothing.
func (s *Selection) Select(id string) {
	if id == "" {
		s.Deselect()
		return
	}
	if s.current == id {
		return
	}
	prev := s.current
	s.current = id
	s.log.Debug("selection_changed", "current", id, "previous", prev)
	s.notify(Change{Current: id, Previous: prev})
}

func (s *Selection) Deselect() {
	if s.current == "" {
		return
	}
	prev := s.current
	s.current = ""
	s.notify(Change{Previous: prev})
}

// SelectByID reveals the marker first so a collapsed group opens.
func (s *Selection) SelectByID(id string) bool {
	if s.loc == nil || !s.loc.Reveal(id) {
		return false
	}
	s.Select(id)
	return true
}

// OnChange registers fn and returns a function that removes it.
func (s *Selection) OnChange(fn func(Change)) func() {
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

func (s *Selection) notify(c Change) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		s.listeners[id](c)
	}
}

func (s *Selection) Clear() { s.Deselect() }

func (s *Selection) Reset() { s.Deselect() }

// Refresh drops a selection whose marker is gone.
func (s *Selection) Refresh() {
	if s.current != "" && (s.loc == nil || !s.loc.Exists(s.current)) {
		s.Deselect()
	}
}
