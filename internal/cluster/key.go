// Package cluster groups markers that share a geographic position and lays
// out expanded groups around their anchor.
package cluster

import (
	"fmt"
	"math"
	"sort"

	"geomap/internal/geom"
)

// DefaultEpsilon is roughly 0.1 m at the equator.
const DefaultEpsilon = 1e-6

// Key identifies a coordinate bucket.
type Key string

// Quantize rounds lat/lng to the nearest multiple of eps and formats both with
// eight decimals. Non-positive eps falls back to DefaultEpsilon.
func Quantize(lat, lng, eps float64) Key {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	q := func(v float64) float64 {
		r := math.Round(v/eps) * eps
		if r == 0 {
			r = 0 // drop negative zero
		}
		return r
	}
	return Key(fmt.Sprintf("%.8f,%.8f", q(lat), q(lng)))
}

func keyOf(ll geom.LatLng, eps float64) Key { return Quantize(ll.Lat, ll.Lng, eps) }

// Index maps coordinate keys to groups.
type Index struct {
	groups map[Key]*Group
}

func NewIndex() *Index { return &Index{groups: make(map[Key]*Group)} }

// LookupOrCreate returns the group for key, calling create when there is none.
func (ix *Index) LookupOrCreate(key Key, create func() *Group) (*Group, bool) {
	if g, ok := ix.groups[key]; ok {
		return g, false
	}
	g := create()
	ix.groups[key] = g
	return g, true
}

func (ix *Index) Get(key Key) (*Group, bool) {
	g, ok := ix.groups[key]
	return g, ok
}

func (ix *Index) Remove(key Key) { delete(ix.groups, key) }

func (ix *Index) Len() int { return len(ix.groups) }

// Groups returns every group ordered by key.
func (ix *Index) Groups() []*Group {
	keys := make([]Key, 0, len(ix.groups))
	for k := range ix.groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]*Group, 0, len(keys))
	for _, k := range keys {
		out = append(out, ix.groups[k])
	}
	return out
}

func (ix *Index) reset() { ix.groups = make(map[Key]*Group) }
