package geom

import "github.com/paulmach/orb"

// Paths flattens a geometry into drawable polylines. Rings are returned
// closed; points yield single-vertex paths.
func Paths(g orb.Geometry) []orb.LineString {
	var out []orb.LineString
	var walk func(g orb.Geometry)
	walk = func(g orb.Geometry) {
		switch v := g.(type) {
		case orb.Point:
			out = append(out, orb.LineString{v})
		case orb.MultiPoint:
			for _, p := range v {
				out = append(out, orb.LineString{p})
			}
		case orb.LineString:
			out = append(out, v)
		case orb.MultiLineString:
			for _, ls := range v {
				out = append(out, ls)
			}
		case orb.Ring:
			out = append(out, closeRing(v))
		case orb.Polygon:
			for _, r := range v {
				out = append(out, closeRing(r))
			}
		case orb.MultiPolygon:
			for _, p := range v {
				walk(p)
			}
		case orb.Collection:
			for _, sub := range v {
				walk(sub)
			}
		case orb.Bound:
			walk(v.ToPolygon())
		}
	}
	walk(g)
	return out
}

func closeRing(r orb.Ring) orb.LineString {
	ls := orb.LineString(r)
	if len(ls) > 1 && !ls[0].Equal(ls[len(ls)-1]) {
		ls = append(append(orb.LineString{}, ls...), ls[0])
	}
	return ls
}
