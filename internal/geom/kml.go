package geom

import (
	"encoding/xml"
	"errors"
	"os"
	"strconv"
	"strings"
)

// LoadKML reads Placemark points from a KML file.
func LoadKML(path string) (Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}
	return ParseKML(b)
}

// ParseKML extracts Placemark > Point coordinates. KML coordinates are
// "lon,lat[,alt]"; altitude is ignored. The placemark name and description
// become properties.
func ParseKML(b []byte) (Data, error) {
	type kmlPoint struct {
		Coordinates string `xml:"coordinates"`
	}
	type kmlPlacemark struct {
		Name        string    `xml:"name"`
		Description string    `xml:"description"`
		Point       *kmlPoint `xml:"Point"`
	}
	type kmlFolder struct {
		Placemarks []kmlPlacemark `xml:"Placemark"`
	}
	type kmlDoc struct {
		Placemarks []kmlPlacemark `xml:"Placemark"`
		Document   struct {
			Placemarks []kmlPlacemark `xml:"Placemark"`
			Folders    []kmlFolder    `xml:"Folder"`
		} `xml:"Document"`
	}

	var doc kmlDoc
	if err := xml.Unmarshal(b, &doc); err != nil {
		return Data{}, err
	}
	all := append([]kmlPlacemark{}, doc.Placemarks...)
	all = append(all, doc.Document.Placemarks...)
	for _, f := range doc.Document.Folders {
		all = append(all, f.Placemarks...)
	}

	var d Data
	for _, pm := range all {
		if pm.Point == nil {
			continue
		}
		for _, tuple := range strings.Fields(pm.Point.Coordinates) {
			vals := strings.Split(tuple, ",")
			if len(vals) < 2 {
				continue
			}
			lon, err1 := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
			lat, err2 := strconv.ParseFloat(strings.TrimSpace(vals[1]), 64)
			if err1 != nil || err2 != nil {
				continue
			}
			props := map[string]any{}
			if n := strings.TrimSpace(pm.Name); n != "" {
				props["name"] = n
			}
			if desc := strings.TrimSpace(pm.Description); desc != "" {
				props["description"] = desc
			}
			d.addMarker(NewMarker(LatLng{Lat: lat, Lng: lon}, props))
		}
	}
	if d.Empty() {
		return Data{}, errors.New("kml: no points found")
	}
	return d, nil
}
