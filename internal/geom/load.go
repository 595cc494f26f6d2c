package geom

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile dispatches on the file extension.
func LoadFile(path string) (Data, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return LoadGeo(path)
	case ".csv":
		return LoadCSV(path)
	case ".kml":
		return LoadKML(path)
	case ".wkt", ".txt":
		b, err := os.ReadFile(path)
		if err != nil {
			return Data{}, err
		}
		return ParseWKTData(string(b))
	}
	return Data{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
}

// Supported reports whether LoadFile understands the extension of path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json", ".csv", ".kml", ".wkt", ".txt":
		return true
	}
	return false
}
