package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
)

// ParsedFeature is the transient record produced by every format parser:
// one geometry, its attribute map and, when a sidecar declared one, the
// source SRID. Zero SRID means unknown; the pipeline defaults to WGS84.
type ParsedFeature struct {
	Geometry   orb.Geometry
	Properties map[string]any
	SourceSRID int
}

// ParseFile dispatches raw upload bytes to the parser matching the file
// extension. Column hints only apply to delimited text.
func ParseFile(fileName string, data []byte, latColumn, lngColumn string) ([]ParsedFeature, error) {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".geojson", ".json":
		return ParseGeoJSON(data)
	case ".csv":
		return ParseCSV(data, latColumn, lngColumn)
	case ".zip":
		return ParseShapefileZip(data)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", fileName)
	}
}
