package layers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mdung/gis-analytics-platform/internal/geometry"
)

// GeometryTypeMatches reports whether a geometry belongs to the family the
// layer declares. Multi variants count as their base family.
func GeometryTypeMatches(layerType string, g orb.Geometry) bool {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return layerType == GeometryPoint
	case orb.LineString, orb.MultiLineString:
		return layerType == GeometryLine
	case orb.Polygon, orb.MultiPolygon:
		return layerType == GeometryPolygon
	default:
		return false
	}
}

// PrepareFeatureGeometry runs client-supplied GeoJSON through the same
// normalize, validate and bounds checks the ingestion pipeline applies, plus
// the layer's geometry-type constraint. It returns the normalized GeoJSON
// ready for persistence. An empty layerType skips the type constraint.
func PrepareFeatureGeometry(raw json.RawMessage, layerType string) (json.RawMessage, error) {
	decoded, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}

	g := geometry.Normalize(decoded.Geometry())
	if ok, reason := geometry.Validate(g); !ok {
		return nil, fmt.Errorf("invalid geometry: %s", reason)
	}
	if !geometry.IsWithinBounds(g) {
		return nil, errors.New("geometry outside WGS84 bounds")
	}
	if layerType != "" && !GeometryTypeMatches(layerType, g) {
		return nil, fmt.Errorf("geometry type %s does not match layer type %s", g.GeoJSONType(), layerType)
	}
	return json.Marshal(geojson.NewGeometry(g))
}
