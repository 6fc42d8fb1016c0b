package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// ParseGeoJSON accepts either a FeatureCollection or a single Feature and
// yields one ParsedFeature per member. Members without a geometry are
// skipped, never fatal.
func ParseGeoJSON(data []byte) ([]ParsedFeature, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("invalid FeatureCollection: %w", err)
		}
		out := make([]ParsedFeature, 0, len(fc.Features))
		for _, f := range fc.Features {
			if pf, ok := fromGeoJSONFeature(f); ok {
				out = append(out, pf)
			}
		}
		return out, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("invalid Feature: %w", err)
		}
		if pf, ok := fromGeoJSONFeature(f); ok {
			return []ParsedFeature{pf}, nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("GeoJSON root must be a Feature or FeatureCollection, got %q", head.Type)
	}
}

func fromGeoJSONFeature(f *geojson.Feature) (ParsedFeature, bool) {
	if f == nil || f.Geometry == nil {
		return ParsedFeature{}, false
	}

	props := make(map[string]any, len(f.Properties))
	for k, v := range f.Properties {
		props[k] = v
	}

	return ParsedFeature{Geometry: f.Geometry, Properties: props}, true
}
