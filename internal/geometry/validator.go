package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"
)

// Coordinate precision applied during normalization. Seven decimal places is
// roughly centimeter resolution at the equator, below the noise floor of the
// data sources we ingest.
const precisionFactor = 1e7

// Validate applies OGC validity checks: finite coordinates, minimum vertex
// counts and closed rings are checked structurally, then polygonal geometries
// go through GEOS for the full topological test (self-intersections, hole
// containment). It never mutates its input. The returned reason is empty for
// valid geometries.
func Validate(g orb.Geometry) (bool, string) {
	if g == nil {
		return false, "geometry is nil"
	}

	switch v := g.(type) {
	case orb.Point:
		return validatePoint(v)
	case orb.MultiPoint:
		if len(v) == 0 {
			return false, "multipoint has no points"
		}
		for _, p := range v {
			if ok, reason := validatePoint(p); !ok {
				return false, reason
			}
		}
		return true, ""
	case orb.LineString:
		return validateLine(v)
	case orb.MultiLineString:
		if len(v) == 0 {
			return false, "multilinestring has no members"
		}
		for _, ls := range v {
			if ok, reason := validateLine(ls); !ok {
				return false, reason
			}
		}
		return true, ""
	case orb.Polygon:
		if ok, reason := validatePolygonStructure(v); !ok {
			return false, reason
		}
		return geosValid(v)
	case orb.MultiPolygon:
		if len(v) == 0 {
			return false, "multipolygon has no members"
		}
		for _, poly := range v {
			if ok, reason := validatePolygonStructure(poly); !ok {
				return false, reason
			}
		}
		return geosValid(v)
	default:
		return false, fmt.Sprintf("unsupported geometry type %T", g)
	}
}

func validatePoint(p orb.Point) (bool, string) {
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
		return false, "point has non-finite coordinates"
	}
	return true, ""
}

func validateLine(ls orb.LineString) (bool, string) {
	if len(ls) < 2 {
		return false, "linestring has fewer than 2 points"
	}
	for _, p := range ls {
		if ok, reason := validatePoint(p); !ok {
			return false, reason
		}
	}
	return true, ""
}

func validatePolygonStructure(poly orb.Polygon) (bool, string) {
	if len(poly) == 0 {
		return false, "polygon has no rings"
	}
	for i, ring := range poly {
		if len(ring) < 4 {
			return false, fmt.Sprintf("ring %d has fewer than 4 points", i)
		}
		for _, p := range ring {
			if ok, reason := validatePoint(p); !ok {
				return false, reason
			}
		}
		if ring[0] != ring[len(ring)-1] {
			return false, fmt.Sprintf("ring %d is not closed", i)
		}
	}
	return true, ""
}

func geosValid(g orb.Geometry) (bool, string) {
	geom, err := toGeos(g)
	if err != nil {
		return false, "geometry not decodable: " + err.Error()
	}
	defer geom.Destroy()

	if !geom.IsValid() {
		return false, geom.IsValidReason()
	}
	return true, ""
}

// Normalize repairs what it can: coordinates are snapped to a fixed precision,
// exact duplicate consecutive vertices are dissolved, polygon rings are
// re-closed after snapping, and polygonal geometries that are still
// topologically invalid go through a zero-width buffer (MakeValid as the
// heavier fallback) to resolve self-intersections. Normalize is idempotent;
// callers re-validate the result and decide whether to skip geometries that
// remain invalid.
func Normalize(g orb.Geometry) orb.Geometry {
	snapped := snapGeometry(g)

	switch snapped.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return repairPolygonal(snapped)
	default:
		return snapped
	}
}

// snapGeometry is the structural half of Normalize: precision snap, duplicate
// dissolve, ring re-close. No topology is touched.
func snapGeometry(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}

	switch v := g.(type) {
	case orb.Point:
		return snapPoint(v)
	case orb.MultiPoint:
		out := make(orb.MultiPoint, 0, len(v))
		for _, p := range v {
			out = append(out, snapPoint(p))
		}
		return out
	case orb.LineString:
		return normalizeLine(v)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, 0, len(v))
		for _, ls := range v {
			out = append(out, normalizeLine(ls))
		}
		return out
	case orb.Polygon:
		return normalizePolygon(v)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(v))
		for _, poly := range v {
			out = append(out, normalizePolygon(poly))
		}
		return out
	default:
		return g
	}
}

// repairPolygonal untangles self-intersecting polygons. The zero-width buffer
// resolves bowties and minor crossings; MakeValid handles what buffering
// cannot. A bowtie typically comes back as a MultiPolygon, which is the
// correct valid form of that shape.
func repairPolygonal(g orb.Geometry) orb.Geometry {
	geom, err := toGeos(g)
	if err != nil {
		return g
	}
	defer geom.Destroy()

	if geom.IsValid() {
		return g
	}

	repaired := geom.Buffer(0, 8)
	if repaired == nil || repaired.IsEmpty() || !repaired.IsValid() {
		if repaired != nil {
			repaired.Destroy()
		}
		repaired = geom.MakeValidWithParams(geos.MakeValidLinework, geos.MakeValidDiscardCollapsed)
		if repaired == nil {
			return g
		}
	}
	defer repaired.Destroy()

	out, err := fromGeos(repaired)
	if err != nil {
		return g
	}
	return snapGeometry(out)
}

func toGeos(g orb.Geometry) (*geos.Geom, error) {
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return nil, err
	}
	return geos.NewGeomFromGeoJSON(string(data))
}

func fromGeos(geom *geos.Geom) (orb.Geometry, error) {
	decoded, err := geojson.UnmarshalGeometry([]byte(geom.ToGeoJSON(-1)))
	if err != nil {
		return nil, err
	}
	return decoded.Geometry(), nil
}

func snapPoint(p orb.Point) orb.Point {
	return orb.Point{
		math.Round(p[0]*precisionFactor) / precisionFactor,
		math.Round(p[1]*precisionFactor) / precisionFactor,
	}
}

func normalizeLine(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(ls))
	for _, p := range ls {
		sp := snapPoint(p)
		if len(out) > 0 && out[len(out)-1] == sp {
			continue // dissolve exact duplicates introduced by snapping
		}
		out = append(out, sp)
	}
	return out
}

func normalizePolygon(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(poly))
	for _, ring := range poly {
		line := normalizeLine(orb.LineString(ring))
		if len(line) > 0 && line[0] != line[len(line)-1] {
			line = append(line, line[0])
		}
		out = append(out, orb.Ring(line))
	}
	return out
}

// IsWithinBounds reports whether the geometry's envelope lies entirely inside
// the WGS84 coordinate range.
func IsWithinBounds(g orb.Geometry) bool {
	if g == nil {
		return false
	}
	b := g.Bound()
	return b.Min[0] >= -180 && b.Max[0] <= 180 &&
		b.Min[1] >= -90 && b.Max[1] <= 90
}
