package spatial

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUnknownRelation = errors.New("unknown spatial relation")

// Relations accepted by QueryByRelation. They map one-to-one onto PostGIS
// predicates; anything else is rejected before touching SQL.
const (
	RelationIntersects = "intersects"
	RelationWithin     = "within"
	RelationContains   = "contains"
)

// Feature is a feature row with its geometry rendered as GeoJSON.
type Feature struct {
	ID         uuid.UUID       `json:"id"`
	LayerID    uuid.UUID       `json:"layer_id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// FeatureInput is one feature to persist: GeoJSON geometry plus attributes.
type FeatureInput struct {
	Geometry   json.RawMessage
	Properties json.RawMessage
}

// PointRow is a point feature projected to bare coordinates for the
// clustering and heat-grid engines.
type PointRow struct {
	ID  uuid.UUID
	Lng float64
	Lat float64
}

const featureColumns = "id, layer_id, ST_AsGeoJSON(geom) AS geometry, properties"

// Deleted features keep their rows as tombstones; every read must filter
// them out.
const notDeleted = "deleted_at IS NULL"

const featureByIDQuery = "SELECT " + featureColumns + " FROM gis.features WHERE id = ? AND " + notDeleted

const deleteFeatureQuery = "UPDATE gis.features SET deleted_at = NOW() WHERE id = ? AND " + notDeleted

const countFeaturesQuery = "SELECT COUNT(*) FROM gis.features WHERE layer_id = ? AND " + notDeleted

const featuresInBBoxQuery = `
	SELECT ` + featureColumns + `
	FROM gis.features
	WHERE layer_id = ? AND ` + notDeleted + `
	  AND geom && ST_MakeEnvelope(?, ?, ?, ?, 4326)
	  AND ST_Intersects(geom, ST_MakeEnvelope(?, ?, ?, ?, 4326))
	LIMIT ?`

const queryByRelationTemplate = `
	SELECT ` + featureColumns + `
	FROM gis.features
	WHERE layer_id = ? AND ` + notDeleted + `
	  AND %s(geom, ST_SetSRID(ST_GeomFromGeoJSON(?), 4326))
	LIMIT ?`

const withinDistanceQuery = `
	SELECT ` + featureColumns + `
	FROM gis.features
	WHERE layer_id = ? AND ` + notDeleted + `
	  AND ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)
	LIMIT ?`

const nearestQuery = `
	SELECT ` + featureColumns + `
	FROM gis.features
	WHERE layer_id = ? AND ` + notDeleted + `
	ORDER BY geom <-> ST_SetSRID(ST_MakePoint(?, ?), 4326)
	LIMIT ?`

const pointsForLayerQuery = `
	SELECT id, ST_X(geom) AS lng, ST_Y(geom) AS lat
	FROM gis.features
	WHERE layer_id = ? AND ` + notDeleted + ` AND GeometryType(geom) = 'POINT'`

// InsertFeatures writes one batch in a single multi-row INSERT. Geometry
// arrives as GeoJSON and is parsed by PostGIS; everything is stored in 4326.
func InsertFeatures(gdb *gorm.DB, layerID uuid.UUID, batch []FeatureInput) error {
	if len(batch) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO gis.features (id, layer_id, geom, properties, created_at) VALUES ")
	args := make([]any, 0, len(batch)*4)
	for i, f := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ST_SetSRID(ST_GeomFromGeoJSON(?), 4326), ?, NOW())")
		props := f.Properties
		if props == nil {
			props = json.RawMessage("{}")
		}
		args = append(args, uuid.New(), layerID, string(f.Geometry), string(props))
	}

	if err := gdb.Exec(sb.String(), args...).Error; err != nil {
		return fmt.Errorf("insert features: %w", err)
	}
	return nil
}

func FeatureByID(gdb *gorm.DB, id uuid.UUID) (*Feature, error) {
	var f Feature
	err := gdb.Raw(featureByIDQuery, id).Scan(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &f, nil
}

// DeleteFeature stamps the tombstone; the row stays.
func DeleteFeature(gdb *gorm.DB, id uuid.UUID) error {
	return gdb.Exec(deleteFeatureQuery, id).Error
}

func CountFeatures(gdb *gorm.DB, layerID uuid.UUID) (int64, error) {
	var n int64
	err := gdb.Raw(countFeaturesQuery, layerID).Scan(&n).Error
	return n, err
}

// FeaturesInBBox returns the layer's features whose geometry intersects the
// envelope. The && operator lets the GiST index prune before the exact test.
func FeaturesInBBox(gdb *gorm.DB, layerID uuid.UUID, minLng, minLat, maxLng, maxLat float64, limit int) ([]Feature, error) {
	if limit <= 0 {
		limit = 1000
	}
	var out []Feature
	err := gdb.Raw(featuresInBBoxQuery,
		layerID, minLng, minLat, maxLng, maxLat, minLng, minLat, maxLng, maxLat, limit,
	).Scan(&out).Error
	return out, err
}

// QueryByRelation runs one of the supported PostGIS predicates between the
// layer's features and an arbitrary GeoJSON geometry.
func QueryByRelation(gdb *gorm.DB, layerID uuid.UUID, relation string, geometry json.RawMessage, limit int) ([]Feature, error) {
	var predicate string
	switch strings.ToLower(relation) {
	case RelationIntersects:
		predicate = "ST_Intersects"
	case RelationWithin:
		predicate = "ST_Within"
	case RelationContains:
		predicate = "ST_Contains"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, relation)
	}
	if limit <= 0 {
		limit = 1000
	}

	var out []Feature
	err := gdb.Raw(fmt.Sprintf(queryByRelationTemplate, predicate),
		layerID, string(geometry), limit,
	).Scan(&out).Error
	return out, err
}

// WithinDistance finds features within the given distance in meters of a
// point, measured on the geography type so meters mean meters.
func WithinDistance(gdb *gorm.DB, layerID uuid.UUID, lng, lat, meters float64, limit int) ([]Feature, error) {
	if limit <= 0 {
		limit = 1000
	}
	var out []Feature
	err := gdb.Raw(withinDistanceQuery, layerID, lng, lat, meters, limit).Scan(&out).Error
	return out, err
}

// Nearest returns the k features closest to a point using the KNN operator.
func Nearest(gdb *gorm.DB, layerID uuid.UUID, lng, lat float64, k int) ([]Feature, error) {
	if k <= 0 {
		k = 10
	}
	var out []Feature
	err := gdb.Raw(nearestQuery, layerID, lng, lat, k).Scan(&out).Error
	return out, err
}

// PointsForLayer pulls bare point coordinates, optionally limited to a bbox.
// Non-point geometries in the layer are skipped rather than centroided.
func PointsForLayer(gdb *gorm.DB, layerID uuid.UUID, bbox *[4]float64) ([]PointRow, error) {
	var out []PointRow
	query := pointsForLayerQuery
	args := []any{layerID}
	if bbox != nil {
		query += " AND geom && ST_MakeEnvelope(?, ?, ?, ?, 4326)"
		args = append(args, bbox[0], bbox[1], bbox[2], bbox[3])
	}
	err := gdb.Raw(query, args...).Scan(&out).Error
	return out, err
}
