package layers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Geometry type labels stored on a layer. A layer holds one family of
// geometries; the ingestion service stamps the label from the first feature.
const (
	GeometryPoint   = "POINT"
	GeometryLine    = "LINESTRING"
	GeometryPolygon = "POLYGON"
)

type Layer struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"uniqueIndex" json:"name"`
	Description  string         `json:"description"`
	GeometryType string         `json:"geometry_type"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	SRID         int            `gorm:"default:4326" json:"srid"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Feature rows are written and read through raw PostGIS SQL so the geometry
// column round-trips as GeoJSON. The Geom field exists for migration only.
// Deletion is a tombstone; rows are never physically removed here.
type Feature struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LayerID    uuid.UUID       `gorm:"type:uuid;index" json:"layer_id"`
	Geom       string          `gorm:"type:geometry(Geometry,4326)" json:"-"`
	Properties json.RawMessage `gorm:"type:jsonb" json:"properties"`
	CreatedAt  time.Time       `json:"created_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Layer) TableName() string {
	return "gis.layers"
}

func (Feature) TableName() string {
	return "gis.features"
}
