package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Device struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code       string         `gorm:"uniqueIndex" json:"code"`
	Name       string         `json:"name"`
	LastLng    *float64       `json:"last_lng,omitempty"`
	LastLat    *float64       `json:"last_lat,omitempty"`
	LastSeenAt *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Geofence boundaries are written and read through raw PostGIS SQL as
// GeoJSON; the Boundary field exists for migration only.
type Geofence struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `json:"name"`
	Active    bool           `gorm:"default:true" json:"active"`
	Boundary  string         `gorm:"type:geometry(Geometry,4326)" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Device) TableName() string {
	return "gis.devices"
}

func (Geofence) TableName() string {
	return "gis.geofences"
}
