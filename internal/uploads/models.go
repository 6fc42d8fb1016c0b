package uploads

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Upload lifecycle states.
const (
	StatusUploaded   = "UPLOADED"
	StatusProcessing = "PROCESSING"
	StatusProcessed  = "PROCESSED"
	StatusFailed     = "FAILED"
)

type Upload struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FileName  string          `json:"file_name"`
	FileKey   string          `json:"-"`
	LayerID   *uuid.UUID      `gorm:"type:uuid" json:"layer_id,omitempty"`
	SRID      int             `json:"srid"`
	LatColumn string          `json:"lat_column,omitempty"`
	LngColumn string          `json:"lng_column,omitempty"`
	Status    string          `gorm:"default:UPLOADED" json:"status"`
	Message   string          `json:"message,omitempty"`
	Stats     json.RawMessage `gorm:"type:jsonb" json:"stats,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Upload) TableName() string {
	return "gis.uploads"
}
