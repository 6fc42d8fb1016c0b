package tracking

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/mdung/gis-analytics-platform/internal/db"
)

// DBGeofenceProvider reads active geofences from gis.geofences, decoding each
// boundary from GeoJSON.
type DBGeofenceProvider struct{}

func (DBGeofenceProvider) ActiveGeofences(ctx context.Context) ([]Fence, error) {
	var rows []struct {
		ID       uuid.UUID
		Name     string
		Boundary string
	}
	err := db.DB.WithContext(ctx).Raw(`
		SELECT id, name, ST_AsGeoJSON(boundary) AS boundary
		FROM gis.geofences
		WHERE active AND deleted_at IS NULL`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	fences := make([]Fence, 0, len(rows))
	for _, row := range rows {
		geom, err := geojson.UnmarshalGeometry([]byte(row.Boundary))
		if err != nil {
			// A fence we cannot decode must not silently disable tracking.
			log.Printf("[tracking] skipping geofence %s: bad boundary: %v", row.ID, err)
			continue
		}
		fences = append(fences, Fence{ID: row.ID, Name: row.Name, Boundary: geom.Geometry()})
	}
	return fences, nil
}

// DBPositionStore writes the latest position onto the device row.
type DBPositionStore struct{}

func (DBPositionStore) SavePosition(ctx context.Context, deviceID uuid.UUID, lng, lat float64, ts time.Time) error {
	return db.DB.WithContext(ctx).Model(&Device{}).Where("id = ?", deviceID).Updates(map[string]any{
		"last_lng":     lng,
		"last_lat":     lat,
		"last_seen_at": ts,
	}).Error
}
