package tracking

import (
	"log"

	"github.com/mdung/gis-analytics-platform/internal/db"
)

func Init() {
	// Ensure the gis schema exists first
	if err := db.EnsureSchema(db.DB, "gis"); err != nil {
		log.Fatal("Failed to create gis schema: ", err)
	}

	if err := db.DB.AutoMigrate(&Device{}, &Geofence{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}

	if err := db.DB.Exec("CREATE INDEX IF NOT EXISTS idx_geofences_boundary ON gis.geofences USING GIST (boundary)").Error; err != nil {
		log.Fatal("Failed to create spatial index: ", err)
	}
}
