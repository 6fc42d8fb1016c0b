package layers

import (
	"log"

	"github.com/mdung/gis-analytics-platform/internal/db"
)

func Init() {
	// Ensure the gis schema and PostGIS extension exist first
	if err := db.EnsureSchema(db.DB, "gis"); err != nil {
		log.Fatal("Failed to create gis schema: ", err)
	}
	if err := db.EnsurePostGIS(db.DB); err != nil {
		log.Fatal("Failed to enable PostGIS: ", err)
	}

	if err := db.DB.AutoMigrate(&Layer{}, &Feature{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}

	// AutoMigrate won't build a GiST index for us.
	if err := db.DB.Exec("CREATE INDEX IF NOT EXISTS idx_features_geom ON gis.features USING GIST (geom)").Error; err != nil {
		log.Fatal("Failed to create spatial index: ", err)
	}
}
