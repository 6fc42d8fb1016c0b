package uploads

import (
	"log"

	"github.com/mdung/gis-analytics-platform/internal/db"
)

func Init() {
	// Ensure the gis schema exists first
	if err := db.EnsureSchema(db.DB, "gis"); err != nil {
		log.Fatal("Failed to create gis schema: ", err)
	}

	if err := db.DB.AutoMigrate(&Upload{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
