package bulkimport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/mdung/gis-analytics-platform/internal/crs"
	"github.com/mdung/gis-analytics-platform/internal/db"
	"github.com/mdung/gis-analytics-platform/internal/ingest"
	"github.com/mdung/gis-analytics-platform/internal/layers"
	"github.com/mdung/gis-analytics-platform/internal/spatial"
)

// Config drives one offline bulk import.
type Config struct {
	FilePath    string
	DatabaseURL string
	LayerName   string
	SRID        int
	LatColumn   string
	LngColumn   string
	BatchSize   int
}

// Run loads one file straight into the feature store, bypassing the HTTP
// surface. Meant for seeding and backfills.
func Run(cfg Config) error {
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	db.Connect()
	layers.Init()

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	fileName := filepath.Base(cfg.FilePath)
	parsed, err := ingest.ParseFile(fileName, data, cfg.LatColumn, cfg.LngColumn)
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		return fmt.Errorf("no features found in file")
	}

	name := cfg.LayerName
	if name == "" {
		name = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	layer := layers.Layer{
		ID:           uuid.New(),
		Name:         name,
		Description:  "Bulk import of " + fileName,
		GeometryType: strings.ToUpper(parsed[0].Geometry.GeoJSONType()),
		SRID:         4326,
	}
	if err := db.DB.Create(&layer).Error; err != nil {
		return fmt.Errorf("create layer: %w", err)
	}

	pipeline := ingest.NewPipeline(crs.NewTransformer(), cfg.BatchSize)
	stats, err := pipeline.Run(context.Background(), parsed, cfg.SRID, &writer{layerID: layer.ID})
	if err != nil {
		return err
	}

	log.Printf("Imported %d of %d features into layer %s (%d failed)",
		stats.SuccessCount, stats.TotalFeatures, layer.Name, stats.FailedCount)
	return nil
}

type writer struct {
	layerID uuid.UUID
}

func (w *writer) WriteBatch(ctx context.Context, batch []ingest.Record) error {
	inputs := make([]spatial.FeatureInput, 0, len(batch))
	for _, rec := range batch {
		geomJSON, err := json.Marshal(geojson.NewGeometry(rec.Geometry))
		if err != nil {
			return err
		}
		props, err := json.Marshal(rec.Properties)
		if err != nil {
			return err
		}
		inputs = append(inputs, spatial.FeatureInput{Geometry: geomJSON, Properties: props})
	}
	return spatial.InsertFeatures(db.DB.WithContext(ctx), w.layerID, inputs)
}
