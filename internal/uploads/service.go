package uploads

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mdung/gis-analytics-platform/internal/config"
	"github.com/mdung/gis-analytics-platform/internal/crs"
	"github.com/mdung/gis-analytics-platform/internal/db"
	"github.com/mdung/gis-analytics-platform/internal/ingest"
	"github.com/mdung/gis-analytics-platform/internal/layers"
	"github.com/mdung/gis-analytics-platform/internal/objectstore"
	"github.com/mdung/gis-analytics-platform/internal/spatial"
)

// Service owns the upload lifecycle: it stores raw payloads, drives the
// ingestion pipeline on a worker pool and records the outcome on the upload
// row.
type Service struct {
	store     objectstore.Store
	pipeline  *ingest.Pipeline
	processor *ingest.Processor
}

func NewService(store objectstore.Store, cfg config.Config) *Service {
	s := &Service{
		store:    store,
		pipeline: ingest.NewPipeline(crs.NewTransformer(), cfg.Ingest.BatchSize),
	}
	s.processor = ingest.NewProcessor(cfg.Ingest.Workers, s.process)
	return s
}

// Enqueue hands an upload to the worker pool. A full queue reports false and
// the upload stays in UPLOADED for a later retry.
func (s *Service) Enqueue(id uuid.UUID) bool {
	return s.processor.Enqueue(id)
}

func (s *Service) Close() {
	s.processor.Close()
}

// process runs one upload through parse, pipeline and bookkeeping. Every exit
// path leaves the upload row in a terminal state except queue-time
// cancellation, which marks it FAILED so it is never stuck in PROCESSING.
func (s *Service) process(ctx context.Context, uploadID uuid.UUID) {
	var upload Upload
	if err := db.DB.First(&upload, "id = ?", uploadID).Error; err != nil {
		log.Printf("[uploads] upload %s not found: %v", uploadID, err)
		return
	}

	s.setStatus(&upload, StatusProcessing, "", nil)

	data, err := s.store.Get(upload.FileKey)
	if err != nil {
		s.setStatus(&upload, StatusFailed, "Failed to read uploaded file: "+err.Error(), nil)
		return
	}

	parsed, err := ingest.ParseFile(upload.FileName, data, upload.LatColumn, upload.LngColumn)
	if err != nil {
		s.setStatus(&upload, StatusFailed, err.Error(), nil)
		return
	}
	if len(parsed) == 0 {
		s.setStatus(&upload, StatusFailed, "no features found in file", nil)
		return
	}

	layerID, err := s.resolveLayer(&upload, parsed[0].Geometry)
	if err != nil {
		s.setStatus(&upload, StatusFailed, "Failed to resolve target layer: "+err.Error(), nil)
		return
	}

	stats, err := s.pipeline.Run(ctx, parsed, upload.SRID, &featureWriter{layerID: layerID})
	if err != nil {
		s.setStatus(&upload, StatusFailed, "Processing cancelled: "+err.Error(), nil)
		return
	}

	status, msg := outcome(stats)
	s.setStatus(&upload, status, msg, &stats)
}

// outcome maps pipeline stats onto the upload's terminal state. A run where
// every feature failed is FAILED with its own message so it is not mistaken
// for an empty file.
func outcome(stats ingest.Stats) (string, string) {
	if stats.SuccessCount == 0 {
		return StatusFailed, fmt.Sprintf("All %d features failed processing", stats.FailedCount)
	}
	return StatusProcessed, fmt.Sprintf("Processed %d features successfully, %d failed", stats.SuccessCount, stats.FailedCount)
}

// resolveLayer returns the target layer, creating one from the file name and
// the first feature's geometry type when the upload did not name a layer. An
// existing target layer must hold the same geometry family as the file.
func (s *Service) resolveLayer(upload *Upload, first orb.Geometry) (uuid.UUID, error) {
	if upload.LayerID != nil {
		var layer layers.Layer
		if err := db.DB.First(&layer, "id = ?", *upload.LayerID).Error; err != nil {
			return uuid.Nil, err
		}
		if !layers.GeometryTypeMatches(layer.GeometryType, first) {
			return uuid.Nil, fmt.Errorf("file contains %s geometries but layer %q holds %s",
				geometryTypeLabel(first), layer.Name, layer.GeometryType)
		}
		return *upload.LayerID, nil
	}

	name := strings.TrimSuffix(upload.FileName, filepath.Ext(upload.FileName))
	if name == "" {
		name = "upload"
	}

	layer := layers.Layer{
		ID:           uuid.New(),
		Name:         name,
		Description:  "Created from upload " + upload.FileName,
		GeometryType: geometryTypeLabel(first),
		SRID:         4326,
	}
	if err := db.DB.Create(&layer).Error; err != nil {
		// Name collision with an existing layer, disambiguate with the
		// upload id.
		layer.Name = fmt.Sprintf("%s-%s", name, upload.ID.String()[:8])
		if err := db.DB.Create(&layer).Error; err != nil {
			return uuid.Nil, err
		}
	}

	upload.LayerID = &layer.ID
	return layer.ID, db.DB.Model(upload).Update("layer_id", layer.ID).Error
}

func (s *Service) setStatus(upload *Upload, status, message string, stats *ingest.Stats) {
	updates := map[string]any{"status": status, "message": message}
	if stats != nil {
		if raw, err := json.Marshal(stats); err == nil {
			updates["stats"] = raw
		}
	}
	if err := db.DB.Model(upload).Updates(updates).Error; err != nil {
		log.Printf("[uploads] failed to update upload %s: %v", upload.ID, err)
	}
	upload.Status = status
	upload.Message = message
}

func geometryTypeLabel(g orb.Geometry) string {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return layers.GeometryPoint
	case orb.LineString, orb.MultiLineString:
		return layers.GeometryLine
	case orb.Polygon, orb.MultiPolygon:
		return layers.GeometryPolygon
	default:
		return strings.ToUpper(g.GeoJSONType())
	}
}

// featureWriter persists one pipeline batch into gis.features.
type featureWriter struct {
	layerID uuid.UUID
}

func (w *featureWriter) WriteBatch(ctx context.Context, batch []ingest.Record) error {
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
