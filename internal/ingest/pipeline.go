package ingest

import (
	"context"
	"log"

	"github.com/paulmach/orb"

	"github.com/mdung/gis-analytics-platform/internal/crs"
	"github.com/mdung/gis-analytics-platform/internal/geometry"
)

// BBox is the envelope reported in upload statistics.
type BBox struct {
	MinLng float64 `json:"minLng"`
	MinLat float64 `json:"minLat"`
	MaxLng float64 `json:"maxLng"`
	MaxLat float64 `json:"maxLat"`
}

// Extend grows the envelope to cover g.
func (b *BBox) Extend(g orb.Geometry) {
	bound := g.Bound()
	if bound.Min[0] < b.MinLng {
		b.MinLng = bound.Min[0]
	}
	if bound.Min[1] < b.MinLat {
		b.MinLat = bound.Min[1]
	}
	if bound.Max[0] > b.MaxLng {
		b.MaxLng = bound.Max[0]
	}
	if bound.Max[1] > b.MaxLat {
		b.MaxLat = bound.Max[1]
	}
}

// Stats is the per-upload outcome payload.
type Stats struct {
	TotalFeatures int   `json:"totalFeatures"`
	SuccessCount  int   `json:"successCount"`
	FailedCount   int   `json:"failedCount"`
	BBox          *BBox `json:"bbox"`
}

// Record is a normalized, validated, WGS84 feature ready for persistence.
type Record struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// BatchWriter persists one batch of records. A batch failure must not roll
// back previously committed batches; the pipeline counts the batch as failed
// and keeps going.
type BatchWriter interface {
	WriteBatch(ctx context.Context, batch []Record) error
}

// Pipeline turns parsed features into persisted, canonical WGS84 records:
// validate, repair, reproject, re-validate, batch persist.
type Pipeline struct {
	Transformer *crs.Transformer
	BatchSize   int
}

func NewPipeline(t *crs.Transformer, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Pipeline{Transformer: t, BatchSize: batchSize}
}

// Run processes every parsed feature and writes the survivors in fixed-size
// batches. Partial success is the normal case and is fully reflected in the
// returned stats. The only error Run itself returns is context cancellation;
// everything already committed stays committed.
func (p *Pipeline) Run(ctx context.Context, parsed []ParsedFeature, defaultSRID int, w BatchWriter) (Stats, error) {
	stats := Stats{TotalFeatures: len(parsed)}

	var pending []Record
	flush := func() {
		if len(pending) == 0 {
			return
		}
		err := w.WriteBatch(ctx, pending)
		if err != nil && ctx.Err() == nil {
			// One retry covers transient failures such as a dropped
			// connection without stalling the rest of the file.
			log.Printf("[ingest] batch of %d features failed, retrying: %v", len(pending), err)
			err = w.WriteBatch(ctx, pending)
		}
		if err != nil {
			log.Printf("[ingest] batch of %d features failed: %v", len(pending), err)
			stats.FailedCount += len(pending)
		} else {
			stats.SuccessCount += len(pending)
			for _, rec := range pending {
				if stats.BBox == nil {
					b := rec.Geometry.Bound()
					stats.BBox = &BBox{MinLng: b.Min[0], MinLat: b.Min[1], MaxLng: b.Max[0], MaxLat: b.Max[1]}
				} else {
					stats.BBox.Extend(rec.Geometry)
				}
			}
		}
		pending = pending[:0]
	}

	for _, pf := range parsed {
		if err := ctx.Err(); err != nil {
			flush()
			return stats, err
		}

		geom := pf.Geometry

		if ok, reason := geometry.Validate(geom); !ok {
			log.Printf("[ingest] invalid geometry, attempting repair: %s", reason)
			geom = geometry.Normalize(geom)
			if ok, reason := geometry.Validate(geom); !ok {
				log.Printf("[ingest] dropping feature, repair failed: %s", reason)
				stats.FailedCount++
				continue
			}
		}

		srid := pf.SourceSRID
		if srid == 0 {
			srid = defaultSRID
		}
		if srid != 0 && srid != crs.WGS84 {
			transformed, err := p.Transformer.Transform(geom, srid, crs.WGS84)
			if err != nil {
				log.Printf("[ingest] dropping feature: %v", err)
				stats.FailedCount++
				continue
			}
			geom = transformed
		}

		if !geometry.IsWithinBounds(geom) {
			log.Printf("[ingest] dropping feature: outside WGS84 bounds after reprojection")
			stats.FailedCount++
			continue
		}

		geom = geometry.Normalize(geom)

		pending = append(pending, Record{Geometry: geom, Properties: pf.Properties})
		if len(pending) >= p.BatchSize {
			flush()
		}
	}

	flush()
	return stats, nil
}
