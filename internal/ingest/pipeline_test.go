package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mdung/gis-analytics-platform/internal/crs"
)

// collectWriter records every batch it receives; failAfter > 0 makes batch
// number failAfter (1-based) and later fail.
type collectWriter struct {
	batches   [][]Record
	failAfter int
}

func (w *collectWriter) WriteBatch(ctx context.Context, batch []Record) error {
	if w.failAfter > 0 && len(w.batches)+1 >= w.failAfter {
		return errors.New("storage unavailable")
	}
	copied := make([]Record, len(batch))
	copy(copied, batch)
	w.batches = append(w.batches, copied)
	return nil
}

func (w *collectWriter) total() int {
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func validPoints(n int) []ParsedFeature {
	out := make([]ParsedFeature, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ParsedFeature{
			Geometry:   orb.Point{106.0 + float64(i)*0.01, 10.0 + float64(i)*0.01},
			Properties: map[string]any{"i": int64(i)},
		})
	}
	return out
}

func TestPipelinePartialSuccessStats(t *testing.T) {
	parsed := validPoints(10)
	// Two features with out-of-range latitude: valid shapes, but outside the
	// WGS84 envelope, so the bounds check drops them.
	parsed = append(parsed,
		ParsedFeature{Geometry: orb.Point{106.0, 95.0}},
		ParsedFeature{Geometry: orb.Point{106.0, -95.0}},
	)

	w := &collectWriter{}
	p := NewPipeline(crs.NewTransformer(), 100)

	stats, err := p.Run(context.Background(), parsed, crs.WGS84, w)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.TotalFeatures != 12 {
		t.Errorf("TotalFeatures = %d, want 12", stats.TotalFeatures)
	}
	if stats.SuccessCount != 10 {
		t.Errorf("SuccessCount = %d, want 10", stats.SuccessCount)
	}
	if stats.FailedCount != 2 {
		t.Errorf("FailedCount = %d, want 2", stats.FailedCount)
	}
	if stats.BBox == nil {
		t.Fatal("expected non-nil bbox")
	}
	if stats.BBox.MinLng != 106.0 || stats.BBox.MaxLat >= 90 {
		t.Errorf("suspicious bbox: %+v", stats.BBox)
	}
	if w.total() != 10 {
		t.Errorf("writer received %d records, want 10", w.total())
	}
}

func TestPipelineRepairsOrDropsInvalidGeometry(t *testing.T) {
	parsed := []ParsedFeature{
		// Repairable: duplicate vertex, ring still closed after dedup.
		{Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}},
		// Repairable: bowtie self-intersection, untangled by the repair step.
		{Geometry: orb.Polygon{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}},
		// Not repairable: a linestring needs at least two distinct points.
		{Geometry: orb.LineString{{5, 5}}},
	}

	w := &collectWriter{}
	p := NewPipeline(crs.NewTransformer(), 100)

	stats, err := p.Run(context.Background(), parsed, crs.WGS84, w)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.SuccessCount != 2 || stats.FailedCount != 1 {
		t.Errorf("got success=%d failed=%d, want 2/1", stats.SuccessCount, stats.FailedCount)
	}
}

func TestPipelineReprojects(t *testing.T) {
	// Web Mercator coordinates for roughly (106.63E, 10.82N).
	parsed := []ParsedFeature{
		{Geometry: orb.Point{11869958.0, 1212679.0}, SourceSRID: crs.WebMercator},
	}

	w := &collectWriter{}
	p := NewPipeline(crs.NewTransformer(), 100)

	stats, err := p.Run(context.Background(), parsed, crs.WGS84, w)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.SuccessCount != 1 {
		t.Fatalf("expected reprojected feature to persist, stats=%+v", stats)
	}

	got := w.batches[0][0].Geometry.(orb.Point)
	if got[0] < 106 || got[0] > 107 || got[1] < 10 || got[1] > 11 {
		t.Errorf("reprojection produced %v, expected roughly (106.6, 10.8)", got)
	}
}

func TestPipelineBatchFailureIsPartial(t *testing.T) {
	parsed := validPoints(150)

	w := &collectWriter{failAfter: 2} // first batch of 100 commits, second fails
	p := NewPipeline(crs.NewTransformer(), 100)

	stats, err := p.Run(context.Background(), parsed, crs.WGS84, w)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.SuccessCount != 100 {
		t.Errorf("SuccessCount = %d, want 100 (first batch committed)", stats.SuccessCount)
	}
	if stats.FailedCount != 50 {
		t.Errorf("FailedCount = %d, want 50 (second batch failed)", stats.FailedCount)
	}
}

// flakyWriter fails the first attempt of every batch and commits the retry.
type flakyWriter struct {
	collectWriter
	attempts int
}

func (w *flakyWriter) WriteBatch(ctx context.Context, batch []Record) error {
	w.attempts++
	if w.attempts%2 == 1 {
		return errors.New("connection reset")
	}
	return w.collectWriter.WriteBatch(ctx, batch)
}

func TestPipelineRetriesTransientBatchFailure(t *testing.T) {
	parsed := validPoints(150)

	w := &flakyWriter{}
	p := NewPipeline(crs.NewTransformer(), 100)

	stats, err := p.Run(context.Background(), parsed, crs.WGS84, w)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.SuccessCount != 150 || stats.FailedCount != 0 {
		t.Errorf("got success=%d failed=%d, want 150/0 after retry", stats.SuccessCount, stats.FailedCount)
	}
	if w.attempts != 4 {
		t.Errorf("writer saw %d attempts, want 4 (two batches, one retry each)", w.attempts)
	}
}

func TestPipelineCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &collectWriter{}
	p := NewPipeline(crs.NewTransformer(), 100)

	_, err := p.Run(ctx, validPoints(5), crs.WGS84, w)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
