package uploads

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/mdung/gis-analytics-platform/internal/ingest"
	"github.com/mdung/gis-analytics-platform/internal/layers"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		name       string
		stats      ingest.Stats
		wantStatus string
		wantMsg    string
	}{
		{
			"all succeeded",
			ingest.Stats{TotalFeatures: 5, SuccessCount: 5},
			StatusProcessed,
			"Processed 5 features successfully, 0 failed",
		},
		{
			"partial",
			ingest.Stats{TotalFeatures: 5, SuccessCount: 3, FailedCount: 2},
			StatusProcessed,
			"Processed 3 features successfully, 2 failed",
		},
		{
			"all failed",
			ingest.Stats{TotalFeatures: 5, FailedCount: 5},
			StatusFailed,
			"All 5 features failed processing",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := outcome(tc.stats)
			if status != tc.wantStatus {
				t.Errorf("status = %q, want %q", status, tc.wantStatus)
			}
			if msg != tc.wantMsg {
				t.Errorf("message = %q, want %q", msg, tc.wantMsg)
			}
		})
	}
}

func TestGeometryTypeLabel(t *testing.T) {
	cases := []struct {
		name string
		geom orb.Geometry
		want string
	}{
		{"point", orb.Point{106, 10}, layers.GeometryPoint},
		{"multipoint", orb.MultiPoint{{0, 0}, {1, 1}}, layers.GeometryPoint},
		{"linestring", orb.LineString{{0, 0}, {1, 1}}, layers.GeometryLine},
		{"polygon", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, layers.GeometryPolygon},
		{"multipolygon", orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, layers.GeometryPolygon},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := geometryTypeLabel(tc.geom); got != tc.want {
				t.Errorf("geometryTypeLabel(%s) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}
