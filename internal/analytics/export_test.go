package analytics

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/mdung/gis-analytics-platform/internal/spatial"
)

func TestCSVRecordsPointsAndPolygons(t *testing.T) {
	pointID := uuid.New()
	polyID := uuid.New()
	features := []spatial.Feature{
		{
			ID:         pointID,
			Geometry:   json.RawMessage(`{"type":"Point","coordinates":[106.7,10.8]}`),
			Properties: json.RawMessage(`{"name":"Depot"}`),
		},
		{
			ID:         polyID,
			Geometry:   json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`),
			Properties: json.RawMessage(`{}`),
		},
	}

	records, err := csvRecords(features)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}

	header := records[0]
	want := []string{"id", "longitude", "latitude", "wkt", "properties"}
	for i, col := range want {
		if header[i] != col {
			t.Errorf("header[%d] = %q, want %q", i, header[i], col)
		}
	}

	point := records[1]
	if point[0] != pointID.String() || point[1] != "106.7" || point[2] != "10.8" {
		t.Errorf("point row wrong: %v", point)
	}
	if point[3] != "" {
		t.Errorf("point row must not carry WKT, got %q", point[3])
	}
	if point[4] != `{"name":"Depot"}` {
		t.Errorf("properties column wrong: %q", point[4])
	}

	poly := records[2]
	if poly[1] != "" || poly[2] != "" {
		t.Errorf("polygon row must not carry lng/lat, got %v", poly)
	}
	if poly[3] == "" || poly[3][:7] != "POLYGON" {
		t.Errorf("polygon row should carry WKT, got %q", poly[3])
	}
}

func TestCSVRecordsRejectsBadGeometry(t *testing.T) {
	features := []spatial.Feature{
		{ID: uuid.New(), Geometry: json.RawMessage(`not json`)},
	}
	if _, err := csvRecords(features); err == nil {
		t.Error("expected error for undecodable geometry")
	}
}
