package layers

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func TestGeometryTypeMatches(t *testing.T) {
	cases := []struct {
		name      string
		layerType string
		geom      orb.Geometry
		want      bool
	}{
		{"point on point layer", GeometryPoint, orb.Point{106, 10}, true},
		{"multipoint on point layer", GeometryPoint, orb.MultiPoint{{0, 0}, {1, 1}}, true},
		{"line on line layer", GeometryLine, orb.LineString{{0, 0}, {1, 1}}, true},
		{"polygon on polygon layer", GeometryPolygon, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, true},
		{"multipolygon on polygon layer", GeometryPolygon, orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, true},
		{"point on polygon layer", GeometryPolygon, orb.Point{106, 10}, false},
		{"polygon on point layer", GeometryPoint, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, false},
		{"line on point layer", GeometryPoint, orb.LineString{{0, 0}, {1, 1}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GeometryTypeMatches(tc.layerType, tc.geom); got != tc.want {
				t.Errorf("GeometryTypeMatches(%q, %s) = %v, want %v", tc.layerType, tc.name, got, tc.want)
			}
		})
	}
}

func TestPrepareFeatureGeometryAcceptsValid(t *testing.T) {
	raw := json.RawMessage(`{"type":"Point","coordinates":[106.7,10.77]}`)
	out, err := PrepareFeatureGeometry(raw, GeometryPoint)
	if err != nil {
		t.Fatalf("PrepareFeatureGeometry: %v", err)
	}
	if !strings.Contains(string(out), `"Point"`) {
		t.Errorf("prepared geometry lost its type: %s", out)
	}
}

func TestPrepareFeatureGeometryRepairsDuplicateVertices(t *testing.T) {
	raw := json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[0,0],[1,0],[1,1],[0,1],[0,0]]]}`)
	out, err := PrepareFeatureGeometry(raw, GeometryPolygon)
	if err != nil {
		t.Fatalf("duplicate-vertex polygon should repair, got: %v", err)
	}
	if strings.Count(string(out), "[0,0]") > 2 {
		t.Errorf("duplicate vertex survived normalization: %s", out)
	}
}

func TestPrepareFeatureGeometryRejects(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		layerType string
		wantErr   string
	}{
		{
			"malformed json",
			`{"type":"Point"`,
			GeometryPoint,
			"invalid geometry",
		},
		{
			"one point linestring",
			`{"type":"LineString","coordinates":[[5,5]]}`,
			GeometryLine,
			"invalid geometry",
		},
		{
			"out of bounds",
			`{"type":"Point","coordinates":[200,95]}`,
			GeometryPoint,
			"outside WGS84 bounds",
		},
		{
			"type mismatch",
			`{"type":"Point","coordinates":[106.7,10.77]}`,
			GeometryPolygon,
			"does not match layer type",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PrepareFeatureGeometry(json.RawMessage(tc.raw), tc.layerType)
			if err == nil {
				t.Fatal("expected rejection, got nil error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
