package analytics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mdung/gis-analytics-platform/internal/config"
)

func testRouter() http.Handler {
	return SetupRoutes(config.Default())
}

func TestClusterRejectsInvalidLayerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/layers/not-a-uuid/clusters", nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClusterRejectsPartialBBox(t *testing.T) {
	url := "/layers/6ba7b810-9dad-11d1-80b4-00c04fd430c8/clusters?minLng=106&maxLng=107"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bbox requires all of") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestClusterRejectsInvalidZoom(t *testing.T) {
	url := "/layers/6ba7b810-9dad-11d1-80b4-00c04fd430c8/clusters?zoom=99"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHeatmapRequiresBBox(t *testing.T) {
	url := "/layers/6ba7b810-9dad-11d1-80b4-00c04fd430c8/heatmap"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHeatmapRejectsInvertedBBox(t *testing.T) {
	url := "/layers/6ba7b810-9dad-11d1-80b4-00c04fd430c8/heatmap?minLng=107&minLat=10&maxLng=106&maxLat=11"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQueryRejectsMissingGeometry(t *testing.T) {
	url := "/layers/6ba7b810-9dad-11d1-80b4-00c04fd430c8/query"
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"relation":"intersects"}`))
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	url := "/layers/6ba7b810-9dad-11d1-80b4-00c04fd430c8/export?format=xml"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
