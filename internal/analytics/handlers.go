package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/mdung/gis-analytics-platform/internal/cache"
	"github.com/mdung/gis-analytics-platform/internal/cluster"
	"github.com/mdung/gis-analytics-platform/internal/config"
	"github.com/mdung/gis-analytics-platform/internal/db"
	"github.com/mdung/gis-analytics-platform/internal/heatmap"
	"github.com/mdung/gis-analytics-platform/internal/spatial"
)

// Wired by SetupRoutes.
var (
	cfg          config.Config
	productCache *cache.Cache
)

// ClusterHandler buckets a layer's point features for the requested zoom
// level. Results are memoized per layer, zoom and bbox.
func ClusterHandler(w http.ResponseWriter, r *http.Request) {
	layerID, ok := layerIDFromURL(w, r)
	if !ok {
		return
	}

	zoom := cfg.Cluster.DefaultZoom
	if v := r.URL.Query().Get("zoom"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 22 {
			http.Error(w, "Invalid zoom", http.StatusBadRequest)
			return
		}
		zoom = n
	}

	bbox, ok := bboxFromQuery(w, r)
	if !ok {
		return
	}

	key := fmt.Sprintf("cluster:%s:%d:%v", layerID, zoom, bbox)
	if cached, hit := productCache.Get(key); hit {
		writeJSON(w, cached)
		return
	}

	rows, err := spatial.PointsForLayer(db.DB, layerID, bbox)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	points := make([]cluster.Point, len(rows))
	for i, row := range rows {
		points[i] = cluster.Point{ID: row.ID, Location: orb.Point{row.Lng, row.Lat}}
	}

	result := cluster.Cluster(points, cluster.CellSizeForZoom(zoom, cfg.Cluster.Scale))
	productCache.Set(key, result)
	writeJSON(w, result)
}

// HeatmapHandler renders a normalized heat grid over the requested bbox,
// which is mandatory here since the grid is defined over it.
func HeatmapHandler(w http.ResponseWriter, r *http.Request) {
	layerID, ok := layerIDFromURL(w, r)
	if !ok {
		return
	}

	bbox, ok := bboxFromQuery(w, r)
	if !ok {
		return
	}
	if bbox == nil {
		http.Error(w, "minLng, minLat, maxLng and maxLat are required", http.StatusBadRequest)
		return
	}

	req := heatmap.Request{
		MinLng: bbox[0], MinLat: bbox[1], MaxLng: bbox[2], MaxLat: bbox[3],
		GridSize:  cfg.Heatmap.GridSize,
		Radius:    cfg.Heatmap.Radius,
		Intensity: cfg.Heatmap.Intensity,
	}
	if v := r.URL.Query().Get("gridSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 2048 {
			http.Error(w, "Invalid gridSize", http.StatusBadRequest)
			return
		}
		req.GridSize = n
	}
	if v := r.URL.Query().Get("radius"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			http.Error(w, "Invalid radius", http.StatusBadRequest)
			return
		}
		req.Radius = f
	}
	if v := r.URL.Query().Get("intensity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			http.Error(w, "Invalid intensity", http.StatusBadRequest)
			return
		}
		req.Intensity = f
	}

	key := fmt.Sprintf("heat:%s:%v:%d:%f:%f", layerID, bbox, req.GridSize, req.Radius, req.Intensity)
	if cached, hit := productCache.Get(key); hit {
		writeJSON(w, cached)
		return
	}

	rows, err := spatial.PointsForLayer(db.DB, layerID, bbox)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	points := make([]orb.Point, len(rows))
	for i, row := range rows {
		points[i] = orb.Point{row.Lng, row.Lat}
	}

	result := heatmap.Generate(points, req)
	productCache.Set(key, result)
	writeJSON(w, result)
}

// QueryHandler runs a spatial predicate between the layer and an arbitrary
// GeoJSON geometry from the request body.
func QueryHandler(w http.ResponseWriter, r *http.Request) {
	layerID, ok := layerIDFromURL(w, r)
	if !ok {
		return
	}

	var input struct {
		Relation string          `json:"relation"`
		Geometry json.RawMessage `json:"geometry"`
		Limit    int             `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(input.Geometry) == 0 {
		http.Error(w, "geometry is required", http.StatusBadRequest)
		return
	}

	features, err := spatial.QueryByRelation(db.DB, layerID, input.Relation, input.Geometry, input.Limit)
	if errors.Is(err, spatial.ErrUnknownRelation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, features)
}

// NearestHandler returns the k closest features to a point.
func NearestHandler(w http.ResponseWriter, r *http.Request) {
	layerID, ok := layerIDFromURL(w, r)
	if !ok {
		return
	}

	lng, lat, ok := pointFromQuery(w, r)
	if !ok {
		return
	}
	k := 10
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "Invalid k", http.StatusBadRequest)
			return
		}
		k = n
	}

	features, err := spatial.Nearest(db.DB, layerID, lng, lat, k)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, features)
}

// WithinDistanceHandler returns features within a radius in meters.
func WithinDistanceHandler(w http.ResponseWriter, r *http.Request) {
	layerID, ok := layerIDFromURL(w, r)
	if !ok {
		return
	}

	lng, lat, ok := pointFromQuery(w, r)
	if !ok {
		return
	}
	meters, err := strconv.ParseFloat(r.URL.Query().Get("meters"), 64)
	if err != nil || meters <= 0 {
		http.Error(w, "meters must be a positive number", http.StatusBadRequest)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	features, err := spatial.WithinDistance(db.DB, layerID, lng, lat, meters, limit)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, features)
}

func layerIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "layerID"))
	if err != nil {
		http.Error(w, "Invalid layer ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// bboxFromQuery reads minLng/minLat/maxLng/maxLat. Either all four are
// present or none; a partial bbox is a client error.
func bboxFromQuery(w http.ResponseWriter, r *http.Request) (*[4]float64, bool) {
	q := r.URL.Query()
	names := []string{"minLng", "minLat", "maxLng", "maxLat"}

	present := 0
	var vals [4]float64
	for i, name := range names {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "Invalid "+name, http.StatusBadRequest)
			return nil, false
		}
		vals[i] = f
		present++
	}

	switch present {
	case 0:
		return nil, true
	case 4:
		if vals[0] >= vals[2] || vals[1] >= vals[3] {
			http.Error(w, "bbox min must be less than max", http.StatusBadRequest)
			return nil, false
		}
		return &vals, true
	default:
		http.Error(w, "bbox requires all of minLng, minLat, maxLng, maxLat", http.StatusBadRequest)
		return nil, false
	}
}

func pointFromQuery(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		http.Error(w, "Invalid lng", http.StatusBadRequest)
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		http.Error(w, "Invalid lat", http.StatusBadRequest)
		return 0, 0, false
	}
	return lng, lat, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
