package layers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mdung/gis-analytics-platform/internal/db"
	"github.com/mdung/gis-analytics-platform/internal/spatial"
)

func CreateLayerHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		GeometryType string   `json:"geometry_type"`
		Tags         []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(input.Name) == "" {
		http.Error(w, "Layer name is required", http.StatusBadRequest)
		return
	}

	layer := Layer{
		ID:           uuid.New(),
		Name:         input.Name,
		Description:  input.Description,
		GeometryType: strings.ToUpper(input.GeometryType),
		Tags:         input.Tags,
		SRID:         4326,
	}
	if err := db.DB.Create(&layer).Error; err != nil {
		http.Error(w, "Failed to create layer: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(layer)
}

func ListLayersHandler(w http.ResponseWriter, r *http.Request) {
	var list []Layer
	if err := db.DB.Order("created_at DESC").Find(&list).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func GetLayerHandler(w http.ResponseWriter, r *http.Request) {
	layer, ok := layerFromURL(w, r)
	if !ok {
		return
	}

	count, err := spatial.CountFeatures(db.DB, layer.ID)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Layer
		FeatureCount int64 `json:"feature_count"`
	}{*layer, count})
}

func UpdateLayerHandler(w http.ResponseWriter, r *http.Request) {
	layer, ok := layerFromURL(w, r)
	if !ok {
		return
	}

	var input struct {
		Name        *string   `json:"name"`
		Description *string   `json:"description"`
		Tags        *[]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Tags != nil {
		updates["tags"] = pq.StringArray(*input.Tags)
	}
	if len(updates) == 0 {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}

	if err := db.DB.Model(layer).Updates(updates).Error; err != nil {
		http.Error(w, "Failed to update layer: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(layer)
}

func DeleteLayerHandler(w http.ResponseWriter, r *http.Request) {
	layer, ok := layerFromURL(w, r)
	if !ok {
		return
	}

	if err := db.DB.Delete(layer).Error; err != nil {
		http.Error(w, "Failed to delete layer: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFeaturesHandler returns a layer's features, optionally filtered by a
// bbox query (minLng,minLat,maxLng,maxLat).
func ListFeaturesHandler(w http.ResponseWriter, r *http.Request) {
	layer, ok := layerFromURL(w, r)
	if !ok {
		return
	}

	limit := 1000
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	bbox := [4]float64{-180, -90, 180, 90}
	if raw := r.URL.Query().Get("bbox"); raw != "" {
		parts := strings.Split(raw, ",")
		if len(parts) != 4 {
			http.Error(w, "bbox must be minLng,minLat,maxLng,maxLat", http.StatusBadRequest)
			return
		}
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				http.Error(w, "Invalid bbox value: "+p, http.StatusBadRequest)
				return
			}
			bbox[i] = f
		}
	}

	features, err := spatial.FeaturesInBBox(db.DB, layer.ID, bbox[0], bbox[1], bbox[2], bbox[3], limit)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(features)
}

func CreateFeatureHandler(w http.ResponseWriter, r *http.Request) {
	layer, ok := layerFromURL(w, r)
	if !ok {
		return
	}

	var input struct {
		Geometry   json.RawMessage `json:"geometry"`
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(input.Geometry) == 0 {
		http.Error(w, "Feature geometry is required", http.StatusBadRequest)
		return
	}

	prepared, err := PrepareFeatureGeometry(input.Geometry, layer.GeometryType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch := []spatial.FeatureInput{{Geometry: prepared, Properties: input.Properties}}
	if err := spatial.InsertFeatures(db.DB, layer.ID, batch); err != nil {
		http.Error(w, "Failed to create feature: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func GetFeatureHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "featureID"))
	if err != nil {
		http.Error(w, "Invalid feature ID", http.StatusBadRequest)
		return
	}

	feature, err := spatial.FeatureByID(db.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Feature not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feature)
}

func DeleteFeatureHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "featureID"))
	if err != nil {
		http.Error(w, "Invalid feature ID", http.StatusBadRequest)
		return
	}
	if err := spatial.DeleteFeature(db.DB, id); err != nil {
		http.Error(w, "Failed to delete feature: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func layerFromURL(w http.ResponseWriter, r *http.Request) (*Layer, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "layerID"))
	if err != nil {
		http.Error(w, "Invalid layer ID", http.StatusBadRequest)
		return nil, false
	}

	var layer Layer
	err = db.DB.First(&layer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Layer not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return &layer, true
}
