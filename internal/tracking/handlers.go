package tracking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdung/gis-analytics-platform/internal/db"
	"github.com/mdung/gis-analytics-platform/internal/push"
)

// tracker is wired by SetupRoutes.
var tracker *Tracker

func CreateDeviceHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(input.Code) == "" {
		http.Error(w, "Device code is required", http.StatusBadRequest)
		return
	}

	device := Device{ID: uuid.New(), Code: input.Code, Name: input.Name}
	if err := db.DB.Create(&device).Error; err != nil {
		http.Error(w, "Failed to create device: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(device)
}

func ListDevicesHandler(w http.ResponseWriter, r *http.Request) {
	var list []Device
	if err := db.DB.Order("code").Find(&list).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func GetDeviceHandler(w http.ResponseWriter, r *http.Request) {
	device, ok := deviceFromURL(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(device)
}

func DeleteDeviceHandler(w http.ResponseWriter, r *http.Request) {
	device, ok := deviceFromURL(w, r)
	if !ok {
		return
	}
	if err := db.DB.Delete(device).Error; err != nil {
		http.Error(w, "Failed to delete device: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if tracker != nil {
		tracker.Forget(device.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePositionHandler takes one position report, runs geofence detection
// and returns the events the report produced.
func UpdatePositionHandler(w http.ResponseWriter, r *http.Request) {
	device, ok := deviceFromURL(w, r)
	if !ok {
		return
	}

	var input struct {
		Longitude *float64   `json:"longitude"`
		Latitude  *float64   `json:"latitude"`
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if input.Longitude == nil || input.Latitude == nil {
		http.Error(w, "longitude and latitude are required", http.StatusBadRequest)
		return
	}
	lng, lat := *input.Longitude, *input.Latitude
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		http.Error(w, "Coordinates out of range", http.StatusBadRequest)
		return
	}
	ts := time.Now().UTC()
	if input.Timestamp != nil {
		ts = input.Timestamp.UTC()
	}

	events, err := tracker.Update(r.Context(), device, lng, lat, ts)
	if err != nil {
		http.Error(w, "Failed to process position: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []push.GeofenceEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

func CreateGeofenceHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string          `json:"name"`
		Boundary json.RawMessage `json:"boundary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(input.Name) == "" || len(input.Boundary) == 0 {
		http.Error(w, "Geofence name and boundary are required", http.StatusBadRequest)
		return
	}

	id := uuid.New()
	err := db.DB.Exec(`
		INSERT INTO gis.geofences (id, name, active, boundary, created_at, updated_at)
		VALUES (?, ?, true, ST_SetSRID(ST_GeomFromGeoJSON(?), 4326), NOW(), NOW())`,
		id, input.Name, string(input.Boundary),
	).Error
	if err != nil {
		http.Error(w, "Failed to create geofence: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"id": id, "name": input.Name, "active": true})
}

func ListGeofencesHandler(w http.ResponseWriter, r *http.Request) {
	var rows []struct {
		ID       uuid.UUID       `json:"id"`
		Name     string          `json:"name"`
		Active   bool            `json:"active"`
		Boundary json.RawMessage `json:"boundary"`
	}
	err := db.DB.Raw(`
		SELECT id, name, active, ST_AsGeoJSON(boundary) AS boundary
		FROM gis.geofences
		WHERE deleted_at IS NULL
		ORDER BY name`,
	).Scan(&rows).Error
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

// SetGeofenceActiveHandler flips the active flag. Inactive fences are ignored
// by the tracker on the next update.
func SetGeofenceActiveHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "geofenceID"))
	if err != nil {
		http.Error(w, "Invalid geofence ID", http.StatusBadRequest)
		return
	}

	var input struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Active == nil {
		http.Error(w, "active flag is required", http.StatusBadRequest)
		return
	}

	result := db.DB.Model(&Geofence{}).Where("id = ?", id).Update("active", *input.Active)
	if result.Error != nil {
		http.Error(w, "Failed to update geofence: "+result.Error.Error(), http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Geofence not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func DeleteGeofenceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "geofenceID"))
	if err != nil {
		http.Error(w, "Invalid geofence ID", http.StatusBadRequest)
		return
	}
	if err := db.DB.Delete(&Geofence{}, "id = ?", id).Error; err != nil {
		http.Error(w, "Failed to delete geofence: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func deviceFromURL(w http.ResponseWriter, r *http.Request) (*Device, bool) {
	code := chi.URLParam(r, "code")

	var device Device
	err := db.DB.First(&device, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Device not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return &device, true
}
