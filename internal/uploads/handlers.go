package uploads

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdung/gis-analytics-platform/internal/db"
)

// Uploaded payloads are capped at 100MB.
const maxUploadBytes = 100 << 20

// service is wired by SetupRoutes.
var service *Service

// CreateUploadHandler accepts a multipart file, stores the raw payload and
// queues it for asynchronous processing. The response carries the upload id
// the client polls for status.
func CreateUploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart request: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	upload := Upload{
		ID:        uuid.New(),
		FileName:  header.Filename,
		Status:    StatusUploaded,
		LatColumn: r.FormValue("lat_column"),
		LngColumn: r.FormValue("lng_column"),
	}
	upload.FileKey = "uploads/" + upload.ID.String() + "/" + header.Filename

	if v := r.FormValue("layer_id"); v != "" {
		layerID, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "Invalid layer_id", http.StatusBadRequest)
			return
		}
		upload.LayerID = &layerID
	}
	if v := r.FormValue("srid"); v != "" {
		srid, err := strconv.Atoi(v)
		if err != nil || srid < 0 {
			http.Error(w, "Invalid srid", http.StatusBadRequest)
			return
		}
		upload.SRID = srid
	}

	if err := service.store.Put(upload.FileKey, data); err != nil {
		http.Error(w, "Failed to store file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := db.DB.Create(&upload).Error; err != nil {
		http.Error(w, "Failed to create upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if !service.Enqueue(upload.ID) {
		http.Error(w, "Processing queue is full, try again later", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(upload)
}

func ListUploadsHandler(w http.ResponseWriter, r *http.Request) {
	query := db.DB.Order("created_at DESC").Limit(100)
	if v := r.URL.Query().Get("layer_id"); v != "" {
		layerID, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "Invalid layer_id", http.StatusBadRequest)
			return
		}
		query = query.Where("layer_id = ?", layerID)
	}

	var list []Upload
	if err := query.Find(&list).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func GetUploadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "uploadID"))
	if err != nil {
		http.Error(w, "Invalid upload ID", http.StatusBadRequest)
		return
	}

	var upload Upload
	err = db.DB.First(&upload, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Upload not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(upload)
}
