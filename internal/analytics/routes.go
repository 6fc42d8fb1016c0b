package analytics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mdung/gis-analytics-platform/internal/cache"
	"github.com/mdung/gis-analytics-platform/internal/config"
)

// Computed map products stay cached for one minute.
const cacheTTL = time.Minute

func SetupRoutes(c config.Config) http.Handler {
	cfg = c
	productCache = cache.New(cacheTTL)

	r := chi.NewRouter()
	r.Get("/layers/{layerID}/clusters", ClusterHandler)
	r.Get("/layers/{layerID}/heatmap", HeatmapHandler)
	r.Post("/layers/{layerID}/query", QueryHandler)
	r.Get("/layers/{layerID}/nearest", NearestHandler)
	r.Get("/layers/{layerID}/within-distance", WithinDistanceHandler)
	r.Get("/layers/{layerID}/export", ExportHandler)
	return r
}
