package tracking

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mdung/gis-analytics-platform/internal/push"
)

func SetupRoutes(b push.Broadcaster) http.Handler {
	tracker = NewTracker(DBGeofenceProvider{}, DBPositionStore{}, b)

	r := chi.NewRouter()

	r.Post("/devices", CreateDeviceHandler)
	r.Get("/devices", ListDevicesHandler)
	r.Get("/devices/{code}", GetDeviceHandler)
	r.Delete("/devices/{code}", DeleteDeviceHandler)
	r.Post("/devices/{code}/position", UpdatePositionHandler)

	r.Post("/geofences", CreateGeofenceHandler)
	r.Get("/geofences", ListGeofencesHandler)
	r.Patch("/geofences/{geofenceID}/active", SetGeofenceActiveHandler)
	r.Delete("/geofences/{geofenceID}", DeleteGeofenceHandler)

	return r
}
