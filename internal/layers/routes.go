package layers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Post("/", CreateLayerHandler)
	r.Get("/", ListLayersHandler)
	r.Get("/{layerID}", GetLayerHandler)
	r.Patch("/{layerID}", UpdateLayerHandler)
	r.Delete("/{layerID}", DeleteLayerHandler)

	r.Get("/{layerID}/features", ListFeaturesHandler)
	r.Post("/{layerID}/features", CreateFeatureHandler)
	r.Get("/{layerID}/features/{featureID}", GetFeatureHandler)
	r.Delete("/{layerID}/features/{featureID}", DeleteFeatureHandler)

	return r
}
