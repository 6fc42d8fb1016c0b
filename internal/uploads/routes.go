package uploads

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(s *Service) http.Handler {
	service = s

	r := chi.NewRouter()
	r.Post("/", CreateUploadHandler)
	r.Get("/", ListUploadsHandler)
	r.Get("/{uploadID}", GetUploadHandler)
	return r
}
