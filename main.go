package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/mdung/gis-analytics-platform/internal/analytics"
	"github.com/mdung/gis-analytics-platform/internal/config"
	"github.com/mdung/gis-analytics-platform/internal/db"
	"github.com/mdung/gis-analytics-platform/internal/layers"
	"github.com/mdung/gis-analytics-platform/internal/middleware"
	"github.com/mdung/gis-analytics-platform/internal/objectstore"
	"github.com/mdung/gis-analytics-platform/internal/push"
	"github.com/mdung/gis-analytics-platform/internal/tracking"
	"github.com/mdung/gis-analytics-platform/internal/uploads"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	cfg := config.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	storageRoot := os.Getenv("STORAGE_ROOT")
	if storageRoot == "" {
		storageRoot = "./data/uploads"
	}
	store, err := objectstore.NewFileStore(storageRoot)
	if err != nil {
		fmt.Println("Failed to init object store:", err)
		os.Exit(1)
	}

	layers.Init()
	tracking.Init()
	uploads.Init()

	hub := push.NewHub()
	uploadService := uploads.NewService(store, cfg)
	defer uploadService.Close()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RateLimitMiddleware(50, 100))
	r.Get("/", RootHandler)

	r.Mount("/layers", layers.SetupRoutes())
	r.Mount("/uploads", uploads.SetupRoutes(uploadService))
	r.Mount("/tracking", tracking.SetupRoutes(hub))
	r.Mount("/analytics", analytics.SetupRoutes(cfg))

	fmt.Println("Server listening on port :" + port + "...")

	go func() {
		if err := http.ListenAndServe("0.0.0.0:"+port, r); err != nil {
			fmt.Println("Server error:", err)
			os.Exit(1)
		}
	}()

	// Drain in-flight uploads before exiting.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	fmt.Println("Shutting down...")
}
