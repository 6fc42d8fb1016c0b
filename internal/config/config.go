package config

import (
	"log"
	"os"

	"github.com/goccy/go-yaml"
)

// Config carries the tuning knobs for the analytics engines. The formulas
// behind them are empirical (see cluster and heatmap packages); the constants
// are deliberately configurable rather than re-derived.
type Config struct {
	Cluster struct {
		Scale       float64 `yaml:"scale"`        // multiplier on the zoom-derived cell size
		DefaultZoom int     `yaml:"default_zoom"` // used when a request carries no zoom
	} `yaml:"cluster"`

	Heatmap struct {
		GridSize  int     `yaml:"grid_size"`
		Radius    float64 `yaml:"radius"` // pixels
		Intensity float64 `yaml:"intensity"`
	} `yaml:"heatmap"`

	Ingest struct {
		BatchSize int `yaml:"batch_size"`
		Workers   int `yaml:"workers"`
	} `yaml:"ingest"`
}

// Default returns the built-in tuning values. They match the source system's
// hand-tuned constants and should only change with product guidance.
func Default() Config {
	var c Config
	c.Cluster.Scale = 0.1
	c.Cluster.DefaultZoom = 12
	c.Heatmap.GridSize = 256
	c.Heatmap.Radius = 20
	c.Heatmap.Intensity = 1.0
	c.Ingest.BatchSize = 100
	c.Ingest.Workers = 4
	return c
}

// Load reads the optional tuning file pointed at by GIS_CONFIG (default
// config.yaml). A missing file is not an error; defaults apply.
func Load() Config {
	c := Default()

	path := os.Getenv("GIS_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[config] failed to read %s: %v (using defaults)", path, err)
		}
		return c
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		log.Printf("[config] failed to parse %s: %v (using defaults)", path, err)
		return Default()
	}

	log.Printf("[config] loaded tuning overrides from %s", path)
	return c
}
