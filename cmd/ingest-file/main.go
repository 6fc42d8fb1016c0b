package main

import (
	"flag"
	"log"
	"os"

	"github.com/mdung/gis-analytics-platform/internal/bulkimport"
)

func main() {
	var (
		filePath  = flag.String("file", "", "path to GeoJSON, CSV or zipped shapefile")
		dbURL     = flag.String("db", "", "DATABASE_URL")
		layerName = flag.String("layer", "", "target layer name (defaults to file name)")
		srid      = flag.Int("srid", 0, "source SRID when the file does not declare one")
		latCol    = flag.String("lat", "", "CSV latitude column override")
		lngCol    = flag.String("lng", "", "CSV longitude column override")
		batchSize = flag.Int("batch", 100, "insert batch size")
	)
	flag.Parse()

	if *filePath == "" || *dbURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := bulkimport.Config{
		FilePath:    *filePath,
		DatabaseURL: *dbURL,
		LayerName:   *layerName,
		SRID:        *srid,
		LatColumn:   *latCol,
		LngColumn:   *lngCol,
		BatchSize:   *batchSize,
	}

	if err := bulkimport.Run(cfg); err != nil {
		log.Fatal(err)
	}
}
