package analytics

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/mdung/gis-analytics-platform/internal/db"
	"github.com/mdung/gis-analytics-platform/internal/spatial"
)

// ExportHandler streams a layer as GeoJSON or CSV.
func ExportHandler(w http.ResponseWriter, r *http.Request) {
	layerID, ok := layerIDFromURL(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "geojson"
	}

	switch format {
	case "geojson":
		exportGeoJSON(w, layerID)
	case "csv":
		exportCSV(w, layerID)
	default:
		http.Error(w, "format must be geojson or csv", http.StatusBadRequest)
	}
}

func exportGeoJSON(w http.ResponseWriter, layerID uuid.UUID) {
	features, err := spatial.FeaturesInBBox(db.DB, layerID, -180, -90, 180, 90, 100000)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type fcFeature struct {
		Type       string          `json:"type"`
		ID         uuid.UUID       `json:"id"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties json.RawMessage `json:"properties"`
	}
	out := struct {
		Type     string      `json:"type"`
		Features []fcFeature `json:"features"`
	}{Type: "FeatureCollection", Features: make([]fcFeature, 0, len(features))}

	for _, f := range features {
		out.Features = append(out.Features, fcFeature{
			Type: "Feature", ID: f.ID, Geometry: f.Geometry, Properties: f.Properties,
		})
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", `attachment; filename="layer-`+layerID.String()+`.geojson"`)
	json.NewEncoder(w).Encode(out)
}

func exportCSV(w http.ResponseWriter, layerID uuid.UUID) {
	features, err := spatial.FeaturesInBBox(db.DB, layerID, -180, -90, 180, 90, 100000)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	records, err := csvRecords(features)
	if err != nil {
		http.Error(w, "Failed to encode features: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="layer-`+layerID.String()+`.csv"`)

	cw := csv.NewWriter(w)
	cw.WriteAll(records)
}

// csvRecords flattens features into CSV rows. Points get their coordinates in
// dedicated columns; other geometries are carried as WKT. Properties travel
// as a JSON column so nothing is lost to flattening.
func csvRecords(features []spatial.Feature) ([][]string, error) {
	records := [][]string{{"id", "longitude", "latitude", "wkt", "properties"}}

	for _, f := range features {
		geom, err := geojson.UnmarshalGeometry(f.Geometry)
		if err != nil {
			return nil, err
		}

		row := []string{f.ID.String(), "", "", "", string(f.Properties)}
		switch g := geom.Geometry().(type) {
		case orb.Point:
			row[1] = strconv.FormatFloat(g[0], 'f', -1, 64)
			row[2] = strconv.FormatFloat(g[1], 'f', -1, 64)
		default:
			row[3] = wkt.MarshalString(g)
		}
		records = append(records, row)
	}
	return records, nil
}
