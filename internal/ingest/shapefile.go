package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/mdung/gis-analytics-platform/internal/crs"
)

// Sidecar extensions worth extracting from a shapefile bundle.
var shapefileComponents = map[string]bool{
	".shp": true,
	".dbf": true,
	".shx": true,
	".prj": true,
	".cpg": true,
}

// ParseShapefileZip extracts a zipped shapefile bundle into a scratch
// directory, decodes the geometry and attribute records, and detects the
// source CRS from the .prj sidecar when present. The scratch directory is
// removed on every exit path.
func ParseShapefileZip(data []byte) ([]ParsedFeature, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "shapefile_")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Printf("[ingest] failed to clean scratch dir %s: %v", tempDir, err)
		}
	}()

	extracted := map[string]string{}
	for _, f := range zr.File {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !shapefileComponents[ext] || f.FileInfo().IsDir() {
			continue
		}
		// Flatten to the base name; archives from desktop GIS tools often
		// nest their members in a folder.
		dest := filepath.Join(tempDir, "upload"+ext)
		if err := extractZipMember(f, dest); err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		extracted[ext] = dest
	}

	shpPath, ok := extracted[".shp"]
	if !ok {
		return nil, fmt.Errorf("shapefile zip must contain a .shp file")
	}

	sourceSRID := 0
	if prjPath, ok := extracted[".prj"]; ok {
		prjText, err := os.ReadFile(prjPath)
		if err == nil {
			sourceSRID = crs.DetectSRID(string(prjText))
		}
	}

	features, err := parseShapefile(shpPath, extracted[".dbf"] != "")
	if err != nil {
		return nil, err
	}

	if sourceSRID != 0 {
		for i := range features {
			features[i].SourceSRID = sourceSRID
		}
	}

	return features, nil
}

func extractZipMember(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

func parseShapefile(shpPath string, hasDBF bool) ([]ParsedFeature, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer reader.Close()

	var fields []shp.Field
	if hasDBF {
		fields = reader.Fields()
	}

	var features []ParsedFeature
	for reader.Next() {
		row, shape := reader.Shape()

		geom := shapeToGeometry(shape)
		if geom == nil {
			log.Printf("[ingest] skipping shapefile record %d: unsupported or empty shape", row)
			continue
		}

		props := make(map[string]any, len(fields))
		for col, field := range fields {
			name := field.String()
			if name == "" {
				continue
			}
			props[name] = parseAttributeValue(reader.ReadAttribute(row, col))
		}

		features = append(features, ParsedFeature{Geometry: geom, Properties: props})
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}

	return features, nil
}

// shapeToGeometry converts go-shp shapes into orb geometries. Returns nil for
// shape classes we do not ingest.
func shapeToGeometry(s shp.Shape) orb.Geometry {
	switch v := s.(type) {
	case *shp.Point:
		return orb.Point{v.X, v.Y}
	case *shp.MultiPoint:
		mp := make(orb.MultiPoint, 0, len(v.Points))
		for _, p := range v.Points {
			mp = append(mp, orb.Point{p.X, p.Y})
		}
		return mp
	case *shp.PolyLine:
		lines := splitParts(v.Parts, v.Points)
		if len(lines) == 1 {
			return orb.LineString(lines[0])
		}
		mls := make(orb.MultiLineString, 0, len(lines))
		for _, l := range lines {
			mls = append(mls, orb.LineString(l))
		}
		return mls
	case *shp.Polygon:
		rings := splitParts(v.Parts, v.Points)
		poly := make(orb.Polygon, 0, len(rings))
		for _, r := range rings {
			poly = append(poly, orb.Ring(r))
		}
		return poly
	default:
		return nil
	}
}

func splitParts(parts []int32, points []shp.Point) [][]orb.Point {
	if len(parts) == 0 {
		parts = []int32{0}
	}
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		seg := make([]orb.Point, 0, end-int(start))
		for _, p := range points[start:end] {
			seg = append(seg, orb.Point{p.X, p.Y})
		}
		out = append(out, seg)
	}
	return out
}
