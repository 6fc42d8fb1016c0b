package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Column name synonyms for coordinate auto-detection, in priority order.
var (
	latPatterns = []string{"lat", "latitude", "y", "ycoord", "y_coord"}
	lngPatterns = []string{"lng", "lon", "long", "longitude", "x", "xcoord", "x_coord"}
)

// DetectLatLngColumns picks the latitude and longitude columns out of a CSV
// header: exact case-insensitive matches first, substring matches second,
// always in synonym priority order. Empty results mean no candidate.
func DetectLatLngColumns(headers []string) (latColumn, lngColumn string) {
	return findMatchingColumn(headers, latPatterns), findMatchingColumn(headers, lngPatterns)
}

func findMatchingColumn(headers []string, patterns []string) string {
	for _, pattern := range patterns {
		for _, header := range headers {
			if strings.EqualFold(header, pattern) {
				return header
			}
		}
	}
	for _, pattern := range patterns {
		for _, header := range headers {
			h := strings.ToLower(header)
			if strings.Contains(h, pattern) || strings.Contains(pattern, h) {
				return header
			}
		}
	}
	return ""
}

// ParseCSV decodes delimited text into point features. When latColumn or
// lngColumn is empty, columns are auto-detected; detection failure is fatal
// and names the available columns. Per row: missing or non-numeric
// coordinates skip the row, while out-of-range coordinates fail the whole
// parse since they signal a column-mapping mistake, not a one-off bad row.
func ParseCSV(data []byte, latColumn, lngColumn string) ([]ParsedFeature, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("csv has no header row")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "﻿")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	if latColumn == "" || lngColumn == "" {
		latColumn, lngColumn = DetectLatLngColumns(header)
		if latColumn == "" || lngColumn == "" {
			return nil, fmt.Errorf("could not auto-detect lat/lng columns; available columns: %v", header)
		}
	}

	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}
	latIdx, latOK := col[latColumn]
	lngIdx, lngOK := col[lngColumn]
	if !latOK || !lngOK {
		return nil, fmt.Errorf("lat/lng columns not found (lat: %s, lng: %s); available columns: %v",
			latColumn, lngColumn, header)
	}

	var features []ParsedFeature
	for rowIdx := 1; rowIdx < len(records); rowIdx++ {
		rec := records[rowIdx]
		if latIdx >= len(rec) || lngIdx >= len(rec) {
			log.Printf("[ingest] skipping csv row %d: too few fields", rowIdx+1)
			continue
		}

		latStr := strings.TrimSpace(rec[latIdx])
		lngStr := strings.TrimSpace(rec[lngIdx])
		if latStr == "" || lngStr == "" {
			continue
		}

		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			log.Printf("[ingest] skipping csv row %d: invalid coordinate number", rowIdx+1)
			continue
		}

		if lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid latitude %f at row %d (must be between -90 and 90)", lat, rowIdx+1)
		}
		if lng < -180 || lng > 180 {
			return nil, fmt.Errorf("invalid longitude %f at row %d (must be between -180 and 180)", lng, rowIdx+1)
		}

		props := make(map[string]any)
		for name, idx := range col {
			if name == latColumn || name == lngColumn || idx >= len(rec) {
				continue
			}
			props[name] = parseAttributeValue(rec[idx])
		}

		features = append(features, ParsedFeature{
			Geometry:   orb.Point{lng, lat},
			Properties: props,
		})
	}

	return features, nil
}

// parseAttributeValue types a raw cell opportunistically: integer, then
// float, then string. Empty cells become nil.
func parseAttributeValue(raw string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	if !strings.Contains(v, ".") {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
