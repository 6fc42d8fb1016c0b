package crs

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	authorityPattern = regexp.MustCompile(`(?i)AUTHORITY\["EPSG","(\d+)"\]`)
	epsgPattern      = regexp.MustCompile(`(?i)EPSG[:"]?\s*(\d+)`)
	utmZonePattern   = regexp.MustCompile(`(?i)ZONE\s*(\d+)`)
)

// DetectSRID extracts an EPSG code from PRJ sidecar text (WKT projection
// descriptions). Priority order: explicit AUTHORITY tag, any EPSG code, then
// name heuristics for systems we see in the wild. Returns 0 when nothing
// matches; the caller defaults to WGS84.
func DetectSRID(prj string) int {
	if prj == "" {
		return 0
	}

	if m := authorityPattern.FindStringSubmatch(prj); m != nil {
		if srid, err := strconv.Atoi(m[1]); err == nil {
			return srid
		}
	}

	if m := epsgPattern.FindStringSubmatch(prj); m != nil {
		if srid, err := strconv.Atoi(m[1]); err == nil {
			return srid
		}
	}

	upper := strings.ToUpper(prj)

	if strings.Contains(upper, "WGS 84") || strings.Contains(upper, "WGS84") ||
		strings.Contains(upper, "WORLD GEODETIC SYSTEM 1984") {
		return WGS84
	}

	if strings.Contains(upper, "UTM") {
		if m := utmZonePattern.FindStringSubmatch(prj); m != nil {
			zone, err := strconv.Atoi(m[1])
			if err == nil && zone >= 1 && zone <= 60 {
				if strings.Contains(upper, "SOUTH") {
					return 32700 + zone
				}
				return 32600 + zone
			}
		}
	}

	// VN-2000: regional grid family, kept as the extensibility example.
	if strings.Contains(upper, "VN-2000") || strings.Contains(upper, "VIETNAM 2000") {
		switch {
		case strings.Contains(upper, "ZONE 1"):
			return 4814
		case strings.Contains(upper, "ZONE 2"):
			return 4815
		case strings.Contains(upper, "ZONE 3"):
			return 4816
		default:
			return 4814
		}
	}

	if strings.Contains(upper, "WEB MERCATOR") || strings.Contains(upper, "GOOGLE") {
		return WebMercator
	}

	return 0
}
