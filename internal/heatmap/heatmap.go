package heatmap

import (
	"math"

	"github.com/paulmach/orb"
)

// Cells below this normalized intensity are dropped from the output.
const significanceThreshold = 0.01

// tileSize is the pixel width the radius-to-degrees conversion assumes, so a
// radius of N pixels covers N/256 of the bbox width regardless of zoom.
const tileSize = 256.0

// Request describes one heat-grid computation over a bounding box.
type Request struct {
	MinLng, MinLat float64
	MaxLng, MaxLat float64
	GridSize       int     // square grid resolution N
	Radius         float64 // heat radius in pixel-equivalent units
	Intensity      float64 // per-point weight multiplier
}

// Cell is one emitted heat cell: grid coordinate, geographic center of the
// cell, and normalized intensity in [0,1].
type Cell struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Intensity float64 `json:"intensity"`
	GridX     int     `json:"gridX"`
	GridY     int     `json:"gridY"`
}

// Generate accumulates a Gaussian-like falloff from every input point into an
// N-by-N grid, normalizes the grid by its own maximum and emits the cells
// above the significance threshold. An empty input (or an all-zero grid)
// yields an empty result, never a division by zero.
func Generate(points []orb.Point, req Request) []Cell {
	if len(points) == 0 || req.GridSize <= 0 {
		return []Cell{}
	}
	if req.Intensity <= 0 {
		req.Intensity = 1.0
	}

	n := req.GridSize
	cellSizeLng := (req.MaxLng - req.MinLng) / float64(n)
	cellSizeLat := (req.MaxLat - req.MinLat) / float64(n)
	if cellSizeLng <= 0 || cellSizeLat <= 0 {
		return []Cell{}
	}

	radiusDegrees := radiusInDegrees(req)
	maxCell := math.Max(cellSizeLng, cellSizeLat)
	radiusCells := int(math.Ceil(radiusDegrees / maxCell))

	grid := make([][]float64, n)
	for i := range grid {
		grid[i] = make([]float64, n)
	}

	for _, p := range points {
		lng, lat := p[0], p[1]
		centerX := int((lng - req.MinLng) / cellSizeLng)
		centerY := int((lat - req.MinLat) / cellSizeLat)

		for dx := -radiusCells; dx <= radiusCells; dx++ {
			for dy := -radiusCells; dy <= radiusCells; dy++ {
				gx := centerX + dx
				gy := centerY + dy
				if gx < 0 || gx >= n || gy < 0 || gy >= n {
					continue
				}

				cellLng := req.MinLng + (float64(gx)+0.5)*cellSizeLng
				cellLat := req.MinLat + (float64(gy)+0.5)*cellSizeLat
				dLng := cellLng - lng
				dLat := cellLat - lat
				dist := math.Sqrt(dLng*dLng + dLat*dLat)
				if dist > radiusDegrees {
					continue
				}

				// Gaussian falloff with sigma = radius/2.
				sigma := radiusDegrees / 2
				grid[gy][gx] += math.Exp(-(dist*dist)/(2*sigma*sigma)) * req.Intensity
			}
		}
	}

	maxIntensity := 0.0
	for _, row := range grid {
		for _, v := range row {
			if v > maxIntensity {
				maxIntensity = v
			}
		}
	}
	if maxIntensity == 0 {
		return []Cell{}
	}

	var cells []Cell
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			intensity := grid[y][x] / maxIntensity
			if intensity <= significanceThreshold {
				continue
			}
			cells = append(cells, Cell{
				Longitude: req.MinLng + (float64(x)+0.5)*cellSizeLng,
				Latitude:  req.MinLat + (float64(y)+0.5)*cellSizeLat,
				Intensity: intensity,
				GridX:     x,
				GridY:     y,
			})
		}
	}

	return cells
}

// radiusInDegrees converts the pixel radius into degrees using the bbox's
// degrees-per-pixel ratio under the fixed 256px tile assumption.
func radiusInDegrees(req Request) float64 {
	degPerPixelLng := (req.MaxLng - req.MinLng) / tileSize
	degPerPixelLat := (req.MaxLat - req.MinLat) / tileSize
	return req.Radius * (degPerPixelLng + degPerPixelLat) / 2
}
