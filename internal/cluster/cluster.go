package cluster

import (
	"math"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// maxMemberIDs caps the feature-identifier list carried by one cluster so a
// dense cell cannot blow up the response payload.
const maxMemberIDs = 100

// DefaultScale is the empirical multiplier applied to the zoom-derived cell
// size. It is hand-tuned for marker density on a 256px tile map; change it
// through configuration, not here.
const DefaultScale = 0.1

// Point is one clusterable input: a point feature's identifier and
// coordinates. Non-point features never reach this engine; the caller
// filters on the layer's geometry type.
type Point struct {
	ID       uuid.UUID
	Location orb.Point
}

// Bounds is the min/max envelope of a cluster's members.
type Bounds struct {
	MinLng float64 `json:"minLng"`
	MinLat float64 `json:"minLat"`
	MaxLng float64 `json:"maxLng"`
	MaxLat float64 `json:"maxLat"`
}

// ClusterPoint is one output bucket: either a singleton point or an
// aggregated cluster with its centroid, envelope and (small) member list.
type ClusterPoint struct {
	Longitude  float64     `json:"longitude"`
	Latitude   float64     `json:"latitude"`
	PointCount int         `json:"pointCount"`
	IsCluster  bool        `json:"isCluster"`
	FeatureIDs []uuid.UUID `json:"featureIds,omitempty"`
	Bounds     Bounds      `json:"bounds"`
}

// CellSizeForZoom derives the grid cell size in degrees from a map zoom
// level: the world spans 180 degrees of latitude at zoom 0 and halves per
// zoom step, scaled by the tuning constant.
func CellSizeForZoom(zoom int, scale float64) float64 {
	if scale <= 0 {
		scale = DefaultScale
	}
	return 180.0 / math.Pow(2, float64(zoom)) * scale
}

// Cluster buckets points into a uniform grid of cellSize degrees and emits
// one ClusterPoint per occupied cell. The output is a deterministic partition
// of the input: every point lands in exactly one bucket and the point counts
// sum to the input size.
func Cluster(points []Point, cellSize float64) []ClusterPoint {
	if len(points) == 0 {
		return []ClusterPoint{}
	}
	if cellSize <= 0 {
		cellSize = CellSizeForZoom(12, DefaultScale)
	}

	type cellKey struct{ x, y int }
	cells := make(map[cellKey][]Point)
	order := make([]cellKey, 0)

	for _, p := range points {
		key := cellKey{
			x: int(math.Floor(p.Location[0] / cellSize)),
			y: int(math.Floor(p.Location[1] / cellSize)),
		}
		if _, seen := cells[key]; !seen {
			order = append(order, key)
		}
		cells[key] = append(cells[key], p)
	}

	out := make([]ClusterPoint, 0, len(order))
	for _, key := range order {
		members := cells[key]

		if len(members) == 1 {
			p := members[0]
			out = append(out, ClusterPoint{
				Longitude:  p.Location[0],
				Latitude:   p.Location[1],
				PointCount: 1,
				IsCluster:  false,
				FeatureIDs: []uuid.UUID{p.ID},
				Bounds: Bounds{
					MinLng: p.Location[0], MinLat: p.Location[1],
					MaxLng: p.Location[0], MaxLat: p.Location[1],
				},
			})
			continue
		}

		var sumLng, sumLat float64
		bounds := Bounds{
			MinLng: math.MaxFloat64, MinLat: math.MaxFloat64,
			MaxLng: -math.MaxFloat64, MaxLat: -math.MaxFloat64,
		}
		ids := make([]uuid.UUID, 0, len(members))

		for _, p := range members {
			lng, lat := p.Location[0], p.Location[1]
			sumLng += lng
			sumLat += lat
			bounds.MinLng = math.Min(bounds.MinLng, lng)
			bounds.MinLat = math.Min(bounds.MinLat, lat)
			bounds.MaxLng = math.Max(bounds.MaxLng, lng)
			bounds.MaxLat = math.Max(bounds.MaxLat, lat)
			ids = append(ids, p.ID)
		}

		cp := ClusterPoint{
			Longitude:  sumLng / float64(len(members)),
			Latitude:   sumLat / float64(len(members)),
			PointCount: len(members),
			IsCluster:  true,
			Bounds:     bounds,
		}
		if len(ids) <= maxMemberIDs {
			cp.FeatureIDs = ids
		}
		out = append(out, cp)
	}

	return out
}
