package crs

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// SRIDs this package treats specially.
const (
	WGS84       = 4326
	WebMercator = 3857
)

var errUnsupportedPair = errors.New("srid pair not supported by this strategy")

// TransformError reports that every strategy in the chain failed for a
// source/target pair. It is fatal for the single record being transformed,
// not for the batch.
type TransformError struct {
	SourceSRID int
	TargetSRID int
	Err        error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("failed to transform CRS from EPSG:%d to EPSG:%d: %v", e.SourceSRID, e.TargetSRID, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Strategy is one way of reprojecting a geometry. Strategies are tried in
// order; returning errUnsupportedPair (or any other error) hands the input to
// the next strategy in the chain.
type Strategy interface {
	Name() string
	Transform(g orb.Geometry, sourceSRID, targetSRID int) (orb.Geometry, error)
}

// Transformer runs an ordered chain of transform strategies. Adding or
// reordering strategies is a constructor change, nothing more.
type Transformer struct {
	strategies []Strategy
}

// NewTransformer builds the default chain: the orb web-mercator projection
// first, the ellipsoidal transverse-Mercator implementation as fallback.
func NewTransformer() *Transformer {
	return &Transformer{
		strategies: []Strategy{
			mercatorStrategy{},
			ellipsoidalStrategy{},
		},
	}
}

// Transform reprojects g from sourceSRID to targetSRID. An unknown (zero)
// source or an identical pair is a no-op. If every strategy fails, the
// returned error is a *TransformError.
func (t *Transformer) Transform(g orb.Geometry, sourceSRID, targetSRID int) (orb.Geometry, error) {
	if g == nil || sourceSRID == 0 || sourceSRID == targetSRID {
		return g, nil
	}

	var lastErr error
	for _, s := range t.strategies {
		out, err := s.Transform(g, sourceSRID, targetSRID)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}

	return nil, &TransformError{SourceSRID: sourceSRID, TargetSRID: targetSRID, Err: lastErr}
}
