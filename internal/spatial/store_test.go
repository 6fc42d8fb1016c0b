package spatial

import (
	"strings"
	"testing"
)

// Every read path must carry the tombstone filter and the delete path must
// stamp rather than remove. These are compile-time constants, so asserting on
// their text guards the invariant without a database.
func TestQueriesFilterTombstones(t *testing.T) {
	reads := map[string]string{
		"featureByID":    featureByIDQuery,
		"countFeatures":  countFeaturesQuery,
		"featuresInBBox": featuresInBBoxQuery,
		"byRelation":     queryByRelationTemplate,
		"withinDistance": withinDistanceQuery,
		"nearest":        nearestQuery,
		"pointsForLayer": pointsForLayerQuery,
	}
	for name, q := range reads {
		if !strings.Contains(q, "deleted_at IS NULL") {
			t.Errorf("%s query does not exclude tombstoned features", name)
		}
	}
}

func TestDeleteIsSoft(t *testing.T) {
	if !strings.Contains(deleteFeatureQuery, "UPDATE") ||
		!strings.Contains(deleteFeatureQuery, "SET deleted_at = NOW()") {
		t.Errorf("delete must stamp a tombstone, got: %s", deleteFeatureQuery)
	}
	if strings.Contains(deleteFeatureQuery, "DELETE FROM") {
		t.Errorf("delete must not physically remove rows: %s", deleteFeatureQuery)
	}
}
