package annotate

import (
	"fmt"

	"github.com/inodb/vibe-regions/internal/cache"
	"github.com/inodb/vibe-regions/internal/region"
)

// ConfigError rejects a run before any region is processed.
type ConfigError struct {
	Field  string // "mode" or "region"
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// QueryError reports a failed feature index lookup for one region.
type QueryError struct {
	Region region.Region
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed for region %s: %v", e.Region, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Anomaly reasons.
const (
	AnomalyMissingID = "missing transcript identifier"
	AnomalyEmptySpan = "non-positive feature span"
	AnomalyOrphan    = "parent transcript not found"
	AnomalyDuplicate = "duplicate transcript row"
)

// Anomaly describes a feature row skipped while grouping a region's hits.
type Anomaly struct {
	Region    region.Region
	FeatureID string
	Level     cache.Level
	Reason    string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: %s %s: %s", a.Region, a.Level, a.FeatureID, a.Reason)
}
