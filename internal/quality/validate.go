package quality

import (
	"fmt"
	"sort"
)

// ValidationError describes an input or configuration problem detected
// before any period is processed.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePanel checks the input panel against the configured parameters.
// It fails before any period runs when the panel is empty, a record lacks an
// entity or period, the same entity-period appears twice, or a metric named
// by the dimension map never appears in the panel (a missing input column).
func ValidatePanel(records []MetricRecord, params Params) error {
	if len(records) == 0 {
		return &ValidationError{Field: "panel", Message: "no input records"}
	}

	seen := make(map[string]bool, len(records))
	present := make(map[string]bool)

	for i, rec := range records {
		if rec.EntityID == "" {
			return &ValidationError{Field: "entity_id", Message: "empty entity identifier", Value: i}
		}
		if rec.Period.Year == 0 {
			return &ValidationError{Field: "period", Message: "missing period", Value: rec.EntityID}
		}
		if rec.Period.Month < 0 || rec.Period.Month > 12 {
			return &ValidationError{Field: "period", Message: "month out of range", Value: rec.Period.Month}
		}

		key := rec.EntityID + "|" + rec.Period.String()
		if seen[key] {
			return &ValidationError{Field: "panel", Message: "duplicate entity-period observation", Value: key}
		}
		seen[key] = true

		for name := range rec.Metrics {
			present[name] = true
		}
	}

	// A metric referenced by the dimension map that never occurs anywhere in
	// the panel means the input column is absent, which is fatal.
	var missing []string
	for _, name := range params.Dimensions.levelMetrics() {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Field: "metrics", Message: "required metric columns absent from panel", Value: missing}
	}

	return nil
}
