package quality

import (
	"fmt"
	"math"
)

// Period identifies one cross-section of the panel. Month is 0 for annual
// panels and 1-12 for monthly panels.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
}

// Before reports whether p precedes o in calendar order.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// String returns "2024" for annual periods and "2024-03" for monthly ones.
func (p Period) String() string {
	if p.Month == 0 {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Missing returns the sentinel used for absent observations in derived data.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// RequiredMetrics lists the fourteen raw metric columns every input panel
// must provide.
var RequiredMetrics = []string{
	"gpoa", "roe", "roa", "cfoa", "gmar", "acc",
	"bab", "lev", "o", "z", "evol",
	"eiss", "diss", "npop",
}

// MetricRecord is one immutable input observation: an entity in a period,
// its raw metric values, and its price pair. Metrics holds present values
// only; an absent key means the metric is missing for that entity-period.
type MetricRecord struct {
	EntityID  string             `json:"entity_id"`
	Period    Period             `json:"period"`
	Metrics   map[string]float64 `json:"metrics"`
	Price     float64            `json:"price"`
	PrevPrice float64            `json:"prev_price"`
}

// Metric returns the raw value for name and whether it is present.
func (r MetricRecord) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// Return is the entity's raw return for the period, defined as the absolute
// price difference price - prev_price. This is a deliberate convention
// carried from the source methodology, not a percentage return; callers
// needing percentage returns must divide by PrevPrice themselves.
func (r MetricRecord) Return() float64 {
	return r.Price - r.PrevPrice
}

// StandardizedRecord holds the per-metric z-scores of one entity-period.
// Missing z-scores are stored as NaN.
type StandardizedRecord struct {
	EntityID string             `json:"entity_id"`
	Period   Period             `json:"period"`
	Z        map[string]float64 `json:"z"`
}

// DimensionScore holds the four sub-factor scores of one entity-period.
// A score is NaN when none of its component z-scores were present.
type DimensionScore struct {
	EntityID      string  `json:"entity_id"`
	Period        Period  `json:"period"`
	Profitability float64 `json:"profitability"`
	Growth        float64 `json:"growth"`
	Safety        float64 `json:"safety"`
	Payout        float64 `json:"payout"`
}

// CompositeScore is the combined Quality score of one entity-period, NaN
// when the composite policy leaves it undefined.
type CompositeScore struct {
	EntityID string  `json:"entity_id"`
	Period   Period  `json:"period"`
	Quality  float64 `json:"quality"`
}

// RankedEntity is an entity with a present Quality score and its 1-based
// rank within the period; rank 1 is the highest quality.
type RankedEntity struct {
	EntityID string  `json:"entity_id"`
	Period   Period  `json:"period"`
	Quality  float64 `json:"quality"`
	Rank     int     `json:"rank"`
}

// Bucket labels the portfolio an entity is assigned to within a period.
type Bucket int

const (
	// BucketNeutral holds entities between the top and bottom deciles.
	BucketNeutral Bucket = iota
	// BucketQuality holds the top decile by Quality score.
	BucketQuality
	// BucketJunk holds the bottom decile by Quality score.
	BucketJunk
)

// String returns the bucket label used in output tables.
func (b Bucket) String() string {
	switch b {
	case BucketQuality:
		return "Quality"
	case BucketJunk:
		return "Junk"
	case BucketNeutral:
		return "Neutral"
	default:
		return "unknown"
	}
}

// PortfolioAssignment maps a ranked entity-period to its bucket. Entities
// excluded from ranking never appear in assignments.
type PortfolioAssignment struct {
	EntityID string `json:"entity_id"`
	Period   Period `json:"period"`
	Bucket   Bucket `json:"bucket"`
}

// PeriodFactorReturn is one row of the output series. QualityReturn or
// JunkReturn is NaN when the corresponding bucket was empty, and QMJ is NaN
// whenever either side is.
type PeriodFactorReturn struct {
	Period        Period  `json:"period"`
	QualityReturn float64 `json:"quality_return"`
	JunkReturn    float64 `json:"junk_return"`
	QMJ           float64 `json:"qmj"`
}

// MissingPolicy controls how missing z-scores propagate past
// standardization.
type MissingPolicy string

const (
	// MissingExclude keeps missing z-scores missing (default).
	MissingExclude MissingPolicy = "exclude"
	// MissingZeroFill writes 0 for missing z-scores after standardization.
	// Population statistics are still estimated from present values only.
	MissingZeroFill MissingPolicy = "zero-fill"
)

// CompositePolicy controls how missing dimension scores affect the
// composite.
type CompositePolicy string

const (
	// CompositeLenient averages the dimension scores that are present.
	CompositeLenient CompositePolicy = "lenient"
	// CompositeStrict makes the composite missing if any dimension is.
	CompositeStrict CompositePolicy = "strict"
)

// TieBreak selects the secondary sort key used when two entities share the
// same Quality score. The primary key is always Quality descending.
type TieBreak string

const (
	// TieBreakEntityAsc orders tied entities by identifier ascending
	// (default).
	TieBreakEntityAsc TieBreak = "entity_asc"
	// TieBreakEntityDesc orders tied entities by identifier descending.
	TieBreakEntityDesc TieBreak = "entity_desc"
)

// DimensionMap fixes which raw metrics feed each dimension. Growth lists the
// level metrics whose period-over-period deltas form the growth components;
// the deltas are derived per entity before standardization.
type DimensionMap struct {
	Profitability []string `json:"profitability" yaml:"profitability"`
	Growth        []string `json:"growth" yaml:"growth"`
	Safety        []string `json:"safety" yaml:"safety"`
	Payout        []string `json:"payout" yaml:"payout"`
}

// DefaultDimensionMap returns the standard QMJ component mapping:
// six profitability metrics, five growth deltas, five safety metrics, and
// three payout metrics.
func DefaultDimensionMap() DimensionMap {
	return DimensionMap{
		Profitability: []string{"gpoa", "roe", "roa", "cfoa", "gmar", "acc"},
		Growth:        []string{"gpoa", "roe", "roa", "cfoa", "gmar"},
		Safety:        []string{"bab", "lev", "o", "z", "evol"},
		Payout:        []string{"eiss", "diss", "npop"},
	}
}

// Params configures one pipeline run.
type Params struct {
	Dimensions      DimensionMap    `json:"dimensions"`
	MissingPolicy   MissingPolicy   `json:"missing_value_policy"`
	CompositePolicy CompositePolicy `json:"composite_policy"`
	TopFraction     float64         `json:"top_decile_fraction"`
	BottomFraction  float64         `json:"bottom_decile_fraction"`
	TieBreak        TieBreak        `json:"tie_break_key"`
}

// DefaultParams returns the standard configuration: lenient composite,
// missing values excluded, 10% deciles, entity-ascending tie-break.
func DefaultParams() Params {
	return Params{
		Dimensions:      DefaultDimensionMap(),
		MissingPolicy:   MissingExclude,
		CompositePolicy: CompositeLenient,
		TopFraction:     0.1,
		BottomFraction:  0.1,
		TieBreak:        TieBreakEntityAsc,
	}
}

// Validate checks the parameter set for internal consistency.
func (p Params) Validate() error {
	switch p.MissingPolicy {
	case MissingExclude, MissingZeroFill:
	default:
		return &ValidationError{Field: "missing_value_policy", Message: "must be one of exclude, zero-fill", Value: string(p.MissingPolicy)}
	}
	switch p.CompositePolicy {
	case CompositeLenient, CompositeStrict:
	default:
		return &ValidationError{Field: "composite_policy", Message: "must be one of lenient, strict", Value: string(p.CompositePolicy)}
	}
	switch p.TieBreak {
	case TieBreakEntityAsc, TieBreakEntityDesc:
	default:
		return &ValidationError{Field: "tie_break_key", Message: "must be one of entity_asc, entity_desc", Value: string(p.TieBreak)}
	}
	if p.TopFraction <= 0 || p.TopFraction > 1 {
		return &ValidationError{Field: "top_decile_fraction", Message: "must be in (0, 1]", Value: p.TopFraction}
	}
	if p.BottomFraction <= 0 || p.BottomFraction > 1 {
		return &ValidationError{Field: "bottom_decile_fraction", Message: "must be in (0, 1]", Value: p.BottomFraction}
	}
	if p.TopFraction+p.BottomFraction > 1 {
		return &ValidationError{Field: "top_decile_fraction", Message: "top and bottom fractions must not overlap", Value: p.TopFraction + p.BottomFraction}
	}
	if len(p.Dimensions.Profitability) == 0 && len(p.Dimensions.Growth) == 0 &&
		len(p.Dimensions.Safety) == 0 && len(p.Dimensions.Payout) == 0 {
		return &ValidationError{Field: "dimension_metric_map", Message: "at least one dimension must have components"}
	}
	return nil
}

// levelMetrics returns every raw metric the dimension map references,
// deduplicated. Growth entries reference level metrics: their deltas are
// derived, not read from the panel.
func (m DimensionMap) levelMetrics() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{m.Profitability, m.Growth, m.Safety, m.Payout} {
		for _, name := range group {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// deltaName is the derived-column name for a growth delta of a level metric.
func deltaName(metric string) string {
	return "d_" + metric
}
