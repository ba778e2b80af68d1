package quality

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency bounds the number of periods processed in parallel.
const DefaultMaxConcurrency = 4

// Calculator orchestrates the QMJ factor pipeline over a full panel.
type Calculator struct {
	params         Params
	logger         *slog.Logger
	maxConcurrency int
}

// NewCalculator creates a calculator with the given parameters.
func NewCalculator(params Params, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		params:         params,
		logger:         logger,
		maxConcurrency: DefaultMaxConcurrency,
	}
}

// SetMaxConcurrency sets the period-level worker limit. Values below 1 fall
// back to sequential execution.
func (c *Calculator) SetMaxConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	c.maxConcurrency = n
}

// RunStats summarizes one pipeline run for logging and metrics.
type RunStats struct {
	PeriodsProcessed int `json:"periods_processed"`
	PeriodsSkipped   int `json:"periods_skipped"`
	DegenerateGroups int `json:"degenerate_groups"`
	EntitiesRanked   int `json:"entities_ranked"`
	EntitiesExcluded int `json:"entities_excluded"`
}

// Result holds the full output of one run. FactorReturns, Ranked, and
// Assignments are ordered by period (and rank within a period).
type Result struct {
	FactorReturns []PeriodFactorReturn  `json:"factor_returns"`
	Ranked        []RankedEntity        `json:"ranked"`
	Assignments   []PortfolioAssignment `json:"assignments"`
	Stats         RunStats              `json:"stats"`
}

// periodResult is one worker's output slot. A skipped period leaves the
// slot empty apart from its counters, so a period is either fully computed
// or entirely absent from the merged result.
type periodResult struct {
	skipped          bool
	degenerateGroups int
	excluded         int
	ranked           []RankedEntity
	assignments      []PortfolioAssignment
	factorReturn     PeriodFactorReturn
}

// Calculate runs the full pipeline: growth delta derivation, per-period
// standardization, dimension and composite scoring, ranking, bucket
// assignment, and factor return aggregation.
//
// Periods are independent, so they run on parallel workers; each worker
// writes only its own preallocated slot and the slots are merged in period
// order, making the output bit-identical for any worker count. All derived
// data is recomputed from scratch on every call.
func (c *Calculator) Calculate(ctx context.Context, records []MetricRecord) (*Result, error) {
	start := time.Now()

	c.logger.InfoContext(ctx, "starting factor calculation",
		"records", len(records),
		"composite_policy", string(c.params.CompositePolicy),
		"missing_policy", string(c.params.MissingPolicy),
		"max_concurrency", c.maxConcurrency,
	)

	if err := c.params.Validate(); err != nil {
		return nil, fmt.Errorf("validate params: %w", err)
	}
	if err := ValidatePanel(records, c.params); err != nil {
		c.logger.ErrorContext(ctx, "panel validation failed", "error", err)
		return nil, fmt.Errorf("validate panel: %w", err)
	}

	// Growth deltas need each entity's prior period, so they are derived
	// once over the whole panel before the period partitioning.
	augmented := deriveGrowthDeltas(records, c.params.Dimensions.Growth)

	periods, groups := groupByPeriod(augmented)
	c.logger.InfoContext(ctx, "grouped panel by period", "periods", len(periods))

	columns := standardizedColumns(c.params.Dimensions)
	slots := make([]periodResult, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)

	for i, period := range periods {
		i, period := i, period
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			slots[i] = c.computePeriod(gctx, period, groups[period], columns)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("period workers: %w", err)
	}

	// Merge in period order. Workers may finish out of order, but the slot
	// index fixes the sequence.
	result := &Result{}
	for i, period := range periods {
		slot := slots[i]
		result.Stats.DegenerateGroups += slot.degenerateGroups
		result.Stats.EntitiesExcluded += slot.excluded
		if slot.skipped {
			result.Stats.PeriodsSkipped++
			c.logger.WarnContext(ctx, "skipping period with no rankable entities",
				"period", period.String(),
			)
			continue
		}
		result.Stats.PeriodsProcessed++
		result.Stats.EntitiesRanked += len(slot.ranked)
		result.Ranked = append(result.Ranked, slot.ranked...)
		result.Assignments = append(result.Assignments, slot.assignments...)
		result.FactorReturns = append(result.FactorReturns, slot.factorReturn)
	}

	if result.Stats.PeriodsProcessed == 0 {
		return nil, fmt.Errorf("no period produced rankable entities (%d periods in panel)", len(periods))
	}

	c.logger.InfoContext(ctx, "factor calculation completed",
		"duration", time.Since(start),
		"periods_processed", result.Stats.PeriodsProcessed,
		"periods_skipped", result.Stats.PeriodsSkipped,
		"entities_ranked", result.Stats.EntitiesRanked,
		"degenerate_groups", result.Stats.DegenerateGroups,
	)

	return result, nil
}

// computePeriod runs stages normalize through factor aggregation for one
// period. Stages inside a period are strictly sequential; each consumes the
// full output of the previous one.
func (c *Calculator) computePeriod(ctx context.Context, period Period, records []MetricRecord, columns []string) periodResult {
	zrecs, degenerate := standardizeCrossSection(ctx, period, records, columns, c.params.MissingPolicy, c.logger)
	dims := scoreDimensions(zrecs, c.params.Dimensions)
	composites := compositeScores(dims, c.params.CompositePolicy)
	ranked := rankEntities(composites, c.params.TieBreak)

	slot := periodResult{
		degenerateGroups: degenerate,
		excluded:         len(composites) - len(ranked),
	}
	if len(ranked) == 0 {
		slot.skipped = true
		return slot
	}

	slot.ranked = ranked
	slot.assignments = assignBuckets(ranked, c.params.TopFraction, c.params.BottomFraction)
	slot.factorReturn = aggregateFactorReturn(period, slot.assignments, entityReturns(records))
	return slot
}
