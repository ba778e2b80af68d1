// Package quality implements the Quality Minus Junk (QMJ) long/short equity
// factor over a panel of entity-period fundamental metrics.
//
// The pipeline standardizes raw metrics cross-sectionally within each period,
// aggregates the z-scores into four dimension scores (Profitability, Growth,
// Safety, Payout), combines those into a composite Quality score, ranks
// entities per period, buckets the top and bottom deciles into Quality and
// Junk portfolios, and emits the per-period Quality-minus-Junk return spread.
//
// # Architecture
//
//   - types.go: core data structures, policies, and parameters
//   - history.go: per-entity period-ordered histories and growth deltas
//   - normalize.go: cross-sectional z-score standardization
//   - dimensions.go: dimension and composite score aggregation
//   - rank.go: deterministic per-period ranking
//   - portfolio.go: decile bucket assignment
//   - returns.go: entity returns and factor return aggregation
//   - calculator.go: orchestrator with period-parallel execution
//   - persist.go: CSV output formatting
//   - validate.go: input validation
//
// # Usage Example
//
//	records, err := panel.LoadCSV("data/panel.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	calc := quality.NewCalculator(quality.DefaultParams(), slog.Default())
//	result, err := calc.Calculate(ctx, records)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = quality.SaveFactorReturns(result.FactorReturns, "output/qmj.csv")
//
// # Determinism
//
// Every cross-sectional statistic (mean, standard deviation, rank, bucket
// threshold) is computed from records of a single period only. Periods are
// processed on independent workers and merged in period order, so the output
// is bit-identical for any worker count. Ties in the composite score are
// broken by entity identifier, which makes ranks reproducible across runs.
//
// # Missing Values
//
// Derived stages represent a missing observation as NaN (see Missing and
// IsMissing). A metric that is absent for an entity stays missing through
// standardization unless the zero-fill policy is configured; an entity whose
// four dimension scores are all missing is excluded from ranking and never
// receives a bucket label.
package quality
