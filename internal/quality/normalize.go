package quality

import (
	"context"
	"log/slog"
	"math"
)

// standardizeCrossSection computes per-metric z-scores for one period's
// records. For each metric, the population mean and population standard
// deviation are estimated over the entities with a present value; entities
// missing the metric keep a missing z-score unless the zero-fill policy is
// set. A metric whose cross-sectional standard deviation is zero degrades to
// z = 0 for every present entity, with one warning per degenerate group.
//
// Returns the standardized records in input order and the number of
// degenerate (zero-variance) metric groups encountered.
func standardizeCrossSection(ctx context.Context, period Period, records []MetricRecord, metrics []string, policy MissingPolicy, logger *slog.Logger) ([]StandardizedRecord, int) {
	out := make([]StandardizedRecord, len(records))
	for i, rec := range records {
		out[i] = StandardizedRecord{
			EntityID: rec.EntityID,
			Period:   rec.Period,
			Z:        make(map[string]float64, len(metrics)),
		}
		for _, name := range metrics {
			out[i].Z[name] = Missing()
		}
	}

	degenerate := 0

	for _, name := range metrics {
		values := make([]float64, 0, len(records))
		indices := make([]int, 0, len(records))
		for i, rec := range records {
			if v, ok := rec.Metric(name); ok {
				values = append(values, v)
				indices = append(indices, i)
			}
		}
		if len(values) == 0 {
			continue
		}

		mean := meanOf(values)
		sigma := populationStdDev(values, mean)

		if sigma == 0 {
			degenerate++
			logger.WarnContext(ctx, "zero cross-sectional variance, degrading to z=0",
				"period", period.String(),
				"metric", name,
				"entities", len(values),
			)
			for _, idx := range indices {
				out[idx].Z[name] = 0
			}
		} else {
			for j, idx := range indices {
				out[idx].Z[name] = (values[j] - mean) / sigma
			}
		}
	}

	if policy == MissingZeroFill {
		for i := range out {
			for name, z := range out[i].Z {
				if IsMissing(z) {
					out[i].Z[name] = 0
				}
			}
		}
	}

	return out, degenerate
}

// meanOf computes the arithmetic mean. Callers guarantee len(values) > 0.
func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStdDev computes the population (not sample) standard deviation.
func populationStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
