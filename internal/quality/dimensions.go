package quality

// standardizedColumns lists every column the normalizer must standardize:
// all level metrics referenced by the dimension map plus the derived delta
// columns backing the growth dimension.
func standardizedColumns(m DimensionMap) []string {
	cols := m.levelMetrics()
	for _, name := range m.Growth {
		cols = append(cols, deltaName(name))
	}
	return cols
}

// scoreDimensions aggregates standardized records into the four dimension
// scores. Each dimension score is the arithmetic mean of its component
// z-scores that are present; a dimension with no present component is
// missing. The growth dimension reads the derived delta columns.
func scoreDimensions(zrecs []StandardizedRecord, m DimensionMap) []DimensionScore {
	scores := make([]DimensionScore, len(zrecs))
	for i, zrec := range zrecs {
		growthCols := make([]string, len(m.Growth))
		for j, name := range m.Growth {
			growthCols[j] = deltaName(name)
		}
		scores[i] = DimensionScore{
			EntityID:      zrec.EntityID,
			Period:        zrec.Period,
			Profitability: meanOfPresent(zrec.Z, m.Profitability),
			Growth:        meanOfPresent(zrec.Z, growthCols),
			Safety:        meanOfPresent(zrec.Z, m.Safety),
			Payout:        meanOfPresent(zrec.Z, m.Payout),
		}
	}
	return scores
}

// compositeScores combines the four dimension scores into one Quality score
// per entity-period. Lenient policy averages the dimensions that are
// present; strict policy yields a missing composite if any dimension is
// missing. All four missing always yields a missing composite, never zero.
func compositeScores(scores []DimensionScore, policy CompositePolicy) []CompositeScore {
	out := make([]CompositeScore, len(scores))
	for i, ds := range scores {
		dims := []float64{ds.Profitability, ds.Growth, ds.Safety, ds.Payout}

		sum := 0.0
		present := 0
		for _, d := range dims {
			if !IsMissing(d) {
				sum += d
				present++
			}
		}

		quality := Missing()
		switch {
		case present == 0:
			// excluded from ranking downstream
		case policy == CompositeStrict && present < len(dims):
			// strict mode requires all four dimensions
		default:
			quality = sum / float64(present)
		}

		out[i] = CompositeScore{
			EntityID: ds.EntityID,
			Period:   ds.Period,
			Quality:  quality,
		}
	}
	return out
}

// meanOfPresent averages the z-scores of the named columns that are present.
// Returns missing when none are.
func meanOfPresent(z map[string]float64, columns []string) float64 {
	sum := 0.0
	present := 0
	for _, name := range columns {
		v, ok := z[name]
		if !ok || IsMissing(v) {
			continue
		}
		sum += v
		present++
	}
	if present == 0 {
		return Missing()
	}
	return sum / float64(present)
}
