package quality

// entityReturns computes the raw return for each record of one period,
// keyed by entity. The return convention is the absolute price difference
// (see MetricRecord.Return).
func entityReturns(records []MetricRecord) map[string]float64 {
	returns := make(map[string]float64, len(records))
	for _, rec := range records {
		returns[rec.EntityID] = rec.Return()
	}
	return returns
}

// aggregateFactorReturn averages the bucket returns for one period and
// forms the Quality-minus-Junk spread. An empty bucket yields a missing
// mean rather than zero, since substituting zero would silently bias the
// spread; the spread itself is missing whenever either side is.
func aggregateFactorReturn(period Period, assignments []PortfolioAssignment, returns map[string]float64) PeriodFactorReturn {
	var qualitySum, junkSum float64
	var qualityN, junkN int

	for _, a := range assignments {
		r, ok := returns[a.EntityID]
		if !ok {
			continue
		}
		switch a.Bucket {
		case BucketQuality:
			qualitySum += r
			qualityN++
		case BucketJunk:
			junkSum += r
			junkN++
		}
	}

	out := PeriodFactorReturn{
		Period:        period,
		QualityReturn: Missing(),
		JunkReturn:    Missing(),
		QMJ:           Missing(),
	}
	if qualityN > 0 {
		out.QualityReturn = qualitySum / float64(qualityN)
	}
	if junkN > 0 {
		out.JunkReturn = junkSum / float64(junkN)
	}
	if qualityN > 0 && junkN > 0 {
		out.QMJ = out.QualityReturn - out.JunkReturn
	}
	return out
}
