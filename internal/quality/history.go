package quality

import (
	"sort"
)

// buildHistories groups the panel into per-entity slices ordered by period.
// Cross-period lookups (growth deltas) always go through these explicit
// ordered histories rather than relying on the input ordering.
func buildHistories(records []MetricRecord) map[string][]MetricRecord {
	histories := make(map[string][]MetricRecord)
	for _, rec := range records {
		histories[rec.EntityID] = append(histories[rec.EntityID], rec)
	}
	for _, history := range histories {
		sort.Slice(history, func(i, j int) bool {
			return history[i].Period.Before(history[j].Period)
		})
	}
	return histories
}

// deriveGrowthDeltas returns a copy of the panel where each record carries
// derived delta columns d_<metric> = metric(period) - metric(previous period
// of that entity) for every metric in growthMetrics. The previous period is
// the entity's own preceding observation in its ordered history, whatever
// the calendar gap. An entity's first observation, or a pair where either
// side is missing, yields no delta entry (the delta stays missing). Input
// records are never mutated.
func deriveGrowthDeltas(records []MetricRecord, growthMetrics []string) []MetricRecord {
	if len(growthMetrics) == 0 {
		return records
	}

	histories := buildHistories(records)

	// Deltas keyed by entity-period, computed by walking each history once.
	type entityPeriod struct {
		entity string
		period Period
	}
	deltas := make(map[entityPeriod]map[string]float64)

	for entity, history := range histories {
		for i := 1; i < len(history); i++ {
			cur, prev := history[i], history[i-1]
			for _, name := range growthMetrics {
				curVal, curOK := cur.Metric(name)
				prevVal, prevOK := prev.Metric(name)
				if !curOK || !prevOK {
					continue
				}
				key := entityPeriod{entity, cur.Period}
				if deltas[key] == nil {
					deltas[key] = make(map[string]float64, len(growthMetrics))
				}
				deltas[key][deltaName(name)] = curVal - prevVal
			}
		}
	}

	out := make([]MetricRecord, len(records))
	for i, rec := range records {
		extra := deltas[entityPeriod{rec.EntityID, rec.Period}]
		if len(extra) == 0 {
			out[i] = rec
			continue
		}
		merged := make(map[string]float64, len(rec.Metrics)+len(extra))
		for k, v := range rec.Metrics {
			merged[k] = v
		}
		for k, v := range extra {
			merged[k] = v
		}
		out[i] = MetricRecord{
			EntityID:  rec.EntityID,
			Period:    rec.Period,
			Metrics:   merged,
			Price:     rec.Price,
			PrevPrice: rec.PrevPrice,
		}
	}
	return out
}

// groupByPeriod partitions the panel into per-period slices and returns the
// sorted list of periods alongside. Every downstream stage operates on one
// of these partitions only.
func groupByPeriod(records []MetricRecord) ([]Period, map[Period][]MetricRecord) {
	groups := make(map[Period][]MetricRecord)
	for _, rec := range records {
		groups[rec.Period] = append(groups[rec.Period], rec)
	}

	periods := make([]Period, 0, len(groups))
	for p := range groups {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Before(periods[j])
	})

	return periods, groups
}
