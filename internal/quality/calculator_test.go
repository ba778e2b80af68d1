package quality

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goldenPanel builds a fixed two-period panel of ten entities where every
// metric increases with the entity index, so quality order is E10 down to
// E01 in both periods and every growth delta in the second period is
// positive and increasing.
func goldenPanel() []MetricRecord {
	base := map[string]float64{
		"gpoa": 0.10, "roe": 0.20, "roa": 0.05, "cfoa": 0.08, "gmar": 0.30, "acc": -0.02,
		"bab": 0.50, "lev": 0.40, "o": 1.00, "z": 2.00, "evol": 0.15,
		"eiss": 0.01, "diss": 0.02, "npop": 0.03,
	}

	var records []MetricRecord
	for _, year := range []int{2020, 2021} {
		scale := float64(year - 2019) // 1 in 2020, 2 in 2021
		for i := 1; i <= 10; i++ {
			metrics := make(map[string]float64, len(base))
			for name, b := range base {
				metrics[name] = b + float64(i)*scale
			}
			records = append(records, MetricRecord{
				EntityID:  fmt.Sprintf("E%02d", i),
				Period:    Period{Year: year},
				Metrics:   metrics,
				Price:     100.0 + float64(i),
				PrevPrice: 100.0,
			})
		}
	}
	return records
}

func TestCalculateGolden(t *testing.T) {
	calc := NewCalculator(DefaultParams(), testLogger())
	result, err := calc.Calculate(context.Background(), goldenPanel())
	require.NoError(t, err)

	require.Len(t, result.FactorReturns, 2)
	assert.Equal(t, Period{Year: 2020}, result.FactorReturns[0].Period)
	assert.Equal(t, Period{Year: 2021}, result.FactorReturns[1].Period)

	// Top decile of 10 is exactly one entity, bottom decile one entity.
	for _, fr := range result.FactorReturns {
		assert.Equal(t, 10.0, fr.QualityReturn, "period %s", fr.Period)
		assert.Equal(t, 1.0, fr.JunkReturn, "period %s", fr.Period)
		assert.Equal(t, 9.0, fr.QMJ, "period %s", fr.Period)
	}

	// Ranks are contiguous per period and E10 leads both.
	byPeriod := make(map[Period][]RankedEntity)
	for _, re := range result.Ranked {
		byPeriod[re.Period] = append(byPeriod[re.Period], re)
	}
	for period, ranked := range byPeriod {
		require.Len(t, ranked, 10, "period %s", period)
		seen := make(map[int]bool)
		for _, re := range ranked {
			seen[re.Rank] = true
		}
		for r := 1; r <= 10; r++ {
			assert.True(t, seen[r], "period %s rank %d", period, r)
		}
		assert.Equal(t, "E10", ranked[0].EntityID)
		assert.Equal(t, "E01", ranked[9].EntityID)
	}

	assert.Equal(t, 2, result.Stats.PeriodsProcessed)
	assert.Zero(t, result.Stats.PeriodsSkipped)
	assert.Equal(t, 20, result.Stats.EntitiesRanked)
}

func TestCalculateDeterministic(t *testing.T) {
	panel := goldenPanel()

	t.Run("output is identical for any worker count", func(t *testing.T) {
		sequential := NewCalculator(DefaultParams(), testLogger())
		sequential.SetMaxConcurrency(1)
		parallel := NewCalculator(DefaultParams(), testLogger())
		parallel.SetMaxConcurrency(8)

		a, err := sequential.Calculate(context.Background(), panel)
		require.NoError(t, err)
		b, err := parallel.Calculate(context.Background(), panel)
		require.NoError(t, err)

		assert.Equal(t, a.FactorReturns, b.FactorReturns)
		assert.Equal(t, a.Ranked, b.Ranked)
		assert.Equal(t, a.Assignments, b.Assignments)
		assert.Equal(t, a.Stats, b.Stats)
	})

	t.Run("repeated runs are idempotent", func(t *testing.T) {
		calc := NewCalculator(DefaultParams(), testLogger())
		a, err := calc.Calculate(context.Background(), panel)
		require.NoError(t, err)
		b, err := calc.Calculate(context.Background(), panel)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestCalculateStrictGrowth(t *testing.T) {
	params := DefaultParams()
	params.CompositePolicy = CompositeStrict

	calc := NewCalculator(params, testLogger())
	result, err := calc.Calculate(context.Background(), goldenPanel())
	require.NoError(t, err)

	// Every entity's first period has a missing growth delta, so strict
	// mode excludes all of 2020 and the period is skipped.
	require.Len(t, result.FactorReturns, 1)
	assert.Equal(t, Period{Year: 2021}, result.FactorReturns[0].Period)
	assert.Equal(t, 1, result.Stats.PeriodsSkipped)
	assert.Equal(t, 10, result.Stats.EntitiesExcluded)
}

func TestCalculateLenientFirstPeriod(t *testing.T) {
	// Under the default lenient policy a missing growth delta alone never
	// excludes an entity: 2020 ranks all ten entities from the other three
	// dimensions.
	calc := NewCalculator(DefaultParams(), testLogger())
	result, err := calc.Calculate(context.Background(), goldenPanel())
	require.NoError(t, err)

	first := 0
	for _, re := range result.Ranked {
		if re.Period == (Period{Year: 2020}) {
			first++
		}
	}
	assert.Equal(t, 10, first)
}

func TestCalculateSkipsEmptyPeriod(t *testing.T) {
	panel := goldenPanel()
	// A period whose entities carry no metric values has nothing to rank.
	for i := 1; i <= 3; i++ {
		panel = append(panel, MetricRecord{
			EntityID:  fmt.Sprintf("E%02d", i),
			Period:    Period{Year: 2022},
			Metrics:   map[string]float64{},
			Price:     101,
			PrevPrice: 100,
		})
	}

	calc := NewCalculator(DefaultParams(), testLogger())
	result, err := calc.Calculate(context.Background(), panel)
	require.NoError(t, err)

	require.Len(t, result.FactorReturns, 2, "2022 must be entirely absent from output")
	for _, fr := range result.FactorReturns {
		assert.NotEqual(t, Period{Year: 2022}, fr.Period)
	}
	assert.Equal(t, 1, result.Stats.PeriodsSkipped)
}

func TestCalculateFailsBeforeProcessingOnMissingColumn(t *testing.T) {
	// Drop npop from every record: the input column is absent.
	panel := goldenPanel()
	for i := range panel {
		delete(panel[i].Metrics, "npop")
	}

	calc := NewCalculator(DefaultParams(), testLogger())
	result, err := calc.Calculate(context.Background(), panel)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "npop")
}

func TestCalculateZeroVarianceWarnsAndContinues(t *testing.T) {
	// Constant gmar across a period degrades to z=0 instead of failing.
	panel := goldenPanel()
	for i := range panel {
		panel[i].Metrics["gmar"] = 5.0
	}

	calc := NewCalculator(DefaultParams(), testLogger())
	result, err := calc.Calculate(context.Background(), panel)
	require.NoError(t, err)
	// gmar is constant in both periods; its delta is constant (zero) in
	// 2021 as well.
	assert.GreaterOrEqual(t, result.Stats.DegenerateGroups, 2)
}

func TestCalculateRejectsInvalidParams(t *testing.T) {
	params := DefaultParams()
	params.TopFraction = 0.7
	params.BottomFraction = 0.7

	calc := NewCalculator(params, testLogger())
	_, err := calc.Calculate(context.Background(), goldenPanel())
	require.Error(t, err)
}
