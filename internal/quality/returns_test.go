package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnConvention(t *testing.T) {
	rec := MetricRecord{EntityID: "A", Price: 105.0, PrevPrice: 100.0}
	// Absolute price difference, not a percentage return.
	assert.Equal(t, 5.0, rec.Return())

	down := MetricRecord{EntityID: "B", Price: 95.0, PrevPrice: 100.0}
	assert.Equal(t, -5.0, down.Return())
}

func TestAggregateFactorReturn(t *testing.T) {
	period := Period{Year: 2024}

	assign := func(entity string, bucket Bucket) PortfolioAssignment {
		return PortfolioAssignment{EntityID: entity, Period: period, Bucket: bucket}
	}

	t.Run("qmj is the exact spread of the bucket means", func(t *testing.T) {
		assignments := []PortfolioAssignment{
			assign("Q", BucketQuality),
			assign("J", BucketJunk),
			assign("N", BucketNeutral),
		}
		returns := map[string]float64{"Q": 0.75, "J": 0.25, "N": 99.0}

		fr := aggregateFactorReturn(period, assignments, returns)
		assert.Equal(t, 0.75, fr.QualityReturn)
		assert.Equal(t, 0.25, fr.JunkReturn)
		assert.Equal(t, 0.5, fr.QMJ)
	})

	t.Run("quality 0.8 minus junk 0.3 is 0.5", func(t *testing.T) {
		assignments := []PortfolioAssignment{
			assign("Q", BucketQuality),
			assign("J", BucketJunk),
		}
		returns := map[string]float64{"Q": 0.8, "J": 0.3}

		fr := aggregateFactorReturn(period, assignments, returns)
		assert.InDelta(t, 0.5, fr.QMJ, 1e-15)
	})

	t.Run("bucket means average all bucket members", func(t *testing.T) {
		assignments := []PortfolioAssignment{
			assign("Q1", BucketQuality),
			assign("Q2", BucketQuality),
			assign("J1", BucketJunk),
			assign("J2", BucketJunk),
		}
		returns := map[string]float64{"Q1": 2.0, "Q2": 4.0, "J1": 1.0, "J2": 1.0}

		fr := aggregateFactorReturn(period, assignments, returns)
		assert.InDelta(t, 3.0, fr.QualityReturn, 1e-12)
		assert.InDelta(t, 1.0, fr.JunkReturn, 1e-12)
		assert.InDelta(t, 2.0, fr.QMJ, 1e-12)
	})

	t.Run("empty bucket emits missing, never zero", func(t *testing.T) {
		assignments := []PortfolioAssignment{
			assign("Q", BucketQuality),
		}
		returns := map[string]float64{"Q": 0.8}

		fr := aggregateFactorReturn(period, assignments, returns)
		assert.Equal(t, 0.8, fr.QualityReturn)
		assert.True(t, IsMissing(fr.JunkReturn))
		assert.True(t, IsMissing(fr.QMJ), "spread is undefined when either side is")
	})
}
