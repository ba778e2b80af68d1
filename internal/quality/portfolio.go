package quality

import (
	"math"
)

// assignBuckets maps each ranked entity to a portfolio bucket using the
// period's own ranked-entity count N. Quality holds rank <= ceil(top*N),
// Junk holds rank > floor((1-bottom)*N), everything between is Neutral.
// Thresholds always derive from the per-period N, never from a panel-wide
// count.
func assignBuckets(ranked []RankedEntity, topFraction, bottomFraction float64) []PortfolioAssignment {
	n := len(ranked)
	if n == 0 {
		return nil
	}

	qualityCutoff := int(math.Ceil(topFraction * float64(n)))
	junkStart := int(math.Floor((1 - bottomFraction) * float64(n)))

	assignments := make([]PortfolioAssignment, n)
	for i, re := range ranked {
		bucket := BucketNeutral
		switch {
		case re.Rank <= qualityCutoff:
			bucket = BucketQuality
		case re.Rank > junkStart:
			bucket = BucketJunk
		}
		assignments[i] = PortfolioAssignment{
			EntityID: re.EntityID,
			Period:   re.Period,
			Bucket:   bucket,
		}
	}
	return assignments
}
