package quality

import (
	"sort"
)

// rankEntities orders one period's entities by Quality score descending and
// assigns 1-based contiguous ranks. Entities with a missing composite are
// excluded entirely: they receive no rank, no bucket, and contribute nothing
// downstream for that period. Ties on Quality are broken by entity
// identifier so ranks are reproducible regardless of input or worker order.
func rankEntities(composites []CompositeScore, tieBreak TieBreak) []RankedEntity {
	ranked := make([]RankedEntity, 0, len(composites))
	for _, cs := range composites {
		if IsMissing(cs.Quality) {
			continue
		}
		ranked = append(ranked, RankedEntity{
			EntityID: cs.EntityID,
			Period:   cs.Period,
			Quality:  cs.Quality,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quality != ranked[j].Quality {
			return ranked[i].Quality > ranked[j].Quality
		}
		if tieBreak == TieBreakEntityDesc {
			return ranked[i].EntityID > ranked[j].EntityID
		}
		return ranked[i].EntityID < ranked[j].EntityID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
