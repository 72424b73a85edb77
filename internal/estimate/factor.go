// Package estimate derives plausible keyword CPC and volume figures when
// no authoritative keyword source is available.
package estimate

import "github.com/sells-group/adscout/internal/model"

// Market factor weights. Review density is the stronger competitiveness
// signal, so it carries most of the weight.
const (
	countWeight      = 0.35
	reviewWeight     = 0.65
	countSaturation  = 20.0  // competitor count at which the count term saturates
	reviewSaturation = 400.0 // avg review count at which the review term saturates
)

// MarketFactor summarizes local competitive density as a scalar in [0,1].
// It is the interpolation point for every estimated figure, so identical
// inputs must always produce identical output.
func MarketFactor(competitorCount int, avgReviewCount float64) float64 {
	countTerm := float64(competitorCount) / countSaturation
	if countTerm > 1 {
		countTerm = 1
	}
	if countTerm < 0 {
		countTerm = 0
	}

	reviewTerm := avgReviewCount / reviewSaturation
	if reviewTerm > 1 {
		reviewTerm = 1
	}
	if reviewTerm < 0 {
		reviewTerm = 0
	}

	f := countWeight*countTerm + reviewWeight*reviewTerm
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// FactorFromCompetitors computes the market factor directly from a
// competitor list.
func FactorFromCompetitors(competitors []model.CompetitorRecord) float64 {
	if len(competitors) == 0 {
		return MarketFactor(0, 0)
	}
	total := 0
	for _, c := range competitors {
		total += c.ReviewCount
	}
	avg := float64(total) / float64(len(competitors))
	return MarketFactor(len(competitors), avg)
}

// TierForFactor buckets a market factor into a competition tier.
func TierForFactor(f float64) model.CompetitionTier {
	switch {
	case f < 0.33:
		return model.CompetitionLow
	case f < 0.66:
		return model.CompetitionMedium
	default:
		return model.CompetitionHigh
	}
}
