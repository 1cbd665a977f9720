// Package scoring implements the pure point calculations for the fantasy
// forecasting league: draft-time probabilities, live mark-to-market scores,
// tiered final points, and bonuses. All functions are stateless and total
// over their documented input ranges; callers clamp probabilities to [0,1]
// before calling.
package scoring

import (
	"math"

	"github.com/calebzhan/fflbot/internal/domain"
)

// Tier classifies a pick by its draft-time probability.
type Tier string

const (
	TierFavorite Tier = "Favorite"
	TierBalanced Tier = "Balanced"
	TierLongshot Tier = "Long-shot"
)

// Multiplier tiers. Boundaries are inclusive on the lower bound of the
// higher-probability tier: exactly 0.70 is Favorite, exactly 0.40 is
// Balanced.
const (
	favoriteThreshold = 0.70
	balancedThreshold = 0.40

	favoriteMultiplier = 1.0
	balancedMultiplier = 1.2
	longshotMultiplier = 1.5
)

const (
	longshotBonusThreshold = 0.20
	longshotBonusPoints    = 10
	streakBonusEvery       = 5
	streakBonusPoints      = 25
	cleanSweepMinPicks     = 5
	cleanSweepPoints       = 50
	wrongPickPenaltyScale  = 30
)

// DraftTimeProb returns the probability that the drafted side was right at
// the moment the pick was made, given the market's YES probability p0.
func DraftTimeProb(side domain.Side, p0 float64) float64 {
	if side == domain.SideYes {
		return p0
	}
	return 1 - p0
}

// LiveScore is the unrealized mark-to-market value of an open pick:
// 100*(pNow-p0) for YES, 100*(p0-pNow) for NO. It is unbounded, may be
// negative, and must never be persisted as final points.
func LiveScore(side domain.Side, p0, pNow float64) float64 {
	if side == domain.SideYes {
		return 100 * (pNow - p0)
	}
	return 100 * (p0 - pNow)
}

// TierFor returns the risk tier for a draft-time probability.
func TierFor(pPred float64) Tier {
	switch {
	case pPred >= favoriteThreshold:
		return TierFavorite
	case pPred >= balancedThreshold:
		return TierBalanced
	default:
		return TierLongshot
	}
}

// Multiplier returns the payout multiplier for a draft-time probability.
func Multiplier(pPred float64) float64 {
	switch {
	case pPred >= favoriteThreshold:
		return favoriteMultiplier
	case pPred >= balancedThreshold:
		return balancedMultiplier
	default:
		return longshotMultiplier
	}
}

// FinalPoints converts a resolved pick into its one-time point value:
// round(100*(1-pPred)*multiplier) when correct, round(-30*pPred) when wrong.
// Rounding is half away from zero.
func FinalPoints(correct bool, pPred float64) int64 {
	if correct {
		base := 100 * (1 - pPred)
		return int64(math.Round(base * Multiplier(pPred)))
	}
	return int64(math.Round(-wrongPickPenaltyScale * pPred))
}

// LongshotBonus awards +10 for a correct pick drafted below 20%.
func LongshotBonus(correct bool, pPred float64) int64 {
	if correct && pPred < longshotBonusThreshold {
		return longshotBonusPoints
	}
	return 0
}

// StreakBonus awards +25 for every 5 consecutive correct picks.
func StreakBonus(consecutiveCorrect int) int64 {
	if consecutiveCorrect < 0 {
		return 0
	}
	return int64(consecutiveCorrect/streakBonusEvery) * streakBonusPoints
}

// CleanSweepBonus awards +50 when a session of at least 5 picks resolves
// entirely correct.
func CleanSweepBonus(sessionCorrect []bool) int64 {
	if len(sessionCorrect) < cleanSweepMinPicks {
		return 0
	}
	for _, c := range sessionCorrect {
		if !c {
			return 0
		}
	}
	return cleanSweepPoints
}

// Estimate is a pre-draft preview of a prospective pick's value.
type Estimate struct {
	PointsIfCorrect int64
	PenaltyIfWrong  int64
	Tier            Tier
	Multiplier      float64
}

// EstimatePick previews the points a pick would earn or lose at the market's
// current YES price, for display before the pick is made.
func EstimatePick(side domain.Side, currentYesPrice float64) Estimate {
	pPred := DraftTimeProb(side, currentYesPrice)
	return Estimate{
		PointsIfCorrect: FinalPoints(true, pPred),
		PenaltyIfWrong:  FinalPoints(false, pPred),
		Tier:            TierFor(pPred),
		Multiplier:      Multiplier(pPred),
	}
}
