package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calebzhan/fflbot/internal/domain"
)

func TestDraftTimeProb(t *testing.T) {
	assert.InDelta(t, 0.65, DraftTimeProb(domain.SideYes, 0.65), 1e-9)
	assert.InDelta(t, 0.35, DraftTimeProb(domain.SideNo, 0.65), 1e-9)
}

func TestLiveScoreSymmetry(t *testing.T) {
	cases := []struct{ p0, pNow float64 }{
		{0, 0}, {0, 1}, {1, 0}, {0.5, 0.5},
		{0.65, 0.72}, {0.30, 0.10}, {0.01, 0.99},
	}
	for _, c := range cases {
		yes := LiveScore(domain.SideYes, c.p0, c.pNow)
		no := LiveScore(domain.SideNo, c.p0, c.pNow)
		assert.InDelta(t, -no, yes, 1e-9, "p0=%v pNow=%v", c.p0, c.pNow)
	}
}

func TestLiveScore(t *testing.T) {
	assert.InDelta(t, 7.0, LiveScore(domain.SideYes, 0.65, 0.72), 1e-9)
	assert.InDelta(t, -7.0, LiveScore(domain.SideNo, 0.65, 0.72), 1e-9)
}

func TestMultiplierTiers(t *testing.T) {
	tests := []struct {
		pPred float64
		tier  Tier
		mult  float64
	}{
		{0.95, TierFavorite, 1.0},
		{0.70, TierFavorite, 1.0}, // boundary belongs to the higher tier
		{0.69, TierBalanced, 1.2},
		{0.40, TierBalanced, 1.2}, // boundary belongs to the higher tier
		{0.39, TierLongshot, 1.5},
		{0.05, TierLongshot, 1.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, TierFor(tt.pPred), "pPred=%v", tt.pPred)
		assert.InDelta(t, tt.mult, Multiplier(tt.pPred), 1e-9, "pPred=%v", tt.pPred)
	}
}

func TestFinalPoints(t *testing.T) {
	tests := []struct {
		correct bool
		pPred   float64
		want    int64
	}{
		{true, 0.70, 30},   // favorite: 100*0.30*1.0
		{true, 0.30, 105},  // longshot: 100*0.70*1.5
		{false, 0.70, -21}, // -30*0.70
		{false, 0.30, -9},  // -30*0.30
		{true, 0.15, 128},  // 127.5 rounds half away from zero
		{false, 0.15, -5},  // -4.5 rounds half away from zero
		{true, 0.50, 60},   // balanced: 100*0.50*1.2
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FinalPoints(tt.correct, tt.pPred),
			"correct=%v pPred=%v", tt.correct, tt.pPred)
	}
}

func TestLongshotBonus(t *testing.T) {
	assert.Equal(t, int64(10), LongshotBonus(true, 0.15))
	assert.Equal(t, int64(0), LongshotBonus(true, 0.25))
	assert.Equal(t, int64(0), LongshotBonus(true, 0.20)) // threshold is exclusive
	assert.Equal(t, int64(0), LongshotBonus(false, 0.15))
}

func TestStreakBonus(t *testing.T) {
	assert.Equal(t, int64(0), StreakBonus(0))
	assert.Equal(t, int64(0), StreakBonus(4))
	assert.Equal(t, int64(25), StreakBonus(5))
	assert.Equal(t, int64(25), StreakBonus(9))
	assert.Equal(t, int64(50), StreakBonus(10))
	assert.Equal(t, int64(0), StreakBonus(-1))
}

func TestCleanSweepBonus(t *testing.T) {
	all := func(n int, v bool) []bool {
		out := make([]bool, n)
		for i := range out {
			out[i] = v
		}
		return out
	}

	assert.Equal(t, int64(0), CleanSweepBonus(all(4, true))) // too few picks
	assert.Equal(t, int64(50), CleanSweepBonus(all(5, true)))
	assert.Equal(t, int64(50), CleanSweepBonus(all(8, true)))

	mixed := all(6, true)
	mixed[3] = false
	assert.Equal(t, int64(0), CleanSweepBonus(mixed))
}

func TestEstimatePick(t *testing.T) {
	est := EstimatePick(domain.SideNo, 0.70) // pPred = 0.30, longshot
	assert.Equal(t, int64(105), est.PointsIfCorrect)
	assert.Equal(t, int64(-9), est.PenaltyIfWrong)
	assert.Equal(t, TierLongshot, est.Tier)
	assert.InDelta(t, 1.5, est.Multiplier, 1e-9)
}
