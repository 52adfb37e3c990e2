package spin_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinzone/wheel-ledger/ledger"
	"github.com/spinzone/wheel-ledger/spin"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// mixedSegments has three distinct positive multipliers (1, 2, 5) and
// three zero segments for the loss path to land on.
func mixedSegments() []spin.Segment {
	return []spin.Segment{
		{ID: "s0", Multiplier: 0},
		{ID: "s1", Multiplier: 1},
		{ID: "s2", Multiplier: 0},
		{ID: "s3", Multiplier: 2},
		{ID: "s4", Multiplier: 0},
		{ID: "s5", Multiplier: 5},
	}
}

func bet10() ledger.Amount { return ledger.NewAmountFromInt(10) }

// =============================================================================
// HOUSE-EDGE GATE
// =============================================================================

func TestSettle_GateBelowEdge_ImmediateLoss(t *testing.T) {
	// GIVEN: A gate draw under the house edge
	// WHEN: Settling a 10 bet
	// THEN: The spin loses and lands on a zero-multiplier segment

	d := spin.Draws{Gate: 0.1, TierPick: 0.99, SegmentPick: 0.0}

	out, err := spin.Settle(d, bet10(), mixedSegments(), 0.6)

	require.NoError(t, err)
	assert.True(t, out.WinAmount.IsZero())
	assert.Equal(t, 0.0, out.Multiplier)
	assert.Equal(t, 0, out.SegmentIndex, "first zero segment for the lowest tie-break draw")
}

func TestSettle_GateAtEdge_Wins(t *testing.T) {
	// GIVEN: A gate draw exactly at the house edge
	// WHEN: Settling
	// THEN: The gate is a strict less-than, so the spin proceeds to a win

	d := spin.Draws{Gate: 0.6, TierPick: 0.0, SegmentPick: 0.0}

	out, err := spin.Settle(d, bet10(), mixedSegments(), 0.6)

	require.NoError(t, err)
	assert.True(t, out.WinAmount.IsPositive())
}

func TestSettle_NoPositiveMultipliers_AlwaysLoss(t *testing.T) {
	// GIVEN: A wheel whose segments all carry multiplier 0
	// WHEN: The gate would otherwise pass
	// THEN: The spin settles as a loss (misconfiguration fallback)

	allZero := []spin.Segment{{ID: "a", Multiplier: 0}, {ID: "b", Multiplier: 0}}
	d := spin.Draws{Gate: 0.99, TierPick: 0.5, SegmentPick: 0.5}

	out, err := spin.Settle(d, bet10(), allZero, 0.6)

	require.NoError(t, err)
	assert.True(t, out.WinAmount.IsZero())
	assert.Equal(t, 0.0, out.Multiplier)
}

// =============================================================================
// MULTIPLIER TIERS
// =============================================================================

func TestSettle_TierPick_SelectsSmallMiddleLarge(t *testing.T) {
	// GIVEN: Three distinct positive multipliers, sorted (1, 2, 5)
	// WHEN: The tier draw lands in each band
	// THEN: 70% band -> smallest, next 20% -> middle, last 10% -> largest

	cases := []struct {
		name     string
		tierPick float64
		want     float64
	}{
		{"low band picks smallest", 0.10, 1},
		{"just under small share", 0.6999, 1},
		{"middle band picks middle", 0.75, 2},
		{"top band picks largest", 0.95, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := spin.Draws{Gate: 0.99, TierPick: tc.tierPick, SegmentPick: 0.0}
			out, err := spin.Settle(d, bet10(), mixedSegments(), 0.6)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Multiplier)
		})
	}
}

func TestSettle_TwoDistinctMultipliers_MiddleCollapsesToSmallest(t *testing.T) {
	// GIVEN: Only two distinct positive multipliers (1 and 5)
	// WHEN: The tier draw lands in the middle band
	// THEN: The middle collapses onto the smallest

	segments := []spin.Segment{
		{ID: "z", Multiplier: 0},
		{ID: "a", Multiplier: 1},
		{ID: "b", Multiplier: 5},
	}
	d := spin.Draws{Gate: 0.99, TierPick: 0.75, SegmentPick: 0.0}

	out, err := spin.Settle(d, bet10(), segments, 0.6)

	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Multiplier)
}

func TestSettle_WinAmount_IsBetTimesMultiplier(t *testing.T) {
	// GIVEN: A forced largest-tier win on a 10 bet
	// WHEN: Settling
	// THEN: The win is exactly bet * multiplier in decimal arithmetic

	d := spin.Draws{Gate: 0.99, TierPick: 0.95, SegmentPick: 0.0}

	out, err := spin.Settle(d, bet10(), mixedSegments(), 0.6)

	require.NoError(t, err)
	assert.Equal(t, 5.0, out.Multiplier)
	assert.True(t, ledger.NewAmountFromInt(50).Equal(out.WinAmount), "got %s", out.WinAmount)
}

func TestSettle_FreeSpin_ZeroBetWinsZero(t *testing.T) {
	// GIVEN: A free spin (zero bet) that hits the largest multiplier
	// WHEN: Settling
	// THEN: The multiplier is reported but the win is still zero money

	d := spin.Draws{Gate: 0.99, TierPick: 0.95, SegmentPick: 0.0}

	out, err := spin.Settle(d, ledger.ZeroAmount(), mixedSegments(), 0.6)

	require.NoError(t, err)
	assert.Equal(t, 5.0, out.Multiplier)
	assert.True(t, out.WinAmount.IsZero())
}

// =============================================================================
// SEGMENT TIE-BREAK
// =============================================================================

func TestSettle_TieBreak_UniformAmongMatchingSegments(t *testing.T) {
	// GIVEN: Two segments sharing the winning multiplier (indexes 1 and 3)
	// WHEN: The segment draw spans its range
	// THEN: Low draws land on the first match, high draws on the last

	segments := []spin.Segment{
		{ID: "z", Multiplier: 0},
		{ID: "a", Multiplier: 2},
		{ID: "y", Multiplier: 0},
		{ID: "b", Multiplier: 2},
	}

	low := spin.Draws{Gate: 0.99, TierPick: 0.1, SegmentPick: 0.0}
	high := spin.Draws{Gate: 0.99, TierPick: 0.1, SegmentPick: 0.999}

	outLow, err := spin.Settle(low, bet10(), segments, 0.6)
	require.NoError(t, err)
	outHigh, err := spin.Settle(high, bet10(), segments, 0.6)
	require.NoError(t, err)

	assert.Equal(t, 1, outLow.SegmentIndex)
	assert.Equal(t, 3, outHigh.SegmentIndex)
	assert.True(t, outLow.WinAmount.Equal(outHigh.WinAmount), "tie-break never changes the payout")
}

// =============================================================================
// MISCONFIGURATION
// =============================================================================

func TestSettle_NoSegments_ConfigurationError(t *testing.T) {
	d := spin.Draws{Gate: 0.5, TierPick: 0.5, SegmentPick: 0.5}

	_, err := spin.Settle(d, bet10(), nil, 0.6)

	assert.ErrorIs(t, err, ledger.ErrConfiguration)
}

func TestSettle_LossWithNoZeroSegment_ConfigurationError(t *testing.T) {
	// GIVEN: A wheel where every segment pays (no loss segment to land on)
	// WHEN: The gate forces a loss
	// THEN: Settlement refuses rather than inventing an outcome

	allPositive := []spin.Segment{{ID: "a", Multiplier: 1}, {ID: "b", Multiplier: 2}}
	d := spin.Draws{Gate: 0.1, TierPick: 0.5, SegmentPick: 0.5}

	_, err := spin.Settle(d, bet10(), allPositive, 0.6)

	assert.ErrorIs(t, err, ledger.ErrConfiguration)
}

// =============================================================================
// DISTRIBUTION - Seeded long-run frequencies
// =============================================================================

func TestSettle_Distribution_MatchesConfiguredShares(t *testing.T) {
	// GIVEN: 200k spins with a seeded source, house edge 0.6
	// WHEN: Tallying outcomes
	// THEN: Losses approach 60% and wins split roughly 70/20/10 across
	//       the smallest, middle, and largest multipliers

	rng := rand.New(rand.NewSource(42))
	segments := mixedSegments()
	const trials = 200_000

	losses := 0
	tierHits := map[float64]int{}
	for i := 0; i < trials; i++ {
		out, err := spin.Settle(spin.NewDraws(rng), bet10(), segments, 0.6)
		require.NoError(t, err)
		if out.WinAmount.IsZero() {
			losses++
			continue
		}
		tierHits[out.Multiplier]++
	}

	lossRate := float64(losses) / float64(trials)
	assert.InDelta(t, 0.60, lossRate, 0.01, "loss rate")

	wins := trials - losses
	assert.InDelta(t, 0.70, float64(tierHits[1])/float64(wins), 0.02, "smallest-tier share")
	assert.InDelta(t, 0.20, float64(tierHits[2])/float64(wins), 0.02, "middle-tier share")
	assert.InDelta(t, 0.10, float64(tierHits[5])/float64(wins), 0.02, "largest-tier share")
}
