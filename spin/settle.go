/*
settle.go - Spin outcome computation

PURPOSE:
  Pure settlement of one spin. The draw is two-staged on purpose:

  1. House-edge gate: with fixed probability p the spin is an immediate
     loss. This path never inspects segment configuration.
  2. Multiplier-tier gate: among the distinct positive multipliers on the
     wheel (sorted ascending), 70% of wins resolve to the smallest, 20% to
     the middle, 10% to the largest. Fewer than 3 distinct tiers collapse
     the middle onto the smallest.
  3. Segment tie-break: among all segments sharing the chosen multiplier,
     one is picked uniformly. This only decides where the wheel visually
     stops; the payout was already fixed in stage 2.

  Decoupling payout from the visual segment count lets admins add or
  remove cosmetic segments freely. A wheel whose segments carry no
  positive multiplier settles as a loss (misconfiguration fallback).
*/
package spin

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/spinzone/wheel-ledger/ledger"
)

// =============================================================================
// RANDOM VARIATES
// =============================================================================

// Rand is the uniform source settlement consumes. *math/rand.Rand
// satisfies it.
type Rand interface {
	Float64() float64
}

// Draws are the three uniform variates one settlement consumes. Drawing
// them before the ledger transaction keeps the transaction body a pure
// function of its reads even when the store re-invokes it on conflict.
type Draws struct {
	Gate        float64 // house-edge gate
	TierPick    float64 // small/middle/large multiplier split
	SegmentPick float64 // visual segment tie-break
}

func NewDraws(rng Rand) Draws {
	return Draws{Gate: rng.Float64(), TierPick: rng.Float64(), SegmentPick: rng.Float64()}
}

// =============================================================================
// OUTCOME
// =============================================================================

type Outcome struct {
	WinAmount    ledger.Amount
	Multiplier   float64
	SegmentIndex int
}

// Win-mass partition across the sorted distinct multipliers.
const (
	smallShare  = 0.70
	middleShare = 0.20
)

// Settle computes the outcome of one spin. bet is zero for a free spin.
// houseEdge is the fixed probability of an immediate loss.
func Settle(d Draws, bet ledger.Amount, segments []Segment, houseEdge float64) (Outcome, error) {
	if len(segments) == 0 {
		return Outcome{}, &ledger.ConfigurationError{Detail: "wheel has no segments"}
	}

	multipliers := distinctPositiveMultipliers(segments)

	loss := d.Gate < houseEdge || len(multipliers) == 0
	if loss {
		idx, err := pickSegment(d.SegmentPick, segments, 0)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{WinAmount: ledger.ZeroAmount(), Multiplier: 0, SegmentIndex: idx}, nil
	}

	multiplier := chooseMultiplier(d.TierPick, multipliers)
	idx, err := pickSegment(d.SegmentPick, segments, multiplier)
	if err != nil {
		return Outcome{}, err
	}

	win := bet.Mul(decimal.NewFromFloat(multiplier))
	return Outcome{WinAmount: win, Multiplier: multiplier, SegmentIndex: idx}, nil
}

func distinctPositiveMultipliers(segments []Segment) []float64 {
	seen := make(map[float64]bool)
	var distinct []float64
	for _, seg := range segments {
		if seg.Multiplier > 0 && !seen[seg.Multiplier] {
			seen[seg.Multiplier] = true
			distinct = append(distinct, seg.Multiplier)
		}
	}
	sort.Float64s(distinct)
	return distinct
}

func chooseMultiplier(v float64, sorted []float64) float64 {
	small := sorted[0]
	middle := small
	if len(sorted) >= 3 {
		middle = sorted[len(sorted)/2]
	}
	large := sorted[len(sorted)-1]

	switch {
	case v < smallShare:
		return small
	case v < smallShare+middleShare:
		return middle
	default:
		return large
	}
}

// pickSegment chooses uniformly among segments carrying the multiplier.
func pickSegment(v float64, segments []Segment, multiplier float64) (int, error) {
	var matching []int
	for i, seg := range segments {
		if seg.Multiplier == multiplier {
			matching = append(matching, i)
		}
	}
	if len(matching) == 0 {
		return 0, &ledger.ConfigurationError{
			Detail: "no wheel segment matches the computed multiplier",
		}
	}
	k := int(v * float64(len(matching)))
	if k >= len(matching) {
		k = len(matching) - 1
	}
	return matching[k], nil
}
