/*
Package spin implements wheel configuration and spin settlement.

PURPOSE:
  A wheel tier is an ordered list of visual segments, each carrying a
  payout multiplier, plus a cost model for paid spins. Settlement
  deliberately decouples the financial outcome from the visual segment
  count (see settle.go), so admins can add or remove cosmetic segments
  without perturbing the payout distribution.

COST MODELS:
  flat:    every paid spin costs the same
  stepped: cost steps up with the number of paid spins already used today;
           the daily counter resets at local-date rollover

SEE ALSO:
  - settle.go: The two-stage outcome draw
  - engine.go: Atomic settlement against the ledger
*/
package spin

import (
	"fmt"
	"math"

	"github.com/spinzone/wheel-ledger/ledger"
)

// =============================================================================
// SEGMENTS
// =============================================================================

// Segment is one visual slice of a wheel. Multiplier 0 denotes a
// non-winning segment. Probability is display metadata for the wheel UI;
// settlement does not consume it (see settle.go).
type Segment struct {
	ID          string  `json:"id"`
	Label       string  `json:"label,omitempty"`
	Multiplier  float64 `json:"multiplier"`
	Probability float64 `json:"probability"`
}

// =============================================================================
// COST MODEL
// =============================================================================

type CostMode string

const (
	CostFlat    CostMode = "flat"
	CostStepped CostMode = "stepped"
)

// CostStep applies once the user has used at least MinDailySpins paid
// spins today. Steps are ordered ascending by MinDailySpins.
type CostStep struct {
	MinDailySpins int           `json:"minDailySpins"`
	Cost          ledger.Amount `json:"cost"`
}

type CostModel struct {
	Mode  CostMode      `json:"mode"`
	Flat  ledger.Amount `json:"flat,omitempty"`
	Steps []CostStep    `json:"steps,omitempty"`
}

// SpinCost returns the price of the next paid spin given the number of
// paid spins already used today (after rollover).
func (c CostModel) SpinCost(dailyUsed int) ledger.Amount {
	if c.Mode != CostStepped || len(c.Steps) == 0 {
		return c.Flat
	}
	cost := c.Steps[0].Cost
	for _, step := range c.Steps {
		if dailyUsed >= step.MinDailySpins {
			cost = step.Cost
		}
	}
	return cost
}

// =============================================================================
// WHEEL
// =============================================================================

// Wheel is the per-tier configuration snapshot injected into settlement.
type Wheel struct {
	TierID   string    `json:"tierId"`
	Name     string    `json:"name"`
	Segments []Segment `json:"segments"`
	Cost     CostModel `json:"cost"`
}

// probabilityTolerance bounds how far segment probabilities may drift
// from summing to 1. Admin-enforced, not structurally guaranteed.
const probabilityTolerance = 0.001

// Validate flags structurally unusable wheels and probability drift.
func (w Wheel) Validate() error {
	if w.TierID == "" {
		return &ledger.ConfigurationError{Detail: "wheel missing tier id"}
	}
	if len(w.Segments) == 0 {
		return &ledger.ConfigurationError{Detail: fmt.Sprintf("wheel %s has no segments", w.TierID)}
	}
	sum := 0.0
	for _, seg := range w.Segments {
		if seg.Multiplier < 0 {
			return &ledger.ConfigurationError{Detail: fmt.Sprintf("wheel %s: negative multiplier on segment %s", w.TierID, seg.ID)}
		}
		sum += seg.Probability
	}
	if math.Abs(sum-1.0) > probabilityTolerance {
		return &ledger.ConfigurationError{Detail: fmt.Sprintf("wheel %s: segment probabilities sum to %.4f", w.TierID, sum)}
	}
	if c := w.Cost; c.Mode == CostStepped {
		for i := 1; i < len(c.Steps); i++ {
			if c.Steps[i].MinDailySpins <= c.Steps[i-1].MinDailySpins {
				return &ledger.ConfigurationError{Detail: fmt.Sprintf("wheel %s: cost steps not ascending", w.TierID)}
			}
		}
	}
	return nil
}
