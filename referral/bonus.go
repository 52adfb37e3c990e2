/*
Package referral computes referral payout cascades.

PURPOSE:
  When a referred user makes their first-ever deposit, the referrer earns a
  combination of cash, free spins, and milestone badges. This package is
  the pure computation: given the referrer's state before the new referral
  and the configured bonus schedule, produce ONE combined award.

BONUS RULES (applied in order, accumulating):
  1. Standard: flat cash for every successful referral, if configured > 0
  2. Tiered:   extra cash + spins when the NEW referral count (prior + 1)
               exactly matches a configured tier
  3. Milestone: extra spins + a badge when the new count matches a
               configured milestone AND the badge was not already earned

WHY ONE COMBINED AWARD:
  The caller applies the award to the referrer's record as a single update
  inside the deposit transaction (one balance mutation, one spins mutation,
  one referral append, one milestone append). Partial bonus states cannot
  exist: the transaction either commits everything or nothing.

LOGGING:
  Cash awards produce exactly one ledger log entry for the referrer.
  Spin-only awards move no money and are not logged as ledger transactions.

SEE ALSO:
  - funding/deposit.go: Applies awards during deposit approval
*/
package referral

import (
	"fmt"
	"strings"

	"github.com/spinzone/wheel-ledger/ledger"
)

// =============================================================================
// CONFIGURATION - Injected read-only snapshot
// =============================================================================

// Tier pays extra when the referrer reaches an exact referral count.
type Tier struct {
	Count       int           `json:"count"`
	RewardCash  ledger.Amount `json:"rewardCash"`
	RewardSpins int           `json:"rewardSpins"`
}

// Milestone grants spins and a one-time badge at an exact referral count.
type Milestone struct {
	Count       int    `json:"count"`
	RewardSpins int    `json:"rewardSpins"`
	Badge       string `json:"badge"`
}

// Config is the bonus schedule snapshot. Treated as immutable reference
// data for the whole of one ledger operation.
type Config struct {
	StandardBonus ledger.Amount `json:"standardBonus"`
	Tiers         []Tier        `json:"tiers,omitempty"`
	Milestones    []Milestone   `json:"milestones,omitempty"`
}

// =============================================================================
// AWARD - Combined result of one referral event
// =============================================================================

// Award is everything the referrer earns from one first deposit.
// Badge is empty when no new milestone was reached.
type Award struct {
	Cash  ledger.Amount
	Spins int
	Badge string
}

func (a Award) IsZero() bool {
	return a.Cash.IsZero() && a.Spins == 0 && a.Badge == ""
}

// Description renders the combined log-entry description for a cash award.
func (a Award) Description(depositorID string) string {
	parts := []string{fmt.Sprintf("Referral bonus: first deposit by %s", depositorID)}
	if a.Spins > 0 {
		parts = append(parts, fmt.Sprintf("%d free spins", a.Spins))
	}
	if a.Badge != "" {
		parts = append(parts, fmt.Sprintf("milestone %q", a.Badge))
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// COMPUTATION
// =============================================================================

// Compute returns the combined award for one new referral.
//
// priorCount is the referrer's referral count BEFORE this referral;
// earnedBadges is the referrer's current milestone badge set. Both come
// from the same transactional read as the update that applies the award,
// so a milestone badge can never be granted twice even if the same count
// is somehow reached again.
func Compute(cfg Config, priorCount int, earnedBadges []string) Award {
	award := Award{Cash: ledger.ZeroAmount()}
	newCount := priorCount + 1

	if cfg.StandardBonus.IsPositive() {
		award.Cash = award.Cash.Add(cfg.StandardBonus)
	}

	for _, tier := range cfg.Tiers {
		if tier.Count == newCount {
			award.Cash = award.Cash.Add(tier.RewardCash)
			award.Spins += tier.RewardSpins
			break
		}
	}

	for _, ms := range cfg.Milestones {
		if ms.Count != newCount {
			continue
		}
		if hasBadge(earnedBadges, ms.Badge) {
			break
		}
		award.Spins += ms.RewardSpins
		award.Badge = ms.Badge
		break
	}

	return award
}

func hasBadge(badges []string, badge string) bool {
	for _, b := range badges {
		if b == badge {
			return true
		}
	}
	return false
}
