/*
game.go - Game-rule snapshot (wheels, bonuses, house edge)

PURPOSE:
  The game configuration is reference data: an immutable snapshot injected
  into every engine operation rather than read as ambient global state.
  That keeps every operation deterministic under test and guarantees one
  consistent view of the rules for the whole of an atomic transaction.

SOURCES:
  DefaultGame(): Built-in two-tier setup ("little" and "big" wheels)
  LoadGame(path): JSON file with the same shape, validated on load
*/
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spinzone/wheel-ledger/funding"
	"github.com/spinzone/wheel-ledger/ledger"
	"github.com/spinzone/wheel-ledger/referral"
	"github.com/spinzone/wheel-ledger/spin"
)

// Game is the complete rule snapshot.
type Game struct {
	HouseEdge float64               `json:"houseEdge"`
	Signup    funding.SignupGrant   `json:"signup"`
	Referral  referral.Config       `json:"referral"`
	Wheels    map[string]spin.Wheel `json:"wheels"`
}

// Wheel resolves a tier's wheel configuration.
func (g *Game) Wheel(tierID string) (spin.Wheel, error) {
	w, ok := g.Wheels[tierID]
	if !ok {
		return spin.Wheel{}, &ledger.ConfigurationError{Detail: fmt.Sprintf("no wheel configured for tier %q", tierID)}
	}
	return w, nil
}

// Validate checks every wheel and the house edge.
func (g *Game) Validate() error {
	if g.HouseEdge < 0 || g.HouseEdge >= 1 {
		return &ledger.ConfigurationError{Detail: fmt.Sprintf("house edge %.3f outside [0,1)", g.HouseEdge)}
	}
	for tier, w := range g.Wheels {
		if w.TierID != tier {
			return &ledger.ConfigurationError{Detail: fmt.Sprintf("wheel keyed %q declares tier %q", tier, w.TierID)}
		}
		if err := w.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadGame reads a snapshot from a JSON file.
func LoadGame(path string) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}
	var g Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, &ledger.ConfigurationError{Detail: "malformed game config: " + err.Error()}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// DefaultGame is the built-in two-tier setup.
func DefaultGame() *Game {
	return &Game{
		HouseEdge: 0.6,
		Signup: funding.SignupGrant{
			Balances: map[string]ledger.Amount{
				"little": ledger.NewAmount(50),
			},
			Spins: 3,
		},
		Referral: referral.Config{
			StandardBonus: ledger.NewAmount(10),
			Tiers: []referral.Tier{
				{Count: 1, RewardCash: ledger.NewAmount(20), RewardSpins: 2},
				{Count: 5, RewardCash: ledger.NewAmount(50), RewardSpins: 5},
				{Count: 10, RewardCash: ledger.NewAmount(100), RewardSpins: 10},
			},
			Milestones: []referral.Milestone{
				{Count: 5, RewardSpins: 5, Badge: "high-five"},
				{Count: 10, RewardSpins: 10, Badge: "perfect-ten"},
				{Count: 25, RewardSpins: 25, Badge: "quarter-club"},
			},
		},
		Wheels: map[string]spin.Wheel{
			"little": {
				TierID: "little",
				Name:   "Little Wheel",
				Segments: []spin.Segment{
					{ID: "l1", Label: "Miss", Multiplier: 0, Probability: 0.25},
					{ID: "l2", Label: "1x", Multiplier: 1, Probability: 0.20},
					{ID: "l3", Label: "Miss", Multiplier: 0, Probability: 0.20},
					{ID: "l4", Label: "2x", Multiplier: 2, Probability: 0.15},
					{ID: "l5", Label: "Miss", Multiplier: 0, Probability: 0.10},
					{ID: "l6", Label: "5x", Multiplier: 5, Probability: 0.10},
				},
				Cost: spin.CostModel{Mode: spin.CostFlat, Flat: ledger.NewAmount(10)},
			},
			"big": {
				TierID: "big",
				Name:   "Big Wheel",
				Segments: []spin.Segment{
					{ID: "b1", Label: "Miss", Multiplier: 0, Probability: 0.30},
					{ID: "b2", Label: "1x", Multiplier: 1, Probability: 0.25},
					{ID: "b3", Label: "Miss", Multiplier: 0, Probability: 0.20},
					{ID: "b4", Label: "5x", Multiplier: 5, Probability: 0.15},
					{ID: "b5", Label: "20x", Multiplier: 20, Probability: 0.10},
				},
				Cost: spin.CostModel{
					Mode: spin.CostStepped,
					Steps: []spin.CostStep{
						{MinDailySpins: 0, Cost: ledger.NewAmount(50)},
						{MinDailySpins: 5, Cost: ledger.NewAmount(75)},
						{MinDailySpins: 10, Cost: ledger.NewAmount(100)},
					},
				},
			},
		},
	}
}
