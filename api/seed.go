/*
seed.go - Demo data loader

PURPOSE:
  Seeds a fresh database with a small, self-consistent demo state so the
  request queue and tournament endpoints have something to show: a
  referrer/referred account pair, a pending add-fund request for the
  referred user's first deposit, a pending withdrawal, and one active
  tournament. Wired to the server's -seed flag; skipped when any demo
  account already exists.
*/
package api

import (
	"context"
	"errors"
	"time"

	"github.com/spinzone/wheel-ledger/funding"
	"github.com/spinzone/wheel-ledger/ledger"
)

// Seed loads demo data. Safe to call on a non-empty database: it backs
// off as soon as a demo account already exists.
func (h *Handler) Seed(ctx context.Context) error {
	if _, err := h.Funding.CreateAccount(ctx, "demo-referrer", "", h.Game.Signup); err != nil {
		if errors.Is(err, ledger.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	if _, err := h.Funding.CreateAccount(ctx, "demo-player", "demo-referrer", h.Game.Signup); err != nil {
		return err
	}

	// Pending first deposit for the referred player: approving it in the
	// admin UI demonstrates the referral cascade.
	if _, err := h.Funding.SubmitRequest(ctx, funding.SubmitRequestInput{
		Kind:       ledger.RequestAddFund,
		UserID:     "demo-player",
		Amount:     ledger.NewAmount(500),
		TierID:     "little",
		PaymentRef: "upi-demo-0001",
	}); err != nil {
		return err
	}

	// Pending withdrawal against the referrer's signup balance.
	if _, err := h.Funding.SubmitRequest(ctx, funding.SubmitRequestInput{
		Kind:           ledger.RequestWithdrawal,
		UserID:         "demo-referrer",
		Amount:         ledger.NewAmount(25),
		TierID:         "little",
		PaymentDetails: "demo bank transfer",
	}); err != nil {
		return err
	}

	t, err := h.Tournaments.Create(ctx, "Friday Little League", "little",
		ledger.NewAmount(20), time.Now().Add(24*time.Hour))
	if err != nil {
		return err
	}
	if _, err := h.Tournaments.SetStatus(ctx, t.ID, ledger.TournamentActive); err != nil {
		return err
	}
	return nil
}
