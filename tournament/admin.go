package tournament

import (
	"context"
	"fmt"
	"time"

	"github.com/spinzone/wheel-ledger/ledger"
)

// Create registers a new tournament in the upcoming state.
func (s *Service) Create(ctx context.Context, name, tierID string, entryFee ledger.Amount, startsAt time.Time) (*ledger.Tournament, error) {
	if !entryFee.IsPositive() {
		return nil, fmt.Errorf("%w: entry fee must be positive", ledger.ErrInvalidState)
	}

	t := &ledger.Tournament{
		ID:        s.store.NewID(),
		Name:      name,
		TierID:    tierID,
		EntryFee:  entryFee,
		Status:    ledger.TournamentUpcoming,
		StartsAt:  startsAt,
		CreatedAt: s.clock.Now(),
	}

	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		return tx.Set(ledger.TournamentRef(t.ID), t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SetStatus moves a tournament through its lifecycle. Completed and
// cancelled are terminal.
func (s *Service) SetStatus(ctx context.Context, tournamentID string, status ledger.TournamentStatus) (*ledger.Tournament, error) {
	var t ledger.Tournament
	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		found, err := tx.Get(ledger.TournamentRef(tournamentID), &t)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "tournament", ID: tournamentID}
		}
		if t.Status == ledger.TournamentCompleted || t.Status == ledger.TournamentCancelled {
			return &ledger.InvalidStateError{
				Resource: "tournament", ID: tournamentID,
				Expected: "upcoming or active", Actual: string(t.Status),
			}
		}
		t.Status = status
		return tx.Set(ledger.TournamentRef(tournamentID), &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}
