/*
Package tournament implements atomic tournament entry.

PURPOSE:
  Joining a tournament is a three-write atomic unit: deduct the entry fee
  from the tournament tier's balance, append the user to the tournament's
  denormalized participant array, and create the authoritative per-user
  participant record with score 0. A crash or abort between "fee deducted"
  and "participant recorded" is not observable - either all three writes
  commit or none do.

IDEMPOTENCY:
  The (tournament, user) participant document exists at most once; its
  presence is the join guard. A second join attempt fails with
  ErrAlreadyExists and deducts nothing.

  The participant array can grow unbounded for very large tournaments;
  it exists for fast counting only, the participant records stay
  authoritative.
*/
package tournament

import (
	"context"

	"github.com/spinzone/wheel-ledger/ledger"
)

// Service executes tournament entry against the ledger store.
type Service struct {
	store ledger.Store
	clock ledger.Clock
}

func New(store ledger.Store, clock ledger.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// JoinResult reports a committed entry.
type JoinResult struct {
	FeePaid          ledger.Amount
	ParticipantCount int
}

// Join registers the user in the tournament and deducts the entry fee,
// atomically. Distinct failures: tournament missing (ErrNotFound), already
// joined (ErrAlreadyExists), not joinable (ErrInvalidState), balance below
// fee (ErrInsufficientFunds).
func (s *Service) Join(ctx context.Context, tournamentID, userID, displayName string) (*JoinResult, error) {
	now := s.clock.Now()
	result := &JoinResult{}

	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		var t ledger.Tournament
		found, err := tx.Get(ledger.TournamentRef(tournamentID), &t)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "tournament", ID: tournamentID}
		}

		var account ledger.Account
		found, err = tx.Get(ledger.AccountRef(userID), &account)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "account", ID: userID}
		}
		if err := account.Validate(); err != nil {
			return err
		}

		participantRef := ledger.ParticipantRef(tournamentID, userID)
		var existing ledger.Participant
		found, err = tx.Get(participantRef, &existing)
		if err != nil {
			return err
		}
		if found || t.HasParticipant(userID) {
			return &ledger.AlreadyJoinedError{TournamentID: tournamentID, UserID: userID}
		}

		if !t.Joinable() {
			return &ledger.InvalidStateError{
				Resource: "tournament", ID: tournamentID,
				Expected: "upcoming or active", Actual: string(t.Status),
			}
		}

		balance := account.Balance(t.TierID)
		if balance.LessThan(t.EntryFee) {
			return &ledger.InsufficientFundsError{
				UserID: userID, TierID: t.TierID,
				Available: balance, Requested: t.EntryFee,
			}
		}

		account.SetBalance(t.TierID, balance.Sub(t.EntryFee))
		t.Participants = append(t.Participants, userID)

		participant := ledger.Participant{
			TournamentID: tournamentID,
			UserID:       userID,
			DisplayName:  displayName,
			Score:        0,
			JoinedAt:     now,
		}

		if err := tx.Set(ledger.AccountRef(userID), &account); err != nil {
			return err
		}
		if err := tx.Set(ledger.TournamentRef(tournamentID), &t); err != nil {
			return err
		}
		if err := tx.Set(participantRef, &participant); err != nil {
			return err
		}

		result.FeePaid = t.EntryFee
		result.ParticipantCount = len(t.Participants)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
