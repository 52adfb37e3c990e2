/*
deposit.go - Deposit approval with referral payout cascade

PURPOSE:
  Admin approval of an add-fund request. One atomic transaction:

  1. Read account, global stats, request (and referrer on first deposit)
  2. Credit the tier balance, bump the account's TotalDeposited
  3. First-ever deposit with a ReferredBy link: compute the referral award
     and apply it to the referrer as ONE combined update
  4. Append the depositor's credit log entry, and the referrer's entry
     iff the award moved cash
  5. Bump Global Stats TotalDeposited
  6. Mark the request approved with admin identity and transaction link

  A request not in pending state fails with ErrInvalidState: re-approval
  is rejected, never double-applied.
*/
package funding

import (
	"context"
	"fmt"

	"github.com/spinzone/wheel-ledger/ledger"
	"github.com/spinzone/wheel-ledger/referral"
)

// DepositApproval identifies the request an admin is approving. UserID,
// Amount, and TierID must match the request document; a mismatch means the
// admin is acting on stale data and the operation aborts.
type DepositApproval struct {
	RequestID string
	UserID    string
	Amount    ledger.Amount
	TierID    string
	AdminID   string
}

// DepositResult reports what the approval committed.
type DepositResult struct {
	TransactionID string
	Referral      *referral.Award
	ReferrerLogID string
}

// ApproveDeposit atomically applies a pending add-fund request. The bonus
// configuration is an injected snapshot: one consistent view for the whole
// operation.
func (s *Service) ApproveDeposit(ctx context.Context, in DepositApproval, bonus referral.Config) (*DepositResult, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ledger.ErrInvalidState)
	}

	// IDs and timestamp are fixed before the transaction so a retried
	// body is a pure function of its reads.
	now := s.clock.Now()
	txID := s.store.NewID()
	referrerTxID := s.store.NewID()

	result := &DepositResult{TransactionID: txID}

	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		result.Referral = nil
		result.ReferrerLogID = ""

		var request ledger.FundRequest
		found, err := tx.Get(ledger.RequestRef(in.RequestID), &request)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "request", ID: in.RequestID}
		}
		if err := request.Validate(); err != nil {
			return err
		}
		if request.Status != ledger.RequestPending {
			return &ledger.InvalidStateError{
				Resource: "request", ID: in.RequestID,
				Expected: string(ledger.RequestPending), Actual: string(request.Status),
			}
		}
		if request.Kind != ledger.RequestAddFund {
			return &ledger.InvalidStateError{
				Resource: "request", ID: in.RequestID,
				Expected: string(ledger.RequestAddFund), Actual: string(request.Kind),
			}
		}
		if request.UserID != in.UserID || request.TierID != in.TierID || !request.Amount.Equal(in.Amount) {
			return fmt.Errorf("%w: approval does not match request %s", ledger.ErrInvalidState, in.RequestID)
		}

		var account ledger.Account
		found, err = tx.Get(ledger.AccountRef(in.UserID), &account)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "account", ID: in.UserID}
		}
		if err := account.Validate(); err != nil {
			return err
		}

		var stats ledger.GlobalStats
		if _, err := tx.Get(ledger.StatsRef(), &stats); err != nil {
			return err
		}

		// First-ever deposit check BEFORE the accumulator moves.
		firstDeposit := account.TotalDeposited.IsZero()

		balanceBefore := account.Balance(in.TierID)
		account.SetBalance(in.TierID, balanceBefore.Add(in.Amount))
		account.TotalDeposited = account.TotalDeposited.Add(in.Amount)

		// Referral cascade: one combined update to the referrer.
		if firstDeposit && account.ReferredBy != "" {
			var referrer ledger.Account
			found, err := tx.Get(ledger.AccountRef(account.ReferredBy), &referrer)
			if err != nil {
				return err
			}
			if found {
				award := referral.Compute(bonus, len(referrer.Referrals), referrer.ReferralMilestones)

				referrer.Referrals = append(referrer.Referrals, account.ID)
				referrer.SpinsAvailable += award.Spins
				if award.Badge != "" {
					referrer.ReferralMilestones = append(referrer.ReferralMilestones, award.Badge)
				}
				if award.Cash.IsPositive() {
					refBefore := referrer.Balance(in.TierID)
					referrer.SetBalance(in.TierID, refBefore.Add(award.Cash))

					entry := ledger.NewCredit(referrerTxID, referrer.ID, in.TierID,
						award.Cash, refBefore, award.Description(account.ID), now)
					if err := tx.Set(ledger.LogRef(referrerTxID), &entry); err != nil {
						return err
					}
					result.ReferrerLogID = referrerTxID
				}
				if err := tx.Set(ledger.AccountRef(referrer.ID), &referrer); err != nil {
					return err
				}
				result.Referral = &award
			}
		}

		entry := ledger.NewCredit(txID, account.ID, in.TierID, in.Amount, balanceBefore,
			fmt.Sprintf("Deposit approved: %s tier (request %s)", in.TierID, truncateID(in.RequestID)), now)
		if err := tx.Set(ledger.LogRef(txID), &entry); err != nil {
			return err
		}

		stats.TotalDeposited = stats.TotalDeposited.Add(in.Amount)
		if err := tx.Set(ledger.StatsRef(), &stats); err != nil {
			return err
		}

		request.Status = ledger.RequestApproved
		request.ProcessedBy = in.AdminID
		request.ProcessedAt = &now
		request.TransactionID = txID
		if err := tx.Set(ledger.RequestRef(in.RequestID), &request); err != nil {
			return err
		}

		return tx.Set(ledger.AccountRef(account.ID), &account)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
