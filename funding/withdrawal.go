/*
withdrawal.go - Withdrawal approval with GST bookkeeping

PURPOSE:
  Admin approval of a pending withdrawal request. One atomic transaction:

  1. Check the LIVE tier balance covers the amount (never a cached value;
     this closes the race between request creation and approval)
  2. Debit the tier balance, bump the account's TotalWithdrawn
  3. Record 2% of the amount as collected GST in Global Stats - pure
     bookkeeping, the user's balance is only reduced by the amount itself
  4. Append one debit log entry recording gross amount and rate
  5. Bump Global Stats TotalWithdrawn and TotalGstCollected
  6. Mark the request processed with admin identity and transaction link

  Insufficient balance aborts with ErrInsufficientFunds and zero writes.
*/
package funding

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/spinzone/wheel-ledger/ledger"
)

// GST is applied uniformly at a fixed rate regardless of tier.
var gstRate = decimal.NewFromFloat(0.02)

// WithdrawalApproval identifies the request an admin is processing.
type WithdrawalApproval struct {
	RequestID      string
	UserID         string
	Amount         ledger.Amount
	TierID         string
	PaymentDetails string
	AdminID        string
}

// WithdrawalResult reports what the approval committed.
type WithdrawalResult struct {
	TransactionID string
	GstCollected  ledger.Amount
}

// ApproveWithdrawal atomically applies a pending withdrawal request.
func (s *Service) ApproveWithdrawal(ctx context.Context, in WithdrawalApproval) (*WithdrawalResult, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", ledger.ErrInvalidState)
	}

	now := s.clock.Now()
	txID := s.store.NewID()
	gst := in.Amount.Mul(gstRate)

	result := &WithdrawalResult{TransactionID: txID, GstCollected: gst}

	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
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
		if request.Kind != ledger.RequestWithdrawal {
			return &ledger.InvalidStateError{
				Resource: "request", ID: in.RequestID,
				Expected: string(ledger.RequestWithdrawal), Actual: string(request.Kind),
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

		balanceBefore := account.Balance(in.TierID)
		if balanceBefore.LessThan(in.Amount) {
			return &ledger.InsufficientFundsError{
				UserID: in.UserID, TierID: in.TierID,
				Available: balanceBefore, Requested: in.Amount,
			}
		}

		var stats ledger.GlobalStats
		if _, err := tx.Get(ledger.StatsRef(), &stats); err != nil {
			return err
		}

		account.SetBalance(in.TierID, balanceBefore.Sub(in.Amount))
		account.TotalWithdrawn = account.TotalWithdrawn.Add(in.Amount)

		entry := ledger.NewDebit(txID, account.ID, in.TierID, in.Amount, balanceBefore,
			fmt.Sprintf("Withdrawal processed: %s tier, gross %s, GST deducted at %s%% (request %s)",
				in.TierID, in.Amount, gstRate.Mul(decimal.NewFromInt(100)), truncateID(in.RequestID)), now)
		if err := tx.Set(ledger.LogRef(txID), &entry); err != nil {
			return err
		}

		stats.TotalWithdrawn = stats.TotalWithdrawn.Add(in.Amount)
		stats.TotalGstCollected = stats.TotalGstCollected.Add(gst)
		if err := tx.Set(ledger.StatsRef(), &stats); err != nil {
			return err
		}

		request.Status = ledger.RequestProcessed
		request.PaymentDetails = in.PaymentDetails
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
