/*
Package funding adjudicates the external-payment request queue.

PURPOSE:
  Add-fund and withdrawal requests are created by user actions and sit
  pending until an admin approves or rejects them. Every adjudication is a
  single atomic ledger transaction: account mutation, log entries, global
  stats, and the request's terminal status commit together or not at all.

REQUEST FLOW:
  user submits -> pending -> admin approves  -> approved/processed (terminal)
                          -> admin rejects   -> rejected (terminal)

  A request reaches exactly one terminal state. The status check happens
  inside the transaction against the freshly read document, so a retried
  or double-clicked approval fails with ErrInvalidState instead of paying
  twice.

OPERATIONS:
  CreateAccount:     signup with the configured initial balance and spins
  SubmitRequest:     create a pending add-fund or withdrawal request
  ApproveDeposit:    deposit.go - credits balance, referral cascade, stats
  ApproveWithdrawal: withdrawal.go - debits balance, GST bookkeeping, stats
  RejectRequest:     pending -> rejected, no balance effect

SEE ALSO:
  - ledger/store.go: Transaction contract these operations rely on
  - referral/bonus.go: First-deposit bonus computation
*/
package funding

import (
	"context"
	"fmt"

	"github.com/spinzone/wheel-ledger/ledger"
)

// Service executes fund-request and account lifecycle operations against
// the ledger store. It never retries on conflict; callers decide
// (ledger.RunWithRetry).
type Service struct {
	store ledger.Store
	clock ledger.Clock
}

func New(store ledger.Store, clock ledger.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// =============================================================================
// ACCOUNT SIGNUP
// =============================================================================

// SignupGrant is the configured starting state for new accounts.
type SignupGrant struct {
	Balances map[string]ledger.Amount `json:"balances"`
	Spins    int                      `json:"spins"`
}

// CreateAccount creates a new account with the signup grant applied.
// ReferredBy, when set, must name an existing account; the back-reference
// is recorded once here and never changes. The referrer's own Referrals
// set is only appended when the bonus is paid at first deposit.
func (s *Service) CreateAccount(ctx context.Context, id, referredBy string, grant SignupGrant) (*ledger.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: account id required", ledger.ErrInvalidState)
	}
	if referredBy == id {
		return nil, fmt.Errorf("%w: account cannot refer itself", ledger.ErrInvalidState)
	}

	now := s.clock.Now()
	account := &ledger.Account{
		ID:             id,
		Balances:       make(map[string]ledger.Amount, len(grant.Balances)),
		SpinsAvailable: grant.Spins,
		TotalDeposited: ledger.ZeroAmount(),
		TotalWithdrawn: ledger.ZeroAmount(),
		TotalWinnings:  ledger.ZeroAmount(),
		ReferredBy:     referredBy,
		CreatedAt:      now,
	}
	for tier, amount := range grant.Balances {
		account.SetBalance(tier, amount)
	}

	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		var existing ledger.Account
		found, err := tx.Get(ledger.AccountRef(id), &existing)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: account %q", ledger.ErrAlreadyExists, id)
		}

		if referredBy != "" {
			var referrer ledger.Account
			found, err := tx.Get(ledger.AccountRef(referredBy), &referrer)
			if err != nil {
				return err
			}
			if !found {
				return &ledger.NotFoundError{Resource: "account", ID: referredBy}
			}
		}

		return tx.Set(ledger.AccountRef(id), account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// =============================================================================
// REQUEST CREATION / REJECTION
// =============================================================================

// SubmitRequestInput carries a user-initiated fund request.
type SubmitRequestInput struct {
	Kind           ledger.RequestKind
	UserID         string
	Amount         ledger.Amount
	TierID         string
	PaymentRef     string
	PaymentDetails string
}

// SubmitRequest creates a pending request for later adjudication. The
// balance check for withdrawals happens at approval time against the live
// balance, not here.
func (s *Service) SubmitRequest(ctx context.Context, in SubmitRequestInput) (*ledger.FundRequest, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: request amount must be positive", ledger.ErrInvalidState)
	}
	if in.Kind != ledger.RequestAddFund && in.Kind != ledger.RequestWithdrawal {
		return nil, fmt.Errorf("%w: unknown request kind %q", ledger.ErrInvalidState, in.Kind)
	}

	request := &ledger.FundRequest{
		ID:             s.store.NewID(),
		Kind:           in.Kind,
		UserID:         in.UserID,
		Amount:         in.Amount,
		TierID:         in.TierID,
		Status:         ledger.RequestPending,
		PaymentRef:     in.PaymentRef,
		PaymentDetails: in.PaymentDetails,
		CreatedAt:      s.clock.Now(),
	}

	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		var account ledger.Account
		found, err := tx.Get(ledger.AccountRef(in.UserID), &account)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "account", ID: in.UserID}
		}
		return tx.Set(ledger.RequestRef(request.ID), request)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// RejectRequest moves a pending request to rejected. No balance effect,
// but still status-guarded inside a transaction so reject cannot race an
// approval of the same request.
func (s *Service) RejectRequest(ctx context.Context, requestID, adminID, reason string) (*ledger.FundRequest, error) {
	now := s.clock.Now()
	var request ledger.FundRequest

	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		found, err := tx.Get(ledger.RequestRef(requestID), &request)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "request", ID: requestID}
		}
		if request.Status != ledger.RequestPending {
			return &ledger.InvalidStateError{
				Resource: "request", ID: requestID,
				Expected: string(ledger.RequestPending), Actual: string(request.Status),
			}
		}

		request.Status = ledger.RequestRejected
		request.RejectReason = reason
		request.ProcessedBy = adminID
		request.ProcessedAt = &now
		return tx.Set(ledger.RequestRef(requestID), &request)
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// =============================================================================
// SOFT BLOCK
// =============================================================================

// SetBlocked toggles an account's soft block. Blocked accounts keep their
// balances but cannot settle spins.
func (s *Service) SetBlocked(ctx context.Context, userID string, blocked bool) (*ledger.Account, error) {
	var account ledger.Account
	err := s.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		found, err := tx.Get(ledger.AccountRef(userID), &account)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "account", ID: userID}
		}
		account.IsBlocked = blocked
		return tx.Set(ledger.AccountRef(userID), &account)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// truncateID shortens a request id for log-entry descriptions.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
