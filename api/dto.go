/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API contract, decoupled from the internal
  documents. Request bodies carry validator tags; handlers run them
  through the shared validator before touching any engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/spinzone/wheel-ledger/ledger"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type CreateAccountRequest struct {
	ID         string `json:"id" validate:"required,min=1,max=64"`
	ReferredBy string `json:"referredBy,omitempty" validate:"omitempty,max=64"`
}

type AccountDTO struct {
	ID                 string             `json:"id"`
	Balances           map[string]float64 `json:"balances"`
	SpinsAvailable     int                `json:"spinsAvailable"`
	TotalDeposited     float64            `json:"totalDeposited"`
	TotalWithdrawn     float64            `json:"totalWithdrawn"`
	TotalWinnings      float64            `json:"totalWinnings"`
	TotalSpinsPlayed   int                `json:"totalSpinsPlayed"`
	ReferredBy         string             `json:"referredBy,omitempty"`
	ReferralCount      int                `json:"referralCount"`
	ReferralMilestones []string           `json:"referralMilestones,omitempty"`
	IsBlocked          bool               `json:"isBlocked"`
	CreatedAt          time.Time          `json:"createdAt"`
}

func toAccountDTO(a *ledger.Account) AccountDTO {
	balances := make(map[string]float64, len(a.Balances))
	for tier, b := range a.Balances {
		balances[tier] = b.Float64()
	}
	return AccountDTO{
		ID:                 a.ID,
		Balances:           balances,
		SpinsAvailable:     a.SpinsAvailable,
		TotalDeposited:     a.TotalDeposited.Float64(),
		TotalWithdrawn:     a.TotalWithdrawn.Float64(),
		TotalWinnings:      a.TotalWinnings.Float64(),
		TotalSpinsPlayed:   a.TotalSpinsPlayed,
		ReferredBy:         a.ReferredBy,
		ReferralCount:      len(a.Referrals),
		ReferralMilestones: a.ReferralMilestones,
		IsBlocked:          a.IsBlocked,
		CreatedAt:          a.CreatedAt,
	}
}

type SetBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

// =============================================================================
// FUND REQUESTS
// =============================================================================

type SubmitRequestRequest struct {
	Kind           string  `json:"kind" validate:"required,oneof=add_fund withdrawal"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	TierID         string  `json:"tierId" validate:"required"`
	PaymentRef     string  `json:"paymentRef,omitempty" validate:"max=128"`
	PaymentDetails string  `json:"paymentDetails,omitempty" validate:"max=512"`
}

type ApproveRequestRequest struct {
	UserID         string  `json:"userId" validate:"required"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	TierID         string  `json:"tierId" validate:"required"`
	PaymentDetails string  `json:"paymentDetails,omitempty" validate:"max=512"`
}

type RejectRequestRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=512"`
}

type FundRequestDTO struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	UserID        string     `json:"userId"`
	Amount        float64    `json:"amount"`
	TierID        string     `json:"tierId"`
	Status        string     `json:"status"`
	PaymentRef    string     `json:"paymentRef,omitempty"`
	ProcessedBy   string     `json:"processedBy,omitempty"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	TransactionID string     `json:"transactionId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toFundRequestDTO(r *ledger.FundRequest) FundRequestDTO {
	return FundRequestDTO{
		ID:            r.ID,
		Kind:          string(r.Kind),
		UserID:        r.UserID,
		Amount:        r.Amount.Float64(),
		TierID:        r.TierID,
		Status:        string(r.Status),
		PaymentRef:    r.PaymentRef,
		ProcessedBy:   r.ProcessedBy,
		ProcessedAt:   r.ProcessedAt,
		TransactionID: r.TransactionID,
		CreatedAt:     r.CreatedAt,
	}
}

// =============================================================================
// TRANSACTIONS / STATS
// =============================================================================

type TransactionDTO struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
	BalanceBefore float64   `json:"balanceBefore"`
	BalanceAfter  float64   `json:"balanceAfter"`
	TierID        string    `json:"tierId"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toTransactionDTO(e ledger.LogEntry) TransactionDTO {
	return TransactionDTO{
		ID:            e.ID,
		Type:          string(e.Type),
		Amount:        e.Amount.Float64(),
		Description:   e.Description,
		BalanceBefore: e.BalanceBefore.Float64(),
		BalanceAfter:  e.BalanceAfter.Float64(),
		TierID:        e.TierID,
		CreatedAt:     e.CreatedAt,
	}
}

type StatsDTO struct {
	TotalDeposited    float64 `json:"totalDeposited"`
	TotalWithdrawn    float64 `json:"totalWithdrawn"`
	TotalGstCollected float64 `json:"totalGstCollected"`
}

// =============================================================================
// SPINS
// =============================================================================

type SpinRequest struct {
	TierID   string `json:"tierId" validate:"required"`
	FreeSpin bool   `json:"freeSpin"`
}

type SpinResultDTO struct {
	WinAmount    float64 `json:"winAmount"`
	Multiplier   float64 `json:"multiplier"`
	SegmentIndex int     `json:"chosenSegmentIndex"`
	Bet          float64 `json:"bet"`
	Net          float64 `json:"net"`
	FreeSpin     bool    `json:"freeSpin"`
	Balance      float64 `json:"balance"`
	Transaction  string  `json:"transactionId"`
}

// =============================================================================
// TOURNAMENTS
// =============================================================================

type CreateTournamentRequest struct {
	Name     string    `json:"name" validate:"required,max=128"`
	TierID   string    `json:"tierId" validate:"required"`
	EntryFee float64   `json:"entryFee" validate:"required,gt=0"`
	StartsAt time.Time `json:"startsAt"`
}

type JoinTournamentRequest struct {
	UserID      string `json:"userId" validate:"required"`
	DisplayName string `json:"displayName,omitempty" validate:"max=64"`
}

type TournamentDTO struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	TierID           string    `json:"tierId"`
	EntryFee         float64   `json:"entryFee"`
	Status           string    `json:"status"`
	ParticipantCount int       `json:"participantCount"`
	StartsAt         time.Time `json:"startsAt"`
}

func toTournamentDTO(t *ledger.Tournament) TournamentDTO {
	return TournamentDTO{
		ID:               t.ID,
		Name:             t.Name,
		TierID:           t.TierID,
		EntryFee:         t.EntryFee.Float64(),
		Status:           string(t.Status),
		ParticipantCount: len(t.Participants),
		StartsAt:         t.StartsAt,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
