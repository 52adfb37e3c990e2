/*
Package ledger provides the core balance-mutation engine.

PURPOSE:
  This package contains the types and transaction contract shared by every
  money-moving operation in the system: deposit approval, withdrawal
  approval, tournament entry, and spin settlement. The combined state of
  account balances, the append-only transaction log, and the global stats
  singleton is "the ledger"; it is mutated only through atomic store
  transactions defined here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A money quantity backed by decimal.Decimal
  - Account: Per-user balances, spin credits, referral graph fields
  - LogEntry: An immutable ledger record of one balance change
  - GlobalStats: Process-wide monotone accumulators
  - Tier: An independent sub-wallet (e.g. "little", "big"), keyed by ID

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all money, never float64
  2. Immutability: LogEntry is append-only, corrections are new entries
  3. Isolation: Tier balances are independent sub-wallets, never commingled
  4. Validation: Documents are validated on read, malformed docs rejected

SEE ALSO:
  - store.go: Atomic transaction contract
  - errors.go: Error taxonomy
  - log.go: Transaction log helpers
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Money quantity
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value)}
}

func NewAmountFromInt(value int) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value))}
}

func ZeroAmount() Amount {
	return Amount{Value: decimal.Zero}
}

func MustParseAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroAmount()
	}
	return Amount{Value: d}
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s)} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg()} }
func (a Amount) Abs() Amount                  { return Amount{Value: a.Value.Abs()} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }

func (a Amount) GreaterThanOrEqual(b Amount) bool {
	return a.Value.GreaterThanOrEqual(b.Value)
}

func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

func (a Amount) String() string { return a.Value.String() }

// Amount marshals as a bare decimal string so documents read naturally:
// {"balances": {"little": "150.5"}}.
func (a Amount) MarshalJSON() ([]byte, error) {
	return a.Value.MarshalJSON()
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Value.UnmarshalJSON(data)
}

// =============================================================================
// ACCOUNT - Per-user ledger state
// =============================================================================

// DateLayout is the local-date format used for daily counters.
const DateLayout = "2006-01-02"

// Account holds everything the ledger knows about one user. Accounts are
// created at signup and never hard-deleted; blocking is a soft gate.
//
// INVARIANTS:
//   - Every tier balance is non-negative
//   - TotalDeposited / TotalWithdrawn / TotalWinnings / TotalSpinsPlayed
//     are monotonically non-decreasing
//   - ReferredBy is set once at signup and never changes
//   - ReferralMilestones records badges already granted (no double-award)
type Account struct {
	ID                 string            `json:"id"`
	Balances           map[string]Amount `json:"balances"`
	SpinsAvailable     int               `json:"spinsAvailable"`
	TotalDeposited     Amount            `json:"totalDeposited"`
	TotalWithdrawn     Amount            `json:"totalWithdrawn"`
	TotalWinnings      Amount            `json:"totalWinnings"`
	TotalSpinsPlayed   int               `json:"totalSpinsPlayed"`
	ReferredBy         string            `json:"referredBy,omitempty"`
	Referrals          []string          `json:"referrals,omitempty"`
	ReferralMilestones []string          `json:"referralMilestones,omitempty"`
	DailyPaidSpinsUsed int               `json:"dailyPaidSpinsUsed"`
	LastPaidSpinDate   string            `json:"lastPaidSpinDate,omitempty"`
	IsBlocked          bool              `json:"isBlocked"`
	CreatedAt          time.Time         `json:"createdAt"`
}

// Balance returns the balance for a tier, zero when the tier has never
// been funded.
func (a *Account) Balance(tierID string) Amount {
	if b, ok := a.Balances[tierID]; ok {
		return b
	}
	return ZeroAmount()
}

// SetBalance writes a tier balance, allocating the map on first use.
func (a *Account) SetBalance(tierID string, b Amount) {
	if a.Balances == nil {
		a.Balances = make(map[string]Amount)
	}
	a.Balances[tierID] = b
}

// HasMilestone reports whether a badge has already been granted.
func (a *Account) HasMilestone(badge string) bool {
	for _, m := range a.ReferralMilestones {
		if m == badge {
			return true
		}
	}
	return false
}

// Validate rejects malformed account documents at read time rather than
// silently defaulting.
func (a *Account) Validate() error {
	if a.ID == "" {
		return &ConfigurationError{Detail: "account document missing id"}
	}
	for tier, b := range a.Balances {
		if b.IsNegative() {
			return &ConfigurationError{Detail: fmt.Sprintf("account %s: negative balance for tier %q", a.ID, tier)}
		}
	}
	if a.SpinsAvailable < 0 {
		return &ConfigurationError{Detail: fmt.Sprintf("account %s: negative spin credit", a.ID)}
	}
	if a.TotalDeposited.IsNegative() || a.TotalWithdrawn.IsNegative() || a.TotalWinnings.IsNegative() {
		return &ConfigurationError{Detail: fmt.Sprintf("account %s: negative accumulator", a.ID)}
	}
	return nil
}

// =============================================================================
// FUND REQUEST - Pending external-payment request awaiting adjudication
// =============================================================================

type RequestKind string

const (
	RequestAddFund    RequestKind = "add_fund"
	RequestWithdrawal RequestKind = "withdrawal"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"  // add-fund terminal state
	RequestProcessed RequestStatus = "processed" // withdrawal terminal state
	RequestRejected  RequestStatus = "rejected"
)

// FundRequest is created by a user action and transitions to exactly one
// terminal state via an admin-triggered ledger operation. The status field
// is the idempotency guard: approval is only valid from pending.
type FundRequest struct {
	ID             string        `json:"id"`
	Kind           RequestKind   `json:"kind"`
	UserID         string        `json:"userId"`
	Amount         Amount        `json:"amount"`
	TierID         string        `json:"tierId"`
	Status         RequestStatus `json:"status"`
	PaymentRef     string        `json:"paymentRef,omitempty"`
	PaymentDetails string        `json:"paymentDetails,omitempty"`
	RejectReason   string        `json:"rejectReason,omitempty"`
	ProcessedBy    string        `json:"processedBy,omitempty"`
	ProcessedAt    *time.Time    `json:"processedAt,omitempty"`
	TransactionID  string        `json:"transactionId,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

func (r *FundRequest) Validate() error {
	if r.ID == "" || r.UserID == "" || r.TierID == "" {
		return &ConfigurationError{Detail: "request document missing identity fields"}
	}
	if !r.Amount.IsPositive() {
		return &ConfigurationError{Detail: fmt.Sprintf("request %s: non-positive amount", r.ID)}
	}
	switch r.Kind {
	case RequestAddFund, RequestWithdrawal:
	default:
		return &ConfigurationError{Detail: fmt.Sprintf("request %s: unknown kind %q", r.ID, r.Kind)}
	}
	return nil
}

// =============================================================================
// GLOBAL STATS - Singleton accumulators
// =============================================================================

// GlobalStats is created lazily on first mutation and updated in lock-step
// with every approved deposit and processed withdrawal.
type GlobalStats struct {
	TotalDeposited    Amount `json:"totalDeposited"`
	TotalWithdrawn    Amount `json:"totalWithdrawn"`
	TotalGstCollected Amount `json:"totalGstCollected"`
}

// =============================================================================
// TOURNAMENT
// =============================================================================

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

// Tournament keeps a denormalized participant-id array for fast counting;
// the per-user Participant record is the authoritative join guard.
type Tournament struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	TierID       string           `json:"tierId"`
	EntryFee     Amount           `json:"entryFee"`
	Status       TournamentStatus `json:"status"`
	Participants []string         `json:"participants,omitempty"`
	StartsAt     time.Time        `json:"startsAt"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func (t *Tournament) Joinable() bool {
	return t.Status == TournamentUpcoming || t.Status == TournamentActive
}

func (t *Tournament) HasParticipant(userID string) bool {
	for _, id := range t.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Participant exists at most once per (tournament, user).
type Participant struct {
	TournamentID string    `json:"tournamentId"`
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName,omitempty"`
	Score        int       `json:"score"`
	JoinedAt     time.Time `json:"joinedAt"`
}
