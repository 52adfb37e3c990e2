/*
log.go - Append-only transaction log

PURPOSE:
  Every balance-affecting sub-operation writes exactly one LogEntry in the
  same atomic transaction as the balance change itself. The log is the
  audit trail: balanceBefore/balanceAfter on each entry let any balance be
  explained by replaying history.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Entries are never updated or deleted
  2. CONSISTENT: BalanceAfter = BalanceBefore + Amount for credits,
     BalanceBefore - Amount for debits; Amount is always a positive magnitude
  3. ATOMIC: An entry exists if and only if its balance change committed

A single admin action may produce one or two entries: the depositor's
credit, plus the referrer's bonus credit when a first deposit triggers a
cash referral award. Spin-only bonuses move no money and are not logged.
*/
package ledger

import (
	"encoding/json"
	"sort"
	"time"
)

// =============================================================================
// LOG ENTRY
// =============================================================================

type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

type LogEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Type          EntryType `json:"type"`
	Amount        Amount    `json:"amount"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	BalanceBefore Amount    `json:"balanceBefore"`
	BalanceAfter  Amount    `json:"balanceAfter"`
	TierID        string    `json:"tierId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewCredit builds a consistent credit entry from the pre-mutation balance.
func NewCredit(id, userID, tierID string, amount, before Amount, desc string, at time.Time) LogEntry {
	return LogEntry{
		ID:            id,
		UserID:        userID,
		Type:          EntryCredit,
		Amount:        amount,
		Description:   desc,
		Status:        "completed",
		BalanceBefore: before,
		BalanceAfter:  before.Add(amount),
		TierID:        tierID,
		CreatedAt:     at,
	}
}

// NewDebit builds a consistent debit entry from the pre-mutation balance.
func NewDebit(id, userID, tierID string, amount, before Amount, desc string, at time.Time) LogEntry {
	return LogEntry{
		ID:            id,
		UserID:        userID,
		Type:          EntryDebit,
		Amount:        amount,
		Description:   desc,
		Status:        "completed",
		BalanceBefore: before,
		BalanceAfter:  before.Sub(amount),
		TierID:        tierID,
		CreatedAt:     at,
	}
}

// Consistent checks the balance arithmetic invariant.
func (e LogEntry) Consistent() bool {
	if e.Amount.IsNegative() {
		return false
	}
	switch e.Type {
	case EntryCredit:
		return e.BalanceAfter.Equal(e.BalanceBefore.Add(e.Amount))
	case EntryDebit:
		return e.BalanceAfter.Equal(e.BalanceBefore.Sub(e.Amount))
	}
	return false
}

// =============================================================================
// HISTORY READS
// =============================================================================

// History returns a user's log entries, newest first. Read path only.
func History(snapshots []Snapshot, userID string) ([]LogEntry, error) {
	var entries []LogEntry
	for _, snap := range snapshots {
		var e LogEntry
		if err := json.Unmarshal(snap.Data, &e); err != nil {
			return nil, &ConfigurationError{Detail: "malformed transaction document " + snap.Ref.ID}
		}
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
