/*
engine.go - Atomic spin settlement against the ledger

PURPOSE:
  Applies one spin's net delta (win - bet) to the account's tier balance
  atomically with the played/winnings accumulators, the daily paid-spin
  counter, and the transaction log entry. The outcome variates are drawn
  before the transaction opens, so a conflict-retried body replays the
  same spin instead of re-rolling it.

FREE vs PAID:
  Free spins consume one SpinsAvailable credit and bet zero.
  Paid spins are priced by the wheel's cost model against the daily
  paid-spin counter, which resets when the local date changes.

BLOCKED ACCOUNTS:
  IsBlocked is a soft gate: blocked accounts keep their balances but
  cannot settle spins.
*/
package spin

import (
	"context"
	"fmt"

	"github.com/spinzone/wheel-ledger/ledger"
)

// Engine settles spins against the ledger store.
type Engine struct {
	store ledger.Store
	clock ledger.Clock
	rng   Rand
}

func NewEngine(store ledger.Store, clock ledger.Clock, rng Rand) *Engine {
	return &Engine{store: store, clock: clock, rng: rng}
}

// Result reports one settled spin.
type Result struct {
	Outcome       Outcome
	Bet           ledger.Amount
	Net           ledger.Amount
	FreeSpin      bool
	Balance       ledger.Amount
	TransactionID string
}

// Spin settles one spin for the user on the given wheel. The wheel and
// house edge are injected configuration snapshots, consistent for the
// whole operation.
func (e *Engine) Spin(ctx context.Context, userID string, wheel Wheel, houseEdge float64, free bool) (*Result, error) {
	if err := wheel.Validate(); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	today := ledger.LocalDate(now)
	txID := e.store.NewID()
	draws := NewDraws(e.rng)

	result := &Result{FreeSpin: free, TransactionID: txID}

	err := e.store.RunTransaction(ctx, func(tx ledger.Tx) error {
		var account ledger.Account
		found, err := tx.Get(ledger.AccountRef(userID), &account)
		if err != nil {
			return err
		}
		if !found {
			return &ledger.NotFoundError{Resource: "account", ID: userID}
		}
		if err := account.Validate(); err != nil {
			return err
		}
		if account.IsBlocked {
			return &ledger.InvalidStateError{
				Resource: "account", ID: userID,
				Expected: "active", Actual: "blocked",
			}
		}

		// Daily counter rollover happens lazily on the first paid spin
		// of a new local date.
		dailyUsed := account.DailyPaidSpinsUsed
		if account.LastPaidSpinDate != today {
			dailyUsed = 0
		}

		bet := ledger.ZeroAmount()
		if free {
			if account.SpinsAvailable <= 0 {
				return fmt.Errorf("%w: no free spins available", ledger.ErrInvalidState)
			}
			account.SpinsAvailable--
		} else {
			bet = wheel.Cost.SpinCost(dailyUsed)
			if account.Balance(wheel.TierID).LessThan(bet) {
				return &ledger.InsufficientFundsError{
					UserID: userID, TierID: wheel.TierID,
					Available: account.Balance(wheel.TierID), Requested: bet,
				}
			}
			account.DailyPaidSpinsUsed = dailyUsed + 1
			account.LastPaidSpinDate = today
		}

		outcome, err := Settle(draws, bet, wheel.Segments, houseEdge)
		if err != nil {
			return err
		}

		before := account.Balance(wheel.TierID)
		after := before.Sub(bet).Add(outcome.WinAmount)
		account.SetBalance(wheel.TierID, after)
		account.TotalSpinsPlayed++
		account.TotalWinnings = account.TotalWinnings.Add(outcome.WinAmount)

		desc := fmt.Sprintf("Spin settled: %s tier, bet %s, %gx, won %s",
			wheel.TierID, bet, outcome.Multiplier, outcome.WinAmount)
		if free {
			desc += " (free spin)"
		}

		net := outcome.WinAmount.Sub(bet)
		var entry ledger.LogEntry
		if net.IsNegative() {
			entry = ledger.NewDebit(txID, userID, wheel.TierID, net.Abs(), before, desc, now)
		} else {
			entry = ledger.NewCredit(txID, userID, wheel.TierID, net, before, desc, now)
		}
		if err := tx.Set(ledger.LogRef(txID), &entry); err != nil {
			return err
		}

		result.Outcome = outcome
		result.Bet = bet
		result.Net = net
		result.Balance = after

		return tx.Set(ledger.AccountRef(userID), &account)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
