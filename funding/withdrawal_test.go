package funding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinzone/wheel-ledger/funding"
	"github.com/spinzone/wheel-ledger/ledger"
	"github.com/spinzone/wheel-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// pendingWithdrawal creates an account with the given balance and a
// pending withdrawal request for the given amount on the little tier.
func pendingWithdrawal(t *testing.T, svc *funding.Service, mem *store.Memory, balance, amount int) ledger.FundRequest {
	t.Helper()
	putAccount(t, mem, ledger.Account{
		ID:        "player-1",
		Balances:  map[string]ledger.Amount{"little": ledger.NewAmountFromInt(balance)},
		CreatedAt: testNow,
	})

	request, err := svc.SubmitRequest(context.Background(), funding.SubmitRequestInput{
		Kind:   ledger.RequestWithdrawal,
		UserID: "player-1",
		Amount: ledger.NewAmountFromInt(amount),
		TierID: "little",
	})
	require.NoError(t, err)
	return *request
}

func withdrawalApproval(request ledger.FundRequest) funding.WithdrawalApproval {
	return funding.WithdrawalApproval{
		RequestID:      request.ID,
		UserID:         request.UserID,
		Amount:         request.Amount,
		TierID:         request.TierID,
		PaymentDetails: "paid via UPI ref 789",
		AdminID:        "admin-1",
	}
}

// =============================================================================
// APPROVAL HAPPY PATH
// =============================================================================

func TestApproveWithdrawal_DebitsAndRecordsGst(t *testing.T) {
	// GIVEN: A player with 100 and a pending withdrawal of 50
	// WHEN: The admin processes it
	// THEN: The balance drops by exactly 50; 2% GST lands in global stats
	//       as bookkeeping, never as an extra user debit

	svc, mem := newTestService(t)
	request := pendingWithdrawal(t, svc, mem, 100, 50)

	result, err := svc.ApproveWithdrawal(context.Background(), withdrawalApproval(request))
	require.NoError(t, err)

	assert.True(t, ledger.NewAmountFromInt(1).Equal(result.GstCollected), "2%% of 50")

	account := getAccount(t, mem, "player-1")
	assert.True(t, ledger.NewAmountFromInt(50).Equal(account.Balance("little")))
	assert.True(t, ledger.NewAmountFromInt(50).Equal(account.TotalWithdrawn))

	stats := getStats(t, mem)
	assert.True(t, ledger.NewAmountFromInt(50).Equal(stats.TotalWithdrawn))
	assert.True(t, ledger.NewAmountFromInt(1).Equal(stats.TotalGstCollected))

	updated := getRequest(t, mem, request.ID)
	assert.Equal(t, ledger.RequestProcessed, updated.Status)
	assert.Equal(t, "paid via UPI ref 789", updated.PaymentDetails)
	assert.Equal(t, result.TransactionID, updated.TransactionID)

	entry := getEntry(t, mem, result.TransactionID)
	assert.Equal(t, ledger.EntryDebit, entry.Type)
	assert.True(t, ledger.NewAmountFromInt(50).Equal(entry.Amount))
	assert.True(t, entry.Consistent())
	assert.Contains(t, entry.Description, "GST")
}

func TestApproveWithdrawal_FractionalAmount_ExactGst(t *testing.T) {
	// GIVEN: A withdrawal of 33.33
	// WHEN: Processed
	// THEN: GST is the exact decimal 0.6666, no float drift

	svc, mem := newTestService(t)
	putAccount(t, mem, ledger.Account{
		ID:        "player-1",
		Balances:  map[string]ledger.Amount{"little": ledger.NewAmountFromInt(100)},
		CreatedAt: testNow,
	})
	request, err := svc.SubmitRequest(context.Background(), funding.SubmitRequestInput{
		Kind:   ledger.RequestWithdrawal,
		UserID: "player-1",
		Amount: ledger.MustParseAmount("33.33"),
		TierID: "little",
	})
	require.NoError(t, err)

	result, err := svc.ApproveWithdrawal(context.Background(), withdrawalApproval(*request))
	require.NoError(t, err)

	assert.True(t, ledger.MustParseAmount("0.6666").Equal(result.GstCollected), "got %s", result.GstCollected)
	account := getAccount(t, mem, "player-1")
	assert.True(t, ledger.MustParseAmount("66.67").Equal(account.Balance("little")))
}

// =============================================================================
// LIVE BALANCE GUARD
// =============================================================================

func TestApproveWithdrawal_BalanceSpentSinceRequest_Rejected(t *testing.T) {
	// GIVEN: A request for 50 but the live balance has dropped to 30
	// WHEN: The admin processes it
	// THEN: ErrInsufficientFunds with zero writes; the request stays
	//       pending and the stats untouched

	svc, mem := newTestService(t)
	request := pendingWithdrawal(t, svc, mem, 100, 50)

	// Balance drains between request creation and approval.
	account := getAccount(t, mem, "player-1")
	account.SetBalance("little", ledger.NewAmountFromInt(30))
	putAccount(t, mem, *account)

	_, err := svc.ApproveWithdrawal(context.Background(), withdrawalApproval(request))

	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, ledger.RequestPending, getRequest(t, mem, request.ID).Status)
	assert.True(t, ledger.NewAmountFromInt(30).Equal(getAccount(t, mem, "player-1").Balance("little")))
	assert.True(t, getStats(t, mem).TotalWithdrawn.IsZero())
}

// =============================================================================
// IDEMPOTENCY
// =============================================================================

func TestApproveWithdrawal_Twice_SecondRejected(t *testing.T) {
	svc, mem := newTestService(t)
	request := pendingWithdrawal(t, svc, mem, 100, 50)

	_, err := svc.ApproveWithdrawal(context.Background(), withdrawalApproval(request))
	require.NoError(t, err)

	_, err = svc.ApproveWithdrawal(context.Background(), withdrawalApproval(request))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	account := getAccount(t, mem, "player-1")
	assert.True(t, ledger.NewAmountFromInt(50).Equal(account.Balance("little")), "debited exactly once")
}

func TestApproveWithdrawal_RejectedRequest_CannotBeProcessed(t *testing.T) {
	// GIVEN: A request the admin already rejected
	// WHEN: A process attempt races in afterwards
	// THEN: The terminal state wins

	svc, mem := newTestService(t)
	request := pendingWithdrawal(t, svc, mem, 100, 50)

	_, err := svc.RejectRequest(context.Background(), request.ID, "admin-1", "suspicious activity")
	require.NoError(t, err)

	_, err = svc.ApproveWithdrawal(context.Background(), withdrawalApproval(request))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestApproveWithdrawal_AddFundRequest_WrongKind(t *testing.T) {
	svc, mem := newTestService(t)
	putAccount(t, mem, ledger.Account{
		ID:        "player-1",
		Balances:  map[string]ledger.Amount{"little": ledger.NewAmountFromInt(100)},
		CreatedAt: testNow,
	})
	request, err := svc.SubmitRequest(context.Background(), funding.SubmitRequestInput{
		Kind:   ledger.RequestAddFund,
		UserID: "player-1",
		Amount: ledger.NewAmountFromInt(50),
		TierID: "little",
	})
	require.NoError(t, err)

	_, err = svc.ApproveWithdrawal(context.Background(), withdrawalApproval(*request))

	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}
