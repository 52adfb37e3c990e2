package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinzone/wheel-ledger/api"
	"github.com/spinzone/wheel-ledger/config"
	"github.com/spinzone/wheel-ledger/funding"
	"github.com/spinzone/wheel-ledger/ledger"
	"github.com/spinzone/wheel-ledger/ledger/store"
	"github.com/spinzone/wheel-ledger/spin"
	"github.com/spinzone/wheel-ledger/tournament"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testSecret = "test-secret"

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// scriptedRand replays fixed variates; each spin consumes three.
type scriptedRand struct {
	vals []float64
	i    int
}

func (r *scriptedRand) Float64() float64 {
	if r.i >= len(r.vals) {
		return 0.5
	}
	v := r.vals[r.i]
	r.i++
	return v
}

type testEnv struct {
	router  http.Handler
	handler *api.Handler
	store   *store.Memory
}

func newTestEnv(t *testing.T, draws ...float64) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	clock := ledger.FixedClock{At: testNow}

	h := api.NewHandler(
		mem,
		funding.New(mem, clock),
		spin.NewEngine(mem, clock, &scriptedRand{vals: draws}),
		tournament.New(mem, clock),
		config.DefaultGame(),
		3,
	)
	return &testEnv{router: api.NewRouter(h, testSecret), handler: h, store: mem}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := api.AdminToken(testSecret, "admin-1", time.Hour)
	require.NoError(t, err)
	return token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// signup creates an account through the API and returns its DTO.
func (e *testEnv) signup(t *testing.T, id, referredBy string) api.AccountDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/accounts", map[string]string{
		"id": id, "referredBy": referredBy,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[api.AccountDTO](t, rec)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestAPI_CreateAccount_AppliesSignupGrant(t *testing.T) {
	env := newTestEnv(t)

	account := env.signup(t, "player-1", "")

	assert.Equal(t, "player-1", account.ID)
	assert.Equal(t, 50.0, account.Balances["little"])
	assert.Equal(t, 3, account.SpinsAvailable)
}

func TestAPI_CreateAccount_Duplicate_409(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "player-1", "")

	rec := env.do(t, http.MethodPost, "/api/accounts", map[string]string{"id": "player-1"}, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CreateAccount_MissingID_400(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/accounts", map[string]string{}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetAccount_Unknown_404(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/accounts/ghost", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// FUND REQUEST LIFECYCLE OVER HTTP
// =============================================================================

func TestAPI_DepositFlow_SubmitApproveAndAudit(t *testing.T) {
	// GIVEN: A signed-up player submitting a 500 add-fund request
	// WHEN: An admin approves it over the API
	// THEN: The balance is credited, the request reaches its terminal
	//       state with the admin identity, and re-approval returns 409

	env := newTestEnv(t)
	env.signup(t, "player-1", "")

	rec := env.do(t, http.MethodPost, "/api/accounts/player-1/requests", map[string]any{
		"kind": "add_fund", "amount": 500, "tierId": "little", "paymentRef": "upi-1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	request := decodeBody[api.FundRequestDTO](t, rec)
	assert.Equal(t, "pending", request.Status)

	token := adminToken(t)
	approvePath := fmt.Sprintf("/api/admin/requests/%s/approve", request.ID)
	approveBody := map[string]any{"userId": "player-1", "amount": 500, "tierId": "little"}

	rec = env.do(t, http.MethodPost, approvePath, approveBody, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	account := decodeBody[api.AccountDTO](t, env.do(t, http.MethodGet, "/api/accounts/player-1", nil, ""))
	assert.Equal(t, 550.0, account.Balances["little"], "signup 50 + deposit 500")

	queue := decodeBody[[]api.FundRequestDTO](t, env.do(t, http.MethodGet, "/api/admin/requests?status=approved", nil, token))
	require.Len(t, queue, 1)
	assert.Equal(t, "admin-1", queue[0].ProcessedBy, "admin identity from the JWT claim")

	// Double approval hits the terminal state.
	rec = env.do(t, http.MethodPost, approvePath, approveBody, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_WithdrawalApproval_InsufficientFunds_422(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "player-1", "")

	rec := env.do(t, http.MethodPost, "/api/accounts/player-1/requests", map[string]any{
		"kind": "withdrawal", "amount": 500, "tierId": "little",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	request := decodeBody[api.FundRequestDTO](t, rec)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/requests/%s/approve", request.ID),
		map[string]any{"userId": "player-1", "amount": 500, "tierId": "little"}, adminToken(t))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPI_RejectRequest_TerminalOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "player-1", "")

	rec := env.do(t, http.MethodPost, "/api/accounts/player-1/requests", map[string]any{
		"kind": "add_fund", "amount": 100, "tierId": "little",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	request := decodeBody[api.FundRequestDTO](t, rec)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/requests/%s/reject", request.ID),
		map[string]any{"reason": "payment never arrived"}, adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rejected := decodeBody[api.FundRequestDTO](t, rec)
	assert.Equal(t, "rejected", rejected.Status)
}

// =============================================================================
// SPINS OVER HTTP
// =============================================================================

func TestAPI_Spin_SettlesAgainstTheLedger(t *testing.T) {
	// GIVEN: A fresh signup (50 on little) and draws forcing a 5x win
	// WHEN: Spinning the little wheel (flat cost 10)
	// THEN: The response reports the settled outcome and new balance

	env := newTestEnv(t, 0.99, 0.95, 0.0)
	env.signup(t, "player-1", "")

	rec := env.do(t, http.MethodPost, "/api/accounts/player-1/spin",
		map[string]any{"tierId": "little"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeBody[api.SpinResultDTO](t, rec)
	assert.Equal(t, 5.0, result.Multiplier)
	assert.Equal(t, 10.0, result.Bet)
	assert.Equal(t, 50.0, result.WinAmount)
	assert.Equal(t, 40.0, result.Net)
	assert.Equal(t, 90.0, result.Balance)
	assert.NotEmpty(t, result.Transaction)

	history := decodeBody[[]api.TransactionDTO](t, env.do(t, http.MethodGet, "/api/accounts/player-1/transactions", nil, ""))
	require.Len(t, history, 1)
	assert.Equal(t, result.Transaction, history[0].ID)
}

func TestAPI_Spin_UnknownTier_500(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "player-1", "")

	rec := env.do(t, http.MethodPost, "/api/accounts/player-1/spin",
		map[string]any{"tierId": "mega"}, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// =============================================================================
// TOURNAMENTS OVER HTTP
// =============================================================================

func TestAPI_TournamentFlow_CreateJoinList(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "player-1", "")
	token := adminToken(t)

	rec := env.do(t, http.MethodPost, "/api/admin/tournaments", map[string]any{
		"name": "Friday League", "tierId": "little", "entryFee": 20,
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[api.TournamentDTO](t, rec)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/tournaments/%s/join", created.ID),
		map[string]any{"userId": "player-1", "displayName": "Player One"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	listed := decodeBody[[]api.TournamentDTO](t, env.do(t, http.MethodGet, "/api/tournaments", nil, ""))
	require.Len(t, listed, 1)
	assert.Equal(t, 1, listed[0].ParticipantCount)

	account := decodeBody[api.AccountDTO](t, env.do(t, http.MethodGet, "/api/accounts/player-1", nil, ""))
	assert.Equal(t, 30.0, account.Balances["little"], "signup 50 minus entry fee 20")

	// Joining again must not deduct again.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/tournaments/%s/join", created.ID),
		map[string]any{"userId": "player-1"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// ADMIN AUTH
// =============================================================================

func TestAPI_AdminRoutes_RequireValidToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/admin/requests", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no token")

	rec = env.do(t, http.MethodGet, "/api/admin/requests", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "garbage token")

	wrongSecret, err := api.AdminToken("other-secret", "admin-1", time.Hour)
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/admin/requests", nil, wrongSecret)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong signing secret")

	rec = env.do(t, http.MethodGet, "/api/admin/requests", nil, adminToken(t))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// PUBLIC READS AND SEEDING
// =============================================================================

func TestAPI_StatsAndWheels_PublicReads(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[api.StatsDTO](t, rec)
	assert.Equal(t, 0.0, stats.TotalDeposited)

	rec = env.do(t, http.MethodGet, "/api/wheels", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "little")
	assert.Contains(t, rec.Body.String(), "big")
}

func TestSeed_IdempotentDemoData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.handler.Seed(ctx))
	require.NoError(t, env.handler.Seed(ctx), "second seed backs off quietly")

	var account ledger.Account
	found, err := env.store.Get(ctx, ledger.AccountRef("demo-player"), &account)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "demo-referrer", account.ReferredBy)

	pending := decodeBody[[]api.FundRequestDTO](t, env.do(t, http.MethodGet, "/api/admin/requests?status=pending", nil, adminToken(t)))
	assert.Len(t, pending, 2, "one deposit, one withdrawal")
}
