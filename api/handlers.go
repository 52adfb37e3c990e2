/*
handlers.go - HTTP handlers for the wheel ledger

PURPOSE:
  Exposes the ledger engines via REST. Handlers parse and validate input,
  delegate to the engines, and map the error taxonomy to HTTP status
  codes. Conflicted operations are retried a bounded number of times
  before surfacing 503 - the engines themselves never retry.

ENDPOINTS:
  Accounts:
    POST   /api/accounts                      Signup
    GET    /api/accounts/{id}                 Account state
    GET    /api/accounts/{id}/transactions    Ledger history
    POST   /api/accounts/{id}/requests        Submit fund request
    POST   /api/accounts/{id}/spin            Settle a spin

  Tournaments:
    GET    /api/tournaments                   List tournaments
    POST   /api/tournaments/{id}/join         Enter a tournament

  Public reads:
    GET    /api/wheels                        Wheel configurations
    GET    /api/stats                         Global stats

  Admin (JWT):
    GET    /api/admin/requests                Request queue
    POST   /api/admin/requests/{id}/approve   Approve deposit/withdrawal
    POST   /api/admin/requests/{id}/reject    Reject request
    POST   /api/admin/tournaments             Create tournament
    POST   /api/admin/tournaments/{id}/status Advance lifecycle
    POST   /api/admin/accounts/{id}/block     Soft block/unblock

ERROR MAPPING:
  400 validation, 404 not found, 409 invalid state / duplicate,
  422 insufficient funds, 500 configuration/internal, 503 conflict
  after the retry budget is exhausted.

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router and middleware wiring
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/spinzone/wheel-ledger/config"
	"github.com/spinzone/wheel-ledger/funding"
	"github.com/spinzone/wheel-ledger/ledger"
	"github.com/spinzone/wheel-ledger/spin"
	"github.com/spinzone/wheel-ledger/tournament"
)

var validate = validator.New()

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       ledger.Store
	Funding     *funding.Service
	Spins       *spin.Engine
	Tournaments *tournament.Service
	Game        *config.Game

	// Bounded retry budget for operations aborted by optimistic conflicts.
	RetryAttempts int
}

func NewHandler(store ledger.Store, f *funding.Service, sp *spin.Engine, t *tournament.Service, game *config.Game, retries int) *Handler {
	if retries < 1 {
		retries = 1
	}
	return &Handler{
		Store:         store,
		Funding:       f,
		Spins:         sp,
		Tournaments:   t,
		Game:          game,
		RetryAttempts: retries,
	}
}

// withRetry re-runs op only on optimistic conflicts, per the caller-side
// retry contract.
func (h *Handler) withRetry(ctx context.Context, op func() error) error {
	var err error
	for i := 0; i < h.RetryAttempts; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = op()
		if err == nil || !ledger.IsRetryable(err) {
			return err
		}
	}
	return err
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// CreateAccount handles signup with the configured initial grant.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var account *ledger.Account
	err := h.withRetry(r.Context(), func() error {
		var err error
		account, err = h.Funding.CreateAccount(r.Context(), req.ID, req.ReferredBy, h.Game.Signup)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// GetAccount returns one account's state.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var account ledger.Account
	found, err := h.Store.Get(r.Context(), ledger.AccountRef(id), &account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read account", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(&account))
}

// GetTransactions returns a user's ledger history, newest first.
// GET /api/accounts/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snapshots, err := h.Store.List(r.Context(), ledger.CollectionTransactions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read transactions", err)
		return
	}
	entries, err := ledger.History(snapshots, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toTransactionDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitRequest creates a pending fund request for adjudication.
// POST /api/accounts/{id}/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req SubmitRequestRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var request *ledger.FundRequest
	err := h.withRetry(r.Context(), func() error {
		var err error
		request, err = h.Funding.SubmitRequest(r.Context(), funding.SubmitRequestInput{
			Kind:           ledger.RequestKind(req.Kind),
			UserID:         userID,
			Amount:         ledger.NewAmount(req.Amount),
			TierID:         req.TierID,
			PaymentRef:     req.PaymentRef,
			PaymentDetails: req.PaymentDetails,
		})
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFundRequestDTO(request))
}

// SpinWheel settles one spin on the tier's wheel.
// POST /api/accounts/{id}/spin
func (h *Handler) SpinWheel(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req SpinRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	wheel, err := h.Game.Wheel(req.TierID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var result *spin.Result
	err = h.withRetry(r.Context(), func() error {
		var err error
		result, err = h.Spins.Spin(r.Context(), userID, wheel, h.Game.HouseEdge, req.FreeSpin)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SpinResultDTO{
		WinAmount:    result.Outcome.WinAmount.Float64(),
		Multiplier:   result.Outcome.Multiplier,
		SegmentIndex: result.Outcome.SegmentIndex,
		Bet:          result.Bet.Float64(),
		Net:          result.Net.Float64(),
		FreeSpin:     result.FreeSpin,
		Balance:      result.Balance.Float64(),
		Transaction:  result.TransactionID,
	})
}

// =============================================================================
// TOURNAMENT HANDLERS
// =============================================================================

// ListTournaments returns all tournaments.
// GET /api/tournaments
func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.Store.List(r.Context(), ledger.CollectionTournaments)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read tournaments", err)
		return
	}

	dtos := make([]TournamentDTO, 0, len(snapshots))
	for _, snap := range snapshots {
		var t ledger.Tournament
		if err := json.Unmarshal(snap.Data, &t); err != nil {
			writeError(w, http.StatusInternalServerError, "Malformed tournament document", err)
			return
		}
		dtos = append(dtos, toTournamentDTO(&t))
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].StartsAt.Before(dtos[j].StartsAt) })
	writeJSON(w, http.StatusOK, dtos)
}

// JoinTournament enters the user into a tournament.
// POST /api/tournaments/{id}/join
func (h *Handler) JoinTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "id")
	var req JoinTournamentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var result *tournament.JoinResult
	err := h.withRetry(r.Context(), func() error {
		var err error
		result, err = h.Tournaments.Join(r.Context(), tournamentID, req.UserID, req.DisplayName)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"feePaid":          result.FeePaid.Float64(),
		"participantCount": result.ParticipantCount,
	})
}

// =============================================================================
// PUBLIC READS
// =============================================================================

// ListWheels returns the wheel configuration snapshot.
// GET /api/wheels
func (h *Handler) ListWheels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Game.Wheels)
}

// GetStats returns the global stats singleton.
// GET /api/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	var stats ledger.GlobalStats
	if _, err := h.Store.Get(r.Context(), ledger.StatsRef(), &stats); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read stats", err)
		return
	}
	writeJSON(w, http.StatusOK, StatsDTO{
		TotalDeposited:    stats.TotalDeposited.Float64(),
		TotalWithdrawn:    stats.TotalWithdrawn.Float64(),
		TotalGstCollected: stats.TotalGstCollected.Float64(),
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ListRequests returns the request queue, optionally filtered by status.
// GET /api/admin/requests?status=pending
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")

	snapshots, err := h.Store.List(r.Context(), ledger.CollectionRequests)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read requests", err)
		return
	}

	dtos := make([]FundRequestDTO, 0, len(snapshots))
	for _, snap := range snapshots {
		var req ledger.FundRequest
		if err := json.Unmarshal(snap.Data, &req); err != nil {
			writeError(w, http.StatusInternalServerError, "Malformed request document", err)
			return
		}
		if statusFilter != "" && string(req.Status) != statusFilter {
			continue
		}
		dtos = append(dtos, toFundRequestDTO(&req))
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].CreatedAt.Before(dtos[j].CreatedAt) })
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest adjudicates a pending request. The request's kind picks
// the operation: add_fund credits with the referral cascade, withdrawal
// debits with GST bookkeeping.
// POST /api/admin/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	adminID := adminFrom(r.Context())

	var req ApproveRequestRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var pending ledger.FundRequest
	found, err := h.Store.Get(r.Context(), ledger.RequestRef(requestID), &pending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read request", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}

	switch pending.Kind {
	case ledger.RequestAddFund:
		var result *funding.DepositResult
		err = h.withRetry(r.Context(), func() error {
			var err error
			result, err = h.Funding.ApproveDeposit(r.Context(), funding.DepositApproval{
				RequestID: requestID,
				UserID:    req.UserID,
				Amount:    ledger.NewAmount(req.Amount),
				TierID:    req.TierID,
				AdminID:   adminID,
			}, h.Game.Referral)
			return err
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transactionId": result.TransactionID,
			"referralBonus": result.Referral != nil,
			"referrerLogId": result.ReferrerLogID,
		})

	case ledger.RequestWithdrawal:
		var result *funding.WithdrawalResult
		err = h.withRetry(r.Context(), func() error {
			var err error
			result, err = h.Funding.ApproveWithdrawal(r.Context(), funding.WithdrawalApproval{
				RequestID:      requestID,
				UserID:         req.UserID,
				Amount:         ledger.NewAmount(req.Amount),
				TierID:         req.TierID,
				PaymentDetails: req.PaymentDetails,
				AdminID:        adminID,
			})
			return err
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transactionId": result.TransactionID,
			"gstCollected":  result.GstCollected.Float64(),
		})

	default:
		writeError(w, http.StatusConflict, "Unknown request kind", nil)
	}
}

// RejectRequest moves a pending request to rejected.
// POST /api/admin/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	adminID := adminFrom(r.Context())

	var req RejectRequestRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var request *ledger.FundRequest
	err := h.withRetry(r.Context(), func() error {
		var err error
		request, err = h.Funding.RejectRequest(r.Context(), requestID, adminID, req.Reason)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFundRequestDTO(request))
}

// CreateTournament registers a new tournament.
// POST /api/admin/tournaments
func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req CreateTournamentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	startsAt := req.StartsAt
	if startsAt.IsZero() {
		startsAt = time.Now()
	}

	t, err := h.Tournaments.Create(r.Context(), req.Name, req.TierID, ledger.NewAmount(req.EntryFee), startsAt)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTournamentDTO(t))
}

// SetTournamentStatus advances a tournament's lifecycle.
// POST /api/admin/tournaments/{id}/status
func (h *Handler) SetTournamentStatus(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "id")

	var body struct {
		Status string `json:"status" validate:"required,oneof=upcoming active completed cancelled"`
	}
	if !decodeAndValidate(w, r, &body) {
		return
	}

	var t *ledger.Tournament
	err := h.withRetry(r.Context(), func() error {
		var err error
		t, err = h.Tournaments.SetStatus(r.Context(), tournamentID, ledger.TournamentStatus(body.Status))
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTournamentDTO(t))
}

// SetBlocked soft-blocks or unblocks an account.
// POST /api/admin/accounts/{id}/block
func (h *Handler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req SetBlockedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var account *ledger.Account
	err := h.withRetry(r.Context(), func() error {
		var err error
		account, err = h.Funding.SetBlocked(r.Context(), userID, req.Blocked)
		return err
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeEngineError maps the ledger error taxonomy to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Already exists", err)
	case errors.Is(err, ledger.ErrInvalidState):
		writeError(w, http.StatusConflict, "Invalid state", err)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient funds", err)
	case errors.Is(err, ledger.ErrConflict):
		writeError(w, http.StatusServiceUnavailable, "Concurrent update, retry", err)
	case errors.Is(err, ledger.ErrConfiguration):
		writeError(w, http.StatusInternalServerError, "Configuration error", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
