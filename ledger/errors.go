/*
errors.go - Centralized error taxonomy for ledger operations

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine packages wrap these sentinels with operation context.

ERROR CATEGORIES:
  1. Lookup errors      - Missing accounts, requests, tournaments
  2. State errors       - Requests not pending, tournaments not joinable
  3. Balance errors     - Insufficient tier balance
  4. Store errors       - Optimistic-concurrency aborts
  5. Config errors      - Malformed documents, unusable wheel segments

USAGE:
  Callers classify with errors.Is / errors.As:

    if errors.Is(err, ledger.ErrConflict) {
        // safe to retry the whole operation from scratch
    }

SEE ALSO:
  - store.go: Returns ErrConflict on lost optimistic races
  - api/handlers.go: Maps this taxonomy to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an account, request, or tournament
	// referenced by an operation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a document exists but is not in a
	// state the operation accepts (request already adjudicated, tournament
	// not joinable, account blocked).
	ErrInvalidState = errors.New("invalid state")

	// ErrInsufficientFunds is returned when a tier balance cannot cover a
	// withdrawal, entry fee, or paid spin.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyExists is returned on duplicate creation, e.g. a second
	// participant record for the same (tournament, user) pair.
	ErrAlreadyExists = errors.New("already exists")

	// ErrConfiguration is returned for malformed documents and unusable
	// wheel configurations. Never silently defaulted.
	ErrConfiguration = errors.New("configuration error")

	// ErrConflict is returned when an optimistic transaction read a
	// document that a concurrent transaction committed over. The whole
	// operation is safe to retry from scratch; nothing was written.
	ErrConflict = errors.New("transaction conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string // "account", "request", "tournament"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError reports the state an operation required and what it
// actually found.
type InvalidStateError struct {
	Resource string
	ID       string
	Expected string
	Actual   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %q: expected state %s, found %s", e.Resource, e.ID, e.Expected, e.Actual)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	UserID    string
	TierID    string
	Available Amount
	Requested Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s tier %q: available %s, requested %s",
		e.UserID, e.TierID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// AlreadyJoinedError reports a duplicate tournament entry.
type AlreadyJoinedError struct {
	TournamentID string
	UserID       string
}

func (e *AlreadyJoinedError) Error() string {
	return fmt.Sprintf("user %s already joined tournament %s", e.UserID, e.TournamentID)
}

func (e *AlreadyJoinedError) Unwrap() error { return ErrAlreadyExists }

// ConfigurationError flags malformed documents or unusable configuration.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Detail
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ConflictError identifies which document lost the optimistic race.
type ConflictError struct {
	Ref Ref
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction conflict on %s/%s", e.Ref.Collection, e.Ref.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable reports whether retrying the whole operation may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError reports whether the error is due to the caller's input or
// the current state, i.e. surfaced as a user-facing message.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
