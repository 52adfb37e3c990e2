/*
store.go - Atomic document-store contract

PURPOSE:
  Defines the interface between engine operations and the database. The
  store is a transactional key-document store with optimistic consistency:
  a transaction that read a document later overwritten by a concurrently
  committed transaction aborts with ErrConflict and writes nothing.

TRANSACTION CONTRACT:
  - All reads happen inside the transaction against live versions.
  - All writes are buffered and committed together, or not at all.
  - The body may be invoked more than once on conflict, so it must be a
    pure function of its reads: no external API calls, no non-idempotent
    side effects inside the atomic boundary. Allocate document IDs with
    NewID() BEFORE entering the transaction.
  - The store never retries automatically; the caller decides. Use
    RunWithRetry for the bounded-retry behavior expected of API callers.

IMPLEMENTATIONS:
  - ledger/store: In-memory versioned store (tests, dev)
  - store/sqlite: SQLite-backed persistent store

SEE ALSO:
  - ledger/store/memory.go
  - store/sqlite/sqlite.go
*/
package ledger

import (
	"context"
	"encoding/json"
)

// =============================================================================
// DOCUMENT REFERENCES
// =============================================================================

// Collection names. Participants are stored flat with a composite key so a
// plain key-document store can enforce at-most-once join records.
const (
	CollectionAccounts     = "accounts"
	CollectionRequests     = "requests"
	CollectionTransactions = "transactions"
	CollectionStats        = "stats"
	CollectionTournaments  = "tournaments"
	CollectionParticipants = "participants"
)

// Ref identifies one document.
type Ref struct {
	Collection string
	ID         string
}

func AccountRef(id string) Ref     { return Ref{Collection: CollectionAccounts, ID: id} }
func RequestRef(id string) Ref     { return Ref{Collection: CollectionRequests, ID: id} }
func LogRef(id string) Ref         { return Ref{Collection: CollectionTransactions, ID: id} }
func TournamentRef(id string) Ref  { return Ref{Collection: CollectionTournaments, ID: id} }
func StatsRef() Ref                { return Ref{Collection: CollectionStats, ID: "global"} }

// ParticipantRef keys the (tournament, user) pair; its uniqueness is the
// join-idempotency guard.
func ParticipantRef(tournamentID, userID string) Ref {
	return Ref{Collection: CollectionParticipants, ID: tournamentID + ":" + userID}
}

// =============================================================================
// STORE
// =============================================================================

// Snapshot is a raw document as returned by List.
type Snapshot struct {
	Ref  Ref
	Data json.RawMessage
}

// Tx is the view of the store inside one atomic transaction.
type Tx interface {
	// Get decodes the document into out and reports whether it exists.
	// The document's version joins the transaction's read set.
	Get(ref Ref, out any) (bool, error)

	// Set buffers a full create-or-replace write.
	Set(ref Ref, doc any) error

	// Delete buffers a document removal.
	Delete(ref Ref) error
}

// Store is the transactional document store.
type Store interface {
	// RunTransaction executes fn atomically. If fn returns an error the
	// transaction aborts with zero side effects. If any document in the
	// read set was overwritten by a concurrent commit, RunTransaction
	// returns an error matching ErrConflict and nothing is written.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Get reads a single document outside any transaction.
	Get(ctx context.Context, ref Ref, out any) (bool, error)

	// List returns every document in a collection. Read-only; used by
	// query endpoints, never inside engine mutations.
	List(ctx context.Context, collection string) ([]Snapshot, error)

	// NewID allocates a fresh document ID. Valid inside or outside a
	// transaction, but allocate before the transaction body so retried
	// bodies stay idempotent.
	NewID() string
}

// =============================================================================
// RETRY HELPER
// =============================================================================

// RunWithRetry retries fn up to attempts times, but only on optimistic
// conflicts. Every other error, including context cancellation, is
// returned as-is. This is the caller-side companion to the engine's
// retry-free transaction semantics.
func RunWithRetry(ctx context.Context, store Store, attempts int, fn func(tx Tx) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = store.RunTransaction(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}
