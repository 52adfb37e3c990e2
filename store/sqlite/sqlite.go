/*
Package sqlite provides the SQLite-backed ledger.Store implementation.

PURPOSE:
  Persists documents in a single versioned table. The same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

SCHEMA:
  documents(collection, id, body, version)

  Documents are stored as JSON bodies. The version column implements the
  optimistic-concurrency contract: every transactional write is guarded by
  the version observed at read time, and a guard miss aborts the whole
  transaction with ledger.ErrConflict before anything is committed.

TRANSACTIONS:
  RunTransaction opens one sql.Tx. Reads record (ref -> version) into the
  read set; writes are buffered in memory. At commit, absent-at-read
  documents are INSERTed (a duplicate key means a concurrent creator won)
  and existing documents are UPDATEd WHERE version matches. Any guard miss
  rolls the sql.Tx back.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/wheel.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definition and transaction contract
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spinzone/wheel-ledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and sidesteps
	// SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		body       TEXT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (collection, id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) NewID() string { return uuid.NewString() }

// Get reads a single document outside any transaction.
func (s *Store) Get(ctx context.Context, ref ledger.Ref, out any) (bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		ref.Collection, ref.ID).Scan(&body)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(body), out)
}

// List returns every document in a collection, ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]ledger.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Snapshot
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		result = append(result, ledger.Snapshot{
			Ref:  ledger.Ref{Collection: collection, ID: id},
			Data: []byte(body),
		})
	}
	return result, rows.Err()
}

// RunTransaction executes fn atomically with version-guarded writes.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx ledger.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	tx := &sqliteTx{
		ctx:    ctx,
		sqlTx:  sqlTx,
		reads:  make(map[ledger.Ref]int64),
		writes: make(map[ledger.Ref][]byte),
	}

	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := tx.flush(); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		if isBusy(err) {
			return &ledger.ConflictError{}
		}
		return err
	}
	return nil
}

// =============================================================================
// TRANSACTION VIEW
// =============================================================================

type sqliteTx struct {
	ctx    context.Context
	sqlTx  *sql.Tx
	reads  map[ledger.Ref]int64 // 0 = absent at read time
	writes map[ledger.Ref][]byte
	order  []ledger.Ref
}

func (tx *sqliteTx) Get(ref ledger.Ref, out any) (bool, error) {
	if body, ok := tx.writes[ref]; ok {
		if body == nil {
			return false, nil
		}
		return true, json.Unmarshal(body, out)
	}

	var body string
	var version int64
	err := tx.sqlTx.QueryRowContext(tx.ctx,
		`SELECT body, version FROM documents WHERE collection = ? AND id = ?`,
		ref.Collection, ref.ID).Scan(&body, &version)
	if err == sql.ErrNoRows {
		if _, seen := tx.reads[ref]; !seen {
			tx.reads[ref] = 0
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, seen := tx.reads[ref]; !seen {
		tx.reads[ref] = version
	}
	return true, json.Unmarshal([]byte(body), out)
}

func (tx *sqliteTx) Set(ref ledger.Ref, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tx.buffer(ref, body)
	return nil
}

func (tx *sqliteTx) Delete(ref ledger.Ref) error {
	tx.buffer(ref, nil)
	return nil
}

func (tx *sqliteTx) buffer(ref ledger.Ref, body []byte) {
	if _, ok := tx.writes[ref]; !ok {
		tx.order = append(tx.order, ref)
	}
	tx.writes[ref] = body
}

// flush applies buffered writes with version guards. Any guard miss means
// a concurrent transaction committed over our read set.
func (tx *sqliteTx) flush() error {
	for _, ref := range tx.order {
		body, ok := tx.writes[ref]
		if !ok {
			continue
		}
		readVersion, wasRead := tx.reads[ref]

		if body == nil {
			res, err := tx.sqlTx.ExecContext(tx.ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`,
				ref.Collection, ref.ID)
			if err != nil {
				return err
			}
			if wasRead && readVersion > 0 {
				if n, _ := res.RowsAffected(); n == 0 {
					return &ledger.ConflictError{Ref: ref}
				}
			}
			continue
		}

		if wasRead && readVersion > 0 {
			res, err := tx.sqlTx.ExecContext(tx.ctx,
				`UPDATE documents SET body = ?, version = version + 1
				 WHERE collection = ? AND id = ? AND version = ?`,
				string(body), ref.Collection, ref.ID, readVersion)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return &ledger.ConflictError{Ref: ref}
			}
			continue
		}

		// Absent at read time (or blind write): attempt an insert; an
		// existing row means a concurrent creator won the race. Blind
		// writes fall back to a guarded upsert.
		_, err := tx.sqlTx.ExecContext(tx.ctx,
			`INSERT INTO documents (collection, id, body, version) VALUES (?, ?, ?, 1)`,
			ref.Collection, ref.ID, string(body))
		if err != nil {
			if isDuplicate(err) {
				if wasRead {
					return &ledger.ConflictError{Ref: ref}
				}
				_, err = tx.sqlTx.ExecContext(tx.ctx,
					`UPDATE documents SET body = ?, version = version + 1
					 WHERE collection = ? AND id = ?`,
					string(body), ref.Collection, ref.ID)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isBusy(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}
