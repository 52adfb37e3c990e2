// Package store provides the in-memory ledger.Store implementation.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spinzone/wheel-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - Versioned in-memory implementation (tests, dev)
// =============================================================================

// Memory keeps each document as serialized JSON with a version counter.
// Transactions record the version of every document they read; commit
// re-checks those versions under the write lock and aborts with
// ledger.ErrConflict when any changed. This mirrors the optimistic
// semantics of the persistent store so engine tests exercise the same
// conflict behavior.
type Memory struct {
	mu   sync.RWMutex
	docs map[ledger.Ref]versioned
}

type versioned struct {
	body    []byte
	version uint64
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[ledger.Ref]versioned)}
}

func (m *Memory) NewID() string { return uuid.NewString() }

func (m *Memory) Get(_ context.Context, ref ledger.Ref, out any) (bool, error) {
	m.mu.RLock()
	doc, ok := m.docs[ref]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(doc.body, out)
}

func (m *Memory) List(_ context.Context, collection string) ([]ledger.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Snapshot
	for ref, doc := range m.docs {
		if ref.Collection != collection {
			continue
		}
		body := make([]byte, len(doc.body))
		copy(body, doc.body)
		result = append(result, ledger.Snapshot{Ref: ref, Data: body})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Ref.ID < result[j].Ref.ID })
	return result, nil
}

// RunTransaction executes fn with buffered writes and a recorded read set,
// then commits only if no read document changed version. Single attempt:
// conflict handling belongs to the caller (ledger.RunWithRetry).
func (m *Memory) RunTransaction(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		store:  m,
		reads:  make(map[ledger.Ref]uint64),
		writes: make(map[ledger.Ref][]byte),
		order:  nil,
	}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Verify the read set before touching anything.
	for ref, version := range tx.reads {
		current := uint64(0)
		if doc, ok := m.docs[ref]; ok {
			current = doc.version
		}
		if current != version {
			return &ledger.ConflictError{Ref: ref}
		}
	}

	// Apply all buffered writes.
	for _, ref := range tx.order {
		body, ok := tx.writes[ref]
		if !ok {
			continue
		}
		if body == nil {
			delete(m.docs, ref)
			continue
		}
		next := uint64(1)
		if doc, exists := m.docs[ref]; exists {
			next = doc.version + 1
		}
		m.docs[ref] = versioned{body: body, version: next}
	}
	return nil
}

// =============================================================================
// TRANSACTION VIEW
// =============================================================================

type memoryTx struct {
	store  *Memory
	reads  map[ledger.Ref]uint64
	writes map[ledger.Ref][]byte
	order  []ledger.Ref
}

func (tx *memoryTx) Get(ref ledger.Ref, out any) (bool, error) {
	// Read-your-writes inside the transaction.
	if body, ok := tx.writes[ref]; ok {
		if body == nil {
			return false, nil
		}
		return true, json.Unmarshal(body, out)
	}

	tx.store.mu.RLock()
	doc, ok := tx.store.docs[ref]
	tx.store.mu.RUnlock()

	if _, seen := tx.reads[ref]; !seen {
		version := uint64(0)
		if ok {
			version = doc.version
		}
		tx.reads[ref] = version
	}
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(doc.body, out)
}

func (tx *memoryTx) Set(ref ledger.Ref, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tx.buffer(ref, body)
	return nil
}

func (tx *memoryTx) Delete(ref ledger.Ref) error {
	tx.buffer(ref, nil)
	return nil
}

func (tx *memoryTx) buffer(ref ledger.Ref, body []byte) {
	if _, ok := tx.writes[ref]; !ok {
		tx.order = append(tx.order, ref)
	}
	tx.writes[ref] = body
}
