// Package mempool implements the flat, hash-keyed buffer of pending
// signed transactions shared by the miner and the gossip worker.
package mempool

import (
	"sync"

	"github.com/pillaiarjun/driftnode/pkg/chainhash"
	"github.com/pillaiarjun/driftnode/pkg/txn"
)

// Mempool maps a signed transaction's hash to itself. It performs no
// validation, no eviction, and offers no ordering guarantee — callers
// at the chain store and gossip boundary are responsible for deciding
// what belongs here.
type Mempool struct {
	mu   sync.Mutex
	pool map[chainhash.Hash256]txn.SignedTransaction
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{pool: make(map[chainhash.Hash256]txn.SignedTransaction)}
}

// Add inserts signed iff its hash is not already present. Idempotent.
func (m *Mempool) Add(signed txn.SignedTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := signed.Hash()
	if _, ok := m.pool[h]; !ok {
		m.pool[h] = signed
	}
}

// Remove deletes signed by its hash, if present. Idempotent.
func (m *Mempool) Remove(signed txn.SignedTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pool, signed.Hash())
}

// Contains reports whether hash is present.
func (m *Mempool) Contains(hash chainhash.Hash256) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pool[hash]
	return ok
}

// Get returns the signed transaction for hash, if present.
func (m *Mempool) Get(hash chainhash.Hash256) (txn.SignedTransaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.pool[hash]
	return st, ok
}

// Size returns the number of entries currently buffered.
func (m *Mempool) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pool)
}

// Snapshot returns an unordered copy of every buffered transaction,
// for the miner to seal into a block attempt.
func (m *Mempool) Snapshot() []txn.SignedTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]txn.SignedTransaction, 0, len(m.pool))
	for _, st := range m.pool {
		out = append(out, st)
	}
	return out
}
