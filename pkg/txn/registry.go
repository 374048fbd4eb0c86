package txn

import (
	"fmt"
	"sync"
)

// Registry is the arena of live transactions, indexed by id (spec §9
// Design Notes: "model transactions in an arena indexed by trx-id;
// wait_trx is a plain index, never a strong reference"). The lock core
// looks transactions up here by id — e.g. the implicit-lock conversion
// path (§4.7) resolves a row's modifier trx-id to a live Transaction
// this way — rather than holding pointers handed in from elsewhere.
type Registry struct {
	mu    sync.RWMutex
	byID  map[ID]*Transaction
	waitMu sync.Locker
}

// NewRegistry creates an empty registry. waitMu is the single
// wait-mutex shared by every transaction's condition variable (spec §5);
// all transactions created through this registry share it.
func NewRegistry(waitMu sync.Locker) *Registry {
	return &Registry{
		byID:   make(map[ID]*Transaction),
		waitMu: waitMu,
	}
}

// Begin creates and registers a new ACTIVE transaction.
func (r *Registry) Begin(iso Isolation) *Transaction {
	t := New(iso, r.waitMu)
	r.mu.Lock()
	r.byID[t.id] = t
	r.mu.Unlock()
	return t
}

// Lookup finds a live transaction by id. Returns false if the
// transaction never existed or has already been removed (e.g. because
// it committed). False positives from a stale row trx-id are expected
// by §4.7 and must be handled by the caller re-confirming liveness.
func (r *Registry) Lookup(id ID) (*Transaction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// Remove deregisters a transaction, typically once it has committed or
// aborted and released all its locks.
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// All returns a snapshot of every live transaction, in no particular
// order.
func (r *Registry) All() []*Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Transaction, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	return out
}

// MustLookup is Lookup but panics on miss; used only in tests and debug
// tooling where the caller has already established liveness.
func (r *Registry) MustLookup(id ID) *Transaction {
	t, ok := r.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("txn: transaction %s not registered", id))
	}
	return t
}
