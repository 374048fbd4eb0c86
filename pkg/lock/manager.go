package lock

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/sasha-s/go-deadlock"

	"lockcore/pkg/dberrors"
	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// Manager is the lock core's public facade: the aggregate of the
// three page hash tables, the table registry, the per-transaction
// lock index, and the two global mutexes spec §5 describes. It
// implements every external interface of spec §6.
type Manager struct {
	cfg     Config
	metrics *Metrics

	// mu is the lock-system mutex: protects all hash tables, per-page
	// queues, per-table queues, and lock bitmaps (spec §5).
	mu deadlock.Mutex

	// waitMu is the wait-mutex: protects wait_lock/wait_trx/
	// chosen-victim state and is the condition-variable mutex for
	// every transaction's wait-cond (spec §5). Acquisition order is
	// always mu then waitMu, never reversed. It is supplied by the
	// caller (txn.NewWaitMutex) rather than created here, because it
	// must be the exact same lock every Transaction's Cond() uses —
	// Manager cannot own it privately without an impossible
	// construction order against txn.Registry.
	waitMu sync.Locker

	recHash      *PageHash
	predHash     *PageHash
	predPageHash *PageHash
	tables       *Tables

	// txLocks is the ordered list of locks each transaction holds
	// (spec §3). It is kept here, indexed by transaction id, rather
	// than inside txn.Transaction, to avoid an import cycle between
	// pkg/txn and pkg/lock (see DESIGN.md Open Questions).
	txLocks map[txn.ID][]*Lock
	autoinc map[txn.ID]*AutoIncStack

	registry *txn.Registry

	sweepMu    sync.Mutex
	sweepQueue *priorityqueue.Queue
	wakeCh     chan struct{}
	stopCh     chan struct{}
	stopped    sync.Once

	deadlockRunSeq uint64
}

// waitEntry is one pending wait tracked by the timeout sweeper's
// min-heap, ordered by deadline (spec §6 lock_wait_timeout).
type waitEntry struct {
	deadline time.Time
	trx      *txn.Transaction
	lock     *Lock
}

func waitEntryComparator(a, b interface{}) int {
	ea, eb := a.(*waitEntry), b.(*waitEntry)
	switch {
	case ea.deadline.Before(eb.deadline):
		return -1
	case ea.deadline.After(eb.deadline):
		return 1
	default:
		return 0
	}
}

// NewManager creates a lock core with the three hash tables sized per
// cfg.HashCells, and starts the background timeout sweeper. waitMu
// must be the same lock passed to registry's txn.NewRegistry, so that
// every Transaction's condition variable and the deadlock detector's
// wait-mutex are the exact same object (spec §5).
func NewManager(cfg Config, registry *txn.Registry, waitMu sync.Locker) *Manager {
	if cfg.HashCells <= 0 {
		cfg.HashCells = DefaultConfig().HashCells
	}
	if cfg.ReleaseBatch <= 0 {
		cfg.ReleaseBatch = DefaultConfig().ReleaseBatch
	}
	m := &Manager{
		cfg:          cfg,
		metrics:      NewMetrics(),
		waitMu:       waitMu,
		recHash:      NewPageHash(cfg.HashCells),
		predHash:     NewPageHash(cfg.HashCells),
		predPageHash: NewPageHash(cfg.HashCells),
		tables:       NewTables(),
		txLocks:      make(map[txn.ID][]*Lock),
		autoinc:      make(map[txn.ID]*AutoIncStack),
		registry:     registry,
		sweepQueue:   priorityqueue.NewWith(waitEntryComparator),
		wakeCh:       make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}
	go m.runSweeper()
	return m
}

// Close stops the timeout sweeper. Safe to call more than once.
func (m *Manager) Close() {
	m.stopped.Do(func() { close(m.stopCh) })
}

// Metrics exposes the introspection counters (spec §6).
func (m *Manager) Metrics() *Metrics { return m.metrics }

// ResizeHashTables rehashes all three page hash tables to n buckets
// each, preserving every page's queue order (spec §4.2: "Resize is
// performed only under the global mutex"). Intended for a buffer-pool
// administrator to call when the working set has grown well past the
// table's original HashCells sizing; ordinary request paths never
// call this themselves.
func (m *Manager) ResizeHashTables(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recHash.Resize(n)
	m.predHash.Resize(n)
	m.predPageHash.Resize(n)
}

// hashFor returns the hash table for a request's flavor (spec §4.2:
// "three separate hash tables: ordinary records, predicate locks,
// predicate-page locks").
func (m *Manager) hashFor(flags Flags) *PageHash {
	switch {
	case flags.Has(FlagPrdtPage):
		return m.predPageHash
	case flags.Has(FlagPredicate):
		return m.predHash
	default:
		return m.recHash
	}
}

// addToTxLocks records a lock in its owner's ordered lock list.
// Callers must hold mu.
func (m *Manager) addToTxLocks(l *Lock) {
	id := l.Owner.ID()
	m.txLocks[id] = append(m.txLocks[id], l)
}

// removeFromTxLocks drops a lock from its owner's ordered list.
// Callers must hold mu.
func (m *Manager) removeFromTxLocks(l *Lock) {
	id := l.Owner.ID()
	locks := m.txLocks[id]
	for i, cur := range locks {
		if cur == l {
			m.txLocks[id] = append(locks[:i], locks[i+1:]...)
			return
		}
	}
}

// TxLocks returns a snapshot of a transaction's held and waiting
// locks, in acquisition order. Used by diagnostics (C10) and the
// human-readable dump of spec §6.
func (m *Manager) TxLocks(id txn.ID) []*Lock {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Lock, len(m.txLocks[id]))
	copy(out, m.txLocks[id])
	return out
}

// detachRecordLock removes a record lock from its hash table and the
// owning table's n_rec_locks counter (invariant 7), and from its
// owner's lock list. Callers must hold mu.
func (m *Manager) detachRecordLock(l *Lock) {
	m.hashFor(l.TypeMode.Flags).Remove(l)
	if t, ok := m.tables.Get(l.TableID); ok {
		t.nRecLocks--
	}
	m.removeFromTxLocks(l)
}

// attachRecordLock adds a record lock to its hash table, bumps
// n_rec_locks, and records it on the owner's lock list. Callers must
// hold mu.
func (m *Manager) attachRecordLock(l *Lock) {
	m.hashFor(l.TypeMode.Flags).Append(l)
	m.tables.GetOrCreate(l.TableID).nRecLocks++
	m.addToTxLocks(l)
}

// detachAnyLock removes a lock from whichever queue it belongs to
// (record hash table or table lock list) and from its owner's lock
// list, dispatching on Kind. Used by bulk release (Release) and by
// every cancellation path: deadlock victim selection, the requester's
// own deadlock, and lock-wait timeout or cancellation. Callers must
// hold mu.
func (m *Manager) detachAnyLock(l *Lock) {
	if l.Kind == KindTable {
		l.Table.detach(l)
		m.removeFromTxLocks(l)
		if l.TypeMode.Mode == ModeAutoInc {
			m.autoincFor(l.Owner.ID()).Remove(l)
		}
		return
	}
	m.detachRecordLock(l)
}

// validateRequest rejects malformed record-lock requests before they
// touch any queue (spec §7 corruption category: surfaced as a hard
// error on the offending operation, never poisoning other
// transactions).
func validateRequest(tableID primitives.TableID, ref primitives.RecordRef) error {
	if ref.Page == nil {
		return dberrors.LockCorruption("record reference has a nil page")
	}
	if !tableID.IsValid() {
		return dberrors.LockCorruption("invalid table id")
	}
	return nil
}
