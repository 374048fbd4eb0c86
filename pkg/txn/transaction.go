// Package txn models the external transaction object the lock core
// contends over. The real transaction manager (commit/rollback, undo
// logging, read views) lives outside this repository's scope; this
// package keeps exactly the shape spec §3 says the lock core needs:
// identity, state, a mutex, a wait-condition, the wait_lock/wait_trx
// pair the deadlock detector walks, and a victim flag.
package txn

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// State is the lifecycle state of a transaction (spec §3).
type State int

const (
	NotStarted State = iota
	Active
	Prepared
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Active:
		return "ACTIVE"
	case Prepared:
		return "PREPARED"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Isolation is the isolation level a transaction was started with. The
// lock core does not read it; callers choose next-key vs. plain record
// locking themselves.
type Isolation int

const (
	ReadUncommitted Isolation = iota
	ReadCommitted
	RepeatableRead
	Serializable
)

func (i Isolation) String() string {
	switch i {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "UNKNOWN"
	}
}

// WaitLock is the narrow view of a lock.Lock the txn package needs. It
// exists to let Transaction.wait_lock point at the concrete lock object
// owned by pkg/lock without an import cycle.
type WaitLock interface {
	String() string
}

var idCounter int64

// ID is a transaction's monotonically assigned identity (spec §3).
type ID int64

// NewID allocates the next transaction id. IDs are never reused.
func NewID() ID {
	return ID(atomic.AddInt64(&idCounter, 1))
}

func (id ID) String() string {
	return fmt.Sprintf("trx-%d", int64(id))
}

// Transaction is the external collaborator the lock core arbitrates
// access for. One Transaction exists per in-flight session; the lock
// core never allocates or frees these, only reads and mutates the
// fields spec §3 names.
type Transaction struct {
	id ID

	mu    deadlock.Mutex
	state State
	iso   Isolation

	// waitLock is the lock this transaction is currently blocked on, or
	// nil. Invariant 1: a WAIT-flagged lock has exactly one owner, and
	// that owner's waitLock points back at it.
	waitLock WaitLock
	// waitTrx is who this transaction is waiting for, read by the
	// deadlock detector while holding the wait-mutex (spec §4.8).
	waitTrx *Transaction

	chosenVictim bool

	cond *sync.Cond

	// undoCount and modifiedNonTx feed Weight() (spec §4.8 step 2,
	// §9 Design Notes): the lower-weight transaction becomes the victim.
	undoCount     int64
	modifiedNonTx bool

	startedAt time.Time
}

// NewWaitMutex creates the single wait-mutex a Registry and the lock
// core's Manager must share (spec §5: "one condition variable per
// transaction, paired with the single wait-mutex"). Construct this
// first, pass it to NewRegistry, then to lock.NewManager.
func NewWaitMutex() *deadlock.Mutex {
	return &deadlock.Mutex{}
}

// New creates a transaction in the ACTIVE state with the given isolation
// level. The condition variable shares the caller-supplied wait-mutex
// (spec §5 — one mutex is the condvar lock for every transaction's
// wait-cond).
func New(iso Isolation, waitMu sync.Locker) *Transaction {
	return &Transaction{
		id:        NewID(),
		state:     Active,
		iso:       iso,
		cond:      sync.NewCond(waitMu),
		startedAt: time.Now(),
	}
}

func (t *Transaction) ID() ID             { return t.id }
func (t *Transaction) Isolation() Isolation { return t.iso }

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// IsActive reports whether the transaction can still hold or acquire
// locks. Used by §4.7 implicit-lock conversion to reconfirm a candidate
// holder before trusting a stale row trx-id.
func (t *Transaction) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == Active || t.state == Prepared
}

// WaitLock returns the lock this transaction is blocked on, or nil.
// Callers must hold the wait-mutex.
func (t *Transaction) WaitLock() WaitLock { return t.waitLock }

// SetWaitLock installs or clears the lock this transaction is blocked
// on. Callers must hold the wait-mutex.
func (t *Transaction) SetWaitLock(l WaitLock) { t.waitLock = l }

// WaitTrx returns who this transaction is waiting for. Callers must
// hold the wait-mutex.
func (t *Transaction) WaitTrx() *Transaction { return t.waitTrx }

// SetWaitTrx records who this transaction is waiting for, read by the
// deadlock detector's cycle walk. Callers must hold the wait-mutex.
func (t *Transaction) SetWaitTrx(u *Transaction) { t.waitTrx = u }

// ChosenAsDeadlockVictim reports whether the detector has already
// marked this transaction for rollback.
func (t *Transaction) ChosenAsDeadlockVictim() bool { return t.chosenVictim }

// MarkDeadlockVictim flags the transaction as the detector's chosen
// victim and wakes it. Callers must hold the wait-mutex.
func (t *Transaction) MarkDeadlockVictim() {
	t.chosenVictim = true
	t.cond.Signal()
}

// ClearDeadlockVictim resets the flag once the victim has observed it
// and rolled back (so the Transaction struct can be reused by a future
// statement in the same session, matching the teacher's reuse-by-reset
// style elsewhere in the package).
func (t *Transaction) ClearDeadlockVictim() { t.chosenVictim = false }

// Cond is the per-transaction wait condition, guarded by the caller's
// wait-mutex (spec §5 "one condition variable per transaction").
func (t *Transaction) Cond() *sync.Cond { return t.cond }

// Weight is the InnoDB-style tie-break used to pick a deadlock victim
// (spec §4.8 step 2, §9 Design Notes "weight-based victim"): the undo
// record count, with the high bit forced on if the session has touched
// a non-transactional table (so such sessions are preferred survivors,
// i.e. never chosen as victim ahead of a pure-transactional peer with
// fewer undo records).
func (t *Transaction) Weight() uint64 {
	w := uint64(t.undoCount)
	if t.modifiedNonTx {
		w |= 1 << 63
	}
	return w
}

// SetUndoCount records how many undo log records this transaction owns,
// for weight-based victim selection.
func (t *Transaction) SetUndoCount(n int64) { t.undoCount = n }

// UndoCount returns the recorded undo log record count.
func (t *Transaction) UndoCount() int64 { return t.undoCount }

// MarkModifiedNonTransactional records that this session has written to
// a non-transactional table, making it a preferred survivor in victim
// selection.
func (t *Transaction) MarkModifiedNonTransactional() { t.modifiedNonTx = true }

func (t *Transaction) String() string {
	return fmt.Sprintf("%s[%s,%s]", t.id, t.State(), t.iso)
}
