package lock

import (
	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// Table is a table's lock list plus the counters spec §3 names
// (n_lock_x_or_s, n_waiting_or_granted_auto_inc_locks, n_rec_locks).
// The list is queue-ordered: index 0 is the oldest lock. The teacher's
// intrusive doubly linked list becomes a plain slice here; the lock
// system's single global mutex already serializes every mutation, so
// there is no need for intrusive prev/next pointers to support
// lock-free removal.
type Table struct {
	ID primitives.TableID

	locks []*Lock

	nLockXorS               int
	nWaitingOrGrantedAutoInc int
	nRecLocks               int

	// autoincTrx is not assigned anywhere in this package and is
	// always nil; the table's AUTO_INC holder is not recorded here.
	autoincTrx *txn.Transaction
}

// NewTable creates an empty table-lock list for the given table id.
func NewTable(id primitives.TableID) *Table {
	return &Table{ID: id}
}

// Locks returns the queue-ordered snapshot of this table's lock list.
// Callers must hold the lock-system mutex while using the result.
func (t *Table) Locks() []*Lock { return t.locks }

// append adds a lock to the tail of the table's queue and updates
// counters.
func (t *Table) append(l *Lock) {
	t.locks = append(t.locks, l)
	if l.TypeMode.Mode == ModeX || l.TypeMode.Mode == ModeS {
		t.nLockXorS++
	}
	if l.TypeMode.Mode == ModeAutoInc {
		t.nWaitingOrGrantedAutoInc++
	}
}

// detach removes a lock from the table's queue and updates counters.
// It is a no-op if the lock is not present.
func (t *Table) detach(l *Lock) {
	for i, cur := range t.locks {
		if cur == l {
			t.locks = append(t.locks[:i], t.locks[i+1:]...)
			if l.TypeMode.Mode == ModeX || l.TypeMode.Mode == ModeS {
				t.nLockXorS--
			}
			if l.TypeMode.Mode == ModeAutoInc {
				t.nWaitingOrGrantedAutoInc--
			}
			return
		}
	}
}

// hasGrantedXorS reports whether any transaction other than exclude
// holds a granted X or S table lock — the fast-path guard of §4.5.
func (t *Table) hasGrantedXorS(exclude *txn.Transaction) bool {
	for _, l := range t.locks {
		if l.Owner == exclude {
			continue
		}
		if l.IsWaiting() {
			continue
		}
		if l.TypeMode.Mode == ModeX || l.TypeMode.Mode == ModeS {
			return true
		}
	}
	return false
}

// Tables is the dictionary-cache-adjacent registry of table lock
// lists, keyed by table id (spec §1: the dictionary cache that owns
// table identity is out of scope; this registry only owns the lock
// *list*, looked up by the id that collaborator hands us).
type Tables struct {
	byID map[primitives.TableID]*Table
}

// NewTables creates an empty table registry.
func NewTables() *Tables {
	return &Tables{byID: make(map[primitives.TableID]*Table)}
}

// GetOrCreate returns the table's lock list, creating it on first use.
// Callers must hold the lock-system mutex.
func (ts *Tables) GetOrCreate(id primitives.TableID) *Table {
	t, ok := ts.byID[id]
	if !ok {
		t = NewTable(id)
		ts.byID[id] = t
	}
	return t
}

// Get returns a table's lock list without creating it.
func (ts *Tables) Get(id primitives.TableID) (*Table, bool) {
	t, ok := ts.byID[id]
	return t, ok
}
