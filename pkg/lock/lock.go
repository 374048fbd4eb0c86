package lock

import (
	"fmt"
	"sync/atomic"

	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// Kind discriminates the two payloads a Lock can carry (spec §9 Design
// Notes "tagged variant with two payloads, not via inheritance").
type Kind int

const (
	KindRecord Kind = iota
	KindTable
)

var lockIDCounter uint64

func nextLockID() primitives.LockID {
	return primitives.LockID(atomic.AddUint64(&lockIDCounter, 1))
}

// Lock is the uniform lock record of spec §3: an owning transaction, a
// packed type_mode, and a discriminated record/table payload. A
// *Lock implements txn.WaitLock so a Transaction's wait_lock can point
// directly at one without pkg/txn importing this package.
type Lock struct {
	id       primitives.LockID
	Owner    *txn.Transaction
	TypeMode TypeMode

	Kind Kind

	// Record payload (Kind == KindRecord).
	Page    primitives.PageID
	TableID primitives.TableID
	Bits    Bitmap

	// Table payload (Kind == KindTable).
	Table *Table

	// timedOut records that a waiting lock's WAIT flag was cleared by
	// the timeout sweeper or by a cancelled context rather than by a
	// grant or deadlock-victim selection (spec §4.4); outcomeFor tells
	// the two apart through ctx.Err(). interrupted is cleared by reset
	// but never set.
	timedOut    bool
	interrupted bool
}

// newRecordLock builds a fresh record lock from the pool, covering a
// single heap slot (the common "first caller on the page" case, §9).
func newRecordLock(owner *txn.Transaction, tm TypeMode, page primitives.PageID, tableID primitives.TableID, heapNo primitives.HeapNo) *Lock {
	l := acquireRecordLock()
	l.id = nextLockID()
	l.Owner = owner
	l.TypeMode = tm
	l.Kind = KindRecord
	l.Page = page
	l.TableID = tableID
	l.Bits.Set(heapNo)
	return l
}

// newTableLock builds a fresh table-mode lock.
func newTableLock(owner *txn.Transaction, tm TypeMode, table *Table) *Lock {
	return &Lock{
		id:       nextLockID(),
		Owner:    owner,
		TypeMode: tm,
		Kind:     KindTable,
		Table:    table,
	}
}

// ID is this lock's diagnostic identity.
func (l *Lock) ID() primitives.LockID { return l.id }

// IsWaiting reports whether this lock is still blocked.
func (l *Lock) IsWaiting() bool { return l.TypeMode.Flags.Has(FlagWait) }

// sameTypeMode reports whether two locks have an identical packed
// type_mode, the precondition for the struct-reuse path of §4.3.
func (l *Lock) sameTypeMode(tm TypeMode) bool { return l.TypeMode == tm }

// String satisfies txn.WaitLock and is used throughout diagnostics
// (C10) and log lines.
func (l *Lock) String() string {
	if l.Kind == KindTable {
		return fmt.Sprintf("lock#%d[%s table=%s owner=%s]", l.id, l.TypeMode, l.Table.ID, l.Owner.ID())
	}
	return fmt.Sprintf("lock#%d[%s page=%s heaps=%v owner=%s]", l.id, l.TypeMode, l.Page, l.Bits.Bits(), l.Owner.ID())
}
