package lock

import (
	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// HeapMapping names how heap slots on a source page correspond to
// slots on a destination (or the same) page for a structural
// migration event (spec §4.9). A slot absent from the mapping is
// untouched.
type HeapMapping map[primitives.HeapNo]primitives.HeapNo

// moveBit is the shared primitive behind every "move a record's
// locks from one slot to another" event: reorganize, move-record-
// list, split, store/restore-to-infimum. For each lock covering
// fromHeap on fromPage, the bit moves to toHeap on toPage. A lock
// whose bitmap becomes empty is rebucketed in place (cheap: no new
// allocation); a lock that still covers other slots on fromPage is
// split — the moved slot becomes a fresh lock at the destination.
//
// A waiting lock has exactly one bit set (invariant 2), so it is
// always rebucketed in place, never split; its WAIT flag is cleared
// for the duration of the move and reconsidered at the new queue
// position (spec §4.9: "when a waiter's single bit moves, its WAIT
// flag is cleared temporarily and the re-issued lock is queued via
// the normal path").
//
// Callers must hold mu.
func (m *Manager) moveBit(fromPage primitives.PageID, fromHeap primitives.HeapNo, toPage primitives.PageID, toHeap primitives.HeapNo) {
	for _, l := range append([]*Lock(nil), m.recHash.Queue(fromPage)...) {
		if !l.Bits.Test(fromHeap) {
			continue
		}
		wasWaiting := l.IsWaiting()
		if wasWaiting {
			l.TypeMode.Flags &^= FlagWait
		}
		l.Bits.Clear(fromHeap)

		if l.Bits.IsEmpty() {
			m.recHash.Remove(l)
			l.Page = toPage
			l.Bits.Set(toHeap)
			m.recHash.Append(l)
			if wasWaiting {
				m.reconsiderWaiter(l)
			}
			continue
		}

		nl := newRecordLock(l.Owner, l.TypeMode, toPage, l.TableID, toHeap)
		m.attachRecordLock(nl)
	}
}

// reconsiderWaiter re-evaluates a single-bit waiting lock at its new
// queue position after a page-event move, granting it immediately if
// nothing there conflicts, or re-arming WAIT with an updated wait_trx
// otherwise. l must already be attached at its new location.
func (m *Manager) reconsiderWaiter(l *Lock) {
	heapNo, ok := l.Bits.SoleBit()
	if !ok {
		return
	}
	isSupremum := heapNo == primitives.SupremumHeapNo
	var blocker *txn.Transaction
	for _, other := range m.hashFor(l.TypeMode.Flags).Queue(l.Page) {
		if other == l || other.Owner == l.Owner || !other.Bits.Test(heapNo) {
			continue
		}
		if Conflicts(l.TypeMode, other.TypeMode, isSupremum) {
			blocker = other.Owner
			break
		}
	}

	m.waitMu.Lock()
	defer m.waitMu.Unlock()
	if blocker == nil {
		l.Owner.SetWaitLock(nil)
		l.Owner.SetWaitTrx(nil)
		l.Owner.Cond().Signal()
		return
	}
	l.TypeMode.Flags |= FlagWait
	l.Owner.SetWaitTrx(blocker)
}

// inheritToGap re-issues every non-insert-intention granted lock on
// (fromPage, fromHeap) as a GAP-flavored lock owned by the same
// transaction at (toPage, toHeap), bypassing the queue scan (spec
// §4.9 "inherit to gap" and GLOSSARY). Waiting locks never inherit —
// only a committed grant implies a gap worth protecting.
func (m *Manager) inheritToGap(fromPage primitives.PageID, fromHeap primitives.HeapNo, toPage primitives.PageID, toHeap primitives.HeapNo) {
	for _, l := range m.recHash.Queue(fromPage) {
		if l.IsWaiting() || !l.Bits.Test(fromHeap) || l.TypeMode.IsInsertIntention() {
			continue
		}
		gapTM := TypeMode{Mode: l.TypeMode.Mode, Flags: FlagGap}
		nl := newRecordLock(l.Owner, gapTM, toPage, l.TableID, toHeap)
		m.attachRecordLock(nl)
	}
}

// ReorganizePage is the §4.9 reorganize-page event: the index layer
// repacked page's heap slots so the same logical records now live at
// different slot numbers named by mapping.
func (m *Manager) ReorganizePage(page primitives.PageID, mapping HeapMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for oldSlot, newSlot := range mapping {
		if oldSlot == newSlot {
			continue
		}
		m.moveBit(page, oldSlot, page, newSlot)
	}
}

// MoveRecordListEnd is the §4.9 move-record-list-end event: moved
// names, for each record relocated to the end of dst's list, its old
// slot on src and new slot on dst.
func (m *Manager) MoveRecordListEnd(src, dst primitives.PageID, moved HeapMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for oldSlot, newSlot := range moved {
		m.moveBit(src, oldSlot, dst, newSlot)
	}
}

// MoveRecordListStart is the §4.9 move-record-list-start event,
// symmetric to MoveRecordListEnd.
func (m *Manager) MoveRecordListStart(src, dst primitives.PageID, moved HeapMapping) {
	m.MoveRecordListEnd(src, dst, moved)
}

// SplitRight is the §4.9 split-right event: right is a freshly
// allocated page that took the upper half of left's records (named by
// moved), and left's supremum lock — which protected "everything
// after the last record" — now belongs to right's supremum instead.
func (m *Manager) SplitRight(left, right primitives.PageID, moved HeapMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for oldSlot, newSlot := range moved {
		m.moveBit(left, oldSlot, right, newSlot)
	}
	m.moveBit(left, primitives.SupremumHeapNo, right, primitives.SupremumHeapNo)
}

// SplitLeft is the §4.9 split-left event: left keeps the lower half
// of the records and gets a fresh supremum; anything that was
// protected by the old combined-page supremum now belongs to the gap
// before the first record on right, named by firstOnRight.
func (m *Manager) SplitLeft(left, right primitives.PageID, firstOnRight primitives.HeapNo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inheritToGap(left, primitives.SupremumHeapNo, right, firstOnRight)
}

// MergeRight is the §4.9 merge-right event: discarded's records moved
// onto survivor; discarded's supremum lock inherits to gap onto
// successorOnSurvivor (the first record of the formerly-separate
// right page), discarded's supremum waiters are released, and every
// remaining lock for discarded is freed.
func (m *Manager) MergeRight(survivor, discarded primitives.PageID, successorOnSurvivor primitives.HeapNo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inheritToGap(discarded, primitives.SupremumHeapNo, survivor, successorOnSurvivor)
	m.releaseWaitersOnSlotLocked(discarded, primitives.SupremumHeapNo)
	m.freePageLocked(discarded)
}

// MergeLeft is the §4.9 merge-left event, symmetric to MergeRight:
// discarded (the left-hand donor) is absorbed into survivor.
func (m *Manager) MergeLeft(survivor, discarded primitives.PageID, successorOnSurvivor primitives.HeapNo) {
	m.MergeRight(survivor, discarded, successorOnSurvivor)
}

// InsertInheritGap is the §4.9 insert event's optional gap
// inheritance: the new record at newRef inherits the gap locks
// standing on its successor slot, unless the holder already owns a
// table lock strong enough to dominate a plain S/X row lock outright
// (spec §4.9 "not if the holder has a strong table lock").
func (m *Manager) InsertInheritGap(successor, newRef primitives.RecordRef, tableID primitives.TableID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, hasTable := m.tables.Get(tableID)
	for _, l := range m.recHash.Queue(successor.Page) {
		if l.IsWaiting() || !l.Bits.Test(successor.HeapNo) || l.TypeMode.IsInsertIntention() {
			continue
		}
		if hasTable && t.hasDominatingLock(l.Owner, l.TypeMode.Mode) {
			continue
		}
		gapTM := TypeMode{Mode: l.TypeMode.Mode, Flags: FlagGap}
		nl := newRecordLock(l.Owner, gapTM, newRef.Page, tableID, newRef.HeapNo)
		m.attachRecordLock(nl)
	}
}

// DeleteInheritGap is the §4.9 delete event: the deleted record's
// locks inherit to its successor as gap locks, then waiters on the
// deleted slot itself are released (they were only ever blocked on a
// record that no longer exists).
func (m *Manager) DeleteInheritGap(deleted, successor primitives.RecordRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inheritToGap(deleted.Page, deleted.HeapNo, successor.Page, successor.HeapNo)
	m.releaseWaitersOnSlotLocked(deleted.Page, deleted.HeapNo)
}

// DiscardPage is the §4.9 discard event: every non-supremum slot's
// locks inherit to the given heir slot on heirPage, waiters on the
// discarded page are released, and every lock still attached to the
// discarded page is freed from all three hash tables.
func (m *Manager) DiscardPage(page primitives.PageID, heirPage primitives.PageID, heirs HeapMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for slot, heir := range heirs {
		if slot == primitives.SupremumHeapNo {
			continue
		}
		m.inheritToGap(page, slot, heirPage, heir)
		m.releaseWaitersOnSlotLocked(page, slot)
	}
	m.freePageLocked(page)
}

// StoreOnInfimum is the §4.9 store-on-infimum event: a scratch
// relocation used during updates, moving a record's locks to heap
// slot 0 of the same page.
func (m *Manager) StoreOnInfimum(page primitives.PageID, fromHeapNo primitives.HeapNo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveBit(page, fromHeapNo, page, primitives.InfimumHeapNo)
}

// RestoreFromInfimum is the §4.9 restore-from-infimum event, the
// inverse of StoreOnInfimum.
func (m *Manager) RestoreFromInfimum(page primitives.PageID, toHeapNo primitives.HeapNo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveBit(page, primitives.InfimumHeapNo, page, toHeapNo)
}

// releaseWaitersOnSlotLocked wakes every waiter blocked on (page,
// heapNo) with an empty-queue outcome: the record they wanted is
// gone, so their wait is simply abandoned rather than granted.
// Callers must hold mu.
func (m *Manager) releaseWaitersOnSlotLocked(page primitives.PageID, heapNo primitives.HeapNo) {
	m.waitMu.Lock()
	defer m.waitMu.Unlock()
	for _, l := range append([]*Lock(nil), m.recHash.Queue(page)...) {
		if !l.IsWaiting() || !l.Bits.Test(heapNo) {
			continue
		}
		l.TypeMode.Flags &^= FlagWait
		l.Owner.SetWaitLock(nil)
		l.Owner.SetWaitTrx(nil)
		l.Owner.Cond().Signal()
	}
}

// freePageLocked removes every lock still attached to page from all
// three hash tables and from each owner's lock list. Callers must
// hold mu.
func (m *Manager) freePageLocked(page primitives.PageID) {
	for _, h := range []*PageHash{m.recHash, m.predHash, m.predPageHash} {
		for _, l := range h.RemoveAllForPage(page) {
			if t, ok := m.tables.Get(l.TableID); ok {
				t.nRecLocks--
			}
			m.removeFromTxLocks(l)
			releaseRecordLock(l)
		}
	}
}

// hasDominatingLock reports whether owner holds a granted table lock
// dominating mode (used by InsertInheritGap's "strong table lock"
// exception).
func (t *Table) hasDominatingLock(owner *txn.Transaction, mode Mode) bool {
	for _, l := range t.locks {
		if l.Owner == owner && !l.IsWaiting() && Dominates(l.TypeMode.Mode, mode) {
			return true
		}
	}
	return false
}
