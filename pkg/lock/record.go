package lock

import (
	"context"

	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// RequestRecordLock is the C4 entry point of spec §4.3:
// request_record_lock(mode, page_ref, heap_no, index, requester,
// implicit_ok). Go's context.Context carries session-kill
// interruption (spec §4.4's "interrupt ... on the owning session")
// since the original's thread-kill signal has no stdlib analogue.
//
// implicit_ok is handled by callers: the §6 entry points run
// ConvertImplicitToExplicit (C7) before calling this, so by the time
// this function scans the queue, any implicit holder is already
// materialized as an explicit lock.
func (m *Manager) RequestRecordLock(ctx context.Context, trx *txn.Transaction, ref primitives.RecordRef, tableID primitives.TableID, tm TypeMode) (Result, error) {
	if err := validateRequest(tableID, ref); err != nil {
		return ResultTimeout, err
	}

	isSupremum := ref.HeapNo == primitives.SupremumHeapNo
	if isSupremum {
		// Invariant 8: supremum carries no GAP/REC_NOT_GAP flag; its
		// gap-only nature is expressed to Conflicts via isSupremum.
		tm.Flags &^= FlagGap | FlagRecNotGap
	}

	m.mu.Lock()

	// Step 1: a dominating table lock satisfies any row request
	// outright (spec §4.3 step 1).
	if t, ok := m.tables.Get(tableID); ok {
		for _, tl := range t.locks {
			if tl.Owner == trx && !tl.IsWaiting() && Dominates(tl.TypeMode.Mode, tm.Mode) {
				m.mu.Unlock()
				return GrantedExisting, nil
			}
		}
	}

	queue := m.hashFor(tm.Flags).Queue(ref.Page)

	// Step 2: nobody has ever locked this page — the common "first
	// caller" hot path (spec §9 Design Notes).
	if len(queue) == 0 {
		l := newRecordLock(trx, tm, ref.Page, tableID, ref.HeapNo)
		m.attachRecordLock(l)
		m.mu.Unlock()
		return GrantedNew, nil
	}

	// Step 3: scan the existing queue.
	var blocker *txn.Transaction
	candidateIdx := -1
	lastWaiterIdx := -1
	alreadyGranted := false

	for i, l := range queue {
		if l.Owner == trx && !l.IsWaiting() && l.sameTypeMode(tm) {
			candidateIdx = i
		}
		if !l.Bits.Test(ref.HeapNo) {
			continue
		}
		if l.Owner == trx {
			if !l.IsWaiting() && Dominates(l.TypeMode.Mode, tm.Mode) {
				alreadyGranted = true
			}
			continue
		}
		if l.IsWaiting() {
			lastWaiterIdx = i
		}
		if blocker == nil && Conflicts(tm, l.TypeMode, isSupremum) {
			blocker = l.Owner
		}
	}

	if alreadyGranted {
		m.mu.Unlock()
		return GrantedExisting, nil
	}

	if blocker != nil {
		l := newRecordLock(trx, tm, ref.Page, tableID, ref.HeapNo)
		m.hashFor(tm.Flags).Append(l)
		m.tables.GetOrCreate(tableID).nRecLocks++
		m.addToTxLocks(l)
		return m.enqueueAndWait(ctx, trx, l, blocker)
	}

	// No conflict: reuse a same-transaction struct with identical
	// type_mode if no waiter sits between it and the tail (spec §4.3
	// "preserve FIFO fairness and invariant 4"), else append fresh.
	if candidateIdx >= 0 && candidateIdx > lastWaiterIdx {
		queue[candidateIdx].Bits.Set(ref.HeapNo)
		m.mu.Unlock()
		return GrantedNew, nil
	}

	l := newRecordLock(trx, tm, ref.Page, tableID, ref.HeapNo)
	m.attachRecordLock(l)
	m.mu.Unlock()
	return GrantedNew, nil
}

// UnlockRow clears this transaction's bit for one heap slot without
// touching the rest of its bitmap, used by READ COMMITTED
// semi-consistent reads (spec §4.11). If clearing the bit empties the
// lock entirely, the lock struct itself is detached and released.
func (m *Manager) UnlockRow(trx *txn.Transaction, ref primitives.RecordRef, tableID primitives.TableID, flavor Flags) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.hashFor(flavor)
	for _, l := range h.Queue(ref.Page) {
		if l.Owner != trx || l.IsWaiting() || !l.Bits.Test(ref.HeapNo) {
			continue
		}
		l.Bits.Clear(ref.HeapNo)
		if l.Bits.IsEmpty() {
			m.detachRecordLock(l)
			releaseRecordLock(l)
		}
		m.grantEligibleWaiters(ref.Page, flavor)
		return
	}
}
