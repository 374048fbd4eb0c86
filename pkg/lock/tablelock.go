package lock

import (
	"context"

	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// LockTable is the C5 entry point of spec §4.5: lock_table(mode).
// Fast path grants IS/IX immediately when the table has no granted X
// or S; otherwise the table's queue is scanned from newest to oldest
// for an incompatible lock.
func (m *Manager) LockTable(ctx context.Context, trx *txn.Transaction, tableID primitives.TableID, mode Mode) (Result, error) {
	m.mu.Lock()

	t := m.tables.GetOrCreate(tableID)

	for _, l := range t.locks {
		if l.Owner == trx && !l.IsWaiting() && Dominates(l.TypeMode.Mode, mode) {
			m.mu.Unlock()
			return GrantedExisting, nil
		}
	}

	var blocker *txn.Transaction
	if !(mode == ModeIS || mode == ModeIX) || t.hasGrantedXorS(trx) {
		for i := len(t.locks) - 1; i >= 0; i-- {
			l := t.locks[i]
			if l.Owner == trx {
				continue
			}
			if Conflicts(TypeMode{Mode: mode, Flags: FlagTable}, l.TypeMode, false) {
				blocker = l.Owner
				break
			}
		}
	}

	l := newTableLock(trx, TypeMode{Mode: mode, Flags: FlagTable}, t)
	t.append(l)
	m.addToTxLocks(l)
	if mode == ModeAutoInc {
		// Pushed under mu regardless of outcome; detachAnyLock pops it
		// back out if the wait ends in DEADLOCK or TIMEOUT instead of
		// a grant.
		m.autoincFor(trx.ID()).Push(l)
	}

	if blocker == nil {
		m.mu.Unlock()
		return GrantedNew, nil
	}

	return m.enqueueAndWait(ctx, trx, l, blocker)
}

// LockTableForTrx is the §6 lock_table_for_trx entry point: a plain
// wrapper that lets callers pass an already-resolved transaction
// without going through the record-level entry points. It exists
// because spec §6 lists it as a distinct external interface from
// lock_table; here that distinction is just which goroutine is
// calling (the executor thread vs. the transaction's own recovery
// path), so both forward to the same implementation.
func (m *Manager) LockTableForTrx(ctx context.Context, trx *txn.Transaction, tableID primitives.TableID, mode Mode) (Result, error) {
	return m.LockTable(ctx, trx, tableID, mode)
}

// TableXUnlock is the §6 table_x_unlock entry point: release a single
// granted X table lock this transaction holds, without touching its
// other locks.
func (m *Manager) TableXUnlock(trx *txn.Transaction, tableID primitives.TableID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables.Get(tableID)
	if !ok {
		return
	}
	for _, l := range t.locks {
		if l.Owner == trx && !l.IsWaiting() && l.TypeMode.Mode == ModeX {
			t.detach(l)
			m.removeFromTxLocks(l)
			m.grantEligibleTableWaiters(t)
			return
		}
	}
}

// autoincFor returns (creating if absent) a transaction's AUTO_INC
// stack.
func (m *Manager) autoincFor(id txn.ID) *AutoIncStack {
	s, ok := m.autoinc[id]
	if !ok {
		s = &AutoIncStack{}
		m.autoinc[id] = s
	}
	return s
}

// UnlockTableAutoinc is the §6 unlock_table_autoinc entry point:
// release a transaction's AUTO_INC locks LIFO at statement end (spec
// §4.5, §8 scenario 5).
func (m *Manager) UnlockTableAutoinc(trx *txn.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stack := m.autoinc[trx.ID()]
	if stack == nil {
		return
	}
	for _, l := range stack.PopAll() {
		if l.IsWaiting() {
			continue
		}
		l.Table.detach(l)
		m.removeFromTxLocks(l)
		m.grantEligibleTableWaiters(l.Table)
	}
}

// grantEligibleTableWaiters re-scans a table's queue after a release
// and grants any waiter no longer blocked (spec §4.4, applied to
// table-level queues).
func (m *Manager) grantEligibleTableWaiters(t *Table) {
	m.waitMu.Lock()
	defer m.waitMu.Unlock()

	for i, l := range t.locks {
		if !l.IsWaiting() {
			continue
		}
		var blocker *txn.Transaction
		for j := 0; j < i; j++ {
			other := t.locks[j]
			if other.Owner == l.Owner {
				continue
			}
			if Conflicts(l.TypeMode, other.TypeMode, false) {
				blocker = other.Owner
				break
			}
		}
		if blocker == nil {
			grantWaiter(l)
		} else {
			l.Owner.SetWaitTrx(blocker)
		}
	}
}
