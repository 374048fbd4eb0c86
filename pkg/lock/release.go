package lock

import (
	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// Release is the §6 release(trx) entry point invoked on commit or
// rollback: detach every lock the transaction holds from its page or
// table queue and grant eligible waiters, releasing and re-acquiring
// the lock-system mutex every cfg.ReleaseBatch entries so a
// long-lived transaction's cleanup doesn't starve other writers (spec
// §4.11).
func (m *Manager) Release(trx *txn.Transaction) {
	for {
		m.mu.Lock()
		locks := m.txLocks[trx.ID()]
		if len(locks) == 0 {
			m.mu.Unlock()
			break
		}

		batch := m.cfg.ReleaseBatch
		if batch > len(locks) {
			batch = len(locks)
		}
		toRelease := append([]*Lock(nil), locks[:batch]...)

		touchedPages := make(map[*Lock]struct{}, len(toRelease))
		for _, l := range toRelease {
			m.detachAnyLock(l)
			touchedPages[l] = struct{}{}
		}
		for l := range touchedPages {
			m.regrantAfterRelease(l)
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	delete(m.autoinc, trx.ID())
	m.mu.Unlock()
}

// regrantAfterRelease re-scans the queue a just-released lock
// belonged to, granting any waiter no longer blocked. l has already
// been detached by the time this runs; only its Page/Table/flavor
// identity is used to find the right queue. Callers must hold mu.
func (m *Manager) regrantAfterRelease(l *Lock) {
	if l.Kind == KindTable {
		m.grantEligibleTableWaiters(l.Table)
		return
	}
	m.grantEligibleWaiters(l.Page, l.TypeMode.Flags)
}

// grantEligibleWaiters re-scans a page's queue after a release and
// grants every waiter whose sole bit (invariant 2) no longer
// conflicts with any earlier granted-or-waiting lock, updating
// wait_trx for waiters that remain blocked (spec §4.4). Callers must
// hold mu.
func (m *Manager) grantEligibleWaiters(page primitives.PageID, flavor Flags) {
	h := m.hashFor(flavor)
	queue := h.Queue(page)

	m.waitMu.Lock()
	defer m.waitMu.Unlock()

	for i, l := range queue {
		if !l.IsWaiting() {
			continue
		}
		heapNo, ok := l.Bits.SoleBit()
		if !ok {
			continue
		}
		isSupremum := heapNo == primitives.SupremumHeapNo
		var blocker *txn.Transaction
		for j := 0; j < i; j++ {
			other := queue[j]
			if other.Owner == l.Owner || !other.Bits.Test(heapNo) {
				continue
			}
			if Conflicts(l.TypeMode, other.TypeMode, isSupremum) {
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
