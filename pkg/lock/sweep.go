package lock

import (
	"time"

	"lockcore/pkg/txn"
)

// scheduleTimeout adds a pending wait to the sweeper's min-heap,
// ordered by deadline, and wakes the sweeper if this is now the
// earliest deadline. No-op when the configured timeout is zero —
// that case is handled synchronously by the caller (spec §4.6 "if
// the configured per-session lock-wait timeout is zero, the requester
// returns TIMEOUT immediately").
func (m *Manager) scheduleTimeout(trx *txn.Transaction, l *Lock) *waitEntry {
	if m.cfg.LockWaitTimeout <= 0 {
		return nil
	}
	e := &waitEntry{deadline: time.Now().Add(m.cfg.LockWaitTimeout), trx: trx, lock: l}
	m.sweepMu.Lock()
	m.sweepQueue.Enqueue(e)
	m.sweepMu.Unlock()
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
	return e
}

// cancelScheduledTimeout removes a wait entry from the sweeper's heap
// once it resolves for a reason other than timing out (granted or
// chosen as deadlock victim). The gods priority queue has no
// O(log n) arbitrary-element delete, so a resolved entry is instead
// left in place with its lock field cleared to nil; expireDue skips
// entries whose lock no longer matches an active wait.
func (m *Manager) cancelScheduledTimeout(e *waitEntry) {
	if e == nil {
		return
	}
	m.sweepMu.Lock()
	e.lock = nil
	m.sweepMu.Unlock()
}

// runSweeper is the background goroutine started by NewManager. It
// sleeps until the earliest pending deadline, then expires every wait
// whose deadline has passed, using the gods min-heap so the common
// case (no expirations due) costs a single Peek rather than a scan of
// every waiting lock.
func (m *Manager) runSweeper() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		m.sweepMu.Lock()
		var next *waitEntry
		if v, ok := m.sweepQueue.Peek(); ok {
			next = v.(*waitEntry)
		}
		m.sweepMu.Unlock()

		wait := time.Hour
		if next != nil {
			if d := time.Until(next.deadline); d > 0 {
				wait = d
			} else {
				wait = 0
			}
		}
		timer.Reset(wait)

		select {
		case <-m.stopCh:
			return
		case <-m.wakeCh:
			continue
		case <-timer.C:
			m.expireDue()
		}
	}
}

// expireDue pops and resolves every wait entry whose deadline has
// passed. Entries whose lock field was cleared by
// cancelScheduledTimeout are skipped — they already resolved another
// way.
func (m *Manager) expireDue() {
	now := time.Now()
	for {
		m.sweepMu.Lock()
		v, ok := m.sweepQueue.Peek()
		if !ok {
			m.sweepMu.Unlock()
			return
		}
		e := v.(*waitEntry)
		if e.deadline.After(now) {
			m.sweepMu.Unlock()
			return
		}
		m.sweepQueue.Dequeue()
		l := e.lock
		m.sweepMu.Unlock()

		if l != nil {
			m.timeoutWaiter(e.trx, l)
		}
	}
}

// timeoutWaiter cancels a still-waiting lock because its deadline
// passed (spec §4.4 "the lock wait time exceeds the configured
// timeout: cancel, return TIMEOUT"). It is a no-op if the lock was
// already granted or chosen as a deadlock victim between the sweep
// decision and this call.
func (m *Manager) timeoutWaiter(trx *txn.Transaction, l *Lock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.waitMu.Lock()
	if !l.IsWaiting() {
		m.waitMu.Unlock()
		return
	}
	l.timedOut = true
	l.TypeMode.Flags &^= FlagWait
	trx.SetWaitLock(nil)
	trx.SetWaitTrx(nil)
	trx.Cond().Signal()
	m.waitMu.Unlock()

	m.detachAnyLock(l)
}
