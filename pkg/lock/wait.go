package lock

import (
	"context"
	"time"

	"lockcore/pkg/logging"
	"lockcore/pkg/txn"
)

// enqueueAndWait is the C6 suspension path. The caller must hold mu
// and must have already appended l to its queue with its WAIT flag
// not yet set (the append happened as part of the scan that discovered the
// conflict). enqueueAndWait always releases mu before returning,
// regardless of outcome (spec §5: "No operation suspends while
// holding the lock-system mutex").
func (m *Manager) enqueueAndWait(ctx context.Context, trx *txn.Transaction, l *Lock, blocker *txn.Transaction) (Result, error) {
	m.waitMu.Lock()
	trx.SetWaitTrx(blocker)

	victim := m.detectAndResolve(trx)

	if victim == trx {
		trx.SetWaitTrx(nil)
		m.waitMu.Unlock()
		m.detachAnyLock(l)
		releaseRecordLock(l)
		m.mu.Unlock()
		return ResultDeadlock, nil
	}
	if victim != nil {
		m.cancelVictim(victim)
	}

	l.TypeMode.Flags |= FlagWait
	trx.SetWaitLock(l)
	m.waitMu.Unlock()

	logging.WithWaiter(int64(trx.ID()), blocker.ID().String()).Debug("enqueued", "lock", l.String())

	if m.cfg.LockWaitTimeout == 0 {
		m.waitMu.Lock()
		l.TypeMode.Flags &^= FlagWait
		trx.SetWaitLock(nil)
		trx.SetWaitTrx(nil)
		m.waitMu.Unlock()
		m.detachAnyLock(l)
		releaseRecordLock(l)
		m.mu.Unlock()
		return ResultTimeout, nil
	}

	entry := m.scheduleTimeout(trx, l)
	m.metrics.beginWait()
	start := time.Now()

	stopWatch := m.watchContext(ctx, trx, l)

	m.mu.Unlock()

	m.waitMu.Lock()
	for l.IsWaiting() {
		trx.Cond().Wait()
	}
	timedOut := l.timedOut
	victimized := trx.ChosenAsDeadlockVictim()
	m.waitMu.Unlock()

	close(stopWatch)
	m.metrics.endWait(int64(time.Since(start)))
	m.cancelScheduledTimeout(entry)

	if victimized {
		trx.ClearDeadlockVictim()
		return ResultDeadlock, nil
	}
	if timedOut {
		return ResultTimeout, nil
	}
	return GrantedNew, nil
}

// watchContext spawns a goroutine that cancels the wait the same way
// a lock-wait timeout does if ctx is canceled first (spec §4.4
// "an interrupt is observed on the owning session: cancel, return
// INTERRUPTED" — this package's Result enum folds that into TIMEOUT;
// the §6 entry points distinguish INTERRUPTED by checking ctx.Err()
// after seeing a TIMEOUT result). The returned channel must be closed
// once the wait resolves through any other path, to stop the
// goroutine leaking.
func (m *Manager) watchContext(ctx context.Context, trx *txn.Transaction, l *Lock) chan struct{} {
	stop := make(chan struct{})
	if ctx == nil || ctx.Done() == nil {
		return stop
	}
	go func() {
		select {
		case <-ctx.Done():
			m.timeoutWaiter(trx, l)
		case <-stop:
		}
	}()
	return stop
}

// grantWaiter clears a lock's WAIT flag and wakes its owner, used by
// the release path's queue re-scan (§4.4). Callers must hold mu and
// waitMu.
func grantWaiter(l *Lock) {
	l.TypeMode.Flags &^= FlagWait
	l.Owner.SetWaitLock(nil)
	l.Owner.SetWaitTrx(nil)
	l.Owner.Cond().Signal()
}
