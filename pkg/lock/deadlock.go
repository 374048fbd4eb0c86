package lock

import (
	"math"

	"lockcore/pkg/logging"
	"lockcore/pkg/txn"
)

// findCycleLocked runs Brent's cycle-finding algorithm over the
// functional graph induced by Transaction.WaitTrx() (spec §4.8, §9
// Design Notes: "wait_trx is a plain index... the cycle search reads
// indices while holding the wait-mutex"). Every transaction has at
// most one outgoing edge, so the waits-for graph is exactly the kind
// of singly-linked functional graph Brent's algorithm targets — no
// separate adjacency structure is needed; the pointer chain itself is
// the graph. Callers must hold the wait-mutex.
//
// Returns the cycle's member transactions (in no particular order
// beyond "walked once around"), or nil if start's chain terminates
// without looping.
func findCycleLocked(start *txn.Transaction) []*txn.Transaction {
	power, lam := 1, 1
	tortoise := start
	hare := start.WaitTrx()

	for hare != nil && tortoise != hare {
		if power == lam {
			tortoise = hare
			power *= 2
			lam = 0
		}
		hare = hare.WaitTrx()
		lam++
	}
	if hare == nil {
		return nil
	}

	members := []*txn.Transaction{hare}
	for cur := hare.WaitTrx(); cur != hare; cur = cur.WaitTrx() {
		if cur == nil {
			// Defensive: the chain broke after the initial pass found
			// tortoise==hare, meaning something released concurrently.
			// Treat as no confirmed cycle; the caller re-checks anyway.
			return nil
		}
		members = append(members, cur)
	}
	return members
}

// chooseVictim picks the lowest-weight transaction in the cycle,
// ties broken in favor of the requester (spec §4.8 step 2: "Ties are
// broken by preferring the requester itself as the victim").
func chooseVictim(members []*txn.Transaction, requester *txn.Transaction) *txn.Transaction {
	var victim *txn.Transaction
	minWeight := uint64(math.MaxUint64)
	for _, t := range members {
		w := t.Weight()
		if victim == nil || w < minWeight || (w == minWeight && t == requester) {
			victim = t
			minWeight = w
		}
	}
	return victim
}

// cancelVictim tears down a chosen victim's pending wait: clears its
// wait_lock's WAIT flag, detaches the lock from its queue, clears
// wait_lock/wait_trx, and wakes the victim's condition variable so it
// observes ChosenAsDeadlockVictim() and returns DEADLOCK (spec §4.8
// step 3). Callers must hold mu and waitMu.
func (m *Manager) cancelVictim(victim *txn.Transaction) {
	if lk, ok := victim.WaitLock().(*Lock); ok && lk != nil {
		lk.TypeMode.Flags &^= FlagWait
		m.detachAnyLock(lk)
	}
	victim.SetWaitLock(nil)
	victim.SetWaitTrx(nil)
	victim.MarkDeadlockVictim()
}

// detectAndResolve is called from enqueueAndWait right after the
// requester's tentative wait_trx edge (requester -> blocker) is
// installed, while holding mu and waitMu (spec §4.8: "After a
// requester selects a conflict target, while holding the wait-mutex,
// run Brent's..."; this implementation already holds the lock-system
// mutex for the whole decide-to-wait operation, so the "drop the
// wait-mutex, take the lock-system mutex, re-take the wait-mutex,
// re-check" re-validation step of §4.8.1 — whose purpose is to guard
// a window where only the wait-mutex was held — has no such window to
// guard here and is folded away; see DESIGN.md Open Questions).
//
// Returns the chosen victim, or nil if no cycle was found.
func (m *Manager) detectAndResolve(requester *txn.Transaction) *txn.Transaction {
	if !m.cfg.DeadlockDetect {
		return nil
	}
	members := findCycleLocked(requester)
	if members == nil {
		return nil
	}
	victim := chooseVictim(members, requester)
	m.metrics.recordDeadlock()
	if m.cfg.DeadlockReport != ReportOff {
		log := logging.WithDeadlock(m.nextDeadlockRunID())
		ids := make([]string, len(members))
		for i, t := range members {
			ids[i] = t.ID().String()
		}
		log.Info("deadlock cycle detected", "cycle", ids, "victim", victim.ID().String())
	}
	return victim
}

func (m *Manager) nextDeadlockRunID() uint64 {
	m.deadlockRunSeq++
	return m.deadlockRunSeq
}
