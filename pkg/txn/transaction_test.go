package txn

import (
	"sync"
	"testing"
)

func TestNewTransactionIsActive(t *testing.T) {
	var waitMu sync.Mutex
	tr := New(RepeatableRead, &waitMu)

	if !tr.IsActive() {
		t.Fatal("new transaction should be ACTIVE")
	}

	if tr.State() != Active {
		t.Errorf("expected state ACTIVE, got %s", tr.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{NotStarted, "NOT_STARTED"},
		{Active, "ACTIVE"},
		{Prepared, "PREPARED"},
		{Committed, "COMMITTED"},
		{Aborted, "ABORTED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.expected)
		}
	}
}

func TestSetStateDeactivatesTransaction(t *testing.T) {
	var waitMu sync.Mutex
	tr := New(ReadCommitted, &waitMu)

	tr.SetState(Committed)
	if tr.IsActive() {
		t.Error("committed transaction should not report active")
	}
}

func TestWeightHonorsNonTransactionalFlag(t *testing.T) {
	var waitMu sync.Mutex
	a := New(RepeatableRead, &waitMu)
	b := New(RepeatableRead, &waitMu)

	a.SetUndoCount(1000)
	b.SetUndoCount(10)

	if a.Weight() <= b.Weight() {
		t.Fatalf("expected a (undo=1000) to outweigh b (undo=10): %d vs %d", a.Weight(), b.Weight())
	}

	// b touched a non-transactional table: it must now outweigh a, even
	// though its undo count is far smaller (spec §4.8 step 2).
	b.MarkModifiedNonTransactional()
	if b.Weight() <= a.Weight() {
		t.Fatalf("expected non-transactional b to outweigh a: %d vs %d", b.Weight(), a.Weight())
	}
}

func TestWaitLockAndWaitTrxRoundTrip(t *testing.T) {
	var waitMu sync.Mutex
	a := New(RepeatableRead, &waitMu)
	b := New(RepeatableRead, &waitMu)

	waitMu.Lock()
	a.SetWaitTrx(b)
	if a.WaitTrx() != b {
		t.Error("wait_trx not recorded")
	}
	waitMu.Unlock()
}

func TestMarkDeadlockVictimWakesWaiter(t *testing.T) {
	var waitMu sync.Mutex
	tr := New(RepeatableRead, &waitMu)

	done := make(chan struct{})
	go func() {
		waitMu.Lock()
		for !tr.ChosenAsDeadlockVictim() {
			tr.Cond().Wait()
		}
		waitMu.Unlock()
		close(done)
	}()

	waitMu.Lock()
	tr.MarkDeadlockVictim()
	waitMu.Unlock()

	<-done
}

func TestRegistryLookup(t *testing.T) {
	var waitMu sync.Mutex
	reg := NewRegistry(&waitMu)

	tr := reg.Begin(Serializable)
	found, ok := reg.Lookup(tr.ID())
	if !ok || found != tr {
		t.Fatal("expected to find the just-registered transaction")
	}

	reg.Remove(tr.ID())
	if _, ok := reg.Lookup(tr.ID()); ok {
		t.Error("transaction should be gone after Remove")
	}
}
