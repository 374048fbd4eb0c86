package lock

import (
	"context"
	"testing"

	"lockcore/pkg/primitives"
)

func TestRequestRecordLockFirstCallerFastPath(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	trx := reg.Begin(0)

	res, err := mgr.RequestRecordLock(context.Background(), trx, primitives.RecordRef{Page: page(1, 1), HeapNo: 5}, 1, TypeMode{Mode: ModeS, Flags: FlagRecNotGap})
	if err != nil {
		t.Fatal(err)
	}
	if res != GrantedNew {
		t.Errorf("first caller on an empty page must be GrantedNew, got %s", res)
	}
}

func TestRequestRecordLockReusesSameTypeModeStruct(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	trx := reg.Begin(0)
	ref := primitives.RecordRef{Page: page(1, 1), HeapNo: 5}
	tm := TypeMode{Mode: ModeS, Flags: FlagRecNotGap}

	if _, err := mgr.RequestRecordLock(context.Background(), trx, ref, 1, tm); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.RequestRecordLock(context.Background(), trx, ref, 1, tm); err != nil {
		t.Fatal(err)
	}

	if got := mgr.TxLocks(trx.ID()); len(got) != 1 {
		t.Errorf("a second identical request must reuse the existing struct, got %d locks", len(got))
	}
}

func TestRequestRecordLockDominatingTableLockShortCircuits(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	trx := reg.Begin(0)

	if _, err := mgr.LockTable(context.Background(), trx, 1, ModeX); err != nil {
		t.Fatal(err)
	}

	res, err := mgr.RequestRecordLock(context.Background(), trx, primitives.RecordRef{Page: page(1, 1), HeapNo: 5}, 1, TypeMode{Mode: ModeS, Flags: FlagRecNotGap})
	if err != nil {
		t.Fatal(err)
	}
	if res != GrantedExisting {
		t.Errorf("a dominating table X lock must satisfy the row request outright, got %s", res)
	}
	if got := mgr.TxLocks(trx.ID()); len(got) != 1 {
		t.Errorf("no row lock struct should have been created, got %d locks total", len(got))
	}
}

func TestRequestRecordLockRejectsNilPage(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	trx := reg.Begin(0)

	_, err := mgr.RequestRecordLock(context.Background(), trx, primitives.RecordRef{Page: nil, HeapNo: 5}, 1, TypeMode{Mode: ModeS})
	if err == nil {
		t.Fatal("a nil page reference must be rejected as corruption, not silently accepted")
	}
}

func TestUnlockRowClearsBitAndGrantsWaiter(t *testing.T) {
	cfg := DefaultConfig()
	mgr, reg := newTestManager(t, cfg)
	holder := reg.Begin(0)
	waiter := reg.Begin(0)
	ref := primitives.RecordRef{Page: page(1, 1), HeapNo: 5}

	if _, err := mgr.RequestRecordLock(context.Background(), holder, ref, 1, TypeMode{Mode: ModeX, Flags: FlagRecNotGap}); err != nil {
		t.Fatal(err)
	}

	done := make(chan Result, 1)
	go func() {
		r, _ := mgr.RequestRecordLock(context.Background(), waiter, ref, 1, TypeMode{Mode: ModeS, Flags: FlagRecNotGap})
		done <- r
	}()

	mgr.UnlockRow(holder, ref, 1, 0)

	if got := <-done; got != GrantedNew {
		t.Errorf("waiter must be granted once UnlockRow clears the conflicting bit, got %s", got)
	}
}
