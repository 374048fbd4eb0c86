package lock

import (
	"context"
	"testing"

	"lockcore/pkg/primitives"
)

func TestReleaseGrantsAllEligibleWaitersAcrossPages(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	holder := reg.Begin(0)
	waiterA := reg.Begin(0)
	waiterB := reg.Begin(0)

	refA := primitives.RecordRef{Page: page(1, 1), HeapNo: 5}
	refB := primitives.RecordRef{Page: page(1, 2), HeapNo: 5}

	if _, err := mgr.RequestRecordLock(context.Background(), holder, refA, 1, TypeMode{Mode: ModeX, Flags: FlagRecNotGap}); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.RequestRecordLock(context.Background(), holder, refB, 1, TypeMode{Mode: ModeX, Flags: FlagRecNotGap}); err != nil {
		t.Fatal(err)
	}

	doneA := make(chan Result, 1)
	doneB := make(chan Result, 1)
	go func() {
		r, _ := mgr.RequestRecordLock(context.Background(), waiterA, refA, 1, TypeMode{Mode: ModeS, Flags: FlagRecNotGap})
		doneA <- r
	}()
	go func() {
		r, _ := mgr.RequestRecordLock(context.Background(), waiterB, refB, 1, TypeMode{Mode: ModeS, Flags: FlagRecNotGap})
		doneB <- r
	}()

	mgr.Release(holder)

	if got := <-doneA; got != GrantedNew {
		t.Errorf("waiterA = %s, want GrantedNew", got)
	}
	if got := <-doneB; got != GrantedNew {
		t.Errorf("waiterB = %s, want GrantedNew", got)
	}
	if got := mgr.TxLocks(holder.ID()); len(got) != 0 {
		t.Errorf("holder must hold nothing after Release, got %d locks", len(got))
	}
}

func TestReleaseBatchesUnderSmallReleaseBatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReleaseBatch = 1
	mgr, reg := newTestManager(t, cfg)
	holder := reg.Begin(0)

	for i := primitives.HeapNo(2); i < 7; i++ {
		ref := primitives.RecordRef{Page: page(1, 1), HeapNo: i}
		if _, err := mgr.RequestRecordLock(context.Background(), holder, ref, 1, TypeMode{Mode: ModeX, Flags: FlagRecNotGap}); err != nil {
			t.Fatal(err)
		}
	}

	mgr.Release(holder)

	if got := mgr.TxLocks(holder.ID()); len(got) != 0 {
		t.Errorf("a release batch size of 1 must still release every lock, got %d remaining", len(got))
	}
}

func TestReleaseClearsAutoIncStack(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	trx := reg.Begin(0)

	if _, err := mgr.LockTable(context.Background(), trx, 1, ModeAutoInc); err != nil {
		t.Fatal(err)
	}

	mgr.Release(trx)

	mgr.mu.Lock()
	_, ok := mgr.autoinc[trx.ID()]
	mgr.mu.Unlock()
	if ok {
		t.Error("Release must clear the transaction's AUTO_INC stack entry")
	}
}
