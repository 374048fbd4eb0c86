package lock

import (
	"context"
	"testing"

	"lockcore/pkg/primitives"
)

func TestReorganizePageMovesGrantedLock(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	trx := reg.Begin(0)

	p := page(1, 1)
	ref := primitives.RecordRef{Page: p, HeapNo: 5}
	if _, err := mgr.RequestRecordLock(context.Background(), trx, ref, 1, TypeMode{Mode: ModeX, Flags: FlagRecNotGap}); err != nil {
		t.Fatal(err)
	}

	mgr.ReorganizePage(p, HeapMapping{5: 9})

	locks := mgr.TxLocks(trx.ID())
	if len(locks) != 1 {
		t.Fatalf("locks = %d, want 1", len(locks))
	}
	if !locks[0].Bits.Test(9) || locks[0].Bits.Test(5) {
		t.Errorf("lock must now cover heap slot 9, not 5: %v", locks[0].Bits.Bits())
	}
}

func TestSplitRightMovesSupremum(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	trx := reg.Begin(0)

	left := page(1, 1)
	right := page(1, 2)
	ref := primitives.RecordRef{Page: left, HeapNo: primitives.SupremumHeapNo}
	if _, err := mgr.RequestRecordLock(context.Background(), trx, ref, 1, TypeMode{Mode: ModeX}); err != nil {
		t.Fatal(err)
	}

	mgr.SplitRight(left, right, HeapMapping{})

	locks := mgr.TxLocks(trx.ID())
	if len(locks) != 1 {
		t.Fatalf("locks = %d, want 1", len(locks))
	}
	if !locks[0].Page.Equals(right) {
		t.Errorf("the old left-page supremum lock must have moved to right, got %s", locks[0].Page)
	}
}

func TestInheritToGapSkipsInsertIntention(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	trx := reg.Begin(0)

	left := page(1, 1)
	right := page(1, 2)
	ref := primitives.RecordRef{Page: left, HeapNo: primitives.SupremumHeapNo}
	tm := TypeMode{Mode: ModeX, Flags: FlagGap | FlagInsertIntention}
	if _, err := mgr.RequestRecordLock(context.Background(), trx, ref, 1, tm); err != nil {
		t.Fatal(err)
	}

	mgr.SplitLeft(left, right, 2)

	if got := mgr.TxLocks(trx.ID()); len(got) != 1 {
		t.Fatalf("an insert-intention lock must never be inherited to gap, got %d locks", len(got))
	}
}

func TestMergeRightFreesDiscardedPage(t *testing.T) {
	mgr, reg := newTestManager(t, DefaultConfig())
	holder := reg.Begin(0)

	survivor := page(1, 1)
	discarded := page(1, 2)
	ref := primitives.RecordRef{Page: discarded, HeapNo: primitives.SupremumHeapNo}
	if _, err := mgr.RequestRecordLock(context.Background(), holder, ref, 1, TypeMode{Mode: ModeS}); err != nil {
		t.Fatal(err)
	}

	mgr.MergeRight(survivor, discarded, 3)

	for _, l := range mgr.TxLocks(holder.ID()) {
		if l.Page.Equals(discarded) {
			t.Errorf("discarded page must carry no remaining locks, found %s", l)
		}
	}
}

func TestDeleteInheritGapIssuesGapLockOnSuccessor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockWaitTimeout = 0 // fail fast instead of actually suspending (spec §4.6)
	mgr, reg := newTestManager(t, cfg)
	holder := reg.Begin(0)
	waiter := reg.Begin(0)

	p := page(1, 1)
	deleted := primitives.RecordRef{Page: p, HeapNo: 5}
	successor := primitives.RecordRef{Page: p, HeapNo: 6}

	if _, err := mgr.RequestRecordLock(context.Background(), holder, deleted, 1, TypeMode{Mode: ModeX, Flags: FlagRecNotGap}); err != nil {
		t.Fatal(err)
	}
	res, err := mgr.RequestRecordLock(context.Background(), waiter, deleted, 1, TypeMode{Mode: ModeS, Flags: FlagRecNotGap})
	if err != nil {
		t.Fatal(err)
	}
	if res != ResultTimeout {
		t.Fatalf("a conflicting request with LockWaitTimeout=0 must fail fast, got %s", res)
	}

	mgr.DeleteInheritGap(deleted, successor)

	// The deleted record's own lock survives untouched; a fresh GAP
	// lock is additionally issued at the successor slot.
	got := mgr.TxLocks(holder.ID())
	var inherited *Lock
	for _, l := range got {
		if l.Bits.Test(successor.HeapNo) {
			inherited = l
		}
	}
	if inherited == nil {
		t.Fatalf("holder must hold an inherited lock on the successor slot, got %v", got)
	}
	if !inherited.TypeMode.IsGapOnly() {
		t.Errorf("the inherited lock must be GAP-only, got %s", inherited.TypeMode)
	}
}
