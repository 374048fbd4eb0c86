package main

import (
	"context"
	"fmt"
	"time"

	"lockcore/pkg/lock"
	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// demoPage is a standalone primitives.PageID for the demo scenario.
// lockview has no real B-tree to attach to, so page identity here is
// just a (table, page number) pair with no backing storage.
type demoPage struct {
	table primitives.TableID
	no    primitives.PageNumber
}

func (p *demoPage) TableID() primitives.TableID   { return p.table }
func (p *demoPage) PageNo() primitives.PageNumber { return p.no }

func (p *demoPage) Equals(other primitives.PageID) bool {
	o, ok := other.(*demoPage)
	return ok && o.table == p.table && o.no == p.no
}

func (p *demoPage) String() string {
	return fmt.Sprintf("page(%d/%d)", p.table, p.no)
}

func (p *demoPage) HashCode() primitives.HashCode {
	return primitives.HashCode(uint64(p.table)*31 + uint64(p.no))
}

// demoWorld bundles the manager and registry a running session built
// so the viewer has something to walk.
type demoWorld struct {
	mgr *lock.Manager
	reg *txn.Registry
	trx []*txn.Transaction
}

// buildDemoWorld seeds three transactions against two shared pages:
// t1 and t3 hold shared row locks on p1, t2 holds an exclusive row
// lock on p2, and t1 queues behind t2 until its 200ms lock-wait
// timeout expires. No pair of them deadlocks.
func buildDemoWorld() *demoWorld {
	cfg := lock.DefaultConfig()
	cfg.LockWaitTimeout = 200 * time.Millisecond
	waitMu := txn.NewWaitMutex()
	reg := txn.NewRegistry(waitMu)
	mgr := lock.NewManager(cfg, reg, waitMu)

	const table primitives.TableID = 7
	p1 := &demoPage{table: table, no: 1}
	p2 := &demoPage{table: table, no: 2}

	t1 := reg.Begin(txn.RepeatableRead)
	t1.SetUndoCount(3)
	t2 := reg.Begin(txn.RepeatableRead)
	t2.SetUndoCount(8)
	t3 := reg.Begin(txn.ReadCommitted)
	t3.SetUndoCount(1)

	ctx := context.Background()

	mustLock := func(trx *txn.Transaction, ref primitives.RecordRef, tm lock.TypeMode) {
		if _, err := mgr.RequestRecordLock(ctx, trx, ref, table, tm); err != nil {
			panic(err)
		}
	}

	// t1 and t3 hold compatible shared locks on two rows of p1.
	mustLock(t1, primitives.RecordRef{Page: p1, HeapNo: 2}, lock.TypeMode{Mode: lock.ModeS, Flags: lock.FlagRecNotGap})
	mustLock(t3, primitives.RecordRef{Page: p1, HeapNo: 3}, lock.TypeMode{Mode: lock.ModeS, Flags: lock.FlagRecNotGap})

	// t2 holds an exclusive row lock on p2 that t1 will queue behind.
	mustLock(t2, primitives.RecordRef{Page: p2, HeapNo: 2}, lock.TypeMode{Mode: lock.ModeX, Flags: lock.FlagRecNotGap})

	waitDone := make(chan struct{})
	go func() {
		_, _ = mgr.RequestRecordLock(ctx, t1, primitives.RecordRef{Page: p2, HeapNo: 2}, table, lock.TypeMode{Mode: lock.ModeX, Flags: lock.FlagRecNotGap})
		close(waitDone)
	}()
	time.Sleep(30 * time.Millisecond)

	select {
	case <-waitDone:
	default:
	}

	return &demoWorld{mgr: mgr, reg: reg, trx: []*txn.Transaction{t1, t2, t3}}
}
