package lock

import (
	"testing"

	"lockcore/pkg/txn"
)

func TestFindCycleLockedDetectsThreeWayCycle(t *testing.T) {
	_, reg := newTestManager(t, DefaultConfig())
	a := reg.Begin(0)
	b := reg.Begin(0)
	c := reg.Begin(0)

	a.SetWaitTrx(b)
	b.SetWaitTrx(c)
	c.SetWaitTrx(a)

	cycle := findCycleLocked(a)
	if cycle == nil {
		t.Fatal("findCycleLocked must detect the a->b->c->a cycle")
	}
	seen := map[interface{}]bool{}
	for _, member := range cycle {
		seen[member.ID()] = true
	}
	if !seen[a.ID()] || !seen[b.ID()] || !seen[c.ID()] {
		t.Errorf("cycle must contain all three members, got %v", cycle)
	}
}

func TestFindCycleLockedReturnsNilForAcyclicChain(t *testing.T) {
	_, reg := newTestManager(t, DefaultConfig())
	a := reg.Begin(0)
	b := reg.Begin(0)

	a.SetWaitTrx(b)
	// b.WaitTrx() stays nil: the chain terminates without looping.

	if cycle := findCycleLocked(a); cycle != nil {
		t.Errorf("findCycleLocked on a terminating chain = %v, want nil", cycle)
	}
}

func TestChooseVictimPicksLowestWeight(t *testing.T) {
	_, reg := newTestManager(t, DefaultConfig())
	heavy := reg.Begin(0)
	heavy.SetUndoCount(100)
	light := reg.Begin(0)
	light.SetUndoCount(1)

	victim := chooseVictim([]*txn.Transaction{heavy, light}, heavy)
	if victim != light {
		t.Errorf("chooseVictim = %s, want the lighter transaction", victim.ID())
	}
}

func TestChooseVictimTiesBreakTowardRequester(t *testing.T) {
	_, reg := newTestManager(t, DefaultConfig())
	a := reg.Begin(0)
	b := reg.Begin(0)
	// both default to weight 0

	victim := chooseVictim([]*txn.Transaction{a, b}, b)
	if victim != b {
		t.Errorf("chooseVictim on a tie = %s, want the requester b", victim.ID())
	}
}

func TestChooseVictimPrefersNonTransactionalModifierAsSurvivor(t *testing.T) {
	_, reg := newTestManager(t, DefaultConfig())
	nonTx := reg.Begin(0)
	nonTx.SetUndoCount(0)
	nonTx.MarkModifiedNonTransactional()
	plain := reg.Begin(0)
	plain.SetUndoCount(0)

	victim := chooseVictim([]*txn.Transaction{nonTx, plain}, nonTx)
	if victim != plain {
		t.Errorf("chooseVictim = %s, want the plain transactional peer, not the non-tx modifier", victim.ID())
	}
}
