package lock

import (
	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// ClusteredVersionWalker resolves a secondary-index record's true
// last modifier by walking into the clustered index (spec §4.7: "For
// secondary indexes, the holder is discovered via a version walk into
// the clustered index"). The index/version layer that implements this
// is out of scope (§1 — B-tree and page-access logic, MVCC read
// views); the lock core only consumes it through this narrow
// interface. False positives are tolerated (ConvertImplicitToExplicit
// reconfirms liveness before trusting the result); false negatives
// are not, per spec §4.7.
type ClusteredVersionWalker interface {
	ResolveModifier(ref primitives.RecordRef) (txn.ID, bool)
}

// ConvertImplicitToExplicit is the C7 component of spec §4.7. modifierID
// is the row's last-modifier transaction id, already resolved by the
// caller — directly from clustered-index row metadata, or via a
// ClusteredVersionWalker for a secondary-index record. If that
// transaction is still active and does not already hold an explicit
// lock strong enough to cover heap_no, an explicit X|REC_NOT_GAP lock
// owned by it is materialized at the queue tail.
//
// Callers invoke this before any *other* transaction is allowed to
// wait on or read-lock the row; it is a no-op (not an error) when the
// modifier is no longer live, since a dead transaction cannot hold an
// implicit lock.
func (m *Manager) ConvertImplicitToExplicit(modifierID txn.ID, ref primitives.RecordRef, tableID primitives.TableID) {
	holder, ok := m.registry.Lookup(modifierID)
	if !ok || !holder.IsActive() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.hashFor(0)
	for _, l := range h.Queue(ref.Page) {
		if l.Owner == holder && !l.IsWaiting() && l.Bits.Test(ref.HeapNo) && l.TypeMode.Mode == ModeX {
			return // already holds a strong enough explicit lock
		}
	}

	l := newRecordLock(holder, TypeMode{Mode: ModeX, Flags: FlagRecNotGap}, ref.Page, tableID, ref.HeapNo)
	m.attachRecordLock(l)
}
