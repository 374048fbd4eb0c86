package lock

import (
	"fmt"
	"sort"
	"strings"

	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// Violation names one broken invariant found by Validate, tagged with
// the §8 invariant number it violates.
type Violation struct {
	Invariant int
	Detail    string
}

func (v Violation) String() string {
	return fmt.Sprintf("invariant %d: %s", v.Invariant, v.Detail)
}

// Validate runs every consistency check of spec §8 across the whole
// lock table and returns every violation found. This is debug-only
// tooling meant to be called from tests (spec §9 Design Notes
// "Validation"), not from any production request path — it is O(n²)
// per page queue.
func (m *Manager) Validate() []Violation {
	m.mu.Lock()
	defer m.mu.Unlock()

	var violations []Violation
	for _, h := range []*PageHash{m.recHash, m.predHash, m.predPageHash} {
		violations = append(violations, validatePageHash(h)...)
	}
	violations = append(violations, m.validateWaitEdges()...)
	violations = append(violations, m.validateTableCounters()...)
	return violations
}

func validatePageHash(h *PageHash) []Violation {
	groups := make(map[string][]*Lock)
	var order []string
	for _, l := range h.All() {
		key := l.Page.String()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], l)
	}
	sort.Strings(order)

	var violations []Violation
	for _, key := range order {
		violations = append(violations, validatePageQueue(key, groups[key])...)
	}
	return violations
}

// validatePageQueue checks invariants 1, 2, 3, 4, and 8 against a
// single page's queue, in queue order.
func validatePageQueue(pageKey string, locks []*Lock) []Violation {
	var violations []Violation

	for _, l := range locks {
		if l.IsWaiting() {
			if n := l.Bits.Count(); n != 1 {
				violations = append(violations, Violation{2,
					fmt.Sprintf("%s: waiting %s has %d bits set, want exactly 1", pageKey, l, n)})
			}
			if wl, ok := l.Owner.WaitLock().(*Lock); !ok || wl != l {
				violations = append(violations, Violation{1,
					fmt.Sprintf("%s: waiting %s is not %s's wait_lock", pageKey, l, l.Owner.ID())})
			}
		}
		if heapNo, ok := l.Bits.SoleBit(); ok && heapNo == primitives.SupremumHeapNo {
			if l.TypeMode.Flags.Any(FlagGap | FlagRecNotGap) {
				violations = append(violations, Violation{8,
					fmt.Sprintf("%s: %s on the supremum slot carries a gap flavor", pageKey, l)})
			}
		}
	}

	for i, a := range locks {
		for j := i + 1; j < len(locks); j++ {
			b := locks[j]
			if a.Owner == b.Owner || !sharesBit(a.Bits, b.Bits) {
				continue
			}
			conflict := Conflicts(a.TypeMode, b.TypeMode, false) || Conflicts(b.TypeMode, a.TypeMode, false)
			if !conflict {
				continue
			}
			if !a.IsWaiting() && !b.IsWaiting() {
				violations = append(violations, Violation{3,
					fmt.Sprintf("%s: granted %s and granted %s conflict", pageKey, a, b)})
				continue
			}
			// a precedes b in queue order. A waiter must follow every
			// granted lock it conflicts with, never precede one.
			if a.IsWaiting() && !b.IsWaiting() {
				violations = append(violations, Violation{4,
					fmt.Sprintf("%s: waiting %s precedes conflicting granted %s", pageKey, a, b)})
			}
		}
	}
	return violations
}

// sharesBit reports whether two bitmaps have any heap slot in common.
func sharesBit(a, b Bitmap) bool {
	for _, n := range a.Bits() {
		if b.Test(n) {
			return true
		}
	}
	return false
}

// validateWaitEdges checks invariant 5 against every transaction with
// a live wait_lock, and the acyclicity half of invariant 6 against
// the whole waits-for graph. Callers must hold mu.
func (m *Manager) validateWaitEdges() []Violation {
	var violations []Violation

	for _, locks := range m.txLocks {
		for _, l := range locks {
			if !l.IsWaiting() {
				continue
			}
			trx := l.Owner
			blocker := trx.WaitTrx()
			if blocker == nil {
				violations = append(violations, Violation{5,
					fmt.Sprintf("%s's wait_lock %s is set but wait_trx is nil", trx.ID(), l)})
				break
			}
			if !m.conflictsWithWaiter(l, blocker) {
				violations = append(violations, Violation{5,
					fmt.Sprintf("%s's wait_trx %s holds no lock conflicting with %s", trx.ID(), blocker.ID(), l)})
			}
			break // one wait_lock per transaction; the rest of its locks add nothing here.
		}
	}

	for _, locks := range m.txLocks {
		if len(locks) == 0 || locks[0].Owner.WaitTrx() == nil {
			continue
		}
		cycle := findCycleLocked(locks[0].Owner)
		if cycle == nil {
			continue
		}
		ids := make([]string, len(cycle))
		for i, t := range cycle {
			ids[i] = t.ID().String()
		}
		violations = append(violations, Violation{6,
			fmt.Sprintf("waits-for cycle survived outside a detector run: %s", strings.Join(ids, " -> "))})
		break
	}
	return violations
}

// conflictsWithWaiter reports whether blocker holds a lock (table or
// record) that conflicts with l, the precondition invariant 5
// requires of l.Owner's wait_trx edge.
func (m *Manager) conflictsWithWaiter(l *Lock, blocker *txn.Transaction) bool {
	if l.Kind == KindTable {
		for _, bl := range l.Table.locks {
			if bl.Owner == blocker && !bl.IsWaiting() && !ModeCompatible(l.TypeMode.Mode, bl.TypeMode.Mode) {
				return true
			}
		}
		return false
	}
	heapNo, ok := l.Bits.SoleBit()
	if !ok {
		return false
	}
	isSupremum := heapNo == primitives.SupremumHeapNo
	for _, bl := range m.hashFor(l.TypeMode.Flags).Queue(l.Page) {
		if bl.Owner != blocker || !bl.Bits.Test(heapNo) {
			continue
		}
		if Conflicts(l.TypeMode, bl.TypeMode, isSupremum) {
			return true
		}
	}
	return false
}

// validateTableCounters checks invariant 7: n_rec_locks equals the
// count of record locks belonging to each table. Callers must hold
// mu.
func (m *Manager) validateTableCounters() []Violation {
	counted := make(map[primitives.TableID]int)
	for _, h := range []*PageHash{m.recHash, m.predHash, m.predPageHash} {
		for _, l := range h.All() {
			counted[l.TableID]++
		}
	}

	var violations []Violation
	for id, want := range counted {
		t, ok := m.tables.Get(id)
		if !ok {
			violations = append(violations, Violation{7,
				fmt.Sprintf("table %v has %d record locks but no Table entry", id, want)})
			continue
		}
		if t.nRecLocks != want {
			violations = append(violations, Violation{7,
				fmt.Sprintf("table %v: n_rec_locks = %d, want %d", id, t.nRecLocks, want)})
		}
	}
	return violations
}

// DumpTransaction renders a transaction's held and waiting locks in
// acquisition order, for debug logging and deadlock trace output
// (spec §9 Design Notes "Validation").
func (m *Manager) DumpTransaction(id txn.ID) string {
	m.mu.Lock()
	locks := append([]*Lock(nil), m.txLocks[id]...)
	m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "trx %s:\n", id.String())
	for _, l := range locks {
		fmt.Fprintf(&b, "  %s\n", l)
	}
	return b.String()
}

// DumpAll renders every transaction's lock list, sorted by id for
// stable diagnostic output.
func (m *Manager) DumpAll() string {
	m.mu.Lock()
	ids := make([]txn.ID, 0, len(m.txLocks))
	for id := range m.txLocks {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(m.DumpTransaction(id))
	}
	return b.String()
}

// FormatCycle renders a deadlock cycle's member transactions and the
// victim chosen from among them, the human-readable form of the trace
// the detector logs (spec §4.8, §9 Design Notes "Validation").
func FormatCycle(members []*txn.Transaction, victim *txn.Transaction) string {
	ids := make([]string, len(members))
	for i, t := range members {
		ids[i] = t.ID().String()
	}
	return fmt.Sprintf("cycle [%s], victim %s", strings.Join(ids, " -> "), victim.ID().String())
}
