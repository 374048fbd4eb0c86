package lock

// AutoIncStack tracks a transaction's AUTO_INC locks in acquisition
// order so a statement's end (or rollback) can release them LIFO
// (spec §4.5 "important for nested statement contexts", §8 scenario
// 5). Kept as its own small type rather than folded into the general
// per-transaction lock list, per SPEC_FULL's supplemented-features
// decision.
type AutoIncStack struct {
	locks []*Lock
}

// Push records a newly granted AUTO_INC lock as the most recent.
func (s *AutoIncStack) Push(l *Lock) {
	s.locks = append(s.locks, l)
}

// PopAll drains the stack in reverse acquisition order (most recent
// first), returning the ordered sequence to release.
func (s *AutoIncStack) PopAll() []*Lock {
	out := make([]*Lock, len(s.locks))
	for i := range s.locks {
		out[i] = s.locks[len(s.locks)-1-i]
	}
	s.locks = nil
	return out
}

// Remove drops a specific lock from the stack without disturbing the
// relative order of the rest, used by detachAnyLock when an AUTO_INC
// lock is detached before statement end (bulk release, or a wait that
// ends in deadlock or timeout).
func (s *AutoIncStack) Remove(l *Lock) {
	for i, cur := range s.locks {
		if cur == l {
			s.locks = append(s.locks[:i], s.locks[i+1:]...)
			return
		}
	}
}

// Len reports how many AUTO_INC locks are currently tracked.
func (s *AutoIncStack) Len() int { return len(s.locks) }
