// Package lock implements the transactional lock manager: the lock
// table, record- and table-lock operations, the waiter queue, the
// implicit-to-explicit conversion path, the deadlock detector, and the
// page-event migration hooks the index layer drives on structural
// change. See the teacher's pkg/concurrency/lock for the ancestor of
// this package's shape; the mode algebra below follows spec §4.1.
package lock

import "fmt"

// Mode is the lock mode lattice: IS ≤ IX, IS ≤ S ≤ X, IX ≤ X. AUTOINC
// sits outside the lattice and is compatible with itself only in
// non-waiting contexts (§4.1, §4.5).
type Mode int

const (
	ModeIS Mode = iota
	ModeIX
	ModeS
	ModeX
	ModeAutoInc
)

func (m Mode) String() string {
	switch m {
	case ModeIS:
		return "IS"
	case ModeIX:
		return "IX"
	case ModeS:
		return "S"
	case ModeX:
		return "X"
	case ModeAutoInc:
		return "AUTO_INC"
	default:
		return "UNKNOWN_MODE"
	}
}

// modeCompat is the multi-granularity lattice compatibility table,
// used directly by table-lock acquisition (§4.5) and as the baseline
// the flag-aware record compatibility function in Conflicts builds on
// (§4.1). Table lookup avoids re-deriving the lattice rules inline at
// every call site.
var modeCompat = [5][5]bool{
	// IS     IX     S      X      AUTOINC
	/* IS */ {true, true, true, false, false},
	/* IX */ {true, true, false, false, false},
	/* S  */ {true, false, true, false, false},
	/* X  */ {false, false, false, false, false},
	/* AI */ {false, false, false, false, true},
}

// ModeCompatible reports whether a (requested, existing) pair is
// compatible purely by the mode lattice, ignoring flags. Table-lock
// acquisition (§4.5) uses this directly; record-lock acquisition
// layers flag rules on top via Conflicts.
func ModeCompatible(requested, existing Mode) bool {
	return modeCompat[requested][existing]
}

// Flags are orthogonal qualifiers a lock's type_mode carries alongside
// its Mode (§3). A lock with FlagTable set has no page/heap-no and
// lives only in a table's lock list; all others describe a record
// lock's scope within its page.
type Flags uint16

const (
	FlagTable Flags = 1 << iota
	FlagWait
	FlagGap
	FlagRecNotGap
	FlagInsertIntention
	FlagPredicate
	FlagPrdtPage
)

func (f Flags) String() string {
	if f == 0 {
		return "ORDINARY"
	}
	var out string
	add := func(name string) {
		if out != "" {
			out += "|"
		}
		out += name
	}
	if f&FlagTable != 0 {
		add("TABLE")
	}
	if f&FlagWait != 0 {
		add("WAIT")
	}
	if f&FlagGap != 0 {
		add("GAP")
	}
	if f&FlagRecNotGap != 0 {
		add("REC_NOT_GAP")
	}
	if f&FlagInsertIntention != 0 {
		add("INSERT_INTENTION")
	}
	if f&FlagPredicate != 0 {
		add("PREDICATE")
	}
	if f&FlagPrdtPage != 0 {
		add("PRDT_PAGE")
	}
	return out
}

// Has reports whether all bits of other are set in f.
func (f Flags) Has(other Flags) bool { return f&other == other }

// Any reports whether any bit of other is set in f.
func (f Flags) Any(other Flags) bool { return f&other != 0 }

// TypeMode is the packed (mode, flags) pair spec §3 calls type_mode.
type TypeMode struct {
	Mode  Mode
	Flags Flags
}

func (t TypeMode) String() string {
	if t.Flags == 0 {
		return t.Mode.String()
	}
	return fmt.Sprintf("%s|%s", t.Mode, t.Flags)
}

// IsGapOnly reports whether a lock only protects the gap preceding a
// record — set when GAP is present and REC_NOT_GAP is not (a next-key
// lock carries neither flag and protects both the record and its gap).
func (t TypeMode) IsGapOnly() bool {
	return t.Flags.Has(FlagGap) && !t.Flags.Has(FlagRecNotGap)
}

// IsInsertIntention reports whether a lock is the gap-flavored
// insert-intention variant (GLOSSARY "Insert-intention lock").
func (t TypeMode) IsInsertIntention() bool {
	return t.Flags.Has(FlagInsertIntention)
}

// Conflicts decides whether a requester's type_mode must wait behind
// an existing granted/waiting lock held by a *different* transaction,
// following the table in spec §4.1 exactly, top to bottom:
//
//  1. modes compatible by the lattice -> compatible
//  2. requester targets the supremum slot, or is itself a plain GAP
//     request, and is not insert-intention -> compatible (gap locks
//     conflict only with insert-intention)
//  3. requester has no insert-intention and existing is GAP-only -> compatible
//  4. requester is GAP-only and existing is REC_NOT_GAP -> compatible
//  5. existing is insert-intention -> compatible (IIs never block anyone)
//  6. otherwise -> conflict
//
// Same-transaction ownership is handled by the caller before this is
// reached (spec §4.1 "same transaction, any mode -> compatible"); this
// function assumes requester and existing belong to different
// transactions. requesterIsSupremum is true when the requester's
// target heap slot is the supremum sentinel (invariant 8).
func Conflicts(requester, existing TypeMode, requesterIsSupremum bool) bool {
	if ModeCompatible(requester.Mode, existing.Mode) {
		return false
	}
	if (requesterIsSupremum || requester.IsGapOnly()) && !requester.IsInsertIntention() {
		return false
	}
	if !requester.IsInsertIntention() && existing.IsGapOnly() {
		return false
	}
	if requester.IsGapOnly() && existing.Flags.Has(FlagRecNotGap) {
		return false
	}
	if existing.IsInsertIntention() {
		return false
	}
	return true
}

// Dominates reports whether mode a is at least as strong as mode b on
// the lattice (a == b or b can be satisfied by holding a). Used by
// record-lock acquisition step 1 (spec §4.3: "transaction already
// holds a table lock dominating the requested mode").
func Dominates(a, b Mode) bool {
	if a == b {
		return true
	}
	switch a {
	case ModeX:
		return b == ModeIS || b == ModeIX || b == ModeS
	case ModeS:
		return b == ModeIS
	case ModeIX:
		return b == ModeIS
	default:
		return false
	}
}
