package lock

import "lockcore/pkg/primitives"

// PageHash is one of the three fixed-capacity, resizable hash tables
// of spec §4.2 and §9 Design Notes ("intrusive doubly linked lists
// hung off a fixed-size open-hash bucket array keyed by page-id
// fold"). A bucket is a plain slice rather than an intrusive list —
// the lock-system mutex already serializes every mutation, so the
// only property that matters is that a bucket preserves insertion
// order, which append/remove-in-place on a slice does for free.
//
// One bucket may hold locks belonging to several different pages that
// folded to the same slot; Queue filters by page identity while
// walking linearly, exactly as the teacher's hash-chain walk does.
type PageHash struct {
	buckets [][]*Lock
}

// NewPageHash creates a hash table with n buckets. n is rounded up to
// at least 1.
func NewPageHash(n int) *PageHash {
	if n < 1 {
		n = 1
	}
	return &PageHash{buckets: make([][]*Lock, n)}
}

func (h *PageHash) fold(p primitives.PageID) int {
	return int(uint64(p.HashCode()) % uint64(len(h.buckets)))
}

// Queue returns the queue-ordered slice of locks on page p. The
// returned slice is freshly built on each call; the *Lock values in it
// are the ones held in the table, not copies.
func (h *PageHash) Queue(p primitives.PageID) []*Lock {
	bucket := h.buckets[h.fold(p)]
	var out []*Lock
	for _, l := range bucket {
		if l.Page.Equals(p) {
			out = append(out, l)
		}
	}
	return out
}

// Append adds a lock to the tail of its page's bucket, preserving
// queue order (spec §3 "locks created earlier come first").
func (h *PageHash) Append(l *Lock) {
	i := h.fold(l.Page)
	h.buckets[i] = append(h.buckets[i], l)
}

// Remove detaches a lock from its page's bucket. No-op if absent.
func (h *PageHash) Remove(l *Lock) {
	i := h.fold(l.Page)
	bucket := h.buckets[i]
	for j, cur := range bucket {
		if cur == l {
			h.buckets[i] = append(bucket[:j], bucket[j+1:]...)
			return
		}
	}
}

// RemoveAllForPage detaches and returns every lock on page p, in
// queue order, used by the discard page-event (§4.9).
func (h *PageHash) RemoveAllForPage(p primitives.PageID) []*Lock {
	i := h.fold(p)
	bucket := h.buckets[i]
	var removed []*Lock
	kept := bucket[:0]
	for _, l := range bucket {
		if l.Page.Equals(p) {
			removed = append(removed, l)
		} else {
			kept = append(kept, l)
		}
	}
	h.buckets[i] = kept
	return removed
}

// Resize rehashes every lock into a bucket array of n buckets,
// preserving each page's relative queue order. Callers must hold the
// lock-system mutex for the duration (spec §4.2: "re-sizable while
// holding the global mutex").
func (h *PageHash) Resize(n int) {
	if n < 1 {
		n = 1
	}
	fresh := make([][]*Lock, n)
	for _, bucket := range h.buckets {
		for _, l := range bucket {
			i := int(uint64(l.Page.HashCode()) % uint64(n))
			fresh[i] = append(fresh[i], l)
		}
	}
	h.buckets = fresh
}

// Len returns the total number of locks across all buckets, used by
// the validation checker (C10).
func (h *PageHash) Len() int {
	n := 0
	for _, bucket := range h.buckets {
		n += len(bucket)
	}
	return n
}

// All returns every lock across all buckets, in no particular cross-
// page order, used by diagnostics and the debug consistency checker.
func (h *PageHash) All() []*Lock {
	var out []*Lock
	for _, bucket := range h.buckets {
		out = append(out, bucket...)
	}
	return out
}
