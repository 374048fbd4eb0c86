package primitives

import "fmt"

// PageID identifies a page within some table or index file. The lock core
// treats page identity as opaque: the clustered/secondary index layer that
// owns pages implements this interface, and the lock core only ever hashes,
// compares, and logs it (spec §1 — B-tree/page-access logic is an external
// collaborator).
type PageID interface {
	// TableID returns the table this page belongs to.
	TableID() TableID

	// PageNo returns the page number within the table.
	PageNo() PageNumber

	// Equals reports whether two page IDs name the same page.
	Equals(other PageID) bool

	// String returns a string representation, used in diagnostics.
	String() string

	// HashCode returns a hash code, used to fold the page into a
	// lock-table bucket (§4.2).
	HashCode() HashCode
}

// RecordRef names a single record inside a page by its heap slot. This is
// the (page, heap-slot) pair spec §1 describes as the unit of record
// locking.
type RecordRef struct {
	Page   PageID
	HeapNo HeapNo
}

// Equals reports whether two record references name the same (page, slot).
func (r RecordRef) Equals(other RecordRef) bool {
	if r.Page == nil || other.Page == nil {
		return r.Page == nil && other.Page == nil && r.HeapNo == other.HeapNo
	}
	return r.Page.Equals(other.Page) && r.HeapNo == other.HeapNo
}

// String returns a human-readable form, e.g. "page(7)/5".
func (r RecordRef) String() string {
	if r.Page == nil {
		return fmt.Sprintf("<nil>/%d", r.HeapNo)
	}
	return fmt.Sprintf("%s/%d", r.Page.String(), r.HeapNo)
}
