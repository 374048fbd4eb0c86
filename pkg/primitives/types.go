package primitives

// HashCode is a hash value used for bucket placement in the lock table's
// fixed-capacity hash tables (§4.2).
type HashCode uint64

// FileID is the physical identity of a table or index file, derived from
// hashing its path. TableID and IndexID are both FileIDs; the lock core
// only ever needs the identity, not the distinction.
type FileID uint64

// TableID identifies the table a record lock's page belongs to. Used to
// maintain table.n_rec_locks (invariant 7) and to route table-level locks.
type TableID FileID

// PageNumber is a page number within a table or index file.
type PageNumber uint64

// HeapNo is the slot number of a record within a page's heap. Heap slots
// 0 and 1 are reserved sentinels (infimum and supremum, §3 invariant 8).
type HeapNo uint16

const (
	// InfimumHeapNo is the sentinel slot preceding the first real record on a page.
	InfimumHeapNo HeapNo = 0
	// SupremumHeapNo is the sentinel slot following the last real record on a page.
	SupremumHeapNo HeapNo = 1
	// FirstUserHeapNo is the smallest heap slot a real record may occupy.
	FirstUserHeapNo HeapNo = 2
)

// LockID uniquely identifies a lock object for diagnostics/logging purposes.
type LockID uint64

// Sentinel values for invalid/unset identifiers.
const (
	InvalidPageNumber PageNumber = 0
	InvalidFileID     FileID     = 0
	InvalidTableID    TableID    = 0
)
