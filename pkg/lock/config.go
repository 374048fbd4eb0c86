package lock

import "time"

// ReportLevel controls deadlock-diagnostic verbosity (spec §6).
type ReportLevel int

const (
	ReportOff ReportLevel = iota
	ReportBasic
	ReportFull
)

// Config carries the options spec §6 says the core recognizes. There
// is no persisted state, so Config is constructed fresh by the
// caller (or a test) at Manager creation — grounded on the teacher's
// plain-struct config pattern (no config-parsing library appears as a
// live import anywhere in the retrieval pack).
type Config struct {
	// DeadlockDetect enables the Brent's-algorithm cycle search (§4.8).
	// When false, no cycle search runs and a conflicting request
	// simply waits.
	DeadlockDetect bool

	// DeadlockReport controls how much the detector logs about a
	// cycle it finds.
	DeadlockReport ReportLevel

	// LockWaitTimeout bounds how long a request blocks before
	// returning TIMEOUT. Zero means fail fast (§4.6): a conflicting
	// request returns TIMEOUT immediately instead of enqueuing.
	LockWaitTimeout time.Duration

	// HashCells sizes each of the three page hash tables at Manager
	// construction (§4.2, §6).
	HashCells int

	// ReleaseBatch is how many of a transaction's locks are detached
	// before the lock-system mutex is dropped and re-acquired during
	// bulk release (§4.11 "releases the global mutex every N
	// entries (target: 1000)").
	ReleaseBatch int
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{
		DeadlockDetect:  true,
		DeadlockReport:  ReportBasic,
		LockWaitTimeout: 50 * time.Second,
		HashCells:       4096,
		ReleaseBatch:    1000,
	}
}
