package dberrors

// Lock-core error codes (spec §7 taxonomy). These wrap New with the
// category and code fixed so call sites at the lock/wait boundary don't
// repeat the string literals.

const (
	CodeDeadlockDetected = "DEADLOCK_DETECTED"
	CodeLockWaitTimeout  = "LOCK_WAIT_TIMEOUT"
	CodeLockInterrupted  = "LOCK_WAIT_INTERRUPTED"
	CodeLockCorruption   = "LOCK_TABLE_CORRUPTION"
)

// Deadlock reports that a request completing a waits-for cycle forced a
// rollback. victim is included in Detail for diagnostics.
func Deadlock(victim string) *DBError {
	err := New(ErrCategoryDeadlock, CodeDeadlockDetected, "deadlock detected")
	err.Detail = "victim: " + victim
	err.Component = "LockManager"
	return err
}

// LockTimeout reports that a lock wait exceeded the configured budget.
func LockTimeout(resource string) *DBError {
	err := New(ErrCategoryTimeout, CodeLockWaitTimeout, "lock wait timeout")
	err.Detail = "resource: " + resource
	err.Component = "LockManager"
	return err
}

// LockInterrupted reports that a session-kill signal was observed while
// a transaction was waiting on a lock.
func LockInterrupted(resource string) *DBError {
	err := New(ErrCategoryInterrupted, CodeLockInterrupted, "lock wait interrupted")
	err.Detail = "resource: " + resource
	err.Component = "LockManager"
	return err
}

// LockCorruption reports a lock-table consistency violation found by the
// validation checker (C10) or by a bitmap/heap-no range check.
func LockCorruption(detail string) *DBError {
	err := New(ErrCategoryCorruption, CodeLockCorruption, "lock table corruption")
	err.Detail = detail
	err.Component = "LockManager"
	return err
}
