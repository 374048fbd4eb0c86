package logging

import (
	"log/slog"
)

// WithTx creates a logger with transaction context.
// Use this to automatically include transaction ID in all logs.
//
// Example:
//
//	log := logging.WithTx(tx)
//	log.Info("starting operation")
//	log.Debug("processing", "rows", count)
func WithTx(txID int64) *slog.Logger {
	return GetLogger().With("tx_id", txID)
}

// WithLock creates a logger with lock context.
// Useful for record- and table-lock acquisition paths.
//
// Example:
//
//	log := logging.WithLock(txID, resourceID)
//	log.Info("lock acquired", "lock_type", "exclusive")
func WithLock(txID int64, resourceID string) *slog.Logger {
	return GetLogger().With("tx_id", txID, "resource", resourceID)
}

// WithWaiter creates a logger for a transaction currently suspended on
// a lock, naming who it is waiting for.
//
// Example:
//
//	log := logging.WithWaiter(tid, waitingFor)
//	log.Debug("enqueued", "queue_len", n)
func WithWaiter(txID int64, waitingFor string) *slog.Logger {
	return GetLogger().With("tx_id", txID, "waiting_for", waitingFor)
}

// WithDeadlock creates a logger for a single deadlock-detector run,
// tagging every line from that run with a shared run id so they can be
// grepped together in the trace output (spec §6 deadlock_report).
func WithDeadlock(runID uint64) *slog.Logger {
	return GetLogger().With("deadlock_run", runID)
}

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("lock_table")
//	log.Info("component initialized")
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError creates a logger with error context.
// Use this when logging errors to include the error in structured format.
//
// Example:
//
//	log := logging.WithError(err)
//	log.Error("operation failed", "operation", "insert")
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
