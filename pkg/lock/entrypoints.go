package lock

import (
	"context"

	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// outcomeFor translates a C4 Result into the §6 Outcome taxonomy. A
// non-nil err is a corruption-category hard error (spec §7) and takes
// precedence — callers should check err first and ignore the Outcome
// value when it is non-nil.
func outcomeFor(ctx context.Context, res Result) Outcome {
	switch res {
	case GrantedExisting:
		return SuccessLockedRec
	case GrantedNew:
		return Success
	case ResultDeadlock:
		return OutcomeDeadlock
	case ResultTimeout:
		if ctx != nil && ctx.Err() != nil {
			return OutcomeInterrupted
		}
		return OutcomeTimeout
	default:
		return Success
	}
}

// InsertCheck is the C4/C7 combined §4.10 / §6 insert_check entry
// point. The request is X | GAP | INSERT_INTENTION on the successor
// slot. The insert waits when another transaction holds or waits for a
// gap-only or next-key lock on the successor in an incompatible mode;
// record-only (REC_NOT_GAP) locks and other insert-intention locks
// never block it. Spatial indexes bypass gap
// protection and should use predicate locks (FlagPredicate) instead
// of calling InsertCheck.
func (m *Manager) InsertCheck(ctx context.Context, trx *txn.Transaction, successor primitives.RecordRef, tableID primitives.TableID) (Outcome, error) {
	tm := TypeMode{Mode: ModeX, Flags: FlagGap | FlagInsertIntention}
	res, err := m.RequestRecordLock(ctx, trx, successor, tableID, tm)
	if err != nil {
		return Success, err
	}
	return outcomeFor(ctx, res), nil
}

// ClustRecModify is the §6 clust_rec_modify entry point: materialize
// any implicit lock the row's last modifier holds (C7), then request
// an X lock in the given gap mode.
func (m *Manager) ClustRecModify(ctx context.Context, trx *txn.Transaction, ref primitives.RecordRef, tableID primitives.TableID, gap GapMode, modifierID txn.ID) (Outcome, error) {
	m.ConvertImplicitToExplicit(modifierID, ref, tableID)
	tm := TypeMode{Mode: ModeX, Flags: gap.flags()}
	res, err := m.RequestRecordLock(ctx, trx, ref, tableID, tm)
	if err != nil {
		return Success, err
	}
	return outcomeFor(ctx, res), nil
}

// SecRecModify is the §6 sec_rec_modify entry point. modifierID must
// already be resolved via a ClusteredVersionWalker version walk when
// the row's own metadata doesn't name the modifier directly (spec
// §4.7 secondary-index case); the locking itself is identical to the
// clustered-index path once that id is known.
func (m *Manager) SecRecModify(ctx context.Context, trx *txn.Transaction, ref primitives.RecordRef, tableID primitives.TableID, gap GapMode, modifierID txn.ID) (Outcome, error) {
	return m.ClustRecModify(ctx, trx, ref, tableID, gap, modifierID)
}

// ClustRecRead is the §6 clust_rec_read entry point: materialize any
// implicit lock before requesting a shared read lock, so a reader
// never silently skips a row another transaction has implicitly
// X-locked.
func (m *Manager) ClustRecRead(ctx context.Context, trx *txn.Transaction, ref primitives.RecordRef, tableID primitives.TableID, gap GapMode, modifierID txn.ID) (Outcome, error) {
	m.ConvertImplicitToExplicit(modifierID, ref, tableID)
	tm := TypeMode{Mode: ModeS, Flags: gap.flags()}
	res, err := m.RequestRecordLock(ctx, trx, ref, tableID, tm)
	if err != nil {
		return Success, err
	}
	return outcomeFor(ctx, res), nil
}

// SecRecRead is the §6 sec_rec_read entry point; see SecRecModify for
// why modifierID arrives pre-resolved.
func (m *Manager) SecRecRead(ctx context.Context, trx *txn.Transaction, ref primitives.RecordRef, tableID primitives.TableID, gap GapMode, modifierID txn.ID) (Outcome, error) {
	return m.ClustRecRead(ctx, trx, ref, tableID, gap, modifierID)
}
