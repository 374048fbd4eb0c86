package lock

import (
	"fmt"
	"testing"

	"lockcore/pkg/primitives"
	"lockcore/pkg/txn"
)

// newTestManager wires a Manager and its Registry together with a
// shared wait-mutex, the construction order spec §5 requires.
func newTestManager(t *testing.T, cfg Config) (*Manager, *txn.Registry) {
	t.Helper()
	waitMu := txn.NewWaitMutex()
	reg := txn.NewRegistry(waitMu)
	mgr := NewManager(cfg, reg, waitMu)
	t.Cleanup(mgr.Close)
	return mgr, reg
}

// fakePage is a minimal primitives.PageID for tests: the lock core
// treats page identity as opaque (spec §1), so tests only need
// equality and a stable hash, not a real page.
type fakePage struct {
	table primitives.TableID
	no    primitives.PageNumber
}

func page(table primitives.TableID, no primitives.PageNumber) *fakePage {
	return &fakePage{table: table, no: no}
}

func (p *fakePage) TableID() primitives.TableID { return p.table }
func (p *fakePage) PageNo() primitives.PageNumber { return p.no }

func (p *fakePage) Equals(other primitives.PageID) bool {
	o, ok := other.(*fakePage)
	return ok && o.table == p.table && o.no == p.no
}

func (p *fakePage) String() string {
	return fmt.Sprintf("page(%d/%d)", p.table, p.no)
}

func (p *fakePage) HashCode() primitives.HashCode {
	return primitives.HashCode(uint64(p.table)*31 + uint64(p.no))
}
