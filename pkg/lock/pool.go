package lock

import "sync"

// smallBitmapWords covers 256 heap slots, enough for the overwhelming
// majority of pages without falling back to Bitmap.grow (spec §9
// Design Notes: "a per-transaction pool of fixed-size slots for the
// common case"; this package shares one pool across transactions
// rather than keeping one per transaction, since the lock-system
// mutex already serializes allocation).
const smallBitmapWords = 4

var recordLockPool = sync.Pool{
	New: func() any {
		return &Lock{Bits: Bitmap{words: make([]uint64, smallBitmapWords)}}
	},
}

// acquireRecordLock takes a zeroed *Lock from the pool, reusing the
// pooled lock's bitmap backing array.
func acquireRecordLock() *Lock {
	l := recordLockPool.Get().(*Lock)
	l.reset()
	return l
}

// releaseRecordLock returns a lock to the pool once it has been
// unlinked from every queue. Locks whose bitmap has grown past four
// times the small size (more than 16 words, 1024 slots) are left for
// the garbage collector instead of bloating the pool.
func releaseRecordLock(l *Lock) {
	if l == nil || l.Kind != KindRecord {
		return
	}
	if cap(l.Bits.words) > smallBitmapWords*4 {
		return
	}
	recordLockPool.Put(l)
}

// reset clears a pooled lock's fields ahead of reuse, keeping the
// bitmap's backing array.
func (l *Lock) reset() {
	l.id = 0
	l.Owner = nil
	l.TypeMode = TypeMode{}
	l.Kind = KindRecord
	l.Page = nil
	l.TableID = 0
	l.Bits.clear()
	l.Table = nil
	l.timedOut = false
	l.interrupted = false
}
