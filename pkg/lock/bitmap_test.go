package lock

import (
	"testing"

	"lockcore/pkg/primitives"
)

func TestBitmapSetClearTest(t *testing.T) {
	b := NewBitmap(8)
	b.Set(3)
	if !b.Test(3) {
		t.Fatal("expected bit 3 set")
	}
	b.Clear(3)
	if b.Test(3) {
		t.Fatal("expected bit 3 cleared")
	}
}

func TestBitmapGrowsPastInitialSize(t *testing.T) {
	b := NewBitmap(8)
	b.Set(primitives.HeapNo(500))
	if !b.Test(500) {
		t.Fatal("expected bitmap to grow and retain bit 500")
	}
}

func TestBitmapSoleBit(t *testing.T) {
	b := NewBitmap(8)
	if _, ok := b.SoleBit(); ok {
		t.Fatal("empty bitmap must not report a sole bit")
	}
	b.Set(2)
	n, ok := b.SoleBit()
	if !ok || n != 2 {
		t.Fatalf("expected sole bit 2, got %d,%v", n, ok)
	}
	b.Set(5)
	if _, ok := b.SoleBit(); ok {
		t.Fatal("two set bits must not report a sole bit")
	}
}

func TestBitmapCountAndBits(t *testing.T) {
	b := NewBitmap(8)
	b.Set(1)
	b.Set(4)
	b.Set(7)
	if b.Count() != 3 {
		t.Fatalf("expected count 3, got %d", b.Count())
	}
	got := b.Bits()
	want := []primitives.HeapNo{1, 4, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
