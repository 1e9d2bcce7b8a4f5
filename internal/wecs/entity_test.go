package wecs

import "testing"

func TestAllocateUsesSmallestFreeIndex(t *testing.T) {
	a := NewAllocator()
	e0, _ := a.Allocate()
	e1, _ := a.Allocate()
	e2, _ := a.Allocate()

	if e0.Index() != 0 || e1.Index() != 1 || e2.Index() != 2 {
		t.Fatalf("expected sequential indices, got %d,%d,%d", e0.Index(), e1.Index(), e2.Index())
	}

	a.Free(e1)
	e3, _ := a.Allocate()
	if e3.Index() != 1 {
		t.Fatalf("expected recycled smallest free index 1, got %d", e3.Index())
	}
	if e3.Generation() != e1.Generation()+1 {
		t.Fatalf("expected generation bump, got %d want %d", e3.Generation(), e1.Generation()+1)
	}
}

func TestFreeListStaysSortedUnderArbitraryInterleaving(t *testing.T) {
	a := NewAllocator()
	var ids []EntityID
	for i := 0; i < 10; i++ {
		id, _ := a.Allocate()
		ids = append(ids, id)
	}
	// Free out of order.
	a.Free(ids[7])
	a.Free(ids[2])
	a.Free(ids[5])
	a.Free(ids[0])

	for i := 1; i < len(a.freeList); i++ {
		if a.freeList[i-1] >= a.freeList[i] {
			t.Fatalf("free list not strictly ascending: %v", a.freeList)
		}
	}

	next, _ := a.Allocate()
	if next.Index() != 0 {
		t.Fatalf("expected allocate to return minimum free index 0, got %d", next.Index())
	}
}

func TestIsValidAfterFree(t *testing.T) {
	a := NewAllocator()
	id, _ := a.Allocate()
	if !a.IsValid(id) {
		t.Fatal("freshly allocated id should be valid")
	}
	a.Free(id)
	if a.IsValid(id) {
		t.Fatal("freed id should be invalid")
	}
}

func TestRestoreContinuesDeterministically(t *testing.T) {
	a := NewAllocator()
	a.Allocate()
	a.Allocate()
	third, _ := a.Allocate()
	a.Free(third)

	state := a.State()

	b := NewAllocator()
	b.Restore(state)

	wantNext, _ := a.Allocate()
	gotNext, _ := b.Allocate()
	if wantNext != gotNext {
		t.Fatalf("post-restore allocation diverged: %v != %v", gotNext, wantNext)
	}
}
