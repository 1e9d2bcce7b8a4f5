package rollback

import "testing"

func TestSaveAndGet(t *testing.T) {
	b := New[string](4)
	b.Save(1, "f1")
	b.Save(2, "f2")

	got, err := b.Get(1)
	if err != nil || got != "f1" {
		t.Fatalf("Get(1) = %q, %v", got, err)
	}
}

func TestEvictsOldestBeyondCapacity(t *testing.T) {
	b := New[int](3)
	b.Save(1, 100)
	b.Save(2, 200)
	b.Save(3, 300)
	b.Save(4, 400)

	if _, err := b.Get(1); err != ErrNotFound {
		t.Fatalf("expected frame 1 to be evicted, got err=%v", err)
	}
	if got, err := b.Get(4); err != nil || got != 400 {
		t.Fatalf("Get(4) = %v, %v", got, err)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
}

func TestClearBeforePrunesOlderEntries(t *testing.T) {
	b := New[int](10)
	for f := int32(1); f <= 5; f++ {
		b.Save(f, int(f*10))
	}
	b.ClearBefore(3)

	if _, err := b.Get(1); err != ErrNotFound {
		t.Fatal("expected frame 1 pruned")
	}
	if _, err := b.Get(2); err != ErrNotFound {
		t.Fatal("expected frame 2 pruned")
	}
	if got, err := b.Get(3); err != nil || got != 30 {
		t.Fatalf("frame 3 should survive ClearBefore(3): got %v, %v", got, err)
	}
}

func TestOldestFrame(t *testing.T) {
	b := New[int](3)
	if _, ok := b.OldestFrame(); ok {
		t.Fatal("expected no oldest frame on empty buffer")
	}
	b.Save(5, 1)
	b.Save(6, 1)
	f, ok := b.OldestFrame()
	if !ok || f != 5 {
		t.Fatalf("OldestFrame() = %d, %v", f, ok)
	}
}

func TestResavingExistingFrameDoesNotConsumeEviction(t *testing.T) {
	b := New[int](2)
	b.Save(1, 1)
	b.Save(2, 2)
	b.Save(1, 99) // overwrite, should not evict frame 2
	if got, err := b.Get(2); err != nil || got != 2 {
		t.Fatalf("frame 2 should survive overwrite of frame 1: %v, %v", got, err)
	}
	if got, _ := b.Get(1); got != 99 {
		t.Fatalf("frame 1 should be overwritten: %v", got)
	}
}
