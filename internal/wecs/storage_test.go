package wecs

import "testing"

func schemaXY() *Schema {
	return &Schema{Name: "pos", Fields: []FieldSchema{
		{Name: "x", Kind: KindI32, Synced: true},
		{Name: "y", Kind: KindI32, Synced: true},
	}}
}

func TestStorageAddGetRemove(t *testing.T) {
	s := NewStorage(schemaXY())
	e1 := EntityID(1)
	e2 := EntityID(2)

	if !s.Add(e1, []uint32{10, 20}) {
		t.Fatal("Add e1 failed")
	}
	if !s.Add(e2, []uint32{30, 40}) {
		t.Fatal("Add e2 failed")
	}
	if s.Add(e1, []uint32{1, 1}) {
		t.Fatal("Add on existing entity should fail")
	}

	vals, ok := s.Get(e1)
	if !ok || vals[0] != 10 || vals[1] != 20 {
		t.Fatalf("Get e1 wrong: %v", vals)
	}

	s.Remove(e1)
	if s.Has(e1) {
		t.Fatal("e1 should be gone after Remove")
	}
	vals, ok = s.Get(e2)
	if !ok || vals[0] != 30 || vals[1] != 40 {
		t.Fatalf("e2 values corrupted by swap-removal: %v", vals)
	}
}

func TestStorageEntitiesAscendingOrder(t *testing.T) {
	s := NewStorage(schemaXY())
	ids := []EntityID{5, 1, 9, 3}
	for _, id := range ids {
		s.Add(id, []uint32{uint32(id), 0})
	}
	got := s.Entities()
	want := []EntityID{1, 3, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Entities() not ascending: %v", got)
		}
	}
}

func TestSignExtend(t *testing.T) {
	if v := SignExtend32(KindI8, 0xFFFFFFFF); v != 0xFF {
		t.Fatalf("i8 masking wrong: %x", v)
	}
	if v := SignExtend32(KindU8, 0xFF); v != 0xFF {
		t.Fatalf("u8 masking wrong: %x", v)
	}
}
