package delta

import (
	"testing"

	"github.com/pthm-cable/syncsim/internal/snapshot"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

func newWorld() (*wecs.World, *wecs.Registry) {
	schemas := wecs.NewRegistry()
	schemas.Register(wecs.Schema{Name: "position", Fields: []wecs.FieldSchema{
		{Name: "x", Kind: wecs.KindI32, Synced: true},
		{Name: "y", Kind: wecs.KindI32, Synced: true},
	}})
	prefabs := wecs.NewPrefabRegistry()
	prefabs.Register(wecs.Prefab{
		TypeName: "food",
		Attach:   []wecs.ComponentAttach{{Component: "position", Defaults: []uint32{0, 0}}},
	})
	return wecs.NewWorld(schemas, prefabs), schemas
}

func TestComputeDetectsCreatedAndDeleted(t *testing.T) {
	w, schemas := newWorld()
	a, _ := w.Spawn("food", nil)
	w.Storage("position").Set(a, []uint32{1, 2})
	prev := snapshot.Capture(w, 0, true)

	w.Destroy(a)
	w.FlushDestroyed()
	b, _ := w.Spawn("food", nil)
	w.Storage("position").Set(b, []uint32{3, 4})
	curr := snapshot.Capture(w, 1, true)

	d := Compute(prev, curr, 0xAAAA, 0xBBBB, schemas)

	if len(d.Deleted) != 1 || d.Deleted[0] != a {
		t.Fatalf("expected entity %d deleted, got %v", a, d.Deleted)
	}
	if len(d.Created) != 1 || d.Created[0].ID != b {
		t.Fatalf("expected entity %d created, got %v", b, d.Created)
	}
	if d.Created[0].Components["position"]["x"] != 3 || d.Created[0].Components["position"]["y"] != 4 {
		t.Fatalf("created entity field values wrong: %v", d.Created[0].Components)
	}
	if d.BaseHash != 0xAAAA || d.ResultHash != 0xBBBB {
		t.Fatalf("hashes not carried through: %+v", d)
	}
}

func TestIsEmpty(t *testing.T) {
	w, schemas := newWorld()
	e, _ := w.Spawn("food", nil)
	prev := snapshot.Capture(w, 0, true)
	curr := snapshot.Capture(w, 0, true)
	_ = e

	d := Compute(prev, curr, 1, 1, schemas)
	if !d.IsEmpty() {
		t.Fatalf("expected empty delta for an unchanged snapshot, got %+v", d)
	}
}

func TestCreatedAndDeletedSortedByEID(t *testing.T) {
	w, schemas := newWorld()
	prev := snapshot.Capture(w, 0, true)

	ids := make([]wecs.EntityID, 0, 5)
	for i := 0; i < 5; i++ {
		id, _ := w.Spawn("food", nil)
		ids = append(ids, id)
	}
	curr := snapshot.Capture(w, 1, true)

	d := Compute(prev, curr, 0, 0, schemas)
	for i := 1; i < len(d.Created); i++ {
		if d.Created[i-1].ID >= d.Created[i].ID {
			t.Fatalf("created entities not sorted ascending: %v", d.Created)
		}
	}
}

func TestApplyReproducesCurrentEntityStructure(t *testing.T) {
	w, schemas := newWorld()
	a, _ := w.Spawn("food", nil)
	prev := snapshot.Capture(w, 0, true)

	w.Destroy(a)
	w.FlushDestroyed()
	w.Spawn("food", nil)
	w.Spawn("food", nil)
	curr := snapshot.Capture(w, 1, true)

	d := Compute(prev, curr, 0, 0, schemas)
	applied := Apply(prev.Entities, d)

	if len(applied) != len(curr.Entities) {
		t.Fatalf("applied entity count = %d, want %d", len(applied), len(curr.Entities))
	}
	for i := range applied {
		if applied[i].ID != curr.Entities[i].ID || applied[i].TypeName != curr.Entities[i].TypeName {
			t.Fatalf("applied[%d] = %+v, want %+v", i, applied[i], curr.Entities[i])
		}
	}
}
