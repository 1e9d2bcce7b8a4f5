package physics

import (
	"testing"

	"github.com/pthm-cable/syncsim/internal/wecs"
)

// TestDispatchVisitsPairsInCanonicalOrder asserts the §5 ordering
// guarantee: candidate pairs are visited ascending by the sorted pair of
// entity ids, regardless of the order bodies were passed in, and a
// handler's arguments are bound to the order the pair was registered in
// (§4.D), not the order Dispatch happened to discover the overlap.
func TestDispatchVisitsPairsInCanonicalOrder(t *testing.T) {
	w := wecs.NewWorld(wecs.NewRegistry(), wecs.NewPrefabRegistry())

	var calls [][2]wecs.EntityID
	w.RegisterCollision("alpha", "beta", func(w *wecs.World, a, b wecs.EntityID) {
		calls = append(calls, [2]wecs.EntityID{a, b})
	})

	e1, _ := w.Alloc.Allocate() // index 0
	e2, _ := w.Alloc.Allocate() // index 1
	e3, _ := w.Alloc.Allocate() // index 2

	// Three mutually overlapping bodies, passed out of id order, with the
	// registered handler keyed (alpha, beta): the two alpha/beta pairs must
	// be dispatched in ascending-id order with the alpha body first.
	bodies := []Body{
		{Entity: e3, TypeName: "beta", MinX: 0, MaxX: 10, MinY: 0, MaxY: 10},
		{Entity: e1, TypeName: "alpha", MinX: 0, MaxX: 10, MinY: 0, MaxY: 10},
		{Entity: e2, TypeName: "beta", MinX: 0, MaxX: 10, MinY: 0, MaxY: 10},
	}

	Dispatch(w, bodies)

	// Pair (e1,e2) and (e1,e3) are (alpha,beta); pair (e2,e3) is
	// (beta,beta), for which no handler is registered.
	if len(calls) != 2 {
		t.Fatalf("expected 2 handler invocations (alpha,beta) pairs only, got %d: %v", len(calls), calls)
	}
	if calls[0] != ([2]wecs.EntityID{e1, e2}) {
		t.Fatalf("first call = %v, want (e1,e2) — canonical ascending-id order", calls[0])
	}
	if calls[1] != ([2]wecs.EntityID{e1, e3}) {
		t.Fatalf("second call = %v, want (e1,e3) — canonical ascending-id order", calls[1])
	}
}

// TestDispatchSkipsNonOverlappingAndUnregisteredPairs asserts that
// Dispatch is a no-op for pairs with no handler or no overlap.
func TestDispatchSkipsNonOverlappingAndUnregisteredPairs(t *testing.T) {
	w := wecs.NewWorld(wecs.NewRegistry(), wecs.NewPrefabRegistry())
	called := false
	w.RegisterCollision("alpha", "alpha", func(w *wecs.World, a, b wecs.EntityID) {
		called = true
	})

	e1, _ := w.Alloc.Allocate()
	e2, _ := w.Alloc.Allocate()

	bodies := []Body{
		{Entity: e1, TypeName: "alpha", MinX: 0, MaxX: 1, MinY: 0, MaxY: 1},
		{Entity: e2, TypeName: "alpha", MinX: 100, MaxX: 101, MinY: 100, MaxY: 101},
	}
	Dispatch(w, bodies)
	if called {
		t.Fatal("handler should not fire for non-overlapping bodies")
	}
}
