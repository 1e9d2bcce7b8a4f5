package wecs

import "testing"

func TestSpawnAttachesPrefabComponents(t *testing.T) {
	w, _ := newTestWorld()
	e, err := w.Spawn("food", nil)
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	if !w.Storage("position").Has(e) {
		t.Fatal("expected position component attached")
	}
	if !w.IsActive(e) {
		t.Fatal("expected entity to be active")
	}
}

func TestDestroyIsDeferredUntilPhaseFlush(t *testing.T) {
	w, _ := newTestWorld()
	e, _ := w.Spawn("food", nil)

	w.Destroy(e)
	if !w.IsActive(e) {
		t.Fatal("entity should still be active before flush")
	}

	w.FlushDestroyed()
	if w.IsActive(e) {
		t.Fatal("entity should be gone after flush")
	}
	if w.Storage("position").Has(e) {
		t.Fatal("component should be removed after flush")
	}
}

func TestSchedulerRunsPhasesInFixedOrderAndRespectsClientOnly(t *testing.T) {
	w, _ := newTestWorld()
	sched := NewScheduler()

	var trace []string
	sched.Register(System{Phase: PhaseUpdate, Order: 1, Name: "b", Fn: func(w *World) { trace = append(trace, "update:b") }})
	sched.Register(System{Phase: PhaseUpdate, Order: 0, Name: "a", Fn: func(w *World) { trace = append(trace, "update:a") }})
	sched.Register(System{Phase: PhaseInput, Order: 0, Name: "in", Fn: func(w *World) { trace = append(trace, "input") }})
	sched.Register(System{Phase: PhasePhysics, Order: 0, ClientOnly: true, Name: "client", Fn: func(w *World) { trace = append(trace, "physics:client") }})
	sched.Register(System{Phase: PhasePhysics, Order: 1, Name: "server", Fn: func(w *World) { trace = append(trace, "physics:server") }})

	sched.RunTick(w, false)
	want := []string{"input", "update:a", "update:b", "physics:client", "physics:server"}
	if !equalStrings(trace, want) {
		t.Fatalf("got %v want %v", trace, want)
	}

	trace = nil
	sched.RunTick(w, true) // resimulation: client-only systems disabled
	want = []string{"input", "update:a", "update:b", "physics:server"}
	if !equalStrings(trace, want) {
		t.Fatalf("got %v want %v", trace, want)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
