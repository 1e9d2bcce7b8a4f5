package intern

import "testing"

func TestInternDeterministicAllocation(t *testing.T) {
	r := NewRegistry()
	a := r.Intern("client", "alice")
	b := r.Intern("client", "bob")
	aAgain := r.Intern("client", "alice")

	if a != 0 || b != 1 {
		t.Fatalf("expected sequential ids 0,1, got %d,%d", a, b)
	}
	if aAgain != a {
		t.Fatalf("re-interning alice returned a new id: %d != %d", aAgain, a)
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	r := NewRegistry()
	r.Intern("client", "x")
	id := r.Intern("component", "x")
	if id != 0 {
		t.Fatalf("expected namespace isolation, got id %d", id)
	}
}

func TestRestoreReproducesFutureAllocations(t *testing.T) {
	r := NewRegistry()
	r.Intern("client", "alice")
	r.Intern("client", "bob")
	state := r.State()

	r2 := NewRegistry()
	r2.Restore(state)

	nextID := r2.Intern("client", "carol")
	if nextID != 2 {
		t.Fatalf("expected next id 2 after restore, got %d", nextID)
	}
	if got, _ := r2.Lookup("client", "alice"); got != 0 {
		t.Fatalf("expected alice=0 after restore, got %d", got)
	}
}
