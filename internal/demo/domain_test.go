package demo

import (
	"testing"

	"github.com/pthm-cable/syncsim/internal/input"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

func newDomainWorld(t *testing.T) (*wecs.World, *wecs.Scheduler) {
	t.Helper()
	schemas := wecs.NewRegistry()
	RegisterSchemas(schemas)
	prefabs := wecs.NewPrefabRegistry()
	RegisterPrefabs(prefabs)
	w := wecs.NewWorld(schemas, prefabs)
	sched := wecs.NewScheduler()
	return w, sched
}

// frameInputSource hands back a fixed set of inputs regardless of the
// requested frame, enough to drive one tick in these tests.
type frameInputSource []input.Input

func (s frameInputSource) FrameInputs(frame int32) []input.Input { return s }

// TestCommandComponentRoundTrips asserts the §9 command-backed component:
// writing a "move" vector into it and reading it back via GetVector
// returns the same (x, y) that was set.
func TestCommandComponentRoundTrips(t *testing.T) {
	w, _ := newDomainWorld(t)
	e, err := w.Spawn(PrefabPlayer, nil)
	if err != nil {
		t.Fatalf("spawn player: %v", err)
	}
	component := wecs.CommandComponentName(PrefabPlayer)
	if !w.SetVector(component, cmdMove, e, 3, -4) {
		t.Fatal("SetVector failed")
	}
	x, y, ok := w.GetVector(component, cmdMove, e)
	if !ok || x != 3 || y != -4 {
		t.Fatalf("GetVector = (%d,%d,%v), want (3,-4,true)", x, y, ok)
	}
}

// TestPhysicsPhaseDispatchesRegisteredCollisions exercises module N
// end-to-end through the scheduler: two players driven to the same
// position by "move" commands should have their velocity zeroed by the
// handler RegisterCollisions installs, once RegisterSystems' PhasePhysics
// system runs the collision dispatch (spec §4.D, §4.N).
func TestPhysicsPhaseDispatchesRegisteredCollisions(t *testing.T) {
	w, sched := newDomainWorld(t)
	RegisterCollisions(w)

	p1, err := w.Spawn(PrefabPlayer, nil)
	if err != nil {
		t.Fatalf("spawn p1: %v", err)
	}
	p2, err := w.Spawn(PrefabPlayer, nil)
	if err != nil {
		t.Fatalf("spawn p2: %v", err)
	}
	players := map[input.ClientID]wecs.EntityID{1: p1, 2: p2}

	positions := w.Storage(ComponentPosition)
	positions.Set(p1, []uint32{100, 100})
	positions.Set(p2, []uint32{100, 100})

	move, err := EncodeMove(5, 0)
	if err != nil {
		t.Fatalf("encode move: %v", err)
	}
	inputs := frameInputSource{
		{Client: 1, Data: move},
		{Client: 2, Data: move},
	}
	RegisterSystems(sched, inputs, func(c input.ClientID) (wecs.EntityID, bool) {
		e, ok := players[c]
		return e, ok
	})

	sched.RunTick(w, false)

	velocities := w.Storage(ComponentVelocity)
	vx1, _ := velocities.GetField(p1, fieldX)
	vx2, _ := velocities.GetField(p2, fieldX)
	if int32(vx1) != 0 || int32(vx2) != 0 {
		t.Fatalf("expected collision handler to zero velocity, got p1.dx=%d p2.dx=%d", int32(vx1), int32(vx2))
	}
}

// TestPhysicsPhaseSkipsNonOverlappingPlayers asserts Dispatch leaves
// velocity untouched for bodies that never overlap.
func TestPhysicsPhaseSkipsNonOverlappingPlayers(t *testing.T) {
	w, sched := newDomainWorld(t)
	RegisterCollisions(w)

	p1, _ := w.Spawn(PrefabPlayer, nil)
	p2, _ := w.Spawn(PrefabPlayer, nil)
	players := map[input.ClientID]wecs.EntityID{1: p1, 2: p2}

	move, err := EncodeMove(5, 0)
	if err != nil {
		t.Fatalf("encode move: %v", err)
	}
	inputs := frameInputSource{
		{Client: 1, Data: move},
		{Client: 2, Data: move},
	}
	RegisterSystems(sched, inputs, func(c input.ClientID) (wecs.EntityID, bool) {
		e, ok := players[c]
		return e, ok
	})

	positions := w.Storage(ComponentPosition)
	positions.Set(p1, []uint32{0, 0})
	positions.Set(p2, []uint32{1 << 20, 1 << 20})

	sched.RunTick(w, false)

	velocities := w.Storage(ComponentVelocity)
	vx1, _ := velocities.GetField(p1, fieldX)
	vx2, _ := velocities.GetField(p2, fieldX)
	if int32(vx1) != 5 || int32(vx2) != 5 {
		t.Fatalf("expected velocities unchanged for non-overlapping players, got p1.dx=%d p2.dx=%d", int32(vx1), int32(vx2))
	}
}
