// Package demo is a minimal example domain used by cmd/simrun,
// cmd/spectator, and by the sync package's end-to-end tests: two component
// types and two prefabs, enough to exercise every stage of the coordinator
// (input, movement, collision), plus an optional terrain generator
// (terrain.go) for deterministic food placement. The engine itself
// (internal/*, sync/) is domain-agnostic; this package is the smallest
// concrete thing that proves it works.
package demo

import (
	"github.com/pthm-cable/syncsim/internal/codec"
	"github.com/pthm-cable/syncsim/internal/fixedmath"
	"github.com/pthm-cable/syncsim/internal/input"
	"github.com/pthm-cable/syncsim/internal/physics"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// Component and prefab names, used both for schema registration and for
// collision handler lookups.
const (
	ComponentPosition = "Position"
	ComponentVelocity = "Velocity"

	PrefabFood   = "food"
	PrefabPlayer = "player"
)

// Field indices within the Position/Velocity schemas, fixed at
// registration time and reused by the command codec below.
const (
	fieldX = 0
	fieldY = 1
)

// cmdMove is the player prefab's one declared vector command (§9:
// "a per-entity-type command schema {name → {kind: button|vector,
// bindings}}"). playerCommands backs both the schema registered in
// RegisterSchemas and the Prefab.Commands declaration in RegisterPrefabs,
// so the two stay in lockstep.
const cmdMove = "move"

var playerCommands = &wecs.CommandSchema{Vectors: []string{cmdMove}}

// RegisterSchemas declares this domain's component types (spec §4.C).
func RegisterSchemas(r *wecs.Registry) {
	r.Register(wecs.Schema{
		Name: ComponentPosition,
		Fields: []wecs.FieldSchema{
			{Name: "x", Kind: wecs.KindI32, Synced: true},
			{Name: "y", Kind: wecs.KindI32, Synced: true},
		},
	})
	r.Register(wecs.Schema{
		Name: ComponentVelocity,
		Fields: []wecs.FieldSchema{
			{Name: "dx", Kind: wecs.KindI32, Synced: true},
			{Name: "dy", Kind: wecs.KindI32, Synced: true},
		},
	})
	wecs.RegisterCommandComponent(r, PrefabPlayer, playerCommands)
}

// RegisterPrefabs declares this domain's entity types (spec §4.F sync
// rules): "food" is static scenery, "player" additionally carries
// velocity driven by input.
func RegisterPrefabs(r *wecs.PrefabRegistry) {
	r.Register(wecs.Prefab{
		TypeName: PrefabFood,
		Attach: []wecs.ComponentAttach{
			{Component: ComponentPosition, Defaults: []uint32{0, 0}},
		},
	})
	r.Register(wecs.Prefab{
		TypeName: PrefabPlayer,
		Attach: []wecs.ComponentAttach{
			{Component: ComponentPosition, Defaults: []uint32{0, 0}},
			{Component: ComponentVelocity, Defaults: []uint32{0, 0}},
			{Component: wecs.CommandComponentName(PrefabPlayer), Defaults: []uint32{0, 0}},
		},
		Commands: playerCommands,
	})
}

// FrameInputSource is the subset of sync.Game the input system needs,
// kept narrow so this package never imports sync (which would be a
// layering inversion: the engine must not depend on its own demo
// content).
type FrameInputSource interface {
	FrameInputs(frame int32) []input.Input
}

// RegisterSystems wires the movement and collision pipeline: a PhaseInput
// system that decodes each player's "move" command payload into its
// command component (spec §9), a second PhaseInput system that reads the
// command back out via the get(command) API to drive Velocity, a
// PhaseUpdate system that integrates Position by Velocity, and a
// PhasePhysics system that runs the collision dispatch hook over the
// current player bodies (spec §4.D, §4.N). source supplies this frame's
// confirmed/predicted inputs.
func RegisterSystems(s *wecs.Scheduler, source FrameInputSource, playerByClient func(client input.ClientID) (wecs.EntityID, bool)) {
	commandComponent := wecs.CommandComponentName(PrefabPlayer)

	s.Register(wecs.System{
		Phase: wecs.PhaseInput,
		Order: 0,
		Name:  "demo.decodeCommands",
		Fn: func(w *wecs.World) {
			for _, in := range source.FrameInputs(w.Frame) {
				entity, ok := playerByClient(in.Client)
				if !ok {
					continue
				}
				dx, dy, ok := DecodeMove(in.Data)
				if !ok {
					dx, dy = 0, 0
				}
				w.SetVector(commandComponent, cmdMove, entity, dx, dy)
			}
		},
	})

	s.Register(wecs.System{
		Phase: wecs.PhaseInput,
		Order: 1,
		Name:  "demo.applyCommands",
		Fn: func(w *wecs.World) {
			velocities := w.Storage(ComponentVelocity)
			if velocities == nil {
				return
			}
			for _, e := range w.ActiveEntities() {
				if !velocities.Has(e) {
					continue
				}
				dx, dy, ok := w.GetVector(commandComponent, cmdMove, e)
				if !ok {
					continue
				}
				velocities.SetField(e, fieldX, uint32(dx))
				velocities.SetField(e, fieldY, uint32(dy))
			}
		},
	})

	s.Register(wecs.System{
		Phase: wecs.PhaseUpdate,
		Order: 0,
		Name:  "demo.integrate",
		Fn: func(w *wecs.World) {
			positions := w.Storage(ComponentPosition)
			velocities := w.Storage(ComponentVelocity)
			if positions == nil || velocities == nil {
				return
			}
			for _, e := range w.ActiveEntities() {
				if !positions.Has(e) || !velocities.Has(e) {
					continue
				}
				x, _ := positions.GetField(e, fieldX)
				y, _ := positions.GetField(e, fieldY)
				dx, _ := velocities.GetField(e, fieldX)
				dy, _ := velocities.GetField(e, fieldY)
				positions.SetField(e, fieldX, uint32(int32(x)+int32(dx)))
				positions.SetField(e, fieldY, uint32(int32(y)+int32(dy)))
			}
		},
	})

	s.Register(wecs.System{
		Phase: wecs.PhasePhysics,
		Order: 0,
		Name:  "demo.collisions",
		Fn: func(w *wecs.World) {
			physics.Dispatch(w, Bodies(w))
		},
	})
}

// RegisterCollisions binds the physics collision hook (spec §4.D) between
// two players: on overlap, both simply stop (a trivial, deterministic
// handler exercising the dispatch path end-to-end).
func RegisterCollisions(w *wecs.World) {
	w.RegisterCollision(PrefabPlayer, PrefabPlayer, func(w *wecs.World, a, b wecs.EntityID) {
		velocities := w.Storage(ComponentVelocity)
		if velocities == nil {
			return
		}
		for _, e := range []wecs.EntityID{a, b} {
			if velocities.Has(e) {
				velocities.SetField(e, fieldX, 0)
				velocities.SetField(e, fieldY, 0)
			}
		}
	})
}

// Bodies returns the current collision candidates for physics.Dispatch: one
// axis-aligned box per player entity, centered on its position.
func Bodies(w *wecs.World) []physics.Body {
	positions := w.Storage(ComponentPosition)
	if positions == nil {
		return nil
	}
	const halfExtent = 1 << 16 // one fixed-point unit
	var out []physics.Body
	for _, e := range w.ActiveEntities() {
		meta := w.Meta(e)
		if meta == nil || meta.TypeName != PrefabPlayer || !positions.Has(e) {
			continue
		}
		x, _ := positions.GetField(e, fieldX)
		y, _ := positions.GetField(e, fieldY)
		out = append(out, physics.Body{
			Entity:   e,
			TypeName: PrefabPlayer,
			MinX:     int32(x) - halfExtent,
			MaxX:     int32(x) + halfExtent,
			MinY:     int32(y) - halfExtent,
			MaxY:     int32(y) + halfExtent,
		})
	}
	return out
}

// EncodeMove builds a command payload for the "move" vector command using
// the binary codec (spec §4.E, §9).
func EncodeMove(dx, dy fixedmath.Fixed) ([]byte, error) {
	obj := codec.Object{
		{Key: "dx", Value: int64(dx)},
		{Key: "dy", Value: int64(dy)},
	}
	return codec.Encode(nil, obj)
}

// DecodeMove is the inverse of EncodeMove; ok is false for an empty or
// malformed payload, treated as "no movement this frame".
func DecodeMove(data []byte) (dx, dy int32, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	v, _, err := codec.Decode(data)
	if err != nil {
		return 0, 0, false
	}
	obj, isObj := v.(codec.Object)
	if !isObj {
		return 0, 0, false
	}
	for _, kv := range obj {
		switch kv.Key {
		case "dx":
			dx = int32(kv.Value.(int64))
		case "dy":
			dy = int32(kv.Value.(int64))
		}
	}
	return dx, dy, true
}
