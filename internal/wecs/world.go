package wecs

import (
	"fmt"

	"github.com/pthm-cable/syncsim/internal/intern"
	"github.com/pthm-cable/syncsim/internal/prng"
)

// EntityMeta is the per-entity metadata carried in snapshots: its prefab
// type and, for player-controlled entities, the owning client (spec §3:
// perEntityMeta[i] = (eid, typeId, clientIdOpt)).
type EntityMeta struct {
	TypeName string
	ClientID *uint32 // interned client id, nil if not player-owned
}

// CollisionHandler is invoked for an ordered pair of colliding entities
// whose component types are registered together (§4.D).
type CollisionHandler func(w *World, a, b EntityID)

// collisionKey is the lookup key for a pair of component type names. It is
// never serialized: handlers are re-bound by name after a restore, never
// by pointer identity (§9).
type collisionKey struct{ a, b string }

// World owns every piece of state a snapshot must capture: the entity
// allocator, component storages, the string registry, the PRNG, and the
// current frame, plus the collision handler map. It holds no input
// registry; per-client inputs are kept in the sync coordinator's input
// buffer.
type World struct {
	Alloc    *Allocator
	Schemas  *Registry
	Prefabs  *PrefabRegistry
	Strings  *intern.Registry
	RNG      *prng.Rng

	Frame int32

	storages map[string]*Storage
	meta     map[EntityID]*EntityMeta
	active   map[EntityID]bool

	collisionHandlers map[collisionKey]CollisionHandler

	deferredDestroy []EntityID
}

// NewWorld creates an empty world wired to the given schema and prefab
// registries (registered once at process startup, per §4.C).
func NewWorld(schemas *Registry, prefabs *PrefabRegistry) *World {
	w := &World{
		Alloc:             NewAllocator(),
		Schemas:           schemas,
		Prefabs:           prefabs,
		Strings:           intern.NewRegistry(),
		RNG:               prng.New(1, 2),
		storages:          make(map[string]*Storage),
		meta:              make(map[EntityID]*EntityMeta),
		active:            make(map[EntityID]bool),
		collisionHandlers: make(map[collisionKey]CollisionHandler),
	}
	for _, name := range schemas.SortedNames() {
		w.storages[name] = NewStorage(schemas.Get(name))
	}
	return w
}

// Storage returns the component storage for a registered schema name.
func (w *World) Storage(component string) *Storage {
	return w.storages[component]
}

// Meta returns the prefab/client metadata for an active entity, or nil.
func (w *World) Meta(e EntityID) *EntityMeta {
	return w.meta[e]
}

// IsActive reports whether e is a live, spawned entity.
func (w *World) IsActive(e EntityID) bool {
	return w.active[e]
}

// ActiveEntities returns every active entity in ascending id order (spec
// §3: "the sorted list of active entities").
func (w *World) ActiveEntities() []EntityID {
	out := make([]EntityID, 0, len(w.active))
	for e := range w.active {
		out = append(out, e)
	}
	sortEntities(out)
	return out
}

func sortEntities(e []EntityID) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j-1] > e[j]; j-- {
			e[j-1], e[j] = e[j], e[j-1]
		}
	}
}

// Spawn creates an entity of the given prefab type, optionally owned by
// clientID, attaching every component the prefab declares with its
// default values.
func (w *World) Spawn(typeName string, clientID *uint32) (EntityID, error) {
	prefab := w.Prefabs.Get(typeName)
	if prefab == nil {
		return Nil, fmt.Errorf("wecs: unknown prefab type %q", typeName)
	}
	id, err := w.Alloc.Allocate()
	if err != nil {
		return Nil, err
	}
	for _, attach := range prefab.Attach {
		storage := w.storages[attach.Component]
		if storage == nil {
			return Nil, fmt.Errorf("wecs: prefab %q references unregistered component %q", typeName, attach.Component)
		}
		storage.Add(id, attach.Defaults)
	}
	w.meta[id] = &EntityMeta{TypeName: typeName, ClientID: clientID}
	w.active[id] = true
	return id, nil
}

// Destroy defers destruction of e to the end of the current phase, so
// in-flight iteration over e's components is never invalidated (§3).
func (w *World) Destroy(e EntityID) {
	w.deferredDestroy = append(w.deferredDestroy, e)
}

// FlushDestroyed actually removes every entity queued by Destroy since the
// last flush. Called by the scheduler at phase boundaries.
func (w *World) FlushDestroyed() {
	if len(w.deferredDestroy) == 0 {
		return
	}
	for _, e := range w.deferredDestroy {
		if !w.active[e] {
			continue
		}
		for _, storage := range w.storages {
			storage.Remove(e)
		}
		delete(w.meta, e)
		delete(w.active, e)
		w.Alloc.Free(e)
	}
	w.deferredDestroy = w.deferredDestroy[:0]
}

// RegisterCollision binds a handler to an ordered pair of component type
// names (§4.D). Re-registering the same pair overwrites the prior
// handler.
func (w *World) RegisterCollision(typeA, typeB string, handler CollisionHandler) {
	w.collisionHandlers[collisionKey{typeA, typeB}] = handler
}

// CollisionHandlerFor looks up the handler registered for (typeA, typeB),
// and whether one exists.
func (w *World) CollisionHandlerFor(typeA, typeB string) (CollisionHandler, bool) {
	h, ok := w.collisionHandlers[collisionKey{typeA, typeB}]
	return h, ok
}

// RunOnRestore invokes every active entity's prefab on_restore hook, if
// declared, in ascending entity id order (§4.F: "finally invoke
// on_snapshot(entities)").
func (w *World) RunOnRestore() {
	for _, e := range w.ActiveEntities() {
		meta := w.meta[e]
		if meta == nil {
			continue
		}
		prefab := w.Prefabs.Get(meta.TypeName)
		if prefab == nil || prefab.OnRestore == nil {
			continue
		}
		prefab.OnRestore(w, e)
	}
}

// Reset clears the allocator, string registry, frame, entities and
// component storages in preparation for a snapshot restore or a fresh room
// creation. It leaves the PRNG state as it is, and does not touch
// registered schemas/prefabs/collision handlers (those are process-wide,
// §9).
func (w *World) Reset() {
	w.Alloc = NewAllocator()
	w.Strings = intern.NewRegistry()
	w.Frame = 0
	w.meta = make(map[EntityID]*EntityMeta)
	w.active = make(map[EntityID]bool)
	w.deferredDestroy = nil
	for _, name := range w.Schemas.SortedNames() {
		w.storages[name] = NewStorage(w.Schemas.Get(name))
	}
}

// RestoreEntity recreates an entity with a known id (used by snapshot
// restore, which must reproduce the exact allocator state rather than
// calling Spawn's allocator path). The id's index/generation are assumed
// already consistent with the restored allocator state.
func (w *World) RestoreEntity(id EntityID, typeName string, clientID *uint32) error {
	prefab := w.Prefabs.Get(typeName)
	if prefab == nil {
		return fmt.Errorf("wecs: unknown prefab type %q on restore", typeName)
	}
	for _, attach := range prefab.Attach {
		storage := w.storages[attach.Component]
		if storage == nil {
			continue
		}
		storage.Add(id, attach.Defaults)
	}
	w.meta[id] = &EntityMeta{TypeName: typeName, ClientID: clientID}
	w.active[id] = true
	return nil
}
