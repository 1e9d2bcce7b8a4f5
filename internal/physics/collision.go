// Package physics implements the collision dispatch hook the scheduler
// runs during the physics phase (spec §4.D): after integration, candidate
// body pairs are visited in a canonical order and dispatched to handlers
// registered by component-type pair, never by pointer identity.
package physics

import (
	"sort"

	"github.com/pthm-cable/syncsim/internal/wecs"
)

// Body is the minimal shape needed to find candidate colliding pairs: an
// owning entity, its component type name (used both for canonical
// ordering and for the handler lookup), and an axis-aligned bounding box
// in fixed-point world units.
type Body struct {
	Entity   wecs.EntityID
	TypeName string
	MinX, MinY, MaxX, MaxY int32
}

func overlaps(a, b Body) bool {
	return a.MinX <= b.MaxX && a.MaxX >= b.MinX && a.MinY <= b.MaxY && a.MaxY >= b.MinY
}

// Dispatch finds every overlapping pair among bodies, visits them in
// canonical order (ascending by the sorted pair of entity ids — a stable
// surrogate for "sorted pair of body labels", since labels are themselves
// derived from entity ids per §4.D), and invokes the handler registered
// for the pair's component types, if any.
func Dispatch(w *wecs.World, bodies []Body) {
	ordered := make([]Body, len(bodies))
	copy(ordered, bodies)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Entity < ordered[j].Entity })

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			if !overlaps(a, b) {
				continue
			}
			if handler, ok := w.CollisionHandlerFor(a.TypeName, b.TypeName); ok {
				handler(w, a.Entity, b.Entity)
				continue
			}
			if handler, ok := w.CollisionHandlerFor(b.TypeName, a.TypeName); ok {
				handler(w, b.Entity, a.Entity)
			}
		}
	}
}
