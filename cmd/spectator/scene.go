package main

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/syncsim/internal/demo"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// spectatorNode is the ark-side mirror of one drawable wecs entity: just
// enough to draw a circle, never read back into the deterministic world.
type spectatorNode struct {
	X, Y   int32
	Player bool
}

// sceneGraph owns a private ark world used purely as a scene graph for
// rendering, mirroring the teacher's own separation between its ark
// simulation world and its raylib draw pass (game/render.go never mutates
// simulation state, it only reads through Map/Filter queries). Unlike the
// teacher, this mirror is rebuilt wholesale every frame from the
// deterministic wecs.World rather than kept incrementally in sync, since
// spectator never needs to resimulate or roll anything back.
type sceneGraph struct {
	world  *ecs.World
	nodes  *ecs.Map1[spectatorNode]
	filter *ecs.Filter1[spectatorNode]
	live   []ecs.Entity
}

func newSceneGraph() *sceneGraph {
	world := ecs.NewWorld()
	return &sceneGraph{
		world:  world,
		nodes:  ecs.NewMap1[spectatorNode](world),
		filter: ecs.NewFilter1[spectatorNode](world),
	}
}

// sync discards last frame's mirror entities and spawns a fresh one per
// drawable wecs entity. Positions here are the same raw grid units wecs
// stores them in (spec-consistent with demo's movement test), not a
// fixed-point scaling the ark side would need to undo.
func (s *sceneGraph) sync(w *wecs.World) {
	for _, e := range s.live {
		s.nodes.Remove(e)
	}
	s.live = s.live[:0]

	positions := w.Storage(demo.ComponentPosition)
	if positions == nil {
		return
	}
	for _, e := range positions.Entities() {
		x, _ := positions.GetField(e, 0)
		y, _ := positions.GetField(e, 1)
		meta := w.Meta(e)
		node := spectatorNode{
			X:      int32(x),
			Y:      int32(y),
			Player: meta != nil && meta.TypeName == demo.PrefabPlayer,
		}
		s.live = append(s.live, s.nodes.NewEntity(&node))
	}
}

func (s *sceneGraph) draw() {
	query := s.filter.Query()
	for query.Next() {
		node := query.Get()
		col := rl.Green
		radius := float32(5)
		if node.Player {
			col = rl.Blue
			radius = 8
		}
		rl.DrawCircle(node.X, node.Y, radius, col)
	}
}

func (s *sceneGraph) close() {
	for _, e := range s.live {
		s.nodes.Remove(e)
	}
	s.live = nil
}
