package demo

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/syncsim/internal/fixedmath"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// ComponentResource marks a food entity with a deterministic yield,
// derived once at room-create time from terrain noise rather than from
// the room PRNG (spec §4.A: PRNG only advances inside update/physics
// phases, so terrain generation — which runs during onRoomCreate, before
// any tick — must draw from its own seeded source).
const ComponentResource = "Resource"

// TerrainGrid samples a 2D OpenSimplex field to place food deterministically
// across a room. Every peer that runs GenerateTerrain with the same seed
// and grid produces bit-identical entity positions and yields, because
// opensimplex.New(seed) is a pure function of its seed and Eval2 is a pure
// function of its input coordinates: no wall clock, no hardware RNG.
type TerrainGrid struct {
	noise      opensimplex.Noise
	cellSize   int32 // world units between grid samples (same raw-int convention as Position, spec §8 scenario 1)
	threshold  float64
	yieldScale float64
}

// NewTerrainGrid builds a generator from seed, which the caller supplies
// directly; the same seed reproduces the same terrain, and no room PRNG
// draws are consumed.
func NewTerrainGrid(seed int64, cellSize int32, threshold float64) *TerrainGrid {
	return &TerrainGrid{
		noise:      opensimplex.New(seed),
		cellSize:   cellSize,
		threshold:  threshold,
		yieldScale: 100,
	}
}

// GenerateTerrain samples a gridW x gridH grid of cells and spawns a
// "food" prefab wherever the noise value exceeds the threshold. Returned
// entity ids are in spawn order (ascending grid index), not necessarily
// ascending eid if the allocator already holds freed slots; callers that
// need canonical order should re-read wecs.World.ActiveEntities.
func (t *TerrainGrid) GenerateTerrain(w *wecs.World, gridW, gridH int) ([]wecs.EntityID, error) {
	out := make([]wecs.EntityID, 0, gridW*gridH/4)
	for gy := 0; gy < gridH; gy++ {
		for gx := 0; gx < gridW; gx++ {
			n := t.noise.Eval2(float64(gx)*0.15, float64(gy)*0.15)
			if n <= t.threshold {
				continue
			}
			e, err := w.Spawn(PrefabFood, nil)
			if err != nil {
				return out, err
			}
			x := int32(gx) * t.cellSize
			y := int32(gy) * t.cellSize
			w.Storage(ComponentPosition).Set(e, []uint32{uint32(x), uint32(y)})

			yield := fixedmath.FromFloat64((n - t.threshold) * t.yieldScale)
			if rs := w.Storage(ComponentResource); rs != nil {
				rs.Add(e, []uint32{uint32(int32(yield))})
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// RegisterResourceSchema adds the Resource component (yield produced by
// GenerateTerrain) to r. Kept separate from RegisterSchemas so callers
// that don't use terrain generation don't pay for an unused column.
func RegisterResourceSchema(r *wecs.Registry) {
	r.Register(wecs.Schema{
		Name: ComponentResource,
		Fields: []wecs.FieldSchema{
			{Name: "yield", Kind: wecs.KindI32, Synced: true},
		},
	})
}
