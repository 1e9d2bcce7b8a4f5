package demo

import (
	"testing"

	"github.com/pthm-cable/syncsim/internal/wecs"
)

func newTerrainWorld(t *testing.T) *wecs.World {
	t.Helper()
	schemas := wecs.NewRegistry()
	RegisterSchemas(schemas)
	RegisterResourceSchema(schemas)
	prefabs := wecs.NewPrefabRegistry()
	RegisterPrefabs(prefabs)
	return wecs.NewWorld(schemas, prefabs)
}

func TestTerrainGenerationIsDeterministic(t *testing.T) {
	w1 := newTerrainWorld(t)
	w2 := newTerrainWorld(t)

	g1 := NewTerrainGrid(1234, 1<<16, 0.2)
	g2 := NewTerrainGrid(1234, 1<<16, 0.2)

	e1, err := g1.GenerateTerrain(w1, 6, 6)
	if err != nil {
		t.Fatalf("generate w1: %v", err)
	}
	e2, err := g2.GenerateTerrain(w2, 6, 6)
	if err != nil {
		t.Fatalf("generate w2: %v", err)
	}

	if len(e1) == 0 {
		t.Fatal("expected at least one food entity from terrain generation")
	}
	if len(e1) != len(e2) {
		t.Fatalf("entity counts diverged: %d vs %d", len(e1), len(e2))
	}

	positions1 := w1.Storage(ComponentPosition)
	positions2 := w2.Storage(ComponentPosition)
	resources1 := w1.Storage(ComponentResource)
	resources2 := w2.Storage(ComponentResource)

	for i := range e1 {
		x1, _ := positions1.GetField(e1[i], fieldX)
		y1, _ := positions1.GetField(e1[i], fieldY)
		x2, _ := positions2.GetField(e2[i], fieldX)
		y2, _ := positions2.GetField(e2[i], fieldY)
		if x1 != x2 || y1 != y2 {
			t.Fatalf("entity %d position diverged: (%d,%d) vs (%d,%d)", i, x1, y1, x2, y2)
		}
		r1, _ := resources1.GetField(e1[i], 0)
		r2, _ := resources2.GetField(e2[i], 0)
		if r1 != r2 {
			t.Fatalf("entity %d yield diverged: %d vs %d", i, r1, r2)
		}
	}
}

func TestTerrainThresholdBoundsSpawnCount(t *testing.T) {
	w := newTerrainWorld(t)
	grid := NewTerrainGrid(42, 1<<16, 2.0) // threshold above noise's [-1,1] range
	entities, err := grid.GenerateTerrain(w, 4, 4)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(entities) != 0 {
		t.Fatalf("expected no entities above an unreachable threshold, got %d", len(entities))
	}
}
