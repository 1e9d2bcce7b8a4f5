// Command spectator is an optional, non-authoritative visual replay client:
// it runs one LocalOnly sync.Game the same way the rest of this codebase's
// interactive debug tools do, but draws the world through its own ark
// (github.com/mlange-42/ark) scene-graph mirror instead of reading the
// deterministic wecs storage directly, the same separation the teacher
// keeps between its simulation world and its raylib/raygui front end.
//
// Usage: go run ./cmd/spectator
package main

import (
	"fmt"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	syncsimconfig "github.com/pthm-cable/syncsim/internal/config"
	"github.com/pthm-cable/syncsim/internal/demo"
	"github.com/pthm-cable/syncsim/internal/input"
	"github.com/pthm-cable/syncsim/internal/wecs"
	"github.com/pthm-cable/syncsim/sync"
)

const (
	windowWidth  = 960
	windowHeight = 640
	panelHeight  = 90
)

// wallClock implements transport.Clock using the process's own elapsed
// frame time, matching the teacher's reliance on a monotonic wall clock
// for its preview tools rather than a simulated one.
type wallClock struct{ elapsed float64 }

func (c *wallClock) Now() float64 { return c.elapsed }

// nullRenderer satisfies transport.Renderer; spectator draws the world
// from its own ark mirror once per raylib frame rather than from the
// coordinator's once-per-tick callback, so this only needs to exist to
// keep the Renderer collaborator wired end-to-end.
type nullRenderer struct{}

func (nullRenderer) Render(alpha float64) {}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := syncsimconfig.Init(""); err != nil {
		logger.Error("spectator: config load failed", "error", err)
		os.Exit(1)
	}
	cfg := syncsimconfig.Cfg()

	schemas := wecs.NewRegistry()
	demo.RegisterSchemas(schemas)
	demo.RegisterResourceSchema(schemas)
	prefabs := wecs.NewPrefabRegistry()
	demo.RegisterPrefabs(prefabs)
	scheduler := wecs.NewScheduler()

	clock := &wallClock{}
	g := sync.New(sync.Options{
		Schemas:             schemas,
		Prefabs:             prefabs,
		Scheduler:           scheduler,
		Clock:               clock,
		Renderer:            nullRenderer{},
		TickRate:            cfg.Tick.Rate,
		RollbackCapacity:    cfg.Rollback.Capacity,
		MaxRollbackDistance: cfg.Rollback.MaxDistance,
		PartitionTarget:     cfg.Partition.TargetPerPartition,
		PartitionRedundancy: cfg.Partition.Redundancy,
		SnapshotInterval:    cfg.Tick.SnapshotInterval,
		Logger:              logger,
	})

	var player wecs.EntityID
	demo.RegisterSystems(scheduler, g, func(_ input.ClientID) (wecs.EntityID, bool) {
		return player, player != wecs.Nil
	})
	demo.RegisterCollisions(g.World())

	g.EnterLocalOnly()

	grid := demo.NewTerrainGrid(42, 60, 0.15)
	if _, err := grid.GenerateTerrain(g.World(), 10, 8); err != nil {
		logger.Error("spectator: terrain generation failed", "error", err)
		os.Exit(1)
	}
	var err error
	player, err = g.World().Spawn(demo.PrefabPlayer, nil)
	if err != nil {
		logger.Error("spectator: spawn player failed", "error", err)
		os.Exit(1)
	}

	scene := newSceneGraph()
	field := newResourceField(7, 0.08)

	rl.InitWindow(windowWidth, windowHeight, "syncsim spectator")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	paused := false
	speed := float32(1.0)
	tickInterval := float32(cfg.Derived.TickInterval.Seconds())
	accumulator := float32(0)

	for !rl.WindowShouldClose() {
		dt := rl.GetFrameTime() * speed
		clock.elapsed += float64(rl.GetFrameTime())

		if !paused {
			accumulator += dt
			for accumulator >= tickInterval {
				stepMove(g)
				g.Tick()
				accumulator -= tickInterval
			}
		}

		scene.sync(g.World())

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		field.draw(windowWidth, windowHeight-panelHeight)
		scene.draw()

		panelY := float32(windowHeight - panelHeight)
		rl.DrawRectangle(0, int32(panelY), windowWidth, panelHeight, rl.LightGray)
		rl.DrawText(fmt.Sprintf("frame %d", g.CurrentFrame()), 10, int32(panelY)+8, 18, rl.DarkGray)

		if gui.Button(rl.Rectangle{X: 10, Y: panelY + 32, Width: 100, Height: 28}, togglePauseLabel(paused)) {
			paused = !paused
		}
		if gui.Button(rl.Rectangle{X: 120, Y: panelY + 32, Width: 100, Height: 28}, "Reset") {
			accumulator = 0
			speed = 1.0
		}
		rl.DrawText("speed", 240, int32(panelY)+38, 14, rl.DarkGray)
		speed = gui.SliderBar(rl.Rectangle{X: 290, Y: panelY + 36, Width: 200, Height: 20}, "0.1x", "4x", speed, 0.1, 4)

		rl.EndDrawing()
	}

	scene.close()
}

func stepMove(g *sync.Game) {
	payload, err := demo.EncodeMove(1, 0)
	if err != nil {
		return
	}
	_ = g.LocalInput(payload)
}

func togglePauseLabel(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}
