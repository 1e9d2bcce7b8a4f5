// Command simrun is a headless multi-peer driver for the sync
// coordinator: it wires N peers to an in-memory Loopback Hub, ticks them
// in lockstep, and logs hash-check/telemetry output, the same
// flag-driven, -headless-style entrypoint the rest of this codebase
// ships for running its simulation without graphics.
package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	syncsimconfig "github.com/pthm-cable/syncsim/internal/config"
	"github.com/pthm-cable/syncsim/internal/demo"
	"github.com/pthm-cable/syncsim/internal/input"
	"github.com/pthm-cable/syncsim/internal/snapshot"
	"github.com/pthm-cable/syncsim/internal/telemetry"
	"github.com/pthm-cable/syncsim/internal/transport"
	"github.com/pthm-cable/syncsim/internal/wecs"
	"github.com/pthm-cable/syncsim/sync"
)

var (
	numPeers     = flag.Int("peers", 2, "number of peers to simulate")
	ticks        = flag.Int("ticks", 200, "number of frames to tick")
	configPath   = flag.String("config", "", "path to a YAML config file overriding defaults")
	telemetryDir = flag.String("telemetry", "", "directory to write hash-check/drift CSV telemetry (empty disables)")
	dumpSnapshot = flag.Bool("dump-snapshot", false, "print the final snapshot of peer 0 to stdout before exiting")
	joinAt       = flag.Int("join-at", 50, "frame at which peers after the first join (late-join catchup)")
	terrainSeed  = flag.Int64("terrain-seed", 0, "OpenSimplex seed for initial food placement (0 disables terrain generation)")
	terrainGrid  = flag.Int("terrain-grid", 8, "grid width/height sampled for terrain-seeded food placement")
)

func main() {
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := syncsimconfig.Init(*configPath); err != nil {
		logger.Error("syncsim: config load failed", "error", err)
		os.Exit(1)
	}
	cfg := syncsimconfig.Cfg()

	rec, err := telemetry.NewRecorder(*telemetryDir)
	if err != nil {
		logger.Error("syncsim: telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer rec.Close()

	if *numPeers < 1 {
		*numPeers = 1
	}

	hub := transport.NewHub(cfg.Tick.Rate)
	games := make([]*sync.Game, *numPeers)
	players := make([]wecs.EntityID, *numPeers)

	for i := 0; i < *numPeers; i++ {
		schemas := wecs.NewRegistry()
		demo.RegisterSchemas(schemas)
		if *terrainSeed != 0 {
			demo.RegisterResourceSchema(schemas)
		}
		prefabs := wecs.NewPrefabRegistry()
		demo.RegisterPrefabs(prefabs)
		scheduler := wecs.NewScheduler()

		peer := hub.Connect(peerName(i))
		g := sync.New(sync.Options{
			Schemas:             schemas,
			Prefabs:             prefabs,
			Scheduler:           scheduler,
			Transport:           peer,
			TickRate:            cfg.Tick.Rate,
			RollbackCapacity:    cfg.Rollback.Capacity,
			MaxRollbackDistance: cfg.Rollback.MaxDistance,
			PartitionTarget:     cfg.Partition.TargetPerPartition,
			PartitionRedundancy: cfg.Partition.Redundancy,
			SnapshotInterval:    cfg.Tick.SnapshotInterval,
			Logger:              logger.With("peer", peerName(i)),
		})
		games[i] = g

		demo.RegisterSystems(scheduler, g, func(client input.ClientID) (wecs.EntityID, bool) {
			name := g.ClientIDString(client)
			idx, ok := peerIndex(name)
			if !ok || idx >= len(players) {
				return wecs.Nil, false
			}
			return players[idx], true
		})
		demo.RegisterCollisions(g.World())
	}

	if *numPeers > 0 {
		hub.Admit(peerName(0))
		food, err := games[0].World().Spawn(demo.PrefabFood, nil)
		if err != nil {
			logger.Error("syncsim: spawn food failed", "error", err)
			os.Exit(1)
		}
		games[0].World().Storage(demo.ComponentPosition).Set(food, []uint32{100, 200})
		players[0], err = games[0].World().Spawn(demo.PrefabPlayer, nil)
		if err != nil {
			logger.Error("syncsim: spawn player failed", "error", err)
			os.Exit(1)
		}

		if *terrainSeed != 0 {
			grid := demo.NewTerrainGrid(*terrainSeed, 60, 0.2)
			spawned, err := grid.GenerateTerrain(games[0].World(), *terrainGrid, *terrainGrid)
			if err != nil {
				logger.Error("syncsim: terrain generation failed", "error", err)
				os.Exit(1)
			}
			logger.Info("syncsim: terrain generated", "entities", len(spawned), "seed", *terrainSeed)
		}
	}

	move, err := demo.EncodeMove(1, 0)
	if err != nil {
		logger.Error("syncsim: encode move failed", "error", err)
		os.Exit(1)
	}

	started := time.Now()
	tickDurations := make([]float64, 0, *ticks)

	for frame := int32(0); frame < int32(*ticks); frame++ {
		if int(frame) == *joinAt {
			for i := 1; i < *numPeers; i++ {
				hub.Admit(peerName(i))
			}
		}

		if g0 := games[0]; g0.State() == sync.Live || g0.State() == sync.LocalOnly {
			if err := g0.LocalInput(move); err != nil {
				logger.Warn("syncsim: local input failed", "error", err)
			}
		}

		tickStart := time.Now()
		hub.AdvanceFrame(frame)
		for _, g := range games {
			g.Tick()
		}
		hub.BroadcastMajority(frame)
		tickDurations = append(tickDurations, time.Since(tickStart).Seconds()*1000)

		for i, g := range games {
			passed, total := g.HashCheckWindow()
			if err := rec.RecordHashCheck(frame, passed, total); err != nil {
				logger.Warn("syncsim: telemetry write failed", "peer", peerName(i), "error", err)
			}
			report := g.LastDriftReport()
			if err := rec.RecordDrift(frame, report.MatchingFields, report.TotalFields, len(report.Drifted)); err != nil {
				logger.Warn("syncsim: drift telemetry write failed", "peer", peerName(i), "error", err)
			}
			if g.Desynced() {
				logger.Warn("syncsim: peer flagged desynced", "peer", peerName(i), "frame", frame)
			}
		}
	}

	p10, p50, p90 := telemetry.Percentiles(tickDurations)
	logger.Info("syncsim: run complete",
		"frames", *ticks, "peers", *numPeers, "elapsed", time.Since(started),
		"tickMsP10", p10, "tickMsP50", p50, "tickMsP90", p90)

	if *dumpSnapshot && len(games) > 0 {
		world := games[0].World()
		snap := snapshot.Capture(world, 0, true)
		buf, err := snapshot.EncodeJSON(snap, world.Schemas)
		if err != nil {
			logger.Error("syncsim: encode dump snapshot failed", "error", err)
			os.Exit(1)
		}
		os.Stdout.Write(buf)
	}
}

func peerName(i int) string {
	return "p" + strconv.Itoa(i)
}

func peerIndex(name string) (int, bool) {
	if len(name) < 2 || name[0] != 'p' {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	return n, err == nil
}
