package sync

import (
	"github.com/pthm-cable/syncsim/internal/delta"
	"github.com/pthm-cable/syncsim/internal/partition"
	"github.com/pthm-cable/syncsim/internal/snapshot"
	"github.com/pthm-cable/syncsim/internal/statehash"
)

// Tick advances the simulation by exactly one frame (spec §4.L tick
// loop). It is a no-op outside LocalOnly/Live. The host calls it once per
// fixed tick interval; incoming input/lifecycle events are expected to
// have already been delivered via the transport's on_tick callback before
// Tick runs (or, in LocalOnly, via LocalInput).
func (g *Game) Tick() {
	if g.state != Live && g.state != LocalOnly {
		return
	}

	if pendingFrame, ok := g.inputBuf.PendingRollback(); ok {
		g.resolveRollback(pendingFrame)
	}

	g.runFrame(true)

	if g.renderer != nil {
		g.scheduler.RunRender(g.world)
		g.renderer.Render(g.renderAlpha())
	}
	if g.clock != nil {
		g.lastTickWallTime = g.clock.Now()
	}
}

// runFrame executes one frame of simulation (spec §4.L steps 2-5, §4.I
// steps 1-4). broadcast is false during resimulation and late-join
// catchup, where the frame must reproduce identically but must not
// re-publish a hash/delta/partition already (or not yet) meaningful on
// the wire; client_only systems are skipped exactly when broadcast is
// false, since resimulation must match the original run's non-presentation
// effects (§4.D, §4.I).
func (g *Game) runFrame(broadcast bool) {
	f := g.currentFrame

	g.inputBuf.PredictMissing(f, g.sortedActiveClients())

	preSnap := snapshot.Capture(g.world, g.highestSeq, false)
	g.rollbackBuf.Save(f, preSnap)

	g.scheduler.RunTick(g.world, !broadcast)
	g.currentFrame = g.world.Frame

	hash := statehash.Compute(g.world)
	g.hashHistory[f] = hash

	if !broadcast {
		return
	}

	if g.transport != nil {
		if err := g.transport.SendStateHash(f, hash); err != nil {
			g.logger.Warn("syncsim: send state hash failed", "frame", f, "error", err)
		}
	}

	curr := snapshot.Capture(g.world, g.highestSeq, true)
	d := delta.Compute(g.lastSnapshot, curr, g.lastHash, hash, g.schemas)
	g.lastSnapshot = curr
	g.lastHash = hash

	g.publishPartitions(d, f)

	if g.isAuthority() && g.transport != nil && (g.pendingSnapshotUpload || g.shouldPublishFullSnapshot(f)) {
		g.publishFullSnapshot(curr, hash)
		g.pendingSnapshotUpload = false
	}
}

// resolveRollback restores the snapshot at pendingFrame and resimulates
// forward to the frame this peer had already reached, with client_only
// systems disabled throughout — the corrected run that guarantees
// identical output to what the original run would have produced had the
// late input arrived on time (spec §4.I).
func (g *Game) resolveRollback(pendingFrame int32) {
	resimTarget := g.currentFrame

	if g.inputBuf.ExceedsRollbackDistance(resimTarget, pendingFrame) {
		g.logger.Warn("syncsim: rollback distance exceeded, escalating to desync",
			"from", resimTarget, "to", pendingFrame, "max", g.inputBuf.MaxRollbackDistance())
		g.desynced = true
		g.resyncPending = true
		g.inputBuf.ClearPendingRollback()
		return
	}

	snap, err := g.rollbackBuf.Get(pendingFrame)
	if err != nil {
		g.logger.Warn("syncsim: rollback target no longer retained, escalating to desync",
			"frame", pendingFrame, "error", err)
		g.desynced = true
		g.resyncPending = true
		g.inputBuf.ClearPendingRollback()
		return
	}

	if err := snapshot.Restore(g.world, snap); err != nil {
		g.logger.Error("syncsim: rollback restore failed", "error", err)
		g.inputBuf.ClearPendingRollback()
		return
	}
	g.currentFrame = g.world.Frame

	for g.currentFrame < resimTarget {
		g.runFrame(false)
	}
	g.inputBuf.ClearPendingRollback()
}

func (g *Game) shouldPublishFullSnapshot(f int32) bool {
	return g.cfg.snapshotInterval > 0 && f%g.cfg.snapshotInterval == 0
}

func (g *Game) publishFullSnapshot(curr *snapshot.Snapshot, hash uint32) {
	bytes, err := snapshot.Encode(curr)
	if err != nil {
		g.logger.Error("syncsim: encode snapshot failed", "error", err)
		return
	}
	if err := g.transport.SendSnapshot(bytes, hash, g.highestSeq, curr.Frame); err != nil {
		g.logger.Warn("syncsim: send snapshot failed", "error", err)
	}
}

func (g *Game) publishPartitions(d *delta.Delta, frame int32) {
	if g.transport == nil {
		return
	}
	clients := g.sortedPartitionClients()
	if len(clients) == 0 {
		return
	}
	entityCount := len(g.world.ActiveEntities())
	numPartitions := partition.Count(entityCount, len(clients), g.cfg.partitionTarget)
	if numPartitions == 0 {
		return
	}
	scores := g.reliability.Snapshot(clients)
	assignments := partition.Assign(clients, frame, scores, numPartitions, g.cfg.partitionRedundancy)
	local := partition.ClientID(g.localClientID)

	for _, a := range assignments {
		responsible := false
		for _, s := range a.Senders {
			if s == local {
				responsible = true
				break
			}
		}
		if !responsible {
			continue
		}
		payload := partition.Extract(d, a.Partition, numPartitions)
		buf, err := partition.Encode(payload)
		if err != nil {
			g.logger.Error("syncsim: encode partition failed", "partition", a.Partition, "error", err)
			continue
		}
		if err := g.transport.SendPartition(a.Partition, buf, frame); err != nil {
			g.reliability.Observe(local, false)
			g.logger.Warn("syncsim: send partition failed", "partition", a.Partition, "error", err)
			continue
		}
		g.reliability.Observe(local, true)
	}
}
