package sync

import (
	"sort"

	"github.com/pthm-cable/syncsim/internal/drift"
	"github.com/pthm-cable/syncsim/internal/input"
	"github.com/pthm-cable/syncsim/internal/partition"
	"github.com/pthm-cable/syncsim/internal/snapshot"
	"github.com/pthm-cable/syncsim/internal/statehash"
	"github.com/pthm-cable/syncsim/internal/transport"
)

// onConnect implements the join/late-join protocol (spec §4.L). snapBytes
// is empty for the room's first peer.
func (g *Game) onConnect(snapBytes []byte, inputs []transport.WireInput, frame int32, fps int, clientID string) {
	if fps > 0 {
		g.cfg.tickRate = fps
	}
	g.localClientIDStr = clientID
	g.localClientID = g.intern(clientID)

	for _, in := range inputs {
		g.trackSeq(in.Seq)
	}

	if len(snapBytes) == 0 {
		g.onRoomCreate()
		for _, in := range inputs {
			g.applyJoinInput(in, frame)
		}
		g.finishJoin(frame)
		return
	}

	snap, err := snapshot.Decode(snapBytes)
	if err != nil {
		g.logger.Warn("syncsim: malformed join snapshot, falling back to room create", "error", err)
		g.onRoomCreate()
		for _, in := range inputs {
			g.applyJoinInput(in, frame)
		}
		g.finishJoin(frame)
		return
	}

	if err := snapshot.Restore(g.world, snap); err != nil {
		g.logger.Error("syncsim: join snapshot restore failed, falling back to room create", "error", err)
		g.onRoomCreate()
		g.finishJoin(frame)
		return
	}
	g.currentFrame = g.world.Frame
	g.lastSnapshot = snap
	g.lastHash = statehash.Compute(g.world)
	g.rollbackBuf.Save(g.currentFrame, snap)

	// Lifecycle events first, to build the authority chain (§4.L).
	for _, in := range inputs {
		if in.Kind != transport.KindGame {
			g.applyLifecycle(in)
		}
	}

	// Replay game inputs with seq > snapshot.seq, sorted ascending by seq.
	replay := make([]transport.WireInput, 0, len(inputs))
	for _, in := range inputs {
		if in.Kind == transport.KindGame && in.Seq > snap.Seq {
			replay = append(replay, in)
		}
	}
	sort.Slice(replay, func(i, j int) bool { return replay[i].Seq < replay[j].Seq })
	for _, in := range replay {
		client := g.intern(in.ClientID)
		f := g.currentFrame
		if in.Frame != nil {
			f = *in.Frame
		}
		g.inputBuf.Confirm(f, input.ClientID(client), in.Data)
	}

	for g.currentFrame < frame {
		g.runFrame(false)
	}

	g.finishJoin(frame)
}

func (g *Game) applyJoinInput(in transport.WireInput, frame int32) {
	if in.Kind != transport.KindGame {
		g.applyLifecycle(in)
		return
	}
	client := g.intern(in.ClientID)
	f := frame
	if in.Frame != nil {
		f = *in.Frame
	}
	g.inputBuf.Confirm(f, input.ClientID(client), in.Data)
}

func (g *Game) finishJoin(frame int32) {
	g.currentFrame = frame
	g.addActiveClient(g.localClientID)
	g.state = Live
	if g.onSnapshotRestored != nil {
		g.onSnapshotRestored(g.world.ActiveEntities())
	}
}

// onTick implements tick-loop step 1 (spec §4.L): route lifecycle events
// into the client registry, route game inputs into the input buffer,
// treating any input stamped for an already-processed frame as late.
func (g *Game) onTick(frame int32, inputs []transport.WireInput) {
	for _, in := range inputs {
		g.trackSeq(in.Seq)
		switch in.Kind {
		case transport.KindGame:
			client := g.intern(in.ClientID)
			f := frame
			if in.Frame != nil {
				f = *in.Frame
			}
			if f < g.currentFrame {
				if pendingFrame, ok := g.inputBuf.ApplyLateInput(f, g.currentFrame, g.oldestRetainedFrame(), input.ClientID(client), in.Data); ok {
					g.logger.Debug("syncsim: late input forced rollback", "frame", f, "rollbackTo", pendingFrame, "client", in.ClientID)
				}
				continue
			}
			g.inputBuf.Confirm(f, input.ClientID(client), in.Data)
		case transport.KindJoin:
			g.applyLifecycle(in)
			g.rollbackBuf.ClearBefore(frame)
			g.pendingSnapshotUpload = true
		default:
			g.applyLifecycle(in)
		}
	}
}

func (g *Game) applyLifecycle(in transport.WireInput) {
	client := g.intern(in.ClientID)
	switch in.Kind {
	case transport.KindJoin:
		g.addActiveClient(client)
	case transport.KindLeave, transport.KindDisconnect:
		g.removeActiveClient(client)
		g.reliability.Forget(partition.ClientID(client))
	}
}

// onBinarySnapshot handles an authoritative snapshot broadcast by the
// current authority (spec §4.L step 6, desync recovery). When this peer
// is not desynced, the snapshot is only used as a diagnostic baseline
// (spec §4.M); when a resync is pending, it triggers a hard reset.
func (g *Game) onBinarySnapshot(data []byte) {
	snap, err := snapshot.Decode(data)
	if err != nil {
		g.logger.Warn("syncsim: malformed authoritative snapshot", "error", err)
		return
	}

	if local, err := g.rollbackBuf.Get(snap.Frame); err == nil {
		report := drift.Compare(local, snap, g.schemas)
		g.lastDriftReport = report
		if len(report.Drifted) > 0 {
			g.logger.Debug("syncsim: field drift vs authoritative snapshot",
				"frame", snap.Frame, "drifted", len(report.Drifted), "total", report.TotalFields)
		}
	}

	if g.resyncPending {
		g.hardReset(snap)
	}
}

// onPartition receives one partition's slice of a peer's delta (spec
// §4.L step 6). It is consulted only for verification; local
// deterministic state is never overwritten from a partition payload.
func (g *Game) onPartition(partitionIdx int, data []byte, frame int32) {
	if _, err := partition.Decode(data); err != nil {
		g.logger.Warn("syncsim: malformed partition payload", "partition", partitionIdx, "frame", frame, "error", err)
	}
}

// onMajorityHash implements desync detection (spec §4.L): compares this
// peer's own hash for frame against the majority hash reported by the
// room, flagging a pending resync on mismatch.
func (g *Game) onMajorityHash(frame int32, majority uint32) {
	local, ok := g.hashHistory[frame]
	passed := ok && local == majority
	g.recordHashCheck(passed)
	if passed {
		return
	}
	if !g.desynced {
		g.logger.Warn("syncsim: desync detected", "frame", frame, "local", local, "majority", majority)
	}
	g.desynced = true
	g.resyncPending = true
}

func (g *Game) onReliabilityUpdate(scores map[string]float64) {
	for clientIDStr, score := range scores {
		client := g.intern(clientIDStr)
		g.reliability.Set(partition.ClientID(client), score)
	}
}

// onDisconnect stops the tick loop while preserving local state (spec
// §7). The host may later call EnterLocalOnly to resume standalone.
func (g *Game) onDisconnect() {
	g.state = Disconnected
	g.logger.Info("syncsim: transport disconnected, preserving local state")
}

// hardReset restores world state from an authoritative snapshot, clears
// the rollback buffer, and resumes (spec §4.L desync recovery).
func (g *Game) hardReset(snap *snapshot.Snapshot) {
	if err := snapshot.Restore(g.world, snap); err != nil {
		g.logger.Error("syncsim: hard reset restore failed", "error", err)
		return
	}
	g.currentFrame = g.world.Frame
	g.rollbackBuf.ClearBefore(g.currentFrame)
	g.inputBuf.Prune(g.currentFrame)
	g.inputBuf.ClearPendingRollback()
	g.lastSnapshot = snap
	g.lastHash = statehash.Compute(g.world)
	g.resyncPending = false
	g.desynced = false
	g.logger.Info("syncsim: hard reset complete", "frame", g.currentFrame)
}
