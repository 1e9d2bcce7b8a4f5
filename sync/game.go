// Package sync implements the authority and sync coordinator (spec §4.L):
// the single state machine that owns a room's lifecycle on one peer — join
// protocol, the per-tick input/rollback/hash/delta pipeline, desync
// detection, and hard-reset recovery. It is built entirely on the
// deterministic core in internal/ and the pluggable boundary in
// internal/transport; this package is the only thing a host program needs
// to drive a synchronized simulation.
package sync

import (
	"log/slog"
	"sort"

	"github.com/pthm-cable/syncsim/internal/drift"
	"github.com/pthm-cable/syncsim/internal/input"
	"github.com/pthm-cable/syncsim/internal/partition"
	"github.com/pthm-cable/syncsim/internal/rollback"
	"github.com/pthm-cable/syncsim/internal/snapshot"
	"github.com/pthm-cable/syncsim/internal/statehash"
	"github.com/pthm-cable/syncsim/internal/transport"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// State is one of the coordinator's lifecycle states (spec §4.L).
type State int

const (
	Uninitialized State = iota
	LocalOnly
	Connecting
	Live
	Disconnected
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case LocalOnly:
		return "localOnly"
	case Connecting:
		return "connecting"
	case Live:
		return "live"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Defaults mirror spec §6's enumerated configuration knobs.
const (
	DefaultTickRate         = 20
	DefaultSnapshotInterval = 100
	hashCheckWindowSize     = 100
)

// Options configures a Game. Schemas, Prefabs, and Scheduler are shared,
// process-wide registrations (§4.C, §4.D); Transport/Renderer/Clock are
// the pluggable external collaborators (§6) and may be nil for a headless
// or local-only peer.
type Options struct {
	Schemas   *wecs.Registry
	Prefabs   *wecs.PrefabRegistry
	Scheduler *wecs.Scheduler

	Transport transport.Transport
	Renderer  transport.Renderer
	Clock     transport.Clock

	TickRate            int
	RollbackCapacity    int
	MaxRollbackDistance int32
	PartitionTarget     int
	PartitionRedundancy int
	SnapshotInterval    int32

	// OnSnapshotRestored is invoked once a late-join catchup (or a fresh
	// room create) completes, letting the host re-hydrate client-local
	// state (spec §4.L: "finally invoke on_snapshot(entities)").
	OnSnapshotRestored func(entities []wecs.EntityID)

	Logger *slog.Logger
}

type gameConfig struct {
	tickRate            int
	partitionTarget     int
	partitionRedundancy int
	snapshotInterval    int32
}

// Game is the sync coordinator for one peer in one room.
type Game struct {
	world     *wecs.World
	scheduler *wecs.Scheduler
	schemas   *wecs.Registry

	transport transport.Transport
	renderer  transport.Renderer
	clock     transport.Clock

	cfg                gameConfig
	onSnapshotRestored func(entities []wecs.EntityID)
	logger             *slog.Logger

	state          State
	localClientIDStr string
	localClientID    uint32

	joinOrder []uint32 // arrival order; joinOrder[0] is the authority

	currentFrame    int32
	highestSeq      uint32
	pendingSnapshotUpload bool

	rollbackBuf *rollback.Buffer[*snapshot.Snapshot]
	inputBuf    *input.Buffer

	lastSnapshot *snapshot.Snapshot
	lastHash     uint32

	hashHistory map[int32]uint32
	hashWindow  []bool

	reliability *partition.Reliability

	desynced        bool
	resyncPending   bool
	lastDriftReport drift.Report

	lastTickWallTime float64
}

// New creates a Game. The returned coordinator starts Uninitialized;
// callers drive it into LocalOnly or Connecting before calling Tick.
func New(opts Options) *Game {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tickRate := opts.TickRate
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	snapInterval := opts.SnapshotInterval
	if snapInterval <= 0 {
		snapInterval = DefaultSnapshotInterval
	}

	w := wecs.NewWorld(opts.Schemas, opts.Prefabs)

	g := &Game{
		world:     w,
		scheduler: opts.Scheduler,
		schemas:   opts.Schemas,
		transport: opts.Transport,
		renderer:  opts.Renderer,
		clock:     opts.Clock,
		cfg: gameConfig{
			tickRate:            tickRate,
			partitionTarget:     opts.PartitionTarget,
			partitionRedundancy: opts.PartitionRedundancy,
			snapshotInterval:    snapInterval,
		},
		onSnapshotRestored: opts.OnSnapshotRestored,
		logger:             logger,
		rollbackBuf:        rollback.New[*snapshot.Snapshot](opts.RollbackCapacity),
		inputBuf:           input.NewBuffer(opts.MaxRollbackDistance),
		reliability:        partition.NewReliability(0),
		hashHistory:        make(map[int32]uint32),
	}

	if g.transport != nil {
		g.transport.SetHandlers(transport.Handlers{
			OnConnect:           g.onConnect,
			OnTick:              g.onTick,
			OnBinarySnapshot:    g.onBinarySnapshot,
			OnPartition:         g.onPartition,
			OnMajorityHash:      g.onMajorityHash,
			OnReliabilityUpdate: g.onReliabilityUpdate,
			OnDisconnect:        g.onDisconnect,
		})
	}

	return g
}

// World exposes the simulated world so the host can register domain
// prefabs' systems and read component state for rendering/telemetry.
func (g *Game) World() *wecs.World { return g.world }

// State returns the coordinator's current lifecycle state.
func (g *Game) State() State { return g.state }

// CurrentFrame returns the next frame this peer will simulate, one past
// the last frame it has fully simulated.
func (g *Game) CurrentFrame() int32 { return g.currentFrame }

// ClientID returns this peer's assigned client id string, empty before a
// room has been created or joined.
func (g *Game) ClientID() string { return g.localClientIDStr }

// EnterLocalOnly transitions Uninitialized -> LocalOnly: a single peer
// simulating without any transport (spec §4.L state machine). The host is
// responsible for seeding the world before the first Tick.
func (g *Game) EnterLocalOnly() {
	g.localClientIDStr = "local"
	g.localClientID = g.intern(g.localClientIDStr)
	g.state = LocalOnly
	g.onRoomCreate()
	if g.onSnapshotRestored != nil {
		g.onSnapshotRestored(g.world.ActiveEntities())
	}
}

// EnterConnecting transitions Uninitialized/LocalOnly -> Connecting: the
// host has asked the transport to join a room and is waiting for
// on_connect. Requires a non-nil Transport.
func (g *Game) EnterConnecting() {
	g.state = Connecting
}

// Disconnect stops the tick loop while preserving local state (spec §7:
// "Transport disconnect: stop the tick loop; preserve local state; host
// may resume in LocalOnly").
func (g *Game) Disconnect() {
	g.onDisconnect()
}

func (g *Game) onRoomCreate() {
	g.currentFrame = g.world.Frame
	g.lastSnapshot = snapshot.Capture(g.world, g.highestSeq, true)
	g.lastHash = statehash.Compute(g.world)
	g.addActiveClient(g.localClientID)
}

func (g *Game) intern(clientID string) uint32 {
	return g.world.Strings.Intern("client", clientID)
}

func (g *Game) clientIDString(id uint32) string {
	return g.world.Strings.String("client", id)
}

func (g *Game) trackSeq(seq uint32) {
	if seq > g.highestSeq {
		g.highestSeq = seq
	}
}

func (g *Game) addActiveClient(client uint32) {
	for _, c := range g.joinOrder {
		if c == client {
			return
		}
	}
	g.joinOrder = append(g.joinOrder, client)
}

func (g *Game) removeActiveClient(client uint32) {
	for i, c := range g.joinOrder {
		if c == client {
			g.joinOrder = append(g.joinOrder[:i], g.joinOrder[i+1:]...)
			return
		}
	}
}

// isAuthority reports whether this peer currently publishes full
// snapshots: the first client in join order still present (spec §4.L).
// A peer with no transport is trivially its own authority.
func (g *Game) isAuthority() bool {
	if g.transport == nil {
		return true
	}
	return len(g.joinOrder) > 0 && g.joinOrder[0] == g.localClientID
}

// sortedActiveClients returns the active client set in ascending
// interned-id order, the canonical ordering used for input processing
// and partition assignment (§4.I, §4.K).
func (g *Game) sortedActiveClients() []input.ClientID {
	out := make([]input.ClientID, len(g.joinOrder))
	for i, c := range g.joinOrder {
		out[i] = input.ClientID(c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Game) sortedPartitionClients() []partition.ClientID {
	clients := g.sortedActiveClients()
	out := make([]partition.ClientID, len(clients))
	for i, c := range clients {
		out[i] = partition.ClientID(c)
	}
	return out
}

func (g *Game) oldestRetainedFrame() int32 {
	f, ok := g.rollbackBuf.OldestFrame()
	if !ok {
		return g.currentFrame
	}
	return f
}

// FrameInputs returns the inputs recorded for frame, sorted ascending by
// clientId. Domain PhaseInput systems call this to drive entity commands
// (spec §4.I step 1, §9 "proxy/dynamic dispatch for inputs").
func (g *Game) FrameInputs(frame int32) []input.Input {
	return g.inputBuf.FrameInputs(frame)
}

// ClientIDString resolves an interned input.ClientID back to the string
// id it was assigned on join.
func (g *Game) ClientIDString(id input.ClientID) string {
	return g.clientIDString(uint32(id))
}

// LocalInput submits this peer's own input for the current frame. With a
// transport configured, it is sent on the wire and applied when the
// coordinator's own input arrives back through on_tick, exactly like any
// other client's input. Without one (LocalOnly), it is applied directly.
func (g *Game) LocalInput(data []byte) error {
	if g.transport == nil {
		g.inputBuf.Confirm(g.currentFrame, input.ClientID(g.localClientID), data)
		return nil
	}
	return g.transport.SendInput(data)
}

// HashCheckWindow reports how many of the most recent hash checks (up to
// a bounded window of 100) passed versus the number of checks in that
// window (spec §4.L:
// "rolling window counters track passed/failed hash checks").
func (g *Game) HashCheckWindow() (passed, total int) {
	for _, ok := range g.hashWindow {
		if ok {
			passed++
		}
	}
	return passed, len(g.hashWindow)
}

// Desynced reports whether this peer is currently flagged desynced,
// awaiting the next authoritative snapshot to hard-reset (spec §4.L).
func (g *Game) Desynced() bool { return g.desynced }

// LastDriftReport returns the most recent field-level drift comparison
// against an authoritative snapshot (spec §4.M), for diagnostics.
func (g *Game) LastDriftReport() drift.Report { return g.lastDriftReport }

// StateHashAt returns the hash this peer computed for frame, if it has
// simulated that far.
func (g *Game) StateHashAt(frame int32) (uint32, bool) {
	h, ok := g.hashHistory[frame]
	return h, ok
}

func (g *Game) recordHashCheck(passed bool) {
	g.hashWindow = append(g.hashWindow, passed)
	if len(g.hashWindow) > hashCheckWindowSize {
		g.hashWindow = g.hashWindow[len(g.hashWindow)-hashCheckWindowSize:]
	}
}

func (g *Game) renderAlpha() float64 {
	if g.clock == nil || g.cfg.tickRate <= 0 {
		return 0
	}
	interval := 1.0 / float64(g.cfg.tickRate)
	alpha := (g.clock.Now() - g.lastTickWallTime) / interval
	if alpha < 0 {
		alpha = 0
	}
	if alpha >= 1 {
		alpha = 0.999
	}
	return alpha
}
