// Package transport defines the pluggable boundary the sync coordinator
// talks to (spec §1, §6): Transport, InputSource, Clock, and Renderer.
// None of these interfaces is implemented by the deterministic core; a
// real WebSocket transport, a browser input source, a wall clock, and a
// canvas renderer are all external collaborators out of the core's
// contract. This package also ships Hub, an in-memory relay whose
// LoopbackPeer handles implement Transport, used by cmd/simrun and by
// tests to drive several peers without a real network.
package transport

// WireInput is one input as carried on the wire (spec §6): either a
// binary-codec game input payload or a small typed join/leave/disconnect
// record, identified by Kind.
type WireInput struct {
	Seq      uint32
	ClientID string
	Frame    *int32 // nil means "unstamped", applied before the next unprocessed frame
	Kind     InputKind
	Data     []byte // binary-codec payload when Kind == KindGame
	User     string // present for KindJoin
}

// InputKind distinguishes a game input from a lifecycle event carried in
// the same input stream (spec §6).
type InputKind int

const (
	KindGame InputKind = iota
	KindJoin
	KindLeave
	KindDisconnect
)

// Handlers are the incoming callbacks a Transport invokes on its owning
// peer (spec §6). A peer registers exactly one Handlers value via
// SetHandlers before traffic starts flowing.
type Handlers struct {
	OnConnect           func(snapshot []byte, inputs []WireInput, frame int32, fps int, clientID string)
	OnTick              func(frame int32, inputs []WireInput)
	OnBinarySnapshot     func(data []byte)
	OnPartition         func(partition int, data []byte, frame int32)
	OnMajorityHash      func(frame int32, hash uint32)
	OnReliabilityUpdate func(scores map[string]float64)
	OnDisconnect        func()
}

// Transport is the push API the coordinator consumes (spec §6). Outgoing
// calls are synchronous from the coordinator's point of view: a
// LoopbackPeer forwards snapshots and partitions to the other peers within
// the same call, queues inputs until the Hub's next AdvanceFrame, and
// records state hashes for Hub.MajorityHash; a real transport would queue
// them for the wire.
type Transport interface {
	SendInput(data []byte) error
	SendSnapshot(data []byte, hash uint32, seq uint32, frame int32) error
	SendPartition(partition int, data []byte, frame int32) error
	SendStateHash(frame int32, hash uint32) error

	SetHandlers(h Handlers)
}

// InputSource polls locally captured input once per tick (spec §1: input
// capture from a browser is out of scope; this is the interface the
// coordinator consumes). Poll returns a binary-codec payload, or nil if
// there is nothing new this tick.
type InputSource interface {
	Poll() []byte
}

// Clock abstracts wall-clock time so the coordinator can derive a render
// interpolation alpha without depending on a concrete time source (spec
// §4.L step 7).
type Clock interface {
	Now() float64 // seconds, monotonic within a process
}

// Renderer is invoked once per tick on a peer that isn't headless (spec
// §1, §4.L step 7). alpha is in [0,1): how far between the last two
// confirmed snapshots wall-clock time has progressed. Render must never
// write simulation state; the coordinator only calls it, it never trusts
// it not to cheat — that discipline is the renderer's responsibility.
type Renderer interface {
	Render(alpha float64)
}
