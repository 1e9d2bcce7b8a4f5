package transport

import "sort"

// Hub is an in-memory relay connecting several peers without a real
// network: it records the input stream and the latest authoritative
// snapshot the way a lossless relay server would, and delivers ticks,
// snapshots, partitions, and majority hashes synchronously when the
// driving harness asks it to. It never runs simulation itself.
//
// A real Transport only ever forwards bytes; Hub additionally remembers
// enough of the stream (the full lifecycle-event history, the latest
// snapshot, and per-frame reported hashes) to answer the join protocol
// and majority-hash questions the way a relay with persistent state
// would, so cmd/simrun and tests can drive several Games without a
// network stack.
type Hub struct {
	fps int

	peers map[string]*LoopbackPeer
	order []string

	nextSeq       uint32
	pendingInputs []WireInput
	allInputsLog  []WireInput

	latestSnapshotBytes []byte
	latestSnapshotHash  uint32
	latestSnapshotSeq   uint32
	latestSnapshotFrame int32
	haveSnapshot        bool

	currentFrame int32

	hashes map[int32]map[string]uint32

	partitionLog []partitionRecord
}

type partitionRecord struct {
	from      string
	partition int
	frame     int32
	data      []byte
}

// NewHub creates an empty relay ticking at fps frames per second (spec §6
// "tickRate", surfaced to joiners via on_connect).
func NewHub(fps int) *Hub {
	return &Hub{
		fps:    fps,
		peers:  make(map[string]*LoopbackPeer),
		hashes: make(map[int32]map[string]uint32),
	}
}

// Connect registers clientID and returns its Transport handle. The
// returned peer delivers nothing until the harness calls Admit for it.
func (h *Hub) Connect(clientID string) *LoopbackPeer {
	p := &LoopbackPeer{hub: h, clientID: clientID}
	h.peers[clientID] = p
	h.order = append(h.order, clientID)
	return p
}

// Admit fires the join protocol for clientID (spec §4.L "Join / late-join
// protocol"): the new peer's OnConnect fires synchronously with the
// current room state, and a join event is queued for delivery to every
// peer (the new one included) on the next AdvanceFrame, exactly as a join
// event on the wire would be.
func (h *Hub) Admit(clientID string) {
	p := h.peers[clientID]
	if p == nil {
		return
	}
	if p.handlers.OnConnect != nil {
		if h.haveSnapshot {
			p.handlers.OnConnect(h.latestSnapshotBytes, h.catchupInputs(h.latestSnapshotSeq), h.currentFrame, h.fps, clientID)
		} else {
			p.handlers.OnConnect(nil, h.catchupInputs(0), h.currentFrame, h.fps, clientID)
		}
	}
	h.enqueue(WireInput{Seq: h.nextSeq, ClientID: clientID, Kind: KindJoin, User: clientID})
}

// Leave queues a leave event for delivery on the next AdvanceFrame.
func (h *Hub) Leave(clientID string) {
	h.enqueue(WireInput{Seq: h.nextSeq, ClientID: clientID, Kind: KindLeave})
}

// Disconnect queues a disconnect event and fires the peer's own
// OnDisconnect callback immediately (spec §6 on_disconnect), then
// deregisters it from future broadcasts.
func (h *Hub) Disconnect(clientID string) {
	h.enqueue(WireInput{Seq: h.nextSeq, ClientID: clientID, Kind: KindDisconnect})
	if p := h.peers[clientID]; p != nil && p.handlers.OnDisconnect != nil {
		p.handlers.OnDisconnect()
	}
	delete(h.peers, clientID)
}

func (h *Hub) enqueue(in WireInput) {
	in.Seq = h.nextSeq
	h.nextSeq++
	h.pendingInputs = append(h.pendingInputs, in)
	h.allInputsLog = append(h.allInputsLog, in)
}

func (h *Hub) catchupInputs(sinceSeq uint32) []WireInput {
	out := make([]WireInput, 0, len(h.allInputsLog))
	for _, in := range h.allInputsLog {
		if in.Kind != KindGame || in.Seq > sinceSeq {
			out = append(out, in)
		}
	}
	return out
}

// AdvanceFrame flushes every input queued since the last call and
// delivers it to every connected peer's OnTick (spec §6 on_tick), stamped
// with frame. This is the harness's per-tick heartbeat: a headless
// driver calls it once per simulated frame, in lockstep with calling
// Tick on every Game.
func (h *Hub) AdvanceFrame(frame int32) {
	// Once frame is delivered the room moves on to frame+1, which is the
	// frame a peer admitted before the next AdvanceFrame catches up to.
	h.currentFrame = frame + 1
	batch := make([]WireInput, len(h.pendingInputs))
	copy(batch, h.pendingInputs)
	for i := range batch {
		f := frame
		batch[i].Frame = &f
	}
	h.pendingInputs = h.pendingInputs[:0]
	for _, clientID := range h.order {
		p, ok := h.peers[clientID]
		if !ok || p.handlers.OnTick == nil {
			continue
		}
		p.handlers.OnTick(frame, batch)
	}
}

// MajorityHash returns the most-reported hash for frame among everything
// submitted via SendStateHash so far, and whether any peer has reported.
// Ties break toward the smaller hash value so the computation is a pure
// function of the reported set, not of report order.
func (h *Hub) MajorityHash(frame int32) (uint32, bool) {
	byHash := h.hashes[frame]
	if len(byHash) == 0 {
		return 0, false
	}
	counts := make(map[uint32]int)
	for _, hash := range byHash {
		counts[hash]++
	}
	hashesSeen := make([]uint32, 0, len(counts))
	for hash := range counts {
		hashesSeen = append(hashesSeen, hash)
	}
	sort.Slice(hashesSeen, func(i, j int) bool { return hashesSeen[i] < hashesSeen[j] })
	best := hashesSeen[0]
	bestCount := counts[best]
	for _, hash := range hashesSeen[1:] {
		if counts[hash] > bestCount {
			best, bestCount = hash, counts[hash]
		}
	}
	return best, true
}

// BroadcastMajority computes the majority hash for frame and delivers it
// to every peer's OnMajorityHash (spec §4.L "desync detection").
func (h *Hub) BroadcastMajority(frame int32) {
	majority, ok := h.MajorityHash(frame)
	if !ok {
		return
	}
	for _, clientID := range h.order {
		p, ok := h.peers[clientID]
		if !ok || p.handlers.OnMajorityHash == nil {
			continue
		}
		p.handlers.OnMajorityHash(frame, majority)
	}
}

// PartitionsFor returns every partition payload recorded for frame,
// sorted by (partition, sender) for deterministic reassembly in tests.
func (h *Hub) PartitionsFor(frame int32) []partitionRecord {
	var out []partitionRecord
	for _, rec := range h.partitionLog {
		if rec.frame == frame {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].partition != out[j].partition {
			return out[i].partition < out[j].partition
		}
		return out[i].from < out[j].from
	})
	return out
}

// LoopbackPeer is the Transport handle Hub hands to each connected Game.
type LoopbackPeer struct {
	hub      *Hub
	clientID string
	handlers Handlers
}

// SetHandlers implements transport.Transport.
func (p *LoopbackPeer) SetHandlers(h Handlers) { p.handlers = h }

// SendInput implements transport.Transport: submits an unstamped game
// input, queued for delivery on the next AdvanceFrame.
func (p *LoopbackPeer) SendInput(data []byte) error {
	p.hub.enqueue(WireInput{ClientID: p.clientID, Kind: KindGame, Data: data})
	return nil
}

// SendSnapshot implements transport.Transport: records the authoritative
// snapshot and forwards it to every other peer's OnBinarySnapshot.
func (p *LoopbackPeer) SendSnapshot(data []byte, hash uint32, seq uint32, frame int32) error {
	p.hub.latestSnapshotBytes = data
	p.hub.latestSnapshotHash = hash
	p.hub.latestSnapshotSeq = seq
	p.hub.latestSnapshotFrame = frame
	p.hub.haveSnapshot = true
	for _, clientID := range p.hub.order {
		if clientID == p.clientID {
			continue
		}
		peer, ok := p.hub.peers[clientID]
		if !ok || peer.handlers.OnBinarySnapshot == nil {
			continue
		}
		peer.handlers.OnBinarySnapshot(data)
	}
	return nil
}

// SendPartition implements transport.Transport: records the partition
// payload for later inspection via Hub.PartitionsFor and forwards it to
// every other peer's OnPartition, same as a relay rebroadcasting a
// partition publish to the room (spec §4.L step 6).
func (p *LoopbackPeer) SendPartition(partition int, data []byte, frame int32) error {
	p.hub.partitionLog = append(p.hub.partitionLog, partitionRecord{from: p.clientID, partition: partition, frame: frame, data: data})
	for _, clientID := range p.hub.order {
		if clientID == p.clientID {
			continue
		}
		peer, ok := p.hub.peers[clientID]
		if !ok || peer.handlers.OnPartition == nil {
			continue
		}
		peer.handlers.OnPartition(partition, data, frame)
	}
	return nil
}

// SendStateHash implements transport.Transport: records the reported hash
// for majority computation.
func (p *LoopbackPeer) SendStateHash(frame int32, hash uint32) error {
	m := p.hub.hashes[frame]
	if m == nil {
		m = make(map[string]uint32)
		p.hub.hashes[frame] = m
	}
	m[p.clientID] = hash
	return nil
}
