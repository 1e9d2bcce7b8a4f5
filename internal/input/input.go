// Package input implements the per-frame, per-client input buffer with
// prediction, late-input rollback marking, and resimulation bookkeeping
// (spec §4.I).
package input

import "sort"

// DefaultMaxRollbackDistance bounds how far back a late input can force a
// rollback (§4.I, §6 "maxRollbackDistance").
const DefaultMaxRollbackDistance = 30

// ClientID is a small interned integer, the canonical sort key for inputs
// within a frame (§4.I: "sorted by clientId ascending").
type ClientID uint32

// Input is one client's payload for a single frame. Predicted reports
// whether this entry was synthesized by "repeat last" rather than
// confirmed from the network.
type Input struct {
	Client    ClientID
	Data      []byte
	Predicted bool
}

// DroppedLateInput describes a late input that arrived for a frame older
// than the oldest retained snapshot and was discarded (§4.I).
type DroppedLateInput struct {
	Frame  int32
	Client ClientID
}

// Buffer stores inputs per frame per client and tracks the last confirmed
// input per client for "repeat last" prediction.
type Buffer struct {
	maxRollbackDistance int32

	frames       map[int32]map[ClientID]Input
	lastConfirmed map[ClientID]Input

	pendingRollbackFrame int32
	hasPendingRollback   bool

	dropped []DroppedLateInput
}

// NewBuffer creates an input buffer. maxRollbackDistance <= 0 falls back
// to DefaultMaxRollbackDistance.
func NewBuffer(maxRollbackDistance int32) *Buffer {
	if maxRollbackDistance <= 0 {
		maxRollbackDistance = DefaultMaxRollbackDistance
	}
	return &Buffer{
		maxRollbackDistance: maxRollbackDistance,
		frames:              make(map[int32]map[ClientID]Input),
		lastConfirmed:       make(map[ClientID]Input),
	}
}

// Confirm records a confirmed (non-predicted) input for client at frame.
// Arriving for the current or a future frame is the ordinary path;
// arriving for a past frame is a late input and is handled by
// ApplyLateInput instead.
func (b *Buffer) Confirm(frame int32, client ClientID, data []byte) {
	b.set(frame, client, Input{Client: client, Data: data, Predicted: false})
	b.lastConfirmed[client] = Input{Client: client, Data: data, Predicted: false}
}

func (b *Buffer) set(frame int32, client ClientID, in Input) {
	m, ok := b.frames[frame]
	if !ok {
		m = make(map[ClientID]Input)
		b.frames[frame] = m
	}
	m[client] = in
}

// PredictMissing fills in any client present in knownClients without a
// confirmed input at frame by repeating their last confirmed input (or a
// predicted input with nil data if none exists yet).
func (b *Buffer) PredictMissing(frame int32, knownClients []ClientID) {
	m, ok := b.frames[frame]
	if !ok {
		m = make(map[ClientID]Input)
		b.frames[frame] = m
	}
	for _, c := range knownClients {
		if _, present := m[c]; present {
			continue
		}
		if last, ok := b.lastConfirmed[c]; ok {
			m[c] = Input{Client: c, Data: last.Data, Predicted: true}
		} else {
			m[c] = Input{Client: c, Data: nil, Predicted: true}
		}
	}
}

// FrameInputs returns the inputs recorded for frame, sorted ascending by
// clientId — the canonical processing order (§4.I step 1).
func (b *Buffer) FrameInputs(frame int32) []Input {
	m := b.frames[frame]
	out := make([]Input, 0, len(m))
	for _, in := range m {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}

// ApplyLateInput handles an input that arrived for frame f, which may
// already have been processed (f < currentFrame). oldestSnapshotFrame is
// the oldest frame the rollback buffer can restore to. Returns whether a
// rollback is now pending and, if so, the frame to roll back to; returns
// ok=false if the input was too old and has been dropped (recorded via
// Dropped()).
func (b *Buffer) ApplyLateInput(f, currentFrame, oldestSnapshotFrame int32, client ClientID, data []byte) (pendingFrame int32, ok bool) {
	if f < oldestSnapshotFrame {
		b.dropped = append(b.dropped, DroppedLateInput{Frame: f, Client: client})
		return 0, false
	}

	existing, hadInput := b.frames[f][client]
	changed := !hadInput || existing.Predicted || !bytesEqual(existing.Data, data)

	b.set(f, client, Input{Client: client, Data: data, Predicted: false})
	b.lastConfirmed[client] = Input{Client: client, Data: data, Predicted: false}

	if f >= currentFrame || !changed {
		return 0, false
	}

	if !b.hasPendingRollback || f < b.pendingRollbackFrame {
		b.pendingRollbackFrame = f
		b.hasPendingRollback = true
	}
	return b.pendingRollbackFrame, true
}

// PendingRollback returns the frame to roll back to and whether a rollback
// is currently pending.
func (b *Buffer) PendingRollback() (int32, bool) {
	return b.pendingRollbackFrame, b.hasPendingRollback
}

// ClearPendingRollback resets pending-rollback state after the coordinator
// has performed the rollback and resimulated forward.
func (b *Buffer) ClearPendingRollback() {
	b.hasPendingRollback = false
	b.pendingRollbackFrame = 0
}

// Dropped returns every late input dropped so far for logging, and clears
// the list.
func (b *Buffer) Dropped() []DroppedLateInput {
	out := b.dropped
	b.dropped = nil
	return out
}

// MaxRollbackDistance returns the configured cap.
func (b *Buffer) MaxRollbackDistance() int32 { return b.maxRollbackDistance }

// ExceedsRollbackDistance reports whether rolling back from currentFrame to
// targetFrame exceeds the configured cap (§4.I: "exceeding it triggers a
// desync escalation").
func (b *Buffer) ExceedsRollbackDistance(currentFrame, targetFrame int32) bool {
	return currentFrame-targetFrame > b.maxRollbackDistance
}

// Prune discards buffered frame data strictly older than frame, called
// after a rollback buffer prune to keep the input buffer's retention in
// step.
func (b *Buffer) Prune(frame int32) {
	for f := range b.frames {
		if f < frame {
			delete(b.frames, f)
		}
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
