// Package rollback implements the bounded ring of pre-tick world snapshots
// used to rewind and resimulate when a late input arrives (spec §4.H).
package rollback

import (
	"fmt"
	"sort"
)

// DefaultCapacity is the number of frames retained when none is configured
// (§4.H, §6 "rollbackCapacity").
const DefaultCapacity = 120

// ErrNotFound is returned by Get when frame is not in the buffer, either
// because it was never saved or because it has been evicted or pruned.
var ErrNotFound = fmt.Errorf("rollback: frame not found")

// Buffer is a ring of snapshots keyed by frame number. Snapshot is opaque
// here — callers decide what to store (typically the output of
// internal/snapshot).
type Buffer[T any] struct {
	capacity int
	entries  map[int32]T
	order    []int32 // insertion order, oldest first; used for eviction
}

// New creates a buffer with the given capacity. A non-positive capacity
// falls back to DefaultCapacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{
		capacity: capacity,
		entries:  make(map[int32]T),
	}
}

// Save inserts snapshot for frame, evicting the oldest entry if the buffer
// is at capacity. Saving an already-present frame overwrites it without
// consuming another eviction slot.
func (b *Buffer[T]) Save(frame int32, snapshot T) {
	if _, exists := b.entries[frame]; exists {
		b.entries[frame] = snapshot
		return
	}
	if len(b.order) >= b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.entries, oldest)
	}
	b.entries[frame] = snapshot
	b.order = append(b.order, frame)
}

// Get returns the snapshot saved for frame, or ErrNotFound.
func (b *Buffer[T]) Get(frame int32) (T, error) {
	v, ok := b.entries[frame]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return v, nil
}

// OldestFrame returns the oldest frame currently retained and whether the
// buffer is non-empty.
func (b *Buffer[T]) OldestFrame() (int32, bool) {
	if len(b.order) == 0 {
		return 0, false
	}
	return b.order[0], true
}

// ClearBefore prunes every entry older than frame (exclusive), called when
// a new player joins so the buffer can never roll back to a world that
// lacks them (§4.H).
func (b *Buffer[T]) ClearBefore(frame int32) {
	kept := b.order[:0]
	for _, f := range b.order {
		if f < frame {
			delete(b.entries, f)
			continue
		}
		kept = append(kept, f)
	}
	b.order = kept
}

// Len returns the number of snapshots currently retained.
func (b *Buffer[T]) Len() int { return len(b.order) }

// Frames returns the retained frame numbers in ascending order, primarily
// for diagnostics and tests.
func (b *Buffer[T]) Frames() []int32 {
	out := make([]int32, len(b.order))
	copy(out, b.order)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
