// Package prng implements the deterministic xorshift128-style generator
// used by the simulation kernel. The generator is a pure function of its
// state: two peers seeded identically and advanced the same number of
// times produce identical sequences, which is what replication depends on.
package prng

import "github.com/pthm-cable/syncsim/internal/fixedmath"

// State is the (s0, s1) xorshift state. It is part of a world snapshot.
type State struct {
	S0, S1 uint32
}

// Rng wraps a State and advances it via NextU32.
type Rng struct {
	state State
}

// New creates a generator from explicit state. Both words zero is
// disallowed by xorshift (it is a fixed point); callers should seed with
// SeedFromRoomHash or explicit nonzero state.
func New(s0, s1 uint32) *Rng {
	if s0 == 0 && s1 == 0 {
		s0 = 0x9e3779b9
	}
	return &Rng{state: State{S0: s0, S1: s1}}
}

// SeedFromRoomHash derives initial (s0,s1) state from a room identifier
// hash, per §4.A: "PRNG is seeded by room id hash".
func SeedFromRoomHash(roomHash uint32) *Rng {
	s0 := roomHash ^ 0x9e3779b9
	s1 := (roomHash*0x85ebca6b + 0xc2b2ae35) | 1
	return New(s0, s1)
}

// State returns a copy of the current state, suitable for snapshotting.
func (r *Rng) State() State { return r.state }

// Restore replaces the generator's state, e.g. after a snapshot restore
// or rollback.
func (r *Rng) Restore(s State) { r.state = s }

// NextU32 advances the xorshift128 state and returns the next word. It is
// a pure function of the prior state.
func (r *Rng) NextU32() uint32 {
	x := r.state.S0
	y := r.state.S1
	r.state.S0 = y
	x ^= x << 23
	x ^= x >> 17
	x ^= y ^ (y >> 26)
	r.state.S1 = x
	return x + y
}

// DRandom returns a fixed-point value in [0,1) by masking and scaling the
// next generated word, per §4.A.
func (r *Rng) DRandom() fixedmath.Fixed {
	v := r.NextU32()
	// Keep the low 16 bits as the fractional part of a Q16.16 value in
	// [0,1); this is an exact masking-and-scaling operation, not a
	// float conversion.
	return fixedmath.Fixed(v & 0xFFFF)
}

// IntRange returns a deterministic integer in [0, n) for n > 0.
func (r *Rng) IntRange(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return r.NextU32() % n
}
