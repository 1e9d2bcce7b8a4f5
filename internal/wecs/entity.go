// Package wecs implements the deterministic entity-component world: the
// 32-bit generation|index entity allocator, struct-of-arrays component
// storage, and the phase scheduler (spec §4.B-§4.D). It is a from-scratch
// engine shaped like the teacher's mlange-42/ark API (a World owning
// entities and their components) but owns its own entity representation,
// because ark's entity ids do not expose the bit-packed generation/index
// layout or sorted free list the snapshot and rollback protocol require.
package wecs

import "fmt"

const (
	indexBits      = 20
	generationBits = 12
	indexMask      = (1 << indexBits) - 1
	generationMask = (1 << generationBits) - 1
	maxIndex       = 1 << indexBits
	maxGeneration  = 1 << generationBits
)

// EntityID packs a 12-bit generation and a 20-bit index: id = gen<<20 | index.
type EntityID uint32

// NewEntityID packs a generation and index into an EntityID.
func NewEntityID(generation uint16, index uint32) EntityID {
	return EntityID((uint32(generation) & generationMask << indexBits) | (index & indexMask))
}

// Index returns the 20-bit index component of the id.
func (e EntityID) Index() uint32 { return uint32(e) & indexMask }

// Generation returns the 12-bit generation component of the id.
func (e EntityID) Generation() uint16 { return uint16(uint32(e) >> indexBits & generationMask) }

// Nil is the zero EntityID. It is also the id the first Allocate on a fresh
// allocator returns (generation 0, index 0).
const Nil EntityID = 0

// ErrEntityLimitExceeded is returned when the index space (2^20) is
// exhausted. Per spec §7 this is fatal to the simulation.
var ErrEntityLimitExceeded = fmt.Errorf("wecs: entity index limit (2^%d) exceeded", indexBits)

// Allocator hands out EntityIDs with a sorted-ascending free list so that
// index recycling is deterministic and ABA-safe across peers.
type Allocator struct {
	generations []uint16 // per index, current generation
	freeList    []uint32 // sorted ascending
	highWater   uint32   // number of indices ever allocated
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocate returns the smallest available index: the head of the sorted
// free list if non-empty, otherwise the next unused index. Index 0 is a
// valid, allocatable index, so the first id handed out equals Nil.
func (a *Allocator) Allocate() (EntityID, error) {
	var idx uint32
	if len(a.freeList) > 0 {
		idx = a.freeList[0]
		a.freeList = a.freeList[1:]
	} else {
		if a.highWater >= maxIndex {
			return Nil, ErrEntityLimitExceeded
		}
		idx = a.highWater
		a.highWater++
		a.generations = append(a.generations, 0)
	}
	return NewEntityID(a.generations[idx], idx), nil
}

// Free releases id's index, incrementing its generation (wrapping at 4096)
// and inserting it back into the sorted free list.
func (a *Allocator) Free(id EntityID) {
	idx := id.Index()
	if idx >= uint32(len(a.generations)) {
		return
	}
	a.generations[idx] = uint16((uint32(a.generations[idx]) + 1) % maxGeneration)
	insertSorted(&a.freeList, idx)
}

func insertSorted(list *[]uint32, v uint32) {
	s := *list
	i := 0
	for i < len(s) && s[i] < v {
		i++
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	*list = s
}

// IsValid reports whether id refers to a currently live entity: its index
// is below the high-water mark and the stored generation matches.
func (a *Allocator) IsValid(id EntityID) bool {
	idx := id.Index()
	if idx >= uint32(len(a.generations)) {
		return false
	}
	return a.generations[idx] == id.Generation()
}

// AllocatorState is the serializable allocator state (spec §3: snapshot's
// idAllocatorState).
type AllocatorState struct {
	Generations []uint16
	FreeList    []uint32
	HighWater   uint32
}

// State returns a deep copy of the allocator's state.
func (a *Allocator) State() AllocatorState {
	gens := make([]uint16, len(a.generations))
	copy(gens, a.generations)
	free := make([]uint32, len(a.freeList))
	copy(free, a.freeList)
	return AllocatorState{Generations: gens, FreeList: free, HighWater: a.highWater}
}

// Restore replaces the allocator's state. After Restore, Allocate proceeds
// identically to the peer whose state was captured.
func (a *Allocator) Restore(s AllocatorState) {
	a.generations = append([]uint16(nil), s.Generations...)
	a.freeList = append([]uint32(nil), s.FreeList...)
	a.highWater = s.HighWater
}
