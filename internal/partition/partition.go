// Package partition implements the deterministic assignment of broadcast
// responsibility for authoritative state across peers (spec §4.K): which
// clients publish which slice of entities, computed identically on every
// peer as a pure function of the active client set, the frame, and
// reliability scores.
package partition

import (
	"sort"

	"github.com/pthm-cable/syncsim/internal/statehash"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// DefaultTargetPerPartition is how many entities each partition aims to
// hold; numPartitions is derived from entity count and this constant
// (§7 Open Question resolution: partitionTarget default 50).
const DefaultTargetPerPartition = 50

// DefaultRedundancy is the number of senders assigned per partition
// (§4.K: "default k=2").
const DefaultRedundancy = 2

// ClientID is the canonical (interned) client identifier used for sort
// ordering (ascending, the tie-break after reliability).
type ClientID uint32

// Count computes numPartitions = clamp(ceil(entityCount/target), 1, numClients)
// (§7's resolution of the open "computePartitionCount" question).
func Count(entityCount, numClients, target int) int {
	if target <= 0 {
		target = DefaultTargetPerPartition
	}
	if numClients <= 0 {
		return 0
	}
	n := (entityCount + target - 1) / target
	if n < 1 {
		n = 1
	}
	if n > numClients {
		n = numClients
	}
	return n
}

// Assignment is the set of clients responsible for publishing one
// partition's entities.
type Assignment struct {
	Partition int
	Senders   []ClientID
}

// Assign computes, for every partition in [0, numPartitions), the top k
// clients by (reliability desc, clientId asc), with the ranking rotated
// deterministically by hash(frame, partition) so that a fixed ranking
// doesn't always hand every partition to the same head of the list
// (§4.K step 2). redundancy <= 0 falls back to DefaultRedundancy.
func Assign(clientsSorted []ClientID, frame int32, reliability map[ClientID]float64, numPartitions, redundancy int) []Assignment {
	if redundancy <= 0 {
		redundancy = DefaultRedundancy
	}
	ranked := make([]ClientID, len(clientsSorted))
	copy(ranked, clientsSorted)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := reliability[ranked[i]], reliability[ranked[j]]
		if ri != rj {
			return ri > rj
		}
		return ranked[i] < ranked[j]
	})

	assignments := make([]Assignment, numPartitions)
	n := len(ranked)
	k := redundancy
	if k > n {
		k = n
	}
	for p := 0; p < numPartitions; p++ {
		assignments[p] = Assignment{Partition: p, Senders: rotateAndTake(ranked, rotationOffset(frame, p, n), k)}
	}
	return assignments
}

// rotationOffset derives a deterministic rotation amount from (frame,
// partition) so every peer rotates the same way.
func rotationOffset(frame int32, partition, n int) int {
	if n == 0 {
		return 0
	}
	var buf [8]byte
	buf[0] = byte(frame)
	buf[1] = byte(frame >> 8)
	buf[2] = byte(frame >> 16)
	buf[3] = byte(frame >> 24)
	buf[4] = byte(partition)
	buf[5] = byte(partition >> 8)
	h := statehash.XXH32(buf[:], 0)
	return int(h % uint32(n))
}

func rotateAndTake(ranked []ClientID, offset, k int) []ClientID {
	n := len(ranked)
	if n == 0 {
		return nil
	}
	out := make([]ClientID, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, ranked[(offset+i)%n])
	}
	return out
}

// EntityPartition returns which partition an entity belongs to: eid mod
// numPartitions (§4.K).
func EntityPartition(id wecs.EntityID, numPartitions int) int {
	if numPartitions <= 0 {
		return 0
	}
	return int(uint32(id) % uint32(numPartitions))
}
