package partition

import (
	"testing"

	"github.com/pthm-cable/syncsim/internal/delta"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

func TestCountClampsToOneAndToClientCount(t *testing.T) {
	if got := Count(10, 4, 50); got != 1 {
		t.Fatalf("Count(10,4,50) = %d, want 1", got)
	}
	if got := Count(1000, 4, 50); got != 4 {
		t.Fatalf("Count(1000,4,50) = %d, want 4 (clamped to client count)", got)
	}
	if got := Count(150, 10, 50); got != 3 {
		t.Fatalf("Count(150,10,50) = %d, want 3", got)
	}
}

func TestAssignCoversEveryPartitionWithRedundancy(t *testing.T) {
	clients := []ClientID{1, 2, 3, 4}
	rel := NewReliability(0)
	assignments := Assign(clients, 100, rel.Snapshot(clients), 3, 2)

	if len(assignments) != 3 {
		t.Fatalf("expected 3 partitions, got %d", len(assignments))
	}
	for _, a := range assignments {
		if len(a.Senders) < min(2, len(clients)) {
			t.Fatalf("partition %d has too few senders: %v", a.Partition, a.Senders)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestAssignIsDeterministicAcrossCalls(t *testing.T) {
	clients := []ClientID{1, 2, 3, 4, 5}
	rel := NewReliability(0)
	rel.Observe(3, false)

	a1 := Assign(clients, 42, rel.Snapshot(clients), 4, 2)
	a2 := Assign(clients, 42, rel.Snapshot(clients), 4, 2)

	for i := range a1 {
		if len(a1[i].Senders) != len(a2[i].Senders) {
			t.Fatalf("nondeterministic partition sizes at %d", i)
		}
		for j := range a1[i].Senders {
			if a1[i].Senders[j] != a2[i].Senders[j] {
				t.Fatalf("nondeterministic assignment at partition %d slot %d", i, j)
			}
		}
	}
}

func TestReliabilityRanksHigherScoreFirst(t *testing.T) {
	clients := []ClientID{1, 2}
	rel := NewReliability(1.0) // alpha=1 so Observe sets the score outright
	rel.Observe(1, false)
	rel.Observe(2, true)

	// Ranking is (reliability desc, clientId asc); Assign then rotates the
	// head by hash(frame, partition), so the sender is ranked[offset].
	ranked := []ClientID{2, 1}
	for frame := int32(0); frame < 8; frame++ {
		assignments := Assign(clients, frame, rel.Snapshot(clients), 1, 1)
		want := ranked[rotationOffset(frame, 0, len(ranked))]
		if assignments[0].Senders[0] != want {
			t.Fatalf("frame %d: expected sender %d from ranking %v (client 2 has higher reliability), got %v", frame, want, ranked, assignments[0].Senders)
		}
	}
}

func TestEntityPartitionIsModulo(t *testing.T) {
	if got := EntityPartition(wecs.EntityID(7), 3); got != 1 {
		t.Fatalf("EntityPartition(7,3) = %d, want 1", got)
	}
}

func TestExtractAndReassembleRoundTrip(t *testing.T) {
	d := &delta.Delta{
		Frame: 5,
		Created: []delta.CreatedEntity{
			{ID: 0}, {ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}, {ID: 6}, {ID: 7}, {ID: 8},
		},
	}
	const n = 3
	partitions := map[int][]wecs.EntityID{0: {0, 3, 6}, 1: {1, 4, 7}, 2: {2, 5, 8}}

	payloads := make([]Payload, 0, n)
	for p := 0; p < n; p++ {
		payload := Extract(d, p, n)
		payloads = append(payloads, payload)
		got := make([]wecs.EntityID, 0, len(payload.Created))
		for _, ce := range payload.Created {
			got = append(got, ce.ID)
		}
		if !equalIDs(got, partitions[p]) {
			t.Fatalf("partition %d = %v, want %v", p, got, partitions[p])
		}
	}

	reassembled, err := Reassemble(payloads)
	if err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	if len(reassembled.Created) != len(d.Created) {
		t.Fatalf("reassembled count = %d, want %d", len(reassembled.Created), len(d.Created))
	}
	for i := range reassembled.Created {
		if reassembled.Created[i].ID != wecs.EntityID(i) {
			t.Fatalf("reassembled not sorted ascending: %v", reassembled.Created)
		}
	}
}

func TestReassembleRejectsFrameMismatch(t *testing.T) {
	_, err := Reassemble([]Payload{{Frame: 1}, {Frame: 2}})
	if err == nil {
		t.Fatal("expected error on frame mismatch")
	}
}

func equalIDs(a, b []wecs.EntityID) bool {
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
