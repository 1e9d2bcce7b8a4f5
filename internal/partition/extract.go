package partition

import (
	"fmt"
	"sort"

	"github.com/pthm-cable/syncsim/internal/delta"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// Payload is one partition's slice of a frame's delta, independently
// publishable and reassemblable (§4.K: "get_partition(delta, p, n)").
type Payload struct {
	Frame         int32
	Partition     int
	NumPartitions int
	Created       []delta.CreatedEntity
	Deleted       []wecs.EntityID
}

// Extract returns the slice of d whose entities map to partition p under n
// partitions.
func Extract(d *delta.Delta, p, n int) Payload {
	out := Payload{Frame: d.Frame, Partition: p, NumPartitions: n}
	for _, ce := range d.Created {
		if EntityPartition(ce.ID, n) == p {
			out.Created = append(out.Created, ce)
		}
	}
	for _, id := range d.Deleted {
		if EntityPartition(id, n) == p {
			out.Deleted = append(out.Deleted, id)
		}
	}
	return out
}

// Reassemble concatenates partition payloads for the same frame back into
// a single delta's created/deleted lists, sorted by eid ascending.
// Payloads whose frame fields disagree cannot be assembled (§4.K).
func Reassemble(payloads []Payload) (*delta.Delta, error) {
	if len(payloads) == 0 {
		return &delta.Delta{}, nil
	}
	frame := payloads[0].Frame
	out := &delta.Delta{Frame: frame}
	for _, p := range payloads {
		if p.Frame != frame {
			return nil, fmt.Errorf("partition: cannot reassemble, frame mismatch %d != %d", p.Frame, frame)
		}
		out.Created = append(out.Created, p.Created...)
		out.Deleted = append(out.Deleted, p.Deleted...)
	}
	sort.Slice(out.Created, func(i, j int) bool { return out.Created[i].ID < out.Created[j].ID })
	sort.Slice(out.Deleted, func(i, j int) bool { return out.Deleted[i] < out.Deleted[j] })
	return out, nil
}
