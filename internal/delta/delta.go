// Package delta computes the structural diff broadcast between snapshots
// (spec §4.J): since simulation is deterministic, peers already compute
// field values for surviving entities, so a delta only needs to carry
// which entities were created or deleted, plus hashes for verification.
package delta

import (
	"sort"

	"github.com/pthm-cable/syncsim/internal/snapshot"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// CreatedEntity is one entity present in curr but not prev (or present in
// curr with no prior snapshot at all), along with every synced component
// value captured for it.
type CreatedEntity struct {
	ID         wecs.EntityID
	TypeName   string
	ClientID   *uint32
	Components map[string]map[string]uint32 // component name -> field name -> value
}

// Delta is the wire payload describing the structural change between two
// snapshots of the same room.
type Delta struct {
	Frame      int32
	BaseHash   uint32
	ResultHash uint32
	Created    []CreatedEntity
	Deleted    []wecs.EntityID
}

// IsEmpty reports whether the delta carries no structural change, which is
// trivially decidable from the created/deleted lists (§4.J).
func (d *Delta) IsEmpty() bool {
	return len(d.Created) == 0 && len(d.Deleted) == 0
}

// Compute diffs prev (which may be nil, meaning "no prior snapshot") against
// curr, producing created/deleted lists sorted by eid ascending. schemas
// resolves each component's field indices back to field names so a
// receiver can read CreatedEntity payloads without sharing the sender's
// exact in-memory schema layout.
func Compute(prev, curr *snapshot.Snapshot, baseHash, resultHash uint32, schemas *wecs.Registry) *Delta {
	d := &Delta{Frame: curr.Frame, BaseHash: baseHash, ResultHash: resultHash}

	prevIDs := make(map[wecs.EntityID]bool)
	if prev != nil {
		for _, es := range prev.Entities {
			prevIDs[es.ID] = true
		}
	}
	currIDs := make(map[wecs.EntityID]bool, len(curr.Entities))
	for _, es := range curr.Entities {
		currIDs[es.ID] = true
	}

	for _, es := range curr.Entities {
		if prevIDs[es.ID] {
			continue
		}
		d.Created = append(d.Created, buildCreatedEntity(curr, es, schemas))
	}
	sort.Slice(d.Created, func(i, j int) bool { return d.Created[i].ID < d.Created[j].ID })

	if prev != nil {
		for _, es := range prev.Entities {
			if !currIDs[es.ID] {
				d.Deleted = append(d.Deleted, es.ID)
			}
		}
	}
	sort.Slice(d.Deleted, func(i, j int) bool { return d.Deleted[i] < d.Deleted[j] })

	return d
}

func buildCreatedEntity(curr *snapshot.Snapshot, es snapshot.EntitySnapshot, schemas *wecs.Registry) CreatedEntity {
	ce := CreatedEntity{
		ID:         es.ID,
		TypeName:   es.TypeName,
		ClientID:   es.ClientID,
		Components: make(map[string]map[string]uint32),
	}
	for component, block := range curr.Components {
		values, ok := block.Values[es.ID]
		if !ok {
			continue
		}
		schema := schemas.Get(component)
		fields := make(map[string]uint32, len(block.FieldIndices))
		for i, fi := range block.FieldIndices {
			fields[fieldName(schema, fi)] = values[i]
		}
		ce.Components[component] = fields
	}
	return ce
}

func fieldName(schema *wecs.Schema, fieldIndex int) string {
	if schema == nil || fieldIndex < 0 || fieldIndex >= len(schema.Fields) {
		return ""
	}
	return schema.Fields[fieldIndex].Name
}

// Apply reconstructs the structural entity set a peer should see after
// applying d to prev: prev's entities, minus d.Deleted, plus d.Created,
// sorted ascending by id. Since the simulation is deterministic, a peer
// already computes each surviving entity's field values itself; Apply only
// verifies structure, matching §8's delta-correctness property
// (`apply(delta(prev, curr), prev).entities == curr.entities`).
func Apply(prev []snapshot.EntitySnapshot, d *Delta) []snapshot.EntitySnapshot {
	deleted := make(map[wecs.EntityID]bool, len(d.Deleted))
	for _, id := range d.Deleted {
		deleted[id] = true
	}

	out := make([]snapshot.EntitySnapshot, 0, len(prev)+len(d.Created))
	for _, es := range prev {
		if deleted[es.ID] {
			continue
		}
		out = append(out, es)
	}
	for _, ce := range d.Created {
		out = append(out, snapshot.EntitySnapshot{ID: ce.ID, TypeName: ce.TypeName, ClientID: ce.ClientID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
