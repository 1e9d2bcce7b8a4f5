package wecs

import "sort"

// Storage is the struct-of-arrays backing store for one component type:
// a packed array of entity ids holding the component plus one raw u32
// column per field, all sharing the same length and slot index. Every
// numeric field kind (i8..u32, and f32 bit-reinterpreted) fits in a u32,
// so a single []uint32 per field serves every declared primitive.
type Storage struct {
	schema  *Schema
	entities []EntityID   // slot -> entity
	reverse  map[EntityID]int // entity -> slot
	columns  [][]uint32   // field index -> column values, len == len(entities)
}

// NewStorage creates an empty storage for schema.
func NewStorage(schema *Schema) *Storage {
	return &Storage{
		schema:  schema,
		reverse: make(map[EntityID]int),
		columns: make([][]uint32, len(schema.Fields)),
	}
}

// Len returns the number of entities currently holding this component.
func (s *Storage) Len() int { return len(s.entities) }

// Has reports whether e currently holds this component.
func (s *Storage) Has(e EntityID) bool {
	_, ok := s.reverse[e]
	return ok
}

// Add attaches the component to e with the given field values (ordered to
// match schema.Fields). Adding to an already-present entity is a caller
// error and returns false.
func (s *Storage) Add(e EntityID, values []uint32) bool {
	if s.Has(e) {
		return false
	}
	slot := len(s.entities)
	s.entities = append(s.entities, e)
	for i := range s.columns {
		var v uint32
		if i < len(values) {
			v = values[i]
		}
		s.columns[i] = append(s.columns[i], v)
	}
	s.reverse[e] = slot
	return true
}

// Remove detaches the component from e, swapping the last slot into the
// freed one and updating the reverse map. Removing an absent entity is a
// no-op.
func (s *Storage) Remove(e EntityID) {
	slot, ok := s.reverse[e]
	if !ok {
		return
	}
	last := len(s.entities) - 1
	if slot != last {
		movedEntity := s.entities[last]
		s.entities[slot] = movedEntity
		s.reverse[movedEntity] = slot
		for i := range s.columns {
			s.columns[i][slot] = s.columns[i][last]
		}
	}
	s.entities = s.entities[:last]
	for i := range s.columns {
		s.columns[i] = s.columns[i][:last]
	}
	delete(s.reverse, e)
}

// Get returns the raw field values for e in schema field order, and
// whether e holds the component.
func (s *Storage) Get(e EntityID) ([]uint32, bool) {
	slot, ok := s.reverse[e]
	if !ok {
		return nil, false
	}
	values := make([]uint32, len(s.columns))
	for i, col := range s.columns {
		values[i] = col[slot]
	}
	return values, true
}

// Set overwrites the field values for e. e must already hold the
// component.
func (s *Storage) Set(e EntityID, values []uint32) bool {
	slot, ok := s.reverse[e]
	if !ok {
		return false
	}
	for i := range s.columns {
		if i < len(values) {
			s.columns[i][slot] = values[i]
		}
	}
	return true
}

// SetField overwrites a single field of e by schema field index.
func (s *Storage) SetField(e EntityID, fieldIdx int, value uint32) bool {
	slot, ok := s.reverse[e]
	if !ok || fieldIdx < 0 || fieldIdx >= len(s.columns) {
		return false
	}
	s.columns[fieldIdx][slot] = value
	return true
}

// GetField reads a single field of e by schema field index.
func (s *Storage) GetField(e EntityID, fieldIdx int) (uint32, bool) {
	slot, ok := s.reverse[e]
	if !ok || fieldIdx < 0 || fieldIdx >= len(s.columns) {
		return 0, false
	}
	return s.columns[fieldIdx][slot], true
}

// Entities returns the entities holding this component in ascending id
// order. Internal storage uses swap-removal for O(1) Remove, which does
// not preserve id order in the backing array, so this method materializes
// a freshly sorted copy every call. Snapshots and the state hash do not
// call this method; they iterate World.ActiveEntities, which is sorted the
// same way, so both see ascending entity id order (§3) regardless of
// insertion history.
func (s *Storage) Entities() []EntityID {
	out := make([]EntityID, len(s.entities))
	copy(out, s.entities)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Schema returns the component schema this storage was created for.
func (s *Storage) Schema() *Schema { return s.schema }
