// Package snapshot implements the sparse world snapshot used for late-join
// catchup and rollback (spec §4.F): a capture of every piece of state a
// peer needs to resume simulating identically — the sorted active entity
// list, their component columns, and the allocator/string/PRNG state —
// with entity types that declare sync_none() omitted and types declaring
// sync_only([...]) trimmed to their listed fields.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/pthm-cable/syncsim/internal/intern"
	"github.com/pthm-cable/syncsim/internal/prng"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// EntitySnapshot is the per-entity metadata captured alongside the world
// (spec §3: perEntityMeta[i] = (eid, typeId, clientIdOpt)). TypeName plays
// the role of typeId — it is resolved back to a schema through the
// prefab registry on restore, exactly the way interned ids resolve
// through a string table.
type EntitySnapshot struct {
	ID       wecs.EntityID
	TypeName string
	ClientID *uint32
}

// ComponentBlock is one component type's packed column data: the field
// indices actually captured (all of them, unless the owning prefab
// declares sync_only) and, keyed by entity id for each captured entity
// that owns the component, the raw field values in that restricted field
// order. Encode writes the entries in ascending id order.
type ComponentBlock struct {
	FieldIndices []int
	Values       map[wecs.EntityID][]uint32
}

// Snapshot is a full capture of a World at a frame boundary.
type Snapshot struct {
	Frame      int32
	Seq        uint32
	PostTick   bool
	Alloc      wecs.AllocatorState
	Strings    []intern.NamespaceState
	RNG        prng.State
	Entities   []EntitySnapshot
	Components map[string]ComponentBlock // component name -> block
}

// Capture builds a Snapshot from the current state of w. seq is the
// highest input sequence whose effect is included; postTick indicates
// whether tick(frame)'s effect is included (§3).
func Capture(w *wecs.World, seq uint32, postTick bool) *Snapshot {
	s := &Snapshot{
		Frame:      w.Frame,
		Seq:        seq,
		PostTick:   postTick,
		Alloc:      w.Alloc.State(),
		Strings:    w.Strings.State(),
		RNG:        w.RNG.State(),
		Components: make(map[string]ComponentBlock),
	}

	componentNames := w.Schemas.SortedNames()
	for _, e := range w.ActiveEntities() {
		meta := w.Meta(e)
		if meta == nil {
			continue
		}
		prefab := w.Prefabs.Get(meta.TypeName)
		if prefab != nil && prefab.SyncNone {
			continue
		}
		s.Entities = append(s.Entities, EntitySnapshot{ID: e, TypeName: meta.TypeName, ClientID: meta.ClientID})
	}

	for _, name := range componentNames {
		storage := w.Storage(name)
		if storage == nil {
			continue
		}
		schema := storage.Schema()
		owners := make([]wecs.EntityID, 0)
		for _, es := range s.Entities {
			if storage.Has(es.ID) {
				owners = append(owners, es.ID)
			}
		}
		if len(owners) == 0 {
			continue
		}

		fields := fieldIndicesFor(w, s.Entities, name, schema)
		block := ComponentBlock{FieldIndices: fields, Values: make(map[wecs.EntityID][]uint32, len(owners))}
		for _, eid := range owners {
			values := make([]uint32, len(fields))
			for i, fi := range fields {
				v, _ := storage.GetField(eid, fi)
				values[i] = v
			}
			block.Values[eid] = values
		}
		s.Components[name] = block
	}

	return s
}

// fieldIndicesFor decides the field width of a component's snapshot
// column. A component's column has one fixed width per capture; if any
// prefab that owns an entity holding this component declares sync_only
// for it, that restriction applies to the whole column (component types
// shared across prefabs with conflicting sync_only declarations are not a
// case this domain's prefabs produce).
func fieldIndicesFor(w *wecs.World, entities []EntitySnapshot, component string, schema *wecs.Schema) []int {
	for _, es := range entities {
		prefab := w.Prefabs.Get(es.TypeName)
		if prefab == nil || prefab.SyncOnlyFields == nil {
			continue
		}
		names, ok := prefab.SyncOnlyFields[component]
		if !ok {
			continue
		}
		out := make([]int, 0, len(names))
		for _, n := range names {
			if idx := schema.FieldIndex(n); idx >= 0 {
				out = append(out, idx)
			}
		}
		return out
	}
	out := make([]int, len(schema.Fields))
	for i := range schema.Fields {
		out[i] = i
	}
	return out
}

// Restore clears w and recreates it from s: allocator, string tables, and
// PRNG state are restored first, then every captured entity is recreated
// by id via its prefab (which attaches default component values), then
// captured column values overwrite those defaults. Finally each restored
// entity's on_restore hook runs, in ascending id order (§4.F).
func Restore(w *wecs.World, s *Snapshot) error {
	w.Reset()
	w.Alloc.Restore(s.Alloc)
	w.Strings.Restore(s.Strings)
	w.RNG.Restore(s.RNG)
	w.Frame = s.Frame

	for _, es := range s.Entities {
		if w.Prefabs.Get(es.TypeName) == nil {
			// Unknown entity type on restore: skip, let the caller log it.
			// The peer is guaranteed to desync and will be resynced on the
			// next authoritative snapshot (spec §7).
			continue
		}
		if err := w.RestoreEntity(es.ID, es.TypeName, es.ClientID); err != nil {
			return fmt.Errorf("snapshot: restore entity %d: %w", es.ID, err)
		}
	}

	for component, block := range s.Components {
		storage := w.Storage(component)
		if storage == nil {
			continue
		}
		for eid, values := range block.Values {
			for i, fi := range block.FieldIndices {
				storage.SetField(eid, fi, values[i])
			}
		}
	}

	w.RunOnRestore()
	return nil
}

// Encode serializes s into the binary form (§4.F): a 4-byte frame number,
// a 2-byte entity count, a 4-byte seq, a 1-byte postTick flag, then
// length-prefixed sections so truncated input
// is always a decode error rather than a panic or silent corruption.
func Encode(s *Snapshot) ([]byte, error) {
	var buf []byte
	buf = appendU32(buf, uint32(s.Frame))
	buf = appendU16(buf, uint16(len(s.Entities)))
	buf = appendU32(buf, s.Seq)
	if s.PostTick {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	buf = appendSection(buf, encodeAllocator(s.Alloc))
	buf = appendSection(buf, encodeStrings(s.Strings))
	buf = appendSection(buf, encodeRNG(s.RNG))
	buf = appendSection(buf, encodeEntities(s.Entities))
	buf = appendSection(buf, encodeComponents(s.Components))

	return buf, nil
}

// jsonEntity is one entity's row in the indexed JSON dump.
type jsonEntity struct {
	TypeName   string                       `json:"type"`
	ClientID   *uint32                      `json:"client_id,omitempty"`
	Components map[string]map[string]uint32 `json:"components"`
}

// jsonDump is the debugging-only JSON form of a Snapshot: entities indexed
// by id, each carrying its component field values by name, rather than the
// column-oriented layout Encode produces for the wire.
type jsonDump struct {
	Frame    int32                        `json:"frame"`
	Seq      uint32                       `json:"seq"`
	PostTick bool                         `json:"post_tick"`
	Entities map[wecs.EntityID]jsonEntity `json:"entities"`
}

// EncodeJSON renders s as indexed JSON for human inspection
// (cmd/simrun -dump-snapshot), grounded on the same entity/component shape
// Encode packs into the wire format, but keyed by name instead of position
// so it can be read without the schema registry.
func EncodeJSON(s *Snapshot, schemas *wecs.Registry) ([]byte, error) {
	dump := jsonDump{
		Frame:    s.Frame,
		Seq:      s.Seq,
		PostTick: s.PostTick,
		Entities: make(map[wecs.EntityID]jsonEntity, len(s.Entities)),
	}
	for _, es := range s.Entities {
		dump.Entities[es.ID] = jsonEntity{
			TypeName:   es.TypeName,
			ClientID:   es.ClientID,
			Components: make(map[string]map[string]uint32),
		}
	}
	for component, block := range s.Components {
		schema := schemas.Get(component)
		for eid, values := range block.Values {
			entity, ok := dump.Entities[eid]
			if !ok {
				continue
			}
			fields := make(map[string]uint32, len(values))
			for i, fi := range block.FieldIndices {
				fields[fieldName(schema, fi)] = values[i]
			}
			entity.Components[component] = fields
		}
	}
	return json.MarshalIndent(dump, "", "  ")
}

func fieldName(schema *wecs.Schema, fieldIndex int) string {
	if schema == nil || fieldIndex < 0 || fieldIndex >= len(schema.Fields) {
		return fmt.Sprintf("field#%d", fieldIndex)
	}
	return schema.Fields[fieldIndex].Name
}

// Decode is the inverse of Encode. It rejects any input truncated before a
// declared section boundary.
func Decode(buf []byte) (*Snapshot, error) {
	if len(buf) < 11 {
		return nil, fmt.Errorf("snapshot: truncated header")
	}
	s := &Snapshot{Components: make(map[string]ComponentBlock)}
	s.Frame = int32(binary.BigEndian.Uint32(buf[0:4]))
	entityCount := int(binary.BigEndian.Uint16(buf[4:6]))
	s.Seq = binary.BigEndian.Uint32(buf[6:10])
	s.PostTick = buf[10] != 0
	pos := 11

	allocBytes, pos, err := readSection(buf, pos)
	if err != nil {
		return nil, err
	}
	s.Alloc, err = decodeAllocator(allocBytes)
	if err != nil {
		return nil, err
	}

	stringBytes, pos, err := readSection(buf, pos)
	if err != nil {
		return nil, err
	}
	s.Strings, err = decodeStrings(stringBytes)
	if err != nil {
		return nil, err
	}

	rngBytes, pos, err := readSection(buf, pos)
	if err != nil {
		return nil, err
	}
	s.RNG, err = decodeRNG(rngBytes)
	if err != nil {
		return nil, err
	}

	entityBytes, pos, err := readSection(buf, pos)
	if err != nil {
		return nil, err
	}
	s.Entities, err = decodeEntities(entityBytes, entityCount)
	if err != nil {
		return nil, err
	}

	componentBytes, _, err := readSection(buf, pos)
	if err != nil {
		return nil, err
	}
	s.Components, err = decodeComponents(componentBytes)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU16(buf, uint16(len(s)))
	return append(buf, s...)
}

func appendSection(buf, section []byte) []byte {
	buf = appendU32(buf, uint32(len(section)))
	return append(buf, section...)
}

func readSection(buf []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(buf) {
		return nil, 0, fmt.Errorf("snapshot: truncated section length at offset %d", pos)
	}
	n := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	if pos+n > len(buf) {
		return nil, 0, fmt.Errorf("snapshot: truncated section body at offset %d", pos)
	}
	return buf[pos : pos+n], pos + n, nil
}

func readString(buf []byte, pos int) (string, int, error) {
	if pos+2 > len(buf) {
		return "", 0, fmt.Errorf("snapshot: truncated string length")
	}
	n := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
	pos += 2
	if pos+n > len(buf) {
		return "", 0, fmt.Errorf("snapshot: truncated string body")
	}
	return string(buf[pos : pos+n]), pos + n, nil
}

func encodeAllocator(a wecs.AllocatorState) []byte {
	var buf []byte
	buf = appendU32(buf, a.HighWater)
	buf = appendU32(buf, uint32(len(a.Generations)))
	for _, g := range a.Generations {
		buf = appendU16(buf, g)
	}
	buf = appendU32(buf, uint32(len(a.FreeList)))
	for _, f := range a.FreeList {
		buf = appendU32(buf, f)
	}
	return buf
}

func decodeAllocator(buf []byte) (wecs.AllocatorState, error) {
	var a wecs.AllocatorState
	if len(buf) < 8 {
		return a, fmt.Errorf("snapshot: truncated allocator section")
	}
	a.HighWater = binary.BigEndian.Uint32(buf[0:4])
	genCount := int(binary.BigEndian.Uint32(buf[4:8]))
	pos := 8
	for i := 0; i < genCount; i++ {
		if pos+2 > len(buf) {
			return a, fmt.Errorf("snapshot: truncated allocator generations")
		}
		a.Generations = append(a.Generations, binary.BigEndian.Uint16(buf[pos:pos+2]))
		pos += 2
	}
	if pos+4 > len(buf) {
		return a, fmt.Errorf("snapshot: truncated allocator free-list length")
	}
	freeCount := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	for i := 0; i < freeCount; i++ {
		if pos+4 > len(buf) {
			return a, fmt.Errorf("snapshot: truncated allocator free-list")
		}
		a.FreeList = append(a.FreeList, binary.BigEndian.Uint32(buf[pos:pos+4]))
		pos += 4
	}
	return a, nil
}

func encodeRNG(r prng.State) []byte {
	var buf []byte
	buf = appendU32(buf, r.S0)
	buf = appendU32(buf, r.S1)
	return buf
}

func decodeRNG(buf []byte) (prng.State, error) {
	if len(buf) < 8 {
		return prng.State{}, fmt.Errorf("snapshot: truncated PRNG section")
	}
	return prng.State{
		S0: binary.BigEndian.Uint32(buf[0:4]),
		S1: binary.BigEndian.Uint32(buf[4:8]),
	}, nil
}

func encodeStrings(states []intern.NamespaceState) []byte {
	var buf []byte
	buf = appendU16(buf, uint16(len(states)))
	for _, ns := range states {
		buf = appendString(buf, ns.Namespace)
		buf = appendU32(buf, uint32(len(ns.Strings)))
		for _, s := range ns.Strings {
			buf = appendString(buf, s)
		}
	}
	return buf
}

func decodeStrings(buf []byte) ([]intern.NamespaceState, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("snapshot: truncated string section")
	}
	count := int(binary.BigEndian.Uint16(buf[0:2]))
	pos := 2
	out := make([]intern.NamespaceState, 0, count)
	for i := 0; i < count; i++ {
		ns, next, err := readString(buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+4 > len(buf) {
			return nil, fmt.Errorf("snapshot: truncated namespace string count")
		}
		strCount := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
		pos += 4
		strs := make([]string, 0, strCount)
		for j := 0; j < strCount; j++ {
			s, next, err := readString(buf, pos)
			if err != nil {
				return nil, err
			}
			pos = next
			strs = append(strs, s)
		}
		out = append(out, intern.NamespaceState{Namespace: ns, Strings: strs})
	}
	return out, nil
}

func encodeEntities(entities []EntitySnapshot) []byte {
	var buf []byte
	for _, e := range entities {
		buf = appendU32(buf, uint32(e.ID))
		buf = appendString(buf, e.TypeName)
		if e.ClientID != nil {
			buf = append(buf, 1)
			buf = appendU32(buf, *e.ClientID)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

func decodeEntities(buf []byte, count int) ([]EntitySnapshot, error) {
	pos := 0
	out := make([]EntitySnapshot, 0, count)
	for i := 0; i < count; i++ {
		if pos+4 > len(buf) {
			return nil, fmt.Errorf("snapshot: truncated entity id")
		}
		id := wecs.EntityID(binary.BigEndian.Uint32(buf[pos : pos+4]))
		pos += 4
		typeName, next, err := readString(buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+1 > len(buf) {
			return nil, fmt.Errorf("snapshot: truncated entity client flag")
		}
		hasClient := buf[pos] != 0
		pos++
		var clientID *uint32
		if hasClient {
			if pos+4 > len(buf) {
				return nil, fmt.Errorf("snapshot: truncated entity client id")
			}
			v := binary.BigEndian.Uint32(buf[pos : pos+4])
			clientID = &v
			pos += 4
		}
		out = append(out, EntitySnapshot{ID: id, TypeName: typeName, ClientID: clientID})
	}
	return out, nil
}

func encodeComponents(components map[string]ComponentBlock) []byte {
	var buf []byte
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sortStrings(names)
	buf = appendU16(buf, uint16(len(names)))
	for _, name := range names {
		block := components[name]
		buf = appendString(buf, name)
		buf = appendU16(buf, uint16(len(block.FieldIndices)))
		for _, fi := range block.FieldIndices {
			buf = appendU16(buf, uint16(fi))
		}
		eids := make([]uint32, 0, len(block.Values))
		for eid := range block.Values {
			eids = append(eids, uint32(eid))
		}
		sortUint32s(eids)
		buf = appendU32(buf, uint32(len(eids)))
		for _, eid := range eids {
			buf = appendU32(buf, eid)
			values := block.Values[wecs.EntityID(eid)]
			for _, v := range values {
				buf = appendU32(buf, v)
			}
		}
	}
	return buf
}

func decodeComponents(buf []byte) (map[string]ComponentBlock, error) {
	out := make(map[string]ComponentBlock)
	if len(buf) < 2 {
		return nil, fmt.Errorf("snapshot: truncated component section")
	}
	count := int(binary.BigEndian.Uint16(buf[0:2]))
	pos := 2
	for i := 0; i < count; i++ {
		name, next, err := readString(buf, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+2 > len(buf) {
			return nil, fmt.Errorf("snapshot: truncated field index count")
		}
		fieldCount := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
		pos += 2
		fields := make([]int, 0, fieldCount)
		for j := 0; j < fieldCount; j++ {
			if pos+2 > len(buf) {
				return nil, fmt.Errorf("snapshot: truncated field index")
			}
			fields = append(fields, int(binary.BigEndian.Uint16(buf[pos:pos+2])))
			pos += 2
		}
		if pos+4 > len(buf) {
			return nil, fmt.Errorf("snapshot: truncated entity value count")
		}
		entCount := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
		pos += 4
		values := make(map[wecs.EntityID][]uint32, entCount)
		for j := 0; j < entCount; j++ {
			if pos+4 > len(buf) {
				return nil, fmt.Errorf("snapshot: truncated component entity id")
			}
			eid := wecs.EntityID(binary.BigEndian.Uint32(buf[pos : pos+4]))
			pos += 4
			vals := make([]uint32, len(fields))
			for k := range fields {
				if pos+4 > len(buf) {
					return nil, fmt.Errorf("snapshot: truncated component value")
				}
				vals[k] = binary.BigEndian.Uint32(buf[pos : pos+4])
				pos += 4
			}
			values[eid] = vals
		}
		out[name] = ComponentBlock{FieldIndices: fields, Values: values}
	}
	return out, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func sortUint32s(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
