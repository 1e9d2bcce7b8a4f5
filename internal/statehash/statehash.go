// Package statehash computes the canonical state hash used for desync
// detection (spec §4.G). Two peers holding the same simulated state must
// compute identical hashes; the hash must never depend on map iteration
// order, pointer identity, or any field marked non-synced.
package statehash

import (
	"encoding/binary"

	"github.com/pthm-cable/syncsim/internal/wecs"
)

// Compute hashes frame, entity count, and then every synced field of every
// active entity, in ascending entity id order and ascending component
// type-name order, each field's declared schema order (§4.G). Fields with
// Synced == false are skipped: they exist for diagnostics only and must
// never perturb the hash.
func Compute(w *wecs.World) uint32 {
	var buf []byte
	buf = appendU32(buf, uint32(w.Frame))

	entities := w.ActiveEntities()
	buf = appendU32(buf, uint32(len(entities)))

	componentNames := w.Schemas.SortedNames()

	for _, e := range entities {
		buf = appendU32(buf, uint32(e))
		for _, name := range componentNames {
			storage := w.Storage(name)
			if storage == nil || !storage.Has(e) {
				continue
			}
			schema := storage.Schema()
			for i, field := range schema.Fields {
				if !field.Synced {
					continue
				}
				raw, ok := storage.GetField(e, i)
				if !ok {
					continue
				}
				buf = appendU32(buf, wecs.SignExtend32(field.Kind, raw))
			}
		}
	}

	return XXH32(buf, 0)
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
