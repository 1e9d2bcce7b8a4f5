// Package drift implements field-level divergence diagnosis (spec §4.M):
// when an authoritative snapshot arrives, compare it to the local
// same-frame snapshot field-by-field in canonical order. This is
// diagnostic only — never in the critical path of the tick loop.
package drift

import (
	"fmt"
	"sort"

	"github.com/pthm-cable/syncsim/internal/snapshot"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// Drifted describes one field that disagreed between the local and
// authoritative snapshots.
type Drifted struct {
	EntityType string
	EntityID   wecs.EntityID
	Component  string
	Field      string
	Local      uint32
	Server     uint32
}

// Report is the outcome of comparing a local snapshot to an authoritative
// one.
type Report struct {
	MatchingFields int
	TotalFields    int
	Drifted        []Drifted
}

// Compare walks local and authoritative in canonical order (ascending
// entity id, ascending component name, schema field order) and reports
// every field that disagrees. schemas resolves component field names.
func Compare(local, authoritative *snapshot.Snapshot, schemas *wecs.Registry) Report {
	var report Report

	localByID := make(map[wecs.EntityID]snapshot.EntitySnapshot, len(local.Entities))
	for _, es := range local.Entities {
		localByID[es.ID] = es
	}

	componentNames := make([]string, 0, len(authoritative.Components))
	for component := range authoritative.Components {
		componentNames = append(componentNames, component)
	}
	sort.Strings(componentNames)

	for _, es := range authoritative.Entities {
		localEs, ok := localByID[es.ID]
		if !ok {
			continue // structural mismatch, not a field drift; handled elsewhere.
		}
		for _, component := range componentNames {
			block := authoritative.Components[component]
			serverValues, ok := block.Values[es.ID]
			if !ok {
				continue
			}
			localBlock, ok := local.Components[component]
			if !ok {
				continue
			}
			localValues, ok := localBlock.Values[localEs.ID]
			if !ok {
				continue
			}
			schema := schemas.Get(component)
			for i, fi := range block.FieldIndices {
				if i >= len(localValues) {
					continue
				}
				report.TotalFields++
				if localValues[i] == serverValues[i] {
					report.MatchingFields++
					continue
				}
				report.Drifted = append(report.Drifted, Drifted{
					EntityType: es.TypeName,
					EntityID:   es.ID,
					Component:  component,
					Field:      fieldName(schema, fi),
					Local:      localValues[i],
					Server:     serverValues[i],
				})
			}
		}
	}
	return report
}

func fieldName(schema *wecs.Schema, fieldIndex int) string {
	if schema == nil || fieldIndex < 0 || fieldIndex >= len(schema.Fields) {
		return fmt.Sprintf("field#%d", fieldIndex)
	}
	return schema.Fields[fieldIndex].Name
}
