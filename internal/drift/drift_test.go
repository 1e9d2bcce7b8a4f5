package drift

import (
	"testing"

	"github.com/pthm-cable/syncsim/internal/snapshot"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

func newWorld() (*wecs.World, *wecs.Registry) {
	schemas := wecs.NewRegistry()
	schemas.Register(wecs.Schema{Name: "position", Fields: []wecs.FieldSchema{
		{Name: "x", Kind: wecs.KindI32, Synced: true},
		{Name: "y", Kind: wecs.KindI32, Synced: true},
	}})
	prefabs := wecs.NewPrefabRegistry()
	prefabs.Register(wecs.Prefab{
		TypeName: "food",
		Attach:   []wecs.ComponentAttach{{Component: "position", Defaults: []uint32{0, 0}}},
	})
	return wecs.NewWorld(schemas, prefabs), schemas
}

func TestCompareFindsNoDriftOnIdenticalSnapshots(t *testing.T) {
	w, schemas := newWorld()
	e, _ := w.Spawn("food", nil)
	w.Storage("position").Set(e, []uint32{1, 2})

	s1 := snapshot.Capture(w, 0, true)
	s2 := snapshot.Capture(w, 0, true)

	report := Compare(s1, s2, schemas)
	if len(report.Drifted) != 0 {
		t.Fatalf("expected no drift, got %v", report.Drifted)
	}
	if report.TotalFields != 2 || report.MatchingFields != 2 {
		t.Fatalf("unexpected field counts: %+v", report)
	}
}

func TestCompareReportsDriftedField(t *testing.T) {
	w, schemas := newWorld()
	e, _ := w.Spawn("food", nil)
	w.Storage("position").Set(e, []uint32{1, 2})
	local := snapshot.Capture(w, 0, true)

	w.Storage("position").SetField(e, 0, 99)
	authoritative := snapshot.Capture(w, 0, true)

	report := Compare(local, authoritative, schemas)
	if len(report.Drifted) != 1 {
		t.Fatalf("expected exactly 1 drifted field, got %v", report.Drifted)
	}
	d := report.Drifted[0]
	if d.Field != "x" || d.Local != 1 || d.Server != 99 {
		t.Fatalf("drifted field wrong: %+v", d)
	}
	if report.MatchingFields != 1 || report.TotalFields != 2 {
		t.Fatalf("unexpected field counts: %+v", report)
	}
}
