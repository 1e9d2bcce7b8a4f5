package wecs

func newTestWorld() (*World, *Schema) {
	schemas := NewRegistry()
	posSchema := schemas.Register(Schema{Name: "position", Fields: []FieldSchema{
		{Name: "x", Kind: KindI32, Synced: true},
		{Name: "y", Kind: KindI32, Synced: true},
	}})
	prefabs := NewPrefabRegistry()
	prefabs.Register(Prefab{
		TypeName: "food",
		Attach: []ComponentAttach{
			{Component: "position", Defaults: []uint32{0, 0}},
		},
	})
	return NewWorld(schemas, prefabs), posSchema
}
