package wecs

// ComponentAttach is one component a prefab attaches at spawn time, with
// its default field values in schema field order.
type ComponentAttach struct {
	Component string
	Defaults  []uint32
}

// CommandSchema is a per-entity-type input command schema: a set of named
// commands, each either a button or a 2D vector (§9, "proxy/dynamic
// dispatch for inputs"). It backs a component whose columns correspond to
// the declared commands rather than an open map.
type CommandSchema struct {
	Buttons []string
	Vectors []string
}

// Prefab is a registered entity type: its component list with default
// values, an optional input command schema, and snapshot participation
// rules (§4.F).
type Prefab struct {
	TypeName string
	Attach   []ComponentAttach

	// SyncNone omits entities of this type from snapshots entirely; they
	// must be recreated locally by the host on restore (client-only
	// entities, e.g. purely cosmetic effects).
	SyncNone bool

	// SyncOnlyFields restricts snapshot participation to the listed
	// fields per component ("component -> field names"). A component not
	// present in this map uses its schema's default sync mask. Nil means
	// no restriction beyond the schema.
	SyncOnlyFields map[string][]string

	Commands *CommandSchema

	// OnRestore is invoked once per entity of this type after a snapshot
	// restore completes, letting the host re-hydrate client-local state
	// (§4.F).
	OnRestore func(w *World, e EntityID)
}

// PrefabRegistry owns all registered prefabs, keyed by type name.
type PrefabRegistry struct {
	prefabs map[string]*Prefab
}

// NewPrefabRegistry creates an empty prefab registry.
func NewPrefabRegistry() *PrefabRegistry {
	return &PrefabRegistry{prefabs: make(map[string]*Prefab)}
}

// Register adds a prefab definition.
func (r *PrefabRegistry) Register(p Prefab) *Prefab {
	cp := p
	r.prefabs[p.TypeName] = &cp
	return &cp
}

// Get returns the prefab for typeName, or nil.
func (r *PrefabRegistry) Get(typeName string) *Prefab {
	return r.prefabs[typeName]
}
