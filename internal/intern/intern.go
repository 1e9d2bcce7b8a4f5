// Package intern implements namespaced string interning with deterministic
// allocation: two peers that intern the same strings in the same order
// within the same namespace end up with identical string<->id tables,
// which is required for client ids to sort and hash identically.
package intern

// Table interns strings within a single namespace to small integers.
type Table struct {
	byString map[string]uint32
	byID     []string
}

// newTable creates an empty interning table.
func newTable() *Table {
	return &Table{byString: make(map[string]uint32)}
}

// Intern returns the id for s, allocating the next sequential id if s has
// not been seen in this namespace before.
func (t *Table) Intern(s string) uint32 {
	if id, ok := t.byString[s]; ok {
		return id
	}
	id := uint32(len(t.byID))
	t.byID = append(t.byID, s)
	t.byString[s] = id
	return id
}

// Lookup returns the id for s without allocating, and whether it exists.
func (t *Table) Lookup(s string) (uint32, bool) {
	id, ok := t.byString[s]
	return id, ok
}

// String returns the string for id, or "" if id is out of range.
func (t *Table) String(id uint32) string {
	if int(id) >= len(t.byID) {
		return ""
	}
	return t.byID[id]
}

// Len returns the number of interned strings.
func (t *Table) Len() int { return len(t.byID) }

// Registry owns one Table per namespace and tracks the next id per
// namespace so that restoring state deterministically reproduces future
// allocations.
type Registry struct {
	tables map[string]*Table
	order  []string // namespace creation order, for deterministic State()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

func (r *Registry) table(namespace string) *Table {
	t, ok := r.tables[namespace]
	if !ok {
		t = newTable()
		r.tables[namespace] = t
		r.order = append(r.order, namespace)
	}
	return t
}

// Intern interns s within namespace, allocating if necessary.
func (r *Registry) Intern(namespace, s string) uint32 {
	return r.table(namespace).Intern(s)
}

// Lookup looks up s within namespace without allocating.
func (r *Registry) Lookup(namespace, s string) (uint32, bool) {
	t, ok := r.tables[namespace]
	if !ok {
		return 0, false
	}
	return t.Lookup(s)
}

// String resolves an id within namespace back to its string.
func (r *Registry) String(namespace string, id uint32) string {
	t, ok := r.tables[namespace]
	if !ok {
		return ""
	}
	return t.String(id)
}

// NamespaceState is the serializable state of one namespace's table, used
// by the snapshot codec (§3: "stringRegistryState").
type NamespaceState struct {
	Namespace string
	Strings   []string // index == interned id
}

// State returns the full registry state in deterministic namespace
// creation order.
func (r *Registry) State() []NamespaceState {
	states := make([]NamespaceState, 0, len(r.order))
	for _, ns := range r.order {
		t := r.tables[ns]
		strs := make([]string, len(t.byID))
		copy(strs, t.byID)
		states = append(states, NamespaceState{Namespace: ns, Strings: strs})
	}
	return states
}

// Restore replaces the registry's contents with the given state. Allocation
// after Restore proceeds identically to the peer whose state was captured,
// because both byID order and the next-id counter (len(byID)) are restored.
func (r *Registry) Restore(states []NamespaceState) {
	r.tables = make(map[string]*Table)
	r.order = nil
	for _, ns := range states {
		t := newTable()
		for _, s := range ns.Strings {
			t.Intern(s)
		}
		r.tables[ns.Namespace] = t
		r.order = append(r.order, ns.Namespace)
	}
}
