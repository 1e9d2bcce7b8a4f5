package wecs

// CommandComponentName returns the generated component type name backing
// typeName's command schema (§9, "proxy/dynamic dispatch for inputs"): a
// component whose columns correspond to the declared commands, rather
// than an open map.
func CommandComponentName(typeName string) string {
	return typeName + ".commands"
}

// CommandSchemaFields compiles a CommandSchema into the field list its
// backing component registers: one Kind=KindU8 field per button, two
// Kind=KindI32 fields (X, Y) per vector, in declaration order.
func CommandSchemaFields(cs *CommandSchema) []FieldSchema {
	fields := make([]FieldSchema, 0, len(cs.Buttons)+2*len(cs.Vectors))
	for _, name := range cs.Buttons {
		fields = append(fields, FieldSchema{Name: "btn_" + name, Kind: KindU8, Synced: true})
	}
	for _, name := range cs.Vectors {
		fields = append(fields, FieldSchema{Name: "vec_" + name + "_x", Kind: KindI32, Synced: true})
		fields = append(fields, FieldSchema{Name: "vec_" + name + "_y", Kind: KindI32, Synced: true})
	}
	return fields
}

// RegisterCommandComponent registers the backing component schema for a
// prefab type's command set, if it declares one, and returns the
// generated component name ("" if cs is nil). Idempotent: registering the
// same prefab type's command schema twice is a no-op after the first call.
func RegisterCommandComponent(schemas *Registry, typeName string, cs *CommandSchema) string {
	if cs == nil {
		return ""
	}
	name := CommandComponentName(typeName)
	if schemas.Get(name) == nil {
		schemas.Register(Schema{Name: name, Fields: CommandSchemaFields(cs)})
	}
	return name
}

// SetButton writes a button command's pressed state for e, the "set" half
// of the §9 get(command) API.
func (w *World) SetButton(component, button string, e EntityID, pressed bool) bool {
	storage := w.storages[component]
	if storage == nil {
		return false
	}
	idx := storage.Schema().FieldIndex("btn_" + button)
	if idx < 0 {
		return false
	}
	var v uint32
	if pressed {
		v = 1
	}
	return storage.SetField(e, idx, v)
}

// GetButton reads a button command's pressed state for e (§9:
// "get(command) → bool|vec2").
func (w *World) GetButton(component, button string, e EntityID) (pressed, ok bool) {
	storage := w.storages[component]
	if storage == nil {
		return false, false
	}
	idx := storage.Schema().FieldIndex("btn_" + button)
	if idx < 0 {
		return false, false
	}
	v, ok := storage.GetField(e, idx)
	return v != 0, ok
}

// SetVector writes a vector command's (x, y) value for e.
func (w *World) SetVector(component, vector string, e EntityID, x, y int32) bool {
	storage := w.storages[component]
	if storage == nil {
		return false
	}
	schema := storage.Schema()
	xi, yi := schema.FieldIndex("vec_"+vector+"_x"), schema.FieldIndex("vec_"+vector+"_y")
	if xi < 0 || yi < 0 {
		return false
	}
	okX := storage.SetField(e, xi, uint32(x))
	okY := storage.SetField(e, yi, uint32(y))
	return okX && okY
}

// GetVector reads a vector command's (x, y) value for e (§9:
// "get(command) → bool|vec2").
func (w *World) GetVector(component, vector string, e EntityID) (x, y int32, ok bool) {
	storage := w.storages[component]
	if storage == nil {
		return 0, 0, false
	}
	schema := storage.Schema()
	xi, yi := schema.FieldIndex("vec_"+vector+"_x"), schema.FieldIndex("vec_"+vector+"_y")
	if xi < 0 || yi < 0 {
		return 0, 0, false
	}
	xv, okX := storage.GetField(e, xi)
	yv, okY := storage.GetField(e, yi)
	if !okX || !okY {
		return 0, 0, false
	}
	return int32(xv), int32(yv), true
}
