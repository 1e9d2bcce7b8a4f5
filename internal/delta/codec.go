package delta

import (
	"fmt"
	"sort"

	"github.com/pthm-cable/syncsim/internal/codec"
	"github.com/pthm-cable/syncsim/internal/wecs"
)

// Encode serializes d with the binary codec (spec §4.J: "Serialization
// uses the binary codec"), so a delta travels on the wire the same way
// any other self-describing value does.
func Encode(d *Delta) ([]byte, error) {
	obj := codec.Object{
		{Key: "frame", Value: int64(d.Frame)},
		{Key: "baseHash", Value: d.BaseHash},
		{Key: "resultHash", Value: d.ResultHash},
		{Key: "created", Value: EncodeCreated(d.Created)},
		{Key: "deleted", Value: EncodeDeleted(d.Deleted)},
	}
	return codec.Encode(nil, obj)
}

// Decode is the inverse of Encode.
func Decode(buf []byte) (*Delta, error) {
	v, _, err := codec.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("delta: decode: %w", err)
	}
	obj, ok := v.(codec.Object)
	if !ok {
		return nil, fmt.Errorf("delta: decode: expected object at top level")
	}
	d := &Delta{}
	for _, kv := range obj {
		switch kv.Key {
		case "frame":
			d.Frame = int32(kv.Value.(int64))
		case "baseHash":
			d.BaseHash = uint32(kv.Value.(int64))
		case "resultHash":
			d.ResultHash = uint32(kv.Value.(int64))
		case "created":
			created, err := DecodeCreated(kv.Value)
			if err != nil {
				return nil, err
			}
			d.Created = created
		case "deleted":
			deleted, err := DecodeDeleted(kv.Value)
			if err != nil {
				return nil, err
			}
			d.Deleted = deleted
		}
	}
	return d, nil
}

func EncodeCreated(created []CreatedEntity) []codec.Value {
	out := make([]codec.Value, 0, len(created))
	for _, ce := range created {
		entry := codec.Object{
			{Key: "id", Value: uint32(ce.ID)},
			{Key: "type", Value: ce.TypeName},
			{Key: "components", Value: encodeComponentValues(ce.Components)},
		}
		if ce.ClientID != nil {
			entry = append(entry, codec.KV{Key: "clientId", Value: *ce.ClientID})
		}
		out = append(out, entry)
	}
	return out
}

func encodeComponentValues(components map[string]map[string]uint32) codec.Object {
	names := sortedKeys(components)
	out := make(codec.Object, 0, len(names))
	for _, name := range names {
		fields := components[name]
		fieldNames := sortedKeys(fields)
		fieldObj := make(codec.Object, 0, len(fieldNames))
		for _, fname := range fieldNames {
			fieldObj = append(fieldObj, codec.KV{Key: fname, Value: fields[fname]})
		}
		out = append(out, codec.KV{Key: name, Value: fieldObj})
	}
	return out
}

func EncodeDeleted(deleted []wecs.EntityID) []codec.Value {
	out := make([]codec.Value, 0, len(deleted))
	for _, id := range deleted {
		out = append(out, uint32(id))
	}
	return out
}

func DecodeCreated(v codec.Value) ([]CreatedEntity, error) {
	arr, ok := v.([]codec.Value)
	if !ok {
		return nil, fmt.Errorf("delta: decode: expected array for created")
	}
	out := make([]CreatedEntity, 0, len(arr))
	for _, item := range arr {
		entryObj, ok := item.(codec.Object)
		if !ok {
			return nil, fmt.Errorf("delta: decode: expected object in created[]")
		}
		ce := CreatedEntity{Components: make(map[string]map[string]uint32)}
		for _, kv := range entryObj {
			switch kv.Key {
			case "id":
				ce.ID = wecs.EntityID(kv.Value.(int64))
			case "type":
				ce.TypeName = kv.Value.(string)
			case "clientId":
				v := uint32(kv.Value.(int64))
				ce.ClientID = &v
			case "components":
				components, err := decodeComponentValues(kv.Value)
				if err != nil {
					return nil, err
				}
				ce.Components = components
			}
		}
		out = append(out, ce)
	}
	return out, nil
}

func decodeComponentValues(v codec.Value) (map[string]map[string]uint32, error) {
	obj, ok := v.(codec.Object)
	if !ok {
		return nil, fmt.Errorf("delta: decode: expected object for components")
	}
	out := make(map[string]map[string]uint32, len(obj))
	for _, kv := range obj {
		fieldObj, ok := kv.Value.(codec.Object)
		if !ok {
			return nil, fmt.Errorf("delta: decode: expected object for component %q", kv.Key)
		}
		fields := make(map[string]uint32, len(fieldObj))
		for _, fkv := range fieldObj {
			fields[fkv.Key] = uint32(fkv.Value.(int64))
		}
		out[kv.Key] = fields
	}
	return out, nil
}

func DecodeDeleted(v codec.Value) ([]wecs.EntityID, error) {
	arr, ok := v.([]codec.Value)
	if !ok {
		return nil, fmt.Errorf("delta: decode: expected array for deleted")
	}
	out := make([]wecs.EntityID, 0, len(arr))
	for _, item := range arr {
		out = append(out, wecs.EntityID(item.(int64)))
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
