package partition

import (
	"fmt"

	"github.com/pthm-cable/syncsim/internal/codec"
	"github.com/pthm-cable/syncsim/internal/delta"
)

// Encode serializes a Payload with the binary codec, same as a full delta
// (§4.J), so Transport.SendPartition has concrete bytes to carry.
func Encode(p Payload) ([]byte, error) {
	obj := codec.Object{
		{Key: "frame", Value: int64(p.Frame)},
		{Key: "partition", Value: int64(p.Partition)},
		{Key: "numPartitions", Value: int64(p.NumPartitions)},
		{Key: "created", Value: delta.EncodeCreated(p.Created)},
		{Key: "deleted", Value: delta.EncodeDeleted(p.Deleted)},
	}
	return codec.Encode(nil, obj)
}

// Decode is the inverse of Encode.
func Decode(buf []byte) (Payload, error) {
	v, _, err := codec.Decode(buf)
	if err != nil {
		return Payload{}, fmt.Errorf("partition: decode: %w", err)
	}
	obj, ok := v.(codec.Object)
	if !ok {
		return Payload{}, fmt.Errorf("partition: decode: expected object at top level")
	}
	var p Payload
	for _, kv := range obj {
		switch kv.Key {
		case "frame":
			p.Frame = int32(kv.Value.(int64))
		case "partition":
			p.Partition = int(kv.Value.(int64))
		case "numPartitions":
			p.NumPartitions = int(kv.Value.(int64))
		case "created":
			created, err := delta.DecodeCreated(kv.Value)
			if err != nil {
				return Payload{}, err
			}
			p.Created = created
		case "deleted":
			deleted, err := delta.DecodeDeleted(kv.Value)
			if err != nil {
				return Payload{}, err
			}
			p.Deleted = deleted
		}
	}
	return p, nil
}
