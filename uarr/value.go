package uarr

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Value is a sealed interface over the exact set of types the wire format
// can carry. Only the types in this file implement it, so encode and decode
// are exhaustive type switches rather than runtime type sniffing.
type Value interface {
	uarrValue() // sealed
}

// Null is an explicit JSON-style null. It occupies zero data bytes but keeps
// its field descriptor.
type Null struct{}

func (Null) uarrValue() {}

// Undefined marks a field that was present but carried no value. Like Null
// it occupies zero data bytes.
type Undefined struct{}

func (Undefined) uarrValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) uarrValue() {}

// Int is an integer value. The codec picks the narrowest lossless width at
// encode time (unsigned tags for non-negative values, signed otherwise);
// every integer tag decodes back to Int.
type Int int64

func (Int) uarrValue() {}

// Float is a non-integer number. All floats encode as f64; the f32 tag is
// accepted on decode for format completeness.
type Float float64

func (Float) uarrValue() {}

// String is a UTF-8 string value.
type String string

func (String) uarrValue() {}

// Bytes is an opaque byte string. It is also the fallback tag for inputs
// FromGo cannot represent any other way.
type Bytes []byte

func (Bytes) uarrValue() {}

// Array is an ordered, possibly heterogeneous sequence of values.
type Array []Value

func (Array) uarrValue() {}

// Map is a field map. Nested maps encode as length-prefixed nested UArr
// blobs.
type Map map[string]Value

func (Map) uarrValue() {}

// NodeRef holds a foreign node's id as a string. It is distinct from String
// on the wire so references survive round trips as references.
type NodeRef string

func (NodeRef) uarrValue() {}

// Time is a timestamp in nanoseconds since the Unix epoch.
type Time int64

func (Time) uarrValue() {}

// TimeOf converts a time.Time to a Time value.
func TimeOf(t time.Time) Time { return Time(t.UnixNano()) }

// Std returns the timestamp as a time.Time in UTC.
func (t Time) Std() time.Time { return time.Unix(0, int64(t)).UTC() }

// UUID is a 16-byte universally unique identifier.
type UUID uuid.UUID

func (UUID) uarrValue() {}

// String returns the canonical textual form of the UUID.
func (u UUID) String() string { return uuid.UUID(u).String() }

// FromGo converts a loose Go value into a Value. It never fails:
// unrepresentable inputs fall back to the raw-bytes tag, carrying their JSON
// (or, failing that, fmt) rendering.
func FromGo(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Value:
		return val
	case bool:
		return Bool(val)
	case string:
		return String(val)
	case int:
		return Int(val)
	case int8:
		return Int(val)
	case int16:
		return Int(val)
	case int32:
		return Int(val)
	case int64:
		return Int(val)
	case uint:
		return Int(val)
	case uint8:
		return Int(val)
	case uint16:
		return Int(val)
	case uint32:
		return Int(val)
	case float32:
		return Float(val)
	case float64:
		return Float(val)
	case []byte:
		return Bytes(val)
	case time.Time:
		return TimeOf(val)
	case uuid.UUID:
		return UUID(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = FromGo(elem)
		}
		return arr
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			m[k] = FromGo(elem)
		}
		return m
	default:
		data, err := json.Marshal(v)
		if err != nil {
			data = []byte(fmt.Sprint(v))
		}
		return Bytes(data)
	}
}
