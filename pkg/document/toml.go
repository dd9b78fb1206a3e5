package document

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DecodeTOML parses a TOML document. TOML tables carry no reliable order
// through go-toml's generic decoding, so keys are sorted.
func DecodeTOML(data []byte) (Value, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Value{}, err
	}
	return FromAny(raw)
}

// EncodeTOML writes v as TOML. The root must be an object.
func EncodeTOML(v Value) ([]byte, error) {
	if v.kind != Object {
		return nil, fmt.Errorf("toml document root must be a table, got %s", v.kind)
	}
	raw, err := ToAny(withoutNulls(v))
	if err != nil {
		return nil, err
	}
	return toml.Marshal(raw)
}

// withoutNulls drops null entries and elements; TOML has no null.
func withoutNulls(v Value) Value {
	switch v.kind {
	case Object:
		m := NewMap()
		for _, k := range v.obj.Keys() {
			child, _ := v.obj.Get(k)
			if child.kind == Null {
				continue
			}
			m.Set(k, withoutNulls(child))
		}
		return ObjectValue(m)
	case Array:
		elems := make([]Value, 0, len(v.arr))
		for _, e := range v.arr {
			if e.kind == Null {
				continue
			}
			elems = append(elems, withoutNulls(e))
		}
		return ArrayValue(elems...)
	}
	return v
}

// FromAny converts decoded generic data (maps, slices, scalars) into a tree.
// Map keys are sorted for determinism.
func FromAny(in interface{}) (Value, error) {
	switch t := in.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint64:
		return NumberValue(strconv.FormatUint(t, 10)), nil
	case float64:
		return FloatValue(t), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			child, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m.Set(k, child)
		}
		return ObjectValue(m), nil
	case []interface{}:
		elems := make([]Value, 0, len(t))
		for i, e := range t {
			child, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			elems = append(elems, child)
		}
		return ArrayValue(elems...), nil
	case []map[string]interface{}:
		elems := make([]Value, 0, len(t))
		for _, e := range t {
			child, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, child)
		}
		return ArrayValue(elems...), nil
	case time.Time, toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return OpaqueValue(t), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", in)
}

// ToAny converts a tree into generic data suitable for encoders
func ToAny(v Value) (interface{}, error) {
	switch v.kind {
	case Null:
		return nil, nil
	case Bool:
		return v.b, nil
	case String:
		return v.s, nil
	case Number:
		if v.IsInteger() {
			if i, err := strconv.ParseInt(v.num, 10, 64); err == nil {
				return i, nil
			}
		}
		f, err := strconv.ParseFloat(v.num, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q", v.num)
		}
		return f, nil
	case Opaque:
		return v.opaque, nil
	case Array:
		out := make([]interface{}, 0, len(v.arr))
		for _, e := range v.arr {
			conv, err := ToAny(e)
			if err != nil {
				return nil, err
			}
			out = append(out, conv)
		}
		return out, nil
	case Object:
		out := make(map[string]interface{}, v.obj.Len())
		for _, k := range v.obj.Keys() {
			child, _ := v.obj.Get(k)
			conv, err := ToAny(child)
			if err != nil {
				return nil, err
			}
			out[k] = conv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown kind %s", v.kind)
}
