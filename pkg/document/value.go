// Package document models structured configuration files as a tagged union
// tree and converts them to and from their on-disk formats (JSON, TOML).
//
// A Value is one of: null, bool, number, string, array, object, or an
// opaque scalar (format-specific types such as TOML dates). Objects keep
// their key order so rewriting a document only moves the keys that changed.
package document

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
	Opaque
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	case Opaque:
		return "opaque"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a node of a configuration tree. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	// num holds the number literal as written, s the string payload
	num    string
	s      string
	arr    []Value
	obj    *Map
	opaque any
}

// NullValue returns the null value
func NullValue() Value { return Value{} }

// BoolValue wraps b
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// StringValue wraps s
func StringValue(s string) Value { return Value{kind: String, s: s} }

// NumberValue wraps a number literal such as "1", "-2.5" or "1e9".
func NumberValue(literal string) Value { return Value{kind: Number, num: literal} }

// IntValue wraps an integer
func IntValue(i int64) Value { return NumberValue(strconv.FormatInt(i, 10)) }

// FloatValue wraps a float. Integral floats keep a fractional part so the
// number stays a float when written back to TOML.
func FloatValue(f float64) Value {
	lit := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(lit, ".eEnN") {
		lit += ".0"
	}
	return NumberValue(lit)
}

// ArrayValue wraps elements
func ArrayValue(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: Array, arr: elems}
}

// ObjectValue wraps m; a nil m becomes an empty object
func ObjectValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: Object, obj: m}
}

// OpaqueValue wraps a scalar the tree does not interpret
func OpaqueValue(v any) Value { return Value{kind: Opaque, opaque: v} }

// Kind returns the variant tag
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == Null }

// IsObject reports whether v is an object
func (v Value) IsObject() bool { return v.kind == Object }

// IsArray reports whether v is an array
func (v Value) IsArray() bool { return v.kind == Array }

// Bool returns the bool payload
func (v Value) Bool() bool { return v.b }

// Str returns the string payload
func (v Value) Str() string { return v.s }

// NumberLiteral returns the number as written
func (v Value) NumberLiteral() string { return v.num }

// Elems returns the array elements. The slice is shared with v.
func (v Value) Elems() []Value { return v.arr }

// Map returns the object payload, nil if v is not an object
func (v Value) Map() *Map { return v.obj }

// OpaqueData returns the opaque payload
func (v Value) OpaqueData() any { return v.opaque }

// IsInteger reports whether a number literal has no fractional or exponent part
func (v Value) IsInteger() bool {
	return v.kind == Number && !strings.ContainsAny(v.num, ".eEnN")
}

// Clone returns a deep copy of v
func (v Value) Clone() Value {
	switch v.kind {
	case Array:
		elems := make([]Value, len(v.arr))
		for i, e := range v.arr {
			elems[i] = e.Clone()
		}
		return Value{kind: Array, arr: elems}
	case Object:
		return Value{kind: Object, obj: v.obj.Clone()}
	default:
		return v
	}
}

// Equal reports structural equality. Object key order is ignored, array
// order is not. Numbers compare by value when both literals parse.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case String:
		return v.s == o.s
	case Number:
		return numbersEqual(v.num, o.num)
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		return v.obj.Equal(o.obj)
	case Opaque:
		return reflect.DeepEqual(v.opaque, o.opaque)
	}
	return false
}

func numbersEqual(a, b string) bool {
	if a == b {
		return true
	}
	if ai, err := strconv.ParseInt(a, 10, 64); err == nil {
		if bi, err := strconv.ParseInt(b, 10, 64); err == nil {
			return ai == bi
		}
	}
	af, errA := strconv.ParseFloat(a, 64)
	bf, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && af == bf
}

// String renders v compactly, for logs and diff summaries
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		return v.num
	case String:
		return strconv.Quote(v.s)
	case Opaque:
		return fmt.Sprint(v.opaque)
	}
	out, err := EncodeJSONCompact(v)
	if err != nil {
		return v.kind.String()
	}
	return string(out)
}
