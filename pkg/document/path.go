package document

import "strings"

// Wildcard matches any single key in a key path pattern
const Wildcard = "*"

// Path is a sequence of object keys from the document root
type Path []string

// ParsePath splits a dotted key path such as "hooks.PreToolUse"
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path(strings.Split(s, "."))
}

// String joins the path with dots
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns a copy of p extended by key
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Lookup returns the value at path
func (v Value) Lookup(path Path) (Value, bool) {
	cur := v
	for _, key := range path {
		if cur.kind != Object {
			return Value{}, false
		}
		next, ok := cur.obj.Get(key)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// SetPath stores val at path, creating intermediate objects. An
// intermediate non-object value is replaced by an object.
func SetPath(root *Value, path Path, val Value) {
	if len(path) == 0 {
		*root = val
		return
	}
	if root.kind != Object {
		*root = ObjectValue(nil)
	}
	key := path[0]
	if len(path) == 1 {
		root.obj.Set(key, val)
		return
	}
	child, _ := root.obj.Get(key)
	SetPath(&child, path[1:], val)
	root.obj.Set(key, child)
}

// DeletePath removes the entry at path, reporting whether it existed
func DeletePath(root *Value, path Path) bool {
	if len(path) == 0 || root.kind != Object {
		return false
	}
	if len(path) == 1 {
		return root.obj.Delete(path[0])
	}
	child, ok := root.obj.Get(path[0])
	if !ok {
		return false
	}
	removed := DeletePath(&child, path[1:])
	if removed {
		root.obj.Set(path[0], child)
	}
	return removed
}

// Expand resolves a pattern that may contain wildcards into the concrete
// paths present in v, in document order.
func (v Value) Expand(pattern Path) []Path {
	var out []Path
	expand(v, pattern, Path{}, &out)
	return out
}

func expand(v Value, pattern, prefix Path, out *[]Path) {
	if len(pattern) == 0 {
		*out = append(*out, prefix)
		return
	}
	if v.kind != Object {
		return
	}
	key := pattern[0]
	if key == Wildcard {
		for _, k := range v.obj.Keys() {
			child, _ := v.obj.Get(k)
			expand(child, pattern[1:], prefix.Child(k), out)
		}
		return
	}
	if child, ok := v.obj.Get(key); ok {
		expand(child, pattern[1:], prefix.Child(key), out)
	}
}
