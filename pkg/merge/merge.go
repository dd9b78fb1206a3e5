// Package merge deep-merges a configuration fragment into an existing
// configuration document.
//
// The merge is right-biased: where both sides hold objects the merge
// recurses, anywhere else the fragment's value wins. Two key sets refine
// that rule:
//
//   - Override paths are complete declarations (tool/MCP registries). When
//     the fragment carries one, the merged value is exactly the fragment's,
//     so entries the fragment dropped disappear.
//   - Array-merge paths are ordered pipelines (hook chains) contributed by
//     both the user and the fragment. When both sides hold arrays the result
//     is the existing array followed by the fragment's elements not already
//     present, so re-running never duplicates an entry.
//
// Key paths are dotted ("hooks.PreToolUse"); a "*" segment matches any key.
package merge

import (
	"github.com/arthur-debert/agentconf/pkg/document"
)

// KeySet is a set of key path patterns
type KeySet []document.Path

// NewKeySet parses dotted key paths
func NewKeySet(paths ...string) KeySet {
	ks := make(KeySet, 0, len(paths))
	for _, p := range paths {
		ks = append(ks, document.ParsePath(p))
	}
	return ks
}

// Strings returns the patterns in dotted form
func (ks KeySet) Strings() []string {
	out := make([]string, len(ks))
	for i, p := range ks {
		out[i] = p.String()
	}
	return out
}

// Covers reports whether path equals or lies below one of the patterns
func (ks KeySet) Covers(path document.Path) bool {
	for _, pattern := range ks {
		if len(path) < len(pattern) {
			continue
		}
		if matchPrefix(pattern, path) {
			return true
		}
	}
	return false
}

func matchPrefix(pattern, path document.Path) bool {
	for i, seg := range pattern {
		if seg != document.Wildcard && seg != path[i] {
			return false
		}
	}
	return true
}

// Options carries the per-target key sets
type Options struct {
	Override   KeySet
	ArrayMerge KeySet
}

// Conflict records a silent type change at an ordinary key
type Conflict struct {
	Path     document.Path
	Existing document.Kind
	Incoming document.Kind
}

// Result is the outcome of Merge
type Result struct {
	Value document.Value
	// Verbatim is set when there was no existing document; the caller
	// should write the fragment's own bytes.
	Verbatim  bool
	Conflicts []Conflict
}

// Merge combines incoming into existing. existing is not modified; a nil
// existing means the document does not exist yet.
func Merge(existing *document.Value, incoming document.Value, opts Options) Result {
	if existing == nil {
		return Result{Value: incoming.Clone(), Verbatim: true}
	}

	m := &merger{opts: opts}
	merged := existing.Clone()
	m.deepMerge(&merged, incoming, document.Path{})

	for _, pattern := range opts.Override {
		for _, p := range incoming.Expand(pattern) {
			val, _ := incoming.Lookup(p)
			document.SetPath(&merged, p, val.Clone())
		}
	}

	for _, pattern := range opts.ArrayMerge {
		for _, p := range incoming.Expand(pattern) {
			inc, _ := incoming.Lookup(p)
			prev, ok := existing.Lookup(p)
			if !ok || !prev.IsArray() || !inc.IsArray() {
				continue
			}
			document.SetPath(&merged, p, document.ArrayValue(Union(prev.Elems(), inc.Elems())...))
		}
	}

	return Result{Value: merged, Conflicts: m.conflicts}
}

type merger struct {
	opts      Options
	conflicts []Conflict
}

func (m *merger) deepMerge(dst *document.Value, src document.Value, path document.Path) {
	if !dst.IsObject() || !src.IsObject() {
		m.noteReplace(*dst, src, path)
		*dst = src.Clone()
		return
	}

	dstMap := dst.Map()
	srcMap := src.Map()
	for _, key := range srcMap.Keys() {
		srcVal, _ := srcMap.Get(key)
		childPath := path.Child(key)

		dstVal, ok := dstMap.Get(key)
		if !ok {
			dstMap.Set(key, srcVal.Clone())
			continue
		}
		m.deepMerge(&dstVal, srcVal, childPath)
		dstMap.Set(key, dstVal)
	}
}

func (m *merger) noteReplace(prev, next document.Value, path document.Path) {
	if prev.Kind() == next.Kind() || prev.IsNull() || next.IsNull() {
		return
	}
	if m.opts.Override.Covers(path) || m.opts.ArrayMerge.Covers(path) {
		return
	}
	m.conflicts = append(m.conflicts, Conflict{
		Path:     path,
		Existing: prev.Kind(),
		Incoming: next.Kind(),
	})
}

// Union returns a followed by the elements of b not already present,
// compared structurally. a is kept as is, first occurrence wins for b.
func Union(a, b []document.Value) []document.Value {
	out := make([]document.Value, 0, len(a)+len(b))
	for _, v := range a {
		out = append(out, v.Clone())
	}
	for _, v := range b {
		if contains(out, v) {
			continue
		}
		out = append(out, v.Clone())
	}
	return out
}

func contains(list []document.Value, v document.Value) bool {
	for _, e := range list {
		if e.Equal(v) {
			return true
		}
	}
	return false
}
