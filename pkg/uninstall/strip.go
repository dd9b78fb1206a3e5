package uninstall

import (
	"strings"

	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/targets"
)

// Strip removes what m lists from a settings tree and returns the dotted
// paths it removed. Containers left empty by a removal are pruned.
func Strip(v *document.Value, m targets.Managed, registryKey string) []string {
	if !v.IsObject() {
		return nil
	}
	var removed []string

	if m.EnvKey != "" {
		removed = append(removed, deleteNames(v, document.Path{m.EnvKey}, m.EnvVars)...)
	}
	if m.HookKey != "" && len(m.HookCommands) > 0 {
		removed = append(removed, stripHooks(v, document.Path{m.HookKey}, m.HookCommands)...)
	}
	if registryKey != "" {
		removed = append(removed, deleteNames(v, document.Path{registryKey}, m.Servers)...)
	}
	return removed
}

// IsEmpty reports whether v is an object with no keys
func IsEmpty(v document.Value) bool {
	return v.IsObject() && v.Map().Len() == 0
}

func deleteNames(root *document.Value, parent document.Path, names []string) []string {
	obj, ok := root.Lookup(parent)
	if !ok || !obj.IsObject() {
		return nil
	}
	var removed []string
	for _, name := range names {
		if obj.Map().Delete(name) {
			removed = append(removed, parent.Child(name).String())
		}
	}
	if len(removed) > 0 && obj.Map().Len() == 0 {
		document.DeletePath(root, parent)
	}
	return removed
}

// stripHooks drops hook entries whose command matches. Entries are either
// plain command strings, {command: ...} objects, or matcher groups holding
// a "hooks" list of those.
func stripHooks(root *document.Value, hooksPath document.Path, substrings []string) []string {
	hooks, ok := root.Lookup(hooksPath)
	if !ok || !hooks.IsObject() {
		return nil
	}

	var removed []string
	for _, event := range append([]string(nil), hooks.Map().Keys()...) {
		chain, _ := hooks.Map().Get(event)
		if !chain.IsArray() {
			continue
		}
		kept, n := filterHooks(chain.Elems(), substrings)
		if n == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			removed = append(removed, hooksPath.Child(event).String())
		}
		if len(kept) == 0 {
			hooks.Map().Delete(event)
		} else {
			hooks.Map().Set(event, document.ArrayValue(kept...))
		}
	}
	if len(removed) > 0 && hooks.Map().Len() == 0 {
		document.DeletePath(root, hooksPath)
	}
	return removed
}

// filterHooks returns the entries to keep and how many commands were removed
func filterHooks(entries []document.Value, substrings []string) ([]document.Value, int) {
	var kept []document.Value
	removed := 0

	for _, e := range entries {
		if isManagedCommand(e, substrings) {
			removed++
			continue
		}
		if e.IsObject() {
			if inner, ok := e.Map().Get("hooks"); ok && inner.IsArray() {
				innerKept, n := filterHooks(inner.Elems(), substrings)
				if n > 0 {
					removed += n
					if len(innerKept) == 0 {
						continue
					}
					group := e.Clone()
					group.Map().Set("hooks", document.ArrayValue(innerKept...))
					e = group
				}
			}
		}
		kept = append(kept, e)
	}
	return kept, removed
}

func isManagedCommand(e document.Value, substrings []string) bool {
	var cmd string
	switch {
	case e.Kind() == document.String:
		cmd = e.Str()
	case e.IsObject():
		c, ok := e.Map().Get("command")
		if !ok || c.Kind() != document.String {
			return false
		}
		cmd = c.Str()
	default:
		return false
	}
	for _, s := range substrings {
		if strings.Contains(cmd, s) {
			return true
		}
	}
	return false
}
