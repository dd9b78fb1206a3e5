package diff

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
)

// maxListedKeys bounds the key paths listed per category
const maxListedKeys = 10

// Summary lists the key paths a change adds, removes and modifies. It falls
// back to line counts when a version does not parse, and never fails.
type Summary struct{}

func (Summary) Name() string { return RendererSummary }

func (Summary) Render(w io.Writer, c installer.Change) error {
	after, err := document.Decode(c.Format, c.After)
	if err != nil {
		return lineSummary(w, c)
	}
	before := document.ObjectValue(document.NewMap())
	if !document.IsBlank(c.Before) {
		if before, err = document.Decode(c.Format, c.Before); err != nil {
			return lineSummary(w, c)
		}
	}

	var added, removed, changed []string
	compareKeys(before, after, nil, &added, &removed, &changed)

	fmt.Fprintf(w, "      %d added, %d removed, %d changed keys\n", len(added), len(removed), len(changed))
	listKeys(w, "+", "Added", added)
	listKeys(w, "-", "Removed", removed)
	listKeys(w, "~", "Warning", changed)
	return nil
}

func listKeys(w io.Writer, mark, style string, keys []string) {
	sort.Strings(keys)
	for i, k := range keys {
		if i == maxListedKeys {
			fmt.Fprintf(w, "      %s\n", styles.Render("Muted", fmt.Sprintf("... %d more", len(keys)-i)))
			return
		}
		fmt.Fprintf(w, "      %s\n", styles.Render(style, mark+" "+k))
	}
}

func lineSummary(w io.Writer, c installer.Change) error {
	fmt.Fprintf(w, "      %d lines -> %d lines\n", countLines(c.Before), countLines(c.After))
	return nil
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// compareKeys walks both trees in step. Keys present on one side only are
// listed by their leaf paths; a key holding an object on one side and
// anything else on the other is a single changed key.
func compareKeys(before, after document.Value, prefix document.Path, added, removed, changed *[]string) {
	if !before.IsObject() || !after.IsObject() {
		if !before.Equal(after) {
			*changed = append(*changed, prefix.String())
		}
		return
	}
	for _, k := range after.Map().Keys() {
		cur, _ := after.Map().Get(k)
		prev, ok := before.Map().Get(k)
		if !ok {
			*added = append(*added, leaves(cur, prefix.Child(k))...)
			continue
		}
		compareKeys(prev, cur, prefix.Child(k), added, removed, changed)
	}
	for _, k := range before.Map().Keys() {
		if _, ok := after.Map().Get(k); !ok {
			prev, _ := before.Map().Get(k)
			*removed = append(*removed, leaves(prev, prefix.Child(k))...)
		}
	}
}

// leaves lists the dotted key paths below prefix. Arrays, scalars and empty
// objects are leaves.
func leaves(v document.Value, prefix document.Path) []string {
	if !v.IsObject() || v.Map().Len() == 0 {
		return []string{prefix.String()}
	}
	var out []string
	for _, k := range v.Map().Keys() {
		child, _ := v.Map().Get(k)
		out = append(out, leaves(child, prefix.Child(k))...)
	}
	return out
}
