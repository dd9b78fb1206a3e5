package diff

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
	"github.com/pmezard/go-difflib/difflib"
)

// unifiedContext is the number of context lines around each hunk
const unifiedContext = 3

// Unified renders a line-based unified diff
type Unified struct{}

func (Unified) Name() string { return RendererUnified }

func (Unified) Render(w io.Writer, c installer.Change) error {
	if !utf8.Valid(c.Before) || !utf8.Valid(c.After) {
		return unavailable("content is not UTF-8")
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(c.Before)),
		B:        difflib.SplitLines(string(c.After)),
		FromFile: c.Path + " (current)",
		ToFile:   c.Path + " (planned)",
		Context:  unifiedContext,
	})
	if err != nil {
		return unavailable("%v", err)
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		fmt.Fprint(w, colorLine(line))
	}
	return nil
}

func colorLine(line string) string {
	trimmed := strings.TrimSuffix(line, "\n")
	var name string
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		name = "Bold"
	case strings.HasPrefix(line, "@@"):
		name = "Hunk"
	case strings.HasPrefix(line, "+"):
		name = "Added"
	case strings.HasPrefix(line, "-"):
		name = "Removed"
	default:
		return line
	}
	out := styles.Render(name, trimmed)
	if strings.HasSuffix(line, "\n") {
		out += "\n"
	}
	return out
}
