package diff

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
	"github.com/charmbracelet/glamour"
)

const previewIndent = "      "

func (d *Differ) renderStatic(w io.Writer, c installer.Change) error {
	fmt.Fprintf(w, "    %s %s\n", kindLabel(c.Kind), styles.Render("Path", c.Path))
	if c.Kind == installer.Unchanged {
		return nil
	}

	preview := head(string(c.After), d.previewLines)
	if preview == "" {
		return nil
	}
	if styles.ColorEnabled() && strings.EqualFold(filepath.Ext(c.Path), ".md") {
		preview = renderMarkdown(preview)
	}
	for _, line := range strings.Split(strings.TrimRight(preview, "\n"), "\n") {
		fmt.Fprintf(w, "%s%s\n", previewIndent, styles.Render("Muted", line))
	}
	return nil
}

// head returns the first n lines of s, marking a cut
func head(s string, n int) string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "") + "...\n"
}

func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
