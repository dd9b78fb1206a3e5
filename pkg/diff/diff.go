// Package diff renders installer plans for dry runs.
//
// Settings changes go through a ranked list of renderers. A renderer that
// cannot serve returns ErrUnavailable and the next one is tried; the summary
// renderer always succeeds, so rendering never fails for lack of a tool.
// Copied documents are classified as new, changed or unchanged and shown
// with a short preview.
package diff

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
)

// ErrUnavailable means a renderer cannot serve this input in this
// environment
var ErrUnavailable = stderrors.New("renderer unavailable")

// Renderer names accepted in Options.Renderers
const (
	RendererExternal = "external"
	RendererUnified  = "unified"
	RendererSummary  = "summary"
)

// tomlRewriteNote is shown for existing TOML documents, which are
// re-encoded as a whole
const tomlRewriteNote = "file will be rewritten: comments and formatting are not kept"

// DefaultPreviewLines is how much of a copied document is shown
const DefaultPreviewLines = 8

// Renderer shows the difference between two versions of a settings document
type Renderer interface {
	Name() string
	Render(w io.Writer, c installer.Change) error
}

// Options configure a Differ
type Options struct {
	// Renderers in order of preference; unknown names are ignored
	Renderers    []string
	ExternalTool string
	PreviewLines int
}

// Differ renders plans
type Differ struct {
	renderers    []Renderer
	previewLines int
}

// New builds a Differ. The summary renderer is always the last resort.
func New(opts Options) *Differ {
	names := opts.Renderers
	if len(names) == 0 {
		names = []string{RendererExternal, RendererUnified, RendererSummary}
	}

	d := &Differ{previewLines: opts.PreviewLines}
	if d.previewLines <= 0 {
		d.previewLines = DefaultPreviewLines
	}

	hasSummary := false
	for _, name := range names {
		switch strings.ToLower(name) {
		case RendererExternal:
			d.renderers = append(d.renderers, NewExternal(opts.ExternalTool))
		case RendererUnified:
			d.renderers = append(d.renderers, Unified{})
		case RendererSummary:
			d.renderers = append(d.renderers, Summary{})
			hasSummary = true
		}
	}
	if !hasSummary {
		d.renderers = append(d.renderers, Summary{})
	}
	return d
}

// Renderers returns the renderer names in the order they are tried
func (d *Differ) Renderers() []string {
	out := make([]string, len(d.renderers))
	for i, r := range d.renderers {
		out[i] = r.Name()
	}
	return out
}

// Render writes the plan for one target
func (d *Differ) Render(w io.Writer, plan *installer.Plan) error {
	fmt.Fprintf(w, "%s %s\n", styles.Render("Header", "==>"), styles.Render("Target", plan.Target.Name))

	if plan.Empty() {
		fmt.Fprintf(w, "    %s\n", styles.Render("Muted", "nothing to install"))
		return nil
	}

	for _, c := range plan.Changes {
		var err error
		if c.Structured {
			err = d.renderStructured(w, c)
		} else {
			err = d.renderStatic(w, c)
		}
		if err != nil {
			return err
		}
	}

	for _, s := range plan.Skipped {
		fmt.Fprintf(w, "    %s %s/%s: %v\n", styles.Render("Warning", "skipped"), s.Step, s.Name, s.Reason)
	}
	for _, warning := range plan.Warnings {
		fmt.Fprintf(w, "    %s %s\n", styles.Render("Warning", "warning"), warning)
	}
	return nil
}

func (d *Differ) renderStructured(w io.Writer, c installer.Change) error {
	fmt.Fprintf(w, "    %s %s\n", kindLabel(c.Kind), styles.Render("Path", c.Path))
	if c.Kind == installer.Unchanged {
		return nil
	}
	if c.Kind == installer.Update && c.Format == document.TOML {
		fmt.Fprintf(w, "      %s\n", styles.Render("Muted", tomlRewriteNote))
	}

	logger := logging.GetLogger("diff")
	for _, r := range d.renderers {
		err := r.Render(w, c)
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, ErrUnavailable) {
			return err
		}
		logger.Debug().Str("renderer", r.Name()).Err(err).Msg("Renderer unavailable, trying next")
	}
	return nil
}

func kindLabel(k installer.ChangeKind) string {
	label := fmt.Sprintf("%-9s", k.String())
	switch k {
	case installer.Create:
		return styles.Render("Added", label)
	case installer.Update:
		return styles.Render("Warning", label)
	default:
		return styles.Render("Muted", label)
	}
}

func unavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}
