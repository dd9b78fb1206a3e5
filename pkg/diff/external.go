package diff

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
)

// DefaultExternalTool is a structural diff tool that understands JSON and TOML
const DefaultExternalTool = "difft"

const externalTimeout = 30 * time.Second

// External runs a diff tool on scratch copies of both versions. The copies
// live in a temporary directory removed before Render returns.
type External struct {
	Tool string
}

// NewExternal returns an External renderer for tool, or the default tool
func NewExternal(tool string) External {
	if tool == "" {
		tool = DefaultExternalTool
	}
	return External{Tool: tool}
}

func (e External) Name() string { return RendererExternal }

func (e External) Render(w io.Writer, c installer.Change) error {
	bin, err := exec.LookPath(e.Tool)
	if err != nil {
		return unavailable("%s not found", e.Tool)
	}

	scratch, err := os.MkdirTemp("", "agentconf-diff-*")
	if err != nil {
		return unavailable("cannot create scratch directory: %v", err)
	}
	defer os.RemoveAll(scratch)

	ext := filepath.Ext(c.Path)
	before := filepath.Join(scratch, "current"+ext)
	after := filepath.Join(scratch, "planned"+ext)
	if err := os.WriteFile(before, c.Before, 0600); err != nil {
		return unavailable("cannot write scratch copy: %v", err)
	}
	if err := os.WriteFile(after, c.After, 0600); err != nil {
		return unavailable("cannot write scratch copy: %v", err)
	}

	color := "never"
	if styles.ColorEnabled() {
		color = "always"
	}

	ctx, cancel := context.WithTimeout(context.Background(), externalTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, "--color="+color, "--display=inline", before, after) // #nosec G204
	out, err := cmd.Output()
	if err != nil {
		return unavailable("%s failed: %v", e.Tool, err)
	}
	_, err = w.Write(out)
	return err
}
