// Package source locates the configuration source tree, either a local
// directory or a shallow clone of a git repository.
//
// Layout of a source tree:
//
//	<root>/mcp/servers.json        shared MCP registry
//	<root>/<target>/<settings>     settings fragment (settings.json, opencode.json, config.toml)
//	<root>/<target>/agents/        agent documents
//	<root>/<target>/commands/      command documents
//	<root>/<target>/prompts/       prompt documents
//	<root>/<target>/<TOPDOC>.md    top-level instructions
package source

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/arthur-debert/agentconf/pkg/paths"
)

// DefaultGit is the git client looked up on PATH
const DefaultGit = "git"

// Shared registry location inside the tree
const (
	RegistryDir  = "mcp"
	RegistryFile = "servers.json"
)

// Options says where the tree comes from
type Options struct {
	// Dir is a local checkout; used when it exists
	Dir string
	// Repository is cloned when Dir is unset or missing
	Repository string
	Branch     string
	// Git overrides the git binary, mostly for tests
	Git string
}

func (o Options) git() string {
	if o.Git == "" {
		return DefaultGit
	}
	return o.Git
}

// Tree is a resolved source tree
type Tree struct {
	Root   string
	Cloned bool
}

// NeedsClone reports whether resolving opts requires the git client
func NeedsClone(opts Options) bool {
	if opts.Dir != "" && dirExists(paths.ExpandHome(opts.Dir)) {
		return false
	}
	return opts.Repository != ""
}

// CheckDependencies fails when an external tool the run needs is missing.
// It runs before any target is touched.
func CheckDependencies(opts Options) error {
	if !NeedsClone(opts) {
		return nil
	}
	if _, err := exec.LookPath(opts.git()); err != nil {
		return errors.WithHint(
			errors.Wrapf(err, errors.ErrDependencyMissing, "%s is required to fetch %s", opts.git(), opts.Repository),
			installHint(opts.git()))
	}
	return nil
}

// Resolve returns the source tree, cloning it if needed. The caller must
// Close the tree.
func Resolve(ctx context.Context, opts Options) (*Tree, error) {
	logger := logging.GetLogger("source")

	if opts.Dir != "" {
		dir := paths.ExpandHome(opts.Dir)
		if dirExists(dir) {
			logger.Debug().Str("dir", dir).Msg("Using local source tree")
			return &Tree{Root: dir}, nil
		}
		if opts.Repository == "" {
			return nil, errors.Newf(errors.ErrInvalidInput, "source directory %s does not exist", dir).
				WithDetail("hint", "set source.repository to clone it instead")
		}
		logger.Debug().Str("dir", dir).Msg("Local source tree missing, cloning")
	}

	if opts.Repository == "" {
		return nil, errors.New(errors.ErrInvalidInput, "no source configured").
			WithDetail("hint", "pass --source or set source.dir or source.repository in the config file")
	}

	if err := CheckDependencies(opts); err != nil {
		return nil, err
	}
	return clone(ctx, opts)
}

func clone(ctx context.Context, opts Options) (*Tree, error) {
	logger := logging.GetLogger("source")

	dir, err := os.MkdirTemp("", "agentconf-source-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDirCreate, "cannot create clone directory")
	}

	args := []string{"clone", "--depth", "1"}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch)
	}
	args = append(args, "--", opts.Repository, dir)

	done := logging.LogOperationStart(logger, "clone")
	cmd := exec.CommandContext(ctx, opts.git(), args...) // #nosec G204
	out, err := cmd.CombinedOutput()
	done()
	if err != nil {
		_ = os.RemoveAll(dir)
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.ErrCancelled, "clone cancelled")
		}
		return nil, errors.Newf(errors.ErrCloneFailed, "cannot clone %s: %v", opts.Repository, err).
			WithDetail("output", strings.TrimSpace(string(out))).
			WithDetail("hint", "check your network connection and that the repository URL is reachable")
	}

	logger.Info().Str("repository", opts.Repository).Str("dir", dir).Msg("Cloned source tree")
	return &Tree{Root: dir, Cloned: true}, nil
}

// Close removes a cloned tree. Local trees are left alone.
func (t *Tree) Close() error {
	if t == nil || !t.Cloned {
		return nil
	}
	if err := os.RemoveAll(t.Root); err != nil {
		return errors.Wrapf(err, errors.ErrFileRemove, "cannot remove %s", t.Root)
	}
	return nil
}

// Path joins validated segments below the tree root
func (t *Tree) Path(segments ...string) (string, error) {
	return paths.JoinSegments(t.Root, segments...)
}

// RegistryPath returns the shared MCP registry location
func (t *Tree) RegistryPath() string {
	p, _ := t.Path(RegistryDir, RegistryFile)
	return p
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func installHint(tool string) string {
	switch runtime.GOOS {
	case "darwin":
		return fmt.Sprintf("install %s with: xcode-select --install (or brew install %s)", tool, tool)
	case "windows":
		return fmt.Sprintf("install %s with: winget install --id Git.Git", tool)
	default:
		return fmt.Sprintf("install %s with your package manager, e.g. apt install %s or dnf install %s", tool, tool, tool)
	}
}
