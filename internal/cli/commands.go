package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/arthur-debert/agentconf/internal/version"
	"github.com/arthur-debert/agentconf/pkg/diff"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/arthur-debert/agentconf/pkg/source"
	"github.com/arthur-debert/agentconf/pkg/ui/confirmations"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
	"github.com/arthur-debert/agentconf/pkg/ui/summary"
	"github.com/arthur-debert/agentconf/pkg/uninstall"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every command
type globalFlags struct {
	verbosity  int
	dryRun     bool
	force      bool
	configFile string
	sourceDir  string
	targets    []string
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "agentconf",
		Short: "Install AI tool configuration from a source tree",
		Long: `agentconf merges a versioned source tree of settings, hooks, MCP servers
and agent documents into the configuration of each AI tool installed on this
machine (Claude, OpenCode, Codex, Gemini).

User settings are preserved: agentconf only adds or replaces the keys it
ships, backs every file up before writing it, and can preview everything
with --dry-run.`,
		Example: `  # Preview what would change
  agentconf --dry-run

  # Install into two targets without prompting
  agentconf --force --target claude --target codex

  # Use a local checkout of the source tree
  agentconf --source ~/src/agent-config`,
		Version: version.Version,
		Args:    noArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging based on verbosity
			logging.SetupLogger(flags.verbosity)
			styles.SetColor(styles.Detect(os.Stdout))
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.CountVarP(&flags.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "Preview changes without writing anything")
	pf.BoolVar(&flags.force, "force", false, "Apply changes without asking for confirmation")
	pf.StringVar(&flags.configFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/agentconf/config.toml)")
	pf.StringVar(&flags.sourceDir, "source", "", "Local source tree directory")
	pf.StringSliceVarP(&flags.targets, "target", "t", nil, "Limit to these targets (repeatable or comma separated)")

	rootCmd.SetFlagErrorFunc(usageError)

	rootCmd.AddCommand(newUninstallCmd(flags))
	rootCmd.AddCommand(newTargetsCmd(flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func usageError(cmd *cobra.Command, err error) error {
	return errors.New(errors.ErrUsage, err.Error()).
		WithDetail("hint", fmt.Sprintf("run '%s --help' for usage", cmd.CommandPath()))
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError(cmd, fmt.Errorf("unexpected argument %q", args[0]))
	}
	return nil
}

func runInstall(cmd *cobra.Command, flags *globalFlags) error {
	env, err := loadEnvironment(flags)
	if err != nil {
		return err
	}

	srcOpts := source.Options{
		Dir:        env.config.Source.Dir,
		Repository: env.config.Source.Repository,
		Branch:     env.config.Source.Branch,
	}
	// Missing tools abort before any target is touched
	if err := source.CheckDependencies(srcOpts); err != nil {
		return err
	}
	tree, err := source.Resolve(cmd.Context(), srcOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := tree.Close(); err != nil {
			log.Warn().Err(err).Str("dir", tree.Root).Msg("Failed to remove cloned source tree")
		}
	}()

	out := cmd.OutOrStdout()
	differ := diff.New(diff.Options{
		Renderers:    env.config.Diff.Renderers,
		ExternalTool: env.config.Diff.ExternalTool,
		PreviewLines: env.config.Diff.PreviewLines,
	})

	result, runErr := installer.Run(cmd.Context(), installer.Options{
		Tree:     tree,
		Targets:  env.targets,
		DryRun:   flags.dryRun,
		Force:    flags.force,
		Preview:  differ,
		Confirm:  confirmations.NewPrompt(out),
		Out:      out,
		Manifest: env.manifest,
	})
	summary.Install(out, result)
	return runErr
}

func newUninstallCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove what agentconf installed",
		Long: `Uninstall removes the env vars, hook commands and MCP servers agentconf
ships from each target's settings, and deletes the documents it copied.
Everything else in the target is left alone. Files are backed up before
they are changed, unless they are exactly as agentconf wrote them.`,
		Example: `  # See what would be removed
  agentconf uninstall --dry-run

  # Remove from codex only
  agentconf uninstall --force --target codex`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !flags.dryRun && !flags.force {
				names := make([]string, len(env.targets))
				for i, t := range env.targets {
					names[i] = t.Name
				}
				q := fmt.Sprintf("Remove agentconf content from %s?", strings.Join(names, ", "))
				ok, err := confirmations.NewPrompt(out).Question(q)
				if err != nil {
					return errors.Wrap(err, errors.ErrCancelled, "confirmation failed")
				}
				if !ok {
					fmt.Fprintln(out, styles.Render("Warning", "Nothing removed."))
					return nil
				}
			}

			result, runErr := uninstall.Run(cmd.Context(), uninstall.Options{
				Targets:  env.targets,
				DryRun:   flags.dryRun,
				Out:      out,
				Manifest: env.manifest,
			})
			summary.Uninstall(out, result)
			return runErr
		},
	}
}

func newTargetsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the known targets",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(flags)
			if err != nil {
				return err
			}
			enabled := make(map[string]bool, len(env.targets))
			for _, t := range env.targets {
				enabled[t.Name] = true
			}
			summary.Targets(cmd.OutOrStdout(), env.all, enabled)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including commit hash and build date`,
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "agentconf version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Fprintf(out, "Built:  %s\n", version.Date)
			}
		},
	}
}
