package cli

import (
	"github.com/arthur-debert/agentconf/pkg/config"
	"github.com/arthur-debert/agentconf/pkg/filesystem"
	"github.com/arthur-debert/agentconf/pkg/manifest"
	"github.com/arthur-debert/agentconf/pkg/paths"
	"github.com/arthur-debert/agentconf/pkg/targets"
)

// environment is everything a command needs, resolved from flags and config
type environment struct {
	config   *config.Config
	all      []targets.Target
	targets  []targets.Target
	manifest *manifest.Store
}

func loadEnvironment(flags *globalFlags) (*environment, error) {
	p, err := paths.New()
	if err != nil {
		return nil, err
	}

	overrides := map[string]interface{}{}
	if flags.sourceDir != "" {
		overrides["source.dir"] = flags.sourceDir
	}
	if len(flags.targets) > 0 {
		overrides["targets.enabled"] = flags.targets
	}

	cfg, err := config.Load(config.LoadOptions{
		File:      flags.configFile,
		Paths:     p,
		Overrides: overrides,
	})
	if err != nil {
		return nil, err
	}

	all := targets.WithRoots(targets.ForPaths(p), cfg.Targets.Roots)
	selected, err := targets.Select(all, cfg.Targets.Enabled)
	if err != nil {
		return nil, err
	}

	return &environment{
		config:   cfg,
		all:      all,
		targets:  selected,
		manifest: manifest.NewStore(filesystem.NewOS(), cfg.Manifest.Path),
	}, nil
}
