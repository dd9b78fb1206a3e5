package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/arthur-debert/agentconf/pkg/paths"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "AGENTCONF_"

// SourceDirName is the default source checkout inside the config dir
const SourceDirName = "source"

// sections accepted from the environment. Other AGENTCONF_ variables, such
// as AGENTCONF_CONFIG_DIR, are not configuration keys.
var sections = map[string]bool{
	"source":   true,
	"targets":  true,
	"diff":     true,
	"manifest": true,
}

// LoadOptions select where configuration comes from
type LoadOptions struct {
	// File is an explicit config file. Unlike the default location it
	// must exist.
	File  string
	Paths *paths.Paths
	// Overrides are dotted keys applied last, typically from flags
	Overrides map[string]interface{}
}

// Load resolves the configuration: embedded defaults, the user file, the
// environment, then overrides
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")

	p := opts.Paths
	if p == nil {
		var err error
		if p, err = paths.New(); err != nil {
			return nil, err
		}
	}

	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. User file
	userFile, err := userConfigFile(opts.File, p)
	if err != nil {
		return nil, err
	}
	if userFile != "" {
		if err := k.Load(file.Provider(userFile), toml.Parser()); err != nil {
			return nil, errors.WithHint(
				errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", userFile),
				"check the TOML syntax of "+userFile)
		}
		logger.Debug().Str("path", userFile).Msg("Loaded user config")
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment")
	}

	// 4. Flags
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	// 5. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to unmarshal configuration")
	}
	cfg.File = userFile

	// 6. Post-process
	if err := postProcess(&cfg, p); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("source", cfg.Source.Dir).
		Str("repository", cfg.Source.Repository).
		Strs("targets", cfg.Targets.Enabled).
		Msg("Configuration resolved")
	return &cfg, nil
}

func userConfigFile(explicit string, p *paths.Paths) (string, error) {
	if explicit != "" {
		path := paths.ExpandHome(explicit)
		if _, err := os.Stat(path); err != nil {
			return "", errors.WithHint(
				errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not found", path),
				"check the --config path")
		}
		return path, nil
	}

	path := p.ConfigFilePath()
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

// envKey maps AGENTCONF_SECTION_SOME_KEY to section.some_key. Root
// overrides take the target name as a third level:
// AGENTCONF_TARGETS_ROOTS_CLAUDE is targets.roots.claude.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" || !sections[section] {
		return ""
	}
	if section == "targets" {
		if name, found := strings.CutPrefix(rest, "roots_"); found && name != "" {
			return "targets.roots." + name
		}
	}
	return section + "." + rest
}

func postProcess(cfg *Config, p *paths.Paths) error {
	if cfg.Source.Dir == "" {
		cfg.Source.Dir = filepath.Join(p.ConfigDir(), SourceDirName)
	}
	cfg.Source.Dir = paths.ExpandHome(cfg.Source.Dir)
	cfg.Source.Repository = strings.TrimSpace(cfg.Source.Repository)

	if cfg.Manifest.Path == "" {
		cfg.Manifest.Path = p.ManifestPath()
	}
	cfg.Manifest.Path = paths.ExpandHome(cfg.Manifest.Path)

	enabled := cfg.Targets.Enabled[:0]
	for _, name := range cfg.Targets.Enabled {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			enabled = append(enabled, name)
		}
	}
	cfg.Targets.Enabled = enabled

	if cfg.Diff.PreviewLines < 0 {
		return errors.Newf(errors.ErrConfigLoad, "diff.preview_lines must not be negative, got %d", cfg.Diff.PreviewLines)
	}
	return nil
}
