package installer

import (
	"bytes"
	"os"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/filesystem"
	"github.com/arthur-debert/agentconf/pkg/frontmatter"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/arthur-debert/agentconf/pkg/mcp"
	"github.com/arthur-debert/agentconf/pkg/merge"
	"github.com/arthur-debert/agentconf/pkg/paths"
	"github.com/arthur-debert/agentconf/pkg/source"
	"github.com/arthur-debert/agentconf/pkg/targets"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// agentsDir holds documents whose front matter is checked
const agentsDir = "agents"

// Fragment is a parsed configuration fragment from the source tree
type Fragment struct {
	Path   string
	Format document.Format
	Raw    []byte
	Value  document.Value
}

// LoadFragment reads and parses the fragment at path. A missing or blank
// file yields nil.
func LoadFragment(fs afero.Fs, path string) (*Fragment, error) {
	data, ok, err := filesystem.ReadIfExists(fs, path)
	if err != nil || !ok || document.IsBlank(data) {
		return nil, err
	}
	format, err := document.FormatForPath(path)
	if err != nil {
		return nil, err
	}
	v, err := document.Decode(format, data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrParse, "cannot parse %s", path)
	}
	return &Fragment{Path: path, Format: format, Raw: data, Value: v}, nil
}

// Planner computes plans. It only ever reads.
type Planner struct {
	src  afero.Fs
	dst  afero.Fs
	tree *source.Tree

	registry       *mcp.Registry
	registryErr    error
	registryLoaded bool
}

// NewPlanner plans from tree (read through src) into the target stores on dst
func NewPlanner(src, dst afero.Fs, tree *source.Tree) *Planner {
	return &Planner{
		src:  filesystem.ReadOnly(src),
		dst:  filesystem.ReadOnly(dst),
		tree: tree,
	}
}

// Plan computes what t would receive. Problems with single items are
// recorded in the plan and never stop it.
func (p *Planner) Plan(t targets.Target) *Plan {
	logger := logging.GetLogger("installer").With().Str("target", t.Name).Logger()
	plan := &Plan{Target: t}

	p.planSettings(plan, logger)
	for _, s := range t.Statics {
		p.planStatic(plan, s, logger)
	}
	p.planTopDoc(plan, logger)

	for _, s := range plan.Skipped {
		logger.Warn().Str("step", s.Step).Str("item", s.Name).Err(s.Reason).Msg("Skipped item")
	}
	logger.Debug().
		Int("changes", len(plan.Changes)).
		Int("pending", len(plan.Pending())).
		Int("skipped", len(plan.Skipped)).
		Msg("Planned target")
	return plan
}

func (p *Planner) planSettings(plan *Plan, logger zerolog.Logger) {
	t := plan.Target

	fragPath, err := p.tree.Path(t.Name, t.SettingsSource)
	if err != nil {
		plan.skip(StepSettings, t.SettingsSource, err)
		return
	}
	frag, err := LoadFragment(p.src, fragPath)
	if err != nil {
		plan.skip(StepSettings, t.SettingsSource, err)
		return
	}
	if frag != nil {
		if frag.Format != t.Format {
			plan.skip(StepSettings, t.SettingsSource,
				errors.Newf(errors.ErrParse, "fragment is %s but %s stores %s", frag.Format, t.Name, t.Format))
			return
		}
		if !frag.Value.IsObject() {
			plan.skip(StepSettings, t.SettingsSource,
				errors.Newf(errors.ErrParse, "settings fragment must be an object, got %s", frag.Value.Kind()))
			return
		}
	}

	reg, err := p.loadRegistry()
	if err != nil {
		plan.skip(StepSettings, source.RegistryFile, err)
	}

	incoming, verbatim, ok := p.settingsFragment(plan, frag, reg)
	if !ok {
		return
	}
	if frag == nil {
		fragPath = p.tree.RegistryPath()
	}

	dest := t.SettingsPath()
	before, exists, err := filesystem.ReadIfExists(p.dst, dest)
	if err != nil {
		plan.skip(StepSettings, t.SettingsFile, err)
		return
	}

	change := Change{
		Step:       StepSettings,
		Source:     fragPath,
		Path:       dest,
		Kind:       Create,
		Structured: true,
		Format:     t.Format,
	}
	if exists {
		change.Before = before
		change.Kind = Update
	}

	opts := merge.Options{Override: t.Override, ArrayMerge: t.ArrayMerge}

	if !exists || document.IsBlank(before) {
		// Nothing to merge into; the fragment is the document
		change.Verbatim = verbatim
		if verbatim {
			change.After = frag.Raw
		} else {
			var style []byte
			if frag != nil {
				style = frag.Raw
			}
			res := merge.Merge(nil, incoming, opts)
			if change.After, err = document.EncodeLike(t.Format, res.Value, style); err != nil {
				plan.skip(StepSettings, t.SettingsFile, err)
				return
			}
		}
	} else {
		existing, err := document.Decode(t.Format, before)
		if err != nil {
			plan.skip(StepSettings, t.SettingsFile, err)
			return
		}
		res := merge.Merge(&existing, incoming, opts)
		change.Conflicts = res.Conflicts
		for _, c := range res.Conflicts {
			logger.Warn().
				Str("key", c.Path.String()).
				Str("existing", c.Existing.String()).
				Str("incoming", c.Incoming.String()).
				Msg("Type conflict, fragment value wins")
			plan.warn("%s: %s replaced by %s at %s", t.SettingsFile, c.Existing, c.Incoming, c.Path)
		}
		if res.Value.Equal(existing) {
			change.After = before
		} else if change.After, err = document.EncodeLike(t.Format, res.Value, before); err != nil {
			plan.skip(StepSettings, t.SettingsFile, err)
			return
		}
	}

	if exists && bytes.Equal(change.After, before) {
		change.Kind = Unchanged
	}
	plan.Changes = append(plan.Changes, change)
}

// settingsFragment combines the target's own fragment with the projection
// of the shared registry. verbatim is true when the result is exactly the
// fragment file.
func (p *Planner) settingsFragment(plan *Plan, frag *Fragment, reg *mcp.Registry) (v document.Value, verbatim, ok bool) {
	t := plan.Target
	if frag == nil && reg == nil {
		return document.Value{}, false, false
	}

	if frag != nil {
		v = frag.Value.Clone()
	} else {
		v = document.ObjectValue(document.NewMap())
	}
	if reg == nil || t.Project == nil || t.RegistryKey == "" {
		return v, frag != nil, true
	}

	projected, skipped := t.Project(*reg)
	for _, s := range skipped {
		plan.warn("MCP server %s not installed: %s", s.Server, s.Reason)
	}

	key := document.Path{t.RegistryKey}
	if own, found := v.Lookup(key); found && own.IsObject() {
		combined := own.Clone()
		for _, name := range projected.Map().Keys() {
			entry, _ := projected.Map().Get(name)
			combined.Map().Set(name, entry)
		}
		projected = combined
	}
	document.SetPath(&v, key, projected)
	return v, false, true
}

func (p *Planner) loadRegistry() (*mcp.Registry, error) {
	if p.registryLoaded {
		return p.registry, p.registryErr
	}
	p.registryLoaded = true

	frag, err := LoadFragment(p.src, p.tree.RegistryPath())
	if err != nil || frag == nil {
		p.registryErr = err
		return nil, err
	}
	reg, err := mcp.Parse(frag.Value)
	if err != nil {
		p.registryErr = err
		return nil, err
	}
	p.registry = &reg
	return p.registry, nil
}

func (p *Planner) planStatic(plan *Plan, s targets.Static, logger zerolog.Logger) {
	t := plan.Target

	srcDir, err := p.tree.Path(t.Name, s.Source)
	if err != nil {
		plan.skip(s.Source, s.Source, err)
		return
	}
	entries, err := afero.ReadDir(p.src, srcDir)
	if err != nil {
		if !os.IsNotExist(err) {
			plan.skip(s.Source, s.Source, errors.Wrapf(err, errors.ErrFileRead, "cannot list %s", srcDir))
		}
		return
	}

	for _, e := range entries {
		name := e.Name()
		if err := paths.ValidateSegment(name); err != nil {
			plan.skip(s.Source, name, err)
			continue
		}
		if e.IsDir() || strings.HasPrefix(name, ".") {
			logger.Trace().Str("step", s.Source).Str("item", name).Msg("Ignoring entry")
			continue
		}
		srcPath, err := paths.JoinSegments(srcDir, name)
		if err != nil {
			plan.skip(s.Source, name, err)
			continue
		}
		dest, err := paths.JoinSegments(t.Root, s.Dest, name)
		if err != nil {
			plan.skip(s.Source, name, err)
			continue
		}

		data, err := afero.ReadFile(p.src, srcPath)
		if err != nil {
			plan.skip(s.Source, name, errors.Wrapf(err, errors.ErrFileRead, "cannot read %s", srcPath))
			continue
		}
		if s.Source == agentsDir {
			for _, problem := range frontmatter.Problems(data) {
				plan.warn("%s/%s: %s", s.Source, name, problem)
			}
		}
		p.addCopy(plan, s.Source, srcPath, dest, data)
	}
}

func (p *Planner) planTopDoc(plan *Plan, logger zerolog.Logger) {
	t := plan.Target
	if t.TopDoc == "" {
		return
	}
	srcPath, err := p.tree.Path(t.Name, t.TopDoc)
	if err != nil {
		plan.skip(StepTopDoc, t.TopDoc, err)
		return
	}
	data, ok, err := filesystem.ReadIfExists(p.src, srcPath)
	if err != nil {
		plan.skip(StepTopDoc, t.TopDoc, err)
		return
	}
	if !ok {
		logger.Trace().Str("path", srcPath).Msg("No top-level document")
		return
	}
	p.addCopy(plan, StepTopDoc, srcPath, t.TopDocPath(), data)
}

func (p *Planner) addCopy(plan *Plan, step, src, dest string, data []byte) {
	before, exists, err := filesystem.ReadIfExists(p.dst, dest)
	if err != nil {
		plan.skip(step, dest, err)
		return
	}
	change := Change{Step: step, Source: src, Path: dest, Kind: Create, After: data}
	if exists {
		change.Before = before
		change.Kind = Update
		if bytes.Equal(before, data) {
			change.Kind = Unchanged
		}
	}
	plan.Changes = append(plan.Changes, change)
}
