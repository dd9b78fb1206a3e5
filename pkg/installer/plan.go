// Package installer merges a source tree into each target's configuration
// store.
//
// Installation is split into planning and applying. A Planner reads the
// source tree and the target store and produces a Plan: the exact bytes
// every destination file would get. Planning never writes; it runs on a
// read-only view of the filesystem. An Applier then backs up and atomically
// replaces each changed file. Run ties both together for every target and
// is the only place that decides between previewing and applying.
package installer

import (
	"fmt"

	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/merge"
	"github.com/arthur-debert/agentconf/pkg/targets"
)

// Step names, in execution order
const (
	StepSettings = "settings"
	StepTopDoc   = "instructions"
)

// ChangeKind classifies a planned write
type ChangeKind int

const (
	// Create writes a file that does not exist yet
	Create ChangeKind = iota
	// Update replaces an existing file
	Update
	// Unchanged means the file already holds the planned bytes
	Unchanged
)

func (k ChangeKind) String() string {
	switch k {
	case Create:
		return "new"
	case Update:
		return "changed"
	case Unchanged:
		return "unchanged"
	}
	return "unknown"
}

// Change is one destination file of a plan
type Change struct {
	Step   string
	Source string
	Path   string
	Kind   ChangeKind

	// Structured changes are settings documents; the rest are copied documents
	Structured bool
	Format     document.Format
	// Verbatim means After is the fragment's bytes, unmerged
	Verbatim bool

	Before []byte
	After  []byte

	Conflicts []merge.Conflict
}

// Pending reports whether applying the change writes anything
func (c Change) Pending() bool {
	return c.Kind != Unchanged
}

// Skip is an item left out of a plan
type Skip struct {
	Step   string
	Name   string
	Reason error
}

func (s Skip) String() string {
	return fmt.Sprintf("%s/%s: %v", s.Step, s.Name, s.Reason)
}

// Plan is everything one target would receive
type Plan struct {
	Target   targets.Target
	Changes  []Change
	Skipped  []Skip
	Warnings []string
}

// Pending returns the changes that write
func (p *Plan) Pending() []Change {
	var out []Change
	for _, c := range p.Changes {
		if c.Pending() {
			out = append(out, c)
		}
	}
	return out
}

// Empty reports whether the source tree had nothing for the target
func (p *Plan) Empty() bool {
	return len(p.Changes) == 0 && len(p.Skipped) == 0
}

func (p *Plan) skip(step, name string, reason error) {
	p.Skipped = append(p.Skipped, Skip{Step: step, Name: name, Reason: reason})
}

func (p *Plan) warn(format string, args ...interface{}) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}
