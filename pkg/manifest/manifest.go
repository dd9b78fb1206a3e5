// Package manifest records which paths each target had written by agentconf.
//
// A run accumulates its entries in a Manifest and persists it once, after
// every target was processed. Entries of targets the run did not touch are
// kept from the previous manifest.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/arthur-debert/agentconf/pkg/errors"
	"github.com/arthur-debert/agentconf/pkg/filesystem"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Version of the on-disk layout
const Version = 1

// Entry is what one target received
type Entry struct {
	Paths []string `json:"paths"`
	// Digests holds the sha256 of the bytes written to each path
	Digests     map[string]string `json:"digests,omitempty"`
	RunID       string            `json:"run_id"`
	InstalledAt time.Time         `json:"installed_at"`
}

// Manifest maps target names to their entries
type Manifest struct {
	Version   int              `json:"version"`
	RunID     string           `json:"run_id"`
	UpdatedAt time.Time        `json:"updated_at"`
	Targets   map[string]Entry `json:"targets"`

	now func() time.Time
}

// New returns an empty manifest for a new run
func New() *Manifest {
	return &Manifest{
		Version: Version,
		RunID:   uuid.NewString(),
		Targets: make(map[string]Entry),
		now:     time.Now,
	}
}

// Record adds a written path and its content to the target's entry
func (m *Manifest) Record(target, path string, data []byte) {
	entry := m.Targets[target]
	entry.Paths = dedupe(append(entry.Paths, path))
	if entry.Digests == nil {
		entry.Digests = make(map[string]string)
	}
	entry.Digests[path] = Digest(data)
	entry.RunID = m.RunID
	entry.InstalledAt = m.clock().UTC()
	m.Targets[target] = entry
}

// Unmodified reports whether data is exactly what was recorded for path
func (m *Manifest) Unmodified(target, path string, data []byte) bool {
	d, ok := m.Targets[target].Digests[path]
	return ok && d == Digest(data)
}

// Digest returns the hex sha256 of data
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Lists reports whether path is recorded for target
func (m *Manifest) Lists(target, path string) bool {
	for _, p := range m.Targets[target].Paths {
		if p == path {
			return true
		}
	}
	return false
}

// Paths returns the recorded paths of target
func (m *Manifest) Paths(target string) []string {
	return m.Targets[target].Paths
}

// TargetNames returns the recorded targets, sorted
func (m *Manifest) TargetNames() []string {
	names := make([]string, 0, len(m.Targets))
	for name := range m.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether nothing was recorded
func (m *Manifest) Empty() bool {
	return len(m.Targets) == 0
}

func (m *Manifest) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, p := range in {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Store reads and writes the manifest file
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a Store for the manifest at path
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Path returns the manifest file location
func (s *Store) Path() string { return s.path }

// Load reads the manifest. A missing file yields an empty manifest.
func (s *Store) Load() (*Manifest, error) {
	m := New()
	data, ok, err := filesystem.ReadIfExists(s.fs, s.path)
	if err != nil || !ok {
		return m, err
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrParse, "invalid manifest %s", s.path)
	}
	if m.Targets == nil {
		m.Targets = make(map[string]Entry)
	}
	return m, nil
}

// Save merges run into the stored manifest: every target run recorded
// replaces its previous entry. An empty run leaves the file untouched.
func (s *Store) Save(run *Manifest) error {
	if run.Empty() {
		return nil
	}
	stored, err := s.Load()
	if err != nil {
		return err
	}
	for name, entry := range run.Targets {
		stored.Targets[name] = entry
	}
	stored.RunID = run.RunID
	return s.write(stored, run.clock())
}

// Forget drops the entries of targets
func (s *Store) Forget(targets ...string) error {
	stored, err := s.Load()
	if err != nil {
		return err
	}
	changed := false
	for _, t := range targets {
		if _, ok := stored.Targets[t]; ok {
			delete(stored.Targets, t)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(stored, time.Now())
}

func (s *Store) write(m *Manifest, now time.Time) error {
	m.Version = Version
	m.UpdatedAt = now.UTC()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot encode manifest")
	}
	if err := filesystem.WriteFileAtomic(s.fs, s.path, append(data, '\n'), filesystem.FilePerm); err != nil {
		return err
	}
	logger := logging.GetLogger("manifest")
	logger.Debug().Str("path", s.path).Int("targets", len(m.Targets)).Msg("Saved manifest")
	return nil
}
