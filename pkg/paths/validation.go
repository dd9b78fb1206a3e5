package paths

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/errors"
)

// shellMetacharacters may never appear in a name taken from the source tree.
var shellMetacharacters = []string{";", "|", "&", "`", "$(", ">", "<"}

// ValidateSegment decides whether a name taken from the source tree may be
// used as a filesystem path segment. It rejects:
//   - empty names and names containing NUL bytes
//   - parent directory traversal (a ".." element)
//   - absolute paths
//   - names starting with a home directory expansion (~)
//   - shell metacharacters: ; | & ` $( > <
//
// The returned error carries errors.ErrInvalidPath and a "rule" detail.
func ValidateSegment(segment string) error {
	if segment == "" {
		return invalid(segment, "empty", "name cannot be empty")
	}

	if strings.Contains(segment, "\x00") {
		return invalid(segment, "nul", "name contains null bytes")
	}

	for _, elem := range strings.FieldsFunc(segment, isSeparator) {
		if elem == ".." {
			return invalid(segment, "traversal", "name contains parent directory reference")
		}
	}

	if filepath.IsAbs(segment) || strings.HasPrefix(segment, "/") || strings.HasPrefix(segment, `\`) {
		return invalid(segment, "absolute", "name is an absolute path")
	}

	if strings.HasPrefix(segment, "~") {
		return invalid(segment, "home", "name starts with a home directory expansion")
	}

	for _, meta := range shellMetacharacters {
		if strings.Contains(segment, meta) {
			return invalid(segment, "metachar", "name contains shell metacharacter "+meta)
		}
	}

	return nil
}

// JoinSegments validates every segment and joins them below root.
// root is trusted (it comes from the target table or the user's config),
// segments are not.
func JoinSegments(root string, segments ...string) (string, error) {
	for _, s := range segments {
		if err := ValidateSegment(s); err != nil {
			return "", err
		}
	}

	elems := make([]string, 0, len(segments)+1)
	elems = append(elems, root)
	elems = append(elems, segments...)
	joined := filepath.Join(elems...)

	if !ContainsPath(root, joined) {
		return "", invalid(strings.Join(segments, "/"), "escape", "path escapes its root")
	}
	return joined, nil
}

// ContainsPath checks if child is contained within parent.
func ContainsPath(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

func invalid(segment, rule, message string) error {
	return errors.New(errors.ErrInvalidPath, message).
		WithDetail("segment", segment).
		WithDetail("rule", rule)
}
