// Package frontmatter reads the YAML header of agent and command documents.
//
// Documents open with a header fenced by "---" lines:
//
//	---
//	name: code-reviewer
//	description: Reviews a diff for correctness
//	tools: [Read, Grep]
//	---
//	Body text.
package frontmatter

import (
	"bytes"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/errors"
	"gopkg.in/yaml.v3"
)

const fence = "---"

// Header is the part of the front matter agentconf inspects. Other fields
// are kept in Extra.
type Header struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Extra       map[string]interface{} `yaml:",inline"`
}

// Split separates the front matter from the body. ok is false when the
// document has no header.
func Split(data []byte) (header, body []byte, ok bool) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	first, rest, found := cutLine(data)
	if !found || strings.TrimSpace(string(first)) != fence {
		return nil, data, false
	}

	var start = len(data) - len(rest)
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		if strings.TrimRight(string(line), " \t\r") == fence {
			end := len(data) - len(rest)
			return data[start:end], next, true
		}
		rest = next
	}
	return nil, data, false
}

// Parse decodes the front matter of data. A document without a header yields
// a zero Header and ok=false.
func Parse(data []byte) (h Header, ok bool, err error) {
	raw, _, ok := Split(data)
	if !ok {
		return Header{}, false, nil
	}
	if err := yaml.Unmarshal(raw, &h); err != nil {
		return Header{}, true, errors.Wrap(err, errors.ErrParse, "invalid front matter")
	}
	return h, true, nil
}

// Problems lists what an agent document is missing. An empty result means
// the header is complete.
func Problems(data []byte) []string {
	h, ok, err := Parse(data)
	if err != nil {
		return []string{err.Error()}
	}
	if !ok {
		return []string{"missing front matter"}
	}

	var out []string
	if strings.TrimSpace(h.Name) == "" {
		out = append(out, "missing name")
	}
	if strings.TrimSpace(h.Description) == "" {
		out = append(out, "missing description")
	}
	return out
}

func cutLine(data []byte) (line, rest []byte, found bool) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i], data[i+1:], true
	}
	return data, nil, len(data) > 0
}
