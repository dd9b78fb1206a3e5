// Package mcp reads the shared MCP server registry and projects it onto each
// ecosystem's own registry schema.
//
// The shared registry uses the Claude "mcpServers" layout:
//
//	{
//	  "mcpServers": {
//	    "context7":   {"type": "sse", "url": "https://mcp.context7.com/sse"},
//	    "playwright": {"type": "stdio", "command": "bun", "args": ["x", "-y", "@playwright/mcp@latest"]}
//	  }
//	}
package mcp

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/agentconf/pkg/document"
	"github.com/arthur-debert/agentconf/pkg/errors"
)

// RegistryKey is the top-level key of the shared registry document
const RegistryKey = "mcpServers"

// Transport types found in the shared registry
const (
	TypeStdio = "stdio"
	TypeSSE   = "sse"
	TypeHTTP  = "http"
)

// Server is one registry entry
type Server struct {
	Name        string
	Type        string
	Command     string
	Args        []string
	Env         *document.Map
	URL         string
	Headers     *document.Map
	Description string
	// Raw is the entry exactly as declared
	Raw document.Value
}

// Registry is the ordered list of declared servers
type Registry struct {
	Servers []Server
}

// Len returns the number of servers
func (r Registry) Len() int { return len(r.Servers) }

// Parse reads a registry document. A document without the registry key
// yields an empty registry.
func Parse(v document.Value) (Registry, error) {
	servers, ok := v.Lookup(document.Path{RegistryKey})
	if !ok {
		return Registry{}, nil
	}
	if !servers.IsObject() {
		return Registry{}, errors.Newf(errors.ErrParse, "%s must be an object, got %s", RegistryKey, servers.Kind())
	}

	var reg Registry
	for _, name := range servers.Map().Keys() {
		entry, _ := servers.Map().Get(name)
		srv, err := parseServer(name, entry)
		if err != nil {
			return Registry{}, err
		}
		reg.Servers = append(reg.Servers, srv)
	}
	return reg, nil
}

func parseServer(name string, v document.Value) (Server, error) {
	if !v.IsObject() {
		return Server{}, errors.Newf(errors.ErrParse, "server %q must be an object", name)
	}
	m := v.Map()
	srv := Server{Name: name, Raw: v}

	str := func(key string) (string, error) {
		val, ok := m.Get(key)
		if !ok || val.IsNull() {
			return "", nil
		}
		if val.Kind() != document.String {
			return "", errors.Newf(errors.ErrParse, "server %q: %s must be a string", name, key)
		}
		return val.Str(), nil
	}
	obj := func(key string) (*document.Map, error) {
		val, ok := m.Get(key)
		if !ok || val.IsNull() {
			return nil, nil
		}
		if !val.IsObject() {
			return nil, errors.Newf(errors.ErrParse, "server %q: %s must be an object", name, key)
		}
		return val.Map(), nil
	}

	var err error
	if srv.Type, err = str("type"); err != nil {
		return Server{}, err
	}
	if srv.Command, err = str("command"); err != nil {
		return Server{}, err
	}
	if srv.URL, err = str("url"); err != nil {
		return Server{}, err
	}
	if srv.Description, err = str("description"); err != nil {
		return Server{}, err
	}
	if srv.Env, err = obj("env"); err != nil {
		return Server{}, err
	}
	if srv.Headers, err = obj("headers"); err != nil {
		return Server{}, err
	}

	if args, ok := m.Get("args"); ok && !args.IsNull() {
		if !args.IsArray() {
			return Server{}, errors.Newf(errors.ErrParse, "server %q: args must be an array", name)
		}
		for i, a := range args.Elems() {
			if a.Kind() != document.String {
				return Server{}, errors.Newf(errors.ErrParse, "server %q: args[%d] must be a string", name, i)
			}
			srv.Args = append(srv.Args, a.Str())
		}
	}
	return srv, nil
}

// Local reports whether the server is launched as a local process: a stdio
// server, or any server that is not remote and names a command.
func (s Server) Local() bool {
	return s.Type == TypeStdio || (!s.Remote() && s.Command != "")
}

// Remote reports whether the server is reached over the network
func (s Server) Remote() bool {
	return s.Type == TypeSSE || s.Type == TypeHTTP
}

// SanitizeName makes a server name safe as a config key in every ecosystem
func SanitizeName(name string) string {
	return strings.NewReplacer(" ", "_", "/", "_").Replace(name)
}

// Skipped is a server a projection could not express
type Skipped struct {
	Server string
	Reason string
}

func (s Skipped) String() string {
	return fmt.Sprintf("%s: %s", s.Server, s.Reason)
}
