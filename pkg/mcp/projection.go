package mcp

import (
	"github.com/arthur-debert/agentconf/pkg/document"
)

// Projection converts the shared registry into one ecosystem's registry value
type Projection func(Registry) (document.Value, []Skipped)

// Passthrough keeps the entries as declared; Claude and Gemini share the schema.
func Passthrough(reg Registry) (document.Value, []Skipped) {
	out := document.NewMap()
	for _, srv := range reg.Servers {
		out.Set(srv.Name, srv.Raw.Clone())
	}
	return document.ObjectValue(out), nil
}

// OpenCode converts to the opencode "mcp" block: local servers run a
// command vector, remote servers carry a url. Every entry is enabled.
func OpenCode(reg Registry) (document.Value, []Skipped) {
	out := document.NewMap()
	var skipped []Skipped

	for _, srv := range reg.Servers {
		entry := document.NewMap()
		entry.Set("enabled", document.BoolValue(true))

		switch {
		case srv.Local():
			entry.Set("type", document.StringValue("local"))
			entry.Set("command", commandVector(srv))
			if srv.Env.Len() > 0 {
				entry.Set("environment", document.ObjectValue(srv.Env.Clone()))
			}
		case srv.Remote():
			entry.Set("type", document.StringValue("remote"))
			entry.Set("url", document.StringValue(srv.URL))
			if srv.Headers.Len() > 0 {
				entry.Set("headers", document.ObjectValue(srv.Headers.Clone()))
			}
		default:
			skipped = append(skipped, Skipped{Server: srv.Name, Reason: "cannot determine server type"})
			continue
		}

		out.Set(SanitizeName(srv.Name), document.ObjectValue(entry))
	}
	return document.ObjectValue(out), skipped
}

// Codex converts to codex "mcp_servers" tables. Codex only launches local
// servers, so remote entries are skipped.
func Codex(reg Registry) (document.Value, []Skipped) {
	out := document.NewMap()
	var skipped []Skipped

	for _, srv := range reg.Servers {
		if !srv.Local() {
			reason := "remote servers are not supported"
			if !srv.Remote() {
				reason = "cannot determine server type"
			}
			skipped = append(skipped, Skipped{Server: srv.Name, Reason: reason})
			continue
		}

		entry := document.NewMap()
		entry.Set("command", document.StringValue(commandOrDefault(srv)))
		if len(srv.Args) > 0 {
			entry.Set("args", stringArray(srv.Args))
		}
		if srv.Env.Len() > 0 {
			entry.Set("env", document.ObjectValue(srv.Env.Clone()))
		}
		out.Set(SanitizeName(srv.Name), document.ObjectValue(entry))
	}
	return document.ObjectValue(out), skipped
}

// defaultCommand is assumed for stdio servers that omit one
const defaultCommand = "bun"

func commandOrDefault(srv Server) string {
	if srv.Command == "" {
		return defaultCommand
	}
	return srv.Command
}

func commandVector(srv Server) document.Value {
	return stringArray(append([]string{commandOrDefault(srv)}, srv.Args...))
}

func stringArray(items []string) document.Value {
	elems := make([]document.Value, len(items))
	for i, s := range items {
		elems[i] = document.StringValue(s)
	}
	return document.ArrayValue(elems...)
}
