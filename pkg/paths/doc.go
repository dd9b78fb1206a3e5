// Package paths provides centralized path handling for agentconf.
//
// It has two concerns:
//
//   - Locating agentconf's own files (user config, manifest, log) following
//     the XDG Base Directory specification.
//   - Guarding every path built from source tree content. Names that come
//     from the source tree may originate from a network clone of
//     third-party-controlled text, so they pass through [ValidateSegment]
//     and are joined only with [JoinSegments].
//
// # Environment Variables
//
//   - AGENTCONF_CONFIG_DIR: Override config directory (default: $XDG_CONFIG_HOME/agentconf)
//   - AGENTCONF_STATE_DIR: Override state directory (default: $XDG_STATE_HOME/agentconf)
//
// # Usage
//
//	p, err := paths.New()
//	if err != nil {
//	    return err
//	}
//	manifestPath := p.ManifestPath()
//
//	dest, err := paths.JoinSegments(target.Root, "agents", name)
//	if err != nil {
//	    // skip this item only
//	}
package paths
