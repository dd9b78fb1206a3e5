package targets

// What agentconf ships. Uninstall matches against these lists only, so a user
// entry that happens to share a directory or a key is left in place.

var managedEnvVars = []string{
	"BASH_DEFAULT_TIMEOUT_MS",
	"BASH_MAX_TIMEOUT_MS",
	"CLAUDE_BASH_MAINTAIN_PROJECT_WORKING_DIR",
	"DISABLE_NON_ESSENTIAL_MODEL_CALLS",
	"MAX_MCP_OUTPUT_TOKENS",
}

// Substrings of hook commands
var managedHookCommands = []string{
	"agentconf-hook",
	"agentconf notify",
}

var managedServers = []string{
	"context7",
	"playwright",
	"linear",
	"grep",
	"DeepGraph TypeScript MCP",
}

var managedAgents = []string{
	"code-reviewer.md",
	"debugger.md",
	"docs-writer.md",
	"test-runner.md",
}

var managedCommands = []string{
	"commit.md",
	"plan.md",
	"review-pr.md",
}
