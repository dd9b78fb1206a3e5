// Package testutil provides utilities for testing agentconf components.
//
// Key components:
//   - Environment: an isolated home, source tree and agentconf directories
//     under t.TempDir(), with the process environment pointed at them
//   - WriteFile / ReadFile: one-line fixture helpers failing the test on error
//
// Usage guidelines:
//   - Tests that only need a filesystem use afero.NewMemMapFs() directly
//   - Tests that go through paths.New() or the CLI use NewEnvironment
//   - All test data should be defined inline, not in external files
package testutil
