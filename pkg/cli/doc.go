// Package cli provides the shared plumbing of the hugocoach command-line
// tool.
//
// This package includes:
//   - Configuration management (contexts pointing at coaching backends)
//   - Output formatting (JSON, YAML, raw)
//   - Request file loading (YAML/JSON)
//   - Terminal UI building blocks for the live call views
//
// Configuration is stored in ~/.hugocoach/, supporting multiple contexts
// similar to kubectl.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig()
//	ctx, err := cfg.GetCurrentContext()
//	cli.Output(result, cli.OutputOptions{Format: cli.FormatJSON})
package cli
