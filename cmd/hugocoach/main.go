// Package main provides the hugocoach CLI tool.
//
// Usage:
//
//	hugocoach [flags] <command> [args]
//
// Commands:
//
//	chat        - Interactive coaching session (chat, audio and video)
//	call        - Live audio role-play call
//	avatar      - Avatar video session utilities
//	techniques  - List available sales techniques
//	transcript  - Manage stored transcripts
//	config      - Configuration management
//	version     - Print version information
//
// Configuration:
//
//	The CLI stores configuration in ~/.hugocoach/
//	Use 'hugocoach config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/Veldie123/hugoherbots.com-sub000/cmd/hugocoach/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
