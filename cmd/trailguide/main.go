// Trailguide: adaptive learning-roadmap MCP server
//
// Decomposes a learning goal into a roadmap of level-banded tasks,
// selects the best next task for the learner's current time and energy,
// and evolves the plan when progress stalls. Integrates with any
// MCP-capable AI tool over stdio.
//
// Usage:
//
//	trailguide serve    # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"os"

	tgserver "github.com/lvillar/trailguide/internal/server"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("trailguide v%s\n", tgserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := tgserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Diagnostics go to stderr only — stdout is the MCP transport.
	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `trailguide v%s — adaptive learning-roadmap MCP server

Usage:
  trailguide serve    Start the MCP server (stdio transport)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "trailguide": {
        "command": "trailguide",
        "args": ["serve"]
      }
    }
  }

Optional server settings: ~/.trailguide/config.yaml
  data_dir:            directory for the completion-history database
  sampling_max_tokens: cap on sampled generation responses
  stall_window_days:   trailing window for stall detection
`, tgserver.Version)
}
