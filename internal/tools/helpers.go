// Package tools implements the MCP tool handlers for trailguide.
//
// Each tool is a struct receiving its dependencies at construction
// (DIP) and exposing a Definition for registration plus a Handle
// compatible with mcp-go's CallToolRequest signature. One file per
// tool.
package tools

import (
	"fmt"
	"strings"

	"github.com/lvillar/trailguide/internal/project"
	"github.com/lvillar/trailguide/internal/roadmap"
)

// defaultPath is the learning path used when the caller names none.
const defaultPath = "default"

// requireProject resolves the active project root and loads its config.
// The third return is a user-facing error message ("" when ok) — tools
// surface it via mcp.NewToolResultError rather than a handler error.
func requireProject(projects project.Store) (string, *project.Config, string) {
	root, err := project.FindRoot()
	if err != nil {
		return "", nil, err.Error()
	}
	cfg, err := projects.Load(root)
	if err != nil {
		return "", nil, err.Error()
	}
	return root, cfg, ""
}

// splitCSV parses a comma-separated argument into trimmed, non-empty
// entries.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// taskLine renders one task as a markdown bullet for tool responses.
func taskLine(t *roadmap.Task) string {
	flags := ""
	if t.Completed {
		flags += " ✓"
	}
	if t.Generated {
		flags += " (new)"
	}
	return fmt.Sprintf("- **%s** `%s` — difficulty %d, %d min, priority %d%s",
		t.Title, t.ID, t.Difficulty, t.DurationMinutes, t.Priority, flags)
}

// clampInt bounds v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
