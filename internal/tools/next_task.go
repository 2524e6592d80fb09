package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lvillar/trailguide/internal/project"
	"github.com/lvillar/trailguide/internal/roadmap"
	"github.com/lvillar/trailguide/internal/selector"
	"github.com/mark3labs/mcp-go/mcp"
)

// NextTaskTool handles the path_next_task MCP tool: scores the
// admissible tasks of a roadmap against the learner's current energy,
// time slot, and conversational context, and returns the single best
// one. "Nothing admissible" is a first-class answer routing the caller
// toward strategy evolution, not an error.
type NextTaskTool struct {
	projects project.Store
	roadmaps roadmap.Store
}

// NewNextTaskTool creates a NextTaskTool with its dependencies.
func NewNextTaskTool(projects project.Store, roadmaps roadmap.Store) *NextTaskTool {
	return &NextTaskTool{projects: projects, roadmaps: roadmaps}
}

// Definition returns the MCP tool definition for registration.
func (t *NextTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("path_next_task",
		mcp.WithDescription(
			"Select the single best next task from the roadmap given available time, "+
				"energy level, and free-text context. Tasks are admissible only when their "+
				"prerequisites are complete and they fit the time slot (up to 20% overrun). "+
				"Returns a 'none available' answer — not an error — when nothing is admissible; "+
				"in that case call path_evolve_strategy.",
		),
		mcp.WithString("path",
			mcp.Description("Learning path name (default: 'default')"),
		),
		mcp.WithNumber("energy_level",
			mcp.Description("Current energy from 1 (drained) to 5 (fresh); default 3"),
		),
		mcp.WithString("time_available",
			mcp.Description("Available time, e.g. '30 minutes', '1 hour', '45'; default 30 minutes"),
		),
		mcp.WithString("context",
			mcp.Description("Free-text context about what you're doing or thinking about right now"),
		),
	)
}

// Handle processes the path_next_task tool call.
func (t *NextTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, cfg, errMsg := requireProject(t.projects)
	if errMsg != "" {
		return mcp.NewToolResultError(errMsg), nil
	}

	path := req.GetString("path", defaultPath)
	doc, err := t.roadmaps.Load(root, path)
	if err != nil {
		if errors.Is(err, roadmap.ErrNotFound) {
			return mcp.NewToolResultError(
				fmt.Sprintf("no roadmap for path %q — build one with path_build_roadmap", path),
			), nil
		}
		return nil, fmt.Errorf("loading roadmap: %w", err)
	}

	minutes := selector.ParseTimeAvailable(req.GetString("time_available", ""))
	sel := selector.Select(doc, selector.Constraints{
		EnergyLevel:      clampInt(int(req.GetFloat("energy_level", 3)), 1, 5),
		TimeAvailableMin: minutes,
		ContextText:      req.GetString("context", ""),
		Goal:             cfg.Goal,
		Interests:        cfg.Interests,
	})

	if sel.Task == nil {
		return mcp.NewToolResultText(fmt.Sprintf(
			"# No Task Available\n\n"+
				"None of the %d tasks is admissible right now (completed, blocked by "+
				"prerequisites, or too long for %d minutes).\n\n"+
				"## Next Step\n\n"+
				"Run `path_evolve_strategy` to diagnose the stall and generate fresh tasks, "+
				"or retry with a longer time slot.",
			sel.Total, minutes,
		)), nil
	}

	task := sel.Task
	var b strings.Builder
	fmt.Fprintf(&b, "# Next Task: %s\n\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", task.Description)
	}
	fmt.Fprintf(&b,
		"- **ID:** `%s`\n- **Branch:** `%s`\n- **Difficulty:** %d/5\n- **Duration:** %d minutes\n- **Score:** %d (from %d admissible of %d tasks)\n",
		task.ID, task.BranchID, task.Difficulty, task.DurationMinutes, sel.Score, sel.Admissible, sel.Total,
	)
	fmt.Fprintf(&b, "\n## When Done\n\nRecord it with `path_complete_task` (task_id=%q) and your energy afterwards.", task.ID)

	return mcp.NewToolResultText(b.String()), nil
}
