package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lvillar/trailguide/internal/history"
	"github.com/lvillar/trailguide/internal/project"
	"github.com/lvillar/trailguide/internal/roadmap"
	"github.com/mark3labs/mcp-go/mcp"
)

// CompleteTaskTool handles the path_complete_task MCP tool. It marks a
// task completed in the roadmap (completion never reverts) and records
// a history event with the learner's post-completion energy, which
// feeds stall detection.
//
// The history store is nil-safe: if it failed to initialize, completion
// still works, only the engagement signal is lost.
type CompleteTaskTool struct {
	projects project.Store
	roadmaps roadmap.Store
	history  *history.Store
}

// NewCompleteTaskTool creates a CompleteTaskTool with its dependencies.
func NewCompleteTaskTool(projects project.Store, roadmaps roadmap.Store, h *history.Store) *CompleteTaskTool {
	return &CompleteTaskTool{projects: projects, roadmaps: roadmaps, history: h}
}

// Definition returns the MCP tool definition for registration.
func (t *CompleteTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("path_complete_task",
		mcp.WithDescription(
			"Mark a roadmap task as completed and record how the learner felt afterwards. "+
				"Completion unlocks tasks that listed this one as a prerequisite and is "+
				"permanent. The energy reading feeds stall detection in path_evolve_strategy.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The id of the completed task (as shown by path_next_task)"),
		),
		mcp.WithString("path",
			mcp.Description("Learning path name (default: 'default')"),
		),
		mcp.WithNumber("energy_after",
			mcp.Description("Energy right after finishing, 1 (drained) to 5 (energized); default 3"),
		),
	)
}

// Handle processes the path_complete_task tool call.
func (t *CompleteTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, _, errMsg := requireProject(t.projects)
	if errMsg != "" {
		return mcp.NewToolResultError(errMsg), nil
	}

	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}
	path := req.GetString("path", defaultPath)
	energy := clampInt(int(req.GetFloat("energy_after", 3)), 1, 5)

	var completed roadmap.Task
	_, err := t.roadmaps.Update(root, path, func(doc *roadmap.Document) error {
		task, err := doc.MarkCompleted(taskID)
		if err != nil {
			return err
		}
		completed = *task
		return nil
	})
	if err != nil {
		if errors.Is(err, roadmap.ErrNotFound) {
			return mcp.NewToolResultError(
				fmt.Sprintf("no roadmap for path %q — build one with path_build_roadmap", path),
			), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	if t.history != nil {
		_, recErr := t.history.Record(history.Completion{
			ProjectRoot: root,
			Path:        path,
			TaskID:      completed.ID,
			Title:       completed.Title,
			Difficulty:  completed.Difficulty,
			EnergyAfter: energy,
		})
		if recErr != nil {
			log.Printf("WARNING: recording completion history: %v", recErr)
		}
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"# Task Completed\n\n%s\n\nEnergy after: %d/5.\n\n"+
			"## Next Step\n\nAsk for the next one with `path_next_task`.",
		taskLine(&completed), energy,
	)), nil
}
