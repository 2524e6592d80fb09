package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lvillar/trailguide/internal/project"
	"github.com/mark3labs/mcp-go/mcp"
)

// InitTool handles the path_init_project MCP tool. It creates (or
// updates) the learner configuration in the current directory, which
// becomes the active project for every other tool.
type InitTool struct {
	projects project.Store
}

// NewInitTool creates an InitTool with its dependencies.
func NewInitTool(projects project.Store) *InitTool {
	return &InitTool{projects: projects}
}

// Definition returns the MCP tool definition for registration.
func (t *InitTool) Definition() mcp.Tool {
	return mcp.NewTool("path_init_project",
		mcp.WithDescription(
			"Initialize a trailguide learning project in the current directory. "+
				"Records the learner's goal, knowledge level, interests and context in "+
				".trailguide/project.json. Every other path_* tool requires an initialized "+
				"project. Calling it again updates the existing configuration.",
		),
		mcp.WithString("goal",
			mcp.Required(),
			mcp.Description("The high-level learning goal, e.g. 'become fluent in Spanish'"),
		),
		mcp.WithNumber("knowledge_level",
			mcp.Required(),
			mcp.Description("Current knowledge level from 1 (complete beginner) to 10 (expert)"),
		),
		mcp.WithString("interests",
			mcp.Description("Comma-separated personal interests, used to keep tasks engaging"),
		),
		mcp.WithString("focus_areas",
			mcp.Description("Comma-separated focus areas; when set they override inferred roadmap domains"),
		),
		mcp.WithString("context",
			mcp.Description("Freeform learner context: schedule, background, preferences"),
		),
	)
}

// Handle processes the path_init_project tool call.
func (t *InitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goal := strings.TrimSpace(req.GetString("goal", ""))
	level := int(req.GetFloat("knowledge_level", 0))

	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := project.New(goal, level,
		splitCSV(req.GetString("interests", "")),
		splitCSV(req.GetString("focus_areas", "")),
		req.GetString("context", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	verb := "initialized"
	if existing, loadErr := t.projects.Load(root); loadErr == nil {
		cfg.CreatedAt = existing.CreatedAt
		verb = "updated"
	}

	if err := t.projects.Save(root, cfg); err != nil {
		return nil, fmt.Errorf("saving project config: %w", err)
	}

	response := fmt.Sprintf(
		"# Project %s\n\n"+
			"- **Goal:** %s\n"+
			"- **Knowledge level:** %d/10\n"+
			"- **Interests:** %s\n"+
			"- **Focus areas:** %s\n\n"+
			"Saved to `%s`.\n\n"+
			"## Next Step\n\n"+
			"Build the roadmap with `path_build_roadmap`.",
		verb, cfg.Goal, cfg.KnowledgeLevel,
		orNone(cfg.Interests), orNone(cfg.FocusAreas),
		project.ConfigPath(root),
	)
	return mcp.NewToolResultText(response), nil
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
