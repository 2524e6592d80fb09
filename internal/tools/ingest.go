package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lvillar/trailguide/internal/frontier"
	"github.com/lvillar/trailguide/internal/project"
	"github.com/lvillar/trailguide/internal/roadmap"
	"github.com/mark3labs/mcp-go/mcp"
)

// IngestTool handles the path_ingest_tasks MCP tool — phase 2 of the
// deferred-generation protocol. The caller ran the deferred prompts
// from path_build_roadmap out-of-band and submits the resulting tasks
// per branch. Ingested tasks pass through exactly the same clamping,
// completed-title filtering, and ordering as sampled ones: the source
// is never trusted to honor the band.
type IngestTool struct {
	projects project.Store
	roadmaps roadmap.Store
}

// NewIngestTool creates an IngestTool with its dependencies.
func NewIngestTool(projects project.Store, roadmaps roadmap.Store) *IngestTool {
	return &IngestTool{projects: projects, roadmaps: roadmaps}
}

// branchBatch is the submitted shape: one entry per branch.
type branchBatch struct {
	Branch string `json:"branch"`
	Tasks  []struct {
		Title           string   `json:"title"`
		Description     string   `json:"description"`
		Difficulty      int      `json:"difficulty"`
		DurationMinutes int      `json:"duration_minutes"`
		Priority        int      `json:"priority"`
		Prerequisites   []string `json:"prerequisites"`
	} `json:"tasks"`
}

// Definition returns the MCP tool definition for registration.
func (t *IngestTool) Definition() mcp.Tool {
	return mcp.NewTool("path_ingest_tasks",
		mcp.WithDescription(
			"Ingest externally generated tasks into the roadmap — the completion of a "+
				"deferred generation request from path_build_roadmap. Accepts a JSON array "+
				"of per-branch batches; tasks are clamped to the learner's knowledge band, "+
				"de-duplicated against completed work, given unique sequential ids, and the "+
				"batch is recorded as an audit session.",
		),
		mcp.WithString("branch_tasks",
			mcp.Required(),
			mcp.Description(
				`JSON: [{"branch": "<branch id or title>", "tasks": [{"title": "...", `+
					`"description": "...", "difficulty": 1-5, "duration_minutes": N, `+
					`"priority": N, "prerequisites": ["..."]}]}]`,
			),
		),
		mcp.WithString("path",
			mcp.Description("Learning path name (default: 'default')"),
		),
	)
}

// Handle processes the path_ingest_tasks tool call.
func (t *IngestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, cfg, errMsg := requireProject(t.projects)
	if errMsg != "" {
		return mcp.NewToolResultError(errMsg), nil
	}

	var batches []branchBatch
	if err := json.Unmarshal([]byte(req.GetString("branch_tasks", "")), &batches); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'branch_tasks' is not valid JSON: %v", err)), nil
	}
	if len(batches) == 0 {
		return mcp.NewToolResultError("'branch_tasks' must contain at least one branch batch"), nil
	}

	path := req.GetString("path", defaultPath)
	band := frontier.BandFor(cfg.KnowledgeLevel)

	appended := 0
	var touched []string
	var unknown []string
	_, err := t.roadmaps.Update(root, path, func(doc *roadmap.Document) error {
		appended = 0
		touched = touched[:0]
		unknown = unknown[:0]
		completedTitles := doc.CompletedTitles()

		for _, batch := range batches {
			branch := doc.BranchByName(batch.Branch)
			if branch == nil {
				unknown = append(unknown, batch.Branch)
				continue
			}

			tasks := make([]roadmap.Task, 0, len(batch.Tasks))
			for _, in := range batch.Tasks {
				if strings.TrimSpace(in.Title) == "" {
					continue
				}
				tasks = append(tasks, roadmap.Task{
					Title:           in.Title,
					Description:     in.Description,
					Difficulty:      in.Difficulty,
					DurationMinutes: in.DurationMinutes,
					Priority:        in.Priority,
					Prerequisites:   in.Prerequisites,
				})
			}

			tasks = frontier.Normalize(tasks, band, branch.ID, completedTitles)
			if len(tasks) == 0 {
				continue
			}
			if err := doc.AppendTasks(tasks); err != nil {
				return err
			}
			appended += len(tasks)
			touched = append(touched, branch.ID)
		}

		if appended > 0 {
			doc.AppendSession(roadmap.GenerationSession{
				SessionID:       uuid.NewString(),
				Timestamp:       time.Now().UTC().Format(time.RFC3339),
				TaskCount:       appended,
				BranchesTouched: touched,
			})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, roadmap.ErrNotFound) {
			return mcp.NewToolResultError(
				fmt.Sprintf("no roadmap for path %q — build one with path_build_roadmap", path),
			), nil
		}
		return nil, fmt.Errorf("ingesting tasks: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Tasks Ingested\n\nAppended **%d** tasks across %d branches.\n", appended, len(touched))
	if len(unknown) > 0 {
		fmt.Fprintf(&b, "\nSkipped unknown branches: %s.\n", strings.Join(unknown, ", "))
	}
	b.WriteString("\n## Next Step\n\nPick up work with `path_next_task`.")
	return mcp.NewToolResultText(b.String()), nil
}
