package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lvillar/trailguide/internal/decompose"
	"github.com/lvillar/trailguide/internal/frontier"
	"github.com/lvillar/trailguide/internal/oracle"
	"github.com/lvillar/trailguide/internal/project"
	"github.com/lvillar/trailguide/internal/roadmap"
	"github.com/mark3labs/mcp-go/mcp"
)

// BuildRoadmapTool handles the path_build_roadmap MCP tool: goal →
// branches → level-banded tasks, persisted as one roadmap document per
// learning path.
//
// When the connected client cannot sample, affected branches come back
// as deferred prompt descriptors; the caller runs the prompts itself
// and feeds results back through path_ingest_tasks (phase 2).
type BuildRoadmapTool struct {
	projects   project.Store
	roadmaps   roadmap.Store
	decomposer *decompose.Decomposer
	generator  *frontier.Generator
}

// NewBuildRoadmapTool creates a BuildRoadmapTool with its dependencies.
func NewBuildRoadmapTool(projects project.Store, roadmaps roadmap.Store, d *decompose.Decomposer, g *frontier.Generator) *BuildRoadmapTool {
	return &BuildRoadmapTool{projects: projects, roadmaps: roadmaps, decomposer: d, generator: g}
}

// Definition returns the MCP tool definition for registration.
func (t *BuildRoadmapTool) Definition() mcp.Tool {
	return mcp.NewTool("path_build_roadmap",
		mcp.WithDescription(
			"Build (or rebuild) the learning roadmap for the active project: decompose the "+
				"goal into domains, then generate level-appropriate tasks per domain with a "+
				"prerequisite graph. Rebuilding preserves completed tasks and never resurrects "+
				"finished work. If the client cannot answer generation requests synchronously, "+
				"the response contains deferred prompts to run and ingest via path_ingest_tasks.",
		),
		mcp.WithString("path",
			mcp.Description("Learning path name; one roadmap document per path (default: 'default')"),
		),
		mcp.WithString("learning_style",
			mcp.Description("Preferred learning style, e.g. 'hands-on projects', passed to generation"),
		),
		mcp.WithString("focus_areas",
			mcp.Description("Comma-separated focus areas overriding both inference and the project config"),
		),
	)
}

// Handle processes the path_build_roadmap tool call.
func (t *BuildRoadmapTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, cfg, errMsg := requireProject(t.projects)
	if errMsg != "" {
		return mcp.NewToolResultError(errMsg), nil
	}

	path := req.GetString("path", defaultPath)
	learningStyle := req.GetString("learning_style", "")
	focusAreas := splitCSV(req.GetString("focus_areas", ""))
	if len(focusAreas) == 0 {
		focusAreas = cfg.FocusAreas
	}

	// A rebuild keeps completed tasks so finished work survives, and
	// their titles suppress regeneration of the same tasks.
	existing, err := t.roadmaps.Load(root, path)
	if err != nil && !errors.Is(err, roadmap.ErrNotFound) {
		return nil, fmt.Errorf("loading roadmap: %w", err)
	}
	completedTitles := map[string]bool{}
	var keep []roadmap.Task
	if existing != nil {
		completedTitles = existing.CompletedTitles()
		for _, task := range existing.Tasks {
			if task.Completed {
				keep = append(keep, task)
			}
		}
	}

	branches := t.decomposer.Decompose(ctx, cfg.Goal, focusAreas, cfg.KnowledgeLevel)
	results := t.generator.GenerateAll(ctx, cfg.Goal, branches, cfg.Interests, learningStyle, cfg.KnowledgeLevel, completedTitles, cfg.Context)

	var generated []roadmap.Task
	var deferredPrompts []*oracle.PromptDescriptor
	for _, r := range results {
		if r.Deferred != nil {
			deferredPrompts = append(deferredPrompts, r.Deferred)
			continue
		}
		generated = append(generated, r.Tasks...)
	}

	// Decomposition is nondeterministic, so a rebuild may propose a
	// branch set that no longer contains a completed task's branch.
	// Completed work must survive regardless: old branches still
	// referenced by kept tasks are carried into the new set.
	if len(keep) > 0 {
		branches, keep = carryForwardBranches(branches, existing, keep)
	}

	doc := existing
	if doc == nil {
		doc = &roadmap.Document{Goal: cfg.Goal}
	}
	doc.LearningStyle = learningStyle
	doc.FocusAreas = focusAreas
	doc.Branches = branches
	doc.Tasks = nil
	if err := doc.AppendTasks(keep); err != nil {
		return nil, fmt.Errorf("restoring completed tasks: %w", err)
	}
	if err := doc.AppendTasks(generated); err != nil {
		return nil, fmt.Errorf("appending generated tasks: %w", err)
	}
	if len(generated) > 0 {
		doc.AppendSession(roadmap.GenerationSession{
			SessionID:       uuid.NewString(),
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			TaskCount:       len(generated),
			BranchesTouched: branchIDs(results),
		})
	}

	if err := t.roadmaps.Save(root, path, doc); err != nil {
		if errors.Is(err, roadmap.ErrConflict) {
			return mcp.NewToolResultError(
				"roadmap changed while building — retry path_build_roadmap",
			), nil
		}
		return nil, fmt.Errorf("saving roadmap: %w", err)
	}

	return mcp.NewToolResultText(t.buildResponse(path, doc, deferredPrompts)), nil
}

// carryForwardBranches appends to the fresh branch set any branch from
// the previous document that a kept (completed) task still references.
// A kept task whose branch is gone from the old document too is
// reattached to the first fresh branch rather than dropped.
func carryForwardBranches(fresh []roadmap.Branch, old *roadmap.Document, keep []roadmap.Task) ([]roadmap.Branch, []roadmap.Task) {
	have := make(map[string]bool, len(fresh))
	for _, b := range fresh {
		have[b.ID] = true
	}
	for i := range keep {
		if have[keep[i].BranchID] {
			continue
		}
		if b := old.BranchByID(keep[i].BranchID); b != nil {
			fresh = append(fresh, *b)
			have[b.ID] = true
			continue
		}
		keep[i].BranchID = fresh[0].ID
	}
	return fresh, keep
}

func branchIDs(results []frontier.Result) []string {
	var ids []string
	for _, r := range results {
		if len(r.Tasks) > 0 {
			ids = append(ids, r.BranchID)
		}
	}
	return ids
}

// buildResponse renders the human-readable roadmap summary, including
// deferred generation instructions when the client cannot sample.
func (t *BuildRoadmapTool) buildResponse(path string, doc *roadmap.Document, deferred []*oracle.PromptDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Roadmap Built: %s\n\n**Goal:** %s\n\n## Branches\n\n", path, doc.Goal)

	perBranch := make(map[string]int)
	for i := range doc.Tasks {
		perBranch[doc.Tasks[i].BranchID]++
	}
	for _, br := range doc.Branches {
		fmt.Fprintf(&b, "- **%s** `%s` — %d tasks", br.Title, br.ID, perBranch[br.ID])
		if len(br.SubBranches) > 0 {
			var subs []string
			for _, sb := range br.SubBranches {
				subs = append(subs, sb.Title)
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(subs, ", "))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n**Total tasks:** %d\n", len(doc.Tasks))

	if len(deferred) > 0 {
		b.WriteString("\n## Deferred Generation\n\n" +
			"Your client does not support sampling, so tasks for the branches below " +
			"were not generated. Run each prompt yourself, then call `path_ingest_tasks` " +
			"with the resulting JSON per branch:\n")
		for _, d := range deferred {
			branch, _ := d.Payload["branch_id"].(string)
			fmt.Fprintf(&b, "\n### Branch `%s`\n\n```\n%s\n```\n", branch, d.Prompt)
		}
	} else {
		b.WriteString("\n## Next Step\n\nAsk for your next task with `path_next_task`.")
	}
	return b.String()
}
