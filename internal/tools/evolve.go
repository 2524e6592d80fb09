package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lvillar/trailguide/internal/history"
	"github.com/lvillar/trailguide/internal/project"
	"github.com/lvillar/trailguide/internal/roadmap"
	"github.com/lvillar/trailguide/internal/strategy"
	"github.com/mark3labs/mcp-go/mcp"
)

// EvolveTool handles the path_evolve_strategy MCP tool: it diagnoses a
// stalled roadmap from availability, recent progress, engagement, and
// feedback sentiment, then injects remediation tasks into the same pool
// path_next_task selects from.
type EvolveTool struct {
	projects    project.Store
	roadmaps    roadmap.Store
	history     *history.Store
	stallWindow time.Duration
}

// NewEvolveTool creates an EvolveTool. stallWindowDays is the trailing
// window for progress/engagement analysis.
func NewEvolveTool(projects project.Store, roadmaps roadmap.Store, h *history.Store, stallWindowDays int) *EvolveTool {
	return &EvolveTool{
		projects:    projects,
		roadmaps:    roadmaps,
		history:     h,
		stallWindow: time.Duration(stallWindowDays) * 24 * time.Hour,
	}
}

// Definition returns the MCP tool definition for registration.
func (t *EvolveTool) Definition() mcp.Tool {
	return mcp.NewTool("path_evolve_strategy",
		mcp.WithDescription(
			"Diagnose why progress on the roadmap has stalled and adapt it. Checks task "+
				"availability, recent completions, post-completion energy, and the sentiment "+
				"of your feedback, then synthesizes up to 5 remediation tasks (marked as "+
				"freshly generated so path_next_task favors them). Call this when "+
				"path_next_task reports nothing available or motivation is dropping.",
		),
		mcp.WithString("path",
			mcp.Description("Learning path name (default: 'default')"),
		),
		mcp.WithString("feedback",
			mcp.Description("Free-text feedback on how learning is going — sentiment steers the remedy"),
		),
	)
}

// Handle processes the path_evolve_strategy tool call.
func (t *EvolveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, cfg, errMsg := requireProject(t.projects)
	if errMsg != "" {
		return mcp.NewToolResultError(errMsg), nil
	}

	path := req.GetString("path", defaultPath)
	feedback := req.GetString("feedback", "")

	var recent []history.Completion
	var last *history.Completion
	if t.history != nil {
		var err error
		recent, err = t.history.Since(root, path, time.Now().Add(-t.stallWindow))
		if err != nil {
			log.Printf("WARNING: reading completion history: %v", err)
		}
		last, err = t.history.Last(root, path)
		if err != nil {
			log.Printf("WARNING: reading last completion: %v", err)
		}
	}

	var res strategy.Result
	_, err := t.roadmaps.Update(root, path, func(doc *roadmap.Document) error {
		var evolveErr error
		res, evolveErr = strategy.Evolve(strategy.Input{
			Doc:               doc,
			RecentCompletions: recent,
			Last:              last,
			Interests:         cfg.Interests,
			Feedback:          feedback,
		})
		return evolveErr
	})
	if err != nil {
		if errors.Is(err, roadmap.ErrNotFound) {
			return mcp.NewToolResultError(
				fmt.Sprintf("no roadmap for path %q — build one with path_build_roadmap", path),
			), nil
		}
		return nil, fmt.Errorf("evolving strategy: %w", err)
	}

	return mcp.NewToolResultText(renderEvolution(res)), nil
}

func renderEvolution(res strategy.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Strategy Evolution: %s\n\n", res.Diagnosis)
	fmt.Fprintf(&b, "- **Progress:** %d/%d tasks completed, %d currently unlockable\n", res.Completed, res.Total, res.Admissible)
	fmt.Fprintf(&b, "- **Feedback sentiment:** %s\n", res.Sentiment)
	fmt.Fprintf(&b, "- **Stall indicators:** no-available=%v, no-recent-progress=%v, low-engagement=%v\n",
		res.Indicators.NoAvailableTasks, res.Indicators.NoRecentProgress, res.Indicators.LowEngagement)

	if len(res.NewTasks) == 0 {
		b.WriteString("\nThe roadmap looks healthy — no new tasks needed. Keep going with `path_next_task`.")
		return b.String()
	}

	fmt.Fprintf(&b, "\n## New Tasks (%d)\n\n", len(res.NewTasks))
	for i := range res.NewTasks {
		b.WriteString(taskLine(&res.NewTasks[i]) + "\n")
	}
	b.WriteString("\n## Next Step\n\nThese are boosted in selection — run `path_next_task` to pick one up.")
	return b.String()
}
