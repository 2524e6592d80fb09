// Package server wires all MCP components and creates the server
// instance.
//
// This is the composition root (DIP): it creates concrete
// implementations and injects them into the tools/resources that depend
// on abstractions. No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/lvillar/trailguide/internal/decompose"
	"github.com/lvillar/trailguide/internal/frontier"
	"github.com/lvillar/trailguide/internal/history"
	"github.com/lvillar/trailguide/internal/oracle"
	"github.com/lvillar/trailguide/internal/project"
	"github.com/lvillar/trailguide/internal/resources"
	"github.com/lvillar/trailguide/internal/roadmap"
	"github.com/lvillar/trailguide/internal/settings"
	"github.com/lvillar/trailguide/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools and
// resources registered. This is the single place where all dependencies
// are resolved.
//
// The returned cleanup function closes the history store's database
// connection and must be called on shutdown (typically via defer). It
// is always non-nil and safe to call even if history init failed.
func New() (*server.MCPServer, func(), error) {
	cfg, err := settings.Load("")
	if err != nil {
		return nil, noop, fmt.Errorf("loading settings: %w", err)
	}

	// --- Create shared dependencies ---

	projects := project.NewFileStore()
	roadmaps := roadmap.NewFileStore()

	genOracle := oracle.NewSamplingOracle(cfg.SamplingMaxTokens)
	decomposer := decompose.New(genOracle)
	generator := frontier.New(genOracle)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"trailguide",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// Tasks are generated via client-side sampling; clients that lack
	// the capability get deferred prompt descriptors instead.
	s.EnableSampling()

	// --- Completion history ---
	//
	// History is an independent subsystem: if it fails to initialize,
	// roadmap tools continue working — only the engagement signal for
	// stall detection is lost. Log a warning and carry on; the tools
	// are nil-safe around the store.

	cleanup := noop
	histStore, histErr := history.New(history.Config{DataDir: cfg.DataDir})
	if histErr != nil {
		log.Printf("WARNING: completion history disabled: %v", histErr)
		histStore = nil
	} else {
		cleanup = func() {
			if err := histStore.Close(); err != nil {
				log.Printf("WARNING: history store close: %v", err)
			}
		}
	}

	// --- Register tools ---

	initTool := tools.NewInitTool(projects)
	s.AddTool(initTool.Definition(), initTool.Handle)

	buildTool := tools.NewBuildRoadmapTool(projects, roadmaps, decomposer, generator)
	s.AddTool(buildTool.Definition(), buildTool.Handle)

	nextTool := tools.NewNextTaskTool(projects, roadmaps)
	s.AddTool(nextTool.Definition(), nextTool.Handle)

	completeTool := tools.NewCompleteTaskTool(projects, roadmaps, histStore)
	s.AddTool(completeTool.Definition(), completeTool.Handle)

	evolveTool := tools.NewEvolveTool(projects, roadmaps, histStore, cfg.StallWindowDays)
	s.AddTool(evolveTool.Definition(), evolveTool.Handle)

	ingestTool := tools.NewIngestTool(projects, roadmaps)
	s.AddTool(ingestTool.Definition(), ingestTool.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(projects, roadmaps)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when history is
// disabled or hasn't been initialized.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use trailguide effectively.
func serverInstructions() string {
	return `You have access to trailguide, a learning-roadmap MCP server.

## WHEN TO ACTIVATE trailguide

Suggest trailguide when the user:
- States a learning goal ("I want to learn...", "help me get good at...")
- Asks what to study or practice next
- Says they are stuck, bored, or losing motivation with something they study
- Wants their study plan adjusted to limited time or energy

## Workflow

1. path_init_project — once per project directory. Capture the real goal,
   an honest knowledge level (1-10), interests, and any context the user gives.
2. path_build_roadmap — decomposes the goal into domains and generates
   level-appropriate tasks. Tasks are clamped to the learner's level: a
   complete beginner never receives long or difficult tasks, whatever was
   proposed.
3. path_next_task — ALWAYS ask for energy (1-5) and available time before
   calling. The selector only admits tasks whose prerequisites are done and
   that fit the slot; pass the current conversation topic as context so
   thematically relevant tasks score higher.
4. path_complete_task — call right after the user finishes a task, with an
   honest energy_after reading. This feeds stall detection; skipping it makes
   strategy evolution blind.
5. path_evolve_strategy — call when path_next_task returns "none available",
   when the user sounds frustrated or bored, or after a week without
   completions. Pass the user's own words as feedback — sentiment is part of
   the diagnosis.

## Deferred generation

If your environment cannot serve sampling requests, path_build_roadmap
returns one prompt per branch instead of tasks. Run each prompt yourself,
collect the JSON, and submit it with path_ingest_tasks. Ingested tasks are
validated and clamped exactly like sampled ones — never edit difficulty or
duration to bypass the learner's level, it will be clamped anyway.

## Important Rules

- One roadmap document per learning path; "default" unless the user wants
  parallel tracks (e.g. "spanish" and "guitar").
- "No task available" is guidance, not an error — route to
  path_evolve_strategy instead of apologizing.
- Never mark tasks complete the user did not actually do.
- Completion is permanent; warn before calling path_complete_task on the
  wrong task id.
- The trailguide://roadmap/status resource gives a cheap progress overview —
  prefer it over rebuilding when the user just asks "where am I?".`
}
