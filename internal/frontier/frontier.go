// Package frontier generates the concrete, level-banded tasks of a
// roadmap branch.
//
// The knowledge band shapes the oracle request (session length guidance,
// explicit difficulty ceilings), but the oracle is never trusted to
// honor it: every candidate task passes through the same deterministic
// clamp regardless of where it came from, including tasks ingested
// through the deferred two-phase protocol.
package frontier

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/lvillar/trailguide/internal/oracle"
	"github.com/lvillar/trailguide/internal/roadmap"
)

// Band is one of the four knowledge-level tiers driving task shape.
type Band struct {
	Name            string
	MaxDifficulty   int
	IdealDifficulty int
	MaxDuration     int // minutes; 0 means uncapped
	Instruction     string
}

// BandFor maps a knowledge level in [1,10] to its band. Out-of-range
// levels clamp to the nearest band.
func BandFor(level int) Band {
	switch {
	case level <= 2:
		return Band{
			Name:            "complete beginner",
			MaxDifficulty:   1,
			IdealDifficulty: 1,
			MaxDuration:     25,
			Instruction: "The learner is a complete beginner. Every task MUST be difficulty 1 " +
				"and take at most 25 minutes. Prefer guided, single-concept sessions.",
		}
	case level <= 4:
		return Band{
			Name:            "early learner",
			MaxDifficulty:   2,
			IdealDifficulty: 2,
			MaxDuration:     45,
			Instruction: "The learner is past the basics. Tasks should be difficulty 1-2 and " +
				"take at most 45 minutes, mixing practice with short new concepts.",
		}
	case level <= 6:
		return Band{
			Name:            "intermediate",
			MaxDifficulty:   3,
			IdealDifficulty: 3,
			MaxDuration:     60,
			Instruction: "The learner is intermediate. Tasks should be difficulty 1-3 and take " +
				"at most 60 minutes, emphasizing applied projects over drills.",
		}
	default:
		return Band{
			Name:            "advanced",
			MaxDifficulty:   5,
			IdealDifficulty: 5,
			MaxDuration:     0,
			Instruction: "The learner is advanced. Tasks may use the full difficulty range 1-5 " +
				"with no session length cap. Prefer deep, open-ended work.",
		}
	}
}

// defaultBatchSize is the number of tasks requested per branch.
const defaultBatchSize = 5

// Request carries everything the generator needs for one branch.
type Request struct {
	Goal            string
	Branch          roadmap.Branch
	Interests       []string
	LearningStyle   string
	KnowledgeLevel  int
	CompletedTitles map[string]bool
	Context         string
}

// Result is the outcome for one branch: either tasks (possibly empty —
// a degraded oracle leaves the branch task-less, not broken) or a
// deferred descriptor for out-of-band generation.
type Result struct {
	BranchID string
	Tasks    []roadmap.Task
	Deferred *oracle.PromptDescriptor
}

// Generator produces level-banded tasks per branch.
type Generator struct {
	oracle oracle.Oracle
}

// New creates a Generator backed by the given oracle.
func New(o oracle.Oracle) *Generator {
	return &Generator{oracle: o}
}

// taskProposal is the untrusted shape the oracle is asked to return.
type taskProposal struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Difficulty      int      `json:"difficulty"`
	DurationMinutes int      `json:"duration_minutes"`
	Priority        int      `json:"priority"`
	Prerequisites   []string `json:"prerequisites"`
}

// Generate produces tasks for one branch.
//
// Deferred oracle output becomes a Result carrying the prompt
// descriptor (phase 1 of the two-phase protocol — the caller routes it
// out-of-band and ingests results later). Unparseable output yields an
// empty task list. Structured output is parsed, clamped, filtered
// against completed titles, and ordered.
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	band := BandFor(req.KnowledgeLevel)

	payload := map[string]any{
		"goal":             req.Goal,
		"branch_id":        req.Branch.ID,
		"branch":           req.Branch.Title,
		"band":             band.Name,
		"band_instruction": band.Instruction,
		"batch_size":       defaultBatchSize,
	}
	if len(req.Branch.SubBranches) > 0 {
		var subs []string
		for _, sb := range req.Branch.SubBranches {
			subs = append(subs, sb.Title)
		}
		payload["sub_branches"] = subs
	}
	if len(req.Interests) > 0 {
		payload["interests"] = req.Interests
	}
	if req.LearningStyle != "" {
		payload["learning_style"] = req.LearningStyle
	}
	if req.Context != "" {
		payload["context"] = req.Context
	}

	resp := g.oracle.Propose(ctx, oracle.KindTasks, payload)
	switch resp.Outcome {
	case oracle.Deferred:
		return Result{BranchID: req.Branch.ID, Deferred: resp.Descriptor}
	case oracle.Unparseable:
		return Result{BranchID: req.Branch.ID}
	}

	var proposals []taskProposal
	if err := json.Unmarshal(resp.Raw, &proposals); err != nil {
		// Valid JSON, wrong shape — same degradation as unparseable.
		return Result{BranchID: req.Branch.ID}
	}

	tasks := make([]roadmap.Task, 0, len(proposals))
	for _, p := range proposals {
		if p.Title == "" {
			continue
		}
		tasks = append(tasks, roadmap.Task{
			Title:           p.Title,
			Description:     p.Description,
			Difficulty:      p.Difficulty,
			DurationMinutes: p.DurationMinutes,
			Priority:        p.Priority,
			Prerequisites:   p.Prerequisites,
			BranchID:        req.Branch.ID,
		})
	}

	return Result{
		BranchID: req.Branch.ID,
		Tasks:    Normalize(tasks, band, req.Branch.ID, req.CompletedTitles),
	}
}

// GenerateAll fans out one Generate per branch and collects results in
// branch order. Branches are independent: a degraded result on one
// never cancels or corrupts the others.
func (g *Generator) GenerateAll(ctx context.Context, goal string, branches []roadmap.Branch, interests []string, learningStyle string, knowledgeLevel int, completedTitles map[string]bool, freeText string) []Result {
	results := make([]Result, len(branches))

	var wg sync.WaitGroup
	for i := range branches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Generate(ctx, Request{
				Goal:            goal,
				Branch:          branches[i],
				Interests:       interests,
				LearningStyle:   learningStyle,
				KnowledgeLevel:  knowledgeLevel,
				CompletedTitles: completedTitles,
				Context:         freeText,
			})
		}(i)
	}
	wg.Wait()

	return results
}

// Normalize applies the mandatory deterministic post-processing to
// candidate tasks, independent of their source: band clamping, defaults,
// completed-title filtering, and in-branch ordering. Ingested tasks from
// the deferred protocol go through the exact same path.
func Normalize(tasks []roadmap.Task, band Band, branchID string, completedTitles map[string]bool) []roadmap.Task {
	out := make([]roadmap.Task, 0, len(tasks))
	for _, t := range tasks {
		if completedTitles[t.Title] {
			// Idempotent regeneration: never resurrect finished work.
			continue
		}
		t.BranchID = branchID
		Clamp(&t, band)
		if t.Priority == 0 {
			t.Priority = roadmap.DefaultPriority
		}
		out = append(out, t)
	}
	Order(out, band)
	return out
}

// Clamp forces a task inside its band's difficulty and duration
// ceilings, whatever the oracle proposed.
func Clamp(t *roadmap.Task, band Band) {
	if t.Difficulty < 1 {
		t.Difficulty = 1
	}
	if t.Difficulty > band.MaxDifficulty {
		t.Difficulty = band.MaxDifficulty
	}
	if t.DurationMinutes <= 0 {
		t.DurationMinutes = 20
	}
	if band.MaxDuration > 0 && t.DurationMinutes > band.MaxDuration {
		t.DurationMinutes = band.MaxDuration
	}
}

// Order stably sorts tasks within a branch by priority descending, then
// by distance from the band's ideal difficulty ascending.
func Order(tasks []roadmap.Task, band Band) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return diffDistance(tasks[i], band) < diffDistance(tasks[j], band)
	})
}

func diffDistance(t roadmap.Task, band Band) int {
	d := t.Difficulty - band.IdealDifficulty
	if d < 0 {
		d = -d
	}
	return d
}
