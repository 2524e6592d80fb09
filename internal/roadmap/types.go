// Package roadmap defines the persisted learning-roadmap aggregate:
// branches, tasks, generation sessions, and the document that owns them.
//
// The RoadmapDocument is the only mutable aggregate the engines operate
// on. It is loaded at the start of an operation and saved at the end;
// the store enforces a monotonic revision with compare-and-swap so two
// concurrent writers cannot silently lose an update.
package roadmap

import (
	"fmt"
	"strings"
)

// Branch is a top-level domain/pillar of a roadmap.
type Branch struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description,omitempty"`
	ExpectedDuration string      `json:"expected_duration,omitempty"`
	SubBranches      []SubBranch `json:"sub_branches,omitempty"`
}

// SubBranch is an optional refinement within a Branch.
type SubBranch struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Task is an actionable, schedulable unit of work — a frontier node.
//
// Prerequisites may reference either a task id or a task title: legacy
// documents stored titles, newer ones store ids. Resolution goes through
// a RefTable built once per operation (see refs.go).
type Task struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Difficulty      int      `json:"difficulty"`
	DurationMinutes int      `json:"duration_minutes"`
	BranchID        string   `json:"branch_id"`
	Prerequisites   []string `json:"prerequisites,omitempty"`
	Completed       bool     `json:"completed"`
	Priority        int      `json:"priority"`
	Generated       bool     `json:"generated,omitempty"`
	Breakthrough    bool     `json:"breakthrough,omitempty"`
}

// GenerationSession is an append-only audit record of one batch
// task-ingestion event. Never mutated after creation.
type GenerationSession struct {
	SessionID       string   `json:"session_id"`
	Timestamp       string   `json:"timestamp"`
	TaskCount       int      `json:"task_count"`
	BranchesTouched []string `json:"branches_touched"`
}

// Document is the roadmap aggregate persisted per (project, path).
//
// Revision is a monotonic counter managed by the store: Save refuses to
// write unless the document's revision matches the stored one.
type Document struct {
	Goal               string              `json:"goal"`
	LearningStyle      string              `json:"learning_style,omitempty"`
	FocusAreas         []string            `json:"focus_areas,omitempty"`
	Branches           []Branch            `json:"branches"`
	Tasks              []Task              `json:"tasks"`
	GenerationSessions []GenerationSession `json:"generation_sessions,omitempty"`
	CreatedAt          string              `json:"created_at"`
	LastUpdatedAt      string              `json:"last_updated_at"`
	Revision           int                 `json:"revision"`
}

// DefaultPriority is the priority assigned to generator-sourced tasks
// that arrive without one.
const DefaultPriority = 100

// EvolvedPriority is the boosted priority for strategy-synthesized tasks,
// so the selector favors them over the generator default.
const EvolvedPriority = 150

// Slugify derives a stable id from title text: lower-cased, runs of
// non-alphanumeric characters collapsed to single underscores, no
// leading or trailing underscore. Re-running on the same title always
// yields the same id.
// Example: "Data Structures & Algorithms" → "data_structures_algorithms".
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	prevUnderscore := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}

// BranchByID returns the branch with the given id, or nil.
func (d *Document) BranchByID(id string) *Branch {
	for i := range d.Branches {
		if d.Branches[i].ID == id {
			return &d.Branches[i]
		}
	}
	return nil
}

// BranchByName resolves a branch by id, title, or slugified title.
// Ingestion callers typically hold a branch name from a deferred
// descriptor rather than an id.
func (d *Document) BranchByName(name string) *Branch {
	if b := d.BranchByID(name); b != nil {
		return b
	}
	for i := range d.Branches {
		if strings.EqualFold(d.Branches[i].Title, name) || d.Branches[i].ID == Slugify(name) {
			return &d.Branches[i]
		}
	}
	return nil
}

// TaskByID returns the task with the given id, or nil.
func (d *Document) TaskByID(id string) *Task {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i]
		}
	}
	return nil
}

// CompletedTitles returns the titles of all completed tasks.
// Frontier regeneration uses this to avoid resurrecting finished work.
func (d *Document) CompletedTitles() map[string]bool {
	titles := make(map[string]bool)
	for i := range d.Tasks {
		if d.Tasks[i].Completed {
			titles[d.Tasks[i].Title] = true
		}
	}
	return titles
}

// MarkCompleted sets completed=true on the task with the given id.
// Completion never reverts; marking an already-completed task is a no-op.
// Returns the task, or an error if the id is unknown.
func (d *Document) MarkCompleted(taskID string) (*Task, error) {
	t := d.TaskByID(taskID)
	if t == nil {
		return nil, fmt.Errorf("task %q not found in roadmap", taskID)
	}
	t.Completed = true
	return t, nil
}

// AppendTasks adds tasks to the document, assigning unique sequential
// ids ("task_1", "task_2", ...) to any task without one and de-duplicating
// collisions with a numeric suffix. Tasks referencing an unknown branch
// are rejected.
func (d *Document) AppendTasks(tasks []Task) error {
	taken := make(map[string]bool, len(d.Tasks))
	for i := range d.Tasks {
		taken[d.Tasks[i].ID] = true
	}

	seq := len(d.Tasks) + 1
	for i := range tasks {
		t := &tasks[i]
		if d.BranchByID(t.BranchID) == nil {
			return fmt.Errorf("task %q references unknown branch %q", t.Title, t.BranchID)
		}
		if t.ID == "" {
			t.ID = fmt.Sprintf("task_%d", seq)
		}
		for taken[t.ID] {
			seq++
			t.ID = fmt.Sprintf("task_%d", seq)
		}
		taken[t.ID] = true
		seq++
		d.Tasks = append(d.Tasks, *t)
	}
	return nil
}

// AppendSession records a batch-ingestion audit entry.
func (d *Document) AppendSession(s GenerationSession) {
	d.GenerationSessions = append(d.GenerationSessions, s)
}
