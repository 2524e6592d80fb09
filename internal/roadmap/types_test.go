package roadmap

import (
	"strings"
	"testing"
)

// --- Slugify ---

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Data Structures & Algorithms", "data_structures_algorithms"},
		{"  Spanish Grammar  ", "spanish_grammar"},
		{"C++ for Systems", "c_for_systems"},
		{"already_slugged", "already_slugged"},
		{"---", ""},
		{"", ""},
		{"Núñez 101", "n_ez_101"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugify_StableAcrossRuns(t *testing.T) {
	first := Slugify("Machine Learning Foundations")
	second := Slugify("Machine Learning Foundations")
	if first != second {
		t.Errorf("slug not stable: %q vs %q", first, second)
	}
}

// --- Document helpers ---

func testDoc() *Document {
	return &Document{
		Goal: "learn Spanish",
		Branches: []Branch{
			{ID: "grammar", Title: "Grammar"},
			{ID: "vocabulary", Title: "Vocabulary"},
		},
		Tasks: []Task{
			{ID: "task_1", Title: "Present tense drills", BranchID: "grammar", Completed: true, Difficulty: 1, DurationMinutes: 20},
			{ID: "task_2", Title: "Food vocabulary", BranchID: "vocabulary", Difficulty: 2, DurationMinutes: 30},
		},
	}
}

func TestBranchByName(t *testing.T) {
	doc := testDoc()

	tests := []struct {
		name string
		want string
	}{
		{"grammar", "grammar"},       // by id
		{"Grammar", "grammar"},       // by title
		{"VOCABULARY", "vocabulary"}, // case-insensitive title
		{"nonsense", ""},
	}
	for _, tt := range tests {
		b := doc.BranchByName(tt.name)
		switch {
		case tt.want == "" && b != nil:
			t.Errorf("BranchByName(%q) = %q, want nil", tt.name, b.ID)
		case tt.want != "" && (b == nil || b.ID != tt.want):
			t.Errorf("BranchByName(%q) = %v, want %q", tt.name, b, tt.want)
		}
	}
}

func TestCompletedTitles(t *testing.T) {
	titles := testDoc().CompletedTitles()
	if !titles["Present tense drills"] {
		t.Error("completed task title missing")
	}
	if titles["Food vocabulary"] {
		t.Error("uncompleted task title should not be listed")
	}
}

func TestMarkCompleted(t *testing.T) {
	doc := testDoc()

	task, err := doc.MarkCompleted("task_2")
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if !task.Completed {
		t.Error("returned task not marked completed")
	}
	if !doc.TaskByID("task_2").Completed {
		t.Error("document task not marked completed")
	}

	// Re-marking is a no-op, never an error.
	if _, err := doc.MarkCompleted("task_2"); err != nil {
		t.Errorf("re-marking completed task: %v", err)
	}

	if _, err := doc.MarkCompleted("ghost"); err == nil {
		t.Error("expected error for unknown task id")
	}
}

// --- AppendTasks ---

func TestAppendTasks_AssignsSequentialIDs(t *testing.T) {
	doc := testDoc()

	err := doc.AppendTasks([]Task{
		{Title: "A", BranchID: "grammar"},
		{Title: "B", BranchID: "vocabulary"},
	})
	if err != nil {
		t.Fatalf("AppendTasks failed: %v", err)
	}

	if len(doc.Tasks) != 4 {
		t.Fatalf("len(tasks) = %d, want 4", len(doc.Tasks))
	}
	if doc.Tasks[2].ID != "task_3" || doc.Tasks[3].ID != "task_4" {
		t.Errorf("ids = %q, %q, want task_3, task_4", doc.Tasks[2].ID, doc.Tasks[3].ID)
	}
}

func TestAppendTasks_AvoidsCollisions(t *testing.T) {
	doc := testDoc()

	// task_3 already taken by an explicit id.
	err := doc.AppendTasks([]Task{
		{ID: "task_3", Title: "Explicit", BranchID: "grammar"},
		{Title: "Auto", BranchID: "grammar"},
	})
	if err != nil {
		t.Fatalf("AppendTasks failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, task := range doc.Tasks {
		if seen[task.ID] {
			t.Fatalf("duplicate id %q", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestAppendTasks_RejectsUnknownBranch(t *testing.T) {
	doc := testDoc()
	err := doc.AppendTasks([]Task{{Title: "Lost", BranchID: "nope"}})
	if err == nil || !strings.Contains(err.Error(), "unknown branch") {
		t.Errorf("expected unknown-branch error, got %v", err)
	}
}

func TestAppendSession_AppendOnly(t *testing.T) {
	doc := testDoc()
	doc.AppendSession(GenerationSession{SessionID: "s1", TaskCount: 2})
	doc.AppendSession(GenerationSession{SessionID: "s2", TaskCount: 3})

	if len(doc.GenerationSessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(doc.GenerationSessions))
	}
	if doc.GenerationSessions[0].SessionID != "s1" {
		t.Error("session order not preserved")
	}
}
