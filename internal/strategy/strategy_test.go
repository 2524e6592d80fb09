package strategy

import (
	"strings"
	"testing"

	"github.com/lvillar/trailguide/internal/history"
	"github.com/lvillar/trailguide/internal/roadmap"
)

func stalledDoc() *roadmap.Document {
	return &roadmap.Document{
		Goal: "learn cooking",
		Branches: []roadmap.Branch{
			{ID: "knife_skills", Title: "Knife Skills"},
			{ID: "sauces", Title: "Sauces"},
		},
		Tasks: []roadmap.Task{
			{ID: "task_1", Title: "Dice an onion", BranchID: "knife_skills", Completed: true, Difficulty: 1, DurationMinutes: 15},
		},
	}
}

func healthyDoc() *roadmap.Document {
	doc := stalledDoc()
	for i := 2; i <= 5; i++ {
		doc.Tasks = append(doc.Tasks, roadmap.Task{
			ID:              "task_" + string(rune('0'+i)),
			Title:           "Open task",
			BranchID:        "sauces",
			Difficulty:      2,
			DurationMinutes: 30,
		})
	}
	return doc
}

func recent(energies ...int) []history.Completion {
	out := make([]history.Completion, len(energies))
	for i, e := range energies {
		out[i] = history.Completion{TaskID: "task_1", EnergyAfter: e}
	}
	return out
}

func TestEvolve_NoAvailableTasks(t *testing.T) {
	doc := stalledDoc() // only task is completed

	res, err := Evolve(Input{Doc: doc, RecentCompletions: recent(4)})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}

	if res.Diagnosis != GenerateNewTasks {
		t.Fatalf("diagnosis = %q, want generate_new_tasks", res.Diagnosis)
	}
	if !res.Indicators.NoAvailableTasks {
		t.Error("indicator not set")
	}
	if len(res.NewTasks) == 0 {
		t.Fatal("no tasks synthesized")
	}
	for _, task := range res.NewTasks {
		if !task.Generated {
			t.Errorf("task %q not flagged generated", task.Title)
		}
		if task.Priority != roadmap.EvolvedPriority {
			t.Errorf("task %q priority = %d", task.Title, task.Priority)
		}
		if task.ID == "" {
			t.Errorf("task %q has no assigned id", task.Title)
		}
	}
	// Synthesized tasks must land in the shared pool.
	if len(doc.Tasks) != 1+len(res.NewTasks) {
		t.Errorf("doc tasks = %d", len(doc.Tasks))
	}
}

func TestEvolve_LowEngagement(t *testing.T) {
	doc := healthyDoc()

	res, err := Evolve(Input{
		Doc:               doc,
		RecentCompletions: recent(1, 2, 2), // mean 1.67
		Interests:         []string{"baking", "fermentation"},
	})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}

	if res.Diagnosis != IncreaseVariety {
		t.Fatalf("diagnosis = %q, want increase_variety", res.Diagnosis)
	}
	if len(res.NewTasks) != 2 {
		t.Fatalf("new tasks = %d, want one per interest", len(res.NewTasks))
	}
	if !strings.Contains(res.NewTasks[0].Title, "baking") {
		t.Errorf("task title = %q, want interest anchored", res.NewTasks[0].Title)
	}
}

// Zero completions in the window is no evidence of low engagement.
func TestEvolve_EmptyWindowIsNotLowEngagement(t *testing.T) {
	doc := healthyDoc()
	res, err := Evolve(Input{Doc: doc})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if res.Indicators.LowEngagement {
		t.Error("empty window flagged as low engagement")
	}
	if !res.Indicators.NoRecentProgress {
		t.Error("empty window should flag no recent progress")
	}
	if res.Diagnosis == IncreaseVariety {
		t.Errorf("diagnosis = %q", res.Diagnosis)
	}
}

func TestEvolve_NegativeSentiment(t *testing.T) {
	doc := healthyDoc()
	feedback := "I'm stuck on sauces and it's frustrating"

	res, err := Evolve(Input{
		Doc:               doc,
		RecentCompletions: recent(4, 4),
		Feedback:          feedback,
	})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}

	if res.Diagnosis != AddressConcerns {
		t.Fatalf("diagnosis = %q, want address_concerns", res.Diagnosis)
	}
	if res.Sentiment != Negative {
		t.Errorf("sentiment = %q", res.Sentiment)
	}
	if len(res.NewTasks) != 1 {
		t.Fatalf("new tasks = %d, want 1", len(res.NewTasks))
	}
	if !strings.Contains(res.NewTasks[0].Description, feedback) {
		t.Errorf("description %q does not quote the feedback", res.NewTasks[0].Description)
	}
}

func TestEvolve_ExpandFrontier(t *testing.T) {
	doc := stalledDoc()
	doc.Tasks = append(doc.Tasks,
		roadmap.Task{ID: "task_2", Title: "Pan sauce", BranchID: "sauces", Difficulty: 2, DurationMinutes: 30},
		roadmap.Task{ID: "task_3", Title: "Stock", BranchID: "sauces", Difficulty: 2, DurationMinutes: 30},
	)
	last := &history.Completion{TaskID: "task_1", Title: "Dice an onion", Difficulty: 3}

	res, err := Evolve(Input{
		Doc:               doc,
		RecentCompletions: recent(4, 5),
		Last:              last,
	})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}

	if res.Diagnosis != ExpandFrontier {
		t.Fatalf("diagnosis = %q, want expand_frontier (admissible=%d)", res.Diagnosis, res.Admissible)
	}
	if len(res.NewTasks) != 1 {
		t.Fatalf("new tasks = %d, want 1", len(res.NewTasks))
	}
	task := res.NewTasks[0]
	if task.Difficulty != 4 {
		t.Errorf("difficulty = %d, want last+1", task.Difficulty)
	}
	if len(task.Prerequisites) != 1 || task.Prerequisites[0] != "task_1" {
		t.Errorf("prerequisites = %v, want [task_1]", task.Prerequisites)
	}
	if !task.Breakthrough {
		t.Error("expansion task not flagged breakthrough")
	}
	if task.BranchID != "knife_skills" {
		t.Errorf("branch = %q, want completed task's branch", task.BranchID)
	}
}

func TestEvolve_ExpandFrontierDifficultyCapsAtFive(t *testing.T) {
	doc := stalledDoc()
	doc.Tasks = append(doc.Tasks,
		roadmap.Task{ID: "task_2", Title: "A", BranchID: "sauces", Difficulty: 2, DurationMinutes: 30},
	)
	res, err := Evolve(Input{
		Doc:               doc,
		RecentCompletions: recent(5),
		Last:              &history.Completion{TaskID: "task_1", Title: "Dice an onion", Difficulty: 5},
	})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if res.Diagnosis != ExpandFrontier || res.NewTasks[0].Difficulty != 5 {
		t.Errorf("diagnosis=%q difficulty=%d", res.Diagnosis, res.NewTasks[0].Difficulty)
	}
}

func TestEvolve_OptimizeExisting(t *testing.T) {
	doc := healthyDoc() // 4 open tasks, all admissible

	res, err := Evolve(Input{
		Doc:               doc,
		RecentCompletions: recent(4, 5, 4),
		Feedback:          "loving the progress so far",
	})
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}

	if res.Diagnosis != OptimizeExisting {
		t.Fatalf("diagnosis = %q, want optimize_existing", res.Diagnosis)
	}
	if res.Sentiment != Positive {
		t.Errorf("sentiment = %q", res.Sentiment)
	}
	if len(res.NewTasks) != 0 {
		t.Errorf("optimize_existing synthesized %d tasks", len(res.NewTasks))
	}
}

func TestEvolve_CapsSynthesisAtFive(t *testing.T) {
	doc := &roadmap.Document{Goal: "g"}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		doc.Branches = append(doc.Branches, roadmap.Branch{ID: id, Title: strings.ToUpper(id) + "ranch"})
	}

	res, err := Evolve(Input{Doc: doc}) // no tasks at all → generate_new_tasks
	if err != nil {
		t.Fatalf("Evolve failed: %v", err)
	}
	if len(res.NewTasks) > maxNewTasks {
		t.Errorf("synthesized %d tasks, cap is %d", len(res.NewTasks), maxNewTasks)
	}
}

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		in   string
		want Sentiment
	}{
		{"this is great, I love it", Positive},
		{"stuck and frustrated", Negative},
		{"", Neutral},
		{"it is what it is", Neutral},
		{"great but hard", Neutral}, // 1-1 tie
		{"GREAT progress", Positive},
	}
	for _, tt := range tests {
		if got := ClassifySentiment(tt.in); got != tt.want {
			t.Errorf("ClassifySentiment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
