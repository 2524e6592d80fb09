// Package strategy diagnoses stalled roadmaps and synthesizes
// remediation tasks.
//
// A stall is detected from three indicators: no admissible tasks,
// no recent completions, and low post-completion energy. The decision
// table below picks one remediation per invocation; synthesized tasks
// re-enter the same pool the selector draws from, flagged as generated
// and priority-boosted so they surface quickly.
package strategy

import (
	"fmt"
	"strings"

	"github.com/lvillar/trailguide/internal/history"
	"github.com/lvillar/trailguide/internal/roadmap"
	"github.com/lvillar/trailguide/internal/selector"
)

// Diagnosis names the remediation chosen by the decision table.
type Diagnosis string

const (
	GenerateNewTasks Diagnosis = "generate_new_tasks"
	IncreaseVariety  Diagnosis = "increase_variety"
	AddressConcerns  Diagnosis = "address_concerns"
	ExpandFrontier   Diagnosis = "expand_frontier"
	OptimizeExisting Diagnosis = "optimize_existing"
)

// Sentiment classifies free-text learner feedback.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Fixed keyword lists for sentiment counting. Ties favor neutral.
var (
	positiveWords = []string{
		"great", "good", "love", "enjoy", "enjoying", "excited", "fun",
		"progress", "helpful", "motivated", "confident", "awesome",
	}
	negativeWords = []string{
		"stuck", "frustrated", "frustrating", "boring", "bored", "hard",
		"difficult", "confused", "confusing", "overwhelmed", "tired",
		"lost", "hate", "slow",
	}
)

const (
	// maxNewTasks caps synthesis per invocation.
	maxNewTasks = 5
	// lowEnergyThreshold is the mean post-completion energy below which
	// engagement counts as low.
	lowEnergyThreshold = 2.5
	// thinFrontier is the admissible-count floor below which the
	// frontier gets expanded.
	thinFrontier = 3
)

// Indicators are the computed stall signals.
type Indicators struct {
	NoAvailableTasks bool `json:"no_available_tasks"`
	NoRecentProgress bool `json:"no_recent_progress"`
	LowEngagement    bool `json:"low_engagement"`
}

// Input carries everything one evolution pass needs. RecentCompletions
// is the trailing-window slice (7 days); Last is the most recent
// completion ever, or nil.
type Input struct {
	Doc               *roadmap.Document
	RecentCompletions []history.Completion
	Last              *history.Completion
	Interests         []string
	Feedback          string
}

// Result is the evolution outcome: the diagnosis plus any synthesized
// tasks (already appended to the document by Evolve).
type Result struct {
	Diagnosis  Diagnosis
	Sentiment  Sentiment
	Indicators Indicators
	Completed  int
	Total      int
	Admissible int
	NewTasks   []roadmap.Task
}

// Evolve diagnoses the roadmap and appends remediation tasks to the
// document. The decision table is evaluated in priority order, first
// match wins:
//
//	noAvailableTasks     → generate_new_tasks
//	lowEngagement        → increase_variety
//	negative sentiment   → address_concerns
//	admissible < 3       → expand_frontier
//	otherwise            → optimize_existing (no new tasks)
func Evolve(in Input) (Result, error) {
	res := Result{
		Sentiment: ClassifySentiment(in.Feedback),
		Total:     len(in.Doc.Tasks),
	}

	refs := roadmap.BuildRefTable(in.Doc)
	for i := range in.Doc.Tasks {
		t := &in.Doc.Tasks[i]
		if t.Completed {
			res.Completed++
			continue
		}
		// Availability analysis is duration-agnostic.
		if selector.AdmissibleIgnoringTime(t, refs) {
			res.Admissible++
		}
	}

	res.Indicators = Indicators{
		NoAvailableTasks: res.Admissible == 0,
		NoRecentProgress: len(in.RecentCompletions) == 0,
		LowEngagement:    lowEngagement(in.RecentCompletions),
	}

	switch {
	case res.Indicators.NoAvailableTasks:
		res.Diagnosis = GenerateNewTasks
		res.NewTasks = explorationTasks(in)
	case res.Indicators.LowEngagement:
		res.Diagnosis = IncreaseVariety
		res.NewTasks = varietyTasks(in)
	case res.Sentiment == Negative:
		res.Diagnosis = AddressConcerns
		res.NewTasks = concernTask(in)
	case res.Admissible < thinFrontier:
		res.Diagnosis = ExpandFrontier
		res.NewTasks = expansionTask(in)
	default:
		res.Diagnosis = OptimizeExisting
	}

	if len(res.NewTasks) > maxNewTasks {
		res.NewTasks = res.NewTasks[:maxNewTasks]
	}

	for i := range res.NewTasks {
		t := &res.NewTasks[i]
		t.Generated = true
		if t.Priority == 0 {
			t.Priority = roadmap.EvolvedPriority
		}
	}

	if err := in.Doc.AppendTasks(res.NewTasks); err != nil {
		return res, fmt.Errorf("appending evolved tasks: %w", err)
	}
	// Re-read the appended slice so callers see the assigned ids.
	res.NewTasks = in.Doc.Tasks[len(in.Doc.Tasks)-len(res.NewTasks):]

	return res, nil
}

// lowEngagement reports a mean post-completion energy below 2.5 over
// the trailing window. With zero completions in the window there is no
// sample to judge, so this stays false (noRecentProgress covers the
// silent case).
func lowEngagement(completions []history.Completion) bool {
	if len(completions) == 0 {
		return false
	}
	sum := 0
	for _, c := range completions {
		sum += c.EnergyAfter
	}
	return float64(sum)/float64(len(completions)) < lowEnergyThreshold
}

// ClassifySentiment counts fixed positive/negative keyword occurrences
// in the feedback text. Ties (including empty feedback) are neutral.
func ClassifySentiment(feedback string) Sentiment {
	text := strings.ToLower(feedback)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(text, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(text, w)
	}
	switch {
	case pos > neg:
		return Positive
	case neg > pos:
		return Negative
	default:
		return Neutral
	}
}

// explorationTasks synthesizes open-ended exploration tasks, one per
// branch in document order, capped at 3.
func explorationTasks(in Input) []roadmap.Task {
	var tasks []roadmap.Task
	for _, b := range in.Doc.Branches {
		tasks = append(tasks, roadmap.Task{
			Title: "Explore " + b.Title + " hands-on",
			Description: "Open-ended exploration: pick any aspect of " + b.Title +
				" that looks interesting and spend a session experimenting with it.",
			Difficulty:      2,
			DurationMinutes: 30,
			BranchID:        b.ID,
		})
		if len(tasks) == 3 {
			break
		}
	}
	return tasks
}

// varietyTasks synthesizes interest-anchored tasks, up to 3, one per
// configured interest.
func varietyTasks(in Input) []roadmap.Task {
	branchID := firstBranchID(in.Doc)
	if branchID == "" {
		return nil
	}
	var tasks []roadmap.Task
	for _, interest := range in.Interests {
		interest = strings.TrimSpace(interest)
		if interest == "" {
			continue
		}
		tasks = append(tasks, roadmap.Task{
			Title: "Connect " + in.Doc.Goal + " to " + interest,
			Description: "Re-spark engagement: build or study something where " +
				in.Doc.Goal + " meets your interest in " + interest + ".",
			Difficulty:      2,
			DurationMinutes: 30,
			BranchID:        branchID,
		})
		if len(tasks) == 3 {
			break
		}
	}
	return tasks
}

// concernTask synthesizes a single task referencing the feedback
// verbatim.
func concernTask(in Input) []roadmap.Task {
	branchID := firstBranchID(in.Doc)
	if branchID == "" {
		return nil
	}
	return []roadmap.Task{{
		Title:           "Address recent feedback",
		Description:     fmt.Sprintf("Work through what you raised: %q. Break it into the smallest step you can finish today.", in.Feedback),
		Difficulty:      1,
		DurationMinutes: 20,
		BranchID:        branchID,
	}}
}

// expansionTask synthesizes one task that explicitly builds on the most
// recently completed task, stepping difficulty up by one and linking it
// as a prerequisite. Flagged as a breakthrough-amplification
// opportunity so the selector favors riding the momentum.
func expansionTask(in Input) []roadmap.Task {
	if in.Last == nil {
		return explorationTasks(in)
	}

	branchID := firstBranchID(in.Doc)
	if completed := in.Doc.TaskByID(in.Last.TaskID); completed != nil {
		branchID = completed.BranchID
	}
	if branchID == "" {
		return nil
	}

	difficulty := in.Last.Difficulty + 1
	if difficulty > 5 {
		difficulty = 5
	}
	return []roadmap.Task{{
		Title:           "Go deeper: " + in.Last.Title,
		Description:     "Build directly on what you just finished (" + in.Last.Title + ") with a harder follow-up.",
		Difficulty:      difficulty,
		DurationMinutes: 30,
		BranchID:        branchID,
		Prerequisites:   []string{in.Last.TaskID},
		Breakthrough:    true,
	}}
}

func firstBranchID(doc *roadmap.Document) string {
	if len(doc.Branches) == 0 {
		return ""
	}
	return doc.Branches[0].ID
}
