// Package selector picks the single best next task from a roadmap given
// the learner's runtime constraints: energy, available time, and
// free-text context.
//
// Selection is two-phase. Admission control filters to candidates whose
// prerequisites are complete and whose duration fits the time slot
// (with 20% tolerance — a hard cutoff). Scoring then sums independent
// terms; ties break deterministically to the lowest task id.
package selector

import (
	"strconv"
	"strings"

	"github.com/lvillar/trailguide/internal/roadmap"
)

// overrunTolerance is the hard admission cutoff multiplier: a task may
// overrun the slot by at most 20%.
const overrunTolerance = 1.2

// Scoring term weights.
const (
	energyWeight        = 20
	fitFullBonus        = 50
	fitTightBonus       = 20
	fitHalfPenalty      = -20
	fitPoorPenalty      = -100
	domainBonus         = 100
	contextBonus        = 50
	breakthroughBonus   = 100
	freshGeneratedBoost = 25
)

// stopwords are generic tokens excluded from keyword relevance matching.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "your": true,
	"that": true, "this": true, "from": true, "into": true, "learn": true,
	"learning": true, "basics": true, "using": true, "about": true,
	"practice": true, "introduction": true,
}

// Constraints are the runtime inputs to one selection call.
type Constraints struct {
	EnergyLevel      int // 1-5
	TimeAvailableMin int // minutes
	ContextText      string
	Goal             string   // project goal, for domain relevance
	Interests        []string // folded into domain text
}

// Selection is the outcome of a selection call. Task is nil when no
// candidate was admissible — a first-class "none" result, not an error:
// the caller should evolve the strategy or rebuild the roadmap.
type Selection struct {
	Task       *roadmap.Task
	Score      int
	Admissible int
	Total      int
}

// Select scores all admissible tasks in the document and returns the
// best one. The winner has the strictly greatest score; equal scores
// resolve to the lowest task id, so selection is deterministic for a
// given document and constraints.
func Select(doc *roadmap.Document, c Constraints) Selection {
	refs := roadmap.BuildRefTable(doc)

	sel := Selection{Total: len(doc.Tasks)}
	for i := range doc.Tasks {
		t := &doc.Tasks[i]
		if !Admissible(t, refs, c.TimeAvailableMin) {
			continue
		}
		sel.Admissible++

		score := Score(t, doc, c)
		if sel.Task == nil || score > sel.Score || (score == sel.Score && t.ID < sel.Task.ID) {
			sel.Task = t
			sel.Score = score
		}
	}
	return sel
}

// Admissible applies the three admission rules: not completed, all
// prerequisites resolve to completed tasks (by id or title), and the
// duration does not overrun the slot by more than 20%.
func Admissible(t *roadmap.Task, refs *roadmap.RefTable, timeAvailableMin int) bool {
	if t.Completed {
		return false
	}
	if !refs.PrerequisitesMet(t) {
		return false
	}
	return float64(t.DurationMinutes) <= overrunTolerance*float64(timeAvailableMin)
}

// AdmissibleIgnoringTime applies only the completion and prerequisite
// rules. Strategy evolution uses this duration-agnostic variant for its
// availability analysis.
func AdmissibleIgnoringTime(t *roadmap.Task, refs *roadmap.RefTable) bool {
	return !t.Completed && refs.PrerequisitesMet(t)
}

// Score sums the independent scoring terms for one admissible task.
func Score(t *roadmap.Task, doc *roadmap.Document, c Constraints) int {
	score := t.Priority

	// Energy match: reward tasks whose difficulty matches stated energy.
	diff := c.EnergyLevel - t.Difficulty
	if diff < 0 {
		diff = -diff
	}
	score += energyWeight * (5 - diff)

	score += timeFit(t.DurationMinutes, c.TimeAvailableMin)

	if domainRelevant(t, doc, c) {
		score += domainBonus
	}
	if sharesToken(taskText(t), c.ContextText) {
		score += contextBonus
	}
	if t.Breakthrough {
		score += breakthroughBonus
	}
	if t.Generated {
		score += freshGeneratedBoost
	}
	return score
}

// timeFit is the soft tier layered on top of the hard admission cutoff.
func timeFit(durationMin, availableMin int) int {
	d, a := float64(durationMin), float64(availableMin)
	switch {
	case d <= a:
		return fitFullBonus
	case a >= 0.8*d:
		return fitTightBonus
	case a >= 0.5*d:
		return fitHalfPenalty
	default:
		return fitPoorPenalty
	}
}

// domainRelevant reports whether the task shares a meaningful keyword
// with the goal, its branch, or the learner's interests.
func domainRelevant(t *roadmap.Task, doc *roadmap.Document, c Constraints) bool {
	domain := c.Goal + " " + doc.Goal + " " + strings.Join(c.Interests, " ")
	if b := doc.BranchByID(t.BranchID); b != nil {
		domain += " " + b.Title + " " + b.Description
	}
	return sharesToken(taskText(t), domain)
}

func taskText(t *roadmap.Task) string {
	return t.Title + " " + t.Description
}

// sharesToken reports whether the two texts share a token longer than
// 3 letters that is not a stopword.
func sharesToken(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	seen := make(map[string]bool)
	for _, tok := range tokenize(a) {
		seen[tok] = true
	}
	for _, tok := range tokenize(b) {
		if seen[tok] {
			return true
		}
	}
	return false
}

// tokenize lower-cases and splits on non-letters, keeping tokens longer
// than 3 characters that are not stopwords.
func tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 3 {
			tok := b.String()
			if !stopwords[tok] {
				tokens = append(tokens, tok)
			}
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// ParseTimeAvailable converts a human time expression ("30", "30 minutes",
// "1 hour", "45 min") into minutes. Unrecognized input falls back to 30.
func ParseTimeAvailable(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 30
	}

	// Leading number, then an optional unit.
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	if i == 0 {
		return 30
	}
	n, err := strconv.ParseFloat(s[:i], 64)
	if err != nil || n <= 0 {
		return 30
	}

	unit := strings.TrimSpace(s[i:])
	if strings.HasPrefix(unit, "h") {
		n *= 60
	}
	return int(n)
}
