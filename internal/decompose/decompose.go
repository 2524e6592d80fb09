// Package decompose turns a learner goal into the ordered branches of a
// roadmap, using the generative oracle with a heuristic fallback. A
// roadmap always ends up with at least one branch — decomposition never
// fails outright, it degrades.
package decompose

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"github.com/lvillar/trailguide/internal/oracle"
	"github.com/lvillar/trailguide/internal/roadmap"
)

// maxBranches caps the number of oracle-proposed domains kept.
const maxBranches = 6

// Decomposer produces roadmap branches from a goal.
type Decomposer struct {
	oracle oracle.Oracle
}

// New creates a Decomposer backed by the given oracle.
func New(o oracle.Oracle) *Decomposer {
	return &Decomposer{oracle: o}
}

// branchProposal is the untrusted shape the oracle is asked to return
// for domain proposals.
type branchProposal struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	ExpectedDuration string `json:"expected_duration"`
}

// subBranchProposal is the untrusted shape for sub-topic proposals.
type subBranchProposal struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Decompose turns a goal into an ordered branch list.
//
// Explicit focus areas override any generative inference: each entry
// becomes one branch directly. Otherwise the oracle proposes 3-6
// domains; on any degraded outcome the fallback is a single "General"
// branch. Every branch is then enriched with sub-branches, and an
// enrichment failure on one branch never aborts the others.
func (d *Decomposer) Decompose(ctx context.Context, goal string, explicitFocusAreas []string, knowledgeLevel int) []roadmap.Branch {
	var branches []roadmap.Branch

	if len(explicitFocusAreas) > 0 {
		for _, area := range explicitFocusAreas {
			title := strings.TrimSpace(area)
			if title == "" {
				continue
			}
			branches = append(branches, roadmap.Branch{
				ID:    roadmap.Slugify(title),
				Title: title,
			})
		}
	}

	if len(branches) == 0 {
		branches = d.proposeBranches(ctx, goal, knowledgeLevel)
	}
	if len(branches) == 0 {
		branches = []roadmap.Branch{{
			ID:          "general",
			Title:       "General",
			Description: "General progression toward: " + goal,
		}}
	}

	dedupeBranchIDs(branches)

	for i := range branches {
		branches[i].SubBranches = d.enrich(ctx, goal, &branches[i])
	}

	return branches
}

// proposeBranches asks the oracle for domains. Deferred, unparseable,
// or empty output yields nil — the caller falls back.
func (d *Decomposer) proposeBranches(ctx context.Context, goal string, knowledgeLevel int) []roadmap.Branch {
	resp := d.oracle.Propose(ctx, oracle.KindBranches, map[string]any{
		"goal":            goal,
		"knowledge_level": knowledgeLevel,
	})
	if resp.Outcome != oracle.Structured {
		return nil
	}

	var proposals []branchProposal
	if err := json.Unmarshal(resp.Raw, &proposals); err != nil {
		return nil
	}

	var branches []roadmap.Branch
	for _, p := range proposals {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			continue
		}
		branches = append(branches, roadmap.Branch{
			ID:               roadmap.Slugify(title),
			Title:            title,
			Description:      p.Description,
			ExpectedDuration: p.ExpectedDuration,
		})
		if len(branches) == maxBranches {
			break
		}
	}
	return branches
}

// enrich attempts oracle sub-branch enrichment for one branch, falling
// back to the title-word heuristic. May return nil — a branch without
// sub-branches is fine.
func (d *Decomposer) enrich(ctx context.Context, goal string, b *roadmap.Branch) []roadmap.SubBranch {
	resp := d.oracle.Propose(ctx, oracle.KindSubBranches, map[string]any{
		"goal":   goal,
		"branch": b.Title,
	})

	if resp.Outcome == oracle.Structured {
		var proposals []subBranchProposal
		if err := json.Unmarshal(resp.Raw, &proposals); err == nil {
			subs := buildSubBranches(proposals)
			if len(subs) > 0 {
				return subs
			}
		}
	}

	return heuristicSubBranches(b.Title)
}

func buildSubBranches(proposals []subBranchProposal) []roadmap.SubBranch {
	var subs []roadmap.SubBranch
	seen := make(map[string]bool)
	for _, p := range proposals {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			continue
		}
		id := roadmap.Slugify(title)
		if seen[id] {
			continue
		}
		seen[id] = true
		subs = append(subs, roadmap.SubBranch{ID: id, Title: title, Description: p.Description})
		if len(subs) == 3 {
			break
		}
	}
	return subs
}

// heuristicSubBranches derives up to 2 sub-branches from capitalized
// content-words (length > 3) in the branch title. Yields nothing for
// titles without such words — sub-branches stay empty.
func heuristicSubBranches(title string) []roadmap.SubBranch {
	var subs []roadmap.SubBranch
	seen := make(map[string]bool)
	for _, word := range strings.Fields(title) {
		word = strings.Trim(word, ",.:;()&/")
		if len(word) <= 3 {
			continue
		}
		r := []rune(word)
		if !unicode.IsUpper(r[0]) {
			continue
		}
		id := roadmap.Slugify(word)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		subs = append(subs, roadmap.SubBranch{
			ID:          id,
			Title:       word,
			Description: "Core concepts of " + word + " within " + title,
		})
		if len(subs) == 2 {
			break
		}
	}
	return subs
}

// dedupeBranchIDs enforces id uniqueness within the document by
// suffixing later collisions.
func dedupeBranchIDs(branches []roadmap.Branch) {
	seen := make(map[string]int)
	for i := range branches {
		id := branches[i].ID
		if id == "" {
			id = "branch"
		}
		if n, dup := seen[id]; dup {
			seen[id] = n + 1
			branches[i].ID = id + "_" + strconv.Itoa(n+1)
		} else {
			seen[id] = 1
		}
	}
}
