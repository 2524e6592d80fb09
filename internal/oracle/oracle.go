// Package oracle abstracts the generative service that proposes roadmap
// branches and tasks.
//
// The server itself never talks to a model provider: it asks the MCP
// client to generate via sampling. A client without sampling capability
// is not an error — the oracle answers Deferred with a prompt descriptor
// and the caller completes generation out-of-band, feeding results back
// through task ingestion.
//
// Every response is one of exactly three outcomes (Structured, Deferred,
// Unparseable) and call sites handle all three. Structured output is
// untrusted text: callers parse and validate it, they never assume the
// model honored the request shape.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Proposal kinds. The kind selects the prompt framing and tells a
// deferred caller what was being generated.
const (
	KindBranches    = "branches"
	KindSubBranches = "sub_branches"
	KindTasks       = "tasks"
)

// Outcome is the three-way result classification of an oracle call.
type Outcome int

const (
	// Structured means the oracle returned parseable JSON in Response.Raw.
	Structured Outcome = iota
	// Deferred means the oracle cannot answer synchronously; the caller
	// routes Response.Descriptor out-of-band and ingests results later.
	Deferred
	// Unparseable means the oracle answered but the output was not valid
	// JSON. Callers fall back; this never surfaces as an error.
	Unparseable
)

// PromptDescriptor carries everything a caller needs to complete a
// deferred generation request outside the server: what was asked and
// the exact prompt to run.
type PromptDescriptor struct {
	Kind    string         `json:"kind"`
	Prompt  string         `json:"prompt"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Response is the result of a single Propose call.
type Response struct {
	Outcome    Outcome
	Raw        json.RawMessage   // set when Outcome == Structured
	Descriptor *PromptDescriptor // set when Outcome == Deferred
}

// Oracle is the single generative capability the engines depend on.
type Oracle interface {
	Propose(ctx context.Context, kind string, payload map[string]any) Response
}

// SamplingOracle implements Oracle over MCP sampling. The MCP server is
// recovered from the request context, so the oracle holds no per-call
// state of its own.
type SamplingOracle struct {
	maxTokens int
}

// NewSamplingOracle creates a sampling-backed oracle. maxTokens caps the
// sampling response size; zero means a sensible default.
func NewSamplingOracle(maxTokens int) *SamplingOracle {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &SamplingOracle{maxTokens: maxTokens}
}

// Propose asks the connected MCP client to generate a proposal of the
// given kind. Any transport or capability failure degrades to Deferred —
// the caller decides how to proceed; the oracle never raises.
func (o *SamplingOracle) Propose(ctx context.Context, kind string, payload map[string]any) Response {
	prompt := BuildPrompt(kind, payload)
	deferred := Response{
		Outcome:    Deferred,
		Descriptor: &PromptDescriptor{Kind: kind, Prompt: prompt, Payload: payload},
	}

	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return deferred
	}

	result, err := srv.RequestSampling(ctx, mcp.CreateMessageRequest{
		CreateMessageParams: mcp.CreateMessageParams{
			Messages: []mcp.SamplingMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.TextContent{Type: "text", Text: prompt},
				},
			},
			SystemPrompt: "You are a learning-path planner. Respond with ONLY the requested JSON, no prose.",
			MaxTokens:    o.maxTokens,
		},
	})
	if err != nil {
		// Sampling unsupported or request failed. Either way the
		// answer is not available synchronously.
		return deferred
	}

	var text string
	switch c := result.Content.(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		return Response{Outcome: Unparseable}
	}

	return Parse(text)
}

// Parse classifies raw oracle output: valid JSON (after fence stripping)
// is Structured, anything else is Unparseable.
func Parse(text string) Response {
	raw := ExtractJSON(text)
	if raw == "" || !json.Valid([]byte(raw)) {
		return Response{Outcome: Unparseable}
	}
	return Response{Outcome: Structured, Raw: json.RawMessage(raw)}
}

// ExtractJSON pulls a JSON object or array out of model output that may
// be wrapped in markdown fences or surrounded by prose. Returns "" when
// no candidate is found.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	// Trim prose around the outermost object or array.
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')
	start, closer := objStart, byte('}')
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		start, closer = arrStart, ']'
	}
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

// BuildPrompt renders the generation prompt for a proposal kind. The
// payload is embedded as JSON so deferred callers run the identical
// request the server would have sampled.
func BuildPrompt(kind string, payload map[string]any) string {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		data = []byte("{}")
	}

	var instruction string
	switch kind {
	case KindBranches:
		instruction = "Propose 3-6 short noun-phrase learning domains for the goal below. " +
			`Return a JSON array: [{"title": "...", "description": "...", "expected_duration": "..."}]`
	case KindSubBranches:
		instruction = "Propose 2-3 sub-topics refining the learning domain below. " +
			`Return a JSON array: [{"title": "...", "description": "..."}]`
	case KindTasks:
		instruction = "Propose concrete, actionable learning tasks for the domain below, " +
			"following the band instruction in the request exactly. " +
			`Return a JSON array: [{"title": "...", "description": "...", "difficulty": 1-5, ` +
			`"duration_minutes": N, "priority": N, "prerequisites": ["..."]}]`
	default:
		instruction = fmt.Sprintf("Answer the %q request below. Return ONLY valid JSON.", kind)
	}

	return fmt.Sprintf("%s\n\nRequest:\n%s", instruction, data)
}
