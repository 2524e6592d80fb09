// Package resources implements MCP resource handlers for trailguide.
//
// Resources provide read-only data that the host can consume for
// context, addressed by URI (trailguide://...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lvillar/trailguide/internal/project"
	"github.com/lvillar/trailguide/internal/roadmap"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages trailguide resource endpoints.
type Handler struct {
	projects project.Store
	roadmaps roadmap.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(projects project.Store, roadmaps roadmap.Store) *Handler {
	return &Handler{projects: projects, roadmaps: roadmaps}
}

// status is the JSON shape served by the status resource.
type status struct {
	Goal           string `json:"goal"`
	KnowledgeLevel int    `json:"knowledge_level"`
	Branches       int    `json:"branches"`
	Tasks          int    `json:"tasks"`
	Completed      int    `json:"completed"`
	Revision       int    `json:"revision"`
	LastUpdatedAt  string `json:"last_updated_at,omitempty"`
}

// StatusResource returns the MCP resource definition for roadmap status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"trailguide://roadmap/status",
		"Roadmap Status",
		mcp.WithResourceDescription("Progress overview of the default learning path roadmap"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the default path's roadmap status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root, err := project.FindRoot()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	cfg, err := h.projects.Load(root)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	st := status{Goal: cfg.Goal, KnowledgeLevel: cfg.KnowledgeLevel}
	if doc, err := h.roadmaps.Load(root, "default"); err == nil {
		st.Branches = len(doc.Branches)
		st.Tasks = len(doc.Tasks)
		st.Revision = doc.Revision
		st.LastUpdatedAt = doc.LastUpdatedAt
		for i := range doc.Tasks {
			if doc.Tasks[i].Completed {
				st.Completed++
			}
		}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
