package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/agentskel/internal/knowledge"
	"github.com/kalambet/agentskel/internal/pipeline"
)

const domainsResourceURI = "agentskel://knowledge/domains"

// NewMCPServer creates an MCP server exposing the agent's operations as tools
// and the domain table as a resource.
func NewMCPServer(agent *pipeline.Agent, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"agentskel",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("agentskel classifies requests by task category and subject domain, then plans them or enhances them into structured prompts."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("run_agent",
			mcp.WithDescription("Classify a request and return a multi-step plan with one result per step, as JSON."),
			mcp.WithString("request_text", mcp.Description("The request to plan"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("Optional user id; unknown ids are treated as beginners")),
		),
		mcpRunAgent(agent),
	)

	s.AddTool(
		mcp.NewTool("enhance_prompt",
			mcp.WithDescription("Rewrite a prompt into guidance, context, restrictions, offers and documents sections."),
			mcp.WithString("request_text", mcp.Description("The prompt to enhance"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("Optional user id; unknown ids are treated as beginners")),
		),
		mcpEnhancePrompt(agent),
	)

	s.AddTool(
		mcp.NewTool("classify_request",
			mcp.WithDescription("Return the category, matched domain, topic and keywords for a text, as JSON."),
			mcp.WithString("text", mcp.Description("Text to classify"), mcp.Required()),
		),
		mcpClassify(agent),
	)

	s.AddResource(
		mcp.NewResource(
			domainsResourceURI,
			"Knowledge Domains",
			mcp.WithResourceDescription("Subject domains with keywords, preferred category and guidance"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDomains(agent.Tables()),
	)

	return s
}

func mcpRunAgent(agent *pipeline.Agent) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("request_text")
		if err != nil {
			return mcpError("request_text is required"), nil
		}

		resp, err := agent.Run(ctx, pipeline.NewRequest(text, req.GetString("user_id", "")))
		if err != nil {
			return mcpError(fmt.Sprintf("run failed: %v", err)), nil
		}
		return mcpJSON(resp)
	}
}

func mcpEnhancePrompt(agent *pipeline.Agent) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("request_text")
		if err != nil {
			return mcpError("request_text is required"), nil
		}

		resp, err := agent.Enhance(ctx, pipeline.NewRequest(text, req.GetString("user_id", "")))
		if err != nil {
			return mcpError(fmt.Sprintf("enhance failed: %v", err)), nil
		}
		if resp.EnhancedResponse != "" {
			return mcpText(resp.EnhancedResponse), nil
		}
		return mcpText(resp.EnhancedPrompt), nil
	}
}

func mcpClassify(agent *pipeline.Agent) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		return mcpJSON(agent.Classify(text))
	}
}

type domainSummary struct {
	Name              string   `json:"name"`
	Label             string   `json:"label"`
	Keywords          []string `json:"keywords"`
	PreferredCategory string   `json:"preferred_category"`
	Guidance          string   `json:"guidance"`
}

func mcpResourceDomains(t *knowledge.Tables) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if t == nil {
			return nil, errors.New("knowledge tables not loaded")
		}
		out := make([]domainSummary, len(t.Domains))
		for i, d := range t.Domains {
			out[i] = domainSummary{
				Name:              d.Name,
				Label:             d.Label,
				Keywords:          d.Keywords,
				PreferredCategory: d.PreferredCategory,
				Guidance:          d.Guidance,
			}
		}

		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal domains: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
