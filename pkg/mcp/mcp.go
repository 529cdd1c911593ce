// Package mcp exposes a read-only view of the Reference Index to an
// MCP-speaking editor shell (spec.md §6 signals are for fire-and-forget
// notification; this package is the pull side: query tools an agent can
// call). Grounded on the teacher's pkg/mcp/register.go (tool
// registration shape, JSON-encoded mcp.CallToolResult responses) and
// pkg/mcp/resources.go (static resource registration), narrowed from a
// large vault-query surface down to the three index-query tools this
// domain needs.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atomicobject/assetwatch/pkg/refindex"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Config holds the dependencies MCP tool handlers close over.
type Config struct {
	Index   *refindex.Index
	Root    string
	Version string
}

// RegisterAll registers every assetwatch MCP tool and resource with s.
func RegisterAll(s *server.MCPServer, cfg Config) error {
	statusTool := mcp.NewTool("assetwatch_status",
		mcp.WithDescription(`Report the Reference Index's current size and the watched project root. Response: {root,version,containers,references}.`),
	)
	s.AddTool(statusTool, StatusTool(cfg))

	findReferencesTool := mcp.NewTool("assetwatch_find_references",
		mcp.WithDescription(`List every container file that references the given asset path. Response: {reference,containers:[path,...]}.`),
		mcp.WithString("reference", mcp.Required(), mcp.Description("Reference key to look up (relative path, e.g. textures/wall.dds)")),
	)
	s.AddTool(findReferencesTool, FindReferencesTool(cfg))

	findContainersTool := mcp.NewTool("assetwatch_find_containers",
		mcp.WithDescription(`List every reference key a container file holds. Response: {container,references:[key,...]}.`),
		mcp.WithString("container", mcp.Required(), mcp.Description("Absolute or project-relative path to a container file")),
	)
	s.AddTool(findContainersTool, FindContainersTool(cfg))

	addSummaryResource(s, cfg)
	return nil
}

// StatusResponse is the JSON shape for assetwatch_status.
type StatusResponse struct {
	Root       string `json:"root"`
	Version    string `json:"version,omitempty"`
	Containers int    `json:"containers"`
	References int    `json:"references"`
}

// StatusTool reports Index size and the watched root.
func StatusTool(cfg Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats := cfg.Index.Stats()
		resp := StatusResponse{
			Root:       cfg.Root,
			Version:    cfg.Version,
			Containers: stats.Containers,
			References: stats.References,
		}
		return encodeResult(resp)
	}
}

// FindReferencesResponse is the JSON shape for assetwatch_find_references.
type FindReferencesResponse struct {
	Reference  string   `json:"reference"`
	Containers []string `json:"containers"`
}

// FindReferencesTool performs the reverse (reference -> containers) lookup.
func FindReferencesTool(cfg Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		ref, ok := args["reference"].(string)
		if !ok || ref == "" {
			return mcp.NewToolResultError("reference parameter is required and must be a string"), nil
		}
		containers := cfg.Index.Containers(ref)
		if containers == nil {
			containers = []string{}
		}
		return encodeResult(FindReferencesResponse{Reference: ref, Containers: containers})
	}
}

// FindContainersResponse is the JSON shape for assetwatch_find_containers.
type FindContainersResponse struct {
	Container  string   `json:"container"`
	References []string `json:"references"`
}

// FindContainersTool performs the forward (container -> references) lookup.
func FindContainersTool(cfg Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		container, ok := args["container"].(string)
		if !ok || container == "" {
			return mcp.NewToolResultError("container parameter is required and must be a string"), nil
		}
		refs := cfg.Index.References(container)
		if refs == nil {
			refs = []string{}
		}
		return encodeResult(FindContainersResponse{Container: container, References: refs})
	}
}

func encodeResult(v any) (*mcp.CallToolResult, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("error marshaling response: %s", err)), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

func addSummaryResource(s *server.MCPServer, cfg Config) {
	const uri = "assetwatch://index/summary"
	const name = "Reference Index Summary"
	const mime = "text/plain"

	handler := func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats := cfg.Index.Stats()
		text := fmt.Sprintf("root: %s\ncontainers: %d\nreferences: %d\n", cfg.Root, stats.Containers, stats.References)
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mime,
			Text:     text,
		}}, nil
	}

	s.AddResource(mcp.Resource{URI: uri, Name: name, MIMEType: mime}, handler)
}
