package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client is the subset of the MCP client used by the dispatcher.
type Client interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Dispatcher implements ports.ToolDispatcher over an MCP server connection.
// The tool catalog is fetched once at construction and served from cache.
type Dispatcher struct {
	client  Client
	catalog []domain.Tool
}

// New creates a dispatcher over an initialized MCP client.
func New(ctx context.Context, c Client) (*Dispatcher, error) {
	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	catalog := make([]domain.Tool, 0, len(result.Tools))
	for _, tool := range result.Tools {
		catalog = append(catalog, domain.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: map[string]any{
				"type":       tool.InputSchema.Type,
				"properties": tool.InputSchema.Properties,
				"required":   tool.InputSchema.Required,
			},
		})
	}

	return &Dispatcher{client: c, catalog: catalog}, nil
}

// NewStdio starts an MCP server subprocess, initializes the session, and
// returns a dispatcher bound to it.
func NewStdio(ctx context.Context, command string, env []string, args ...string) (*Dispatcher, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("starting MCP server %q: %w", command, err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "rewind",
		Version: "0.3.0",
	}
	if _, err := c.Initialize(ctx, initRequest); err != nil {
		return nil, fmt.Errorf("initializing MCP session: %w", err)
	}

	return New(ctx, c)
}

// Dispatch executes a single tool call and returns its result message.
func (d *Dispatcher) Dispatch(ctx context.Context, call domain.ToolCall) (domain.Message, error) {
	request := mcp.CallToolRequest{}
	request.Params.Name = call.Name
	request.Params.Arguments = call.Args

	result, err := d.client.CallTool(ctx, request)
	if err != nil {
		return domain.Message{}, fmt.Errorf("calling MCP tool %q: %w", call.Name, err)
	}

	text := flattenContent(result.Content)
	if result.IsError {
		return domain.Message{}, fmt.Errorf("MCP tool %q returned error: %s", call.Name, text)
	}

	return domain.NewToolMessage(text, call.ID), nil
}

// Catalog returns the cached tool descriptors.
func (d *Dispatcher) Catalog() []domain.Tool {
	return d.catalog
}

func flattenContent(contents []mcp.Content) string {
	var parts []string
	for _, content := range contents {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
