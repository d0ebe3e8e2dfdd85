// Package mcpserver exposes the vector-view query façade as Model Context
// Protocol tools, so agents can inspect and search the active collection.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
)

// ServerName identifies the server in the MCP handshake.
const ServerName = "vector-view"

// Tool names.
const (
	ToolListCollections  = "list_collections"
	ToolSearch           = "search"
	ToolConnectionStatus = "connection_status"
	ToolListConnections  = "list_connections"
	ToolConnect          = "connect"
)

// SearchInput is the argument object of the search tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"text to embed and look up"`
	SchemaFilter string `json:"schema_filter,omitempty" jsonschema:"only return documents whose schema metadata equals this value"`
	TopK         int    `json:"top_k,omitempty" jsonschema:"number of results, default 5"`
}

// ConnectInput is the argument object of the connect tool.
type ConnectInput struct {
	ID string `json:"id" jsonschema:"identifier of a saved connection"`
}

type tools struct {
	conns   transport.ConnectionService
	queries transport.QueryService
}

// New builds an MCP server with the vector-view tools registered.
func New(conns transport.ConnectionService, queries transport.QueryService, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	t := &tools{conns: conns, queries: queries}

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolListCollections,
		Description: "Lists the collections of the active database with their metadata and document counts",
	}, t.listCollections)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearch,
		Description: "Semantic search over the active collection, nearest documents first",
	}, t.search)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolConnectionStatus,
		Description: "Reports whether a database is connected and which saved connection is active",
	}, t.connectionStatus)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolListConnections,
		Description: "Lists saved database connections",
	}, t.listConnections)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolConnect,
		Description: "Opens a saved connection and makes it active",
	}, t.connect)

	return server
}

// Handler serves server over the streamable HTTP transport.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

func (t *tools) listCollections(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	cols, err := t.queries.ListCollections(ctx)
	if err != nil {
		return toolError(ToolListCollections, err), nil, nil
	}
	return jsonResult(cols)
}

func (t *tools) search(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	res, err := t.queries.Search(ctx, api.SearchRequest{
		Query:        in.Query,
		SchemaFilter: in.SchemaFilter,
		TopK:         in.TopK,
	})
	if err != nil {
		return toolError(ToolSearch, err), nil, nil
	}
	return jsonResult(res)
}

func (t *tools) connectionStatus(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	st := t.conns.Status()
	// Connection details are listed by list_connections.
	st.Connections = nil
	return jsonResult(st)
}

func (t *tools) listConnections(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return jsonResult(t.conns.List())
}

func (t *tools) connect(ctx context.Context, _ *mcp.CallToolRequest, in ConnectInput) (*mcp.CallToolResult, any, error) {
	if !api.ValidateConnectionID(in.ID) {
		return toolError(ToolConnect, api.NewInvalidRequestError("id", "id is required")), nil, nil
	}
	if err := t.conns.Connect(ctx, in.ID); err != nil {
		return toolError(ToolConnect, err), nil, nil
	}
	return jsonResult(t.conns.Status())
}

// jsonResult renders v as a single JSON text block.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// toolError reports err to the agent as a failed tool call rather than a
// protocol error.
func toolError(tool string, err error) *mcp.CallToolResult {
	msg := err.Error()
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	debug.Log("transport", "mcp tool failed", "tool", tool, "error", msg)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
