package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// Searcher is the part of the query service the tools need.
type Searcher interface {
	Search(ctx context.Context, term string) ([]search.Result, error)
	State() search.State
	Info() (store.Info, bool)
}

var _ Searcher = (*search.Service)(nil)

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        toolSearchDocs,
		Description: "Search the documentation site. Returns the best matching sections, each with its title and a link to the heading anchor. Matching tolerates small typos.",
	},
	{
		Name:        toolIndexStatus,
		Description: "Report whether the documentation index is loaded, how many sections it holds and when it was built.",
	},
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Server is the MCP server for docsearch.
type Server struct {
	mcp    *mcp.Server
	svc    Searcher
	logger *slog.Logger
}

// NewServer creates an MCP server answering from svc.
func NewServer(svc Searcher, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}

	s := &Server{
		svc:    svc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docsearch",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with the given arguments and returns its
// markdown or structured result.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case toolSearchDocs:
		query, _ := args["query"].(string)
		text, _, err := s.searchDocs(ctx, query)
		if err != nil {
			return nil, err
		}
		return text, nil
	case toolIndexStatus:
		return s.indexStatus(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[0].Name,
		Description: tools[0].Description,
	}, s.mcpSearchDocsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[1].Name,
		Description: tools[1].Description,
	}, s.mcpIndexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocsInput) (
	*mcp.CallToolResult,
	SearchDocsOutput,
	error,
) {
	text, output, err := s.searchDocs(ctx, input.Query)
	if err != nil {
		return nil, SearchDocsOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, output, nil
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	return nil, s.indexStatus(), nil
}

func (s *Server) searchDocs(ctx context.Context, query string) (string, SearchDocsOutput, error) {
	if strings.TrimSpace(query) == "" {
		return "", SearchDocsOutput{}, NewInvalidParamsError("query parameter is required")
	}

	start := time.Now()
	results, err := s.svc.Search(ctx, query)
	if err != nil {
		s.logger.Warn("mcp_search_failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return "", SearchDocsOutput{}, MapError(err)
	}

	output := SearchDocsOutput{Results: make([]SectionOutput, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, SectionOutput{
			Title: r.Title,
			Slug:  r.Slug,
			URL:   r.URL,
			Link:  Link(r),
		})
	}

	s.logger.Info("mcp_search_complete",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return FormatResults(query, results), output, nil
}

func (s *Server) indexStatus() IndexStatusOutput {
	out := IndexStatusOutput{State: s.svc.State().String()}
	if info, ok := s.svc.Info(); ok {
		out.Sections = info.Count
		out.Digest = info.Digest
		if !info.BuiltAt.IsZero() {
			out.BuiltAt = info.BuiltAt.UTC().Format(time.RFC3339)
		}
	}
	return out
}

// Serve runs the server on the stdio transport until ctx is done or the
// client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}
