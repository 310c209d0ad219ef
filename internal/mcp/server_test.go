package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

type mockSearcher struct {
	results []search.Result
	err     error
	state   search.State
	info    *store.Info
	queries []string
}

func (m *mockSearcher) Search(_ context.Context, term string) ([]search.Result, error) {
	m.queries = append(m.queries, term)
	return m.results, m.err
}

func (m *mockSearcher) State() search.State { return m.state }

func (m *mockSearcher) Info() (store.Info, bool) {
	if m.info == nil {
		return store.Info{}, false
	}
	return *m.info, true
}

func newTestServer(t *testing.T, svc Searcher) *Server {
	t.Helper()
	srv, err := NewServer(svc)
	require.NoError(t, err)
	return srv
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	srv := newTestServer(t, &mockSearcher{})

	names := []string{}
	for _, tool := range srv.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}

	assert.Equal(t, []string{"search_docs", "index_status"}, names)
}

func TestCallTool_SearchDocs(t *testing.T) {
	// Given: a service with one hit
	svc := &mockSearcher{results: []search.Result{{Title: "Install", Slug: "install", URL: "/docs/setup"}}}
	srv := newTestServer(t, svc)

	// When: calling search_docs
	result, err := srv.CallTool(context.Background(), "search_docs", map[string]any{"query": "instal"})

	// Then: markdown naming the section link
	require.NoError(t, err)
	text, ok := result.(string)
	require.True(t, ok, "expected string result, got %T", result)
	assert.Contains(t, text, "[Install](/docs/setup#install)")
	assert.Equal(t, []string{"instal"}, svc.queries)
}

func TestCallTool_SearchDocsRequiresQuery(t *testing.T) {
	tests := []map[string]any{nil, {}, {"query": "   "}, {"query": 42}}

	for _, args := range tests {
		srv := newTestServer(t, &mockSearcher{})

		_, err := srv.CallTool(context.Background(), "search_docs", args)

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
	}
}

func TestCallTool_SearchDocsCorruptIndex(t *testing.T) {
	svc := &mockSearcher{err: docerrors.CorruptIndex("static/searchindex.db", errors.New("truncated"))}
	srv := newTestServer(t, svc)

	_, err := srv.CallTool(context.Background(), "search_docs", map[string]any{"query": "install"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeIndexUnavailable, mcpErr.Code)
}

func TestCallTool_IndexStatus(t *testing.T) {
	// Given: a ready index
	built := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	svc := &mockSearcher{state: search.StateReady, info: &store.Info{Count: 12, Digest: "abcd", BuiltAt: built}}
	srv := newTestServer(t, svc)

	// When: calling index_status
	result, err := srv.CallTool(context.Background(), "index_status", nil)

	// Then: the metadata is reported
	require.NoError(t, err)
	assert.Equal(t, IndexStatusOutput{
		State:    "ready",
		Sections: 12,
		BuiltAt:  "2026-03-04T05:06:07Z",
		Digest:   "abcd",
	}, result)
}

func TestCallTool_Unknown(t *testing.T) {
	srv := newTestServer(t, &mockSearcher{})

	_, err := srv.CallTool(context.Background(), "search", nil)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestServer_OverInMemoryTransport(t *testing.T) {
	// Given: a client connected to the server
	svc := &mockSearcher{results: []search.Result{{Title: "Usage", Slug: "usage", URL: "/docs/usage"}}}
	srv := newTestServer(t, svc)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// When: the client calls search_docs
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search_docs",
		Arguments: map[string]any{"query": "usage"},
	})

	// Then: the markdown result comes back
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "[Usage](/docs/usage#usage)")
}
