package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

type fakeSearcher struct {
	results []search.Result
	err     error
	state   search.State
	info    *store.Info
	terms   []string
}

func (f *fakeSearcher) Search(_ context.Context, term string) ([]search.Result, error) {
	f.terms = append(f.terms, term)
	if f.err != nil {
		return nil, f.err
	}
	if len([]rune(term)) < 2 {
		return []search.Result{}, nil
	}
	return f.results, nil
}

func (f *fakeSearcher) State() search.State { return f.state }

func (f *fakeSearcher) Info() (store.Info, bool) {
	if f.info == nil {
		return store.Info{}, false
	}
	return *f.info, true
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
}

func TestSearch_ReturnsResults(t *testing.T) {
	// Given: a service with two hits
	svc := &fakeSearcher{results: []search.Result{
		{Title: "Install", Slug: "install", URL: "/docs/setup"},
		{Title: "Usage", Slug: "usage", URL: "/docs/usage"},
	}}
	s, err := New(svc, Config{})
	require.NoError(t, err)

	// When: querying
	w := get(t, s, "/search?q=install")

	// Then: the hits are returned in order as a JSON array
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"title":"Install","slug":"install","url":"/docs/setup"},
		{"title":"Usage","slug":"usage","url":"/docs/usage"}
	]`, w.Body.String())
	assert.Equal(t, []string{"install"}, svc.terms)
}

func TestSearch_ShortOrMissingTermIsEmptyArray(t *testing.T) {
	tests := []string{"/search", "/search?q=", "/search?q=a"}

	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			s, err := New(&fakeSearcher{}, Config{})
			require.NoError(t, err)

			w := get(t, s, target)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `[]`, w.Body.String())
		})
	}
}

func TestSearch_DecodesQuery(t *testing.T) {
	svc := &fakeSearcher{}
	s, err := New(svc, Config{})
	require.NoError(t, err)

	get(t, s, "/search?q=hello%20world")

	assert.Equal(t, []string{"hello world"}, svc.terms)
}

func TestSearch_CorruptIndexIsServerError(t *testing.T) {
	// Given: a service whose index cannot be loaded
	svc := &fakeSearcher{err: docerrors.CorruptIndex("static/searchindex.db", errors.New("bad header"))}
	s, err := New(svc, Config{})
	require.NoError(t, err)

	// When: querying
	w := get(t, s, "/search?q=install")

	// Then: 500 with the structured error
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Error docerrors.Payload `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, docerrors.ErrCodeCorruptIndex, body.Error.Code)
	assert.Equal(t, "FATAL", body.Error.Severity)
}

func TestSearch_RateLimited(t *testing.T) {
	// Given: a limit of one request with no refill in the test window
	s, err := New(&fakeSearcher{}, Config{RateLimit: 0.001, RateBurst: 1})
	require.NoError(t, err)

	// When: two requests arrive back to back
	first := get(t, s, "/search?q=install")
	second := get(t, s, "/search?q=install")

	// Then: the second is refused
	assert.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), docerrors.ErrCodeRateLimited)
}

func TestHealth(t *testing.T) {
	built := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name     string
		svc      *fakeSearcher
		wantCode int
		want     string
	}{
		{
			name:     "not loaded",
			svc:      &fakeSearcher{state: search.StateUninitialized},
			wantCode: http.StatusOK,
			want:     `{"status":"uninitialized"}`,
		},
		{
			name:     "ready",
			svc:      &fakeSearcher{state: search.StateReady, info: &store.Info{Count: 4, Digest: "abc", BuiltAt: built}},
			wantCode: http.StatusOK,
			want:     `{"status":"ready","sections":4,"digest":"abc","built_at":"2026-01-02T03:04:05Z"}`,
		},
		{
			name:     "failed",
			svc:      &fakeSearcher{state: search.StateFailed},
			wantCode: http.StatusServiceUnavailable,
			want:     `{"status":"failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.svc, Config{})
			require.NoError(t, err)

			w := get(t, s, "/healthz")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	s, err := New(&fakeSearcher{}, Config{})
	require.NoError(t, err)

	w := get(t, s, "/nope")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), docerrors.ErrCodeInvalidPath)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	// Given: a server on an ephemeral port
	s, err := New(&fakeSearcher{results: []search.Result{{Title: "A", Slug: "a", URL: "/a"}}}, Config{})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	// When: a request is served and the context is cancelled
	resp, err := http.Get("http://" + ln.Addr().String() + "/search?q=aa")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cancel()

	// Then: Serve returns cleanly
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
