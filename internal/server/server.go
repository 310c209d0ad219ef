// Package server exposes the query service over HTTP.
//
// Routes:
//
//	GET /search?q=<term>  ranked sections as a JSON array
//	GET /healthz          state of the served index
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Searcher is the part of the query service the server needs.
type Searcher interface {
	Search(ctx context.Context, term string) ([]search.Result, error)
	State() search.State
	Info() (store.Info, bool)
}

var _ Searcher = (*search.Service)(nil)

// Config configures the HTTP server.
type Config struct {
	Addr string
	// RateLimit is the sustained requests per second across all clients.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
	// ShutdownTimeout bounds graceful shutdown. Default: 5s
	ShutdownTimeout time.Duration
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger used for request logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Server serves search requests.
type Server struct {
	svc     Searcher
	cfg     Config
	logger  *slog.Logger
	engine  *gin.Engine
	limiter *rate.Limiter
}

// New creates a server for svc.
func New(svc Searcher, cfg Config, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/search", s.rateLimit(), s.handleSearch)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": docerrors.ToPayload(
			docerrors.New(docerrors.ErrCodeInvalidPath, "route not found", nil).
				WithDetail("path", c.Request.URL.Path))})
	})
	s.engine = engine

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http_server_started", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	s.logger.Info("http_server_stopped")
	return <-errCh
}

func (s *Server) handleSearch(c *gin.Context) {
	results, err := s.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": docerrors.ToPayload(err)})
		return
	}
	c.JSON(http.StatusOK, results)
}

type healthResponse struct {
	Status   string     `json:"status"`
	Sections int        `json:"sections,omitempty"`
	BuiltAt  *time.Time `json:"built_at,omitempty"`
	Digest   string     `json:"digest,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	state := s.svc.State()
	resp := healthResponse{Status: state.String()}
	if info, ok := s.svc.Info(); ok {
		resp.Sections = info.Count
		resp.BuiltAt = &info.BuiltAt
		resp.Digest = info.Digest
	}

	code := http.StatusOK
	if state == search.StateFailed {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			err := docerrors.New(docerrors.ErrCodeRateLimited, "too many requests", nil).
				WithSuggestion("Retry after a short delay")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": docerrors.ToPayload(err)})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http_request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("query", c.Request.URL.RawQuery),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	}
}
