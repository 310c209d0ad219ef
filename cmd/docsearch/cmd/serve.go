package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/internal/mcp"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/server"
	"github.com/Aman-CERP/docsearch/internal/watcher"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		addr      string
		transport string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search queries over HTTP or MCP",
		Long: `Serve the built index.

With --transport http (default) the index answers GET /search?q=<term> with
a JSON array of {title, slug, url}. With --transport stdio it runs as an MCP
server exposing the search_docs tool.

The index is built first when no artifact exists. With --watch, page
changes trigger a rebuild and the server switches to the new index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := loadProject(g.dir)
			if err != nil {
				return err
			}
			if transport == "" {
				transport = p.cfg.Server.Transport
			}
			if addr == "" {
				addr = p.cfg.Server.Addr
			}

			logger, cleanup, err := serveLogger(g.debug, transport, p.cfg.Server.LogLevel)
			if err != nil {
				return err
			}
			defer cleanup()

			return runServe(ctx, p, serveOptions{addr: addr, transport: transport, watch: watch}, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config, :5173)")
	cmd.Flags().StringVar(&transport, "transport", "", "Transport: http or stdio (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild the index when pages change")

	return cmd
}

type serveOptions struct {
	addr      string
	transport string
	watch     bool
}

// serveLogger picks the server logger. stdout carries JSON-RPC on the stdio
// transport, so logs go to the log file only.
func serveLogger(debug bool, transport, level string) (*slog.Logger, func(), error) {
	if debug {
		return slog.Default(), func() {}, nil
	}
	if transport == "stdio" {
		logger, cleanup, err := logging.Setup(logging.StdioConfig(level))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to setup logging: %w", err)
		}
		return logger, cleanup, nil
	}
	return logging.NewStderrLogger(level), func() {}, nil
}

func runServe(ctx context.Context, p *project, opts serveOptions, logger *slog.Logger) error {
	if opts.transport != "http" && opts.transport != "stdio" {
		return fmt.Errorf("unknown transport %q (supported: http, stdio)", opts.transport)
	}

	runner, err := p.newRunner(nil, logger)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p.artifact()); os.IsNotExist(err) {
		logger.Info("index_missing_building", slog.String("artifact", p.artifact()))
		if _, err := runner.Run(ctx, index.RunOptions{}); err != nil {
			return err
		}
	}

	svc, err := p.newService(p.searchConfig(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	// A failed warm-up is retried by the first query.
	if err := svc.Warm(ctx); err != nil {
		logger.Warn("search_index_warm_failed", slog.String("error", err.Error()))
	}

	g, ctx := errgroup.WithContext(ctx)

	switch opts.transport {
	case "http":
		srv, err := server.New(svc, server.Config{
			Addr:      opts.addr,
			RateLimit: p.cfg.Server.RateLimit,
			RateBurst: p.cfg.Server.RateBurst,
		}, server.WithLogger(logger))
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(ctx) })
	case "stdio":
		srv, err := mcp.NewServer(svc, mcp.WithLogger(logger))
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Serve(ctx) })
	}

	if opts.watch {
		debounce, err := p.cfg.WatchDebounce()
		if err != nil {
			return fmt.Errorf("invalid index.watch_debounce: %w", err)
		}
		wopts := watcher.DefaultOptions()
		wopts.DebounceWindow = debounce
		wopts.Match = runner.ScanOptions().IsPage

		w, err := watcher.NewHybridWatcher(wopts)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		defer func() { _ = w.Stop() }()

		g.Go(func() error {
			err := w.Start(ctx, runner.ContentRoot())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			rebuildOnChange(ctx, w.Events(), runner, svc, logger)
			return nil
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Rebuilder is the build entry point the watch loop drives.
type Rebuilder interface {
	Run(ctx context.Context, opts index.RunOptions) (index.Result, error)
}

// Reloader swaps in a rebuilt index.
type Reloader interface {
	Reload(ctx context.Context) error
}

var (
	_ Rebuilder = (*index.Runner)(nil)
	_ Reloader  = (*search.Service)(nil)
)

// rebuildOnChange rebuilds the index for every batch of page changes and
// reloads the service when the artifact changed. A failed build keeps the
// previous index serving.
func rebuildOnChange(ctx context.Context, batches <-chan []watcher.FileEvent, r Rebuilder, svc Reloader, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				return
			}
			paths := make([]string, 0, len(batch))
			for _, e := range batch {
				paths = append(paths, e.Operation.String()+" "+e.Path)
			}
			logger.Info("pages_changed", slog.Any("changes", paths))

			res, err := r.Run(ctx, index.RunOptions{})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("index_rebuild_failed", slog.String("error", err.Error()))
				continue
			}
			if res.Unchanged {
				continue
			}
			if err := svc.Reload(ctx); err != nil {
				logger.Warn("search_index_reload_failed", slog.String("error", err.Error()))
			}
		}
	}
}
