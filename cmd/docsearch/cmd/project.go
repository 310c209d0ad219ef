package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/docsearch/internal/config"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

// project is a resolved project root with its effective configuration.
type project struct {
	root string
	cfg  *config.Config
}

func loadProject(dir string) (*project, error) {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, docerrors.ConfigError("failed to load configuration", err).
			WithSuggestion("Check .docsearch.yaml or run 'docsearch config show'")
	}
	return &project{root: root, cfg: cfg}, nil
}

func (p *project) contentRoot() string {
	return p.cfg.ContentRoot(p.root)
}

func (p *project) artifact() string {
	return p.cfg.ArtifactPath(p.root)
}

func (p *project) newRunner(renderer ui.Renderer, logger *slog.Logger) (*index.Runner, error) {
	return index.NewRunner(index.RunnerDependencies{
		Renderer: renderer,
		Logger:   logger,
		Config: index.RunnerConfig{
			ContentRoot: p.contentRoot(),
			PageFile:    p.cfg.Content.PageFile,
			Exclude:     p.cfg.Content.Exclude,
			Artifact:    p.artifact(),
		},
	})
}

func (p *project) searchConfig() search.Config {
	s := p.cfg.Search
	return search.Config{
		Tolerance:     s.Tolerance,
		Limit:         s.Limit,
		MinTermLength: s.MinTermLength,
		Boost: store.Boost{
			Title:   s.Boost.Title,
			Content: s.Boost.Content,
			Code:    s.Boost.Code,
		},
		CacheSize: s.CacheSize,
	}
}

func (p *project) newService(cfg search.Config, logger *slog.Logger) (*search.Service, error) {
	return search.NewService(search.FileLoader(p.artifact()), cfg, search.WithLogger(logger))
}

// requireArtifact fails with a hint when the index has not been built.
func (p *project) requireArtifact() error {
	if _, err := os.Stat(p.artifact()); err != nil {
		if os.IsNotExist(err) {
			return docerrors.New(docerrors.ErrCodeFileNotFound, "no index found", err).
				WithDetail("path", p.artifact()).
				WithSuggestion("Run 'docsearch index' first")
		}
		return fmt.Errorf("failed to stat index: %w", err)
	}
	return nil
}
