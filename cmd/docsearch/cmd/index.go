package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	var (
		noTUI  bool
		force  bool
		noWait bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the search index from the content tree",
		Long: `Crawl the content root for pages, split every page into one section per
heading, index the sections and write the artifact.

The artifact is left untouched when the build fails, and also when the
indexed content is identical to what the artifact already holds. Use
--force to write it regardless.

A build already running for the same artifact, for example in
'docsearch serve --watch', is waited for unless --no-wait is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := loadProject(g.dir)
			if err != nil {
				return err
			}

			uiCfg := ui.NewConfig(cmd.OutOrStdout(),
				ui.WithForcePlain(noTUI),
				ui.WithNoColor(ui.DetectNoColor()),
				ui.WithContentDir(p.cfg.Content.Root))
			renderer := ui.NewRenderer(uiCfg)
			if err := renderer.Start(ctx); err != nil {
				slog.Warn("renderer_start_failed", slog.String("error", err.Error()))
			}
			defer func() { _ = renderer.Stop() }()

			runner, err := p.newRunner(renderer, slog.Default())
			if err != nil {
				return err
			}
			opts := index.RunOptions{Force: force}
			if noWait {
				_, err = runner.TryRun(ctx, opts)
			} else {
				_, err = runner.Run(ctx, opts)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&force, "force", false, "Write the artifact even when the content is unchanged")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Fail instead of waiting when another build is running")

	return cmd
}
