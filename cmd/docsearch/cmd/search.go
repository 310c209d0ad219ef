package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

func newSearchCmd(g *globalOptions) *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the built index",
		Long: `Search the built index and print the matching sections, best first.

Queries shorter than the configured minimum length return no results.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (supported: text, json)", format)
			}

			p, err := loadProject(g.dir)
			if err != nil {
				return err
			}
			if err := p.requireArtifact(); err != nil {
				return err
			}

			cfg := p.searchConfig()
			if limit > 0 {
				cfg.Limit = limit
			}
			svc, err := p.newService(cfg, slog.Default())
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			query := strings.Join(args, " ")
			results, err := svc.Search(cmd.Context(), query)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			out := output.New(cmd.OutOrStdout()).
				WithColor(ui.IsTTY(cmd.OutOrStdout()) && !ui.DetectNoColor())
			if len(results) == 0 {
				out.Dim(fmt.Sprintf("No results for %q", query))
				return nil
			}
			for i, r := range results {
				out.Hit(i+1, r.Title, r.URL+"#"+r.Slug)
			}
			out.Newline()
			suffix := "s"
			if len(results) == 1 {
				suffix = ""
			}
			out.Dim(fmt.Sprintf("%d result%s", len(results), suffix))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (default from config)")

	return cmd
}
