package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

func newInfoCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the state of the built index",
		Long:  `Show where the index artifact lives, whether it is readable, how many sections it holds and when it was built.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(g.dir)
			if err != nil {
				return err
			}

			info := artifactStatus(p.artifact())
			r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// artifactStatus inspects the artifact without loading the index.
func artifactStatus(artifact string) ui.StatusInfo {
	info := ui.StatusInfo{
		Artifact: artifact,
		Format:   store.FormatOf(artifact),
	}

	st, err := os.Stat(artifact)
	if err != nil {
		info.Status = "missing"
		if !os.IsNotExist(err) {
			info.Error = err.Error()
		}
		return info
	}
	info.SizeBytes = st.Size()

	meta, err := store.ReadInfo(artifact)
	if err != nil {
		info.Status = "corrupt"
		info.Error = err.Error()
		return info
	}

	info.Status = "ready"
	info.SchemaVersion = meta.SchemaVersion
	info.Sections = meta.Count
	info.BuiltAt = meta.BuiltAt
	info.Digest = meta.Digest
	return info
}
