package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	"github.com/zoonderkins/augment-lite-mcp/internal/index"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
	"github.com/zoonderkins/augment-lite-mcp/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var project string
	var force bool
	var noVectors bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or update a project index",
		Long: `Scan the project root and bring its chunk list, keyword index, and
vector index up to date. Only changed files are re-chunked unless
--force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadStack()
			if err != nil {
				return err
			}

			registry := store.NewRegistry(store.RegistryPath())
			p, err := resolveOrRegister(registry, project)
			if err != nil {
				return err
			}

			reporter := ui.New(os.Stdout, p.Name)
			defer reporter.Close()

			indexer := index.New(cfg, embed.NewFromConfig(cfg.Embeddings))
			stats, err := indexer.RunWith(cmd.Context(), p, index.RunOptions{
				Force:       force,
				SkipVectors: noVectors,
			}, reporter)

			reporter.Done(ui.Summary{
				Files:    stats.FilesIndexed,
				Chunks:   stats.ChunksTotal,
				Duration: stats.Duration,
				Err:      err,
			})
			return err
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project name (default: resolve from the working directory)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-chunk every file, ignoring change detection")
	cmd.Flags().BoolVar(&noVectors, "no-vectors", false, "Skip the vector index")
	return cmd
}
