package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	"github.com/zoonderkins/augment-lite-mcp/internal/logging"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

func newStatusCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project and index status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadStack()
			if err != nil {
				return err
			}

			registry := store.NewRegistry(store.RegistryPath())
			cwd, _ := os.Getwd()
			p, err := registry.Resolve(project, cwd)
			if err != nil {
				return err
			}

			chunks, err := store.LoadChunks(store.ChunksPath(p.Name))
			if err != nil {
				chunks = nil
			}
			state, err := store.LoadIndexState(store.IndexStatePath(p.Name))
			if err != nil {
				state = store.IndexState{}
			}
			_, vecErr := os.Stat(store.VectorIndexPath(p.Name))

			embedder := embed.NewFromConfig(cfg.Embeddings)
			defer func() { _ = embedder.Close() }()

			fmt.Printf("project:   %s\n", p.Name)
			fmt.Printf("root:      %s\n", p.Root)
			fmt.Printf("active:    %v\n", p.Active)
			fmt.Printf("data dir:  %s\n", logging.DataDir())
			fmt.Printf("files:     %d\n", len(state))
			fmt.Printf("chunks:    %d\n", len(chunks))
			fmt.Printf("vectors:   %v\n", vecErr == nil)
			fmt.Printf("embedder:  %s (%d dims)\n", embedder.ModelName(), embedder.Dimensions())
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project name (default: resolve from the working directory)")
	return cmd
}
