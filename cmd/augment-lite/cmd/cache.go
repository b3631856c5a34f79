package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/cache"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the response caches",
	}
	cmd.AddCommand(newCacheStatusCmd(), newCacheClearCmd())
	return cmd
}

func newCacheStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show response cache entry counts per project",
		RunE: func(cmd *cobra.Command, args []string) error {
			exact, err := cache.NewExactCache(store.ResponseCachePath())
			if err != nil {
				return err
			}
			defer func() { _ = exact.Close() }()

			projects, err := store.NewRegistry(store.RegistryPath()).List()
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Println("no projects registered")
				return nil
			}
			for _, p := range projects {
				n, err := exact.Count(p.Name)
				if err != nil {
					return err
				}
				fmt.Printf("%-24s %d entries\n", p.Name, n)
			}
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [project]",
		Short: "Clear cached responses for one project, or 'all'",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exact, err := cache.NewExactCache(store.ResponseCachePath())
			if err != nil {
				return err
			}
			defer func() { _ = exact.Close() }()

			target := "all"
			if len(args) > 0 {
				target = args[0]
			}
			if target == "all" {
				if err := exact.ClearAll(); err != nil {
					return err
				}
				fmt.Println("cleared all cache partitions")
				return nil
			}
			if err := exact.Clear(target); err != nil {
				return err
			}
			fmt.Printf("cleared cache for %s\n", target)
			return nil
		},
	}
}
