package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	"github.com/zoonderkins/augment-lite-mcp/internal/llm"
	"github.com/zoonderkins/augment-lite-mcp/internal/search"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
	"github.com/zoonderkins/augment-lite-mcp/internal/validation"
)

type searchOptions struct {
	project   string
	limit     int
	format    string
	rerank    bool
	iterative bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed project",
		Long: `Hybrid BM25 + vector search over the project index.

Examples:
  augment-lite search "session resolution"
  augment-lite search "debounce coalescing" --limit 5 --format json
  augment-lite search "how are stale chunks dropped" --rerank`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project name (default: resolve from the working directory)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 8, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Re-rank candidates with the subagent model")
	cmd.Flags().BoolVar(&opts.iterative, "iterative", false, "Multi-round retrieval with query expansion")
	return cmd
}

func runSearch(ctx context.Context, query string, opts searchOptions) error {
	query, err := validation.Query(query)
	if err != nil {
		return err
	}

	cfg, table, err := loadStack()
	if err != nil {
		return err
	}

	registry := store.NewRegistry(store.RegistryPath())
	p, err := resolveOrRegister(registry, opts.project)
	if err != nil {
		return err
	}

	engine, err := search.Open(ctx, p, cfg, embed.NewFromConfig(cfg.Embeddings))
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	client := llm.NewClient(table)
	var filter *search.SubagentFilter
	if opts.rerank {
		filter = search.NewSubagentFilter(client, search.DefaultSubagentModel)
	}
	searcher := search.NewSearcher(engine, filter)

	var hits []search.Hit
	if opts.iterative {
		it := search.NewIterativeSearcher(searcher, client, search.DefaultSubagentModel)
		hits, err = it.Search(ctx, query, search.IterativeOptions{KPerIteration: opts.limit})
	} else {
		hits, err = searcher.Search(ctx, query, opts.limit)
	}
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, hit := range hits {
		fmt.Printf("%d. %s  (%.3f)\n", i+1, hit.Source, hit.Score)
		for _, line := range strings.Split(strings.TrimSpace(hit.Text), "\n") {
			fmt.Printf("   %s\n", line)
		}
		if i < len(hits)-1 {
			fmt.Println()
		}
	}
	return nil
}
