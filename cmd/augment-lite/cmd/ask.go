package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/answer"
	"github.com/zoonderkins/augment-lite-mcp/internal/cache"
	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	"github.com/zoonderkins/augment-lite-mcp/internal/llm"
	"github.com/zoonderkins/augment-lite-mcp/internal/search"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

type askOptions struct {
	project     string
	taskType    string
	route       string
	temperature float64
	accumulated bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed project",
		Long: `Retrieve evidence from the project index and generate a cited answer.
Weak evidence produces an abstention rather than a guess.

Examples:
  augment-lite ask "where is the debounce window configured"
  augment-lite ask "how does routing pick a model" --task-type reason
  augment-lite ask "summarize the indexing pipeline" --accumulated`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project name (default: resolve from the working directory)")
	cmd.Flags().StringVarP(&opts.taskType, "task-type", "t", "lookup", "Task type: lookup, small_fix, refactor, reason")
	cmd.Flags().StringVarP(&opts.route, "route", "r", "auto", "Route or provider override")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", answer.DefaultTemperature, "Sampling temperature")
	cmd.Flags().BoolVar(&opts.accumulated, "accumulated", false, "Decompose into sub-queries and accumulate evidence")
	return cmd
}

func runAsk(ctx context.Context, query string, opts askOptions) error {
	cfg, table, err := loadStack()
	if err != nil {
		return err
	}

	registry := store.NewRegistry(store.RegistryPath())
	p, err := resolveOrRegister(registry, opts.project)
	if err != nil {
		return err
	}

	embedder := embed.NewFromConfig(cfg.Embeddings)
	engine, err := search.Open(ctx, p, cfg, embedder)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	client := llm.NewClient(table)
	searcher := search.NewSearcher(engine, search.NewSubagentFilter(client, search.DefaultSubagentModel))

	exact, err := cache.NewExactCache(store.ResponseCachePath())
	if err != nil {
		return err
	}
	defer func() { _ = exact.Close() }()

	var semantic *cache.SemanticCache
	if cfg.Cache.SemanticEnabled {
		semantic, err = cache.NewSemanticCache(
			store.SemanticCacheEntriesPath(p.Name), embedder, cfg.Cache.SemanticThreshold)
		if err != nil {
			semantic = nil
		}
	}

	orch := answer.New(answer.Options{
		Config:      cfg,
		Table:       table,
		Client:      client,
		Searcher:    searcher,
		Iterative:   search.NewIterativeSearcher(searcher, client, search.DefaultSubagentModel),
		Accumulator: search.NewAccumulator(searcher, client, search.DefaultSubagentModel),
		Exact:       exact,
		Semantic:    semantic,
		Project:     p,
	})

	var resp *answer.Response
	if opts.accumulated {
		resp, err = orch.Accumulated(ctx, query, nil, 5, opts.route, opts.temperature)
	} else {
		resp, err = orch.Generate(ctx, query, opts.taskType, opts.route, opts.temperature)
	}
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	if len(resp.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range resp.Citations {
			fmt.Printf("  %s\n", c)
		}
	}
	if resp.Cached {
		fmt.Println("\n(cached)")
	}
	return nil
}
