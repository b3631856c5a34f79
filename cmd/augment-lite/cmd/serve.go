package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/config"
	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	"github.com/zoonderkins/augment-lite-mcp/internal/index"
	srv "github.com/zoonderkins/augment-lite-mcp/internal/mcp"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
	"github.com/zoonderkins/augment-lite-mcp/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var watch bool
	var project string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stdio MCP server",
		Long: `Start the MCP server on stdio. Stdout carries JSON-RPC exclusively;
logs go to the log file.

With --watch, file changes under the project root trigger incremental
re-indexing in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), watch, project)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-index on file changes")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project to watch (default: resolve from the working directory)")
	return cmd
}

func runServe(parent context.Context, watch bool, project string) error {
	cfg, table, err := loadStack()
	if err != nil {
		return err
	}

	server, err := srv.NewServer(cfg, table)
	if err != nil {
		return err
	}
	defer func() { _ = server.Close() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watch {
		if err := startWatcher(ctx, cfg, project); err != nil {
			return err
		}
	}
	return server.Serve(ctx)
}

// startWatcher runs an fsnotify loop that re-indexes the project on
// debounced change batches.
func startWatcher(ctx context.Context, cfg *config.Config, project string) error {
	registry := store.NewRegistry(store.RegistryPath())
	p, err := resolveOrRegister(registry, project)
	if err != nil {
		return err
	}

	w, err := watcher.New(p.Root, watcher.Options{})
	if err != nil {
		return err
	}

	indexer := index.New(cfg, embed.NewFromConfig(cfg.Embeddings))
	go func() {
		defer w.Close()
		w.Run(ctx, func(events []watcher.Event) {
			slog.Info("file changes detected", "project", p.Name, "events", len(events))
			if _, err := indexer.Run(ctx, p, false, nil); err != nil {
				slog.Warn("watch re-index failed", "project", p.Name, "error", err)
			}
		})
	}()
	slog.Info("watching for changes", "project", p.Name, "root", p.Root)
	return nil
}
