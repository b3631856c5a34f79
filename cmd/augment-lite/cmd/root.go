// Package cmd provides the CLI commands for augment-lite.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/config"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/logging"
	"github.com/zoonderkins/augment-lite-mcp/internal/route"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
	"github.com/zoonderkins/augment-lite-mcp/internal/validation"
	"github.com/zoonderkins/augment-lite-mcp/pkg/version"
)

var loggingCleanup func()

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "augment-lite",
		Short: "Code-aware RAG MCP server",
		Long: `augment-lite indexes codebases for hybrid BM25 + vector retrieval
and serves search, cited answers, memory, and code intelligence to AI
coding agents over MCP.

Run 'augment-lite serve' to start the stdio MCP server, or use the
subcommands to index and query projects directly.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("augment-lite version {{.Version}}\n")

	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		var err error
		if c.Name() == "serve" {
			loggingCleanup, err = logging.SetupServeMode()
		} else {
			loggingCleanup, err = logging.SetupDefault()
		}
		return err
	}
	cmd.PersistentPostRun = func(c *cobra.Command, args []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(
		newServeCmd(),
		newIndexCmd(),
		newSearchCmd(),
		newAskCmd(),
		newProjectsCmd(),
		newStatusCmd(),
		newCacheCmd(),
		newMemoryCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadStack loads the config and routing table shared by every command.
func loadStack() (*config.Config, *route.Table, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	table, err := route.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, table, nil
}

// resolveOrRegister maps a --project flag to a registered project. With
// an empty name, an unregistered working directory is registered under
// its basename, mirroring the MCP auto-index path.
func resolveOrRegister(registry *store.Registry, name string) (store.Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return store.Project{}, apperrors.Internal("resolve working directory", err)
	}

	p, err := registry.Resolve(name, cwd)
	if err == nil {
		return p, nil
	}
	if name != "" || apperrors.CodeOf(err) != apperrors.CodeNotFound {
		return store.Project{}, err
	}

	root, verr := validation.ProjectPath(cwd)
	if verr != nil {
		return store.Project{}, verr
	}
	if p, err = registry.Add(filepath.Base(root), root); err != nil {
		return store.Project{}, err
	}
	return registry.SetActive(p.Name)
}
