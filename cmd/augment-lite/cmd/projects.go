package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/cache"
	"github.com/zoonderkins/augment-lite-mcp/internal/memory"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
	"github.com/zoonderkins/augment-lite-mcp/internal/validation"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Manage the project registry",
	}
	cmd.AddCommand(
		newProjectsListCmd(),
		newProjectsAddCmd(),
		newProjectsActivateCmd(),
		newProjectsRemoveCmd(),
	)
	return cmd
}

func newProjectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := store.NewRegistry(store.RegistryPath()).List()
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Println("no projects registered")
				return nil
			}
			for _, p := range projects {
				marker := " "
				if p.Active {
					marker = "*"
				}
				fmt.Printf("%s %-24s %s\n", marker, p.Name, p.Root)
			}
			return nil
		},
	}
}

func newProjectsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Register a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := validation.ProjectName(args[0], false)
			if err != nil {
				return err
			}
			root, err := validation.ProjectPath(args[1])
			if err != nil {
				return err
			}
			p, err := store.NewRegistry(store.RegistryPath()).Add(name, root)
			if err != nil {
				return err
			}
			fmt.Printf("added %s (%s)\n", p.Name, p.Root)
			return nil
		},
	}
}

func newProjectsActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <name>",
		Short: "Mark a project as the active default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.NewRegistry(store.RegistryPath()).SetActive(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("activated %s\n", p.Name)
			return nil
		},
	}
}

func newProjectsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a project and delete its indexes, caches, memories, and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := store.NewRegistry(store.RegistryPath()).Remove(name); err != nil {
				return err
			}
			if err := store.RemoveArtifacts(name); err != nil {
				return err
			}
			if err := purgeProjectRows(name); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", name)
			return nil
		},
	}
}

// purgeProjectRows clears the removed project's partitions in the
// shared databases.
func purgeProjectRows(name string) error {
	exact, err := cache.NewExactCache(store.ResponseCachePath())
	if err != nil {
		return err
	}
	defer func() { _ = exact.Close() }()
	if err := exact.Clear(name); err != nil {
		return err
	}

	mem, err := memory.NewStore(store.MemoryPath())
	if err != nil {
		return err
	}
	defer func() { _ = mem.Close() }()
	if err := mem.Purge(name); err != nil {
		return err
	}

	tasks, err := memory.NewTaskStore(store.TasksPath())
	if err != nil {
		return err
	}
	defer func() { _ = tasks.Close() }()
	return tasks.Purge(name)
}
