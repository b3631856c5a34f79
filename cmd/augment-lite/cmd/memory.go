package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zoonderkins/augment-lite-mcp/internal/memory"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

func newMemoryCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage long-term memory entries",
	}
	cmd.PersistentFlags().StringVarP(&project, "project", "p", "", "Project partition (default: global)")

	withStore := func(fn func(s *memory.Store, partition string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := memory.NewStore(store.MemoryPath())
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()
			return fn(s, project)
		}
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
	}
	set.RunE = func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *memory.Store, partition string) error {
			return s.Set(partition, args[0], args[1])
		})(cmd, args)
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Fetch a value",
		Args:  cobra.ExactArgs(1),
	}
	get.RunE = func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *memory.Store, partition string) error {
			value, found, err := s.Get(partition, args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("%s: not set\n", args[0])
				return nil
			}
			fmt.Println(value)
			return nil
		})(cmd, args)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List entries, most recently updated first",
	}
	list.RunE = func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *memory.Store, partition string) error {
			entries, err := s.List(partition)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no entries")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%-32s %s\n", e.Key, e.Value)
			}
			return nil
		})(cmd, args)
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
	}
	del.RunE = func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *memory.Store, partition string) error {
			if err := s.Delete(partition, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		})(cmd, args)
	}

	cmd.AddCommand(set, get, list, del)
	return cmd
}
