package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewSearchCommand creates the search command.
func NewSearchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find tags whose name contains query",
		Long: `Find tags whose name contains query (case-insensitive), most recently
updated first. When the service is unreachable the local cache is searched
instead; those results may include tags deleted since the last sync.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}
			res, err := tags.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if res.Stale {
				staleNote(cmd.ErrOrStderr())
			}
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), res.Tags)
			}
			return printTable(cmd.OutOrStdout(), summaries(res.Tags))
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the most recently updated tags",
		Long: `List the most recently updated tags. A successful listing also rebuilds
the local cache, dropping tags that no longer exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}
			res, err := tags.List(cmd.Context())
			if err != nil {
				return err
			}
			if res.Stale {
				staleNote(cmd.ErrOrStderr())
			}
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), res.Tags)
			}
			return printTable(cmd.OutOrStdout(), res.Tags)
		},
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Rebuild the local cache from the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}
			n, err := tags.Sync(cmd.Context())
			if err != nil {
				return err
			}
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), map[string]int{"cached": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cached %d tags\n", n)
			return nil
		},
	}
}
