package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/px/internal/model"
)

// NewNewCommand creates the new command.
func NewNewCommand(opts *RootOptions) *cobra.Command {
	var (
		meta string
		use  bool
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Allocate a new id",
		Long: `Allocate a new id and store a tag under it.

Example:
  px new "Echo project" --meta '{"lang":"go"}' --use`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m model.Meta
			if meta != "" {
				parsed, err := model.ParseMeta([]byte(meta))
				if err != nil {
					return fmt.Errorf("invalid --meta: %w", err)
				}
				m = parsed
			}

			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}
			tag, err := tags.Create(cmd.Context(), strings.Join(args, " "), m)
			if err != nil {
				return err
			}

			if use {
				st, err := opts.store()
				if err != nil {
					return err
				}
				if err := st.SetActiveProject(tag.ID); err != nil {
					return err
				}
			}

			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), tag)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tag.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&meta, "meta", "", "meta as a JSON object")
	cmd.Flags().BoolVar(&use, "use", false, "make the new id the active project")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a tag and its links",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := opts.resolveID(firstArg(args))
			if err != nil {
				return err
			}
			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}

			res, err := tags.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if res.Stale {
				staleNote(cmd.ErrOrStderr())
			}
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), res.Tag)
			}
			printTag(cmd.OutOrStdout(), &res.Tag)
			return nil
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var name, meta string

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change a tag's name or meta (admin)",
		Long: `Change a tag's name or meta. Only the given flags change.

--meta replaces the whole object.

Example:
  px update pxabc2345 --name "Echo" --meta '{"lang":"go"}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd model.TagUpdate
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("meta") {
				parsed, err := model.ParseMeta([]byte(meta))
				if err != nil {
					return fmt.Errorf("invalid --meta: %w", err)
				}
				if parsed == nil {
					parsed = model.EmptyMeta()
				}
				upd.Meta = &parsed
			}
			if upd.Name == nil && upd.Meta == nil {
				return fmt.Errorf("nothing to update: pass --name and/or --meta")
			}

			id, err := opts.resolveID(firstArg(args))
			if err != nil {
				return err
			}
			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}
			if err := tags.Update(cmd.Context(), id, upd); err != nil {
				return err
			}
			return done(cmd, opts, "updated "+id)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&meta, "meta", "", "new meta as a JSON object")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tag and its links (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}
			if err := tags.Delete(cmd.Context(), id); err != nil {
				return err
			}

			st, err := opts.store()
			if err != nil {
				return err
			}
			active, err := st.ActiveProject()
			if err != nil {
				return fmt.Errorf("deleted %s, but reading the active project failed: %w", id, err)
			}
			if active == id {
				if err := st.SetActiveProject(""); err != nil {
					return err
				}
			}
			return done(cmd, opts, "deleted "+id)
		},
	}
}

// NewLinkCommand creates the link command.
func NewLinkCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link [id] <type> <url>",
		Short: "Attach a link to a tag",
		Long: `Attach a typed link to a tag. A tag may have several links of one type.

Example:
  px link pxabc2345 github https://github.com/x/echo`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var idArg string
			if len(args) == 3 {
				idArg, args = args[0], args[1:]
			}
			id, err := opts.resolveID(idArg)
			if err != nil {
				return err
			}
			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}
			if err := tags.AddLink(cmd.Context(), id, args[0], args[1]); err != nil {
				return err
			}
			return done(cmd, opts, fmt.Sprintf("linked %s %s: %s", id, args[0], args[1]))
		},
	}
}

// NewUnlinkCommand creates the unlink command.
func NewUnlinkCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink [id] <type>",
		Short: "Remove every link of one type (admin)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var idArg string
			if len(args) == 2 {
				idArg, args = args[0], args[1:]
			}
			id, err := opts.resolveID(idArg)
			if err != nil {
				return err
			}
			tags, err := opts.tags(cmd)
			if err != nil {
				return err
			}
			if err := tags.RemoveLink(cmd.Context(), id, args[0]); err != nil {
				return err
			}
			return done(cmd, opts, fmt.Sprintf("unlinked %s %s", id, args[0]))
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// done prints the acknowledgment of a write.
func done(cmd *cobra.Command, opts *RootOptions, text string) error {
	if opts.JSON {
		return printJSON(cmd.OutOrStdout(), map[string]bool{"ok": true})
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
