package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/px/internal/idgen"
	"github.com/sakif/px/internal/localstate"
)

// NewUseCommand creates the use command.
func NewUseCommand(opts *RootOptions) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "use [id]",
		Short: "Set or print the active project",
		Long: `Set the active project, used wherever an id is optional.
Without an argument, print the current one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.store()
			if err != nil {
				return err
			}

			if unset {
				return st.SetActiveProject("")
			}

			if len(args) == 0 {
				active, err := st.ActiveProject()
				if err != nil {
					return err
				}
				if active == "" {
					return fmt.Errorf("no active project")
				}
				fmt.Fprintln(cmd.OutOrStdout(), active)
				return nil
			}

			id := strings.TrimSpace(args[0])
			if !idgen.Valid(id) {
				return fmt.Errorf("%q is not a px id", id)
			}
			if err := st.SetActiveProject(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active project: %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&unset, "clear", false, "unset the active project")

	return cmd
}

// NewHealthCommand creates the health command.
func NewHealthCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the service answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.Health(cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", c.BaseURL(), err)
			}
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"ok": true, "api_url": c.BaseURL()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", c.BaseURL())
			return nil
		},
	}
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the client configuration",
	}
	cmd.AddCommand(newConfigInitCommand(opts))
	cmd.AddCommand(newConfigShowCommand(opts))
	return cmd
}

func newConfigInitCommand(opts *RootOptions) *cobra.Command {
	var adminKey, agentKey string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the config file",
		Long: `Write the config file. Values already in the file are kept unless a
flag replaces them.

Example:
  px config init --api-url https://px.example.com --agent-key s3cret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.store()
			if err != nil {
				return err
			}
			cfg, err := st.LoadConfig()
			if err != nil {
				return err
			}

			if opts.APIURL != "" {
				cfg.APIURL = opts.APIURL
			}
			if cmd.Flags().Changed("admin-key") {
				cfg.AdminKey = adminKey
			}
			if cmd.Flags().Changed("agent-key") {
				cfg.AgentKey = agentKey
			}

			if err := st.SaveConfig(cfg); err != nil {
				return err
			}
			if fs, ok := st.(*localstate.FileStore); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", fs.ConfigPath())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "config saved")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminKey, "admin-key", "", "credential for admin operations")
	cmd.Flags().StringVar(&agentKey, "agent-key", "", "credential for agent operations")

	return cmd
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, keys masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			masked := localstate.Config{
				APIURL:   cfg.APIURL,
				AdminKey: localstate.MaskKey(cfg.AdminKey),
				AgentKey: localstate.MaskKey(cfg.AgentKey),
			}
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), masked)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "api_url:   %s\n", masked.APIURL)
			fmt.Fprintf(w, "admin_key: %s\n", orUnset(masked.AdminKey))
			fmt.Fprintf(w, "agent_key: %s\n", orUnset(masked.AgentKey))
			if opts.getenv(localstate.EnvAPIKey) != "" {
				fmt.Fprintf(w, "(keys from %s)\n", localstate.EnvAPIKey)
			}
			return nil
		},
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
