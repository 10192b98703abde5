// Package cli implements the px command line client.
//
// Each command is a thin renderer over cache.Tags: the cache decides what
// goes to the service and what is answered locally, the command only parses
// arguments and prints.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/px/internal/cache"
	"github.com/sakif/px/internal/client"
	"github.com/sakif/px/internal/localstate"
)

// RootOptions holds global flags and the injected local state.
type RootOptions struct {
	APIURL  string
	JSON    bool
	Verbose bool
	Offline bool

	// Store is the local state. Nil means the file store in localstate.Dir.
	Store localstate.Store
	// Getenv reads the environment. Nil means os.Getenv.
	Getenv func(string) string
}

// NewRootCommand creates the root command for the px CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts == nil {
		opts = &RootOptions{}
	}

	cmd := &cobra.Command{
		Use:   "px",
		Short: "px - short project ids",
		Long: `px allocates short project ids (like pxabc2345) and keeps a record for
each one: a name, freeform JSON meta, and typed links to external resources.

Reads are served from a local cache when the service cannot be reached.
Writes always go to the service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "service URL (overrides config and "+localstate.EnvAPIURL+")")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print JSON instead of text")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug output to stderr")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "do not contact the service; read from the cache")

	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewLinkCommand(opts))
	cmd.AddCommand(NewUnlinkCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewUseCommand(opts))
	cmd.AddCommand(NewHealthCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func (o *RootOptions) getenv(key string) string {
	if o.Getenv != nil {
		return o.Getenv(key)
	}
	return os.Getenv(key)
}

func (o *RootOptions) store() (localstate.Store, error) {
	if o.Store != nil {
		return o.Store, nil
	}
	dir, err := localstate.Dir(o.getenv)
	if err != nil {
		return nil, fmt.Errorf("locating state directory: %w", err)
	}
	o.Store = localstate.NewFileStore(dir)
	return o.Store, nil
}

// config loads the config file and applies environment and flag overrides.
func (o *RootOptions) config() (*localstate.Config, error) {
	st, err := o.store()
	if err != nil {
		return nil, err
	}
	cfg, err := st.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg = localstate.Resolve(cfg, o.getenv)
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	return cfg, nil
}

func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) client() (*client.Client, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.APIURL,
		client.WithAdminKey(cfg.AdminKey),
		client.WithAgentKey(cfg.AgentKey),
	), nil
}

func (o *RootOptions) tags(cmd *cobra.Command) (*cache.Tags, error) {
	c, err := o.client()
	if err != nil {
		return nil, err
	}
	st, err := o.store()
	if err != nil {
		return nil, err
	}
	return cache.New(c, st, o.logger(cmd), cache.WithOffline(o.Offline)), nil
}

// resolveID returns args[0] when given, else the active project.
func (o *RootOptions) resolveID(arg string) (string, error) {
	if id := strings.TrimSpace(arg); id != "" {
		return id, nil
	}
	st, err := o.store()
	if err != nil {
		return "", err
	}
	active, err := st.ActiveProject()
	if err != nil {
		return "", err
	}
	if active == "" {
		return "", fmt.Errorf("no id given and no active project (set one with: px use <id>)")
	}
	return active, nil
}

func staleNote(w io.Writer) {
	fmt.Fprintln(w, "note: service unreachable, showing cached data (may be stale)")
}
