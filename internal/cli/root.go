// Package cli wires configuration, preferences and the terminal UI into
// the taskhq command.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tgienger/taskhq/internal/api"
	"github.com/tgienger/taskhq/internal/config"
	"github.com/tgienger/taskhq/internal/dashboard"
	"github.com/tgienger/taskhq/internal/db"
	"github.com/tgienger/taskhq/internal/ui"
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type options struct {
	configPath string
	endpoint   string
	backend    string
	debug      bool
}

func NewRootCmd(info BuildInfo) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "taskhq",
		Short:        "Terminal dashboard for organizations, projects and tasks",
		SilenceUsage: true,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return runTUI(cmd.Context(), cfg, opts.debug)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/taskhq/config.yaml)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "GraphQL endpoint URL")
	flags.StringVar(&opts.backend, "backend", "", "REST base URL (default: endpoint without /graphql)")
	flags.BoolVar(&opts.debug, "debug", false, "write a debug log (taskhq-debug.log unless log_file is set)")

	cmd.AddCommand(newPrefsCmd(opts))
	return cmd
}

// load resolves the config and applies flag overrides.
func (o *options) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.endpoint != "" {
		// a derived backend follows the new endpoint
		if cfg.BackendURL == config.BackendFromEndpoint(cfg.GraphQLEndpoint) {
			cfg.BackendURL = ""
		}
		cfg.GraphQLEndpoint = o.endpoint
	}
	if o.backend != "" {
		cfg.BackendURL = o.backend
	}
	cfg.Normalize()
	return cfg, nil
}

func openPrefs(cfg config.Config) (*db.DB, error) {
	path, err := db.DefaultPath(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	database, err := db.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}
	return database, nil
}

func runTUI(ctx context.Context, cfg config.Config, debug bool) error {
	logFile := cfg.LogFile
	if debug && logFile == "" {
		logFile = "taskhq-debug.log"
	}
	if logFile != "" {
		f, err := tea.LogToFile(logFile, "taskhq")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	database, err := openPrefs(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("starting: endpoint=%s backend=%s", cfg.GraphQLEndpoint, cfg.BackendURL)
	client := api.NewClient(api.NewHTTPTransport(cfg.GraphQLEndpoint, cfg.BackendURL, cfg.RequestTimeout))
	app := ui.NewApp(ctx, dashboard.New(client, database))

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}

func newPrefsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show remembered selections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			database, err := openPrefs(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			settings, err := database.Settings()
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s=%s\n", k, settings[k])
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget remembered selections and the comment author",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			database, err := openPrefs(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			for _, k := range []string{dashboard.PrefLastOrganization, dashboard.PrefLastProject, dashboard.PrefCommentAuthor} {
				if err := database.SetSetting(k, ""); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "preferences cleared")
			return nil
		},
	})
	return cmd
}
