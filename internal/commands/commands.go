// Package commands implements the outliner command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"outliner/internal/capabilities"
	"outliner/internal/config"
	"outliner/internal/domain/repositories"
	"outliner/internal/repository/disk"
	"outliner/internal/service/credentials"
	serviceLLM "outliner/internal/service/llm"
	"outliner/internal/service/preferences"
	"outliner/internal/service/session"
)

// globalOptions are shared by every sub-command.
type globalOptions struct {
	storagePath string
	verbose     bool
	noColor     bool
}

// New returns the root command.
func New() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "outliner",
		Short:         "Grow outlines and mind maps with a language model.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&g.storagePath, "storage", "", "directory for stored keys and preferences (default $STORAGE_PATH)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log generation progress to stderr")
	cmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable coloured output")

	addExpand(cmd, g)
	addSuggest(cmd, g)
	addKey(cmd, g)
	return cmd
}

// env is the service graph a command runs against.
type env struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       repositories.KeyValueStore
	catalogue   *capabilities.Registry
	credentials *credentials.Service
}

func (g *globalOptions) load() (*env, error) {
	cfg := config.Load()
	if g.storagePath != "" {
		cfg.StoragePath = g.storagePath
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	catalogue, err := capabilities.NewRegistry()
	if err != nil {
		return nil, err
	}
	store := disk.NewKVStore(cfg.StoragePath, logger)
	return &env{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		catalogue:   catalogue,
		credentials: credentials.NewService(store, catalogue, cfg.ProviderKeys(), logger),
	}, nil
}

// sessions builds a session manager backed by the real providers.
func (e *env) sessions() (*session.Manager, *serviceLLM.ProviderRegistry, error) {
	registry, err := serviceLLM.SetupProviders(e.cfg, e.credentials, e.logger)
	if err != nil {
		return nil, nil, err
	}
	prefs := preferences.NewService(e.store, e.catalogue, e.cfg.DefaultProvider, e.cfg.DefaultModel, e.logger)
	m := session.NewManager(registry, prefs, e.catalogue, session.Options{
		GenerationTimeout: e.cfg.GenerationTimeout,
	}, e.logger)
	return m, registry, nil
}

func output(cmd *cobra.Command) io.Writer {
	if cmd.OutOrStdout() == os.Stdout {
		return color.Output
	}
	return cmd.OutOrStdout()
}
