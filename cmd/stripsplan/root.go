package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rogersf/strips-engine/internal/config"
)

// app carries what every subcommand needs once the config is loaded.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	tracer trace.Tracer
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "stripsplan",
		Short: "STRIPS planner with forward and regression search",
		Long: `stripsplan solves STRIPS planning problems described in YAML files.

Problems are searched forward from the initial state or backward from the
goal, with least-cost-first (mpp) or depth-first branch-and-bound (bnb)
search. "serve" exposes the same planner over HTTP.`,
		PersistentPreRunE: a.load,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (default: $"+config.EnvPath+" or "+config.FileName+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level (debug|info|warn|error)")

	root.AddCommand(newSolveCmd(a))
	root.AddCommand(newCompareCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// load resolves the config and builds the logger before any subcommand runs.
func (a *app) load(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	cfg, err := config.Resolve(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		if _, err := config.ParseLevel(a.logLevel); err != nil {
			return err
		}
		cfg.LogLevel = a.logLevel
	}

	a.cfg = cfg
	a.logger = cfg.NewLogger(cmd.ErrOrStderr())
	a.tracer = otel.Tracer("stripsplan")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("stripsplan %s (commit=%s, built=%s)\n", version, commit, date)
		},
	}
}
