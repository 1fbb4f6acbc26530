package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tzrikka/unapprove/internal/logger"
	"github.com/tzrikka/unapprove/internal/otel"
	"github.com/tzrikka/unapprove/pkg/config"
	"github.com/tzrikka/unapprove/pkg/github"
	"github.com/tzrikka/unapprove/pkg/server"
	"github.com/tzrikka/unapprove/pkg/unapprove"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:    "unapprove",
		Usage:   "Dismiss stale approvals of code owners in GitHub PRs",
		Version: bi.Main.Version,
		Flags:   config.Flags(),
		Action:  runOnce,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Dismiss stale approvals in response to GitHub webhook events",
				Flags:  config.ServeFlags(),
				Action: serve,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runOnce dismisses stale approvals in a single PR, usually
// in a GitHub Actions workflow which is triggered by the PR.
func runOnce(ctx context.Context, cmd *cli.Command) error {
	ctx = initLog(ctx, cmd)

	cfg, err := config.FromCommand(cmd, true)
	if err != nil {
		return err
	}

	shutdown := initMetrics(ctx, cmd)
	defer shutdown()

	return run(ctx, cfg)
}

// serve runs an HTTP server which receives GitHub webhook events.
func serve(ctx context.Context, cmd *cli.Command) error {
	ctx = initLog(ctx, cmd)

	cfg, err := config.FromCommand(cmd, false)
	if err != nil {
		return err
	}

	shutdown := initMetrics(ctx, cmd)
	defer shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := server.New(ctx, cfg, cmd.String("webhook-secret"), run)
	return s.ListenAndServe(ctx, cmd.String("webhook-addr"))
}

func run(ctx context.Context, cfg config.Config) error {
	client, err := github.NewClient(cfg.Token, cfg.APIURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	pr := github.NewPullRequest(client, cfg.Owner, cfg.Repo, cfg.PRNumber)
	_, err = unapprove.Run(ctx, cfg, pr)
	return err
}

// initLog initializes the default logger, based on whether
// it's running in development mode, or in a pretty-logging mode.
func initLog(ctx context.Context, cmd *cli.Command) context.Context {
	l := logger.New(os.Stdout, cmd.Bool("dev"), cmd.Bool("pretty-log"))
	slog.SetDefault(l)
	return logger.WithContext(ctx, l)
}

// initMetrics initializes the OpenTelemetry meter provider, unless it is disabled.
// Metrics are optional: failures are logged, but they do not abort the run.
func initMetrics(ctx context.Context, cmd *cli.Command) func() {
	m := config.MetricsFromCommand(cmd)
	if m.Disabled {
		return func() {}
	}

	opts := otel.Options{Endpoint: m.Endpoint, Timeout: m.Timeout, Compression: m.Compression}
	provider, err := otel.InitMetrics(ctx, opts)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to initialize OpenTelemetry metrics", slog.Any("error", err))
		return func() {}
	}

	return func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("failed to flush OpenTelemetry metrics", slog.Any("error", err))
		}
	}
}
