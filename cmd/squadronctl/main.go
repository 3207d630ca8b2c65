package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/squadron/internal/config"
	"github.com/danmuck/squadron/internal/deploy"
	"github.com/danmuck/squadron/internal/logging"
	"github.com/danmuck/squadron/internal/observability"
	"github.com/danmuck/squadron/internal/reactor"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid arguments")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, opts, os.Stdin, os.Stdout)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("squadronctl failed")
	}
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer) error {
	shutdown, err := observability.SetupTracing(ctx, "squadronctl")
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	cfg, err := config.LoadDeployConfig(opts.configPath)
	if err != nil {
		return err
	}
	log.Info().Str("path", opts.configPath).Str("root", cfg.Root).Str("runner", cfg.Runner).Msg("loaded deploy config")

	runner, err := deploy.NewRunner(cfg)
	if err != nil {
		return err
	}
	d := deploy.New(cfg, runner)

	if opts.list {
		plan, err := d.Plan(ctx)
		if err != nil {
			return err
		}
		printPlan(stdout, plan)
		return nil
	}

	changed, err := opts.changedPaths(stdin)
	if err != nil {
		return err
	}
	res, runErr := d.Run(ctx, changed)
	if cfg.MetricsFile != "" {
		if err := observability.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("metrics textfile write failed")
		}
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", res.RunID, runErr)
	}
	return nil
}

func printPlan(w io.Writer, plan deploy.Plan) {
	fmt.Fprintln(w, "actions:")
	current := ""
	for _, name := range plan.Catalog.Names() {
		action := plan.Catalog[name]
		service, local := reactor.SplitQualified(name)
		if service != current {
			fmt.Fprintf(w, "  %s:\n", service)
			current = service
		}
		line := fmt.Sprintf("    %s: %s", local, action.Command)
		if len(action.NotAfter) > 0 {
			line += " (not after " + strings.Join(action.NotAfter, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "reactions:")
	for _, r := range plan.Reactions {
		fmt.Fprintf(w, "  %s when %s: %s\n", r.ID(), r.When, strings.Join(r.Execute, ", "))
	}
}
