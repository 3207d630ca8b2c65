package reactor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/squadron/internal/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/danmuck/squadron/internal/reactor"

// Engine runs reaction passes. It holds no per-pass state, so one Engine may serve concurrent passes.
type Engine struct {
	runner         tools.CommandRunner
	dir            string
	stdout         io.Writer
	stderr         io.Writer
	commandTimeout time.Duration
	tracer         trace.Tracer
	logger         zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDir sets the working directory for probes and actions.
func WithDir(dir string) Option {
	return func(e *Engine) { e.dir = dir }
}

// WithOutput sets where action output streams. Probe output is always captured.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithCommandTimeout bounds every spawned command; zero disables the bound.
func WithCommandTimeout(d time.Duration) Option {
	return func(e *Engine) { e.commandTimeout = d }
}

// WithTracer sets the tracer for pass, probe and action spans. The default is the global otel tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithLogger sets the logger, typically one carrying a run id. The default is the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New returns an Engine that spawns commands through runner. Output streams to
// the process stdout and stderr unless WithOutput says otherwise.
func New(runner tools.CommandRunner, opts ...Option) *Engine {
	e := &Engine{
		runner: runner,
		stdout: os.Stdout,
		stderr: os.Stderr,
		tracer: otel.Tracer(tracerName),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// React evaluates reactions in order and executes each selected action at most once.
// The first unknown action, launch failure or failing action aborts the pass.
func (e *Engine) React(ctx context.Context, catalog Catalog, reactions []Reaction, changed []string) (Report, error) {
	ctx, span := e.tracer.Start(ctx, "reactor.React", trace.WithAttributes(
		attribute.Int("squadron.reactions", len(reactions)),
		attribute.Int("squadron.changed_paths", len(changed)),
	))
	defer span.End()

	paths := NormalizePaths(changed)
	done := make(map[string]struct{})
	var report Report

	for _, reaction := range reactions {
		if err := ctx.Err(); err != nil {
			return report, endSpan(span, fmt.Errorf("reactor: pass interrupted: %w", err))
		}

		fired, err := e.fires(ctx, reaction.When, paths)
		if err != nil {
			return report, endSpan(span, err)
		}
		report.Reactions = append(report.Reactions, ReactionRecord{
			Service:  reaction.Service,
			Reaction: reaction.ID(),
			Trigger:  describe(reaction.When),
			Fired:    fired,
		})
		if !fired {
			e.logger.Debug().Str("reaction", reaction.ID()).Str("trigger", describe(reaction.When)).Msg("reactor.Engine.React trigger not fired")
			continue
		}

		for _, name := range reaction.Execute {
			action, ok := catalog.Lookup(name)
			if !ok {
				return report, endSpan(span, &UnknownActionError{Action: name, Reaction: reaction.ID()})
			}
			if _, ok := done[name]; ok {
				report.Actions = append(report.Actions, ActionRecord{Action: name, Reaction: reaction.ID(), Outcome: OutcomeSkippedDone})
				continue
			}
			if blocking := intersect(done, action.NotAfter); len(blocking) > 0 {
				e.logger.Info().Str("action", name).Strs("not_after", blocking).Msg("reactor.Engine.React skipped")
				report.Actions = append(report.Actions, ActionRecord{
					Action:   name,
					Reaction: reaction.ID(),
					Outcome:  OutcomeSkippedNotAfter,
					Blocking: blocking,
				})
				continue
			}

			record, err := e.execute(ctx, reaction, action)
			report.Actions = append(report.Actions, record)
			if err != nil {
				return report, endSpan(span, err)
			}
			done[name] = struct{}{}
		}
	}

	span.SetAttributes(attribute.Int("squadron.executed", len(done)))
	return report, nil
}

func (e *Engine) fires(ctx context.Context, trigger Trigger, paths []string) (bool, error) {
	switch t := trigger.(type) {
	case nil, Always:
		return true, nil
	case FileMatch:
		return MatchAny(t.Patterns, paths), nil
	case CommandProbe:
		return e.probe(ctx, t)
	default:
		return false, fmt.Errorf("reactor: unsupported trigger %T", trigger)
	}
}

func (e *Engine) probe(ctx context.Context, p CommandProbe) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "reactor.probe", trace.WithAttributes(attribute.String("squadron.command", p.Command)))
	defer span.End()

	cmd, err := tools.ParseCommand(p.Command)
	if err != nil {
		return false, endSpan(span, &CommandLaunchError{Command: p.Command, Err: err})
	}
	cmd.Dir = e.dir

	ctx, cancel := e.commandContext(ctx)
	defer cancel()
	res, err := e.runner.Run(ctx, cmd)
	if err != nil {
		return false, endSpan(span, &CommandLaunchError{Command: p.Command, Err: err})
	}

	e.logger.Debug().
		Str("command", p.Command).
		Int("exit", res.ExitCode).
		Int("want", p.ExitCode).
		Bytes("stdout", res.Stdout).
		Bytes("stderr", res.Stderr).
		Msg("reactor.Engine.probe")
	span.SetAttributes(attribute.Int("squadron.exit_code", res.ExitCode))
	return res.ExitCode == p.ExitCode, nil
}

func (e *Engine) execute(ctx context.Context, reaction Reaction, action Action) (ActionRecord, error) {
	ctx, span := e.tracer.Start(ctx, "reactor.action", trace.WithAttributes(
		attribute.String("squadron.action", action.Name),
		attribute.String("squadron.reaction", reaction.ID()),
	))
	defer span.End()

	record := ActionRecord{Action: action.Name, Reaction: reaction.ID(), Outcome: OutcomeFailed}
	cmd, err := tools.ParseCommand(action.Command)
	if err != nil {
		return record, endSpan(span, &CommandLaunchError{Command: action.Command, Err: err})
	}
	cmd.Dir = e.dir
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr

	e.logger.Info().Str("action", action.Name).Str("command", action.Command).Str("reaction", reaction.ID()).Msg("reactor.Engine.execute")

	ctx, cancel := e.commandContext(ctx)
	defer cancel()
	start := time.Now()
	res, err := e.runner.Run(ctx, cmd)
	record.Duration = time.Since(start)
	record.ExitCode = res.ExitCode
	if err != nil {
		return record, endSpan(span, &CommandLaunchError{Command: action.Command, Err: err})
	}
	span.SetAttributes(attribute.Int("squadron.exit_code", res.ExitCode))
	if res.ExitCode != 0 {
		e.logger.Error().Str("action", action.Name).Str("command", action.Command).Int("exit", res.ExitCode).
			Msgf("Command %s errored with code %d", action.Command, res.ExitCode)
		return record, endSpan(span, &ActionFailure{Action: action.Name, Command: action.Command, ExitCode: res.ExitCode})
	}

	record.Outcome = OutcomeExecuted
	return record, nil
}

func (e *Engine) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.commandTimeout > 0 {
		return context.WithTimeout(ctx, e.commandTimeout)
	}
	return context.WithCancel(ctx)
}

func describe(t Trigger) string {
	if t == nil {
		return Always{}.String()
	}
	return t.String()
}

// intersect returns the entries of names present in done, in names order.
func intersect(done map[string]struct{}, names []string) []string {
	var out []string
	for _, n := range names {
		if _, ok := done[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

func endSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
