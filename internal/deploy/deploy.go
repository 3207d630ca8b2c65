package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/squadron/internal/config"
	"github.com/danmuck/squadron/internal/descriptor"
	"github.com/danmuck/squadron/internal/observability"
	"github.com/danmuck/squadron/internal/reactor"
	"github.com/danmuck/squadron/internal/tools"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds descriptor reads running at once.
const maxConcurrentLoads = 8

// Deployment ties a deploy config to descriptor loading and a command runner.
type Deployment struct {
	cfg    config.DeployConfig
	loader descriptor.Loader
	runner tools.CommandRunner
	stdout io.Writer
	stderr io.Writer
}

type Option func(*Deployment)

func WithOutput(stdout, stderr io.Writer) Option {
	return func(d *Deployment) {
		d.stdout = stdout
		d.stderr = stderr
	}
}

func New(cfg config.DeployConfig, runner tools.CommandRunner, opts ...Option) *Deployment {
	d := &Deployment{
		cfg:    cfg,
		loader: descriptor.Loader{Root: cfg.ServiceDir},
		runner: runner,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewRunner picks the command runner named by the config.
func NewRunner(cfg config.DeployConfig) (tools.CommandRunner, error) {
	switch cfg.Runner {
	case config.RunnerLocal, "":
		return tools.ExecRunner{}, nil
	case config.RunnerSSH:
		return tools.SSHRunner{
			Host:                        cfg.SSH.Host,
			Port:                        cfg.SSH.Port,
			User:                        cfg.SSH.User,
			KeyPath:                     cfg.SSH.KeyPath,
			KnownHostsPath:              cfg.SSH.KnownHosts,
			InsecureSkipHostKeyChecking: cfg.SSH.InsecureSkipHostKey,
			Timeout:                     cfg.SSH.TimeoutDuration(),
		}, nil
	default:
		return nil, fmt.Errorf("deploy: unknown runner %q", cfg.Runner)
	}
}

// Plan is the merged catalog and reaction list of every configured service.
type Plan struct {
	Catalog   reactor.Catalog
	Reactions []reactor.Reaction
}

// Validate checks that every execute entry names a cataloged action.
// React reports the same condition lazily, only when a firing reaction reaches it.
func (p Plan) Validate() error {
	for _, r := range p.Reactions {
		for _, name := range r.Execute {
			if _, ok := p.Catalog.Lookup(name); !ok {
				return &reactor.UnknownActionError{Action: name, Reaction: r.ID()}
			}
		}
	}
	return nil
}

type servicePlan struct {
	catalog   reactor.Catalog
	reactions []reactor.Reaction
}

// Plan loads every service's descriptors concurrently and merges them in declared service order.
func (d *Deployment) Plan(ctx context.Context) (Plan, error) {
	loaded := make([]servicePlan, len(d.cfg.Services))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, svc := range d.cfg.Services {
		g.Go(func() error {
			sp, err := d.loadService(gctx, svc)
			if err != nil {
				return fmt.Errorf("deploy: service=%s: %w", svc.Name, err)
			}
			loaded[i] = sp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Plan{}, err
	}

	catalogs := make([]reactor.Catalog, 0, len(loaded))
	var plan Plan
	for _, sp := range loaded {
		catalogs = append(catalogs, sp.catalog)
		plan.Reactions = append(plan.Reactions, sp.reactions...)
	}
	plan.Catalog = reactor.Merge(catalogs...)
	return plan, nil
}

func (d *Deployment) loadService(ctx context.Context, svc config.ServiceConfig) (servicePlan, error) {
	var sp servicePlan
	actionsDoc, found, err := d.loader.Load(ctx, svc.Name, svc.Version, descriptor.KindActions)
	if err != nil {
		return servicePlan{}, err
	}
	if found {
		if sp.catalog, err = reactor.BuildCatalog(svc.Name, actionsDoc); err != nil {
			return servicePlan{}, err
		}
	}

	reactDoc, found, err := d.loader.Load(ctx, svc.Name, svc.Version, descriptor.KindReact)
	if err != nil {
		return servicePlan{}, err
	}
	if found {
		if sp.reactions, err = reactor.BuildReactions(svc.Name, reactDoc); err != nil {
			return servicePlan{}, err
		}
	}

	log.Debug().
		Str("service", svc.Name).
		Str("version", svc.Version).
		Int("actions", len(sp.catalog)).
		Int("reactions", len(sp.reactions)).
		Msg("deploy.Deployment.loadService")
	return sp, nil
}

// Result is the outcome of one deployment pass.
type Result struct {
	RunID    string
	Report   reactor.Report
	Duration time.Duration
}

// Run plans the deployment and executes one reaction pass against the changed paths.
func (d *Deployment) Run(ctx context.Context, changed []string) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", res.RunID).Logger()

	plan, err := d.Plan(ctx)
	if err != nil {
		return res, err
	}

	engine := reactor.New(d.runner,
		reactor.WithDir(d.cfg.Root),
		reactor.WithOutput(d.stdout, d.stderr),
		reactor.WithCommandTimeout(d.cfg.CommandTimeoutDuration()),
		reactor.WithLogger(logger),
	)

	logger.Info().
		Int("services", len(d.cfg.Services)).
		Int("actions", len(plan.Catalog)).
		Int("reactions", len(plan.Reactions)).
		Int("changed_paths", len(changed)).
		Msg("deploy.Deployment.Run start")

	start := time.Now()
	res.Report, err = engine.React(ctx, plan.Catalog, plan.Reactions, changed)
	res.Duration = time.Since(start)
	record(res, err)

	if err != nil {
		logger.Error().Err(err).Dur("duration", res.Duration).Msg("deploy.Deployment.Run failed")
		return res, err
	}
	logger.Info().
		Strs("executed", res.Report.Executed()).
		Int("skipped", res.Report.Count(reactor.OutcomeSkippedDone)+res.Report.Count(reactor.OutcomeSkippedNotAfter)).
		Dur("duration", res.Duration).
		Msg("deploy.Deployment.Run done")
	return res, nil
}

func record(res Result, err error) {
	for _, rr := range res.Report.Reactions {
		observability.RecordReaction(rr.Service, rr.Fired)
	}
	for _, a := range res.Report.Actions {
		observability.RecordAction(a.Action, string(a.Outcome), a.Duration)
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	observability.RecordPass(result, res.Duration)
}
