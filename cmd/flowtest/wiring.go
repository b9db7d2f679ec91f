package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/marcuspmd/flow-test-sub005/internal/config"
	"github.com/marcuspmd/flow-test-sub005/internal/dag"
	"github.com/marcuspmd/flow-test-sub005/internal/discovery"
	"github.com/marcuspmd/flow-test-sub005/internal/faker"
	"github.com/marcuspmd/flow-test-sub005/internal/httpclient"
	"github.com/marcuspmd/flow-test-sub005/internal/logging"
	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/sandbox"
	"github.com/marcuspmd/flow-test-sub005/internal/scheduler"
	"github.com/marcuspmd/flow-test-sub005/internal/suiterunner"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

var (
	errInterrupted = errors.New("interrupted")
	errTerminated  = errors.New("terminated")
)

type engine struct {
	cfg      *config.EngineConfig
	suites   []*model.Suite
	graph    *dag.Graph
	log      *zap.Logger
	registry *discovery.Registry
	runner   *suiterunner.Runner
}

func buildEngine() (*engine, error) {
	cfg, err := config.Load(config.Options{
		ConfigPath:    cfgFile,
		TestDirectory: testDirectory,
		Environment:   envName,
		PriorityCSV:   priorityCSV,
		SuiteCSV:      suiteCSV,
		NodeCSV:       nodeCSV,
		TagCSV:        tagCSV,
	})
	if err != nil {
		return nil, err
	}

	log, err := logging.New(verbosity())
	if err != nil {
		return nil, fmt.Errorf("cannot initialize logger: %w", err)
	}

	suites, err := discovery.Discover(cfg.TestDirectory, cfg.Discovery, discovery.Filters{
		Priorities: cfg.Filters.Priority,
		NodeIDs:    cfg.Filters.NodeIDs,
		SuiteNames: cfg.Filters.SuiteNames,
		Tags:       cfg.Filters.Tags,
	})
	if err != nil {
		return nil, err
	}

	graph, err := dag.Build(suites)
	if err != nil {
		return nil, err
	}

	registry := discovery.NewRegistry(suites)

	httpClient := httpclient.New(httpclient.RetryPolicy{
		Enabled:     cfg.Execution.RetryFailed.Enabled,
		MaxAttempts: cfg.Execution.RetryFailed.MaxAttempts,
		DelayMs:     cfg.Execution.RetryFailed.DelayMs,
	}, cfg.Execution.RateLimitRPS)

	fakerProvider := faker.New(0)
	sb := sandbox.New()
	interp := vars.NewInterpolator(fakerProvider, sb, false)

	globals := make(map[string]model.Value, len(cfg.Globals.Variables))
	for k, v := range cfg.Globals.Variables {
		globals[k] = model.NewValue(v)
	}

	runner := &suiterunner.Runner{
		Deps: suiterunner.ExecutorDeps{
			HTTP:             httpClient,
			Interp:           interp,
			Eval:             sb,
			Log:              log,
			DefaultTimeoutMs: cfg.Globals.Timeouts.Default,
		},
		Registry:          vars.NewRegistry(),
		Suites:            registry,
		Log:               log,
		ContinueOnFailure: cfg.Execution.ContinueOnFailure,
		ConfigDefaults:    globals,
	}

	return &engine{cfg: cfg, suites: suites, graph: graph, log: log, registry: registry, runner: runner}, nil
}

func verbosity() logging.Verbosity {
	switch {
	case quietFlag:
		return logging.VerbositySilent
	case debugFlag:
		return logging.VerbosityDebug
	case verboseFlag:
		return logging.VerbosityVerbose
	default:
		return logging.VerbosityNormal
	}
}

// cancellableContext wires SIGINT/SIGTERM into a cooperative cancellation
// context, the way a long-running scheduled run must honor Ctrl-C.
func cancellableContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		switch sig {
		case syscall.SIGINT:
			lastSignalErr = errInterrupted
		case syscall.SIGTERM:
			lastSignalErr = errTerminated
		}
		cancel()
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}

// lastSignalErr records which signal triggered cancellation, so main can
// map it to the matching exit code after Execute returns an error.
var lastSignalErr error

func runScheduled(ctx context.Context, e *engine) ([]model.SuiteResult, error) {
	requiredSet := make(map[string]bool, len(e.cfg.Priorities.Required))
	for _, p := range e.cfg.Priorities.Required {
		requiredSet[p] = true
	}
	if e.cfg.Priorities.FailFastOnRequired && len(requiredSet) == 0 {
		requiredSet["critical"] = true
	}

	results, err := scheduler.Run(ctx, e.graph, scheduler.Options{
		MaxParallel:        e.cfg.Execution.MaxParallel,
		RequiredPriorities: requiredSet,
		ContinueOnFailure:  e.cfg.Execution.ContinueOnFailure,
		Log:                e.log,
	}, func(ctx context.Context, suite *model.Suite) model.SuiteResult {
		return e.runner.Run(suite, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil && lastSignalErr != nil {
		return results, lastSignalErr
	}
	return results, nil
}
