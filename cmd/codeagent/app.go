package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"codeagent/pkg/agent"
	"codeagent/pkg/agent/llm"
	llmmetrics "codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/coder"
	"codeagent/pkg/config"
	"codeagent/pkg/console"
	"codeagent/pkg/eventlog"
	"codeagent/pkg/logx"
	"codeagent/pkg/metrics"
	"codeagent/pkg/persistence"
)

// generatorFactory builds the generation capability for a run.
type generatorFactory func(cfg *config.Config, rec llmmetrics.Recorder, logger *logx.Logger) (llm.TextGenerator, string, error)

func defaultGenerator(cfg *config.Config, rec llmmetrics.Recorder, logger *logx.Logger) (llm.TextGenerator, string, error) {
	gen, provider, err := agent.NewTextGenerator(cfg, rec, logger)
	if err != nil {
		return nil, "", err //nolint:wrapcheck // already descriptive
	}
	return gen, provider, nil
}

// app holds the flags and the per-run infrastructure shared by all commands.
//
//nolint:govet // grouped by lifecycle
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	outputDir  string
	provider   string
	tee        bool

	newGenerator generatorFactory
	isTerminal   func() bool
	agentOpts    []coder.Option
	styled       bool

	cfg      *config.Config
	out      *console.Console
	logger   *logx.Logger
	recorder *metrics.PrometheusRecorder
	audit    *persistence.Store
	stream   *eventlog.Writer
	stopSrv  context.CancelFunc
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	a := &app{
		stdin:        stdin,
		stdout:       stdout,
		stderr:       stderr,
		newGenerator: defaultGenerator,
		logger:       logx.NewLogger("cli"),
	}
	a.isTerminal = func() bool {
		f, ok := stdin.(*os.File)
		return ok && console.IsTerminal(f)
	}
	if f, ok := stdout.(*os.File); ok {
		a.styled = console.IsTerminal(f)
	}
	return a
}

// loadConfig reads configuration, applies flag overrides and routes logging
// to <output>/.codeagent/logs.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err //nolint:wrapcheck // config errors are already descriptive
	}
	if a.outputDir != "" {
		cfg.OutputDir = a.outputDir
	}
	if a.provider != "" {
		if !config.IsKnownProvider(a.provider) {
			return fmt.Errorf("unknown provider: %s", a.provider)
		}
		cfg.Provider = a.provider
	}
	a.cfg = cfg
	a.out = console.New(a.stdout, a.styled)

	logPath, err := logx.InitializeLogFile(filepath.Join(cfg.OutputDir, ".codeagent", "logs"), a.tee)
	if err != nil {
		return fmt.Errorf("failed to initialize log file: %w", err)
	}
	a.logger.Debug("Logging to %s", logPath)
	if cfg.Source != "" {
		a.logger.Info("📋 Loaded config from %s", cfg.Source)
	}
	return nil
}

// start loads configuration and opens everything a pipeline run needs: the
// generator, the metrics recorder and endpoint, the audit session and the
// event stream. Call finish when the run ends.
func (a *app) start(ctx context.Context, mode, description string) (*coder.CodeAgent, error) {
	if err := a.loadConfig(); err != nil {
		return nil, err
	}
	a.recorder = metrics.NewPrometheusRecorder()

	gen, provider, err := a.newGenerator(a.cfg, a.recorder, a.logger.With("llm"))
	if err != nil {
		return nil, err
	}

	if a.cfg.MetricsAddr != "" {
		srvCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopSrv = cancel
		go func() {
			if err := metrics.Serve(srvCtx, a.cfg.MetricsAddr, a.recorder.Registry(), a.logger.With("metrics")); err != nil {
				a.logger.Error("%v", err)
			}
		}()
	}

	opts := []coder.Option{
		coder.WithConsole(a.out),
		coder.WithMetrics(a.recorder),
	}
	if a.cfg.Audit {
		store, err := persistence.Open(filepath.Join(a.cfg.OutputDir, persistence.DefaultFileName))
		if err != nil {
			return nil, err //nolint:wrapcheck // persistence errors are already descriptive
		}
		a.audit = store
		if _, err := store.StartSession(ctx, persistence.Session{
			Description: description,
			Provider:    provider,
			Mode:        mode,
		}); err != nil {
			a.logger.Warn("⚠️  Failed to start audit session: %v", err)
		}
		opts = append(opts, coder.WithAudit(store))
	}

	stream, err := eventlog.NewWriter(filepath.Join(a.cfg.OutputDir, eventlog.StreamFileName))
	if err != nil {
		a.logger.Warn("⚠️  Event stream disabled: %v", err)
	} else {
		a.stream = stream
		opts = append(opts, coder.WithEventStream(stream))
	}

	opts = append(opts, a.agentOpts...)
	ca, err := coder.New(gen, a.cfg, opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck // coder errors are already descriptive
	}
	return ca, nil
}

// finish closes the audit session, snapshots the metrics and releases every
// resource opened by start.
func (a *app) finish(ctx context.Context, success bool) {
	var errs []error
	if a.audit != nil {
		status := persistence.SessionStatusCompleted
		if !success {
			status = persistence.SessionStatusFailed
		}
		errs = append(errs, a.audit.EndSession(context.WithoutCancel(ctx), status), a.audit.Close())
		a.audit = nil
	}
	if a.recorder != nil && a.cfg != nil {
		errs = append(errs, metrics.WriteTextfile(a.recorder.Registry(), filepath.Join(a.cfg.OutputDir, metrics.TextfileName)))
	}
	if a.stream != nil {
		errs = append(errs, a.stream.Close())
		a.stream = nil
	}
	if a.stopSrv != nil {
		a.stopSrv()
		a.stopSrv = nil
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("⚠️  Cleanup: %v", err)
	}
}
