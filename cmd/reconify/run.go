package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/who0xac/reconify/pkg/checker"
	"github.com/who0xac/reconify/pkg/config"
	"github.com/who0xac/reconify/pkg/invoker"
	"github.com/who0xac/reconify/pkg/liveness"
	"github.com/who0xac/reconify/pkg/logging"
	notifier "github.com/who0xac/reconify/pkg/notify"
	"github.com/who0xac/reconify/pkg/orchestrator"
	"github.com/who0xac/reconify/pkg/output/terminal"
	"github.com/who0xac/reconify/pkg/project"
	"github.com/who0xac/reconify/pkg/recon"
	"github.com/who0xac/reconify/pkg/report"
)

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// loadConfig resolves flags over the config file, falls back to the wizard
// for missing targets, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigFile()
	}

	raw, err := config.Resolve(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if needsWizard(raw) && interactive() {
		raw, err = runWizard(os.Stdin, cmd.ErrOrStderr(), raw)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Validate(raw)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == config.ModeCustom {
		if unknown := recon.UnknownTools(cfg.Tools); len(unknown) > 0 {
			return nil, &config.Error{Category: config.CategoryTools, Message: "unknown tools", Values: unknown}
		}
	}
	return cfg, nil
}

func newLogger(out io.Writer) *logrus.Logger {
	return logging.New(logging.Config{Debug: debug, NoColor: noColor, Output: out})
}

func runScan(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	terminal.PrintBanner(stderr, version)
	terminal.PrintConfig(stderr, cfg, dryRun)

	logger := newLogger(stderr)
	hook := logging.NewFileHook()
	logger.AddHook(hook)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !dryRun {
		if missing := checker.Missing(checker.PathOnly().CheckTools(ctx, checker.ToolsFor(cfg))); len(missing) > 0 {
			names := make([]string, 0, len(missing))
			for _, s := range missing {
				names = append(names, s.Tool.Name)
			}
			terminal.PrintWarning(stderr, fmt.Sprintf("Not installed: %s (run 'reconify check')", strings.Join(names, ", ")))
		}
	}

	layout := project.NewLayout(cfg.OutputDir, cfg.Project)
	state := project.New(layout, logger)

	runner := invoker.New(invoker.Options{DryRun: dryRun, Timeout: cfg.ToolTimeout, Logger: logger})
	stopKill := context.AfterFunc(ctx, runner.KillAll)
	defer stopKill()

	var live recon.LivenessChecker
	if !dryRun {
		live = liveness.NewChecker(
			liveness.NewDNSResolver(cfg.ProbeTimeout),
			liveness.NewWebProber(cfg.ProbeTimeout),
			liveness.Options{Workers: cfg.ProbeWorkers, Rate: cfg.ProbeRate, Logger: logger},
		)
	}
	pipeline := recon.New(cfg, state, runner, live, recon.Options{DryRun: dryRun, Logger: logger})

	var totals *report.Totals
	agg := report.NewAggregator(layout, logger)
	generate := func(ctx context.Context) error {
		data := agg.Aggregate(cfg.Domains)
		t := data.Totals()
		totals = &t

		paths, err := report.Write(data, layout, cfg.ReportFormats)
		for _, p := range paths {
			logger.Infof("report written: %s", p)
		}
		return err
	}

	var progress io.Writer
	if !debug && isatty.IsTerminal(os.Stderr.Fd()) {
		progress = os.Stderr
	}

	orch := orchestrator.New(cfg, state, pipeline, generate, orchestrator.Options{
		DryRun:   dryRun,
		Logger:   logger,
		FileHook: hook,
		Progress: progress,
	})

	summary, err := orch.Execute(ctx)
	if err != nil {
		return err
	}
	terminal.PrintRunSummary(stderr, summary, totals)

	if cfg.Notify {
		if err := notifier.RunFinished(summary); err != nil {
			logger.Warnf("%v", err)
		}
	}

	if summary.Interrupted {
		return errInterrupted
	}
	if dryRun {
		terminal.PrintInfo(stderr, fmt.Sprintf("Dry run complete: %d processes spawned", runner.Spawned()))
	}
	return nil
}

// runReport rebuilds the report from an existing tree without running tools
func runReport(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	layout := project.NewLayout(cfg.OutputDir, cfg.Project)
	if _, err := os.Stat(layout.Root); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no project at %s", layout.Root)
		}
		return err
	}

	logger := newLogger(cmd.ErrOrStderr())
	data := report.NewAggregator(layout, logger).Aggregate(cfg.Domains)
	paths, err := report.Write(data, layout, cfg.ReportFormats)
	out := cmd.OutOrStdout()
	for _, p := range paths {
		terminal.PrintSuccess(out, p)
	}
	return err
}
