package orchestrator

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/who0xac/reconify/pkg/config"
	"github.com/who0xac/reconify/pkg/logging"
	"github.com/who0xac/reconify/pkg/project"
)

// DomainRunner runs the per-domain phase bodies
type DomainRunner interface {
	Setup(ctx context.Context, domain string) error
	Passive(ctx context.Context, domain string) error
	Active(ctx context.Context, domain string) error
	Vulnerability(ctx context.Context, domain string) error
}

// ReportFunc builds the project report once every domain is done
type ReportFunc func(ctx context.Context) error

// Options configures an Orchestrator
type Options struct {
	DryRun   bool
	Logger   logrus.FieldLogger
	FileHook *logging.FileHook // mirrors domain entries into <domain>/Logs/log.txt
	Progress io.Writer         // phase progress bars; nil hides them
}

// DomainError is a failure isolated to one domain and phase
type DomainError struct {
	Domain string `json:"domain,omitempty"`
	Phase  Phase  `json:"phase"`
	Err    error  `json:"-"`
}

func (e DomainError) Error() string {
	if e.Domain == "" {
		return fmt.Sprintf("%s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Domain, e.Phase, e.Err)
}

// Summary describes a finished run
type Summary struct {
	RunID       string        `json:"run_id"`
	Project     string        `json:"project"`
	Mode        config.Mode   `json:"mode"`
	DryRun      bool          `json:"dry_run"`
	Phases      []Phase       `json:"phases"`
	Errors      []DomainError `json:"errors,omitempty"`
	Interrupted bool          `json:"interrupted"`
	Started     time.Time     `json:"started"`
	Finished    time.Time     `json:"finished"`
}

// Failed reports whether domain recorded any failure
func (s *Summary) Failed(domain string) bool {
	for _, e := range s.Errors {
		if e.Domain == domain {
			return true
		}
	}
	return false
}

// Orchestrator sequences phases for every domain of a project
type Orchestrator struct {
	cfg      *config.Config
	state    *project.State
	runner   DomainRunner
	report   ReportFunc
	dryRun   bool
	log      logrus.FieldLogger
	hook     *logging.FileHook
	progress io.Writer
}

// New creates an Orchestrator
func New(cfg *config.Config, state *project.State, runner DomainRunner, report ReportFunc, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Orchestrator{
		cfg:      cfg,
		state:    state,
		runner:   runner,
		report:   report,
		dryRun:   opts.DryRun,
		log:      log,
		hook:     opts.FileHook,
		progress: opts.Progress,
	}
}

// Execute runs every phase gated by the configured mode. Domain failures are
// collected in the summary; the returned error is reserved for faults that
// prevent any work (the project tree cannot be created).
func (o *Orchestrator) Execute(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.New().String(),
		Project: o.cfg.Project,
		Mode:    o.cfg.Mode,
		DryRun:  o.dryRun,
		Started: time.Now(),
	}
	defer func() { summary.Finished = time.Now() }()

	log := o.log.WithField("run", summary.RunID[:8])
	log.Infof("project %s: %d domains, mode %s", o.cfg.Project, len(o.cfg.Domains), o.cfg.Mode)
	if o.dryRun {
		log.Info("dry-run: no external tools or network probes will run")
	}

	if err := o.state.EnsureProject(); err != nil {
		return summary, fmt.Errorf("create project: %w", err)
	}

	var rec recorder
	active := o.cfg.Domains

	for _, phase := range PhasesFor(o.cfg.Mode) {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		log.Infof("phase %s", PhaseName[phase])
		summary.Phases = append(summary.Phases, phase)

		if phase == PhaseReport {
			if o.report != nil {
				if err := o.guard(func() error { return o.report(ctx) }); err != nil {
					log.Errorf("report failed: %v", err)
					rec.add(DomainError{Phase: phase, Err: err})
				}
			}
			continue
		}

		o.runPhase(ctx, phase, active, &rec)

		if phase == PhaseSetup {
			active = rec.survivors(active, PhaseSetup)
		}
	}

	if ctx.Err() != nil {
		summary.Interrupted = true
	}
	summary.Errors = rec.errors()
	return summary, nil
}

// runPhase runs phase for every domain on the bounded group and returns once
// all of them are done.
func (o *Orchestrator) runPhase(ctx context.Context, phase Phase, domains []string, rec *recorder) {
	bar := o.newBar(phase, len(domains))
	defer bar.Finish()

	workers := o.cfg.Workers
	if workers < 1 {
		workers = len(domains)
	}
	if workers < 1 {
		workers = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, domain := range domains {
		domain := domain
		g.Go(func() error {
			defer bar.Add(1)
			if ctx.Err() != nil {
				return nil
			}

			log := o.log.WithFields(logrus.Fields{logging.FieldDomain: domain, logging.FieldPhase: string(phase)})
			if phase != PhaseSetup {
				o.timeline(domain, fmt.Sprintf("%s started", PhaseName[phase]))
			}

			start := time.Now()
			err := o.guard(func() error { return o.runDomain(ctx, phase, domain) })
			elapsed := time.Since(start).Round(time.Millisecond)

			if err != nil {
				if ctx.Err() != nil {
					log.Warnf("%s interrupted", PhaseName[phase])
				} else {
					log.Errorf("%s failed: %v", PhaseName[phase], err)
				}
				rec.add(DomainError{Domain: domain, Phase: phase, Err: err})
				o.timeline(domain, fmt.Sprintf("%s failed after %s: %v", PhaseName[phase], elapsed, err))
				return nil
			}

			if phase == PhaseSetup && o.hook != nil {
				o.hook.Register(domain, o.state.Layout().LogFile(domain))
			}
			log.Infof("%s done in %s", PhaseName[phase], elapsed)
			o.timeline(domain, fmt.Sprintf("%s completed in %s", PhaseName[phase], elapsed))
			return nil
		})
	}
	g.Wait()
}

func (o *Orchestrator) runDomain(ctx context.Context, phase Phase, domain string) error {
	switch phase {
	case PhaseSetup:
		return o.runner.Setup(ctx, domain)
	case PhasePassive:
		return o.runner.Passive(ctx, domain)
	case PhaseActive:
		return o.runner.Active(ctx, domain)
	case PhaseVulnerability:
		return o.runner.Vulnerability(ctx, domain)
	}
	return fmt.Errorf("unknown phase %q", phase)
}

// guard turns a panic into an error so one domain cannot take down the run
func (o *Orchestrator) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Debugf("recovered panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (o *Orchestrator) timeline(domain, entry string) {
	if err := o.state.AppendTimeline(domain, entry); err != nil {
		o.log.WithField(logging.FieldDomain, domain).Debugf("could not write timeline: %v", err)
	}
}

func (o *Orchestrator) newBar(phase Phase, total int) *progressbar.ProgressBar {
	w := o.progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(PhaseName[phase]),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// recorder collects domain errors from concurrent workers
type recorder struct {
	mu   sync.Mutex
	errs []DomainError
}

func (r *recorder) add(e DomainError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recorder) errors() []DomainError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DomainError(nil), r.errs...)
}

// survivors drops the domains that failed phase
func (r *recorder) survivors(domains []string, phase Phase) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := make(map[string]bool)
	for _, e := range r.errs {
		if e.Phase == phase {
			failed[e.Domain] = true
		}
	}
	var out []string
	for _, d := range domains {
		if !failed[d] {
			out = append(out, d)
		}
	}
	return out
}
