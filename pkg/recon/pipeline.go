package recon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/who0xac/reconify/pkg/config"
	"github.com/who0xac/reconify/pkg/invoker"
	"github.com/who0xac/reconify/pkg/liveness"
	"github.com/who0xac/reconify/pkg/logging"
	"github.com/who0xac/reconify/pkg/project"
)

// LivenessChecker filters candidate subdomains
type LivenessChecker interface {
	Check(ctx context.Context, subdomains []string) []liveness.Result
}

// Options configures a Pipeline
type Options struct {
	DryRun bool
	Logger logrus.FieldLogger
}

// Pipeline runs the per-domain phase bodies. It keeps no state between
// phases: everything a later phase needs is read back from the project tree.
type Pipeline struct {
	cfg    *config.Config
	state  *project.State
	layout project.Layout
	inv    invoker.Invoker
	live   LivenessChecker
	dryRun bool
	log    logrus.FieldLogger
}

// New creates a Pipeline
func New(cfg *config.Config, state *project.State, inv invoker.Invoker, live LivenessChecker, opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Pipeline{
		cfg:    cfg,
		state:  state,
		layout: state.Layout(),
		inv:    inv,
		live:   live,
		dryRun: opts.DryRun,
		log:    log,
	}
}

func (p *Pipeline) logger(domain string, phase Phase) logrus.FieldLogger {
	return p.log.WithFields(logrus.Fields{
		logging.FieldDomain: domain,
		logging.FieldPhase:  string(phase),
	})
}

// Setup creates the domain skeleton
func (p *Pipeline) Setup(ctx context.Context, domain string) error {
	if err := p.state.EnsureDomain(domain); err != nil {
		return fmt.Errorf("setup %s: %w", domain, err)
	}
	return nil
}

// Passive runs the lookup battery, subdomain enumeration and the resolved-IP
// dump against the domain.
func (p *Pipeline) Passive(ctx context.Context, domain string) error {
	log := p.logger(domain, PhasePassive)
	dir := p.layout.Passive(domain)
	if err := p.state.Ensure(dir); err != nil {
		return err
	}

	for _, tool := range lookupTools {
		if err := p.run(ctx, log, tool.Invocation(domain, dir)); err != nil {
			return err
		}
	}

	if err := p.run(ctx, log, subfinderTool.Invocation(domain, dir)); err != nil {
		return err
	}

	resolved := invoker.Command{
		Tool: "dig",
		Argv: []string{"dig", "+short", domain},
		Dest: p.layout.ResolvedIPs(domain),
	}
	if err := p.run(ctx, log, resolved); err != nil {
		return err
	}

	subs, err := p.Candidates(domain)
	if err != nil && !os.IsNotExist(err) {
		log.Warnf("could not read enumeration output: %v", err)
	}
	log.Infof("passive recon done, %d candidate subdomains", len(subs))
	return nil
}

// Candidates reads the enumeration artifact back from disk
func (p *Pipeline) Candidates(domain string) ([]string, error) {
	path := project.Artifact(p.layout.Passive(domain), subfinderTool.Label, domain, subfinderTool.Ext)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if invoker.IsMarker(data) {
		return nil, nil
	}
	return ParseSubdomains(string(data), domain), nil
}

// Active filters candidates by liveness, groups the survivors by IP and runs
// the active tools against the domain and each kept subdomain.
func (p *Pipeline) Active(ctx context.Context, domain string) error {
	log := p.logger(domain, PhaseActive)

	kept, err := p.filter(ctx, log, domain)
	if err != nil {
		return err
	}
	if err := p.group(ctx, log, domain, kept); err != nil {
		return err
	}

	for _, tool := range activeTools {
		if !p.cfg.ToolEnabled(tool.Name) {
			log.Debugf("skipping %s", tool.Name)
			continue
		}
		dir := filepath.Join(p.layout.Active(domain), tool.Subdir)
		if err := p.state.Ensure(dir); err != nil {
			return err
		}
		if err := p.run(ctx, log, tool.Invocation(domain, dir)); err != nil {
			return err
		}
	}

	return nil
}

// filter keeps the candidates that resolve and answer on port 80. Dead ones
// are noted with their reason. Dry runs make no network probes.
func (p *Pipeline) filter(ctx context.Context, log logrus.FieldLogger, domain string) ([]liveness.Result, error) {
	candidates, err := p.Candidates(domain)
	if err != nil && !os.IsNotExist(err) {
		log.Warnf("could not read enumeration output: %v", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if p.dryRun || p.live == nil {
		log.Infof("dry-run: skipping liveness checks for %d candidates", len(candidates))
		return nil, nil
	}

	log.Infof("checking %d candidate subdomains", len(candidates))
	var kept []liveness.Result
	for _, res := range p.live.Check(ctx, candidates) {
		if res.Kept() {
			kept = append(kept, res)
			continue
		}
		if !res.Checked() {
			continue
		}
		if err := p.state.AppendNote(domain, res.Err.Error()); err != nil {
			log.Warnf("could not write note: %v", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Infof("%d of %d subdomains are live", len(kept), len(candidates))
	if err := p.state.AppendTimeline(domain, fmt.Sprintf("liveness: %d of %d subdomains kept", len(kept), len(candidates))); err != nil {
		log.Warnf("could not write timeline: %v", err)
	}
	return kept, nil
}

// group places each kept subdomain under its IP folder. Only the owner of an
// IP runs its lookups, once per project.
func (p *Pipeline) group(ctx context.Context, log logrus.FieldLogger, domain string, kept []liveness.Result) error {
	for _, res := range kept {
		owner, err := p.state.ClaimIPGroup(domain, res.IP)
		if err != nil {
			log.Warnf("could not create IP group for %s: %v", res.Subdomain, err)
			continue
		}

		if owner {
			dir := p.layout.IPPassive(domain, res.IP)
			for _, tool := range lookupTools {
				if err := p.run(ctx, log, tool.Invocation(res.IP, dir)); err != nil {
					return err
				}
			}
		}

		if err := p.state.EnsureSubdomain(domain, res.IP, res.Subdomain); err != nil {
			log.Warnf("could not create folders for %s: %v", res.Subdomain, err)
			continue
		}

		if tool, _ := Lookup("whatweb"); p.cfg.ToolEnabled(tool.Name) {
			cmd := tool.Invocation(res.Subdomain, p.layout.SubActive(domain, res.IP, res.Subdomain))
			if err := p.run(ctx, log, cmd); err != nil {
				return err
			}
		}
	}
	return nil
}

// Vulnerability runs the scanners against the domain and every kept
// subdomain recorded in the tree.
func (p *Pipeline) Vulnerability(ctx context.Context, domain string) error {
	log := p.logger(domain, PhaseVulnerability)

	live, err := p.state.LiveSubdomains(domain)
	if err != nil {
		log.Warnf("could not list live subdomains: %v", err)
	}

	for _, tool := range vulnerabilityTools {
		if !p.cfg.ToolEnabled(tool.Name) {
			log.Debugf("skipping %s", tool.Name)
			continue
		}

		dir := p.layout.VulnTool(domain, tool.Label)
		if err := p.state.Ensure(dir); err != nil {
			return err
		}
		if err := p.run(ctx, log, tool.Invocation(domain, dir)); err != nil {
			return err
		}

		for _, l := range live {
			dir := p.layout.SubVulnTool(domain, l.IP, l.Subdomain, tool.Label)
			if err := p.state.Ensure(dir); err != nil {
				return err
			}
			if err := p.run(ctx, log, tool.Invocation(l.Subdomain, dir)); err != nil {
				return err
			}
		}
	}

	return nil
}

// run invokes one tool. Tool failures are absorbed by the invoker; only
// cancellation stops the phase.
func (p *Pipeline) run(ctx context.Context, log logrus.FieldLogger, cmd invoker.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.WithField(logging.FieldTool, cmd.Tool).Infof("running %s", cmd)
	p.inv.Invoke(ctx, cmd)
	return ctx.Err()
}
