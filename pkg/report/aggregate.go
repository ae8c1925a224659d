package report

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/who0xac/reconify/pkg/logging"
	"github.com/who0xac/reconify/pkg/project"
	"github.com/who0xac/reconify/pkg/recon"
)

// Aggregator reads finished artifacts back from a project tree. It never
// runs tools and never fails: anything it cannot read is an empty field.
type Aggregator struct {
	layout project.Layout
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewAggregator creates an Aggregator over layout
func NewAggregator(layout project.Layout, log logrus.FieldLogger) *Aggregator {
	if log == nil {
		log = logging.Discard()
	}
	return &Aggregator{layout: layout, log: log, now: time.Now}
}

// Aggregate builds the report data for domains
func (a *Aggregator) Aggregate(domains []string) *Data {
	data := &Data{
		Project:   a.layout.Name,
		Timestamp: a.now().Format("2006-01-02 15:04:05"),
		Domains:   make(map[string]*DomainData, len(domains)),
	}

	for _, domain := range domains {
		if _, seen := data.Domains[domain]; seen {
			continue
		}
		data.order = append(data.order, domain)
		data.Domains[domain] = a.domain(domain)
	}
	return data
}

func (a *Aggregator) domain(domain string) *DomainData {
	log := a.log.WithField(logging.FieldDomain, domain)
	l := a.layout
	dd := newDomainData()

	if ips, ok := extract(log, l.ResolvedIPs(domain), ParseIPs); ok {
		dd.IPs = ips
	}
	if subs, ok := extract(log, artifact("subfinder", l.Passive(domain), domain), ParseLines); ok {
		dd.Subdomains = subs
	}
	if techs, ok := extract(log, artifact("whatweb", l.Active(domain), domain), ParseTechnologies); ok {
		dd.Technologies = techs
	}
	if waf, ok := extract(log, artifact("wafw00f", l.Active(domain), domain), ParseWAF); ok {
		dd.WAF = waf
	}

	a.findings(log, dd.Vulnerabilities, domain, func(tool string) string {
		return l.VulnTool(domain, label(tool))
	})

	live, err := project.LiveSubdomains(l, domain)
	if err != nil {
		log.Debugf("could not list live subdomains: %v", err)
	}
	for _, s := range live {
		ls := LiveSubdomain{
			Name:            s.Subdomain,
			IP:              s.IP,
			Technologies:    []string{},
			Vulnerabilities: map[string][]Finding{},
		}
		if techs, ok := extract(log, artifact("whatweb", l.SubActive(domain, s.IP, s.Subdomain), s.Subdomain), ParseTechnologies); ok {
			ls.Technologies = techs
		}
		a.findings(log, ls.Vulnerabilities, s.Subdomain, func(tool string) string {
			return l.SubVulnTool(domain, s.IP, s.Subdomain, label(tool))
		})
		dd.LiveSubdomains = append(dd.LiveSubdomains, ls)
	}

	return dd
}

// scanners maps a vulnerability tool to its line heuristic
var scanners = []struct {
	tool  string
	parse Parser[[]string]
}{
	{"nikto", ParseNikto},
	{"nuclei", ParseNuclei},
}

func (a *Aggregator) findings(log logrus.FieldLogger, into map[string][]Finding, target string, dir func(tool string) string) {
	for _, s := range scanners {
		matched, ok := extract(log, artifact(s.tool, dir(s.tool), target), s.parse)
		if !ok {
			continue
		}
		findings := make([]Finding, 0, len(matched))
		for _, line := range matched {
			findings = append(findings, Finding{Tool: s.tool, Target: target, Line: line, Severity: Severity(line)})
		}
		into[s.tool] = findings
	}
}

func extract[T any](log logrus.FieldLogger, path string, parse Parser[T]) (T, bool) {
	value, outcome, err := Extract(path, parse)
	if outcome == Unparsable {
		log.Warnf("ignoring %s: %v", path, err)
	}
	return value, outcome == Parsed
}

func label(tool string) string {
	t, _ := recon.Lookup(tool)
	return t.Label
}

func artifact(tool, dir, target string) string {
	t, _ := recon.Lookup(tool)
	return project.Artifact(dir, t.Label, target, t.Ext)
}
