package report

// Data is the aggregate view of a project, rebuilt from disk on every report
type Data struct {
	Project   string                 `json:"project"`
	Timestamp string                 `json:"timestamp"`
	Domains   map[string]*DomainData `json:"domains"`

	order []string
}

// DomainNames returns the domains in configuration order
func (d *Data) DomainNames() []string {
	return d.order
}

// DomainData holds what was extracted for one domain
type DomainData struct {
	IPs             []string             `json:"ips"`
	Subdomains      []string             `json:"subdomains"`
	LiveSubdomains  []LiveSubdomain      `json:"live_subdomains"`
	Technologies    []string             `json:"technologies"`
	WAF             string               `json:"waf"`
	Vulnerabilities map[string][]Finding `json:"vulnerabilities"`
}

// LiveSubdomain is a subdomain that passed liveness filtering, with the
// findings from its own scans.
type LiveSubdomain struct {
	Name            string               `json:"name"`
	IP              string               `json:"ip"`
	Technologies    []string             `json:"technologies"`
	Vulnerabilities map[string][]Finding `json:"vulnerabilities"`
}

// Finding is one line item extracted from a scanner artifact
type Finding struct {
	Tool     string `json:"tool"`
	Target   string `json:"target"`
	Line     string `json:"line"`
	Severity string `json:"severity,omitempty"`
}

// Totals summarizes a project for the rendered documents
type Totals struct {
	Domains        int
	Subdomains     int
	LiveSubdomains int
	Findings       int
}

// Totals counts across every domain
func (d *Data) Totals() Totals {
	t := Totals{Domains: len(d.Domains)}
	for _, dd := range d.Domains {
		t.Subdomains += len(dd.Subdomains)
		t.LiveSubdomains += len(dd.LiveSubdomains)
		for _, f := range dd.Vulnerabilities {
			t.Findings += len(f)
		}
		for _, l := range dd.LiveSubdomains {
			for _, f := range l.Vulnerabilities {
				t.Findings += len(f)
			}
		}
	}
	return t
}

func newDomainData() *DomainData {
	return &DomainData{
		IPs:             []string{},
		Subdomains:      []string{},
		LiveSubdomains:  []LiveSubdomain{},
		Technologies:    []string{},
		Vulnerabilities: map[string][]Finding{},
	}
}
