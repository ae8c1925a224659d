package recon

import (
	"net"
	"regexp"
	"strings"
)

var subdomainRegex = regexp.MustCompile(`^([a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// ParseSubdomains extracts candidate subdomains of domain from enumeration
// output: one token per line, lowercased, unique, in order of appearance.
// Wildcard prefixes are stripped; IPs, the apex and foreign names are dropped.
func ParseSubdomains(output, domain string) []string {
	domain = strings.ToLower(domain)
	valid := []string{}
	seen := make(map[string]bool)

	for _, line := range strings.Split(output, "\n") {
		subdomain := strings.TrimSpace(strings.ToLower(line))
		subdomain = strings.TrimPrefix(subdomain, "*.")
		subdomain = strings.TrimSuffix(subdomain, ".")

		if subdomain == "" || seen[subdomain] {
			continue
		}
		if net.ParseIP(subdomain) != nil {
			continue
		}
		if !subdomainRegex.MatchString(subdomain) {
			continue
		}
		if !strings.HasSuffix(subdomain, "."+domain) {
			continue
		}

		seen[subdomain] = true
		valid = append(valid, subdomain)
	}

	return valid
}
