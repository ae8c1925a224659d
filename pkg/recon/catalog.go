package recon

import (
	"strings"

	"github.com/who0xac/reconify/pkg/invoker"
	"github.com/who0xac/reconify/pkg/project"
)

// Phase groups tools by when they run
type Phase string

const (
	PhasePassive       Phase = "passive"
	PhaseActive        Phase = "active"
	PhaseVulnerability Phase = "vulnerability"
)

// Tool describes one external tool and how its artifact is named
type Tool struct {
	Name        string // catalog key, used by the custom-mode tools list
	Label       string // artifact prefix and Vulnerability-Scan folder
	Command     string
	Phase       Phase
	Description string
	InstallURL  string

	Output invoker.OutputMode
	Ext    string   // artifact extension, empty for multi-format prefixes
	Suffix string   // file the tool writes next to a prefix, checked for output
	Extra  []string // other files the tool writes next to a prefix
	Subdir string   // folder below Info-Gathering/Active

	// Args builds the argv for target; out is the artifact path (or prefix)
	Args  func(target, out string) []string
	Stdin func(target string) string
}

// Invocation builds the command running t against target with its artifact in dir
func (t Tool) Invocation(target, dir string) invoker.Command {
	out := project.Artifact(dir, t.Label, target, t.Ext)
	cmd := invoker.Command{
		Tool:   t.Name,
		Argv:   t.Args(target, out),
		Dest:   out + t.Suffix,
		Output: t.Output,
	}
	for _, ext := range t.Extra {
		cmd.Stale = append(cmd.Stale, out+ext)
	}
	if t.Stdin != nil {
		cmd.Stdin = t.Stdin(target)
	}
	return cmd
}

func plain(command string, extra ...string) func(target, out string) []string {
	return func(target, out string) []string {
		return append(append([]string{command}, extra...), target)
	}
}

// Passive lookups, run against the domain and again against each new IP group
var lookupTools = []Tool{
	{
		Name: "whois", Label: "Whois", Command: "whois", Phase: PhasePassive, Ext: "txt",
		Description: "Registration lookup", InstallURL: "sudo apt install whois",
		Args: plain("whois"),
	},
	{
		Name: "dig", Label: "Dig", Command: "dig", Phase: PhasePassive, Ext: "txt",
		Description: "DNS record dump", InstallURL: "sudo apt install dnsutils",
		Args: plain("dig"),
	},
	{
		Name: "host", Label: "Host", Command: "host", Phase: PhasePassive, Ext: "txt",
		Description: "Host lookup", InstallURL: "sudo apt install bind9-host",
		Args: plain("host"),
	},
}

var subfinderTool = Tool{
	Name: "subfinder", Label: "Subfinder", Command: "subfinder", Phase: PhasePassive, Ext: "txt",
	Description: "Subdomain enumeration",
	InstallURL:  "go install -v github.com/projectdiscovery/subfinder/v2/cmd/subfinder@latest",
	Output:      invoker.Capture,
	Args: func(target, out string) []string {
		return []string{"subfinder", "-silent", "-d", target}
	},
}

var activeTools = []Tool{
	{
		Name: "nmap", Label: "Nmap", Command: "nmap", Phase: PhaseActive, Subdir: "Nmap",
		Description: "Full port and service scan", InstallURL: "sudo apt install nmap",
		Output: invoker.SelfWritten, Suffix: ".nmap", Extra: []string{".gnmap", ".xml"},
		Args: func(target, out string) []string {
			return []string{"nmap", "-p-", "-sV", "-sC", "-T4", "-A", "-O", "-oA", out, target}
		},
	},
	{
		Name: "whatweb", Label: "WhatWeb", Command: "whatweb", Phase: PhaseActive, Ext: "txt",
		Description: "Web fingerprinting", InstallURL: "sudo apt install whatweb",
		Args: plain("whatweb", "--color=never"),
	},
	{
		Name: "tlssled", Label: "TLSSled", Command: "tlssled", Phase: PhaseActive, Ext: "txt", Subdir: "TLSSled",
		Description: "TLS configuration check", InstallURL: "sudo apt install tlssled",
		Args: func(target, out string) []string {
			return []string{"tlssled", target, "443"}
		},
	},
	{
		Name: "wafw00f", Label: "WAFW00F", Command: "wafw00f", Phase: PhaseActive, Ext: "txt",
		Description: "WAF detection", InstallURL: "pip install wafw00f",
		Output: invoker.SelfWritten,
		Args: func(target, out string) []string {
			return []string{"wafw00f", "-o", out, target}
		},
	},
	{
		Name: "lbd", Label: "LoadBalancer", Command: "lbd", Phase: PhaseActive, Ext: "txt",
		Description: "Load balancer detection", InstallURL: "sudo apt install lbd",
		Args: plain("lbd"),
	},
	{
		Name: "hakrawler", Label: "Sitemap", Command: "hakrawler", Phase: PhaseActive, Ext: "txt",
		Description: "Link discovery crawl", InstallURL: "go install github.com/hakluke/hakrawler@latest",
		Args: func(target, out string) []string {
			return []string{"hakrawler", "-u", "-s", "-d", "7"}
		},
		Stdin: func(target string) string {
			return "https://" + target + "\n"
		},
	},
}

var vulnerabilityTools = []Tool{
	{
		Name: "skipfish", Label: "Skipfish", Command: "skipfish", Phase: PhaseVulnerability, Ext: "txt",
		Description: "Content discovery fuzzer", InstallURL: "sudo apt install skipfish",
		Args: func(target, out string) []string {
			return []string{"skipfish", "-u", "https://" + target, "-U", "-o", strings.TrimSuffix(out, ".txt") + "-report"}
		},
	},
	{
		Name: "uniscan", Label: "Uniscan", Command: "uniscan", Phase: PhaseVulnerability, Ext: "txt",
		Description: "Web vulnerability scanner", InstallURL: "sudo apt install uniscan",
		Args: func(target, out string) []string {
			return []string{"uniscan", "-u", "https://" + target + "/", "-qwedsj"}
		},
	},
	{
		Name: "wapiti", Label: "Wapiti", Command: "wapiti", Phase: PhaseVulnerability, Ext: "txt",
		Description: "Web vulnerability scanner", InstallURL: "pip install wapiti3",
		Args: func(target, out string) []string {
			return []string{"wapiti", "-u", "https://" + target + "/", "-d", "16", "-f", "txt", "-o", strings.TrimSuffix(out, ".txt") + "-report.txt"}
		},
	},
	{
		Name: "xsser", Label: "XSSer", Command: "xsser", Phase: PhaseVulnerability, Ext: "txt",
		Description: "Cross-site scripting scanner", InstallURL: "sudo apt install xsser",
		Args: func(target, out string) []string {
			return []string{"xsser", "-u", "https://" + target, "-c", "16", "--auto", "--xml", strings.TrimSuffix(out, ".txt") + ".xml"}
		},
	},
	{
		Name: "nikto", Label: "Nikto", Command: "nikto", Phase: PhaseVulnerability, Ext: "txt",
		Description: "Web server scanner", InstallURL: "sudo apt install nikto",
		Args: func(target, out string) []string {
			return []string{"nikto", "-host", target}
		},
	},
	{
		Name: "nuclei", Label: "Nuclei", Command: "nuclei", Phase: PhaseVulnerability, Ext: "txt",
		Description: "Known-vulnerability scanner",
		InstallURL:  "go install -v github.com/projectdiscovery/nuclei/v3/cmd/nuclei@latest",
		Args: func(target, out string) []string {
			return []string{"nuclei", "-silent", "-nc", "-target", target}
		},
	},
	{
		Name: "wpscan", Label: "WPScan", Command: "wpscan", Phase: PhaseVulnerability, Ext: "txt",
		Description: "WordPress scanner", InstallURL: "gem install wpscan",
		Args: func(target, out string) []string {
			return []string{"wpscan", "--url", "https://" + target, "--random-user-agent"}
		},
	},
}

// Catalog returns every tool in run order
func Catalog() []Tool {
	tools := append([]Tool(nil), lookupTools...)
	tools = append(tools, subfinderTool)
	tools = append(tools, activeTools...)
	return append(tools, vulnerabilityTools...)
}

// Selectable returns the tools a custom-mode tools list may name
func Selectable() []Tool {
	tools := append([]Tool(nil), activeTools...)
	return append(tools, vulnerabilityTools...)
}

// Lookup finds a tool by catalog name (case-insensitive)
func Lookup(name string) (Tool, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Catalog() {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// UnknownTools returns the names that are not selectable tools
func UnknownTools(names []string) []string {
	var unknown []string
	for _, name := range names {
		found := false
		for _, t := range Selectable() {
			if t.Name == strings.ToLower(name) {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
