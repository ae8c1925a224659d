package project

import (
	"fmt"
	"path/filepath"
)

// Folder names of the project tree
const (
	DirInfoGathering    = "Info-Gathering"
	DirPassive          = "Passive"
	DirActive           = "Active"
	DirNmap             = "Nmap"
	DirTLSSled          = "TLSSled"
	DirVulnScan         = "Vulnerability-Scan"
	DirIPs              = "IPs"
	DirSubdomains       = "Subdomains"
	DirExploitation     = "Exploitation"
	DirPostExploitation = "Post-Exploitation"
	DirScreenshots      = "Screenshots"
	DirLogs             = "Logs"
	DirReport           = "Report"

	FileNotes       = "Notes.txt"
	FileTimeline    = "Timeline.md"
	FileLog         = "log.txt"
	FileReadme      = "README.md"
	FileResolvedIPs = "resolved-ip.txt"
)

// Layout derives every path of a project from (project, domain, IP,
// subdomain, tool). Nothing else in the module joins project paths by hand.
type Layout struct {
	Name string
	Root string
}

// NewLayout roots the project named name under outputDir
func NewLayout(outputDir, name string) Layout {
	return Layout{Name: name, Root: filepath.Join(outputDir, name)}
}

// Common folders shared by every domain of the project
func (l Layout) CommonDirs() []string {
	return []string{
		filepath.Join(l.Root, "Credentials", "Usernames"),
		filepath.Join(l.Root, "Credentials", "Passwords"),
		filepath.Join(l.Root, "Credentials", "Databases"),
		filepath.Join(l.Root, "Credentials", "Personal-Informations"),
		filepath.Join(l.Root, "Credentials", "Emails"),
		filepath.Join(l.Root, "Credentials", "Wordlists"),
		filepath.Join(l.Root, "Global", "Tools", "Third-Party"),
		filepath.Join(l.Root, "Global", "Tools", "Custom-Scripts", "Recon"),
		filepath.Join(l.Root, "Global", "Tools", "Custom-Scripts", "Exploitation"),
		filepath.Join(l.Root, "Global", "Scripts"),
		filepath.Join(l.Root, "Custom-Payloads"),
	}
}

func (l Layout) Readme() string {
	return filepath.Join(l.Root, FileReadme)
}

func (l Layout) Domain(domain string) string {
	return filepath.Join(l.Root, domain)
}

// DomainSkeleton lists the folders every domain gets regardless of mode
func (l Layout) DomainSkeleton(domain string) []string {
	d := l.Domain(domain)
	return []string{
		l.Passive(domain),
		l.IPs(domain),
		filepath.Join(d, DirExploitation, "Exploits"),
		filepath.Join(d, DirExploitation, "Payloads"),
		filepath.Join(d, DirPostExploitation, "Persistence"),
		filepath.Join(d, DirPostExploitation, "Privilege-Escalation"),
		filepath.Join(d, DirPostExploitation, "Lateral-Movement"),
		filepath.Join(d, DirScreenshots),
		l.Logs(domain),
	}
}

func (l Layout) Passive(domain string) string {
	return filepath.Join(l.Domain(domain), DirInfoGathering, DirPassive)
}

func (l Layout) Active(domain string) string {
	return filepath.Join(l.Domain(domain), DirInfoGathering, DirActive)
}

func (l Layout) Nmap(domain string) string {
	return filepath.Join(l.Active(domain), DirNmap)
}

func (l Layout) TLSSled(domain string) string {
	return filepath.Join(l.Active(domain), DirTLSSled)
}

func (l Layout) VulnScan(domain string) string {
	return filepath.Join(l.Domain(domain), DirVulnScan)
}

// VulnTool is the per-tool folder under the domain's Vulnerability-Scan
func (l Layout) VulnTool(domain, tool string) string {
	return filepath.Join(l.VulnScan(domain), tool)
}

func (l Layout) ResolvedIPs(domain string) string {
	return filepath.Join(l.Passive(domain), FileResolvedIPs)
}

func (l Layout) Notes(domain string) string {
	return filepath.Join(l.Domain(domain), FileNotes)
}

func (l Layout) Timeline(domain string) string {
	return filepath.Join(l.Domain(domain), FileTimeline)
}

func (l Layout) Logs(domain string) string {
	return filepath.Join(l.Domain(domain), DirLogs)
}

func (l Layout) LogFile(domain string) string {
	return filepath.Join(l.Logs(domain), FileLog)
}

// IP group paths

func (l Layout) IPs(domain string) string {
	return filepath.Join(l.Domain(domain), DirIPs)
}

func (l Layout) IP(domain, ip string) string {
	return filepath.Join(l.IPs(domain), ip)
}

func (l Layout) IPPassive(domain, ip string) string {
	return filepath.Join(l.IP(domain, ip), DirInfoGathering, DirPassive)
}

// IPClaim records, for the whole project, which domain ran the IP-level
// lookups of ip. It is a link to that domain's IP Passive folder.
func (l Layout) IPClaim(ip string) string {
	return filepath.Join(l.Root, "Global", DirIPs, ip)
}

func (l Layout) IPNmap(domain, ip string) string {
	return filepath.Join(l.IP(domain, ip), DirInfoGathering, DirActive, DirNmap)
}

func (l Layout) Subdomains(domain, ip string) string {
	return filepath.Join(l.IP(domain, ip), DirSubdomains)
}

func (l Layout) Subdomain(domain, ip, sub string) string {
	return filepath.Join(l.Subdomains(domain, ip), sub)
}

func (l Layout) SubActive(domain, ip, sub string) string {
	return filepath.Join(l.Subdomain(domain, ip, sub), DirActive)
}

func (l Layout) SubVulnScan(domain, ip, sub string) string {
	return filepath.Join(l.Subdomain(domain, ip, sub), DirVulnScan)
}

func (l Layout) SubVulnTool(domain, ip, sub, tool string) string {
	return filepath.Join(l.SubVulnScan(domain, ip, sub), tool)
}

// Report paths

func (l Layout) Report() string {
	return filepath.Join(l.Root, DirReport)
}

// ReportData is the structured aggregate (Report/<project>-data.json)
func (l Layout) ReportData() string {
	return filepath.Join(l.Report(), fmt.Sprintf("%s-data.json", l.Name))
}

// ReportSummary is the rendered document for ext (Report/<project>-summary.<ext>)
func (l Layout) ReportSummary(ext string) string {
	return filepath.Join(l.Report(), fmt.Sprintf("%s-summary.%s", l.Name, ext))
}

// ReportFindings is the flat findings table (Report/<project>-findings.csv)
func (l Layout) ReportFindings() string {
	return filepath.Join(l.Report(), fmt.Sprintf("%s-findings.csv", l.Name))
}

// Artifact names a tool output file: <dir>/<Tool>-<target>.<ext>. Multi-format
// tools pass an empty ext and get the shared prefix.
func Artifact(dir, tool, target, ext string) string {
	name := fmt.Sprintf("%s-%s", tool, target)
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}
