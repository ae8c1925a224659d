package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/who0xac/reconify/pkg/config"
	"github.com/who0xac/reconify/pkg/project"
)

// MaxListed bounds how many findings per tool the summaries print
const MaxListed = 10

// Write renders data into the project's Report folder: the JSON data file
// always, plus one summary per requested format. It returns the written paths.
func Write(data *Data, layout project.Layout, formats []string) ([]string, error) {
	if err := os.MkdirAll(layout.Report(), 0755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	var written []string
	write := func(path string, render func(io.Writer, *Data) error) error {
		if err := writeFile(path, data, render); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := write(layout.ReportData(), renderJSON); err != nil {
		return written, err
	}

	for _, format := range formats {
		var err error
		switch format {
		case config.FormatHTML:
			err = write(layout.ReportSummary("html"), renderHTML)
		case config.FormatTXT:
			err = write(layout.ReportSummary("txt"), renderTXT)
		case config.FormatCSV:
			err = write(layout.ReportFindings(), renderCSV)
		default:
			err = fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func writeFile(path string, data *Data, render func(io.Writer, *Data) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(file, data); err != nil {
		file.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return file.Close()
}

func renderJSON(w io.Writer, data *Data) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// toolNames returns the tools of a findings map in stable order
func toolNames(findings map[string][]Finding) []string {
	names := make([]string, 0, len(findings))
	for name := range findings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func listed(findings []Finding) []Finding {
	if len(findings) > MaxListed {
		return findings[:MaxListed]
	}
	return findings
}

func remaining(findings []Finding) int {
	if len(findings) > MaxListed {
		return len(findings) - MaxListed
	}
	return 0
}

var funcMap = template.FuncMap{
	"join":      strings.Join,
	"upper":     strings.ToUpper,
	"tools":     toolNames,
	"listed":    listed,
	"remaining": remaining,
	"orNone":    orNone,
	"domain": func(data *Data, name string) *DomainData {
		return data.Domains[name]
	},
}

func orNone(s string) string {
	if s == "" {
		return "None detected"
	}
	return s
}

var htmlTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Reconify Report - {{.Project}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 1200px; margin: 0 auto; padding: 20px; }
h1, h2, h3 { color: #2c3e50; }
.header { background-color: #34495e; color: white; padding: 20px; border-radius: 5px; }
.domain-card { border: 1px solid #ddd; border-radius: 5px; padding: 15px; margin-bottom: 25px; }
.section { margin-bottom: 20px; padding: 10px; background-color: #f9f9f9; border-radius: 5px; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
.vulnerability { color: #e74c3c; }
.more { color: #7f8c8d; font-style: italic; }
footer { margin-top: 30px; text-align: center; font-size: 0.8em; color: #7f8c8d; }
</style>
</head>
<body>
<div class="header">
<h1>Reconify Report</h1>
<p>Project: {{.Project}}</p>
<p>Generated: {{.Timestamp}}</p>
</div>
{{$totals := .Totals}}
<h2>Summary</h2>
<table>
<tr><th>Domains analyzed</th><td>{{$totals.Domains}}</td></tr>
<tr><th>Subdomains discovered</th><td>{{$totals.Subdomains}}</td></tr>
<tr><th>Live subdomains</th><td>{{$totals.LiveSubdomains}}</td></tr>
<tr><th>Findings</th><td>{{$totals.Findings}}</td></tr>
</table>
{{range $name := .DomainNames}}{{with domain $ $name}}
<div class="domain-card">
<h2>Domain: {{$name}}</h2>
<div class="section">
<h3>Basic Information</h3>
<table>
<tr><th>IP Addresses</th><td>{{join .IPs ", "}}</td></tr>
<tr><th>Technologies</th><td>{{join .Technologies ", "}}</td></tr>
<tr><th>WAF Detection</th><td>{{orNone .WAF}}</td></tr>
</table>
</div>
<div class="section">
<h3>Subdomains ({{len .Subdomains}})</h3>
<ul>
{{range .Subdomains}}<li>{{.}}</li>
{{end}}</ul>
</div>
{{if .LiveSubdomains}}
<div class="section">
<h3>Live Subdomains ({{len .LiveSubdomains}})</h3>
<table>
<tr><th>Subdomain</th><th>IP</th><th>Technologies</th><th>Findings</th></tr>
{{range $live := .LiveSubdomains}}<tr><td>{{$live.Name}}</td><td>{{$live.IP}}</td><td>{{join $live.Technologies ", "}}</td><td>{{range $tool := tools $live.Vulnerabilities}}{{upper $tool}}: {{len (index $live.Vulnerabilities $tool)}} {{end}}</td></tr>
{{end}}</table>
</div>
{{end}}
{{if .Vulnerabilities}}
<div class="section">
<h3 class="vulnerability">Potential Vulnerabilities</h3>
{{$vulns := .Vulnerabilities}}{{range $tool := tools $vulns}}{{$findings := index $vulns $tool}}
<h4>{{upper $tool}} ({{len $findings}})</h4>
<ul>
{{range listed $findings}}<li>{{.Line}}</li>
{{end}}{{with remaining $findings}}<li class="more">... and {{.}} more findings</li>
{{end}}</ul>
{{end}}
</div>
{{end}}
</div>
{{end}}{{end}}
<footer>
<p>Generated by Reconify - Automated Reconnaissance Tool</p>
</footer>
</body>
</html>
`))

func renderHTML(w io.Writer, data *Data) error {
	return htmlTemplate.Execute(w, data)
}

func renderTXT(w io.Writer, data *Data) error {
	totals := data.Totals()

	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "RECONIFY REPORT\n")
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 80))

	fmt.Fprintf(w, "Project:          %s\n", data.Project)
	fmt.Fprintf(w, "Generated:        %s\n", data.Timestamp)
	fmt.Fprintf(w, "Domains:          %d\n", totals.Domains)
	fmt.Fprintf(w, "Subdomains:       %d\n", totals.Subdomains)
	fmt.Fprintf(w, "Live subdomains:  %d\n", totals.LiveSubdomains)
	fmt.Fprintf(w, "Findings:         %d\n\n", totals.Findings)

	for _, name := range data.DomainNames() {
		dd := data.Domains[name]

		fmt.Fprintf(w, "DOMAIN %s\n", name)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))
		fmt.Fprintf(w, "IP Addresses:  %s\n", strings.Join(dd.IPs, ", "))
		fmt.Fprintf(w, "Technologies:  %s\n", strings.Join(dd.Technologies, ", "))
		fmt.Fprintf(w, "WAF:           %s\n\n", orNone(dd.WAF))

		fmt.Fprintf(w, "Subdomains (%d):\n", len(dd.Subdomains))
		for _, sub := range dd.Subdomains {
			fmt.Fprintf(w, "  - %s\n", sub)
		}
		fmt.Fprintf(w, "\n")

		if len(dd.LiveSubdomains) > 0 {
			fmt.Fprintf(w, "Live subdomains (%d):\n", len(dd.LiveSubdomains))
			for _, live := range dd.LiveSubdomains {
				fmt.Fprintf(w, "  - %-40s %s\n", live.Name, live.IP)
			}
			fmt.Fprintf(w, "\n")
		}

		for _, tool := range toolNames(dd.Vulnerabilities) {
			findings := dd.Vulnerabilities[tool]
			fmt.Fprintf(w, "%s (%d):\n", strings.ToUpper(tool), len(findings))
			for _, f := range listed(findings) {
				fmt.Fprintf(w, "  %s\n", f.Line)
			}
			if n := remaining(findings); n > 0 {
				fmt.Fprintf(w, "  ... and %d more findings\n", n)
			}
			fmt.Fprintf(w, "\n")
		}
	}
	return nil
}

// renderCSV writes every finding, domain and subdomain level, one per row
func renderCSV(w io.Writer, data *Data) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{"Domain", "Target", "Tool", "Severity", "Finding"})
	for _, name := range data.DomainNames() {
		dd := data.Domains[name]
		rows := func(findings map[string][]Finding) {
			for _, tool := range toolNames(findings) {
				for _, f := range findings[tool] {
					writer.Write([]string{name, f.Target, f.Tool, f.Severity, f.Line})
				}
			}
		}
		rows(dd.Vulnerabilities)
		for _, live := range dd.LiveSubdomains {
			rows(live.Vulnerabilities)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Generate aggregates domains and writes the report files
func Generate(agg *Aggregator, layout project.Layout, domains, formats []string) ([]string, error) {
	return Write(agg.Aggregate(domains), layout, formats)
}
