package terminal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/who0xac/reconify/pkg/config"
	"github.com/who0xac/reconify/pkg/orchestrator"
	"github.com/who0xac/reconify/pkg/report"
)

// Colors
var (
	Blue   = color.New(color.FgCyan).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	White  = color.New(color.FgWhite).SprintFunc()
	Gray   = color.New(color.FgHiBlack).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// DisableColor turns off every color helper
func DisableColor() {
	color.NoColor = true
}

const banner = `
 ____                        _  __
|  _ \ ___  ___ ___  _ __   (_)/ _|_   _
| |_) / _ \/ __/ _ \| '_ \  | | |_| | | |
|  _ <  __/ (_| (_) | | | | | |  _| |_| |
|_| \_\___|\___\___/|_| |_| |_|_|  \__, |
                                   |___/`

// PrintBanner prints the colored banner
func PrintBanner(w io.Writer, version string) {
	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	green := color.New(color.FgGreen)

	cyan.Fprintln(w, banner)
	magenta.Fprintln(w, "\nAutomated Reconnaissance & Vulnerability Assessment")
	green.Fprintf(w, "Version: %s\n\n", version)
}

// PrintSectionHeader prints a section header with arrows
func PrintSectionHeader(w io.Writer, title string) {
	arrows := strings.Repeat("→", 75)
	fmt.Fprintln(w)
	fmt.Fprintln(w, Blue(arrows))
	fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", 25), Bold(title))
	fmt.Fprintln(w, Blue(arrows))
	fmt.Fprintln(w)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", Green("●"), message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", Yellow("⚠"), message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", Red("●"), message)
}

// PrintInfo prints an informational message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", Blue("→"), message)
}

// PrintConfig prints the resolved run configuration
func PrintConfig(w io.Writer, cfg *config.Config, dryRun bool) {
	fmt.Fprintln(w, Bold("Run Configuration:"))
	fmt.Fprintf(w, "   ├── Project: %s\n", Green(cfg.Project))
	fmt.Fprintf(w, "   ├── Domains: %s\n", Green(strings.Join(cfg.Domains, ", ")))
	fmt.Fprintf(w, "   ├── Mode: %s\n", Yellow(string(cfg.Mode)))
	if cfg.Mode == config.ModeCustom {
		fmt.Fprintf(w, "   ├── Tools: %s\n", Yellow(strings.Join(cfg.Tools, ", ")))
	}
	fmt.Fprintf(w, "   ├── Output: %s\n", White(cfg.ProjectRoot()))
	fmt.Fprintf(w, "   ├── Workers: %d\n", cfg.Workers)
	fmt.Fprintf(w, "   └── Dry run: %v\n", dryRun)
	fmt.Fprintln(w)
}

// PrintRunSummary prints the outcome of a run with tree structure
func PrintRunSummary(w io.Writer, summary *orchestrator.Summary, totals *report.Totals) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, Blue(strings.Repeat("━", 60)))
	fmt.Fprintf(w, "%s %s\n", Blue("→"), Bold("RUN SUMMARY"))
	fmt.Fprintln(w, Blue(strings.Repeat("━", 60)))

	phases := make([]string, 0, len(summary.Phases))
	for _, p := range summary.Phases {
		phases = append(phases, orchestrator.PhaseName[p])
	}
	elapsed := summary.Finished.Sub(summary.Started).Round(time.Second)

	fmt.Fprintf(w, "   ├── Run: %s\n", Gray(summary.RunID))
	fmt.Fprintf(w, "   ├── Phases: %s\n", strings.Join(phases, " → "))
	fmt.Fprintf(w, "   ├── Duration: %s\n", elapsed)
	if totals != nil {
		fmt.Fprintf(w, "   ├── Subdomains: %s (%s live)\n", Green(fmt.Sprint(totals.Subdomains)), Green(fmt.Sprint(totals.LiveSubdomains)))
		fmt.Fprintf(w, "   ├── Findings: %s\n", Yellow(fmt.Sprint(totals.Findings)))
	}

	if len(summary.Errors) == 0 {
		fmt.Fprintf(w, "   └── Errors: %s\n", Green("none"))
	} else {
		fmt.Fprintf(w, "   └── Errors: %s\n", Red(fmt.Sprint(len(summary.Errors))))
		for i, e := range summary.Errors {
			branch := "├──"
			if i == len(summary.Errors)-1 {
				branch = "└──"
			}
			fmt.Fprintf(w, "       %s %s\n", branch, Red(e.Error()))
		}
	}

	if summary.Interrupted {
		fmt.Fprintln(w)
		PrintWarning(w, "Run interrupted: later phases were not started")
	}
	fmt.Fprintln(w)
}
