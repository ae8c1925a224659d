package checker

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/who0xac/reconify/pkg/config"
	"github.com/who0xac/reconify/pkg/orchestrator"
	"github.com/who0xac/reconify/pkg/output/terminal"
	"github.com/who0xac/reconify/pkg/recon"
)

// ToolStatus represents the installation status of a tool
type ToolStatus struct {
	Tool      recon.Tool
	Installed bool
	Version   string
	Path      string
}

// Checker looks tools up on PATH and asks them for a version string
type Checker struct {
	LookPath func(file string) (string, error)
	Version  func(ctx context.Context, command string) string
}

// New creates a Checker over the real PATH
func New() *Checker {
	return &Checker{LookPath: exec.LookPath, Version: toolVersion}
}

// PathOnly creates a Checker that never runs the tools it finds
func PathOnly() *Checker {
	return &Checker{
		LookPath: exec.LookPath,
		Version:  func(context.Context, string) string { return "" },
	}
}

// CheckTool checks if a tool is installed
func (c *Checker) CheckTool(ctx context.Context, tool recon.Tool) ToolStatus {
	status := ToolStatus{Tool: tool}

	path, err := c.LookPath(tool.Command)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path
	status.Version = c.Version(ctx, tool.Command)
	return status
}

// CheckTools checks tools concurrently, one entry per distinct command, in
// input order.
func (c *Checker) CheckTools(ctx context.Context, tools []recon.Tool) []ToolStatus {
	tools = unique(tools)
	statuses := make([]ToolStatus, len(tools))

	g := new(errgroup.Group)
	g.SetLimit(8)
	for i, tool := range tools {
		i, tool := i, tool
		g.Go(func() error {
			statuses[i] = c.CheckTool(ctx, tool)
			return nil
		})
	}
	g.Wait()
	return statuses
}

// CheckAllTools checks every catalog tool
func (c *Checker) CheckAllTools(ctx context.Context) []ToolStatus {
	return c.CheckTools(ctx, recon.Catalog())
}

// ToolsFor returns the tools a run with cfg will invoke
func ToolsFor(cfg *config.Config) []recon.Tool {
	var tools []recon.Tool
	for _, tool := range recon.Catalog() {
		switch tool.Phase {
		case recon.PhasePassive:
			tools = append(tools, tool)
		case recon.PhaseActive:
			if orchestrator.Gated(cfg.Mode, orchestrator.PhaseActive) && cfg.ToolEnabled(tool.Name) {
				tools = append(tools, tool)
			}
		case recon.PhaseVulnerability:
			if orchestrator.Gated(cfg.Mode, orchestrator.PhaseVulnerability) && cfg.ToolEnabled(tool.Name) {
				tools = append(tools, tool)
			}
		}
	}
	return tools
}

// Missing filters statuses down to the tools that are not installed
func Missing(statuses []ToolStatus) []ToolStatus {
	var missing []ToolStatus
	for _, s := range statuses {
		if !s.Installed {
			missing = append(missing, s)
		}
	}
	return missing
}

func unique(tools []recon.Tool) []recon.Tool {
	seen := make(map[string]bool)
	var out []recon.Tool
	for _, t := range tools {
		if !seen[t.Command] {
			seen[t.Command] = true
			out = append(out, t)
		}
	}
	return out
}

// toolVersion attempts to get the version of a tool
func toolVersion(ctx context.Context, command string) string {
	for _, flag := range []string{"--version", "-version", "-v", "version"} {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		output, err := exec.CommandContext(probeCtx, command, flag).CombinedOutput()
		cancel()
		if err == nil && len(output) > 0 {
			return firstLine(string(output))
		}
	}
	return "installed"
}

func firstLine(output string) string {
	version := strings.TrimSpace(strings.SplitN(strings.TrimSpace(output), "\n", 2)[0])
	if len(version) > 80 {
		version = version[:80] + "..."
	}
	return version
}

// PrintToolStatus prints the status of every checked tool and returns how
// many are installed.
func PrintToolStatus(w io.Writer, statuses []ToolStatus) int {
	fmt.Fprintf(w, "%s %s\n\n", terminal.Blue("→"), terminal.Bold("Checking installed tools..."))

	installed := 0
	var phase recon.Phase
	for _, status := range statuses {
		if status.Tool.Phase != phase {
			phase = status.Tool.Phase
			fmt.Fprintln(w, terminal.Bold(strings.ToUpper(string(phase))+" TOOLS:"))
		}
		if status.Installed {
			installed++
			fmt.Fprintf(w, "  %s %-15s %s\n", terminal.Green("●"), terminal.Blue(status.Tool.Name), terminal.White(status.Version))
			continue
		}
		fmt.Fprintf(w, "  %s %-15s %s\n", terminal.Red("●"), terminal.Blue(status.Tool.Name), terminal.Red("NOT INSTALLED"))
		fmt.Fprintf(w, "     %s %s\n", terminal.Yellow("→"), terminal.White("Install: "+status.Tool.InstallURL))
	}

	total := len(statuses)
	paint := terminal.Green
	if installed < total {
		paint = terminal.Yellow
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, terminal.Blue(strings.Repeat("━", 60)))
	fmt.Fprintf(w, "%s %s/%d %s\n", terminal.Bold("SUMMARY:"), paint(fmt.Sprintf("%d", installed)), total, paint("tools installed"))
	fmt.Fprintln(w, terminal.Blue(strings.Repeat("━", 60)))
	fmt.Fprintln(w)

	if installed < total {
		fmt.Fprintf(w, "%s %s\n", terminal.Yellow("⚠"), terminal.Yellow("WARNING: Some tools are missing!"))
		fmt.Fprintf(w, "   %s\n\n", terminal.White("Their artifacts will contain an error marker instead of output."))
	} else {
		fmt.Fprintf(w, "%s %s\n\n", terminal.Green("●"), terminal.Green("All tools are installed!"))
	}

	fmt.Fprintf(w, "%s %s: %s\n", terminal.Blue("→"), terminal.Bold("Operating System"),
		terminal.White(fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)))
	return installed
}
