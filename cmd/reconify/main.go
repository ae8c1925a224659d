package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/who0xac/reconify/pkg/checker"
	"github.com/who0xac/reconify/pkg/config"
	"github.com/who0xac/reconify/pkg/output/terminal"
)

const version = "1.0.0"

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

var errInterrupted = errors.New("interrupted")

var (
	// Global flags
	configPath  string
	projectName string
	domains     []string
	outputDir   string
	debug       bool
	noColor     bool

	// Run flags
	mode    string
	tools   []string
	email   string
	workers int
	dryRun  bool
	notify  bool

	// Report flags
	formats []string
)

var rootCmd = &cobra.Command{
	Use:           "reconify",
	Short:         "Automated reconnaissance and vulnerability assessment",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			terminal.DisableColor()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" && config.DefaultConfigFile() == "" && !anyChanged(cmd, "project", "domains") && !interactive() {
			terminal.PrintBanner(cmd.OutOrStdout(), version)
			return cmd.Help()
		}
		return runScan(cmd)
	},
}

var checkCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"c"},
	Short:   "Check if the external tools are installed",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		terminal.PrintBanner(out, version)
		checker.PrintToolStatus(out, checker.New().CheckAllTools(cmd.Context()))
	},
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			path = args[0]
		}

		created, err := config.WriteSample(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !created {
			terminal.PrintWarning(out, fmt.Sprintf("%s already exists, left untouched", path))
			return nil
		}
		terminal.PrintSuccess(out, fmt.Sprintf("Sample configuration written to %s", path))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the report of an existing project from disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		terminal.PrintBanner(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd, initCmd, reportCmd, versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file (default ~/.config/reconify/config.yaml when present)")
	pf.StringVarP(&projectName, "project", "p", "", "Project name")
	pf.StringSliceVarP(&domains, "domains", "d", nil, "Target domains, comma separated")
	pf.StringVarP(&outputDir, "output-dir", "o", "", "Directory the project tree is created in (default .)")
	pf.BoolVar(&debug, "debug", false, "Verbose logging")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")

	f := rootCmd.Flags()
	f.StringVarP(&mode, "mode", "m", "", "Scan mode [passive|light|standard|full|custom] (default standard)")
	f.StringSliceVar(&tools, "tools", nil, "Tools to run in custom mode, comma separated")
	f.StringVar(&email, "email", "", "Contact email recorded with the project")
	f.IntVar(&workers, "workers", 0, "Domains processed concurrently (default one per domain, up to 16)")
	f.BoolVar(&dryRun, "dry-run", false, "Build the project tree without running any tool or probe")
	f.BoolVar(&notify, "notify", false, "Desktop notification when the run ends")

	reportCmd.Flags().StringSliceVar(&formats, "format", nil, "Summary formats [html|txt|csv] (default html)")

	rootCmd.SetUsageTemplate(usageTemplate)
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

const usageTemplate = `
USAGE:
  reconify -p <project> -d <domain>[,<domain>...] [flags]
  reconify -c <config.yaml> [flags]
  reconify [command]

COMMANDS:
  check, c             Check if the external tools are installed
  init [path]          Write a sample configuration file
  report               Rebuild the report of an existing project
  version              Show version information

TARGET:
  -c, --config STRING            YAML configuration file
  -p, --project STRING           Project name
  -d, --domains LIST             Target domains, comma separated

SCAN:
  -m, --mode STRING              passive | light | standard | full | custom (default: standard)
  --tools LIST                   Tools to run in custom mode
  --workers INT                  Domains processed concurrently
  --dry-run                      Build the project tree without running anything

OUTPUT:
  -o, --output-dir STRING        Directory the project tree is created in (default: .)
  --email STRING                 Contact email recorded with the project
  --notify                       Desktop notification when the run ends
  --debug                        Verbose logging
  --no-color                     Disable colored output

EXAMPLES:
  # Passive recon only
  reconify -p acme -d example.com -m passive

  # Everything, including the report
  reconify -p acme -d example.com,example.org -m full

  # Only nikto and nuclei
  reconify -p acme -d example.com -m custom --tools nikto,nuclei

  # See the layout without touching the targets
  reconify -c acme.yaml --dry-run
`

// exitStatus maps a command error to the process exit code
func exitStatus(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInterrupted):
		return exitInterrupted
	default:
		return exitFailure
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errInterrupted) {
		terminal.PrintError(os.Stderr, err.Error())
	}
	os.Exit(exitStatus(err))
}
