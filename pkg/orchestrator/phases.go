package orchestrator

import "github.com/who0xac/reconify/pkg/config"

// Phase is one barrier-separated step of a run
type Phase string

const (
	PhaseSetup         Phase = "setup"
	PhasePassive       Phase = "passive"
	PhaseActive        Phase = "active"
	PhaseVulnerability Phase = "vulnerability"
	PhaseReport        Phase = "report"
)

// Phases lists every phase in execution order
var Phases = []Phase{PhaseSetup, PhasePassive, PhaseActive, PhaseVulnerability, PhaseReport}

// PhaseName maps phases to their display name
var PhaseName = map[Phase]string{
	PhaseSetup:         "Project Setup",
	PhasePassive:       "Passive Recon",
	PhaseActive:        "Active Recon",
	PhaseVulnerability: "Vulnerability Scan",
	PhaseReport:        "Report",
}

// modePhases is the gating table: which phases each mode runs
var modePhases = map[config.Mode][]Phase{
	config.ModePassive:  {PhaseSetup, PhasePassive},
	config.ModeLight:    {PhaseSetup, PhasePassive, PhaseActive},
	config.ModeStandard: {PhaseSetup, PhasePassive, PhaseActive, PhaseVulnerability},
	config.ModeFull:     {PhaseSetup, PhasePassive, PhaseActive, PhaseVulnerability, PhaseReport},
	config.ModeCustom:   {PhaseSetup, PhasePassive, PhaseActive, PhaseVulnerability, PhaseReport},
}

// PhasesFor returns the phases mode runs, in order
func PhasesFor(mode config.Mode) []Phase {
	return append([]Phase(nil), modePhases[mode]...)
}

// Gated reports whether mode runs phase
func Gated(mode config.Mode, phase Phase) bool {
	for _, p := range modePhases[mode] {
		if p == phase {
			return true
		}
	}
	return false
}
