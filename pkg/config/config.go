package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	projectpkg "github.com/who0xac/reconify/pkg/project"
)

// Mode selects which phases run
type Mode string

const (
	ModePassive  Mode = "passive"
	ModeLight    Mode = "light"
	ModeStandard Mode = "standard"
	ModeFull     Mode = "full"
	ModeCustom   Mode = "custom"
)

// Modes lists every accepted mode
var Modes = []Mode{ModePassive, ModeLight, ModeStandard, ModeFull, ModeCustom}

// Report formats rendered next to the JSON data file
const (
	FormatHTML = "html"
	FormatTXT  = "txt"
	FormatCSV  = "csv"
)

// Defaults
const (
	DefaultMode         = ModeStandard
	DefaultOutputDir    = "."
	DefaultMaxWorkers   = 16
	DefaultProbeWorkers = 10
	DefaultProbeTimeout = 5 * time.Second
	DefaultProbeRate    = 20.0
	DefaultToolTimeout  = 30 * time.Minute
)

var (
	domainRegex = regexp.MustCompile(`^([A-Za-z0-9-]+\.)+[A-Za-z]{2,}$`)
	emailRegex  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Config is the validated run configuration
type Config struct {
	Project       string        `json:"project"`
	Domains       []string      `json:"domains"`
	Mode          Mode          `json:"mode"`
	OutputDir     string        `json:"output_dir"`
	Tools         []string      `json:"tools,omitempty"`
	Email         string        `json:"email,omitempty"`
	Workers       int           `json:"workers"`
	ProbeWorkers  int           `json:"probe_workers"`
	ProbeTimeout  time.Duration `json:"probe_timeout"`
	ProbeRate     float64       `json:"probe_rate"`
	ToolTimeout   time.Duration `json:"tool_timeout"`
	ReportFormats []string      `json:"report_formats"`
	Notify        bool          `json:"notify"`
}

// ProjectRoot returns the directory holding the whole project tree
func (c *Config) ProjectRoot() string {
	return filepath.Join(c.OutputDir, c.Project)
}

// ToolEnabled reports whether an optional (active or vulnerability) tool may
// run. Only custom mode restricts tools.
func (c *Config) ToolEnabled(name string) bool {
	if c.Mode != ModeCustom {
		return true
	}
	name = strings.ToLower(name)
	for _, tool := range c.Tools {
		if tool == name {
			return true
		}
	}
	return false
}

// Category names the class of constraint a configuration violates
type Category string

const (
	CategoryFile      Category = "config file"
	CategoryProject   Category = "project"
	CategoryDomains   Category = "domains"
	CategoryMode      Category = "mode"
	CategoryTools     Category = "tools"
	CategoryOutputDir Category = "output_dir"
	CategoryEmail     Category = "email"
	CategorySettings  Category = "settings"
)

// Error is a configuration failure. It is fatal: no domain work starts.
type Error struct {
	Category Category
	Message  string
	Values   []string
}

func (e *Error) Error() string {
	if len(e.Values) > 0 {
		return fmt.Sprintf("invalid %s: %s: %s", e.Category, e.Message, strings.Join(e.Values, ", "))
	}
	return fmt.Sprintf("invalid %s: %s", e.Category, e.Message)
}

func newError(category Category, message string, values ...string) *Error {
	return &Error{Category: category, Message: message, Values: values}
}

// Validate turns a raw key/value mapping into a Config. It stops at the first
// violated constraint category.
func Validate(raw map[string]any) (*Config, error) {
	cfg := &Config{}

	// project
	project, ok := stringValue(raw["project"])
	if !ok || strings.TrimSpace(project) == "" {
		return nil, newError(CategoryProject, "a non-empty project name is required")
	}
	cfg.Project = strings.TrimSpace(project)
	if err := projectpkg.ValidName(cfg.Project); err != nil {
		return nil, newError(CategoryProject, "the project name must be a single folder name", cfg.Project)
	}

	// domains
	domains, ok := stringList(raw["domains"])
	if !ok || len(domains) == 0 {
		return nil, newError(CategoryDomains, "at least one target domain is required")
	}
	var invalid []string
	seen := make(map[string]bool)
	for _, domain := range domains {
		domain = strings.TrimSpace(domain)
		if !domainRegex.MatchString(domain) {
			invalid = append(invalid, domain)
			continue
		}
		domain = strings.ToLower(domain)
		if seen[domain] {
			continue
		}
		seen[domain] = true
		cfg.Domains = append(cfg.Domains, domain)
	}
	if len(invalid) > 0 {
		return nil, newError(CategoryDomains, "entries are not valid domain names", invalid...)
	}

	// mode
	cfg.Mode = DefaultMode
	if v, present := raw["mode"]; present && v != nil {
		mode, ok := stringValue(v)
		if !ok {
			return nil, newError(CategoryMode, "mode must be a string")
		}
		mode = strings.ToLower(strings.TrimSpace(mode))
		if mode != "" {
			if !validMode(Mode(mode)) {
				return nil, newError(CategoryMode, "unknown mode", mode)
			}
			cfg.Mode = Mode(mode)
		}
	}

	// tools
	if v, present := raw["tools"]; present && v != nil {
		tools, ok := stringList(v)
		if !ok {
			return nil, newError(CategoryTools, "tools must be a list of tool names")
		}
		for _, tool := range tools {
			tool = strings.ToLower(strings.TrimSpace(tool))
			if tool != "" {
				cfg.Tools = append(cfg.Tools, tool)
			}
		}
	}
	if cfg.Mode == ModeCustom && len(cfg.Tools) == 0 {
		return nil, newError(CategoryTools, "custom mode requires a non-empty tools list")
	}

	// output_dir
	cfg.OutputDir = DefaultOutputDir
	if v, present := raw["output_dir"]; present && v != nil {
		dir, ok := v.(string)
		if !ok {
			return nil, newError(CategoryOutputDir, "output_dir must be a string")
		}
		if strings.TrimSpace(dir) != "" {
			cfg.OutputDir = strings.TrimSpace(dir)
		}
	}

	// email
	if v, present := raw["email"]; present && v != nil {
		email, ok := v.(string)
		email = strings.TrimSpace(email)
		if !ok || (email != "" && !emailRegex.MatchString(email)) {
			return nil, newError(CategoryEmail, "not a valid address", fmt.Sprint(v))
		}
		cfg.Email = email
	}

	if err := applySettings(cfg, raw); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applySettings validates the optional tuning knobs
func applySettings(cfg *Config, raw map[string]any) error {
	cfg.Workers = len(cfg.Domains)
	if cfg.Workers > DefaultMaxWorkers {
		cfg.Workers = DefaultMaxWorkers
	}
	if v, present := raw["workers"]; present && v != nil {
		n, ok := intValue(v)
		if !ok || n < 1 {
			return newError(CategorySettings, "workers must be a positive integer", fmt.Sprint(v))
		}
		cfg.Workers = n
	}

	cfg.ProbeWorkers = DefaultProbeWorkers
	if v, present := raw["probe_workers"]; present && v != nil {
		n, ok := intValue(v)
		if !ok || n < 1 {
			return newError(CategorySettings, "probe_workers must be a positive integer", fmt.Sprint(v))
		}
		cfg.ProbeWorkers = n
	}

	cfg.ProbeTimeout = DefaultProbeTimeout
	if v, present := raw["probe_timeout"]; present && v != nil {
		d, ok := durationValue(v)
		if !ok || d <= 0 {
			return newError(CategorySettings, "probe_timeout must be a positive duration", fmt.Sprint(v))
		}
		cfg.ProbeTimeout = d
	}

	cfg.ProbeRate = DefaultProbeRate
	if v, present := raw["probe_rate"]; present && v != nil {
		f, ok := floatValue(v)
		if !ok || f < 0 {
			return newError(CategorySettings, "probe_rate must be a non-negative number", fmt.Sprint(v))
		}
		cfg.ProbeRate = f
	}

	cfg.ToolTimeout = DefaultToolTimeout
	if v, present := raw["tool_timeout"]; present && v != nil {
		d, ok := durationValue(v)
		if !ok || d < 0 {
			return newError(CategorySettings, "tool_timeout must be a duration (0 disables it)", fmt.Sprint(v))
		}
		cfg.ToolTimeout = d
	}

	cfg.ReportFormats = []string{FormatHTML}
	if v, present := raw["report_formats"]; present && v != nil {
		formats, ok := stringList(v)
		if !ok {
			return newError(CategorySettings, "report_formats must be a list")
		}
		var bad []string
		var out []string
		for _, format := range formats {
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case FormatHTML, FormatTXT, FormatCSV:
				out = append(out, format)
			case "":
			default:
				bad = append(bad, format)
			}
		}
		if len(bad) > 0 {
			return newError(CategorySettings, "unknown report formats", bad...)
		}
		if len(out) > 0 {
			cfg.ReportFormats = out
		}
	}

	if v, present := raw["notify"]; present && v != nil {
		b, ok := boolValue(v)
		if !ok {
			return newError(CategorySettings, "notify must be a boolean", fmt.Sprint(v))
		}
		cfg.Notify = b
	}

	return nil
}

func validMode(mode Mode) bool {
	for _, m := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// stringList accepts a YAML sequence, a []string from flags, or a single
// comma/space separated string.
func stringList(v any) ([]string, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []string:
		var out []string
		for _, s := range val {
			out = append(out, splitList(s)...)
		}
		return out, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return splitList(val), true
	default:
		return nil, false
	}
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func intValue(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		if val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		return n, err == nil
	default:
		return 0, false
	}
}

func floatValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// durationValue accepts Go duration strings ("90s", "30m") or bare seconds
func durationValue(v any) (time.Duration, bool) {
	switch val := v.(type) {
	case time.Duration:
		return val, true
	case int:
		return time.Duration(val) * time.Second, true
	case int64:
		return time.Duration(val) * time.Second, true
	case float64:
		return time.Duration(val * float64(time.Second)), true
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * time.Second, true
		}
		d, err := time.ParseDuration(s)
		return d, err == nil
	default:
		return 0, false
	}
}

func boolValue(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return b, err == nil
	default:
		return false, false
	}
}
