package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const sampleConfig = `# Reconify project configuration
project: acme

domains:
  - example.com

# passive | light | standard | full | custom
mode: standard

# Only used (and required) in custom mode
# tools:
#   - whatweb
#   - nikto

# Parent directory of the project tree (default: current directory)
# output_dir: ./engagements

# email: operator@example.com

# Concurrent domain workers (default: one per domain, at most 16)
# workers: 4

# Liveness filtering
probe_workers: 10
probe_timeout: 5s
probe_rate: 20

# Upper bound for each external tool, 0 disables it
tool_timeout: 30m

# Rendered next to Report/<project>-data.json: html, txt, csv
report_formats:
  - html

notify: false
`

// GetConfigDir returns the user configuration directory (~/.config/reconify)
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %v", err)
	}
	return filepath.Join(home, ".config", "reconify"), nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// DefaultConfigFile returns the default config path when that file exists
func DefaultConfigFile() string {
	path, err := GetConfigPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// WriteSample writes a commented sample configuration to path. An existing
// file is never overwritten; created reports whether a file was written.
func WriteSample(path string) (created bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %v", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(sampleConfig); err != nil {
		return false, fmt.Errorf("failed to write %s: %v", path, err)
	}
	return true, nil
}
