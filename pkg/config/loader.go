package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FlagKeys maps configuration keys to the CLI flags that can override them
var FlagKeys = map[string]string{
	"project":    "project",
	"domains":    "domains",
	"mode":       "mode",
	"tools":      "tools",
	"output_dir": "output-dir",
	"email":      "email",
	"workers":    "workers",
	"notify":     "notify",

	"report_formats": "format",
}

// LoadFile reads a YAML configuration file into a raw mapping
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Category: CategoryFile, Message: fmt.Sprintf("failed to read %s: %v", path, err)}
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Category: CategoryFile, Message: fmt.Sprintf("failed to parse %s: %v", path, err)}
	}

	return raw, nil
}

// Merge layers changed command flags over file values. Flags that were not
// set on the command line never shadow the file.
func Merge(file map[string]any, flags *pflag.FlagSet) (map[string]any, error) {
	v := viper.New()

	if len(file) > 0 {
		if err := v.MergeConfigMap(file); err != nil {
			return nil, &Error{Category: CategoryFile, Message: fmt.Sprintf("failed to merge config: %v", err)}
		}
	}

	if flags != nil {
		for key, name := range FlagKeys {
			flag := flags.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	return v.AllSettings(), nil
}

// Load reads the optional config file, applies flag overrides and validates
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	raw, err := Resolve(path, flags)
	if err != nil {
		return nil, err
	}
	return Validate(raw)
}

// Resolve returns the merged raw mapping without validating it
func Resolve(path string, flags *pflag.FlagSet) (map[string]any, error) {
	var file map[string]any
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}
	return Merge(file, flags)
}
