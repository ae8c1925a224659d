package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/who0xac/reconify/pkg/config"
	"github.com/who0xac/reconify/pkg/output/terminal"
)

func missing(raw map[string]any, key string) bool {
	switch v := raw[key].(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func needsWizard(raw map[string]any) bool {
	return missing(raw, "project") || missing(raw, "domains")
}

// runWizard asks for the values neither the flags nor the config file gave.
// Answers only fill gaps; nothing already in raw is overwritten.
func runWizard(in io.Reader, out io.Writer, raw map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(raw)+3)
	for k, v := range raw {
		merged[k] = v
	}

	scanner := bufio.NewScanner(in)
	ask := func(prompt, fallback string) (string, error) {
		if fallback != "" {
			fmt.Fprintf(out, "%s %s [%s]: ", terminal.Blue("?"), terminal.Bold(prompt), fallback)
		} else {
			fmt.Fprintf(out, "%s %s: ", terminal.Blue("?"), terminal.Bold(prompt))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", errors.New("input closed before the configuration was complete")
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			answer = fallback
		}
		return answer, nil
	}

	fmt.Fprintln(out, terminal.Bold("No complete configuration found, answer a few questions:"))

	if missing(merged, "project") {
		answer, err := ask("Project name", "")
		if err != nil {
			return nil, err
		}
		merged["project"] = answer
	}
	if missing(merged, "domains") {
		answer, err := ask("Target domains (comma separated)", "")
		if err != nil {
			return nil, err
		}
		merged["domains"] = answer
	}
	if missing(merged, "mode") {
		answer, err := ask("Scan mode (passive, light, standard, full, custom)", string(config.DefaultMode))
		if err != nil {
			return nil, err
		}
		merged["mode"] = answer
	}
	if mode, _ := merged["mode"].(string); strings.EqualFold(mode, string(config.ModeCustom)) && missing(merged, "tools") {
		answer, err := ask("Tools to run (comma separated)", "")
		if err != nil {
			return nil, err
		}
		merged["tools"] = answer
	}

	fmt.Fprintln(out)
	return merged, nil
}
