package report

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/who0xac/reconify/pkg/invoker"
)

// Outcome says what happened when an artifact was parsed
type Outcome int

const (
	Parsed Outcome = iota
	Absent
	Unparsable
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Absent:
		return "absent"
	default:
		return "unparsable"
	}
}

// Parser turns artifact text into a value. A parser may panic on output it
// does not understand; Extract recovers and reports Unparsable.
type Parser[T any] func(text string) T

// Extract reads path and parses it. Missing files and error markers are
// Absent. The zero value comes back for anything other than Parsed.
func Extract[T any](path string, parse Parser[T]) (value T, outcome Outcome, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return value, Absent, nil
		}
		return value, Unparsable, err
	}
	if invoker.IsMarker(data) {
		return value, Absent, nil
	}

	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, outcome, err = zero, Unparsable, fmt.Errorf("parse %s: %v", path, r)
		}
	}()
	return parse(string(data)), Parsed, nil
}

func lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ParseIPs keeps the valid addresses of a resolved-IP dump, unique and ordered
func ParseIPs(text string) []string {
	ips := []string{}
	seen := make(map[string]bool)
	for _, line := range lines(text) {
		ip := net.ParseIP(line)
		if ip == nil {
			continue
		}
		s := ip.String()
		if !seen[s] {
			seen[s] = true
			ips = append(ips, s)
		}
	}
	return ips
}

// ParseLines returns the non-empty lines of the enumeration artifact
func ParseLines(text string) []string {
	out := lines(text)
	if out == nil {
		return []string{}
	}
	return out
}

// ParseTechnologies collects the bracket-delimited tokens of WhatWeb output
func ParseTechnologies(text string) []string {
	techs := []string{}
	seen := make(map[string]bool)
	for _, line := range lines(text) {
		for _, part := range strings.Split(line, "[")[1:] {
			end := strings.Index(part, "]")
			if end < 0 {
				continue
			}
			tech := strings.TrimSpace(part[:end])
			if tech != "" && !seen[tech] {
				seen[tech] = true
				techs = append(techs, tech)
			}
		}
	}
	return techs
}

// ParseWAF returns the first line reporting a WAF, or ""
func ParseWAF(text string) string {
	for _, line := range lines(text) {
		if strings.Contains(strings.ToLower(line), "is behind") && strings.Contains(line, "WAF") {
			return line
		}
	}
	return ""
}

// ParseNikto keeps the "+ " lines of a Nikto report
func ParseNikto(text string) []string {
	var out []string
	for _, line := range lines(text) {
		if strings.Contains(line, "+ ") {
			out = append(out, line)
		}
	}
	return out
}

// ParseNuclei keeps the lines carrying a bracketed token
func ParseNuclei(text string) []string {
	var out []string
	for _, line := range lines(text) {
		open := strings.Index(line, "[")
		if open >= 0 && strings.Contains(line[open:], "]") {
			out = append(out, line)
		}
	}
	return out
}

var severities = []string{"critical", "high", "medium", "low", "info", "unknown"}

// Severity returns the first bracketed severity token in line, or ""
func Severity(line string) string {
	lower := strings.ToLower(line)
	for _, part := range strings.Split(lower, "[")[1:] {
		end := strings.Index(part, "]")
		if end < 0 {
			continue
		}
		token := strings.TrimSpace(part[:end])
		for _, s := range severities {
			if token == s {
				return s
			}
		}
	}
	return ""
}
