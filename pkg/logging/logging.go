package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Field keys shared by every component
const (
	FieldDomain = "domain"
	FieldTool   = "tool"
	FieldPhase  = "phase"
)

// Config describes how a run logs. It is built once from the CLI flags and
// handed to every component that needs a logger.
type Config struct {
	Debug   bool
	NoColor bool
	Output  io.Writer
}

// New builds a logger from the configuration
func New(cfg Config) *logrus.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&Formatter{NoColor: cfg.NoColor})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// Discard returns a logger that drops everything (tests, library callers)
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// Formatter renders entries as "[INF] [domain] message key=value"
type Formatter struct {
	NoColor    bool
	Timestamps bool
}

// Format implements logrus.Formatter
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var buf bytes.Buffer

	if f.Timestamps {
		buf.WriteString(entry.Time.Format(time.RFC3339))
		buf.WriteByte(' ')
	}

	buf.WriteString(f.level(entry.Level))

	if domain, ok := entry.Data[FieldDomain]; ok {
		buf.WriteString(" ")
		buf.WriteString(f.paint(color.FgCyan, fmt.Sprintf("[%v]", domain)))
	}

	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == FieldDomain {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(f.paint(color.FgHiBlack, fmt.Sprintf(" %s=%v", k, entry.Data[k])))
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (f *Formatter) level(level logrus.Level) string {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return f.paint(color.FgHiBlack, "[DBG]")
	case logrus.InfoLevel:
		return f.paint(color.FgBlue, "[INF]")
	case logrus.WarnLevel:
		return f.paint(color.FgYellow, "[WRN]")
	default:
		return f.paint(color.FgRed, "[ERR]")
	}
}

func (f *Formatter) paint(attr color.Attribute, s string) string {
	if f.NoColor {
		return s
	}
	return color.New(attr).Sprint(s)
}

// FileHook mirrors entries that carry a domain field into that domain's log
// file. Domains are registered once their skeleton exists.
type FileHook struct {
	mu        sync.Mutex
	paths     map[string]string
	formatter *Formatter
}

// NewFileHook creates an empty hook
func NewFileHook() *FileHook {
	return &FileHook{
		paths:     make(map[string]string),
		formatter: &Formatter{NoColor: true, Timestamps: true},
	}
}

// Register routes entries for domain into path
func (h *FileHook) Register(domain, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths[domain] = path
}

// Levels implements logrus.Hook
func (h *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook
func (h *FileHook) Fire(entry *logrus.Entry) error {
	domain, ok := entry.Data[FieldDomain].(string)
	if !ok {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	path, ok := h.paths[domain]
	if !ok {
		return nil
	}

	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write(line)
	return err
}
