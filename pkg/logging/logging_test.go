package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestFormatterPlain(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{NoColor: true, Output: &buf})

	logger.WithField(FieldDomain, "example.com").WithField(FieldTool, "whois").Warn("tool failed")

	got := buf.String()
	want := "[WRN] [example.com] tool failed tool=whois\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{NoColor: true, Output: &buf})
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug entry printed without debug config: %q", buf.String())
	}

	logger = New(Config{Debug: true, NoColor: true, Output: &buf})
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "[DBG] shown") {
		t.Fatalf("debug entry missing: %q", buf.String())
	}
}

func TestFileHookRoutesByDomain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")

	hook := NewFileHook()
	hook.Register("example.com", path)

	logger := New(Config{NoColor: true, Output: &bytes.Buffer{}})
	logger.AddHook(hook)

	logger.WithField(FieldDomain, "example.com").Info("passive phase started")
	logger.WithField(FieldDomain, "other.org").Info("not routed")
	logger.Info("no domain")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "passive phase started") {
		t.Fatalf("expected routed entry, got %q", content)
	}
	if strings.Contains(content, "not routed") || strings.Contains(content, "no domain") {
		t.Fatalf("unexpected entries in domain log: %q", content)
	}
	if strings.Count(content, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", content)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.IsLevelEnabled(logrus.ErrorLevel) {
		t.Fatal("discard logger should not emit errors")
	}
}
