package invoker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestDryRunWritesMarkerWithoutSpawning(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Passive", "Whois-example.com.txt")
	r := New(Options{DryRun: true})

	out := r.Invoke(context.Background(), Command{Tool: "whois", Argv: []string{"whois", "example.com"}, Dest: dest})

	if !out.DryRun || out.Path != dest {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if r.Spawned() != 0 {
		t.Fatalf("spawned %d processes in dry-run", r.Spawned())
	}
	content := readFile(t, dest)
	if !IsMarker([]byte(content)) || !strings.Contains(content, "whois example.com not executed") {
		t.Fatalf("unexpected marker %q", content)
	}
}

func TestStdoutRedirect(t *testing.T) {
	requireShell(t)
	dest := filepath.Join(t.TempDir(), "Dig-example.com.txt")
	r := New(Options{})

	out := r.Invoke(context.Background(), Command{Tool: "dig", Argv: []string{"sh", "-c", "echo first; echo second"}, Dest: dest})
	if !out.OK() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if got := readFile(t, dest); got != "first\nsecond\n" {
		t.Fatalf("artifact = %q", got)
	}
	if r.Spawned() != 1 {
		t.Fatalf("spawned = %d, want 1", r.Spawned())
	}

	// re-running replaces the artifact
	r.Invoke(context.Background(), Command{Tool: "dig", Argv: []string{"sh", "-c", "echo third"}, Dest: dest})
	if got := readFile(t, dest); got != "third\n" {
		t.Fatalf("artifact not replaced: %q", got)
	}
}

func TestCaptureReturnsOutput(t *testing.T) {
	requireShell(t)
	dest := filepath.Join(t.TempDir(), "Subfinder-example.com.txt")
	r := New(Options{})

	out := r.Invoke(context.Background(), Command{
		Tool:   "subfinder",
		Argv:   []string{"sh", "-c", "cat"},
		Dest:   dest,
		Output: Capture,
		Stdin:  "a.example.com\nb.example.com\n",
	})
	if !out.OK() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if out.Output != "a.example.com\nb.example.com\n" {
		t.Fatalf("output = %q", out.Output)
	}
	if readFile(t, dest) != out.Output {
		t.Fatal("artifact differs from captured output")
	}
}

func TestMissingBinaryWritesMarker(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Nikto-example.com.txt")
	r := New(Options{})

	out := r.Invoke(context.Background(), Command{Tool: "nikto", Argv: []string{"reconify-no-such-tool", "-h", "example.com"}, Dest: dest})
	if out.Err == nil {
		t.Fatal("expected an error")
	}
	if r.Spawned() != 0 {
		t.Fatal("nothing should have been spawned")
	}
	content := readFile(t, dest)
	if !strings.HasPrefix(content, MarkerPrefix+" nikto:") || !strings.Contains(content, "executable not found") {
		t.Fatalf("unexpected marker %q", content)
	}
}

func TestNonZeroExitKeepsPartialOutputBelowMarker(t *testing.T) {
	requireShell(t)
	dest := filepath.Join(t.TempDir(), "Host-example.com.txt")
	r := New(Options{})

	out := r.Invoke(context.Background(), Command{Tool: "host", Argv: []string{"sh", "-c", "echo partial; echo boom >&2; exit 3"}, Dest: dest})
	if out.Err == nil || out.ExitCode != 3 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !strings.Contains(out.Err.Error(), "boom") {
		t.Fatalf("error should carry stderr: %v", out.Err)
	}
	content := readFile(t, dest)
	if !IsMarker([]byte(content)) || !strings.HasSuffix(content, "\npartial\n") {
		t.Fatalf("unexpected artifact %q", content)
	}
}

func TestTimeoutKillsProcess(t *testing.T) {
	requireShell(t)
	dest := filepath.Join(t.TempDir(), "Skipfish-example.com.txt")
	r := New(Options{Timeout: 200 * time.Millisecond})

	start := time.Now()
	out := r.Invoke(context.Background(), Command{Tool: "skipfish", Argv: []string{"sh", "-c", "sleep 30"}, Dest: dest})
	if time.Since(start) > 10*time.Second {
		t.Fatal("timeout did not stop the process")
	}
	if out.Err == nil || !strings.Contains(out.Err.Error(), "timed out") {
		t.Fatalf("unexpected error %v", out.Err)
	}
	if !IsMarker([]byte(readFile(t, dest))) {
		t.Fatal("expected marker artifact")
	}
}

func TestCancelledContextDoesNotSpawn(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Whatweb-example.com.txt")
	r := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := r.Invoke(ctx, Command{Tool: "whatweb", Argv: []string{"whatweb", "example.com"}, Dest: dest})
	if out.Err == nil || r.Spawned() != 0 {
		t.Fatalf("unexpected outcome %+v spawned=%d", out, r.Spawned())
	}
}

func TestSelfWrittenOutputOfFailedRunIsKept(t *testing.T) {
	requireShell(t)
	dest := filepath.Join(t.TempDir(), "Wafw00f-example.com.txt")
	r := New(Options{})

	script := "echo detected > " + dest + "; exit 1"
	out := r.Invoke(context.Background(), Command{Tool: "wafw00f", Argv: []string{"sh", "-c", script}, Dest: dest, Output: SelfWritten})
	if out.Err == nil {
		t.Fatal("expected an error")
	}
	if got := readFile(t, dest); got != "detected\n" {
		t.Fatalf("self-written artifact replaced: %q", got)
	}

	missing := filepath.Join(t.TempDir(), "Lbd-example.com.txt")
	out = r.Invoke(context.Background(), Command{Tool: "lbd", Argv: []string{"sh", "-c", "true"}, Dest: missing, Output: SelfWritten})
	if out.Err == nil || !IsMarker([]byte(readFile(t, missing))) {
		t.Fatalf("missing self-written output should leave a marker, got %v", out.Err)
	}
}

func TestSelfWrittenRerunReplacesPreviousOutput(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "WAFW00F-example.com.txt")
	if err := os.WriteFile(dest, []byte("The site https://example.com is behind Cloudflare (Cloudflare Inc.) WAF.\n"), 0644); err != nil {
		t.Fatal(err)
	}
	prefix := filepath.Join(dir, "Nmap-example.com")
	for _, ext := range []string{".nmap", ".gnmap", ".xml"} {
		if err := os.WriteFile(prefix+ext, []byte("old scan\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	r := New(Options{})

	out := r.Invoke(context.Background(), Command{Tool: "wafw00f", Argv: []string{"sh", "-c", "exit 1"}, Dest: dest, Output: SelfWritten})
	if out.Err == nil {
		t.Fatal("expected an error")
	}
	if got := readFile(t, dest); !IsMarker([]byte(got)) || strings.Contains(got, "Cloudflare") {
		t.Fatalf("previous output survived a failed re-run: %q", got)
	}

	cmd := Command{
		Tool:   "nmap",
		Argv:   []string{"sh", "-c", "true"},
		Dest:   prefix + ".nmap",
		Output: SelfWritten,
		Stale:  []string{prefix + ".gnmap", prefix + ".xml"},
	}
	if out := r.Invoke(context.Background(), cmd); out.Err == nil {
		t.Fatal("a run that writes nothing must fail")
	}
	if !IsMarker([]byte(readFile(t, prefix+".nmap"))) {
		t.Fatal("expected a marker at the prefix artifact")
	}
	for _, ext := range []string{".gnmap", ".xml"} {
		if _, err := os.Stat(prefix + ext); !os.IsNotExist(err) {
			t.Errorf("stale %s left behind", ext)
		}
	}
}

func TestSelfWrittenMissingBinaryReplacesPreviousOutput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "WAFW00F-example.com.txt")
	if err := os.WriteFile(dest, []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r := New(Options{})

	r.Invoke(context.Background(), Command{Tool: "wafw00f", Argv: []string{"reconify-no-such-binary"}, Dest: dest, Output: SelfWritten})
	if got := readFile(t, dest); !IsMarker([]byte(got)) {
		t.Fatalf("expected a marker, got %q", got)
	}
}
