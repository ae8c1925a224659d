package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/who0xac/reconify/pkg/logging"
)

// MarkerPrefix starts every artifact written in place of real tool output
const MarkerPrefix = "[reconify:error]"

// OutputMode says where a tool's result ends up
type OutputMode int

const (
	// Stdout streams standard output into Dest
	Stdout OutputMode = iota
	// Capture writes standard output to Dest and returns it to the caller
	Capture
	// SelfWritten tools write Dest (or a prefix of it) themselves
	SelfWritten
)

// Command is one external tool invocation
type Command struct {
	Tool   string
	Argv   []string
	Dest   string
	Output OutputMode
	Stdin  string
	Stale  []string // files a SelfWritten tool writes beside Dest
}

func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Outcome is the result of an invocation. Err is informational: the caller
// always gets an artifact at Path.
type Outcome struct {
	Path     string
	Output   string
	DryRun   bool
	ExitCode int
	Duration time.Duration
	Err      error
}

// OK reports whether the tool ran and succeeded
func (o Outcome) OK() bool {
	return o.Err == nil && !o.DryRun
}

// Invoker runs external commands
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) Outcome
}

// Options configures a Runner
type Options struct {
	DryRun  bool
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Runner is the process-backed Invoker. Every child runs in its own process
// group so the whole tree can be killed on timeout or interruption.
type Runner struct {
	dryRun  bool
	timeout time.Duration
	log     logrus.FieldLogger

	lookPath func(string) (string, error)
	spawned  atomic.Int64

	mu      sync.Mutex
	running map[int]*exec.Cmd
}

// New creates a Runner
func New(opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{
		dryRun:   opts.DryRun,
		timeout:  opts.Timeout,
		log:      log,
		lookPath: exec.LookPath,
		running:  make(map[int]*exec.Cmd),
	}
}

// Spawned returns how many processes have been started
func (r *Runner) Spawned() int64 {
	return r.spawned.Load()
}

// DryRun reports whether the runner only computes paths
func (r *Runner) DryRun() bool {
	return r.dryRun
}

// KillAll kills every tracked process group
func (r *Runner) KillAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for pid, cmd := range r.running {
		killGroup(cmd)
		delete(r.running, pid)
	}
}

func (r *Runner) track(cmd *exec.Cmd) {
	r.mu.Lock()
	r.running[cmd.Process.Pid] = cmd
	r.mu.Unlock()
}

func (r *Runner) untrack(cmd *exec.Cmd) {
	r.mu.Lock()
	delete(r.running, cmd.Process.Pid)
	r.mu.Unlock()
}

// Invoke runs cmd and never fails past this boundary: every problem is
// logged and turned into a marker artifact at cmd.Dest.
func (r *Runner) Invoke(ctx context.Context, cmd Command) Outcome {
	log := r.log.WithField(logging.FieldTool, cmd.Tool)
	out := Outcome{Path: cmd.Dest}

	if len(cmd.Argv) == 0 {
		out.Err = errors.New("empty command")
		r.fail(log, cmd, &out, nil)
		return out
	}

	if cmd.Output == SelfWritten {
		if err := removeStale(cmd); err != nil {
			log.Warnf("could not remove previous output: %v", err)
		}
	}

	if r.dryRun {
		out.DryRun = true
		log.Debugf("dry-run: %s", cmd)
		if err := WriteMarker(cmd.Dest, "dry-run: %s not executed", cmd); err != nil {
			log.Warnf("could not write %s: %v", cmd.Dest, err)
		}
		return out
	}

	if err := ctx.Err(); err != nil {
		out.Err = fmt.Errorf("%s: not started: %w", cmd.Tool, err)
		r.fail(log, cmd, &out, nil)
		return out
	}

	path, err := r.lookPath(cmd.Argv[0])
	if err != nil {
		out.Err = fmt.Errorf("%s: executable not found", cmd.Argv[0])
		r.fail(log, cmd, &out, nil)
		return out
	}

	if err := os.MkdirAll(filepath.Dir(cmd.Dest), 0755); err != nil {
		out.Err = fmt.Errorf("create artifact directory: %w", err)
		r.fail(log, cmd, &out, nil)
		return out
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, path, cmd.Argv[1:]...)
	setProcessGroup(c)
	c.Cancel = func() error {
		killGroup(c)
		return nil
	}
	c.WaitDelay = 5 * time.Second

	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	c.Stderr = &stderr

	var file *os.File
	switch cmd.Output {
	case Stdout:
		file, err = os.OpenFile(cmd.Dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			out.Err = fmt.Errorf("open artifact: %w", err)
			r.fail(log, cmd, &out, nil)
			return out
		}
		c.Stdout = file
	case Capture:
		c.Stdout = &stdout
	}

	log.Debugf("START: %s", cmd)
	start := time.Now()

	err = c.Start()
	if err == nil {
		r.spawned.Add(1)
		r.track(c)
		err = c.Wait()
		r.untrack(c)
	}
	out.Duration = time.Since(start)

	if file != nil {
		file.Close()
	}

	if cmd.Output == Capture {
		out.Output = stdout.String()
		if werr := os.WriteFile(cmd.Dest, stdout.Bytes(), 0644); werr != nil && err == nil {
			err = fmt.Errorf("write artifact: %w", werr)
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		}
		out.Err = describe(cmd, err, runCtx, ctx, r.timeout, stderr.String())
		r.fail(log, cmd, &out, partial(cmd))
		return out
	}

	if cmd.Output == SelfWritten && empty(cmd.Dest) {
		out.Err = fmt.Errorf("%s: produced no output at %s", cmd.Tool, filepath.Base(cmd.Dest))
		r.fail(log, cmd, &out, nil)
		return out
	}

	log.Debugf("END: %s OK (duration: %s)", cmd.Tool, out.Duration.Round(time.Millisecond))
	return out
}

// fail logs the failure and replaces the artifact with a marker. Any partial
// output is kept below the marker line for the operator.
func (r *Runner) fail(log logrus.FieldLogger, cmd Command, out *Outcome, keep []byte) {
	log.Warnf("%s failed: %v", cmd.Tool, out.Err)

	if cmd.Dest == "" {
		return
	}
	if cmd.Output == SelfWritten && !empty(cmd.Dest) {
		return
	}
	if err := writeMarker(cmd.Dest, keep, "%s: %v", cmd.Tool, out.Err); err != nil {
		log.Warnf("could not write %s: %v", cmd.Dest, err)
	}
}

func describe(cmd Command, err error, runCtx, parent context.Context, timeout time.Duration, stderr string) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("interrupted: %w", parent.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("timed out after %s", timeout)
	}

	if line := lastLine(stderr); line != "" {
		return fmt.Errorf("%w: %s", err, line)
	}
	return err
}

// removeStale removes what an earlier run of a SelfWritten tool left behind, so
// anything at Dest afterwards comes from this run.
func removeStale(cmd Command) error {
	for _, path := range append([]string{cmd.Dest}, cmd.Stale...) {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func partial(cmd Command) []byte {
	if cmd.Output == SelfWritten {
		return nil
	}
	data, err := os.ReadFile(cmd.Dest)
	if err != nil {
		return nil
	}
	return data
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func empty(path string) bool {
	info, err := os.Stat(path)
	return err != nil || info.Size() == 0
}

// WriteMarker replaces path with a single error-marker line
func WriteMarker(path, format string, args ...any) error {
	return writeMarker(path, nil, format, args...)
}

func writeMarker(path string, body []byte, format string, args ...any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString(MarkerPrefix)
	buf.WriteByte(' ')
	fmt.Fprintf(&buf, format, args...)
	buf.WriteByte('\n')
	buf.Write(body)
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// IsMarker reports whether data is an error-marker artifact
func IsMarker(data []byte) bool {
	return bytes.HasPrefix(data, []byte(MarkerPrefix))
}
