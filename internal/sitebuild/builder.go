// Package sitebuild runs the documentation site generator.
//
// The generator is modelled as an explicit synchronous boundary: Build blocks
// until the generator exits and returns a Result describing how it exited, so
// callers can refuse to verify a partially written output tree.
package sitebuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/docverify/internal/logfields"
)

var (
	// ErrCommandNotFound is returned when the generator executable is not on PATH.
	ErrCommandNotFound = errors.New("site build command not found")
	// ErrTimeout is returned when the generator exceeded its time budget.
	ErrTimeout = errors.New("site build timed out")
	// ErrEmptyCommand is returned for a blank command line.
	ErrEmptyCommand = errors.New("site build command is empty")
)

// outputTail bounds how much generator output a Result keeps.
const outputTail = 8 << 10

// Result describes one generator invocation.
type Result struct {
	Command   string        `json:"command"`
	Dir       string        `json:"dir"`
	ExitCode  int           `json:"exit_code"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Output    string        `json:"output,omitempty"`
}

// Success reports whether the generator exited with status zero.
func (r *Result) Success() bool { return r != nil && r.ExitCode == 0 }

// Builder produces the site output.
type Builder interface {
	Build(ctx context.Context) (*Result, error)
}

// CommandBuilder invokes an external generator process.
type CommandBuilder struct {
	Args    []string
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// NewCommandBuilder splits command on whitespace. No shell is involved.
func NewCommandBuilder(command, dir string, env map[string]string, timeout time.Duration) *CommandBuilder {
	return &CommandBuilder{
		Args:    strings.Fields(command),
		Dir:     dir,
		Env:     env,
		Timeout: timeout,
	}
}

// Build runs the generator and waits for it to exit. A non-zero exit is not an
// error: it is reported through Result.ExitCode. Errors are returned when the
// process could not be started or was stopped by ctx or the timeout.
func (b *CommandBuilder) Build(ctx context.Context) (*Result, error) {
	if len(b.Args) == 0 {
		return nil, ErrEmptyCommand
	}
	res := &Result{Command: strings.Join(b.Args, " "), Dir: b.Dir, ExitCode: -1}

	path, err := exec.LookPath(b.Args[0])
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrCommandNotFound, err)
	}
	if stat, statErr := os.Stat(b.Dir); statErr != nil || !stat.IsDir() {
		return res, fmt.Errorf("site directory not usable: %s", b.Dir)
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, b.Args[1:]...)
	cmd.Dir = b.Dir
	cmd.Env = mergeEnv(os.Environ(), b.Env)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren holding the output pipes must not outlive a cancelled build.
	cmd.WaitDelay = 2 * time.Second

	slog.Info("Running site build", logfields.Command(res.Command), logfields.Dir(b.Dir))
	res.StartedAt = time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(res.StartedAt)
	res.Output = tail(stdout.String(), stderr.String())

	if out := stdout.String(); out != "" {
		slog.Debug("site build stdout", "output", out)
	}
	if errOut := stderr.String(); errOut != "" {
		slog.Debug("site build stderr", "output", errOut)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("%w after %s", ErrTimeout, b.Timeout)
		}
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		res.ExitCode = 0
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("run site build: %w", runErr)
	}

	slog.Info("Site build finished",
		logfields.ExitCode(res.ExitCode),
		logfields.Duration(res.Duration))
	return res, nil
}

// NoopBuilder performs no build; useful when the output already exists.
type NoopBuilder struct{}

func (NoopBuilder) Build(context.Context) (*Result, error) {
	slog.Debug("NoopBuilder skipping site build")
	return &Result{Command: "noop", StartedAt: time.Now()}, nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

func tail(stdout, stderr string) string {
	combined := stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}
	if len(combined) > outputTail {
		combined = combined[len(combined)-outputTail:]
	}
	return strings.TrimSpace(combined)
}
