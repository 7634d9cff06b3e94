// Package toolexec runs the external bioinformatics tools (mash, datasets,
// quicktree, python) behind an interface so stages can be tested without them.
package toolexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Runner abstracts command execution.
type Runner interface {
	// LookPath reports where a binary lives, or an error if it is absent.
	LookPath(name string) (string, error)

	// Run executes a command and returns trimmed stdout and stderr.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

	// RunToFile executes a command streaming stdout into outPath.
	RunToFile(ctx context.Context, outPath, name string, args ...string) (stderr string, err error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	// Timeout per command; zero means only ctx bounds the command.
	Timeout time.Duration
	// Env entries appended to the inherited environment.
	Env []string
}

func NewExecRunner(timeout time.Duration, env ...string) *ExecRunner {
	return &ExecRunner{Timeout: timeout, Env: env}
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *ExecRunner) command(ctx context.Context, name string, args []string) (*exec.Cmd, context.CancelFunc) {
	cancel := context.CancelFunc(func() {})
	if r.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	return cmd, cancel
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd, cancel := r.command(ctx, name, args)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

func (r *ExecRunner) RunToFile(ctx context.Context, outPath, name string, args ...string) (string, error) {
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}

	cmd, cancel := r.command(ctx, name, args)
	defer cancel()

	var stderr bytes.Buffer
	cmd.Stdout = f
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	closeErr := f.Close()
	if runErr != nil {
		return strings.TrimSpace(stderr.String()), runErr
	}
	return strings.TrimSpace(stderr.String()), closeErr
}

// Result is a canned command outcome for MockRunner.
type Result struct {
	Stdout string
	Stderr string
	Err    error
}

// HandlerFunc computes a command outcome from its arguments. It may create
// files the real tool would have produced.
type HandlerFunc func(args []string) Result

// MockRunner implements Runner for tests. Commands are matched first by
// "name args..." and then by bare name.
type MockRunner struct {
	mu       sync.Mutex
	lookPath map[string]string
	commands map[string]HandlerFunc
	calls    []string
}

func NewMockRunner() *MockRunner {
	return &MockRunner{
		lookPath: make(map[string]string),
		commands: make(map[string]HandlerFunc),
	}
}

// SetLookPath makes LookPath succeed for name.
func (m *MockRunner) SetLookPath(name, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookPath[name] = path
}

// SetCommand registers a fixed outcome.
func (m *MockRunner) SetCommand(key, stdout, stderr string, err error) {
	m.SetHandler(key, func([]string) Result {
		return Result{Stdout: stdout, Stderr: stderr, Err: err}
	})
}

// SetHandler registers a computed outcome.
func (m *MockRunner) SetHandler(key string, h HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[key] = h
}

// Calls returns every invocation as "name args...", in call order.
func (m *MockRunner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path, ok := m.lookPath[name]; ok {
		return path, nil
	}
	return "", exec.ErrNotFound
}

func (m *MockRunner) dispatch(ctx context.Context, name string, args []string) Result {
	full := strings.TrimSpace(name + " " + strings.Join(args, " "))

	m.mu.Lock()
	m.calls = append(m.calls, full)
	h, ok := m.commands[full]
	if !ok {
		h, ok = m.commands[name]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}
	if !ok {
		return Result{Err: fmt.Errorf("%s: %w", name, exec.ErrNotFound)}
	}
	return h(args)
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	res := m.dispatch(ctx, name, args)
	return res.Stdout, res.Stderr, res.Err
}

func (m *MockRunner) RunToFile(ctx context.Context, outPath, name string, args ...string) (string, error) {
	res := m.dispatch(ctx, name, args)
	if res.Err != nil {
		return res.Stderr, res.Err
	}
	return res.Stderr, os.WriteFile(outPath, []byte(res.Stdout), 0644)
}

var (
	_ Runner = (*ExecRunner)(nil)
	_ Runner = (*MockRunner)(nil)
)
