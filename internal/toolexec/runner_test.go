package toolexec

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMockRunnerMatching(t *testing.T) {
	m := NewMockRunner()
	m.SetCommand("mash", "generic", "", nil)
	m.SetCommand("mash sketch -k 31", "specific", "", nil)

	ctx := context.Background()
	if out, _, _ := m.Run(ctx, "mash", "sketch", "-k", "31"); out != "specific" {
		t.Errorf("full key should win, got %q", out)
	}
	if out, _, _ := m.Run(ctx, "mash", "dist"); out != "generic" {
		t.Errorf("bare name should match, got %q", out)
	}
	if _, _, err := m.Run(ctx, "quicktree"); !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("unregistered command error = %v", err)
	}

	want := []string{"mash sketch -k 31", "mash dist", "quicktree"}
	if got := m.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("Calls() = %v, want %v", got, want)
	}
}

func TestMockRunnerHandler(t *testing.T) {
	m := NewMockRunner()
	attempts := 0
	m.SetHandler("datasets", func(args []string) Result {
		attempts++
		if attempts < 3 {
			return Result{Stderr: "gateway timeout", Err: errors.New("exit status 1")}
		}
		return Result{Stdout: "ok"}
	})

	var out string
	var err error
	for i := 0; i < 3; i++ {
		out, _, err = m.Run(context.Background(), "datasets", "download")
	}
	if err != nil || out != "ok" {
		t.Errorf("third attempt = %q, %v", out, err)
	}
}

func TestMockRunnerLookPath(t *testing.T) {
	m := NewMockRunner()
	m.SetLookPath("mash", "/usr/bin/mash")
	if p, err := m.LookPath("mash"); err != nil || p != "/usr/bin/mash" {
		t.Errorf("LookPath(mash) = %q, %v", p, err)
	}
	if _, err := m.LookPath("datasets"); !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("LookPath(datasets) error = %v", err)
	}
}

func TestMockRunnerRunToFile(t *testing.T) {
	m := NewMockRunner()
	m.SetCommand("mash", "#query\tA\nA\t0\n", "", nil)

	out := filepath.Join(t.TempDir(), "distances.txt")
	if _, err := m.RunToFile(context.Background(), out, "mash", "dist", "-t"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "#query\tA\nA\t0\n" {
		t.Errorf("file = %q", data)
	}
}

func TestMockRunnerCancelled(t *testing.T) {
	m := NewMockRunner()
	m.SetCommand("mash", "x", "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := m.Run(ctx, "mash"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestExecRunner(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	r := NewExecRunner(0)

	stdout, stderr, err := r.Run(context.Background(), sh, "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stdout != "out" || stderr != "err" {
		t.Errorf("Run() = %q, %q", stdout, stderr)
	}

	out := filepath.Join(t.TempDir(), "o.txt")
	if _, err := r.RunToFile(context.Background(), out, sh, "-c", "printf 'a\\tb\\n'"); err != nil {
		t.Fatalf("RunToFile() error = %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "a\tb\n" {
		t.Errorf("file = %q", data)
	}
}
