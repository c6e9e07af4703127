package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// --- Run Tests ---

func TestExecRunner_Success(t *testing.T) {
	requireShell(t)

	var logged bytes.Buffer
	r := New(Config{
		Command: []string{"sh", "-c", "echo scraped 3 assignments"},
		Output:  &logged,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded() {
		t.Errorf("expected success, got exit code %d", result.ExitCode)
	}
	if string(result.Output) != "scraped 3 assignments\n" {
		t.Errorf("unexpected captured output %q", result.Output)
	}
	if logged.String() != "scraped 3 assignments\n" {
		t.Errorf("output should be teed to log, got %q", logged.String())
	}
}

func TestExecRunner_NonZeroExitIsResult(t *testing.T) {
	requireShell(t)

	r := New(Config{Command: []string{"sh", "-c", "echo boom >&2; exit 3"}})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", result.ExitCode)
	}
	if !strings.Contains(string(result.Output), "boom") {
		t.Errorf("stderr should be captured, got %q", result.Output)
	}
}

func TestExecRunner_StartFailure(t *testing.T) {
	r := New(Config{Command: []string{"/nonexistent/scraper"}})

	result, err := r.Run(context.Background())
	if !errors.Is(err, ErrStart) {
		t.Fatalf("expected ErrStart, got %v", err)
	}
	if result.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", result.ExitCode)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	requireShell(t)

	r := New(Config{
		Command: []string{"sh", "-c", "exec sleep 5"},
		Timeout: 100 * time.Millisecond,
	})

	start := time.Now()
	result, err := r.Run(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if result.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", result.ExitCode)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout should stop the process early")
	}
}

func TestExecRunner_OrphanedChildDoesNotBlock(t *testing.T) {
	requireShell(t)

	// Потомок наследует stdout и переживает родителя
	r := New(Config{Command: []string{"sh", "-c", "sleep 5 & echo parent done; exit 0"}})

	start := time.Now()
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("run should return shortly after the scraper exits, took %s", elapsed)
	}
	if !result.Succeeded() {
		t.Errorf("expected success, got exit code %d", result.ExitCode)
	}
	if !strings.Contains(string(result.Output), "parent done") {
		t.Errorf("expected parent output, got %q", result.Output)
	}
}

func TestExecRunner_CancelledContextDoesNotKill(t *testing.T) {
	requireShell(t)

	r := New(Config{Command: []string{"sh", "-c", "sleep 0.2; exit 0"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("started run should complete despite cancelled ctx: %v", err)
	}
	if !result.Succeeded() {
		t.Errorf("expected success, got %d", result.ExitCode)
	}
}

func TestResult_Tail(t *testing.T) {
	r := &Result{Output: []byte("0123456789")}
	if got := r.Tail(4); got != "6789" {
		t.Errorf("expected 6789, got %q", got)
	}
	if got := r.Tail(100); got != "0123456789" {
		t.Errorf("expected full output, got %q", got)
	}
}

func TestResult_TailRuneBoundary(t *testing.T) {
	// "é" занимает 2 байта: срез по 4096 начинается с середины руны
	r := &Result{Output: []byte(strings.Repeat("é", 3000) + "x")}

	got := r.Tail(4096)
	if !utf8.ValidString(got) {
		t.Fatalf("tail is not valid UTF-8: %q", got[:4])
	}
	if !strings.HasPrefix(got, "é") || !strings.HasSuffix(got, "éx") {
		t.Errorf("unexpected tail boundaries: %q...%q", got[:4], got[len(got)-3:])
	}
	if len(got) != 4095 {
		t.Errorf("expected 4095 bytes, got %d", len(got))
	}
}

func TestResult_TailStripsInvalidBytes(t *testing.T) {
	r := &Result{Output: []byte("ok\x00done\xff\n")}
	if got := r.Tail(100); got != "okdone\n" {
		t.Errorf("expected NUL and invalid bytes removed, got %q", got)
	}
}

// --- Prepare Tests ---

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/app/venv/bin", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/app/venv/bin/python", []byte("#!"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/app/main.py", []byte("print()"), 0o644); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestPrepare_ActivatesVirtualenv(t *testing.T) {
	r := New(Config{
		Command: []string{"python", "main.py"},
		Dir:     "/app",
		VenvDir: "/app/venv",
		Env:     []string{"PATH=/usr/bin", "PYTHONHOME=/opt/py"},
		Fs:      newFs(t),
	})

	if err := r.Prepare(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Path() != "/app/venv/bin/python" {
		t.Errorf("expected python from venv, got %q", r.Path())
	}
	if got := getEnv(r.env, "PATH"); got != "/app/venv/bin:/usr/bin" {
		t.Errorf("venv bin should be prepended to PATH, got %q", got)
	}
	if got := getEnv(r.env, "VIRTUAL_ENV"); got != "/app/venv" {
		t.Errorf("expected VIRTUAL_ENV, got %q", got)
	}
	if got := getEnv(r.env, "PYTHONHOME"); got != "" {
		t.Errorf("PYTHONHOME should be unset, got %q", got)
	}
}

func TestPrepare_Failures(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty command", Config{}},
		{"missing venv", Config{Command: []string{"python"}, VenvDir: "/missing"}},
		{"missing dir", Config{Command: []string{"python"}, Dir: "/nope"}},
		{"not in path", Config{Command: []string{"python"}, Env: []string{"PATH=/usr/bin"}}},
		{"not executable", Config{Command: []string{"./main.py"}, Dir: "/app"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Fs = newFs(t)
			if cfg.Env == nil {
				cfg.Env = []string{}
			}

			err := New(cfg).Prepare()
			if !errors.Is(err, ErrEnvironment) {
				t.Errorf("expected ErrEnvironment, got %v", err)
			}
		})
	}
}
