package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// orphanOutputDelay — сколько ждать закрытия pipe вывода после выхода процесса.
const orphanOutputDelay = time.Second

// Config — конфигурация ExecRunner.
type Config struct {
	// Command — argv процесса; Command[0] — исполняемый файл.
	Command []string

	// Dir — рабочий каталог (пусто — текущий).
	Dir string

	// VenvDir — каталог virtualenv; его bin добавляется в начало PATH.
	VenvDir string

	// Timeout — жёсткий таймаут одной попытки (0 — без таймаута).
	Timeout time.Duration

	// Output — куда дублировать вывод процесса (обычно runlog.Sink.Writer()).
	Output io.Writer

	// Env — базовое окружение (nil → os.Environ()).
	Env []string

	// Fs — файловая система для проверок Prepare (nil → afero.OsFs).
	Fs afero.Fs
}

// ExecRunner запускает scraper через os/exec.
type ExecRunner struct {
	command []string
	dir     string
	venvDir string
	timeout time.Duration
	output  io.Writer
	env     []string
	fs      afero.Fs

	// path — разрешённый путь к исполняемому файлу после Prepare.
	path string
}

// New создаёт ExecRunner.
func New(cfg Config) *ExecRunner {
	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &ExecRunner{
		command: cfg.Command,
		dir:     cfg.Dir,
		venvDir: cfg.VenvDir,
		timeout: cfg.Timeout,
		output:  cfg.Output,
		env:     env,
		fs:      fs,
	}
}

// Prepare готовит окружение: активирует virtualenv и разрешает команду.
//
// Ошибка всегда оборачивает ErrEnvironment и считается фатальной.
func (r *ExecRunner) Prepare() error {
	if len(r.command) == 0 || r.command[0] == "" {
		return fmt.Errorf("%w: empty scraper command", ErrEnvironment)
	}

	if r.dir != "" {
		if err := r.requireDir(r.dir); err != nil {
			return fmt.Errorf("%w: working dir: %v", ErrEnvironment, err)
		}
	}

	if r.venvDir != "" {
		bin := filepath.Join(r.venvDir, "bin")
		if err := r.requireDir(bin); err != nil {
			return fmt.Errorf("%w: virtualenv: %v", ErrEnvironment, err)
		}
		r.env = setEnv(r.env, "VIRTUAL_ENV", r.venvDir)
		r.env = setEnv(r.env, "PATH", bin+string(os.PathListSeparator)+getEnv(r.env, "PATH"))
		r.env = unsetEnv(r.env, "PYTHONHOME")
	}

	path, err := r.lookPath(r.command[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	r.path = path
	return nil
}

// Path возвращает разрешённый путь к исполняемому файлу (после Prepare).
func (r *ExecRunner) Path() string {
	return r.path
}

// Run запускает процесс и ждёт его завершения.
func (r *ExecRunner) Run(ctx context.Context) (*Result, error) {
	if len(r.command) == 0 {
		return &Result{ExitCode: -1}, fmt.Errorf("%w: empty command", ErrStart)
	}

	// Отмена ctx не убивает запущенный scraper — только собственный таймаут
	runCtx := context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, r.timeout)
		defer cancel()
	}

	path := r.path
	if path == "" {
		path = r.command[0]
	}

	cmd := exec.CommandContext(runCtx, path, r.command[1:]...)
	cmd.Dir = r.dir
	cmd.Env = r.env
	// Осиротевшие потомки (chromedriver и т.п.) держат pipe вывода;
	// после выхода scraper ждём их не дольше orphanOutputDelay.
	cmd.WaitDelay = orphanOutputDelay

	var captured bytes.Buffer
	var w io.Writer = &captured
	if r.output != nil {
		w = io.MultiWriter(r.output, &captured)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	result := &Result{StartedAt: time.Now()}
	err := cmd.Run()
	result.FinishedAt = time.Now()
	result.Output = captured.Bytes()

	if err == nil {
		return result, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}

	if errors.Is(err, exec.ErrWaitDelay) {
		// Сам scraper завершился с кодом 0, pipe закрыт принудительно
		result.ExitCode = cmd.ProcessState.ExitCode()
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Ненулевой код — результат, а не ошибка
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	result.ExitCode = -1
	return result, fmt.Errorf("%w: %v", ErrStart, err)
}

// requireDir проверяет, что path существует и является каталогом.
func (r *ExecRunner) requireDir(path string) error {
	info, err := r.fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// lookPath ищет исполняемый файл в PATH подготовленного окружения.
// Относительные пути с "/" разрешаются от рабочего каталога.
func (r *ExecRunner) lookPath(name string) (string, error) {
	if strings.Contains(name, "/") {
		path := name
		if !filepath.IsAbs(path) && r.dir != "" {
			path = filepath.Join(r.dir, path)
		}
		if err := r.requireExecutable(path); err != nil {
			return "", err
		}
		return path, nil
	}

	for _, dir := range filepath.SplitList(getEnv(r.env, "PATH")) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, name)
		if r.requireExecutable(path) == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%q not found in PATH", name)
}

func (r *ExecRunner) requireExecutable(path string) error {
	info, err := r.fs.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// --- Env helpers ---

func getEnv(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):]
		}
	}
	return ""
}

func setEnv(env []string, key, value string) []string {
	return append(unsetEnv(env, key), key+"="+value)
}

func unsetEnv(env []string, key string) []string {
	prefix := key + "="
	out := env[:0:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return out
}
