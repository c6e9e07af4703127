// Chronos Launcher — одиночный запуск scraper.
//
// Режимы:
//   - по умолчанию (вызов из системного cron): готовит окружение,
//     запускает scraper и завершается с его кодом выхода
//   - LAUNCHER_IDLE=true (контейнер): после запуска ждёт сигнала,
//     чтобы контейнер не перезапускался
//
// Код выхода 2 — окружение не удалось подготовить, scraper не запускался.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Chronos/internal/app"
	"github.com/shaiso/Chronos/internal/config"
	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/launcher"
	"github.com/shaiso/Chronos/internal/runner"
	"github.com/shaiso/Chronos/internal/telemetry"
)

const (
	exitFailure     = 1
	exitEnvironment = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := telemetry.SetupLogger("chronos-launcher")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitFailure
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("startup failed", "error", err)
		if errors.Is(err, runner.ErrEnvironment) {
			return exitEnvironment
		}
		return exitFailure
	}
	defer deps.Close()

	result, err := deps.Launcher.Launch(ctx, launcher.Request{
		Trigger: domain.TriggerManual,
		Mode:    domain.RunModeOneShot,
	})
	if err != nil {
		logger.Warn("launch interrupted", "error", err)
	}

	code := exitCode(result)

	if cfg.LauncherIdle {
		logger.Info("run finished, idling until shutdown signal", "exit_code", code)
		deps.Sink.Logf("Launcher idle, waiting for shutdown signal")
		<-ctx.Done()
		return 0
	}

	return code
}

// exitCode переводит результат run в код выхода процесса.
func exitCode(run *domain.Run) int {
	switch {
	case run == nil:
		return exitFailure
	case run.ExitCode >= 0 && run.ExitCode <= 255:
		return run.ExitCode
	default:
		// -1: процесс не стартовал или убит по таймауту
		return exitFailure
	}
}
