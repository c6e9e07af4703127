package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/repo"
	"github.com/shaiso/Chronos/internal/scheduler"
)

// RunReader — чтение истории запусков. Реализация: repo.RunRepo.
type RunReader interface {
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
}

// StatusProvider — снимок состояния. Реализация: scheduler.Scheduler.
type StatusProvider interface {
	Status() scheduler.Status
}

// Handler — обработчики API.
type Handler struct {
	runs   RunReader
	status StatusProvider
	logger *slog.Logger
}

// Config — зависимости Handler. Runs и Status опциональны.
type Config struct {
	Runs   RunReader
	Status StatusProvider
	Logger *slog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runs:   cfg.Runs,
		status: cfg.Status,
		logger: logger,
	}
}
