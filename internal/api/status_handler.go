package api

import (
	"net/http"
)

// Healthz — liveness probe.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GetStatus возвращает состояние scheduler.
// GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	if h.status == nil {
		Unavailable(w, "scheduler is not running in this process")
		return
	}
	Success(w, StatusFromScheduler(h.status.Status()))
}
