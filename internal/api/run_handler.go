package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/repo"
)

const historyDisabled = "run history is disabled (DB_URL not set)"

// ListRuns возвращает историю запусков.
// GET /api/v1/runs?status=...&trigger=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		Unavailable(w, historyDisabled)
		return
	}

	q := r.URL.Query()
	filter := repo.RunFilter{Trigger: q.Get("trigger")}

	if s := q.Get("status"); s != "" {
		filter.Status = domain.ParseRunStatus(s)
		if filter.Status == "" {
			BadRequest(w, "invalid status")
			return
		}
	}

	var ok bool
	if filter.Limit, ok = parseNonNegative(q.Get("limit")); !ok {
		BadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, ok = parseNonNegative(q.Get("offset")); !ok {
		BadRequest(w, "invalid offset")
		return
	}

	runs, err := h.runs.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}
	List(w, result, len(result))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		Unavailable(w, historyDisabled)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}
	Success(w, RunFromDomain(*run))
}

// parseNonNegative: пустая строка → 0; отрицательные и нечисловые значения отклоняются.
func parseNonNegative(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
