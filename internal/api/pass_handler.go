package api

import (
	"net/http"
)

// RunPass запускает проход рассылки синхронно.
// POST /api/v1/passes
//
// 409, если проход уже выполняется (в этом процессе или на другой реплике).
func (h *Handler) RunPass(w http.ResponseWriter, r *http.Request) {
	if h.passes == nil {
		Unavailable(w, "scheduler is not running")
		return
	}

	result, err := h.passes.Tick(r.Context())
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	Success(w, PassFromResult(result))
}

// LastPass возвращает итоги последнего успешного прохода.
// GET /api/v1/passes/last
func (h *Handler) LastPass(w http.ResponseWriter, _ *http.Request) {
	if h.passes == nil {
		Unavailable(w, "scheduler is not running")
		return
	}

	result, ok := h.passes.LastResult()
	if !ok {
		NotFound(w, "no pass has completed yet")
		return
	}

	Success(w, PassFromResult(result))
}
