package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"jubily/internal/httpkit"
	"jubily/internal/pkg/middleware"
	"jubily/internal/repositories"
)

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	jobs, err := h.jobs.List(r.Context(), limit)
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"jobs": jobs})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job, err := h.jobs.Get(r.Context(), jobID)
	if errors.Is(err, repositories.ErrJobNotFound) {
		httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
		return
	}
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"job": job})
}

// RetryJob is the manual escape hatch for a FAILED job: back to PROCESSING
// with a fresh attempt budget so the poller picks it up again.
func (h *Handler) RetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	log := h.log.FromContext(r.Context()).WithJobID(jobID)

	job, err := h.jobs.ResetForRetry(r.Context(), jobID)
	if errors.Is(err, repositories.ErrJobNotFound) {
		httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
		return
	}
	if err != nil {
		httpkit.WriteErr(w, 409, "CONFLICT", err.Error(), map[string]any{"job_id": jobID})
		return
	}

	log.Info("job reset for retry")
	httpkit.WriteJSON(w, 200, map[string]any{"job": job})
}
