package handlers

import (
	"net/http"
	"time"

	"jubily/internal/httpkit"
	"jubily/internal/models"
	"jubily/internal/pkg/middleware"
)

// Workflow returns today's production rollup: one entry per slot with the
// job keyed into that occurrence, plus recent publish-log rows when a log
// reader is wired.
func (h *Handler) Workflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	st, err := h.settings.Get(ctx)
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		loc = time.UTC
	}

	now := time.Now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	jobs, err := h.jobs.ListScheduledBetween(ctx, dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC())
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	bySlot := map[models.Slot]*models.VideoJob{}
	for i := range jobs {
		bySlot[jobs[i].Slot] = &jobs[i]
	}

	type slotEntry struct {
		Slot models.Slot      `json:"slot"`
		Job  *models.VideoJob `json:"job"`
	}
	rollup := make([]slotEntry, 0, len(models.Slots))
	for _, slot := range models.Slots {
		rollup = append(rollup, slotEntry{Slot: slot, Job: bySlot[slot]})
	}

	out := map[string]any{
		"date":               dayStart.Format("2006-01-02"),
		"timezone":           st.Timezone,
		"automation_enabled": st.AutomationEnabled,
		"slots":              rollup,
	}

	if h.logs != nil {
		if recent, err := h.logs.Recent(ctx, 20); err != nil {
			h.log.FromContext(ctx).Warn("failed to read publish log", "error", err)
		} else {
			out["recent_logs"] = recent
		}
	}

	httpkit.WriteJSON(w, 200, out)
}
