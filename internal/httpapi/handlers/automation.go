package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"jubily/internal/httpkit"
	"jubily/internal/models"
	"jubily/internal/pkg/middleware"
)

type runSlotRequest struct {
	// At overrides the requested time, RFC 3339. Defaults to now.
	At string `json:"at,omitempty"`
}

// RunSlot triggers a production run for one slot on demand. The call is
// synchronous and idempotent per (slot, hour).
func (h *Handler) RunSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slot, ok := models.ParseSlot(strings.ToUpper(chi.URLParam(r, "slot")))
	if !ok {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "unknown slot", map[string]any{"slot": chi.URLParam(r, "slot")})
		return
	}

	at := time.Now()
	if r.Body != nil && r.ContentLength > 0 {
		var req runSlotRequest
		if err := httpkit.DecodeJSON(r, &req); err != nil {
			httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
			return
		}
		if req.At != "" {
			parsed, err := time.Parse(time.RFC3339, req.At)
			if err != nil {
				// Unparseable trigger times fall back to now.
				h.log.FromContext(ctx).Warn("invalid run time, using now", "at", req.At)
			} else {
				at = parsed
			}
		}
	}

	res, err := h.orch.RunSlot(ctx, slot, at)
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"run": res})
}

// GetSettings returns the automation switch and timezone.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context())
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"settings": st})
}

type updateSettingsRequest struct {
	AutomationEnabled bool   `json:"automation_enabled"`
	Timezone          string `json:"timezone"`
}

// UpdateSettings overwrites the automation switch and timezone.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "unknown timezone", map[string]any{"timezone": req.Timezone})
		return
	}

	st, err := h.settings.Update(r.Context(), req.AutomationEnabled, req.Timezone)
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"settings": st})
}
