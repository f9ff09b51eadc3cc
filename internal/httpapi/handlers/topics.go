package handlers

import (
	"net/http"
	"strings"

	"jubily/internal/httpkit"
	"jubily/internal/pkg/middleware"
)

type createTopicRequest struct {
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
	Score  int    `json:"score,omitempty"`
}

// PostTopic ingests a topic. Titles are deduplicated: resubmitting an
// existing title returns the stored topic unchanged.
func (h *Handler) PostTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "title is required", map[string]any{"field": "title"})
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	topic, err := h.topics.Create(r.Context(), req.Title, req.Source, req.Score)
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{"topic": topic})
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.List(r.Context())
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}
	httpkit.WriteJSON(w, 200, map[string]any{"topics": topics})
}

type createOfferRequest struct {
	Name    string `json:"name"`
	Hoplink string `json:"hoplink"`
	Active  bool   `json:"active"`
}

// PostOffer registers an affiliate offer the publisher can attach to runs.
func (h *Handler) PostOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
		return
	}

	offer, err := h.offers.Create(r.Context(), req.Name, req.Hoplink, req.Active)
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{"offer": offer})
}
