// Package render talks to the external compositing provider: submitting
// renders, polling their status, and resolving served asset URLs.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jubily/internal/pkg/errors"
	"jubily/internal/scenes"
)

// State is the normalized render status the poller acts on. Provider-specific
// status strings collapse into these four.
type State string

const (
	StateRendering State = "rendering"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateUnknown   State = "unknown"
)

// StatusResult carries the normalized state plus the provider's failure
// message when State is StateFailed.
type StatusResult struct {
	State State
	Error string
}

// Client submits renders and polls their progress over the provider's HTTP
// API.
type Client struct {
	baseURL string
	apiKey  string
	bgImage string
	client  *http.Client
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithBackgroundImage overrides the still used behind every scene.
func WithBackgroundImage(url string) Option {
	return func(c *Client) { c.bgImage = url }
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type clip struct {
	Asset  map[string]any `json:"asset"`
	Start  float64        `json:"start"`
	Length float64        `json:"length"`
	Effect string         `json:"effect,omitempty"`
}

type track struct {
	Clips []clip `json:"clips"`
}

type renderPayload struct {
	Timeline struct {
		Tracks []track `json:"tracks"`
	} `json:"timeline"`
	Output struct {
		Format     string `json:"format"`
		Resolution string `json:"resolution"`
	} `json:"output"`
}

// Submit composes a timeline from the scenes and submits it for rendering.
// Fails when the provider does not return a render id.
func (c *Client) Submit(ctx context.Context, scs []scenes.Scene) (string, error) {
	if len(scs) == 0 {
		return "", errors.Validation("no scenes to render")
	}

	var bgClips, captionClips []clip
	var cursor float64
	for i, s := range scs {
		if s.Duration <= 0 {
			return "", errors.Validationf("invalid scene duration at index %d", i)
		}

		if c.bgImage != "" {
			bgClips = append(bgClips, clip{
				Asset:  map[string]any{"type": "image", "src": c.bgImage},
				Start:  cursor,
				Length: s.Duration,
				Effect: "zoomIn",
			})
		}
		captionClips = append(captionClips, clip{
			Asset:  map[string]any{"type": "html", "html": captionHTML(s.Caption)},
			Start:  cursor,
			Length: s.Duration,
		})
		cursor += s.Duration
	}

	var payload renderPayload
	if len(bgClips) > 0 {
		payload.Timeline.Tracks = append(payload.Timeline.Tracks, track{Clips: bgClips})
	}
	payload.Timeline.Tracks = append(payload.Timeline.Tracks, track{Clips: captionClips})
	payload.Output.Format = "mp4"
	payload.Output.Resolution = "hd"

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "render.submit", "render request failed")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", errors.Newf(errors.CodeUnavailable, "render submit http %d", res.StatusCode)
	}

	var parsed struct {
		Response struct {
			ID string `json:"id"`
		} `json:"response"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "render.submit", "malformed submit response")
	}
	if parsed.Response.ID == "" {
		return "", errors.Internal("render provider did not return a render id")
	}

	return parsed.Response.ID, nil
}

// Status polls the render and maps the provider status onto State.
func (c *Client) Status(ctx context.Context, renderID string) (StatusResult, error) {
	if renderID == "" {
		return StatusResult{}, errors.Validation("missing render id")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/render/"+renderID, nil)
	if err != nil {
		return StatusResult{}, err
	}
	req.Header.Set("x-api-key", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return StatusResult{}, errors.Wrap(err, "render.status", "status request failed")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return StatusResult{}, errors.Newf(errors.CodeUnavailable, "render status http %d", res.StatusCode)
	}

	var parsed struct {
		Response struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"response"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return StatusResult{}, errors.Wrap(err, "render.status", "malformed status response")
	}
	if parsed.Response.Status == "" {
		return StatusResult{}, errors.Internal("empty render status response")
	}

	return StatusResult{
		State: mapState(parsed.Response.Status),
		Error: parsed.Response.Error,
	}, nil
}

func mapState(providerStatus string) State {
	switch strings.ToLower(providerStatus) {
	case "done":
		return StateDone
	case "failed":
		return StateFailed
	case "queued", "fetching", "rendering", "saving":
		return StateRendering
	default:
		return StateUnknown
	}
}

func captionHTML(caption string) string {
	return fmt.Sprintf(`<div style="width:100%%; height:100%%; display:flex; align-items:flex-end; justify-content:center; padding:90px; font-family:Arial; font-size:56px; font-weight:800; color:white; text-align:center;"><div style="background: rgba(0,0,0,.45); padding:24px 30px; border-radius:18px;">%s</div></div>`, caption)
}
