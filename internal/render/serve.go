package render

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"jubily/internal/pkg/errors"
)

// Named transient conditions the poller and publisher branch on. Neither
// consumes attempt budget: the render is finished, the serving layer just
// hasn't caught up. Plain sentinels so errors.Is matches them exactly.
var (
	ErrAssetNotReady = stderrors.New("serve asset not ready")
	ErrAssetMissing  = stderrors.New("serve asset missing")
)

// Asset is the serving layer's view of a finished render. Status is the
// provider string verbatim; callers compare it case-insensitively.
type Asset struct {
	URL    string
	Status string
}

// Ready reports whether the asset's CDN URL is usable.
func (a Asset) Ready() bool {
	return a.URL != "" && strings.EqualFold(a.Status, "ready")
}

// ServeClient resolves durable-ish CDN URLs for completed renders from the
// provider's serve API.
type ServeClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewServeClient(baseURL, apiKey string, opts ...func(*ServeClient)) *ServeClient {
	c := &ServeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func ServeWithTimeout(d time.Duration) func(*ServeClient) {
	return func(c *ServeClient) { c.client.Timeout = d }
}

// Resolve returns the asset URL and readiness status for a render.
// A provider 404 maps to status "missing" with an empty URL rather than an
// error, since the poller treats it as a wait condition.
func (c *ServeClient) Resolve(ctx context.Context, renderID string) (Asset, error) {
	if renderID == "" {
		return Asset{}, errors.Validation("missing render id")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/assets/render/"+renderID, nil)
	if err != nil {
		return Asset{}, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return Asset{}, errors.Wrap(err, "render.resolve", "serve request failed")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return Asset{Status: "missing"}, nil
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Asset{}, errors.Newf(errors.CodeUnavailable, "serve http %d", res.StatusCode)
	}

	var parsed struct {
		Data []struct {
			Attributes struct {
				URL    string `json:"url"`
				Status string `json:"status"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Asset{}, errors.Wrap(err, "render.resolve", "malformed serve response")
	}

	if len(parsed.Data) == 0 {
		return Asset{Status: "missing"}, nil
	}

	asset := Asset{
		URL:    parsed.Data[0].Attributes.URL,
		Status: parsed.Data[0].Attributes.Status,
	}
	if asset.Status == "" {
		asset.Status = "unknown"
	}
	return asset, nil
}

// ReadyURL resolves the asset and fails with ErrAssetMissing when no URL is
// present, or ErrAssetNotReady when the status is anything but "ready".
func (c *ServeClient) ReadyURL(ctx context.Context, renderID string) (string, error) {
	asset, err := c.Resolve(ctx, renderID)
	if err != nil {
		return "", err
	}

	if asset.URL == "" {
		return "", errors.Wrapf(ErrAssetMissing, "render.readyurl", "no asset url (status=%s)", asset.Status)
	}
	if !strings.EqualFold(asset.Status, "ready") {
		return "", errors.Wrapf(ErrAssetNotReady, "render.readyurl", "asset not ready (status=%s)", asset.Status)
	}

	return asset.URL, nil
}
