// Package publish stabilizes rendered assets: once a video lands in the
// durable store, retries of the publish pipeline never depend on the render
// provider's CDN again.
package publish

import (
	"context"
	"net/http"
	"time"

	"jubily/internal/pkg/errors"
	"jubily/internal/ports"
)

// Mirror copies a remote asset into the durable store and hands back its
// stable public URL.
type Mirror struct {
	sp     ports.StorageProvider
	client *http.Client
}

func NewMirror(sp ports.StorageProvider, timeout time.Duration) *Mirror {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Mirror{
		sp:     sp,
		client: &http.Client{Timeout: timeout},
	}
}

// IsDurable reports whether the URL already points into the durable store.
func (m *Mirror) IsDurable(url string) bool {
	return url != "" && m.sp.OwnsURL(url)
}

// Mirror fetches remoteURL and stores it under key, returning the durable
// public URL. Fails when the remote asset cannot be fetched or the store
// yields no URL.
func (m *Mirror) Mirror(ctx context.Context, remoteURL, key string) (string, error) {
	if remoteURL == "" {
		return "", errors.Validation("missing remote url to mirror")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "*/*")

	res, err := m.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "mirror.fetch", "failed to fetch remote asset")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", errors.Newf(errors.CodeUnavailable, "remote asset fetch http %d", res.StatusCode)
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	out, err := m.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: contentType,
		Reader:      res.Body,
		Size:        res.ContentLength,
	})
	if err != nil {
		return "", errors.Wrap(err, "mirror.put", "durable store upload failed")
	}

	durable := m.sp.PublicURL(out.ObjectKey)
	if durable == "" {
		return "", errors.Internal("durable store returned no public url")
	}
	return durable, nil
}
