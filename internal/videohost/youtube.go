// Package videohost uploads finished videos to the hosting platform.
package videohost

import (
	"context"
	"net/http"
	"time"

	"jubily/internal/pkg/errors"
	"jubily/internal/util"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"
)

const (
	maxTitleLen = 95
	maxDescLen  = 4500

	// People & Blogs
	categoryID = "22"
)

// Host publishes a video from a source URL and returns the public watch URL.
type Host interface {
	Upload(ctx context.Context, title, description, sourceURL string) (string, error)
}

// YouTube implements Host on the YouTube Data API v3.
type YouTube struct {
	svc     *youtube.Service
	client  *http.Client
	privacy string
}

// NewYouTube builds a client from the YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET
// and YOUTUBE_REFRESH_TOKEN environment variables. YOUTUBE_PRIVACY controls the
// privacy status of uploads and defaults to unlisted.
func NewYouTube(ctx context.Context) (*YouTube, error) {
	conf := &oauth2.Config{
		ClientID:     util.MustEnv("YOUTUBE_CLIENT_ID"),
		ClientSecret: util.MustEnv("YOUTUBE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}

	tok := &oauth2.Token{RefreshToken: util.MustEnv("YOUTUBE_REFRESH_TOKEN")}
	httpClient := conf.Client(ctx, tok)

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "videohost.new", "failed to build youtube service")
	}

	return &YouTube{
		svc:     svc,
		client:  &http.Client{Timeout: 10 * time.Minute},
		privacy: util.Env("YOUTUBE_PRIVACY", "unlisted"),
	}, nil
}

// Upload streams the asset at sourceURL into a new video and returns its
// watch URL. The source must be a durable URL; transient render CDN links
// expire and are rejected upstream.
func (y *YouTube) Upload(ctx context.Context, title, description, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", errors.Validation("missing source url for upload")
	}
	if title == "" {
		title = "Untitled"
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	if len(description) > maxDescLen {
		description = description[:maxDescLen]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "*/*")

	res, err := y.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "videohost.fetch", "failed to fetch video source")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", errors.Newf(errors.CodeUnavailable, "video source fetch http %d", res.StatusCode)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           y.privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	call := y.svc.Videos.Insert([]string{"snippet", "status"}, video).Context(ctx)
	uploaded, err := call.Media(res.Body).Do()
	if err != nil {
		return "", errors.Wrap(err, "videohost.insert", "video insert failed")
	}
	if uploaded.Id == "" {
		return "", errors.Internal("video insert returned no id")
	}

	return WatchURL(uploaded.Id), nil
}

// WatchURL returns the public watch page for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
