package apod

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

const defaultVimeoAPIBase = "https://vimeo.com/api/v2"

var (
	youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	vimeoIDPattern   = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
)

// ThumbnailResolver derives a still-image thumbnail URL from a video
// embed URL. Only YouTube and Vimeo are recognized; any other host
// resolves to an empty URL, which is not an error.
type ThumbnailResolver struct {
	client       *http.Client
	vimeoAPIBase string
}

// NewThumbnailResolver creates a resolver using the given client for
// the Vimeo metadata lookup. A nil client falls back to a short-timeout
// default.
func NewThumbnailResolver(client *http.Client) *ThumbnailResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ThumbnailResolver{client: client, vimeoAPIBase: defaultVimeoAPIBase}
}

// Resolve returns the thumbnail URL for a video URL, or empty when the
// host is not recognized. YouTube thumbnails follow a fixed URL scheme;
// Vimeo requires one metadata API call.
func (r *ThumbnailResolver) Resolve(ctx context.Context, videoURL string) (string, error) {
	if m := youtubeIDPattern.FindStringSubmatch(videoURL); m != nil {
		return fmt.Sprintf("https://img.youtube.com/vi/%s/0.jpg", m[1]), nil
	}
	if m := vimeoIDPattern.FindStringSubmatch(videoURL); m != nil {
		return r.vimeoThumbnail(ctx, m[1])
	}
	return "", nil
}

func (r *ThumbnailResolver) vimeoThumbnail(ctx context.Context, videoID string) (string, error) {
	url := fmt.Sprintf("%s/video/%s.json", r.vimeoAPIBase, videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create vimeo request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vimeo lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vimeo lookup: unexpected status %d", resp.StatusCode)
	}

	var payload []struct {
		ThumbnailLarge string `json:"thumbnail_large"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPageBytes)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode vimeo response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("vimeo lookup: empty response for video %s", videoID)
	}

	return payload[0].ThumbnailLarge, nil
}
