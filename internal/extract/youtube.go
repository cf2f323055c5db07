package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTranscriptUnavailable reports that the transcript provider has no
// usable transcript for a video: none exists, it is geo-restricted, or the
// response was malformed.
var ErrTranscriptUnavailable = errors.New("transcript unavailable for this video")

// PlaceholderTitle is used when the title lookup fails. Title lookup is
// display-only and must never abort ingestion.
const PlaceholderTitle = "Untitled YouTube Video"

// VideoID extracts the canonical video ID from a YouTube URL. A short-link
// host carries the ID in the path, the canonical hosts carry it in the v
// query parameter. Any other host, or a missing parameter, yields "".
func VideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	switch u.Hostname() {
	case "youtu.be":
		return strings.TrimPrefix(u.Path, "/")
	case "youtube.com", "www.youtube.com":
		return u.Query().Get("v")
	}
	return ""
}

// TranscriptClient fetches transcripts and video metadata from the public
// YouTube endpoints. The base URL is configurable for tests.
type TranscriptClient struct {
	baseURL string
	client  *http.Client
}

func NewTranscriptClient(baseURL string, timeout time.Duration) *TranscriptClient {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &TranscriptClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Transcript fetches the timed transcript segments for videoID and joins
// their text fields with single spaces, preserving segment order.
func (c *TranscriptClient) Transcript(ctx context.Context, videoID string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/timedtext?v=%s&lang=en&fmt=json3", c.baseURL, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptUnavailable, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: provider returned %s", ErrTranscriptUnavailable, resp.Status)
	}

	var payload struct {
		Events []struct {
			Segs []struct {
				UTF8 string `json:"utf8"`
			} `json:"segs"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrTranscriptUnavailable, err)
	}

	var segments []string
	for _, ev := range payload.Events {
		var seg strings.Builder
		for _, s := range ev.Segs {
			seg.WriteString(s.UTF8)
		}
		if text := strings.TrimSpace(seg.String()); text != "" {
			segments = append(segments, text)
		}
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: no transcript segments", ErrTranscriptUnavailable)
	}
	return strings.Join(segments, " "), nil
}

// VideoTitle looks up the video title through the public oEmbed endpoint.
// It is best-effort: on any failure it returns PlaceholderTitle.
func (c *TranscriptClient) VideoTitle(ctx context.Context, videoID string) string {
	watchURL := url.QueryEscape("http://www.youtube.com/watch?v=" + videoID)
	endpoint := fmt.Sprintf("%s/oembed?url=%s&format=json", c.baseURL, watchURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PlaceholderTitle
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return PlaceholderTitle
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return PlaceholderTitle
	}
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Title == "" {
		return PlaceholderTitle
	}
	return payload.Title
}
