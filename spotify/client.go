// Package spotify calls the Spotify Web API on behalf of a user token and
// passes responses through as raw JSON.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.spotify.com/v1"

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func New() *Client {
	return NewWithBaseURL(DefaultBaseURL)
}

func NewWithBaseURL(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

func (c *Client) Profile(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.get(ctx, accessToken, "/me")
}

func (c *Client) TopArtists(ctx context.Context, accessToken, timeRange string, limit int) (json.RawMessage, error) {
	return c.get(ctx, accessToken, fmt.Sprintf("/me/top/artists?time_range=%s&limit=%d", timeRange, limit))
}

func (c *Client) TopTracks(ctx context.Context, accessToken, timeRange string, limit int) (json.RawMessage, error) {
	return c.get(ctx, accessToken, fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d", timeRange, limit))
}

func (c *Client) RecentlyPlayed(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.get(ctx, accessToken, "/me/player/recently-played")
}

// CurrentlyPlaying returns ErrNothingPlaying when Spotify answers 204,
// which is its way of saying no track is playing.
func (c *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.get(ctx, accessToken, "/me/player/currently-playing")
}

func (c *Client) get(ctx context.Context, accessToken, path string) (json.RawMessage, error) {
	log.Tracef("Fetching from Spotify API: %s", path)

	span := sentry.StartSpan(ctx, "spotify.get")
	span.Description = "Get from Spotify Web API"
	span.SetTag("path", path)
	defer span.Finish()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Spotify request failed for %s: %v", path, err)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("spotify: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("spotify: GET %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		span.Status = sentry.SpanStatusUnauthenticated
		return nil, ErrTokenExpired
	case resp.StatusCode == http.StatusNoContent:
		span.Status = sentry.SpanStatusOK
		return nil, ErrNothingPlaying
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		log.Errorf("Spotify returned %d for %s: %s", resp.StatusCode, path, string(body))
		span.Status = sentry.SpanStatusInternalError
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	span.Status = sentry.SpanStatusOK
	return body, nil
}
