// Package handlers wires the HTTP endpoints: each handler is stateless,
// takes caller-supplied tokens and composes upstream responses.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"spotirecap/auth"
	"spotirecap/config"
	"spotirecap/recap"
	"spotirecap/sentry"
	"spotirecap/spotify"

	"golang.org/x/sync/errgroup"
)

type Manager struct {
	cfg     *config.Config
	spotify *spotify.Client
	auth    *auth.Client
}

func NewManager(cfg *config.Config, spotifyClient *spotify.Client, authClient *auth.Client) *Manager {
	return &Manager{
		cfg:     cfg,
		spotify: spotifyClient,
		auth:    authClient,
	}
}

func (m *Manager) Register(router *gin.Engine) {
	router.GET("/login", m.Login)
	router.GET("/callback", m.Callback)
	router.POST("/refresh-token", m.RefreshToken)
	router.GET("/recently-played", m.RecentlyPlayed)
	router.GET("/currently-playing", m.CurrentlyPlaying)
}

func (m *Manager) Login(c *gin.Context) {
	c.Redirect(http.StatusFound, m.auth.AuthorizeURL(auth.Scopes))
}

// Callback exchanges the authorization code, fans out to the profile and
// top-list endpoints concurrently, and composes the full recap payload.
// If any one fetch fails the whole request fails with the first error.
func (m *Manager) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Authorization code is required"})
		return
	}

	ctx := c.Request.Context()
	tokens, err := m.auth.Exchange(ctx, code)
	if err != nil {
		m.writeError(c, "token exchange", err)
		return
	}

	token := tokens.AccessToken
	var (
		profile           json.RawMessage
		shortArtists      json.RawMessage
		mediumArtists     json.RawMessage
		mediumArtistsLong json.RawMessage
		longArtists       json.RawMessage
		shortTracks       json.RawMessage
		mediumTracks      json.RawMessage
		longTracks        json.RawMessage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { profile, err = m.spotify.Profile(gctx, token); return })
	g.Go(func() (err error) { shortArtists, err = m.spotify.TopArtists(gctx, token, "short_term", 10); return })
	g.Go(func() (err error) { mediumArtists, err = m.spotify.TopArtists(gctx, token, "medium_term", 10); return })
	g.Go(func() (err error) { mediumArtistsLong, err = m.spotify.TopArtists(gctx, token, "medium_term", 50); return })
	g.Go(func() (err error) { longArtists, err = m.spotify.TopArtists(gctx, token, "long_term", 10); return })
	g.Go(func() (err error) { shortTracks, err = m.spotify.TopTracks(gctx, token, "short_term", 10); return })
	g.Go(func() (err error) { mediumTracks, err = m.spotify.TopTracks(gctx, token, "medium_term", 10); return })
	g.Go(func() (err error) { longTracks, err = m.spotify.TopTracks(gctx, token, "long_term", 10); return })
	if err := g.Wait(); err != nil {
		m.writeError(c, "callback fetch", err)
		return
	}

	payload := gin.H{}
	if err := json.Unmarshal(profile, &payload); err != nil {
		m.writeError(c, "callback profile parse", err)
		return
	}

	topAlbums := gin.H{}
	for key, raw := range map[string]json.RawMessage{
		"short_term":  shortTracks,
		"medium_term": mediumTracks,
		"long_term":   longTracks,
	} {
		var page recap.TrackPage
		if err := json.Unmarshal(raw, &page); err != nil {
			m.writeError(c, "callback tracks parse", err)
			return
		}
		topAlbums[key] = recap.TopAlbums(page.Items)
	}

	topGenres := gin.H{}
	for key, raw := range map[string]json.RawMessage{
		"short_term":  shortArtists,
		"medium_term": mediumArtists,
		"long_term":   longArtists,
	} {
		var page recap.ArtistPage
		if err := json.Unmarshal(raw, &page); err != nil {
			m.writeError(c, "callback artists parse", err)
			return
		}
		topGenres[key] = recap.TopGenres(page.Items)
	}

	payload["access_token"] = tokens.AccessToken
	payload["refresh_token"] = tokens.RefreshToken
	payload["expires_in"] = tokens.ExpiresIn
	payload["short_term"] = shortArtists
	payload["medium_term"] = mediumArtists
	payload["long_term"] = longArtists
	payload["medium_term_artists_long"] = mediumArtistsLong
	payload["short_term_tracks"] = shortTracks
	payload["medium_term_tracks"] = mediumTracks
	payload["long_term_tracks"] = longTracks
	payload["top_albums"] = topAlbums
	payload["top_genres"] = topGenres

	c.JSON(http.StatusOK, payload)
}

func (m *Manager) RefreshToken(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Refresh token is required"})
		return
	}

	tokens, err := m.auth.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		m.writeError(c, "token refresh", err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func (m *Manager) RecentlyPlayed(c *gin.Context) {
	token := c.Query("access_token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "access_token is required"})
		return
	}

	body, err := m.spotify.RecentlyPlayed(c.Request.Context(), token)
	if err != nil {
		m.writeError(c, "recently played", err)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

// playbackState mirrors just the parts of Spotify's player response the
// frontend shows. Pointer fields keep absent values null in the output.
type playbackState struct {
	IsPlaying  bool `json:"is_playing"`
	ProgressMs *int `json:"progress_ms"`
	Item       *struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name   *string       `json:"name"`
			Images []recap.Image `json:"images"`
		} `json:"album"`
		DurationMs   *int              `json:"duration_ms"`
		ExternalURLs map[string]string `json:"external_urls"`
	} `json:"item"`
}

func (m *Manager) CurrentlyPlaying(c *gin.Context) {
	token := c.Query("access_token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "access_token is required"})
		return
	}

	body, err := m.spotify.CurrentlyPlaying(c.Request.Context(), token)
	if errors.Is(err, spotify.ErrNothingPlaying) {
		c.JSON(http.StatusOK, gin.H{"is_playing": false, "track": nil})
		return
	}
	if err != nil {
		m.writeError(c, "currently playing", err)
		return
	}

	var state playbackState
	if err := json.Unmarshal(body, &state); err != nil {
		m.writeError(c, "currently playing parse", err)
		return
	}

	// A valid 200 with no item still yields a track object with nulled
	// sub-fields, never an error.
	track := gin.H{
		"name":         nil,
		"artists":      []string{},
		"album":        gin.H{"name": nil, "images": []recap.Image{}},
		"duration_ms":  nil,
		"progress_ms":  state.ProgressMs,
		"external_url": nil,
	}
	if item := state.Item; item != nil {
		artists := make([]string, 0, len(item.Artists))
		for _, artist := range item.Artists {
			artists = append(artists, artist.Name)
		}
		images := item.Album.Images
		if images == nil {
			images = []recap.Image{}
		}
		track["name"] = item.Name
		track["artists"] = artists
		track["album"] = gin.H{"name": item.Album.Name, "images": images}
		track["duration_ms"] = item.DurationMs
		if url, ok := item.ExternalURLs["spotify"]; ok {
			track["external_url"] = url
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"is_playing": state.IsPlaying,
		"track":      track,
	})
}

// writeError maps the upstream error taxonomy onto HTTP responses. Every
// response body is {"detail": ...} and nothing here is retried.
func (m *Manager) writeError(c *gin.Context, operation string, err error) {
	var statusErr *spotify.StatusError
	switch {
	case errors.Is(err, spotify.ErrTokenExpired):
		log.Warnf("%s: access token expired", operation)
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token expired"})
	case errors.Is(err, auth.ErrMissingRefreshToken):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Refresh token is required"})
	case errors.Is(err, auth.ErrMissingTokens):
		log.Errorf("%s: %v", operation, err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Failed to retrieve tokens"})
	case errors.As(err, &statusErr):
		log.Errorf("%s: spotify returned %d: %s", operation, statusErr.Code, statusErr.Body)
		sentry.ReportError(err)
		c.JSON(statusErr.Code, gin.H{"detail": err.Error()})
	default:
		log.Errorf("%s: %v", operation, err)
		sentry.ReportError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
