// Package auth drives the Spotify accounts service: authorize redirects,
// authorization-code exchange and refresh-token exchange.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"spotirecap/spotify"
)

// ErrMissingTokens is returned when a 2xx token response lacks the access
// or refresh token.
var ErrMissingTokens = errors.New("token response missing access or refresh token")

// ErrMissingRefreshToken is returned when no refresh token was supplied.
var ErrMissingRefreshToken = errors.New("refresh token is required")

// Scopes is the full scope list requested at login. It covers every
// endpoint the proxy reads, including the player-state endpoints.
var Scopes = []string{
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadPlaybackState,
}

// TokenSet is the token bundle returned by an exchange. It is handed
// straight to the caller and never retained server-side.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authURL      string
	tokenURL     string
	httpClient   *http.Client
}

func New(clientID, clientSecret, redirectURI string) *Client {
	return NewWithEndpoints(clientID, clientSecret, redirectURI, spotifyauth.AuthURL, spotifyauth.TokenURL)
}

func NewWithEndpoints(clientID, clientSecret, redirectURI, authURL, tokenURL string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		authURL:      authURL,
		tokenURL:     tokenURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthorizeURL builds the authorize redirect target. Scopes are joined by
// a single space and escaped as one query parameter.
func (c *Client) AuthorizeURL(scopes []string) string {
	return c.authURL +
		"?response_type=code" +
		"&client_id=" + url.QueryEscape(c.clientID) +
		"&redirect_uri=" + url.QueryEscape(c.redirectURI) +
		"&scope=" + url.QueryEscape(strings.Join(scopes, " "))
}

// Exchange swaps an authorization code for a token set.
func (c *Client) Exchange(ctx context.Context, code string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.redirectURI},
	}

	tokens, err := c.postToken(ctx, "authorization_code", form)
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		log.Errorf("Token exchange response missing tokens")
		return nil, ErrMissingTokens
	}
	return tokens, nil
}

// Refresh swaps a refresh token for a fresh token set. Spotify may omit
// the refresh token in the response; the old one stays valid.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.postToken(ctx, "refresh_token", form)
}

func (c *Client) postToken(ctx context.Context, grantType string, form url.Values) (*TokenSet, error) {
	span := sentry.StartSpan(ctx, "spotify.token_exchange")
	span.Description = "Exchange with Spotify accounts service"
	span.SetTag("grant_type", grantType)
	defer span.Finish()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+c.basicAuth())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Spotify token %s request failed: %v", grantType, err)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("spotify: token %s: %w", grantType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("spotify: token %s: %w", grantType, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("Spotify token %s failed: %d %s", grantType, resp.StatusCode, string(body))
		span.Status = sentry.SpanStatusInternalError
		return nil, &spotify.StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	tokens := &TokenSet{ExpiresIn: 3600}
	if err := json.Unmarshal(body, tokens); err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("spotify: token %s: %w", grantType, err)
	}

	log.Debugf("Spotify token %s succeeded, expires in %ds", grantType, tokens.ExpiresIn)
	span.Status = sentry.SpanStatusOK
	return tokens, nil
}

// basicAuth is the single place the Basic credentials are encoded, so the
// code and refresh exchanges can never diverge.
func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
}
