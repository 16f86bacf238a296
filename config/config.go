package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Spotify SpotifyConfig
	Server  ServerConfig
	CORS    CORSConfig
	Sentry  SentryConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type ServerConfig struct {
	Port string
}

type CORSConfig struct {
	AllowedOrigin string
}

type SentryConfig struct {
	DSN string
}

// Load reads the service configuration from the environment. The Spotify
// credentials and the frontend origin are required: a missing value here
// would otherwise surface later as a malformed Basic auth header or an
// open CORS policy, so startup fails instead.
func Load() (*Config, error) {
	config := &Config{
		Spotify: SpotifyConfig{
			ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
			ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("SPOTIFY_REDIRECT_URI"),
		},
		Server: ServerConfig{
			Port: getPort(),
		},
		CORS: CORSConfig{
			AllowedOrigin: os.Getenv("FRONTEND_ORIGIN"),
		},
		Sentry: SentryConfig{
			DSN: os.Getenv("SENTRY_DSN"),
		},
	}

	var missing []string
	if config.Spotify.ClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if config.Spotify.ClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if config.Spotify.RedirectURI == "" {
		missing = append(missing, "SPOTIFY_REDIRECT_URI")
	}
	if config.CORS.AllowedOrigin == "" {
		missing = append(missing, "FRONTEND_ORIGIN")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return config, nil
}

func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		return "8080"
	}
	return port
}
