package main

import (
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"spotirecap/auth"
	"spotirecap/config"
	"spotirecap/handlers"
	"spotirecap/sentry"
	"spotirecap/spotify"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}
	log.SetFormatter(&nested.Formatter{
		TimestampFormat: time.RFC3339,
		HideKeys:        true,
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	sentry.Init(cfg.Sentry.DSN)

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	router := gin.Default()
	if cfg.Sentry.DSN != "" {
		router.Use(sentry.Middleware())
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORS.AllowedOrigin},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Origin"},
	}))

	manager := handlers.NewManager(
		cfg,
		spotify.New(),
		auth.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURI),
	)
	manager.Register(router)

	log.Printf("Starting server on :%s", cfg.Server.Port)
	return router.Run(":" + cfg.Server.Port)
}
