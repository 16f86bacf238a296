package sentry

import (
	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func Init(dsn string) {
	if dsn == "" {
		log.Debug("No Sentry DSN configured, error reporting disabled")
		return
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		TracesSampleRate: 1.0,
	}); err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
}

func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{})
}

func ReportError(err error) {
	sentry.CaptureException(err)
}
